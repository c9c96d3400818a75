// Package ecgcodes defines the MIT-BIH ECG annotation codes.
//
// The values match the ecgcodes.h enumeration used by annotation files and
// must not be renumbered. The beat classifier only ever emits Normal, PVC,
// and Unknown, but consumers of annotation streams see the full range.
package ecgcodes

const (
	NotQRS   = 0  // not-QRS (not a getann/putann code)
	Normal   = 1  // normal beat
	LBBB     = 2  // left bundle branch block beat
	RBBB     = 3  // right bundle branch block beat
	Aberr    = 4  // aberrated atrial premature beat
	PVC      = 5  // premature ventricular contraction
	Fusion   = 6  // fusion of ventricular and normal beat
	NPC      = 7  // nodal (junctional) premature beat
	APC      = 8  // atrial premature contraction
	SVPB     = 9  // premature or ectopic supraventricular beat
	VEsc     = 10 // ventricular escape beat
	NEsc     = 11 // nodal (junctional) escape beat
	Pace     = 12 // paced beat
	Unknown  = 13 // unclassifiable beat
	Noise    = 14 // signal quality change
	Arfct    = 16 // isolated QRS-like artifact
	STCh     = 18 // ST change
	TCh      = 19 // T-wave change
	Systole  = 20 // systole
	Diastole = 21 // diastole
	Note     = 22 // comment annotation
	Measure  = 23 // measurement annotation
	BBB      = 25 // left or right bundle branch block
	PaceSP   = 26 // non-conducted pacer spike
	Rhythm   = 28 // rhythm change
	Learn    = 30 // learning
	FLWav    = 31 // ventricular flutter wave
	VFOn     = 32 // start of ventricular flutter/fibrillation
	VFOff    = 33 // end of ventricular flutter/fibrillation
	AEsc     = 34 // atrial escape beat
	SVEsc    = 35 // supraventricular escape beat
	NAPC     = 37 // non-conducted P-wave (blocked APB)
	PFus     = 38 // fusion of paced and normal beat
	PQ       = 39 // PQ junction (beginning of QRS)
	JPt      = 40 // J point (end of QRS)
	ROnT     = 41 // R-on-T premature ventricular contraction
)
