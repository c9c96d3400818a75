// Package classify implements beat feature analysis, template matching, and
// the rule-based beat classifier.
//
// Detected beats arrive as fixed-length buffers sampled at the beat-analysis
// rate, centered so the R-wave falls at the fiducial mark. The classifier
// matches each beat against a bank of average-shape templates, tracks the
// rhythm through RR-interval patterns, monitors which morphology is dominant,
// and labels each beat NORMAL, PVC, or UNKNOWN.
package classify

import (
	"fmt"

	"github.com/cwbudde/algo-ecg/ecg/ecgcodes"
)

// Params holds the beat-rate derived interval counts used by beat analysis
// and classification. A name like MS80 is the number of samples spanning
// 80 ms at the beat-analysis rate.
type Params struct {
	BeatSampleRate  int
	BeatMSPerSample float64

	MS10   int
	MS20   int
	MS40   int
	MS50   int
	MS60   int
	MS70   int
	MS80   int
	MS90   int
	MS100  int
	MS110  int
	MS130  int
	MS140  int
	MS150  int
	MS250  int
	MS280  int
	MS300  int
	MS350  int
	MS400  int
	MS1000 int

	// BeatLength is the number of samples in a beat buffer (1000 ms).
	BeatLength int
	// MaxTypes caps the template bank; the value MaxTypes itself acts as the
	// pseudo-type meaning "no match".
	MaxTypes int
	// FIDMark is the canonical R-wave index within a beat buffer.
	FIDMark int
}

// NewParams derives the interval counts for the given beat-analysis rate.
func NewParams(beatSampleRate int) (Params, error) {
	if beatSampleRate <= 0 {
		return Params{}, fmt.Errorf("beat sample rate must be positive: %d", beatSampleRate)
	}

	msPerSample := 1000.0 / float64(beatSampleRate)
	ms := func(v float64) int { return int(v/msPerSample + 0.5) }

	p := Params{
		BeatSampleRate:  beatSampleRate,
		BeatMSPerSample: msPerSample,
		MS10:            ms(10),
		MS20:            ms(20),
		MS40:            ms(40),
		MS50:            ms(50),
		MS60:            ms(60),
		MS70:            ms(70),
		MS80:            ms(80),
		MS90:            ms(90),
		MS100:           ms(100),
		MS110:           ms(110),
		MS130:           ms(130),
		MS140:           ms(140),
		MS150:           ms(150),
		MS250:           ms(250),
		MS280:           ms(280),
		MS300:           ms(300),
		MS350:           ms(350),
		MS400:           ms(400),
		MS1000:          beatSampleRate,
	}
	p.BeatLength = p.MS1000
	p.MaxTypes = maxTypes
	p.FIDMark = p.MS400

	return p, nil
}

// maxTypes is fixed at 8. The per-template match-history window (see
// Matcher.MinimumBeatVariation) shares this value; resizing the bank requires
// sizing that window separately.
const maxTypes = 8

// Beat and rhythm classifications reuse the annotation code values.
const (
	beatNormal  = ecgcodes.Normal
	beatPVC     = ecgcodes.PVC
	beatUnknown = ecgcodes.Unknown
)
