// Package qrs implements the QRS filter chain and the adaptive QRS detector.
//
// Consecutive ECG samples (signed integers) are passed in one at a time; the
// detector reports, once per QRS complex, the number of samples elapsed since
// the estimated R-wave location. The algorithm is a variant of the detection
// rules studied in Hamilton & Tompkins, IEEE Trans. Biomed. Eng. BME-33,
// pp. 1158-1165, tuned for 200 Hz but usable from roughly 150 to 400 Hz.
package qrs

import "fmt"

const (
	// MinSampleRate and MaxSampleRate bound the detection rates the filter
	// constants remain valid for.
	MinSampleRate = 150
	MaxSampleRate = 400
)

// Params holds the sample-rate derived interval counts used throughout
// detection. A name like MS95 is the number of samples spanning 95 ms at
// the detection rate.
type Params struct {
	SampleRate  int
	MSPerSample float64

	MS10   int
	MS25   int
	MS30   int
	MS80   int
	MS95   int
	MS100  int
	MS125  int
	MS150  int
	MS160  int
	MS175  int
	MS195  int
	MS200  int
	MS220  int
	MS250  int
	MS300  int
	MS360  int
	MS450  int
	MS1000 int
	MS1500 int

	DerivLength    int
	LPBufferLength int
	HPBufferLength int
	WindowWidth    int
}

// NewParams derives the interval counts for the given detection rate.
func NewParams(sampleRate int) (Params, error) {
	if sampleRate < MinSampleRate || sampleRate > MaxSampleRate {
		return Params{}, fmt.Errorf("sample rate must be in [%d, %d] Hz: %d", MinSampleRate, MaxSampleRate, sampleRate)
	}

	msPerSample := 1000.0 / float64(sampleRate)
	ms := func(v float64) int { return int(v/msPerSample + 0.5) }

	p := Params{
		SampleRate:  sampleRate,
		MSPerSample: msPerSample,
		MS10:        ms(10),
		MS25:        ms(25),
		MS30:        ms(30),
		MS80:        ms(80),
		MS95:        ms(95),
		MS100:       ms(100),
		MS125:       ms(125),
		MS150:       ms(150),
		MS160:       ms(160),
		MS175:       ms(175),
		MS195:       ms(195),
		MS200:       ms(200),
		MS220:       ms(220),
		MS250:       ms(250),
		MS300:       ms(300),
		MS360:       ms(360),
		MS450:       ms(450),
		MS1000:      sampleRate,
		MS1500:      int(1500 / msPerSample),
	}
	p.DerivLength = p.MS10
	p.LPBufferLength = 2 * p.MS25
	p.HPBufferLength = p.MS125
	p.WindowWidth = p.MS80

	return p, nil
}

// PreBlankParams groups the delays that depend on the pre-blank window.
type PreBlankParams struct {
	PreBlank int
	// FilterDelay is the total filter-chain delay plus pre-blanking.
	FilterDelay int
	// DerDelay is the amount of raw-derivative history retained for
	// baseline-shift discrimination.
	DerDelay int
}

// NewPreBlankParams derives the delay constants for a given pre-blank window.
func NewPreBlankParams(p Params, preBlank int) PreBlankParams {
	filterDelay := int(float64(p.DerivLength)/2+(float64(p.LPBufferLength)/2-1)+float64(p.HPBufferLength-1)/2) + preBlank

	return PreBlankParams{
		PreBlank:    preBlank,
		FilterDelay: filterDelay,
		DerDelay:    p.WindowWidth + filterDelay + p.MS100,
	}
}
