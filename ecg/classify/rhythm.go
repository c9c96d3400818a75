package classify

import "github.com/cwbudde/algo-ecg/ecg/qrs"

// RR interval labels. An interval is labeled by the presumed nature of the
// beats at its two ends.
const (
	rrQQ = 0 // unknown-unknown
	rrNN = 1 // normal-normal
	rrNV = 2 // normal-premature
	rrVN = 3 // premature-normal
	rrVV = 4 // premature-premature
)

const rhythmBufLen = 8

// RhythmChecker classifies RR intervals as NORMAL, PVC, or UNKNOWN based on
// the pattern of recent intervals. Intervals classified as NORMAL are
// presumed to end with normal beats, PVC intervals with premature
// contractions; UNKNOWN intervals fit no recognized pattern.
//
// NORMAL intervals can be part of a regular rhythm, normal beats following
// premature beats, or normal beats following runs of ventricular beats. PVC
// intervals can be short intervals following a regular rhythm, runs of short
// intervals, or part of a bigeminal rhythm.
type RhythmChecker struct {
	bradyLimit int

	rrBuffer  [rhythmBufLen]int
	rrTypes   [rhythmBufLen]int
	beatCount int
	ready     bool

	bigeminy bool
}

// NewRhythmChecker returns a rhythm checker; bradycardia classification uses
// the detection-rate MS1500 limit.
func NewRhythmChecker(qp qrs.Params) *RhythmChecker {
	return &RhythmChecker{bradyLimit: qp.MS1500}
}

// IsBigeminy reports whether the last RhythmChk call recognized a bigeminal
// pattern. The flag is set only on the call that recognizes the pattern; on
// later calls that continue the alternation it is false.
func (c *RhythmChecker) IsBigeminy() bool { return c.bigeminy }

// RhythmChk takes an RR interval and classifies it as NORMAL, PVC, or
// UNKNOWN based on the preceding intervals.
func (c *RhythmChecker) RhythmChk(rr int) int {
	c.bigeminy = false

	// Wait for at least 4 beats before classifying anything.
	if c.beatCount < 4 {
		if c.beatCount++; c.beatCount == 4 {
			c.ready = true
		}
	}

	for i := rhythmBufLen - 1; i > 0; i-- {
		c.rrBuffer[i] = c.rrBuffer[i-1]
		c.rrTypes[i] = c.rrTypes[i-1]
	}
	c.rrBuffer[0] = rr

	if !c.ready {
		c.rrTypes[0] = rrQQ
		return beatUnknown
	}

	switch c.rrTypes[1] {
	case rrQQ:
		return c.checkQQ()
	case rrNN:
		return c.checkNN()
	case rrNV:
		return c.checkNV()
	case rrVN:
		return c.checkVN()
	default:
		return c.checkVV()
	}
}

// checkQQ handles the case where the previous interval fit no pattern.
func (c *RhythmChecker) checkQQ() int {
	regular := true
	for i := 0; i < 3; i++ {
		if !rrMatch(c.rrBuffer[i], c.rrBuffer[i+1]) {
			regular = false
		}
	}

	// If this and the last three intervals matched, call it normal-normal.
	if regular {
		c.rrTypes[0] = rrNN
		return beatNormal
	}

	// Call bigeminy if every other RR matches and consecutive beats do not.
	regular = true
	for i := 0; i < 6; i++ {
		if !rrMatch(c.rrBuffer[i], c.rrBuffer[i+2]) {
			regular = false
		}
	}
	for i := 0; i < 6; i++ {
		if rrMatch(c.rrBuffer[i], c.rrBuffer[i+1]) {
			regular = false
		}
	}

	if regular {
		c.bigeminy = true
		if c.rrBuffer[0] < c.rrBuffer[1] {
			c.rrTypes[0] = rrNV
			c.rrTypes[1] = rrVN
			return beatPVC
		}
		c.rrTypes[0] = rrVN
		c.rrTypes[1] = rrNV
		return beatNormal
	}

	// Check for an NNVNNNV pattern.
	if rrShort(c.rrBuffer[0], c.rrBuffer[1]) && rrMatch(c.rrBuffer[1], c.rrBuffer[2]) &&
		rrMatch(c.rrBuffer[2]*2, c.rrBuffer[3]+c.rrBuffer[4]) &&
		rrMatch(c.rrBuffer[4], c.rrBuffer[0]) && rrMatch(c.rrBuffer[5], c.rrBuffer[2]) {
		c.rrTypes[0] = rrNV
		c.rrTypes[1] = rrNN
		return beatPVC
	}

	c.rrTypes[0] = rrQQ
	return beatUnknown
}

// checkNN handles the case where the previous two beats were normal.
func (c *RhythmChecker) checkNN() int {
	switch {
	case c.rrShort2(c.rrBuffer[:], c.rrTypes[:]):
		if c.rrBuffer[1] < c.bradyLimit {
			c.rrTypes[0] = rrNV
			return beatPVC
		}
		c.rrTypes[0] = rrQQ
		return beatUnknown

	case rrMatch(c.rrBuffer[0], c.rrBuffer[1]):
		c.rrTypes[0] = rrNN
		return beatNormal

	case rrShort(c.rrBuffer[0], c.rrBuffer[1]):
		// A short interval that matches the one before last (itself NN) is
		// normal; otherwise a PVC, unless the regular rhythm was
		// bradycardia, in which case no assumption is made.
		if rrMatch(c.rrBuffer[0], c.rrBuffer[2]) && c.rrTypes[2] == rrNN {
			c.rrTypes[0] = rrNN
			return beatNormal
		}
		if c.rrBuffer[1] < c.bradyLimit {
			c.rrTypes[0] = rrNV
			return beatPVC
		}
		c.rrTypes[0] = rrQQ
		return beatUnknown

	default:
		// Neither matching nor short: classify as normal but don't assume
		// normal for future rhythm classification.
		c.rrTypes[0] = rrQQ
		return beatNormal
	}
}

// checkNV handles the case where the previous beat was premature.
func (c *RhythmChecker) checkNV() int {
	switch {
	case c.rrShort2(c.rrBuffer[1:], c.rrTypes[1:]):
		if rrMatch(c.rrBuffer[0], c.rrBuffer[1]) {
			c.rrTypes[0] = rrNN
			c.rrTypes[1] = rrNN
			return beatNormal
		}
		if c.rrBuffer[0] > c.rrBuffer[1] {
			c.rrTypes[0] = rrVN
			return beatNormal
		}
		c.rrTypes[0] = rrQQ
		return beatUnknown

	case rrMatch(c.rrBuffer[0], c.rrBuffer[1]):
		// Matches the previous premature interval: assume a couplet.
		c.rrTypes[0] = rrVV
		return beatPVC

	case c.rrBuffer[0] > c.rrBuffer[1]:
		c.rrTypes[0] = rrVN
		return beatNormal

	default:
		c.rrTypes[0] = rrQQ
		return beatUnknown
	}
}

// checkVN handles the case where the previous beat followed a PVC or couplet.
func (c *RhythmChecker) checkVN() int {
	// Find the last NN interval.
	i := 2
	for ; i < rhythmBufLen && c.rrTypes[i] != rrNN; i++ {
	}

	nnEst := 0
	if i != rhythmBufLen {
		nnEst = c.rrBuffer[i]
		if rrMatch(c.rrBuffer[0], nnEst) {
			c.rrTypes[0] = rrNN
			return beatNormal
		}
	}

	nvEst := 0
	for i = 2; i < rhythmBufLen && c.rrTypes[i] != rrNV; i++ {
	}
	if i != rhythmBufLen {
		nvEst = c.rrBuffer[i]
	}
	if nnEst == 0 && nvEst != 0 {
		nnEst = (c.rrBuffer[1] + nvEst) >> 1
	}

	// nnEst is either the last NN interval or the average of the most recent
	// NV and VN intervals. Match to whichever estimate this interval is
	// closer to.
	switch {
	case nvEst != 0 && absInt(nnEst-c.rrBuffer[0]) < absInt(nvEst-c.rrBuffer[0]) && rrMatch(nnEst, c.rrBuffer[0]):
		c.rrTypes[0] = rrNN
		return beatNormal
	case nvEst != 0 && absInt(nnEst-c.rrBuffer[0]) > absInt(nvEst-c.rrBuffer[0]) && rrMatch(nvEst, c.rrBuffer[0]):
		c.rrTypes[0] = rrNV
		return beatPVC
	default:
		c.rrTypes[0] = rrQQ
		return beatUnknown
	}
}

// checkVV handles the case where the previous interval was part of a run of
// premature beats.
func (c *RhythmChecker) checkVV() int {
	if rrMatch(c.rrBuffer[0], c.rrBuffer[1]) {
		c.rrTypes[0] = rrVV
		return beatPVC
	}

	// Anything that doesn't match the run is assumed to be recovery to a
	// normal beat, unless it is short.
	if rrShort(c.rrBuffer[0], c.rrBuffer[1]) {
		c.rrTypes[0] = rrQQ
		return beatUnknown
	}
	c.rrTypes[0] = rrVN
	return beatNormal
}

// rrMatch reports whether two intervals differ by less than one eighth of
// their sum (a quarter of their mean).
func rrMatch(rr0, rr1 int) bool {
	return absInt(rr0-rr1) < (rr0+rr1)>>3
}

// rrShort reports whether an interval is less than 75% of the previous one.
func rrShort(rr0, rr1 int) bool {
	return rr0 < rr1-rr1>>2
}

// rrShort2 checks for a single short interval in a very regular rhythm.
func (c *RhythmChecker) rrShort2(rrIntervals, rrTypes []int) bool {
	rrMean := 0
	nnCount := 0
	for i := 1; i < 7 && nnCount < 4; i++ {
		if rrTypes[i] == rrNN {
			nnCount++
			rrMean += rrIntervals[i]
		}
	}

	// Need at least 4 normal intervals.
	if nnCount != 4 {
		return false
	}
	rrMean >>= 2

	i := 1
	for nnCount = 0; i < 7 && nnCount < 4; i++ {
		if rrTypes[i] == rrNN {
			if absInt(rrMean-rrIntervals[i]) > rrMean>>4 {
				i = 10
			}
		}
	}

	return i < 9 && rrIntervals[0] < rrMean-rrMean>>3
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
