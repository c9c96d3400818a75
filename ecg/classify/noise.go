package classify

import "github.com/cwbudde/algo-ecg/ecg/qrs"

// NoiseChecker estimates the low-frequency noise content of beats from the
// signal variation in the isoelectric window between them.
type NoiseChecker struct {
	qp qrs.Params

	nbLength int
	buf      []int
	ptr      int
	estimate int
}

// NewNoiseChecker returns a noise estimator over the detection-rate stream.
func NewNoiseChecker(qp qrs.Params) *NoiseChecker {
	nb := qp.MS1500
	return &NoiseChecker{
		qp:       qp,
		nbLength: nb,
		buf:      make([]int, nb),
	}
}

// NoiseEstimate returns the most recent estimate.
func (n *NoiseChecker) NoiseEstimate() int { return n.estimate }

// NoiseCheck must be called for every sample. When a beat has been detected
// it is additionally passed the sample delay since the beat's R-wave, the RR
// interval to the previous beat, and the estimated offsets from the R-wave to
// the beginning and end of the beat.
//
// The returned estimate is the ratio of the peak-to-peak signal variation to
// the window length, scaled by 10, over either the window from the end of the
// previous beat to the beginning of this beat or the 250 ms preceding this
// beat, whichever is shorter. A zero delay, an over-long delay, or beats too
// close together yield 0.
func (n *NoiseChecker) NoiseCheck(datum, delay, rr, beatBegin, beatEnd int) int {
	n.buf[n.ptr] = datum
	if n.ptr++; n.ptr == n.nbLength {
		n.ptr = 0
	}

	ncStart := delay + rr - beatEnd
	ncEnd := delay + beatBegin
	if ncStart > ncEnd+n.qp.MS250 {
		ncStart = ncEnd + n.qp.MS250
	}

	if delay != 0 && ncStart < n.nbLength && ncStart > ncEnd {
		ptr := n.ptr - ncStart
		if ptr < 0 {
			ptr += n.nbLength
		}

		ncMax, ncMin := n.buf[ptr], n.buf[ptr]
		for i := 0; i < ncStart-ncEnd; i++ {
			if n.buf[ptr] > ncMax {
				ncMax = n.buf[ptr]
			} else if n.buf[ptr] < ncMin {
				ncMin = n.buf[ptr]
			}
			if ptr++; ptr == n.nbLength {
				ptr = 0
			}
		}

		noiseIndex := float64(ncMax-ncMin) / float64(ncStart-ncEnd)
		n.estimate = int(noiseIndex * 10)
	} else {
		n.estimate = 0
	}
	return n.estimate
}
