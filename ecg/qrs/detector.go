package qrs

// th is the fraction of the QRS-to-noise mean spread added to the noise mean
// to form the detection threshold.
const th = 0.3125

// minPeakAmp rejects peaks smaller than about 150 uV.
const minPeakAmp = 7

const memMoveLen = 7

// Detector finds QRS complexes in a stream of ECG samples. It adapts its
// detection threshold from running means of QRS and noise peak heights, holds
// candidate peaks through a pre-blank window, rejects baseline shifts by
// inspecting the raw derivative, and recovers missed beats by search-back.
// Detector state adapts to the signal; analyze a new record with a new
// Detector.
type Detector struct {
	p  Params
	pb PreBlankParams
	f  *Filterer

	detThresh int
	qpkcnt    int
	qrsbuf    [8]int
	noise     [8]int
	rrbuf     [8]int
	rsetBuf   [8]int
	rsetCount int
	nmean     int
	qmean     int
	rrmean    int
	count     int
	sbpeak    int
	sbloc     int
	sbcount   int
	maxder    int
	initBlank int
	initMax   int

	preBlankCnt int
	tempPeak    int

	// ddBuf holds raw-derivative history for baseline-shift checks.
	ddBuf []int
	ddPtr int

	peakMax          int
	peakTimeSinceMax int
	peakLastDatum    int
}

// NewDetector returns a QRS detector for the given sample rate.
func NewDetector(sampleRate int) (*Detector, error) {
	p, err := NewParams(sampleRate)
	if err != nil {
		return nil, err
	}
	return NewDetectorWithParams(p), nil
}

// NewDetectorWithParams returns a QRS detector built over already derived
// parameters, sharing them with collaborating components.
func NewDetectorWithParams(p Params) *Detector {
	pb := NewPreBlankParams(p, p.MS195)
	d := &Detector{
		p:       p,
		pb:      pb,
		f:       NewFilterer(p),
		sbcount: p.MS1500,
		ddBuf:   make([]int, pb.DerDelay),
	}
	for i := range d.rrbuf {
		d.rrbuf[i] = p.MS1000
	}
	return d
}

// FilterDelay returns the total delay between a sample entering the chain and
// its contribution to a detection, including pre-blanking.
func (d *Detector) FilterDelay() int { return d.pb.FilterDelay }

// Params returns the detection-rate parameters the detector was built with.
func (d *Detector) Params() Params { return d.p }

// Detect accepts one ECG sample. It returns 0, or, once per detected QRS
// complex, the number of samples between the R-wave estimate and the current
// sample.
func (d *Detector) Detect(datum int) int {
	qrsDelay := 0

	fdatum := d.f.Filter(datum)

	aPeak := d.peak(fdatum)
	if aPeak < minPeakAmp {
		aPeak = 0
	}

	// Hold any peak for the pre-blank window in case a bigger one comes
	// along; there can only be one QRS complex in any 200 ms window.
	newPeak := 0
	switch {
	case aPeak != 0 && d.preBlankCnt == 0:
		d.tempPeak = aPeak
		d.preBlankCnt = d.pb.PreBlank
	case aPeak == 0 && d.preBlankCnt != 0:
		if d.preBlankCnt--; d.preBlankCnt == 0 {
			newPeak = d.tempPeak
		}
	case aPeak != 0:
		if aPeak > d.tempPeak {
			d.tempPeak = aPeak
			d.preBlankCnt = d.pb.PreBlank
		} else if d.preBlankCnt--; d.preBlankCnt == 0 {
			newPeak = d.tempPeak
		}
	}

	// Save the raw derivative for T-wave and baseline shift discrimination.
	d.ddBuf[d.ddPtr] = d.f.Deriv1(datum)
	if d.ddPtr++; d.ddPtr == d.pb.DerDelay {
		d.ddPtr = 0
	}

	if d.qpkcnt < 8 {
		// Initialize the QRS peak buffer with the first eight local maxima,
		// one per second.
		d.count++
		if newPeak > 0 {
			d.count = d.p.WindowWidth
		}
		if d.initBlank++; d.initBlank == d.p.MS1000 {
			d.initBlank = 0
			d.qrsbuf[d.qpkcnt] = d.initMax
			d.initMax = 0
			d.qpkcnt++
			if d.qpkcnt == 8 {
				d.qmean = mean(d.qrsbuf[:], 8)
				d.nmean = 0
				d.rrmean = d.p.MS1000
				d.sbcount = d.p.MS1500 + d.p.MS150
				d.detThresh = d.thresh(d.qmean, d.nmean)
			}
		}
		if newPeak > d.initMax {
			d.initMax = newPeak
		}
	} else {
		d.count++
		if newPeak > 0 {
			// Only consider this peak if it doesn't seem to be a baseline
			// shift.
			if !d.blsCheck() {
				if newPeak > d.detThresh {
					// Classify the peak as a QRS complex.
					copy(d.qrsbuf[1:], d.qrsbuf[:memMoveLen])
					d.qrsbuf[0] = newPeak
					d.qmean = mean(d.qrsbuf[:], 8)
					d.detThresh = d.thresh(d.qmean, d.nmean)
					copy(d.rrbuf[1:], d.rrbuf[:memMoveLen])
					d.rrbuf[0] = d.count - d.p.WindowWidth
					d.rrmean = mean(d.rrbuf[:], 8)
					d.sbcount = d.rrmean + d.rrmean>>1 + d.p.WindowWidth
					d.count = d.p.WindowWidth

					d.sbpeak = 0
					d.maxder = 0
					qrsDelay = d.p.WindowWidth + d.pb.FilterDelay
					d.initBlank, d.initMax, d.rsetCount = 0, 0, 0
				} else {
					// Not a QRS: update the noise estimate and store the
					// peak for possible search-back. Early peaks (which
					// might be T-waves) are excluded; a T-wave can mask a
					// small following QRS.
					copy(d.noise[1:], d.noise[:memMoveLen])
					d.noise[0] = newPeak
					d.nmean = mean(d.noise[:], 8)
					d.detThresh = d.thresh(d.qmean, d.nmean)

					if newPeak > d.sbpeak && d.count-d.p.WindowWidth >= d.p.MS360 {
						d.sbpeak = newPeak
						d.sbloc = d.count - d.p.WindowWidth
					}
				}
			}
		}

		// Search-back: accept a held sub-threshold peak retroactively when
		// the expected interval elapses without a detection.
		if d.count > d.sbcount && d.sbpeak > d.detThresh>>1 {
			copy(d.qrsbuf[1:], d.qrsbuf[:memMoveLen])
			d.qrsbuf[0] = d.sbpeak
			d.qmean = mean(d.qrsbuf[:], 8)
			d.detThresh = d.thresh(d.qmean, d.nmean)
			copy(d.rrbuf[1:], d.rrbuf[:memMoveLen])
			d.rrbuf[0] = d.sbloc
			d.rrmean = mean(d.rrbuf[:], 8)
			d.sbcount = d.rrmean + d.rrmean>>1 + d.p.WindowWidth
			d.count -= d.sbloc
			qrsDelay = d.count + d.pb.FilterDelay
			d.sbpeak = 0
			d.maxder = 0
			d.initBlank, d.initMax, d.rsetCount = 0, 0, 0
		}
	}

	// In the background, estimate a replacement threshold in case eight
	// seconds elapse without a QRS detection.
	if d.qpkcnt == 8 {
		if d.initBlank++; d.initBlank == d.p.MS1000 {
			d.initBlank = 0
			d.rsetBuf[d.rsetCount] = d.initMax
			d.initMax = 0
			d.rsetCount++

			if d.rsetCount == 8 {
				for i := 0; i < 8; i++ {
					d.qrsbuf[i] = d.rsetBuf[i]
					d.noise[i] = 0
				}
				d.qmean = mean(d.rsetBuf[:], 8)
				d.nmean = 0
				d.rrmean = d.p.MS1000
				d.sbcount = d.p.MS1500 + d.p.MS150
				d.detThresh = d.thresh(d.qmean, d.nmean)
				d.initBlank, d.initMax, d.rsetCount = 0, 0, 0
			}
		}
		if newPeak > d.initMax {
			d.initMax = newPeak
		}
	}

	return qrsDelay
}

// peak tracks local maxima of the filtered signal. A peak is emitted when the
// signal drops to half its maximum, or when no new maximum arrives for MS95.
func (d *Detector) peak(datum int) int {
	pk := 0

	if d.peakTimeSinceMax > 0 {
		d.peakTimeSinceMax++
	}

	if datum > d.peakLastDatum && datum > d.peakMax {
		d.peakMax = datum
		if d.peakMax > 2 {
			d.peakTimeSinceMax = 1
		}
	} else if datum < d.peakMax>>1 {
		pk = d.peakMax
		d.peakMax = 0
		d.peakTimeSinceMax = 0
	} else if d.peakTimeSinceMax > d.p.MS95 {
		pk = d.peakMax
		d.peakMax = 0
		d.peakTimeSinceMax = 0
	}
	d.peakLastDatum = datum
	return pk
}

func mean(array []int, n int) int {
	var sum int64
	for i := 0; i < n; i++ {
		sum += int64(array[i])
	}
	return int(sum / int64(n))
}

// thresh calculates the detection threshold from the QRS and noise mean
// estimates.
func (d *Detector) thresh(qmean, nmean int) int {
	dmed := qmean - nmean
	dmed = int(float64(dmed) * th)
	return nmean + dmed
}

// blsCheck reviews the raw-derivative history to see whether a baseline shift
// has occurred, by looking for positive and negative slopes of roughly the
// same magnitude within a 220 ms window. It reports true for a baseline
// shift (no matching pair found).
func (d *Detector) blsCheck() bool {
	var max, min, maxt, mint int

	ptr := d.ddPtr
	for t := 0; t < d.p.MS220; t++ {
		x := d.ddBuf[ptr]
		if x > max {
			maxt = t
			max = x
		} else if x < min {
			mint = t
			min = x
		}
		if ptr++; ptr == d.pb.DerDelay {
			ptr = 0
		}
	}

	d.maxder = max
	min = -min

	// Possible beat if a maximum and minimum pair are found with an interval
	// between them of less than 150 ms.
	diff := maxt - mint
	if diff < 0 {
		diff = -diff
	}
	return !(max > min>>3 && min > max>>3 && diff < d.p.MS150)
}
