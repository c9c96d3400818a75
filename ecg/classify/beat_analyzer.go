package classify

// isoLimit is the maximum peak-to-peak amplitude of a run that still counts
// as isoelectric.
const isoLimit = 20

// BeatFeatures describes the geometry of one beat buffer. Onset and Offset
// are QRS boundary indices; BeatBegin and BeatEnd are the P-wave onset and
// T-wave offset estimates; IsoLevel is the amplitude of the isoelectric
// segment preceding the QRS; Amp is the QRS peak-to-peak amplitude.
type BeatFeatures struct {
	Onset     int
	Offset    int
	IsoLevel  int
	BeatBegin int
	BeatEnd   int
	Amp       int
}

// BeatAnalyzer estimates QRS onset, offset, isoelectric level, beat
// beginning, beat ending, and amplitude for beat buffers. It is stateless
// apart from its rate-derived windows.
type BeatAnalyzer struct {
	p Params

	isoLength1 int
	isoLength2 int
	infChkN    int
}

// NewBeatAnalyzer returns an analyzer for the given beat-rate parameters.
func NewBeatAnalyzer(p Params) *BeatAnalyzer {
	return &BeatAnalyzer{
		p:          p,
		isoLength1: p.MS50,
		isoLength2: p.MS80,
		infChkN:    p.MS40,
	}
}

// IsoCheck reports whether the first isoLength samples of data vary little
// enough to be considered isoelectric.
func (a *BeatAnalyzer) IsoCheck(data []int, isoLength int) bool {
	max, min := data[0], data[0]
	for i := 1; i < isoLength && i < len(data); i++ {
		if data[i] > max {
			max = data[i]
		} else if data[i] < min {
			min = data[i]
		}
	}
	return max-min < isoLimit
}

// AnalyzeBeat estimates the features of a beat buffer. The buffer is assumed
// to be BeatLength long with the R-wave near FIDMark. Note that BeatBegin and
// BeatEnd are buffer indices, like Onset and Offset: the beat begins
// FIDMark-BeatBegin samples before FIDMark and ends BeatEnd-FIDMark samples
// after it.
func (a *BeatAnalyzer) AnalyzeBeat(beat []int) BeatFeatures {
	var r BeatFeatures
	p := a.p

	// Search back from the fiducial mark for the isoelectric region
	// preceding the QRS complex; retry with a shorter run if none is found.
	var isoStart int
	i := p.FIDMark - a.isoLength2
	for ; i > 0 && !a.IsoCheck(beat[i:], a.isoLength2); i-- {
	}
	if i == 0 {
		for i = p.FIDMark - a.isoLength1; i > 0 && !a.IsoCheck(beat[i:], a.isoLength1); i-- {
		}
		isoStart = i + a.isoLength1 - 1
	} else {
		isoStart = i + a.isoLength2 - 1
	}

	// Search forward from the R-wave for an isoelectric region following the
	// QRS complex.
	for i = p.FIDMark; i < p.BeatLength && !a.IsoCheck(beat[i:], a.isoLength1); i++ {
	}
	isoEnd := i

	// Find the maximum and minimum slopes on the QRS complex.
	i = p.FIDMark - p.MS150
	maxSlope := beat[i] - beat[i-1]
	minSlope := 0
	maxSlopeI, minSlopeI := i, i

	for ; i < p.FIDMark+p.MS150; i++ {
		slope := beat[i] - beat[i-1]
		if slope > maxSlope {
			maxSlope = slope
			maxSlopeI = i
		} else if slope < minSlope {
			minSlope = slope
			minSlopeI = i
		}
	}

	// Use the smaller of max or min slope for search thresholds.
	if maxSlope > -minSlope {
		maxSlope = -minSlope
	} else {
		minSlope = -maxSlope
	}

	if maxSlopeI < minSlopeI {
		// Positive slope first: search back from it for the onset.
		for i = maxSlopeI; i > 0 && beat[i]-beat[i-1] > maxSlope>>2; i-- {
		}
		r.Onset = i - 1

		// Check whether this was just a brief inflection.
		for ; i > 0 && i > r.Onset-a.infChkN && beat[i]-beat[i-1] <= maxSlope>>2; i-- {
		}
		if i > r.Onset-a.infChkN {
			for ; i > 0 && beat[i]-beat[i-1] > maxSlope>>2; i-- {
			}
			r.Onset = i - 1
		}
		i = r.Onset + 1

		// Extend the onset if a large negative slope follows an inflection.
		for ; i > 0 && i > r.Onset-a.infChkN && beat[i-1]-beat[i] < maxSlope>>2; i-- {
		}
		if i > r.Onset-a.infChkN {
			for ; i > 0 && beat[i-1]-beat[i] > maxSlope>>2; i-- {
			}
			r.Onset = i - 1
		}

		// Search forward from the minimum slope point for the offset.
		for i = minSlopeI; i < p.BeatLength && beat[i]-beat[i-1] < minSlope>>2; i++ {
		}
		r.Offset = i

		// Make sure this wasn't just an inflection.
		for ; i < p.BeatLength && i < r.Offset+a.infChkN && beat[i]-beat[i-1] >= minSlope>>2; i++ {
		}
		if i < r.Offset+a.infChkN {
			for ; i < p.BeatLength && beat[i]-beat[i-1] < minSlope>>2; i++ {
			}
			r.Offset = i
		}
		i = r.Offset

		// Check for a significant upslope following the end of the down
		// slope.
		for ; i < p.BeatLength && i < r.Offset+p.MS40 && beat[i-1]-beat[i] > minSlope>>2; i++ {
		}
		if i < r.Offset+p.MS40 {
			for ; i < p.BeatLength && beat[i-1]-beat[i] < minSlope>>2; i++ {
			}
			r.Offset = i

			// One more search motivated by a PVC shape seen in practice.
			for ; i < p.BeatLength && i < r.Offset+p.MS60 && beat[i]-beat[i-1] > minSlope>>2; i++ {
			}
			if i < r.Offset+p.MS60 {
				for ; i < p.BeatLength && beat[i]-beat[i-1] < minSlope>>2; i++ {
				}
				r.Offset = i
			}
		}
	} else {
		// Negative slope first: search back from it for the onset.
		for i = minSlopeI; i > 0 && beat[i]-beat[i-1] < minSlope>>2; i-- {
		}
		r.Onset = i - 1

		// Check whether this was just a brief inflection.
		for ; i > 0 && i > r.Onset-a.infChkN && beat[i]-beat[i-1] >= minSlope>>2; i-- {
		}
		if i > r.Onset-a.infChkN {
			for ; i > 0 && beat[i]-beat[i-1] < minSlope>>2; i-- {
			}
			r.Onset = i - 1
		}
		i = r.Onset + 1

		// Check for a significant positive slope after a turning point.
		for ; i > 0 && i > r.Onset-a.infChkN && beat[i-1]-beat[i] > minSlope>>2; i-- {
		}
		if i > r.Onset-a.infChkN {
			for ; i > 0 && beat[i-1]-beat[i] < minSlope>>2; i-- {
			}
			r.Onset = i - 1
		}

		// Search forward from the maximum slope point for the offset.
		for i = maxSlopeI; i < p.BeatLength && beat[i]-beat[i-1] > maxSlope>>2; i++ {
		}
		r.Offset = i

		// Make sure this wasn't just an inflection.
		for ; i < p.BeatLength && i < r.Offset+a.infChkN && beat[i]-beat[i-1] <= maxSlope>>2; i++ {
		}
		if i < r.Offset+a.infChkN {
			for ; i < p.BeatLength && beat[i]-beat[i-1] > maxSlope>>2; i++ {
			}
			r.Offset = i
		}
		i = r.Offset

		// Check for a significant downslope following the end of the up
		// slope.
		for ; i < p.BeatLength && i < r.Offset+p.MS40 && beat[i-1]-beat[i] < maxSlope>>2; i++ {
		}
		if i < r.Offset+p.MS40 {
			for ; i < p.BeatLength && beat[i-1]-beat[i] > maxSlope>>2; i++ {
			}
			r.Offset = i
		}
	}

	// If the isoelectric search bottomed out at the start of the beat, fall
	// back on the slope-based onset; if the two are close, prefer the
	// isoelectric point.
	if isoStart == a.isoLength1-1 && r.Onset > isoStart {
		isoStart = r.Onset
	} else if r.Onset-isoStart < p.MS50 {
		r.Onset = isoStart
	}

	if isoEnd-r.Offset < p.MS50 {
		r.Offset = isoEnd
	}

	r.IsoLevel = beat[isoStart]

	// Find the maximum and minimum values in the QRS.
	maxV, minV := beat[r.Onset], beat[r.Onset]
	for i = r.Onset; i < r.Offset; i++ {
		if beat[i] > maxV {
			maxV = beat[i]
		} else if beat[i] < minV {
			minV = beat[i]
		}
	}

	// If the offset sits significantly below the onset on a negative slope,
	// add the following up slope to the width.
	if beat[r.Onset]-beat[r.Offset] > (maxV-minV)>>2+(maxV-minV)>>3 {
		maxSlopeI = r.Offset
		maxSlope = beat[r.Offset] - beat[r.Offset-1]
		for i = r.Offset; i < r.Offset+p.MS100 && i < p.BeatLength; i++ {
			slope := beat[i] - beat[i-1]
			if slope > maxSlope {
				maxSlope = slope
				maxSlopeI = i
			}
		}

		if maxSlope > 0 {
			for i = maxSlopeI; i < p.BeatLength && beat[i]-beat[i-1] > maxSlope>>1; i++ {
			}
			r.Offset = i
		}
	}

	// Search for an isoelectric region preceding the R-wave by at least
	// 250 ms for the beginning of the beat.
	for i = p.FIDMark - p.MS250; i > p.MS80 && !a.IsoCheck(beat[i-p.MS80:], p.MS80); i-- {
	}
	r.BeatBegin = i

	// If there was an isoelectric section 250 ms before the R-wave, search
	// forward for the isoelectric region closest to the R-wave, but leave at
	// least 50 ms between beat begin and onset so normal beat onsets stay
	// outside PVC QRS complexes (which would throw off noise estimation).
	if r.BeatBegin == p.FIDMark-p.MS250 {
		for ; i < r.Onset-p.MS50 && a.IsoCheck(beat[i-p.MS80:], p.MS80); i++ {
		}
		r.BeatBegin = i - 1
	} else if r.BeatBegin == p.MS80 {
		for ; i < r.Onset && !a.IsoCheck(beat[i-p.MS80:], p.MS80); i++ {
		}
		if i < r.Onset {
			for ; i < r.Onset && a.IsoCheck(beat[i-p.MS80:], p.MS80); i++ {
			}
			if i < r.Onset {
				r.BeatBegin = i - 1
			}
		}
	}

	// The end of the beat is the first isoelectric segment that follows the
	// R-wave by at least 300 ms.
	for i = p.FIDMark + p.MS300; i < p.BeatLength && !a.IsoCheck(beat[i:], p.MS80); i++ {
	}
	r.BeatEnd = i

	maxV, minV = beat[r.Onset], beat[r.Onset]
	for i = r.Onset; i < r.Offset; i++ {
		if beat[i] > maxV {
			maxV = beat[i]
		} else if beat[i] < minV {
			minV = beat[i]
		}
	}
	r.Amp = maxV - minV

	return r
}
