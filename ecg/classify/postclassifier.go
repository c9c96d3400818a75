package classify

// maxPrev is the number of preceding beats kept as per-type history.
const maxPrev = 8

// PostClassifier re-labels beats once the following beat has arrived. It is
// more sensitive than the main rule cascade to premature beats followed by
// compensatory pauses.
type PostClassifier struct {
	p Params

	postClass [maxTypes][maxPrev]int
	pcRhythm  [maxTypes][maxPrev]int

	initCount int
	lastRC    int
	lastMI2   float64

	domCompare func(newType, domType int) float64
	typeCount  func(t int) int
}

// NewPostClassifier returns a post classifier. The matcher's type-to-dominant
// comparison and per-type count are injected once the matcher exists.
func NewPostClassifier(p Params) *PostClassifier {
	return &PostClassifier{p: p}
}

// PostClassify records a post classification for the beat before last, given
// the most recent morphology types (recentTypes[0] newest), the dominant
// type, the two most recent RR intervals, the beat width, the similarity of
// this beat to the dominant type, and this beat's rhythm classification.
func (pc *PostClassifier) PostClassify(recentTypes []int, domType int, recentRRs []int, width int, mi2 float64, rhythmClass int) {
	// If the preceding and following beats are the same type, generally
	// regular, and reasonably close in shape to the dominant type, consider
	// them to be dominant.
	if recentTypes[0] == recentTypes[2] && recentTypes[0] != domType && recentTypes[0] != recentTypes[1] {
		mi3 := pc.domCompare(recentTypes[0], domType)
		regCount := 0
		row := minInt(recentTypes[0], maxTypes-1)
		for i := 0; i < maxPrev; i++ {
			if pc.pcRhythm[row][i] == beatNormal {
				regCount++
			}
		}
		if mi3 < 2.0 && regCount > 6 {
			domType = recentTypes[0]
		}
	}

	// Don't do anything until four beats have gone by.
	if pc.initCount < 3 {
		pc.initCount++
		pc.lastMI2 = 0
		pc.lastRC = 0
		return
	}

	if recentTypes[1] < maxTypes {
		prev := recentTypes[1]

		// Find the first interval between two beats of the same type as an
		// estimate of the normal RR interval.
		i := 2
		for ; i < 7 && recentTypes[i] != recentTypes[i+1]; i++ {
		}
		normRR := 0
		if i != 7 {
			normRR = recentRRs[i]
		}

		pvcCount := 0
		for i = 0; i < maxPrev; i++ {
			if pc.postClass[prev][i] == beatPVC {
				pvcCount++
			}
		}

		for i = maxPrev - 1; i > 0; i-- {
			pc.postClass[prev][i] = pc.postClass[prev][i-1]
			pc.pcRhythm[prev][i] = pc.pcRhythm[prev][i-1]
		}

		switch {
		// Premature followed by a compensatory pause with dominant
		// neighbors: post classify as a PVC.
		case normRR-normRR>>3 >= recentRRs[1] && recentRRs[0]-recentRRs[0]>>3 >= normRR &&
			recentTypes[0] == domType && recentTypes[2] == domType && prev != domType:
			pc.postClass[prev][0] = beatPVC

		// Previous two were PVCs (or six of eight) and this one is at least
		// slightly premature.
		case normRR-normRR>>4 > recentRRs[1] && normRR+normRR>>4 < recentRRs[0] &&
			(pc.postClass[prev][1] == beatPVC && pc.postClass[prev][2] == beatPVC || pvcCount >= 6) &&
			recentTypes[0] == domType && recentTypes[2] == domType && prev != domType:
			pc.postClass[prev][0] = beatPVC

		// Dominant neighbors and a beat significantly different from the
		// dominant.
		case recentTypes[0] == domType && recentTypes[2] == domType && pc.lastMI2 > 2.5:
			pc.postClass[prev][0] = beatPVC

		default:
			pc.postClass[prev][0] = beatUnknown
		}

		// Premature followed by a compensatory pause: post classify the
		// rhythm as PVC; otherwise carry the regular rhythm classification.
		if normRR-normRR>>3 > recentRRs[1] && recentRRs[0]-recentRRs[0]>>3 > normRR {
			pc.pcRhythm[prev][0] = beatPVC
		} else {
			pc.pcRhythm[prev][0] = pc.lastRC
		}
	}

	pc.lastMI2 = mi2
	pc.lastRC = rhythmClass
}

// CheckPostClass reports PVC when three of the last four, or six of the last
// eight, beats of the given type were post classified as PVC.
func (pc *PostClassifier) CheckPostClass(t int) int {
	if t == maxTypes {
		return beatUnknown
	}

	pvcs4 := 0
	i := 0
	for ; i < 4; i++ {
		if pc.postClass[t][i] == beatPVC {
			pvcs4++
		}
	}
	pvcs8 := pvcs4
	for ; i < maxPrev; i++ {
		if pc.postClass[t][i] == beatPVC {
			pvcs8++
		}
	}

	if pvcs4 >= 3 || pvcs8 >= 6 {
		return beatPVC
	}
	return beatUnknown
}

// CheckPCRhythm classifies a type's rhythm from its post classification
// history: NORMAL when at least 7 of the usable window were regular, PVC
// when almost none were.
func (pc *PostClassifier) CheckPCRhythm(t int) int {
	if t == maxTypes {
		return beatUnknown
	}

	n := pc.typeCount(t) - 1
	if n > maxPrev {
		n = maxPrev
	}

	normCount := 0
	for i := 0; i < n; i++ {
		if pc.pcRhythm[t][i] == beatNormal {
			normCount++
		}
	}
	if normCount >= 7 {
		return beatNormal
	}
	if (normCount == 0 && n < 4) ||
		(normCount <= 1 && n >= 4 && n < 7) ||
		(normCount <= 2 && n >= 7) {
		return beatPVC
	}
	return beatUnknown
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
