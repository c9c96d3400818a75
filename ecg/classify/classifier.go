package classify

import "github.com/cwbudde/algo-ecg/ecg/qrs"

// Detection rule parameters.
const (
	// matchLimit is the template match threshold without amplitude
	// sensitivity.
	matchLimit = 1.3
	// matchWithAmpLimit is the threshold for the amplitude-sensitive match
	// index.
	matchWithAmpLimit = 2.5
	// pvcMatchWithAmpLimit is the amplitude-sensitive limit for matching
	// premature beats.
	pvcMatchWithAmpLimit = 0.9
	// blShiftLimit is the isoelectric level change above which a baseline
	// shift is assumed.
	blShiftLimit = 100
	// newTypeNoiseThreshold and newTypeHFNoiseLimit suppress new beat types
	// above these noise levels.
	newTypeNoiseThreshold = 18
	newTypeHFNoiseLimit   = 75
	// matchNoiseThreshold is the match index below which noise indications
	// are ignored.
	matchNoiseThreshold = 0.7
)

// Rule cascade thresholds (similarity indexes and counts; width thresholds
// are rate-derived).
const (
	r2DIThreshold  = 1.0
	r7DIThreshold  = 1.2
	r8DIThreshold  = 1.5
	r9DIThreshold  = 2.0
	r10BCLim       = 3
	r10DIThreshold = 2.5
	r11HFThreshold = 45
	r11MAThreshold = 14
	r11BCLim       = 1
	r15DIThreshold = 3.5
	r18DIThreshold = 1.5
	r19HFThreshold = 75
)

// Dominant monitor constants.
const (
	dmBufferLength = 180
	irregRRLimit   = 60
)

// Result is one beat's classification: the beat class (NORMAL, PVC, or
// UNKNOWN), the index of the template the beat matched, and the fiducial
// mark adjustment derived from the matched template's center.
type Result struct {
	Class     int
	BeatMatch int
	FidAdj    int
}

// Classifier labels beats by combining template matching, rhythm analysis,
// post classification, and a monitor of the dominant morphology.
type Classifier struct {
	p  Params
	qp qrs.Params

	matcher  *Matcher
	rhythm   *RhythmChecker
	post     *PostClassifier
	analyzer *BeatAnalyzer

	r3WidthThreshold  int
	r11MinWidth       int
	r11WidthBreak     int
	r11WidthDiff1     int
	r11WidthDiff2     int
	r15WidthThreshold int
	r16WidthThreshold int
	r17WidthDelta     int
	aveLength         int

	recentRRs   [8]int
	recentTypes [8]int

	morphType       int
	runCount        int
	lastIsoLevel    int
	lastRhythmClass int
	lastBeatWasNew  bool
	brIndex         int

	dmBeatTypes   [dmBufferLength]int
	dmBeatClasses [dmBufferLength]int
	dmBeatRhythms [dmBufferLength]int
	dmNormCounts  [maxTypes]int
	dmBeatCounts  [maxTypes]int
	dmIrregCount  int
}

// New builds a classifier with its matcher, rhythm checker, post classifier,
// and beat analyzer wired together.
func New(p Params, qp qrs.Params) *Classifier {
	c := &Classifier{
		p:                 p,
		qp:                qp,
		r3WidthThreshold:  p.MS90,
		r11MinWidth:       p.MS110,
		r11WidthBreak:     p.MS140,
		r11WidthDiff1:     p.MS40,
		r11WidthDiff2:     p.MS60,
		r15WidthThreshold: p.MS100,
		r16WidthThreshold: p.MS100,
		r17WidthDelta:     p.MS20,
		aveLength:         p.MS50,
		lastRhythmClass:   beatUnknown,
	}
	for i := range c.dmBeatTypes {
		c.dmBeatTypes[i] = -1
	}
	// Start the beat-type history with no beat type, so the run length of the
	// first beats counts only beats actually seen.
	for i := range c.recentTypes {
		c.recentTypes[i] = maxTypes
	}

	c.analyzer = NewBeatAnalyzer(p)
	c.post = NewPostClassifier(p)
	c.matcher = NewMatcher(p, c.analyzer, c.post)
	c.rhythm = NewRhythmChecker(qp)

	c.matcher.adjustDomData = c.adjustDomData
	c.matcher.combineDomData = c.combineDomData
	c.post.domCompare = c.matcher.DomCompare
	c.post.typeCount = c.matcher.BeatTypeCount

	return c
}

// Matcher exposes the template bank for orchestration and inspection.
func (c *Classifier) Matcher() *Matcher { return c.matcher }

// Rhythm exposes the rhythm checker.
func (c *Classifier) Rhythm() *RhythmChecker { return c.rhythm }

// PostClassifier exposes the post classifier.
func (c *Classifier) PostClassifier() *PostClassifier { return c.post }

// Analyzer exposes the beat analyzer.
func (c *Classifier) Analyzer() *BeatAnalyzer { return c.analyzer }

// Classify takes a beat buffer, the preceding RR interval, and the present
// noise level estimate and returns the beat classification. The beat buffer
// is re-leveled in place so its isoelectric segment sits at zero.
func (c *Classifier) Classify(newBeat []int, rr, noiseLevel int) Result {
	var result Result

	hfNoise := c.hfNoiseCheck(newBeat)
	rhythmClass := c.rhythm.RhythmChk(rr)

	features := c.analyzer.AnalyzeBeat(newBeat)

	blShift := absInt(c.lastIsoLevel - features.IsoLevel)
	c.lastIsoLevel = features.IsoLevel

	// Make the isoelectric level 0.
	for i := 0; i < c.p.BeatLength; i++ {
		newBeat[i] -= features.IsoLevel
	}

	// If there was a significant baseline shift since the last beat and the
	// last beat was a new type, delete the new type because it might have
	// resulted from the baseline shift.
	if blShift > blShiftLimit && c.lastBeatWasNew && c.lastRhythmClass == beatNormal && rhythmClass == beatNormal {
		c.matcher.ClearLastNewType()
	}
	c.lastBeatWasNew = false

	match := c.matcher.BestMorphMatch(newBeat)
	c.morphType = match.MatchType

	// Disregard noise if the match is good.
	if match.MatchIndex < matchNoiseThreshold {
		hfNoise, noiseLevel, blShift = 0, 0, 0
	}

	switch {
	// Apply a stricter match limit to premature beats.
	case match.MatchIndex < matchLimit && rhythmClass == beatPVC &&
		c.matcher.MinimumBeatVariation(c.morphType) && match.MI2 > pvcMatchWithAmpLimit:
		c.morphType = c.matcher.NewBeatType(newBeat)
		c.lastBeatWasNew = true

	// Match if within standard match limits.
	case match.MatchIndex < matchLimit && match.MI2 <= matchWithAmpLimit:
		c.matcher.UpdateBeatType(c.morphType, newBeat, match.MI2, match.ShiftAdj)

	// If the beat isn't noisy but doesn't match, start a new type.
	case blShift < blShiftLimit && noiseLevel < newTypeNoiseThreshold && hfNoise < newTypeHFNoiseLimit:
		c.morphType = c.matcher.NewBeatType(newBeat)
		c.lastBeatWasNew = true

	// Even if it is noisy, start a new type if the beat was irregular.
	case c.lastRhythmClass != beatNormal || rhythmClass != beatNormal:
		c.morphType = c.matcher.NewBeatType(newBeat)
		c.lastBeatWasNew = true

	// Noisy and regular: don't waste template space.
	default:
		c.morphType = maxTypes
	}

	for i := 7; i > 0; i-- {
		c.recentRRs[i] = c.recentRRs[i-1]
		c.recentTypes[i] = c.recentTypes[i-1]
	}
	c.recentRRs[0] = rr
	c.recentTypes[0] = c.morphType

	c.lastRhythmClass = rhythmClass

	// Fetch the features needed for classification, from the average beat
	// when it matched, otherwise from this beat.
	var beatClass, beatWidth int
	if c.morphType != maxTypes {
		beatClass = c.matcher.BeatClass(c.morphType)
		beatWidth = c.matcher.BeatWidth(c.morphType)
		result.FidAdj = c.matcher.BeatCenter(c.morphType) - c.p.FIDMark

		// If the width seems large and there have only been a few beats of
		// this type, use the actual beat for the width estimate.
		if beatWidth > features.Offset-features.Onset && c.matcher.BeatTypeCount(c.morphType) <= 4 {
			beatWidth = features.Offset - features.Onset
			result.FidAdj = (features.Offset+features.Onset)/2 - c.p.FIDMark
		}
	} else {
		beatWidth = features.Offset - features.Onset
		beatClass = beatUnknown
		result.FidAdj = (features.Offset+features.Onset)/2 - c.p.FIDMark
	}

	domType := c.domMonitor(c.morphType, rhythmClass, beatWidth, rr)
	domWidth := c.matcher.BeatWidth(domType)

	// Compare the beat type, or the actual beat, to the dominant type.
	var domIndex float64
	switch {
	case c.morphType != domType && c.morphType != maxTypes:
		domIndex = c.matcher.DomCompare(c.morphType, domType)
	case c.morphType == maxTypes:
		domIndex = c.matcher.DomCompare2(newBeat, domType)
	default:
		domIndex = match.MatchIndex
	}

	c.post.PostClassify(c.recentTypes[:], domType, c.recentRRs[:], beatWidth, domIndex, rhythmClass)

	tempClass := c.tempClass(rhythmClass, c.morphType, beatWidth, domWidth, domType, hfNoise, noiseLevel, blShift, domIndex)

	// If this morphology has not been classified yet, attempt to classify it
	// from run lengths.
	if beatClass == beatUnknown && c.morphType < maxTypes {
		c.runCount = c.getRunCount()

		switch {
		// Three in a row of a not-too-wide morphology are NORMAL. The width
		// criterion keeps ventricular beats from being classified as normal
		// during ventricular tachycardia.
		case c.runCount >= 3 && domType != -1 && beatWidth < domWidth+c.p.MS20:
			c.matcher.SetBeatClass(c.morphType, beatNormal)

		// With no dominant type established yet, six in a row are NORMAL.
		case c.runCount >= 6 && domType == -1:
			c.matcher.SetBeatClass(c.morphType, beatNormal)

		// During bigeminy, classify premature beats as ventricular unless
		// they are narrow.
		case c.rhythm.IsBigeminy():
			if rhythmClass == beatPVC && beatWidth > c.p.MS100 {
				c.matcher.SetBeatClass(c.morphType, beatPVC)
			} else if rhythmClass == beatNormal {
				c.matcher.SetBeatClass(c.morphType, beatNormal)
			}
		}
	}

	result.BeatMatch = c.morphType

	beatClass = c.matcher.BeatClass(c.morphType)

	// A persistent morphology classification wins; then post classification;
	// then the rule cascade's verdict.
	if beatClass != beatUnknown {
		result.Class = beatClass
		return result
	}
	if c.post.CheckPostClass(c.morphType) == beatPVC {
		result.Class = beatPVC
		return result
	}
	result.Class = tempClass
	return result
}

// hfNoiseCheck gauges muscle noise in a beat as the maximum five-sample
// average of the second difference within ±280 ms of the R-wave, excluding
// the QRS itself (-50 ms to +110 ms), as a ratio to the QRS amplitude.
func (c *Classifier) hfNoiseCheck(beat []int) int {
	maxNoiseAve := 0
	sum := 0
	aveBuff := make([]int, c.aveLength)
	avePtr := 0
	qrsMax, qrsMin := 0, 0

	for i := c.p.FIDMark - c.p.MS70; i < c.p.FIDMark+c.p.MS80; i++ {
		if beat[i] > qrsMax {
			qrsMax = beat[i]
		} else if beat[i] < qrsMin {
			qrsMin = beat[i]
		}
	}

	for i := c.p.FIDMark - c.p.MS280; i < c.p.FIDMark+c.p.MS280; i++ {
		sum -= aveBuff[avePtr]
		aveBuff[avePtr] = absInt(beat[i] - beat[i-c.p.MS10]<<1 + beat[i-2*c.p.MS10])
		sum += aveBuff[avePtr]
		if avePtr++; avePtr == c.aveLength {
			avePtr = 0
		}
		if i < c.p.FIDMark-c.p.MS50 || i > c.p.FIDMark+c.p.MS110 {
			if sum > maxNoiseAve {
				maxNoiseAve = sum
			}
		}
	}

	if qrsMax-qrsMin >= 4 {
		return maxNoiseAve * (50 / c.aveLength) / ((qrsMax - qrsMin) >> 2)
	}
	return 0
}

// tempClass classifies a beat from its features relative to the dominant
// beat and the present noise level. Rules short-circuit top to bottom.
func (c *Classifier) tempClass(rhythmClass, morphType, beatWidth, domWidth, domType, hfNoise, noiseLevel, blShift int, domIndex float64) int {
	// Rule 1: with no dominant type detected, classify all beats UNKNOWN.
	if domType < 0 {
		return beatUnknown
	}

	// Rule 2: a premature beat that looks sufficiently different from a
	// stable dominant type under a regular dominant rhythm is a PVC.
	if c.matcher.MinimumBeatVariation(domType) && rhythmClass == beatPVC &&
		domIndex > r2DIThreshold && c.domRhythmRegular() {
		return beatPVC
	}

	// Rule 3: sufficiently narrow beats are normal.
	if beatWidth < c.r3WidthThreshold {
		return beatNormal
	}

	// Rule 5: a beat matching no stored morphology that is not premature is
	// probably noisy; call it normal.
	if morphType == maxTypes && rhythmClass != beatPVC {
		return beatNormal
	}

	// Rule 6: a full bank, a single occurrence, and an unknown rhythm also
	// suggest noise.
	if c.matcher.TypesCount() == maxTypes && c.matcher.BeatTypeCount(morphType) == 1 && rhythmClass == beatUnknown {
		return beatNormal
	}

	// Rule 7: looks like the dominant beat and the rhythm is regular.
	if domIndex < r7DIThreshold && rhythmClass == beatNormal {
		return beatNormal
	}

	// Rule 8: post classification rhythm is normal for this type and the
	// shape is close to dominant.
	if domIndex < r8DIThreshold && c.post.CheckPCRhythm(morphType) == beatNormal {
		return beatNormal
	}

	// Rule 9: not premature, similar to a dominant type that is itself
	// variable (noisy).
	if domIndex < r9DIThreshold && rhythmClass != beatPVC && c.matcher.WideBeatVariation(domType) {
		return beatNormal
	}

	// Rule 10: significantly different from the dominant, previously
	// matched, post rhythm PVC, dominant rhythm regular.
	if domIndex > r10DIThreshold && c.matcher.BeatTypeCount(morphType) >= r10BCLim &&
		c.post.CheckPCRhythm(morphType) == beatPVC && c.domRhythmRegular() {
		return beatPVC
	}

	// Rule 11: wide, wider than the dominant beat, not noisy, and matching a
	// previous type.
	if beatWidth >= c.r11MinWidth &&
		((beatWidth-domWidth >= c.r11WidthDiff1 && domWidth < c.r11WidthBreak) ||
			beatWidth-domWidth >= c.r11WidthDiff2) &&
		hfNoise < r11HFThreshold && noiseLevel < r11MAThreshold && blShift < blShiftLimit &&
		morphType < maxTypes && c.matcher.BeatTypeCount(morphType) > r11BCLim {
		return beatPVC
	}

	// Rule 12: premature under a regular dominant rhythm.
	if rhythmClass == beatPVC && c.domRhythmRegular() {
		return beatPVC
	}

	// Rule 14: regular beat under a regular dominant rhythm.
	if rhythmClass == beatNormal && c.domRhythmRegular() {
		return beatNormal
	}

	// Beyond this point rhythm will not help; classify on width and
	// similarity to the dominant type.

	// Rule 15: wider than normal, wide on an absolute scale, significantly
	// different from the dominant.
	if beatWidth > domWidth && domIndex > r15DIThreshold && beatWidth >= c.r15WidthThreshold {
		return beatPVC
	}

	// Rule 16: sufficiently narrow.
	if beatWidth < c.r16WidthThreshold {
		return beatNormal
	}

	// Rule 17: not much wider than the dominant beat.
	if beatWidth < domWidth+c.r17WidthDelta {
		return beatNormal
	}

	// Rule 18: similar to the dominant beat.
	if domIndex < r18DIThreshold {
		return beatNormal
	}

	// Rule 19: too noisy to trust the width estimate, and no useful rhythm
	// information; guess normal.
	if hfNoise > r19HFThreshold {
		return beatNormal
	}

	// Rule 20: not narrow, not similar to the dominant, no rhythm help.
	return beatPVC
}

// domMonitor tracks which beat morphology is dominant: the morphology most
// frequently classified as normal over the last dmBufferLength beats. It
// returns the dominant type, or -1 when none is established.
func (c *Classifier) domMonitor(morphType, rhythmClass, beatWidth, rr int) int {
	// Fetch the type of the beat before the last beat.
	i := c.brIndex - 2
	if i < 0 {
		i += dmBufferLength
	}
	oldType := c.dmBeatTypes[i]

	// Once the buffer has wrapped, subtract outgoing beats from the counts.
	if c.dmBeatTypes[c.brIndex] != -1 && c.dmBeatTypes[c.brIndex] != maxTypes {
		c.dmBeatCounts[c.dmBeatTypes[c.brIndex]]--
		c.dmNormCounts[c.dmBeatTypes[c.brIndex]] -= c.dmBeatClasses[c.brIndex]
		if c.dmBeatRhythms[c.brIndex] == beatUnknown {
			c.dmIrregCount--
		}
	}

	if morphType != maxTypes {
		c.dmBeatTypes[c.brIndex] = morphType
		c.dmBeatCounts[morphType]++
		c.dmBeatRhythms[c.brIndex] = rhythmClass

		if rhythmClass == beatUnknown {
			c.dmIrregCount++
		}

		// Count how many beats of this type occurred in a row (stop at six).
		i = c.brIndex - 1
		if i < 0 {
			i += dmBufferLength
		}
		runCount := 0
		for ; c.dmBeatTypes[i] == morphType && runCount < 6; runCount++ {
			if i--; i < 0 {
				i += dmBufferLength
			}
		}

		switch {
		// A regular, narrow beat with at least two in a row seems normal.
		case rhythmClass == beatNormal && beatWidth < c.p.MS130 && runCount >= 1:
			c.dmBeatClasses[c.brIndex] = 1
			c.dmNormCounts[morphType]++

		// If the last beat fell within this type's normal P-R interval and
		// the one before was this type, assume the last beat was noise and
		// this one is normal.
		case rr < (c.p.FIDMark-c.matcher.BeatBegin(morphType))*c.qp.SampleRate/c.p.BeatSampleRate && oldType == morphType:
			c.dmBeatClasses[c.brIndex] = 1
			c.dmNormCounts[morphType]++

		default:
			c.dmBeatClasses[c.brIndex] = 0
		}
	} else {
		c.dmBeatClasses[c.brIndex] = 0
		c.dmBeatTypes[c.brIndex] = -1
	}

	if c.brIndex++; c.brIndex == dmBufferLength {
		c.brIndex = 0
	}

	// Determine which beat type has the most beats that seem normal.
	dom := 0
	for i = 1; i < maxTypes; i++ {
		if c.dmNormCounts[i] > c.dmNormCounts[dom] {
			dom = i
		}
	}

	max := 0
	for i = 1; i < maxTypes; i++ {
		if c.dmBeatCounts[i] > c.dmBeatCounts[max] {
			max = i
		}
	}

	// With no normal looking beats, or if another type heavily outnumbers
	// the normal-looking one, fall back on overall frequency since
	// classification began; likewise when at least half of the most
	// frequent normal type does not seem normal.
	if c.dmNormCounts[dom] == 0 || c.dmBeatCounts[max]/c.dmBeatCounts[dom] >= 2 {
		dom = c.matcher.DominantType()
	} else if c.dmBeatCounts[dom]/c.dmNormCounts[dom] >= 2 {
		dom = c.matcher.DominantType()
	}

	// Reclassify to UNKNOWN any type classified as normal whose beats have
	// stopped seeming normal.
	for i = 0; i < maxTypes; i++ {
		if c.dmBeatCounts[i] > 10 && c.dmNormCounts[i] == 0 && i != dom && c.matcher.BeatClass(i) == beatNormal {
			c.matcher.SetBeatClass(i, beatUnknown)
		}
	}

	return dom
}

// domRhythmRegular reports whether the dominant rhythm counts as regular: at
// most 60 of the last 180 beats had UNKNOWN rhythm (at least two thirds
// classifiable).
func (c *Classifier) domRhythmRegular() bool {
	return c.dmIrregCount <= irregRRLimit
}

// adjustDomData rewrites dominant-monitor history when a template moves
// slots (or is evicted, newType == MaxTypes).
func (c *Classifier) adjustDomData(oldType, newType int) {
	for i := 0; i < dmBufferLength; i++ {
		if c.dmBeatTypes[i] == oldType {
			c.dmBeatTypes[i] = newType
		}
	}

	if newType != maxTypes {
		c.dmNormCounts[newType] = c.dmNormCounts[oldType]
		c.dmBeatCounts[newType] = c.dmBeatCounts[oldType]
	}

	c.dmNormCounts[oldType] = 0
	c.dmBeatCounts[oldType] = 0
}

// combineDomData merges dominant-monitor history when two templates are
// combined.
func (c *Classifier) combineDomData(oldType, newType int) {
	for i := 0; i < dmBufferLength; i++ {
		if c.dmBeatTypes[i] == oldType {
			c.dmBeatTypes[i] = newType
		}
	}

	if newType != maxTypes {
		c.dmNormCounts[newType] += c.dmNormCounts[oldType]
		c.dmBeatCounts[newType] += c.dmBeatCounts[oldType]
	}

	c.dmNormCounts[oldType] = 0
	c.dmBeatCounts[oldType] = 0
}

// getRunCount checks how many of the present beat type occurred in a row.
func (c *Classifier) getRunCount() int {
	i := 1
	for ; i < 8 && c.recentTypes[0] == c.recentTypes[i]; i++ {
	}
	return i
}
