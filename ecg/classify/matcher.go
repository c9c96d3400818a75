package classify

import "math"

// Template bank limits.
const (
	// matchLimitCombine tests whether two beat types might be combined.
	matchLimitCombine = 1.2
	// combineLimit decides whether two types close to the same beat can be
	// merged into one.
	combineLimit = 0.8
	// wideVarLimit is the average similarity index above which a type is
	// considered to have wide variation.
	wideVarLimit = 0.50
)

// Matcher manages template matching of beats and the feature data associated
// with each beat type. Beats are matched to previously detected beat types
// point by point in a match window centered on the fiducial mark.
type Matcher struct {
	p        Params
	analyzer *BeatAnalyzer
	post     *PostClassifier

	// Dominant-monitor bookkeeping lives with the classifier; the matcher
	// reports template moves and merges through these callbacks.
	adjustDomData  func(oldType, newType int)
	combineDomData func(oldType, newType int)

	matchLength int
	matchStart  int
	matchEnd    int
	maxShift    int

	templates       [maxTypes][]int
	counts          [maxTypes]int
	widths          [maxTypes]int
	classifications [maxTypes]int
	begins          [maxTypes]int
	ends            [maxTypes]int
	sinceLastMatch  [maxTypes]int
	amps            [maxTypes]int
	centers         [maxTypes]int
	mis             [maxTypes][maxPrev]float64

	typeCount int
}

// NewMatcher returns a template bank over the given beat-rate parameters.
func NewMatcher(p Params, analyzer *BeatAnalyzer, post *PostClassifier) *Matcher {
	m := &Matcher{
		p:           p,
		analyzer:    analyzer,
		post:        post,
		matchLength: p.MS300,
		maxShift:    p.MS40,
	}
	m.matchStart = p.FIDMark - m.matchLength/2
	m.matchEnd = p.FIDMark + m.matchLength/2
	for i := range m.templates {
		m.templates[i] = make([]int, p.BeatLength)
		m.classifications[i] = beatUnknown
	}
	return m
}

// MatchResult reports the best morphology match for a beat.
type MatchResult struct {
	MatchType  int
	MatchIndex float64
	MI2        float64
	ShiftAdj   int
}

type compareResult struct {
	metric   float64
	shiftAdj int
}

func peakToPeak(beat []int, start, end int) (max, min int) {
	max, min = beat[start], beat[start]
	for i := start + 1; i < end; i++ {
		if beat[i] > max {
			max = beat[i]
		} else if beat[i] < min {
			min = beat[i]
		}
	}
	return max, min
}

// compareBeats measures how well two beats match point by point. beat2 is
// shifted and scaled to produce the closest possible match; the metric is
// the sum of absolute differences divided by twice beat1's amplitude, normalized
// to the 30-point match length the algorithm was originally tuned with.
func (m *Matcher) compareBeats(beat1, beat2 []int) compareResult {
	max, min := peakToPeak(beat1, m.matchStart, m.matchEnd)
	magSum := max - min

	max, min = peakToPeak(beat2, m.matchStart, m.matchEnd)
	scaleFactor := float64(magSum) / float64(max-min)
	magSum *= 2

	var minDiff, minShift int64
	for shift := -m.maxShift; shift <= m.maxShift; shift++ {
		var meanDiff int64
		for i := m.p.FIDMark - m.matchLength>>1; i < m.p.FIDMark+m.matchLength>>1; i++ {
			tempD := float64(beat2[i+shift]) * scaleFactor
			meanDiff = int64(float64(meanDiff) + (float64(beat1[i]) - tempD))
		}
		meanDiff /= int64(m.matchLength)

		var beatDiff int64
		for i := m.p.FIDMark - m.matchLength>>1; i < m.p.FIDMark+m.matchLength>>1; i++ {
			tempD := float64(beat2[i+shift]) * scaleFactor
			beatDiff = int64(float64(beatDiff) + math.Abs(float64(int64(beat1[i])-meanDiff)-tempD))
		}

		if shift == -m.maxShift || beatDiff < minDiff {
			minDiff = beatDiff
			minShift = int64(shift)
		}
	}

	metric := float64(minDiff) / float64(magSum)
	metric *= 30
	metric /= float64(m.matchLength)
	return compareResult{metric: metric, shiftAdj: int(minShift)}
}

// compareBeats2 is compareBeats without amplitude scaling; the metric is the
// sum of absolute differences divided by the sum of the amplitudes of the two
// beats.
func (m *Matcher) compareBeats2(beat1, beat2 []int) compareResult {
	max, min := peakToPeak(beat1, m.matchStart, m.matchEnd)
	mag1 := max - min

	max, min = peakToPeak(beat2, m.matchStart, m.matchEnd)
	mag2 := max - min

	var minDiff, minShift int64
	for shift := -m.maxShift; shift <= m.maxShift; shift++ {
		var meanDiff int64
		for i := m.p.FIDMark - m.matchLength>>1; i < m.p.FIDMark+m.matchLength>>1; i++ {
			meanDiff += int64(beat1[i] - beat2[i+shift])
		}
		meanDiff /= int64(m.matchLength)

		var beatDiff int64
		for i := m.p.FIDMark - m.matchLength>>1; i < m.p.FIDMark+m.matchLength>>1; i++ {
			d := int64(beat1[i]) - meanDiff - int64(beat2[i+shift])
			if d < 0 {
				d = -d
			}
			beatDiff += d
		}

		if shift == -m.maxShift || beatDiff < minDiff {
			minDiff = beatDiff
			minShift = int64(shift)
		}
	}

	metric := float64(minDiff) / float64(mag1+mag2)
	metric *= 30
	metric /= float64(m.matchLength)
	return compareResult{metric: metric, shiftAdj: int(minShift)}
}

// updateBeat averages a new beat into an average beat template by adding
// 1/8th of the new beat to 7/8ths of the average beat.
func (m *Matcher) updateBeat(aveBeat, newBeat []int, shift int) {
	for i := 0; i < m.p.BeatLength; i++ {
		if i+shift >= 0 && i+shift < m.p.BeatLength {
			t := int64(aveBeat[i])
			t *= 7
			t += int64(newBeat[i+shift])
			t >>= 3
			aveBeat[i] = int(t)
		}
	}
}

// TypesCount returns the number of beat types in the bank.
func (m *Matcher) TypesCount() int { return m.typeCount }

// BeatTypeCount returns how many beats of a particular type have occurred.
func (m *Matcher) BeatTypeCount(t int) int { return m.counts[t] }

// BeatWidth returns the QRS width estimate for a beat type.
func (m *Matcher) BeatWidth(t int) int { return m.widths[maxInt(t, 0)] }

// BeatCenter returns the midpoint between the onset and offset of a type.
func (m *Matcher) BeatCenter(t int) int { return m.centers[t] }

// BeatClass returns the present classification for a beat type; the pseudo
// type MaxTypes is always UNKNOWN.
func (m *Matcher) BeatClass(t int) int {
	if t == maxTypes {
		return beatUnknown
	}
	return m.classifications[t]
}

// SetBeatClass sets the classification for a beat type.
func (m *Matcher) SetBeatClass(t, beatClass int) { m.classifications[t] = beatClass }

// BeatBegin returns the buffer index of the beginning of the beat (P-wave
// onset if one was found); it lies before FIDMark.
func (m *Matcher) BeatBegin(t int) int { return m.begins[t] }

// BeatEnd returns the buffer index of the end of the beat (T-wave offset);
// it lies after FIDMark.
func (m *Matcher) BeatEnd(t int) int { return m.ends[t] }

// NewBeatType stores newBeat and its features as the next available beat
// type, evicting the least frequent (stalest on ties) type when the bank is
// full, and returns the slot used.
func (m *Matcher) NewBeatType(newBeat []int) int {
	for i := 0; i < m.typeCount; i++ {
		m.sinceLastMatch[i]++
	}

	if m.typeCount < maxTypes {
		t := m.typeCount
		copy(m.templates[t], newBeat)
		m.counts[t] = 1
		m.classifications[t] = beatUnknown
		m.storeFeatures(t)
		m.sinceLastMatch[t] = 0
		m.typeCount++
		return t
	}

	// The template space is used up: replace the beat type that has occurred
	// the fewest number of times, preferring the stalest on ties.
	mcType := 0
	for i := 1; i < maxTypes; i++ {
		if m.counts[i] < m.counts[mcType] {
			mcType = i
		} else if m.counts[i] == m.counts[mcType] {
			if m.sinceLastMatch[i] > m.sinceLastMatch[mcType] {
				mcType = i
			}
		}
	}

	// Retire the evicted type's dominant-monitor history.
	m.adjustDomData(mcType, maxTypes)

	copy(m.templates[mcType], newBeat)
	m.counts[mcType] = 1
	m.classifications[mcType] = beatUnknown
	m.storeFeatures(mcType)
	m.sinceLastMatch[mcType] = 0
	return mcType
}

func (m *Matcher) storeFeatures(t int) {
	f := m.analyzer.AnalyzeBeat(m.templates[t])
	m.widths[t] = f.Offset - f.Onset
	m.centers[t] = (f.Offset + f.Onset) / 2
	m.begins[t] = f.BeatBegin
	m.ends[t] = f.BeatEnd
	m.amps[t] = f.Amp
}

// BestMorphMatch tests a new beat against all stored beat types and returns
// the best match, its scaled and unscaled match metrics, and the shift used.
// When the beat falls close to two templates, the unscaled metric breaks the
// tie, and sufficiently similar templates are merged.
func (m *Matcher) BestMorphMatch(newBeat []int) MatchResult {
	if m.typeCount == 0 {
		// Guarantee no match so a new type gets created.
		return MatchResult{MatchType: 0, MatchIndex: 1000, ShiftAdj: 0}
	}

	var bestMatch, nextBest, minShift int
	var minDiff float64
	nextDiff := 10000.0
	var mi2 float64

	for t := 0; t < m.typeCount; t++ {
		cr := m.compareBeats(m.templates[t], newBeat)
		switch {
		case t == 0:
			bestMatch = 0
			minDiff = cr.metric
			minShift = cr.shiftAdj
		case cr.metric < minDiff:
			nextBest = bestMatch
			nextDiff = minDiff
			bestMatch = t
			minDiff = cr.metric
			minShift = cr.shiftAdj
		case m.typeCount > 1 && t == 1:
			nextBest = t
			nextDiff = cr.metric
		case cr.metric < nextDiff:
			nextBest = t
			nextDiff = cr.metric
		}
	}

	// If this beat was close to two different templates, decide which is the
	// better match without scaling, then check whether the two types can be
	// combined.
	if minDiff < matchLimitCombine && nextDiff < matchLimitCombine && m.typeCount > 1 {
		bestDiff2 := m.compareBeats2(m.templates[bestMatch], newBeat).metric
		cr2 := m.compareBeats2(m.templates[nextBest], newBeat)
		nextDiff2 := cr2.metric
		if nextDiff2 < bestDiff2 {
			bestMatch, nextBest = nextBest, bestMatch
			truncated := int(minDiff)
			minDiff = nextDiff
			nextDiff = float64(truncated)
			minShift = cr2.shiftAdj
			mi2 = bestDiff2
		} else {
			mi2 = nextDiff2
		}

		cr := m.compareBeats(m.templates[bestMatch], m.templates[nextBest])

		if cr.metric < combineLimit && (mi2 < 1.0 || !m.MinimumBeatVariation(nextBest)) {
			shift := cr.shiftAdj
			if bestMatch < nextBest {
				for i := 0; i < m.p.BeatLength; i++ {
					if i+shift > 0 && i+shift < m.p.BeatLength {
						m.templates[bestMatch][i] += m.templates[nextBest][i+shift]
						m.templates[bestMatch][i] >>= 1
					}
				}

				m.mergeClassifications(bestMatch, nextBest)
				m.counts[bestMatch] += m.counts[nextBest]
				m.combineDomData(nextBest, bestMatch)

				for t := nextBest; t < m.typeCount-1; t++ {
					m.beatCopy(t+1, t)
				}
			} else {
				for i := 0; i < m.p.BeatLength; i++ {
					m.templates[nextBest][i] += m.templates[bestMatch][i]
					m.templates[nextBest][i] >>= 1
				}

				m.mergeClassifications(nextBest, bestMatch)
				m.counts[nextBest] += m.counts[bestMatch]
				m.combineDomData(bestMatch, nextBest)

				for t := bestMatch; t < m.typeCount-1; t++ {
					m.beatCopy(t+1, t)
				}

				bestMatch = nextBest
			}
			m.typeCount--
			m.classifications[m.typeCount] = beatUnknown
		}
	}

	mi2 = m.compareBeats2(m.templates[bestMatch], newBeat).metric
	return MatchResult{MatchType: bestMatch, MatchIndex: minDiff, MI2: mi2, ShiftAdj: minShift}
}

// mergeClassifications resolves the class of a merged template: NORMAL
// dominates PVC dominates UNKNOWN.
func (m *Matcher) mergeClassifications(dst, src int) {
	if m.classifications[dst] == beatNormal || m.classifications[src] == beatNormal {
		m.classifications[dst] = beatNormal
	} else if m.classifications[dst] == beatPVC || m.classifications[src] == beatPVC {
		m.classifications[dst] = beatPVC
	}
}

// UpdateBeatType updates the template and features of a beat type with a new
// beat. The second beat of a type is averaged straight in; later beats blend
// at 1/8th weight.
func (m *Matcher) UpdateBeatType(matchType int, newBeat []int, mi2 float64, shiftAdj int) {
	for i := 0; i < m.typeCount; i++ {
		if i != matchType {
			m.sinceLastMatch[i]++
		} else {
			m.sinceLastMatch[i] = 0
		}
	}

	if m.counts[matchType] == 1 {
		for i := 0; i < m.p.BeatLength; i++ {
			if i+shiftAdj >= 0 && i+shiftAdj < m.p.BeatLength {
				m.templates[matchType][i] = (m.templates[matchType][i] + newBeat[i+shiftAdj]) >> 1
			}
		}
	} else {
		m.updateBeat(m.templates[matchType], newBeat, shiftAdj)
	}

	m.storeFeatures(matchType)
	m.counts[matchType]++

	for i := maxPrev - 1; i > 0; i-- {
		m.mis[matchType][i] = m.mis[matchType][i-1]
	}
	m.mis[matchType][0] = mi2
}

// DominantType returns the NORMAL beat type that has occurred most
// frequently, or, if none exists after 300 beats, the most frequent type of
// any class. It returns -1 when no dominant type is established.
func (m *Matcher) DominantType() int {
	maxCount := 0
	maxType := -1

	for t := 0; t < maxTypes; t++ {
		if m.classifications[t] == beatNormal && m.counts[t] > maxCount {
			maxType = t
			maxCount = m.counts[t]
		}
	}

	if maxType == -1 {
		totalCount := 0
		for t := 0; t < m.typeCount; t++ {
			totalCount += m.counts[t]
		}
		if totalCount > 300 {
			for t := 0; t < m.typeCount; t++ {
				if m.counts[t] > maxCount {
					maxType = t
					maxCount = m.counts[t]
				}
			}
		}
	}

	return maxType
}

// ClearLastNewType removes the most recently initiated beat type.
func (m *Matcher) ClearLastNewType() {
	if m.typeCount != 0 {
		m.typeCount--
	}
}

// DomCompare2 returns the similarity index between a beat and the dominant
// type's template.
func (m *Matcher) DomCompare2(newBeat []int, domType int) float64 {
	return m.compareBeats2(m.templates[maxInt(domType, 0)], newBeat).metric
}

// DomCompare returns the similarity index between a given type and the
// dominant type.
func (m *Matcher) DomCompare(newType, domType int) float64 {
	return m.compareBeats2(
		m.templates[minInt(maxInt(domType, 0), maxTypes-1)],
		m.templates[minInt(maxInt(newType, 0), maxTypes-1)]).metric
}

// beatCopy moves the template and features of srcBeat into destBeat and
// rewrites the dominant monitor's slot references.
func (m *Matcher) beatCopy(srcBeat, destBeat int) {
	copy(m.templates[destBeat], m.templates[srcBeat])

	m.counts[destBeat] = m.counts[srcBeat]
	m.widths[destBeat] = m.widths[srcBeat]
	m.centers[destBeat] = m.centers[srcBeat]
	for i := 0; i < maxPrev; i++ {
		m.post.postClass[destBeat][i] = m.post.postClass[srcBeat][i]
		m.post.pcRhythm[destBeat][i] = m.post.pcRhythm[srcBeat][i]
	}

	m.classifications[destBeat] = m.classifications[srcBeat]
	m.begins[destBeat] = m.begins[srcBeat]
	// Longstanding quirk preserved from the reference implementation: the
	// end offset is copied from the source's begin offset.
	m.ends[destBeat] = m.begins[srcBeat]
	m.sinceLastMatch[destBeat] = m.sinceLastMatch[srcBeat]
	m.amps[destBeat] = m.amps[srcBeat]

	m.adjustDomData(srcBeat, destBeat)
}

// MinimumBeatVariation reports whether the previous eight beats of a type
// all had similarity indexes below 0.5.
func (m *Matcher) MinimumBeatVariation(t int) bool {
	i := 0
	for ; i < maxTypes; i++ {
		if m.mis[t][i] > 0.5 {
			i = maxTypes + 2
		}
	}
	return i == maxTypes
}

// WideBeatVariation reports whether the average similarity index of a type's
// recent beats to its template exceeds wideVarLimit.
func (m *Matcher) WideBeatVariation(t int) bool {
	n := m.counts[t]
	if n > 8 {
		n = 8
	}

	aveMI := 0.0
	for i := 0; i < n; i++ {
		aveMI += m.mis[t][i]
	}
	aveMI /= float64(n)
	return aveMI > wideVarLimit
}
