package classify

import "testing"

type domDataRecorder struct {
	adjusts  [][2]int
	combines [][2]int
}

func newTestMatcher(t *testing.T) (*Matcher, *domDataRecorder) {
	t.Helper()
	bp, _ := testParams(t)
	rec := &domDataRecorder{}

	analyzer := NewBeatAnalyzer(bp)
	post := NewPostClassifier(bp)
	m := NewMatcher(bp, analyzer, post)
	m.adjustDomData = func(oldType, newType int) {
		rec.adjusts = append(rec.adjusts, [2]int{oldType, newType})
	}
	m.combineDomData = func(oldType, newType int) {
		rec.combines = append(rec.combines, [2]int{oldType, newType})
	}
	return m, rec
}

// distinctBeats returns n visually distinct beat shapes.
func distinctBeats(p Params, n int) [][]int {
	beats := make([][]int, n)
	for i := range beats {
		widthMS := 60 + 20*i
		amp := 250 + 40*i
		beats[i] = makeTestBeat(p, amp, widthMS, 0, i%2 == 1)
	}
	return beats
}

// TestBestMorphMatchEmptyBank verifies an empty bank guarantees no match.
func TestBestMorphMatchEmptyBank(t *testing.T) {
	m, _ := newTestMatcher(t)

	r := m.BestMorphMatch(makeTestBeat(m.p, 300, 70, 0, false))
	if r.MatchIndex < 100 {
		t.Errorf("MatchIndex = %f for empty bank, want a guaranteed mismatch", r.MatchIndex)
	}
	if r.MatchType != 0 {
		t.Errorf("MatchType = %d, want 0", r.MatchType)
	}
}

// TestBestMorphMatchIdentical verifies a beat matches its own template with
// a near-zero metric and zero shift.
func TestBestMorphMatchIdentical(t *testing.T) {
	m, _ := newTestMatcher(t)

	beat := makeTestBeat(m.p, 300, 70, 0, false)
	m.NewBeatType(beat)

	r := m.BestMorphMatch(beat)
	if r.MatchType != 0 {
		t.Errorf("MatchType = %d, want 0", r.MatchType)
	}
	if r.MatchIndex > 0.01 {
		t.Errorf("MatchIndex = %f for an identical beat, want about 0", r.MatchIndex)
	}
	if r.MI2 > 0.01 {
		t.Errorf("MI2 = %f for an identical beat, want about 0", r.MI2)
	}
	if r.ShiftAdj != 0 {
		t.Errorf("ShiftAdj = %d, want 0", r.ShiftAdj)
	}
}

// TestNewBeatTypeCap verifies the bank never exceeds its capacity and that
// eviction retires the dominant-monitor history of the evicted slot.
func TestNewBeatTypeCap(t *testing.T) {
	m, rec := newTestMatcher(t)
	beats := distinctBeats(m.p, maxTypes+2)

	for i := 0; i < maxTypes; i++ {
		slot := m.NewBeatType(beats[i])
		if slot != i {
			t.Errorf("NewBeatType %d placed in slot %d", i, slot)
		}
		if m.TypesCount() != i+1 {
			t.Errorf("TypesCount = %d after %d types", m.TypesCount(), i+1)
		}
	}

	// The bank is full: the next new type must evict, not grow. All counts
	// are 1, so the stalest slot (0) goes.
	slot := m.NewBeatType(beats[maxTypes])
	if m.TypesCount() != maxTypes {
		t.Errorf("TypesCount = %d after eviction, want %d", m.TypesCount(), maxTypes)
	}
	if slot != 0 {
		t.Errorf("eviction chose slot %d, want the stalest slot 0", slot)
	}
	if len(rec.adjusts) == 0 {
		t.Fatal("eviction did not adjust dominant-monitor data")
	}
	if got := rec.adjusts[len(rec.adjusts)-1]; got != [2]int{0, maxTypes} {
		t.Errorf("adjustDomData called with %v, want [0 %d]", got, maxTypes)
	}

	// Still capped after one more.
	m.NewBeatType(beats[maxTypes+1])
	if m.TypesCount() != maxTypes {
		t.Errorf("TypesCount = %d, want %d", m.TypesCount(), maxTypes)
	}
}

// TestNewBeatTypeEvictsFewest verifies eviction prefers the type with the
// fewest occurrences.
func TestNewBeatTypeEvictsFewest(t *testing.T) {
	m, _ := newTestMatcher(t)
	beats := distinctBeats(m.p, maxTypes+1)

	for i := 0; i < maxTypes; i++ {
		m.NewBeatType(beats[i])
	}
	// Bump every count except slot 3.
	for i := 0; i < maxTypes; i++ {
		if i != 3 {
			m.UpdateBeatType(i, beats[i], 0.1, 0)
		}
	}

	if slot := m.NewBeatType(beats[maxTypes]); slot != 3 {
		t.Errorf("eviction chose slot %d, want the least frequent slot 3", slot)
	}
}

// TestUpdateBeatType verifies count and match-history updates.
func TestUpdateBeatType(t *testing.T) {
	m, _ := newTestMatcher(t)
	beat := makeTestBeat(m.p, 300, 70, 0, false)

	m.NewBeatType(beat)
	if m.BeatTypeCount(0) != 1 {
		t.Fatalf("BeatTypeCount = %d, want 1", m.BeatTypeCount(0))
	}

	m.UpdateBeatType(0, beat, 0.3, 0)
	if m.BeatTypeCount(0) != 2 {
		t.Errorf("BeatTypeCount = %d after update, want 2", m.BeatTypeCount(0))
	}
	if m.mis[0][0] != 0.3 {
		t.Errorf("match history head = %f, want 0.3", m.mis[0][0])
	}

	// Updating with an identical beat must leave the template intact.
	r := m.BestMorphMatch(beat)
	if r.MatchIndex > 0.01 {
		t.Errorf("MatchIndex = %f after identical update, want about 0", r.MatchIndex)
	}
}

// TestBeatVariationPredicates verifies the minimum and wide variation tests
// over the match history.
func TestBeatVariationPredicates(t *testing.T) {
	m, _ := newTestMatcher(t)
	beat := makeTestBeat(m.p, 300, 70, 0, false)
	m.NewBeatType(beat)

	for i := 0; i < maxPrev; i++ {
		m.mis[0][i] = 0.4
	}
	if !m.MinimumBeatVariation(0) {
		t.Error("MinimumBeatVariation = false with all indexes 0.4")
	}

	m.mis[0][5] = 0.6
	if m.MinimumBeatVariation(0) {
		t.Error("MinimumBeatVariation = true with an index above 0.5")
	}

	// Wide variation averages over up to 8 recent matches.
	m.counts[0] = 4
	m.mis[0] = [maxPrev]float64{0.9, 0.8, 0.7, 0.6, 0, 0, 0, 0}
	if !m.WideBeatVariation(0) {
		t.Error("WideBeatVariation = false with average 0.75")
	}

	m.mis[0] = [maxPrev]float64{0.1, 0.2, 0.1, 0.2, 0, 0, 0, 0}
	if m.WideBeatVariation(0) {
		t.Error("WideBeatVariation = true with average 0.15")
	}
}

// TestDominantType verifies dominant selection prefers the most frequent
// NORMAL type and reports none otherwise.
func TestDominantType(t *testing.T) {
	m, _ := newTestMatcher(t)
	beats := distinctBeats(m.p, 3)

	for _, b := range beats {
		m.NewBeatType(b)
	}
	if got := m.DominantType(); got != -1 {
		t.Errorf("DominantType = %d with no NORMAL types and few beats, want -1", got)
	}

	m.SetBeatClass(1, beatNormal)
	if got := m.DominantType(); got != 1 {
		t.Errorf("DominantType = %d, want 1", got)
	}

	m.SetBeatClass(2, beatNormal)
	m.counts[2] = 5
	if got := m.DominantType(); got != 2 {
		t.Errorf("DominantType = %d, want the more frequent NORMAL type 2", got)
	}
}

// TestClearLastNewType verifies the undo of a just-created type.
func TestClearLastNewType(t *testing.T) {
	m, _ := newTestMatcher(t)
	beats := distinctBeats(m.p, 2)

	m.NewBeatType(beats[0])
	m.NewBeatType(beats[1])
	m.ClearLastNewType()
	if m.TypesCount() != 1 {
		t.Errorf("TypesCount = %d after clear, want 1", m.TypesCount())
	}

	m.ClearLastNewType()
	m.ClearLastNewType() // extra clears must not underflow
	if m.TypesCount() != 0 {
		t.Errorf("TypesCount = %d, want 0", m.TypesCount())
	}
}

func BenchmarkBestMorphMatch(b *testing.B) {
	bp, _ := NewParams(100)
	analyzer := NewBeatAnalyzer(bp)
	post := NewPostClassifier(bp)
	m := NewMatcher(bp, analyzer, post)
	m.adjustDomData = func(int, int) {}
	m.combineDomData = func(int, int) {}

	for i := 0; i < maxTypes; i++ {
		m.NewBeatType(makeTestBeat(bp, 250+40*i, 60+20*i, 0, i%2 == 1))
	}
	probe := makeTestBeat(bp, 300, 70, 0, false)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.BestMorphMatch(probe)
	}
}
