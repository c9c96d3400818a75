package classify

import (
	"testing"

	"github.com/cwbudde/algo-ecg/ecg/ecgcodes"
)

func newTestRhythmChecker(t *testing.T) *RhythmChecker {
	t.Helper()
	_, qp := testParams(t)
	return NewRhythmChecker(qp)
}

// TestRRMatch verifies the quarter-of-mean matching predicate.
func TestRRMatch(t *testing.T) {
	tests := []struct {
		a, b int
		want bool
	}{
		{8, 8, true},
		{100, 100, true},
		{1000, 1000, true},
		{100, 120, true},
		{100, 130, false},
		{200, 150, false},
		{160, 180, true},
	}

	for _, tt := range tests {
		if got := rrMatch(tt.a, tt.b); got != tt.want {
			t.Errorf("rrMatch(%d, %d) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

// TestRRShort verifies the 75%-of-previous predicate, including that
// rrShort(a, a) is always false and that short intervals never match.
func TestRRShort(t *testing.T) {
	for _, a := range []int{0, 1, 8, 100, 300, 1000} {
		if rrShort(a, a) {
			t.Errorf("rrShort(%d, %d) = true, want false", a, a)
		}
	}

	if !rrShort(100, 140) {
		t.Error("rrShort(100, 140) = false, want true")
	}
	if rrShort(110, 140) {
		t.Error("rrShort(110, 140) = true, want false")
	}

	// A short interval cannot simultaneously match.
	for a := 1; a <= 400; a++ {
		for b := 9; b <= 400; b += 7 {
			if rrShort(a, b) && rrMatch(a, b) {
				t.Fatalf("rrShort(%d, %d) and rrMatch(%d, %d) both true", a, b, a, b)
			}
		}
	}
}

// TestRhythmLearning verifies the first three intervals are UNKNOWN and a
// regular rhythm is recognized from the fourth beat on.
func TestRhythmLearning(t *testing.T) {
	c := newTestRhythmChecker(t)

	for i := 0; i < 3; i++ {
		if got := c.RhythmChk(200); got != ecgcodes.Unknown {
			t.Errorf("interval %d = %d, want UNKNOWN", i, got)
		}
	}
	if got := c.RhythmChk(200); got != ecgcodes.Normal {
		t.Errorf("fourth regular interval = %d, want NORMAL", got)
	}
	if got := c.RhythmChk(200); got != ecgcodes.Normal {
		t.Errorf("fifth regular interval = %d, want NORMAL", got)
	}
}

// TestRhythmPrematureBeat verifies a short interval in an established
// regular rhythm is classified PVC, with the recovery interval NORMAL.
func TestRhythmPrematureBeat(t *testing.T) {
	c := newTestRhythmChecker(t)

	for i := 0; i < 8; i++ {
		c.RhythmChk(200)
	}

	if got := c.RhythmChk(140); got != ecgcodes.PVC {
		t.Errorf("premature interval = %d, want PVC", got)
	}
	if got := c.RhythmChk(260); got != ecgcodes.Normal {
		t.Errorf("compensatory interval = %d, want NORMAL", got)
	}
}

// TestRhythmBradycardia verifies short intervals are not called PVC when
// the underlying rhythm is bradycardic.
func TestRhythmBradycardia(t *testing.T) {
	c := newTestRhythmChecker(t)

	for i := 0; i < 8; i++ {
		c.RhythmChk(400) // 2 s at 200 Hz, beyond the brady limit
	}

	if got := c.RhythmChk(250); got != ecgcodes.Unknown {
		t.Errorf("short interval under bradycardia = %d, want UNKNOWN", got)
	}
}

// TestRhythmBigeminy verifies a sustained alternating rhythm raises the
// bigeminy flag and settles into alternating PVC/NORMAL classifications.
func TestRhythmBigeminy(t *testing.T) {
	c := newTestRhythmChecker(t)

	bigeminySeen := false
	var last4 []int
	rrs := []int{120, 180}
	for i := 0; i < 16; i++ {
		got := c.RhythmChk(rrs[i%2])
		if c.IsBigeminy() {
			bigeminySeen = true
		}
		if i >= 12 {
			last4 = append(last4, got)
		}
	}

	if !bigeminySeen {
		t.Error("bigeminy flag never raised")
	}
	for i := 1; i < len(last4); i++ {
		if last4[i] == last4[i-1] {
			t.Errorf("settled rhythm not alternating: %v", last4)
		}
	}
}
