package ecgsim

import "testing"

// TestBeatShape verifies the rendered beat peaks at the R offset with the
// configured amplitude and returns to baseline at the edges.
func TestBeatShape(t *testing.T) {
	g := New(200, 1)
	beat := g.Beat(Normal, 1000, 400)

	r := 80 // 400 ms at 200 Hz
	if beat[r] < Normal.Amp-10 || beat[r] > Normal.Amp+Normal.Amp/6+10 {
		t.Errorf("R-wave amplitude = %d, want about %d", beat[r], Normal.Amp)
	}
	if beat[0] != 0 {
		t.Errorf("beat start = %d, want baseline 0", beat[0])
	}

	max := 0
	for _, v := range beat {
		if v > max {
			max = v
		}
	}
	if max != beat[r] {
		t.Errorf("maximum %d not at the R offset (beat[r] = %d)", max, beat[r])
	}
}

// TestInvertedBeat verifies polarity.
func TestInvertedBeat(t *testing.T) {
	g := New(200, 1)
	beat := g.Beat(Wide, 1000, 400)

	min := 0
	for _, v := range beat {
		if v < min {
			min = v
		}
	}
	if min > -Wide.Amp/2 {
		t.Errorf("inverted beat minimum = %d, want a deep negative deflection", min)
	}
}

// TestRhythmSpacing verifies beats land at the configured RR interval.
func TestRhythmSpacing(t *testing.T) {
	g := New(200, 1)
	stream := g.Rhythm(Normal, 800, 5)

	rr := 160 // 800 ms at 200 Hz
	for b := 0; b < 5; b++ {
		at := rr/2 + b*rr
		if stream[at] < Normal.Amp-10 {
			t.Errorf("beat %d amplitude at %d = %d, want about %d", b, at, stream[at], Normal.Amp)
		}
	}
}

// TestWithBaselineStep verifies the step applies from the index on and the
// input is not mutated.
func TestWithBaselineStep(t *testing.T) {
	stream := make([]int, 100)
	stepped := WithBaselineStep(stream, 50, 500)

	if stepped[49] != 0 || stepped[50] != 500 || stepped[99] != 500 {
		t.Errorf("step not applied correctly: %d %d %d", stepped[49], stepped[50], stepped[99])
	}
	if stream[50] != 0 {
		t.Error("input stream mutated")
	}
}

// TestWithNoiseDeterminism verifies identical seeds produce identical noise.
func TestWithNoiseDeterminism(t *testing.T) {
	stream := make([]int, 200)

	a := New(200, 7).WithNoise(stream, 10)
	b := New(200, 7).WithNoise(stream, 10)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("noise differs at %d: %d != %d", i, a[i], b[i])
		}
		if a[i] < -10 || a[i] > 10 {
			t.Fatalf("noise sample %d out of range: %d", i, a[i])
		}
	}
}

// TestSequence verifies events land at their absolute offsets.
func TestSequence(t *testing.T) {
	g := New(200, 1)
	stream := g.Sequence(3000, []Event{
		{AtMS: 500, Shape: Normal},
		{AtMS: 1800, Shape: Wide},
	})

	if stream[100] < Normal.Amp-10 {
		t.Errorf("first event amplitude = %d, want about %d", stream[100], Normal.Amp)
	}
	if stream[360] > -Wide.Amp/2 {
		t.Errorf("second event amplitude = %d, want a deep negative deflection", stream[360])
	}
}
