package bdac

import (
	"testing"

	"github.com/cwbudde/algo-ecg/ecg/ecgcodes"
	"github.com/cwbudde/algo-ecg/internal/ecgsim"
)

type beat struct {
	at        int
	beatType  int
	beatMatch int
}

func analyzeStream(t *testing.T, a *Analyzer, stream []int) []beat {
	t.Helper()
	var beats []beat
	for i, s := range stream {
		r := a.Analyze(s)
		if r.SamplesSinceRWave != 0 {
			beats = append(beats, beat{at: i - r.SamplesSinceRWave, beatType: r.BeatType, beatMatch: r.BeatMatch})
		}
	}
	return beats
}

// TestNew verifies constructor validation.
func TestNew(t *testing.T) {
	tests := []struct {
		name           string
		rate, beatRate int
		wantErr        bool
	}{
		{"valid 200/100", 200, 100, false},
		{"valid 360/180", 360, 180, false},
		{"invalid detection rate", 100, 50, true},
		{"invalid beat rate", 200, 0, true},
		{"beat rate above detection rate", 200, 400, true},
		{"non-integer ratio", 200, 150, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(tt.rate, tt.beatRate)
			if (err != nil) != tt.wantErr {
				t.Errorf("New(%d, %d) error = %v, wantErr %v", tt.rate, tt.beatRate, err, tt.wantErr)
				return
			}
			if !tt.wantErr && a == nil {
				t.Error("New returned nil without error")
			}
		})
	}
}

// TestRegularSinus verifies a steady 60 bpm rhythm: the first reported beat
// is the unclassifiable sentinel, detections keep pace with the rhythm, and
// the classification settles on NORMAL.
func TestRegularSinus(t *testing.T) {
	a, err := New(200, 100)
	if err != nil {
		t.Fatalf("New error = %v", err)
	}

	g := ecgsim.New(200, 1)
	beats := analyzeStream(t, a, g.Rhythm(ecgsim.Normal, 1000, 30))

	if len(beats) < 9 {
		t.Fatalf("got %d beats, want at least 9", len(beats))
	}
	if beats[0].beatType != ecgcodes.Unknown {
		t.Errorf("first beat = %d, want the unclassifiable sentinel %d", beats[0].beatType, ecgcodes.Unknown)
	}

	for i, b := range beats[1:] {
		if b.beatType == ecgcodes.PVC {
			t.Errorf("beat %d classified PVC in a clean sinus rhythm", i+1)
		}
	}
	for _, b := range beats[len(beats)-5:] {
		if b.beatType != ecgcodes.Normal {
			t.Errorf("settled beat at %d = %d, want NORMAL", b.at, b.beatType)
		}
	}

	// RR intervals must track the 1000 ms rhythm.
	for i := len(beats) - 4; i < len(beats); i++ {
		rr := beats[i].at - beats[i-1].at
		if rr < 190 || rr > 210 {
			t.Errorf("RR interval %d samples, want about 200", rr)
		}
	}
}

// TestBigeminy verifies the alternating rhythm raises the bigeminy flag and
// yields both PVC and NORMAL labels.
func TestBigeminy(t *testing.T) {
	a, err := New(200, 100)
	if err != nil {
		t.Fatalf("New error = %v", err)
	}

	g := ecgsim.New(200, 1)
	stream := g.Bigeminy(ecgsim.Normal, ecgsim.Wide, 550, 1050, 16)

	bigeminySeen := false
	pvcs, normals := 0, 0
	for _, s := range stream {
		r := a.Analyze(s)
		if r.SamplesSinceRWave == 0 {
			continue
		}
		if a.Classifier().Rhythm().IsBigeminy() {
			bigeminySeen = true
		}
		switch r.BeatType {
		case ecgcodes.PVC:
			pvcs++
		case ecgcodes.Normal:
			normals++
		}
	}

	if !bigeminySeen {
		t.Error("bigeminy was never flagged")
	}
	if pvcs < 2 {
		t.Errorf("got %d PVC labels, want at least 2", pvcs)
	}
	if normals < 2 {
		t.Errorf("got %d NORMAL labels, want at least 2", normals)
	}
}

// TestBaselineShift verifies a DC step between beats does not spawn a new
// template.
func TestBaselineShift(t *testing.T) {
	a, err := New(200, 100)
	if err != nil {
		t.Fatalf("New error = %v", err)
	}

	g := ecgsim.New(200, 1)
	stream := g.Rhythm(ecgsim.Normal, 1200, 25)
	// Step in the gap between beat windows: beats sit at 120 + k*240.
	stepAt := 120 + 12*240 + 140
	stream = ecgsim.WithBaselineStep(stream, stepAt, 500)

	beats := analyzeStream(t, a, stream)

	if len(beats) < 9 {
		t.Fatalf("got %d beats, want at least 9", len(beats))
	}
	if got := a.Classifier().Matcher().TypesCount(); got != 1 {
		t.Errorf("TypesCount = %d after baseline shift, want 1", got)
	}

	// Detection must continue across the step.
	last := beats[len(beats)-1]
	if last.at < stepAt {
		t.Errorf("no beats detected after the step (last at %d)", last.at)
	}
}

// TestIsolatedPVC verifies a wide premature beat with a compensatory pause
// inside a sinus rhythm is labeled PVC.
func TestIsolatedPVC(t *testing.T) {
	a, err := New(200, 100)
	if err != nil {
		t.Fatalf("New error = %v", err)
	}

	// Sinus at 1000 ms with one wide beat 400 ms early at 16.1 s; the
	// following normal beat stays on the original grid (compensatory pause).
	var events []ecgsim.Event
	for beatAt := 500; beatAt <= 25500; beatAt += 1000 {
		if beatAt == 16500 {
			continue
		}
		events = append(events, ecgsim.Event{AtMS: beatAt, Shape: ecgsim.Normal})
	}
	events = append(events, ecgsim.Event{AtMS: 16100, Shape: ecgsim.Wide})

	g := ecgsim.New(200, 1)
	beats := analyzeStream(t, a, g.Sequence(27000, events))

	pvcAt := 16100 * 200 / 1000
	found := false
	for _, b := range beats {
		if b.at > pvcAt-40 && b.at < pvcAt+40 {
			found = true
			if b.beatType != ecgcodes.PVC {
				t.Errorf("premature wide beat at %d labeled %d, want PVC", b.at, b.beatType)
			}
		}
	}
	if !found {
		t.Fatal("premature wide beat was not detected")
	}
}

// TestIdempotence verifies two fresh analyzers produce identical outputs
// for the same stream.
func TestIdempotence(t *testing.T) {
	g := ecgsim.New(200, 3)
	stream := g.Rhythm(ecgsim.Normal, 800, 20)
	stream = append(stream, g.Bigeminy(ecgsim.Normal, ecgsim.Wide, 550, 1050, 6)...)
	stream = g.WithNoise(stream, 8)

	a1, err := New(200, 100)
	if err != nil {
		t.Fatalf("New error = %v", err)
	}
	a2, err := New(200, 100)
	if err != nil {
		t.Fatalf("New error = %v", err)
	}

	for i, s := range stream {
		r1 := a1.Analyze(s)
		r2 := a2.Analyze(s)
		if r1 != r2 {
			t.Fatalf("sample %d: results diverge: %+v != %+v", i, r1, r2)
		}
	}
}

func BenchmarkAnalyze(b *testing.B) {
	a, _ := New(200, 100)
	g := ecgsim.New(200, 1)
	stream := g.Rhythm(ecgsim.Normal, 800, 50)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		a.Analyze(stream[i%len(stream)])
	}
}
