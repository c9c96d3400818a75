package qrs

import "testing"

func newTestFilterer(t *testing.T) *Filterer {
	t.Helper()
	p, err := NewParams(200)
	if err != nil {
		t.Fatalf("NewParams(200) error = %v", err)
	}
	return NewFilterer(p)
}

// TestFilterZeroInput verifies the chain is linear: zero in, zero out, for
// longer than any internal buffer.
func TestFilterZeroInput(t *testing.T) {
	f := newTestFilterer(t)

	for i := 0; i < 2000; i++ {
		if got := f.Filter(0); got != 0 {
			t.Fatalf("Filter(0) = %d at sample %d, want 0", got, i)
		}
	}
}

// TestFilterImpulseResponse verifies an impulse produces energy that decays
// back to zero once it has left every buffer.
func TestFilterImpulseResponse(t *testing.T) {
	f := newTestFilterer(t)

	nonzero := 0
	for i := 0; i < 2000; i++ {
		in := 0
		if i == 100 {
			in = 1000
		}
		out := f.Filter(in)
		if out != 0 {
			nonzero++
		}
		if i > 500 && out != 0 {
			t.Fatalf("Filter output %d at sample %d, impulse energy should have decayed", out, i)
		}
	}

	if nonzero == 0 {
		t.Error("impulse produced no filter output")
	}
}

// TestFilterClipsAt32000 verifies the moving window integrator output clip.
func TestFilterClipsAt32000(t *testing.T) {
	f := newTestFilterer(t)

	for i := 0; i < 2000; i++ {
		in := 0
		if i%50 == 0 {
			in = 10000000
		}
		if out := f.Filter(in); out > 32000 {
			t.Fatalf("Filter output %d exceeds clip level", out)
		}
	}
}

// TestDeriv1 verifies the raw derivative y[n] = x[n] - x[n-MS10] and that its
// state is independent of the main chain.
func TestDeriv1(t *testing.T) {
	f := newTestFilterer(t)
	ms10 := f.p.MS10

	var inputs []int
	for i := 0; i < 100; i++ {
		in := i * 3
		inputs = append(inputs, in)
		got := f.Deriv1(in)

		want := in
		if i >= ms10 {
			want = in - inputs[i-ms10]
		}
		if got != want {
			t.Fatalf("Deriv1 sample %d = %d, want %d", i, got, want)
		}

		// Interleaved chain activity must not disturb Deriv1 state.
		f.Filter(in)
	}
}

func BenchmarkFilter(b *testing.B) {
	p, _ := NewParams(200)
	f := NewFilterer(p)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f.Filter(i & 0xff)
	}
}
