// Package ecgsim generates synthetic single-lead ECG streams for tests and
// demos. The waveforms are crude — raised-cosine QRS lumps with optional P
// and T waves — but they exercise the detector and classifier the way real
// beats do: sharp central deflections at controllable rates, widths, and
// amplitudes, with injectable premature beats and baseline artifacts.
package ecgsim

import (
	"math"
	"math/rand"
)

// BeatShape describes one synthetic beat morphology.
type BeatShape struct {
	// Amp is the R-wave amplitude in ADC units (200 units ~ 1 mV).
	Amp int
	// WidthMS is the QRS width in milliseconds.
	WidthMS int
	// Inverted flips the QRS polarity.
	Inverted bool
	// TWave adds a low, slow wave after the QRS.
	TWave bool
}

// Normal is a narrow upright beat in the usual amplitude range.
var Normal = BeatShape{Amp: 300, WidthMS: 70, TWave: true}

// Wide is a broad, high-amplitude ventricular-looking beat.
var Wide = BeatShape{Amp: 420, WidthMS: 160, Inverted: true}

// Generator builds sample streams at a fixed rate.
type Generator struct {
	sampleRate int
	rng        *rand.Rand
}

// New returns a generator for the given sample rate. Noise is deterministic
// for a given seed.
func New(sampleRate int, seed int64) *Generator {
	return &Generator{
		sampleRate: sampleRate,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

func (g *Generator) samples(ms int) int {
	return ms * g.sampleRate / 1000
}

// Beat renders one beat of the given shape into a fresh slice spanning
// durationMS, with the R-wave at rOffsetMS.
func (g *Generator) Beat(shape BeatShape, durationMS, rOffsetMS int) []int {
	out := make([]int, g.samples(durationMS))
	g.addBeat(out, shape, g.samples(rOffsetMS))
	return out
}

// addBeat renders a beat into out centered at rIndex.
func (g *Generator) addBeat(out []int, shape BeatShape, rIndex int) {
	halfWidth := g.samples(shape.WidthMS) / 2
	if halfWidth < 1 {
		halfWidth = 1
	}
	sign := 1
	if shape.Inverted {
		sign = -1
	}

	for i := -halfWidth; i <= halfWidth; i++ {
		j := rIndex + i
		if j < 0 || j >= len(out) {
			continue
		}
		// Raised cosine: peaks at the R index, zero at the edges.
		w := 0.5 * (1 + math.Cos(math.Pi*float64(i)/float64(halfWidth)))
		out[j] += sign * int(float64(shape.Amp)*w)
	}

	if shape.TWave {
		tCenter := rIndex + g.samples(220)
		tHalf := g.samples(120)
		for i := -tHalf; i <= tHalf; i++ {
			j := tCenter + i
			if j < 0 || j >= len(out) {
				continue
			}
			w := 0.5 * (1 + math.Cos(math.Pi*float64(i)/float64(tHalf)))
			out[j] += sign * int(float64(shape.Amp/6)*w)
		}
	}
}

// Rhythm renders a stream of beats at fixed RR intervals.
func (g *Generator) Rhythm(shape BeatShape, rrMS, beats int) []int {
	rr := g.samples(rrMS)
	out := make([]int, rr*beats+g.samples(1000))
	for b := 0; b < beats; b++ {
		g.addBeat(out, shape, rr/2+b*rr)
	}
	return out
}

// Bigeminy renders alternating normal and premature beats. The premature
// beat follows its predecessor by shortMS; the following normal beat
// completes the longMS compensatory interval.
func (g *Generator) Bigeminy(normal, premature BeatShape, shortMS, longMS, pairs int) []int {
	shortRR := g.samples(shortMS)
	longRR := g.samples(longMS)
	out := make([]int, (shortRR+longRR)*pairs+g.samples(1000))
	at := longRR / 2
	for p := 0; p < pairs; p++ {
		g.addBeat(out, normal, at)
		g.addBeat(out, premature, at+shortRR)
		at += shortRR + longRR
	}
	return out
}

// Event places one beat at an absolute time within a Sequence.
type Event struct {
	AtMS  int
	Shape BeatShape
}

// Sequence renders beats at arbitrary positions into a stream spanning
// durationMS.
func (g *Generator) Sequence(durationMS int, events []Event) []int {
	out := make([]int, g.samples(durationMS))
	for _, e := range events {
		g.addBeat(out, e.Shape, g.samples(e.AtMS))
	}
	return out
}

// WithBaselineStep returns a copy of stream with a DC step of the given
// height from index on.
func WithBaselineStep(stream []int, index, height int) []int {
	out := make([]int, len(stream))
	copy(out, stream)
	for i := index; i < len(out); i++ {
		out[i] += height
	}
	return out
}

// WithNoise returns a copy of stream with uniform noise of the given peak
// amplitude added.
func (g *Generator) WithNoise(stream []int, amplitude int) []int {
	out := make([]int, len(stream))
	for i, v := range stream {
		out[i] = v + g.rng.Intn(2*amplitude+1) - amplitude
	}
	return out
}

// Silence returns a zero stream spanning durationMS.
func (g *Generator) Silence(durationMS int) []int {
	return make([]int, g.samples(durationMS))
}
