// Package hrv computes heart-rate variability measures from RR interval
// series, such as those emitted by the beat analyzer.
//
// Time-domain measures (SDNN, RMSSD, pNN50) work directly on the interval
// series. Frequency-domain measures resample the RR tachogram onto a uniform
// grid, window it, and integrate band powers from an FFT periodogram.
package hrv

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"
)

// Standard short-term HRV analysis bands, in Hz.
const (
	vlfLow  = 0.0033
	lfLow   = 0.04
	hfLow   = 0.15
	hfHigh  = 0.40
	nn50Lim = 50.0 // ms
)

// TimeDomain holds the time-domain variability measures of an RR series.
// All interval measures are in milliseconds; MeanHR is in beats per minute.
type TimeDomain struct {
	Count  int
	MeanRR float64
	MeanHR float64
	SDNN   float64
	RMSSD  float64
	PNN50  float64
}

// AnalyzeTimeDomain computes time-domain measures over RR intervals given in
// milliseconds. Fewer than two intervals yield zero difference measures.
func AnalyzeTimeDomain(rrMS []float64) TimeDomain {
	var r TimeDomain
	r.Count = len(rrMS)
	if r.Count == 0 {
		return r
	}

	sum := 0.0
	for _, rr := range rrMS {
		sum += rr
	}
	r.MeanRR = sum / float64(r.Count)
	if r.MeanRR > 0 {
		r.MeanHR = 60000 / r.MeanRR
	}

	varSum := 0.0
	for _, rr := range rrMS {
		d := rr - r.MeanRR
		varSum += d * d
	}
	r.SDNN = math.Sqrt(varSum / float64(r.Count))

	if r.Count < 2 {
		return r
	}

	sqSum := 0.0
	nn50 := 0
	for i := 1; i < r.Count; i++ {
		d := rrMS[i] - rrMS[i-1]
		sqSum += d * d
		if math.Abs(d) > nn50Lim {
			nn50++
		}
	}
	r.RMSSD = math.Sqrt(sqSum / float64(r.Count-1))
	r.PNN50 = float64(nn50) / float64(r.Count-1)

	return r
}

// BandPowers holds frequency-domain variability measures in ms².
type BandPowers struct {
	VLF        float64
	LF         float64
	HF         float64
	TotalPower float64
	// LFHFRatio is LF/HF, or 0 when HF power is 0.
	LFHFRatio float64
}

// Config adjusts spectral analysis.
type Config struct {
	// ResampleRate is the uniform tachogram rate in Hz (default 4).
	ResampleRate float64
	// FFTSize overrides the transform size; 0 selects the next power of two
	// covering the resampled series.
	FFTSize int
}

// AnalyzeSpectrum computes band powers over RR intervals given in
// milliseconds. At least four intervals are required.
func AnalyzeSpectrum(rrMS []float64, cfg Config) (BandPowers, error) {
	if len(rrMS) < 4 {
		return BandPowers{}, fmt.Errorf("spectral analysis needs at least 4 intervals: %d", len(rrMS))
	}

	fs := cfg.ResampleRate
	if fs <= 0 {
		fs = 4
	}

	tacho := resampleTachogram(rrMS, fs)
	if len(tacho) < 4 {
		return BandPowers{}, fmt.Errorf("RR series too short to resample at %g Hz", fs)
	}

	// Remove the mean so the DC bin doesn't swamp the bands.
	mean := 0.0
	for _, v := range tacho {
		mean += v
	}
	mean /= float64(len(tacho))

	fftSize := cfg.FFTSize
	if fftSize <= 0 {
		fftSize = nextPowerOf2(len(tacho))
	}
	if fftSize < len(tacho) {
		return BandPowers{}, fmt.Errorf("fft size %d smaller than resampled series %d", fftSize, len(tacho))
	}

	in := make([]complex128, fftSize)
	winSum := 0.0
	n := len(tacho)
	for i, v := range tacho {
		// Hann window.
		w := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		winSum += w * w
		in[i] = complex((v-mean)*w, 0)
	}

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return BandPowers{}, fmt.Errorf("fft plan: %w", err)
	}

	out := make([]complex128, fftSize)
	if err := plan.Forward(out, in); err != nil {
		return BandPowers{}, fmt.Errorf("fft: %w", err)
	}

	// One-sided periodogram, power normalized by the window energy.
	bins := fftSize/2 + 1
	re := make([]float64, bins)
	im := make([]float64, bins)
	for i := 0; i < bins; i++ {
		re[i] = real(out[i])
		im[i] = imag(out[i])
	}
	power := make([]float64, bins)
	vecmath.Power(power, re, im)

	scale := 1 / (fs * winSum)
	binHz := fs / float64(fftSize)

	var r BandPowers
	for i := 1; i < bins; i++ {
		p := power[i] * scale
		if i > 0 && i < bins-1 {
			p *= 2 // fold the negative frequencies
		}
		f := float64(i) * binHz
		df := binHz

		switch {
		case f >= vlfLow && f < lfLow:
			r.VLF += p * df
		case f >= lfLow && f < hfLow:
			r.LF += p * df
		case f >= hfLow && f <= hfHigh:
			r.HF += p * df
		}
		if f >= vlfLow && f <= hfHigh {
			r.TotalPower += p * df
		}
	}

	if r.HF > 0 {
		r.LFHFRatio = r.LF / r.HF
	}
	return r, nil
}

// IntervalsToMS converts RR intervals expressed in sample counts to
// milliseconds.
func IntervalsToMS(rrSamples []int, sampleRate int) []float64 {
	out := make([]float64, len(rrSamples))
	for i, rr := range rrSamples {
		out[i] = float64(rr) * 1000 / float64(sampleRate)
	}
	return out
}

// resampleTachogram linearly interpolates the irregular RR series onto a
// uniform grid at fs Hz. Each interval is anchored at its end time.
func resampleTachogram(rrMS []float64, fs float64) []float64 {
	times := make([]float64, len(rrMS))
	t := 0.0
	for i, rr := range rrMS {
		t += rr / 1000
		times[i] = t
	}

	span := times[len(times)-1] - times[0]
	n := int(span * fs)
	if n <= 0 {
		return nil
	}

	out := make([]float64, n)
	seg := 1
	for i := 0; i < n; i++ {
		tt := times[0] + float64(i)/fs
		for seg < len(times)-1 && times[seg] < tt {
			seg++
		}
		t0, t1 := times[seg-1], times[seg]
		v0, v1 := rrMS[seg-1], rrMS[seg]
		if t1 == t0 {
			out[i] = v1
			continue
		}
		frac := (tt - t0) / (t1 - t0)
		if frac < 0 {
			frac = 0
		} else if frac > 1 {
			frac = 1
		}
		out[i] = v0 + (v1-v0)*frac
	}
	return out
}

func nextPowerOf2(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}
	return size
}
