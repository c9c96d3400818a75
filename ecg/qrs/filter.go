package qrs

// Filterer is the QRS bandpass estimate chain: low pass, high pass,
// derivative, rectification, and an 80 ms moving-window integral. The output
// has a lump in it whenever a QRS complex, or a QRS-like artifact, occurs.
//
// A separate derivative over the raw signal (Deriv1) is kept for T-wave and
// baseline-shift discrimination in the detector.
type Filterer struct {
	p Params

	lpY1   int64
	lpY2   int64
	lpData []int
	lpPtr  int

	hpY    int64
	hpData []int
	hpPtr  int

	deriv1Buf []int
	deriv1I   int

	deriv2Buf []int
	deriv2I   int

	mvwSum  int64
	mvwData []int
	mvwPtr  int
}

// NewFilterer returns a filter chain for the given detection-rate parameters.
func NewFilterer(p Params) *Filterer {
	return &Filterer{
		p:         p,
		lpData:    make([]int, p.LPBufferLength),
		hpData:    make([]int, p.HPBufferLength),
		deriv1Buf: make([]int, p.DerivLength),
		deriv2Buf: make([]int, p.DerivLength),
		mvwData:   make([]int, p.WindowWidth),
	}
}

// Filter runs one raw ECG sample through the chain and returns an estimate of
// the local energy in the QRS bandwidth.
func (f *Filterer) Filter(datum int) int {
	fdatum := f.lpfilt(datum)
	fdatum = f.hpfilt(fdatum)
	fdatum = f.deriv2(fdatum)
	if fdatum < 0 {
		fdatum = -fdatum
	}
	return f.mvwint(fdatum)
}

// lpfilt implements the recursive low pass
//
//	y[n] = 2*y[n-1] - y[n-2] + x[n] - 2*x[n - L/2] + x[n - L]
//
// with L = LPBufferLength, scaled by L*L/4. Delay is L/2 - 1.
func (f *Filterer) lpfilt(datum int) int {
	halfPtr := f.lpPtr - f.p.LPBufferLength/2
	if halfPtr < 0 {
		halfPtr += f.p.LPBufferLength
	}

	y0 := (f.lpY1 << 1) - f.lpY2 + int64(datum) - (int64(f.lpData[halfPtr]) << 1) + int64(f.lpData[f.lpPtr])
	f.lpY2 = f.lpY1
	f.lpY1 = y0
	output := int(y0) / (f.p.LPBufferLength * f.p.LPBufferLength / 4)

	f.lpData[f.lpPtr] = datum
	if f.lpPtr++; f.lpPtr == f.p.LPBufferLength {
		f.lpPtr = 0
	}
	return output
}

// hpfilt implements mean subtraction
//
//	y[n] = y[n-1] + x[n] - x[n - H]
//	z[n] = x[n - H/2] - y[n]/H
//
// with H = HPBufferLength. Delay is (H-1)/2.
func (f *Filterer) hpfilt(datum int) int {
	f.hpY += int64(datum - f.hpData[f.hpPtr])
	halfPtr := f.hpPtr - f.p.HPBufferLength/2
	if halfPtr < 0 {
		halfPtr += f.p.HPBufferLength
	}

	z := f.hpData[halfPtr] - int(f.hpY/int64(f.p.HPBufferLength))

	f.hpData[f.hpPtr] = datum
	if f.hpPtr++; f.hpPtr == f.p.HPBufferLength {
		f.hpPtr = 0
	}
	return z
}

// Deriv1 approximates the derivative y[n] = x[n] - x[n - MS10] of the raw
// signal, over state independent of the chain's own derivative. Delay is
// DerivLength/2.
func (f *Filterer) Deriv1(x int) int {
	y := x - f.deriv1Buf[f.deriv1I]
	f.deriv1Buf[f.deriv1I] = x
	if f.deriv1I++; f.deriv1I == f.p.DerivLength {
		f.deriv1I = 0
	}
	return y
}

func (f *Filterer) deriv2(x int) int {
	y := x - f.deriv2Buf[f.deriv2I]
	f.deriv2Buf[f.deriv2I] = x
	if f.deriv2I++; f.deriv2I == f.p.DerivLength {
		f.deriv2I = 0
	}
	return y
}

// mvwint averages the signal over the last WindowWidth samples, clipped
// to 32000.
func (f *Filterer) mvwint(datum int) int {
	f.mvwSum += int64(datum)
	f.mvwSum -= int64(f.mvwData[f.mvwPtr])
	f.mvwData[f.mvwPtr] = datum
	if f.mvwPtr++; f.mvwPtr == f.p.WindowWidth {
		f.mvwPtr = 0
	}

	output := int(f.mvwSum / int64(f.p.WindowWidth))
	if output > 32000 {
		output = 32000
	}
	return output
}
