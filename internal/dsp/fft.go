package dsp

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// FFT wraps a real-valued forward/inverse FFT of a fixed size, backed by
// gonum's fourier package. Forward produces the non-redundant half spectrum
// of length size/2+1, matching the PipeWire-style fftComplexSize used by
// the convolver (internal/dsp/convolver).
type FFT struct {
	size int
	fft  *fourier.FFT
}

// NewFFT allocates an FFT engine for real sequences of the given size.
func NewFFT(size int) *FFT {
	return &FFT{size: size, fft: fourier.NewFFT(size)}
}

// Size returns the configured transform size.
func (f *FFT) Size() int { return f.size }

// ComplexSize returns size/2+1, the number of complex bins a forward
// transform produces.
func (f *FFT) ComplexSize() int { return f.size/2 + 1 }

// Forward transforms a real time-domain signal of length Size into dst,
// a complex spectrum of length ComplexSize.
func (f *FFT) Forward(dst []complex128, src []float64) {
	f.fft.Coefficients(dst, src)
}

// Inverse transforms a complex spectrum of length ComplexSize back into a
// real time-domain signal of length Size, written to dst. The result is
// NOT normalized by gonum; callers apply their own scale (see CMul/CMulAdd).
func (f *FFT) Inverse(dst []float64, src []complex128) {
	seq := f.fft.Sequence(dst, src)
	// gonum's Sequence already normalizes by 1/n; undo that so callers can
	// apply the filter's own 1/(2*Bh) scale exactly once, at the point the
	// spectra are combined, rather than twice.
	n := float64(f.size)
	for i := range seq {
		seq[i] *= n
	}
}

// CMul computes dst = a .* b * scale over len complex bins.
func CMul(dst, a, b []complex128, length int, scale float64) {
	sc := complex(scale, 0)
	for i := 0; i < length; i++ {
		dst[i] = a[i] * b[i] * sc
	}
}

// CMulAdd computes dst = src + a .* b * scale over len complex bins. dst
// and src may alias.
func CMulAdd(dst, src, a, b []complex128, length int, scale float64) {
	sc := complex(scale, 0)
	for i := 0; i < length; i++ {
		dst[i] = src[i] + a[i]*b[i]*sc
	}
}
