package biquad

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestLowpassAtNyquistIsIdentity(t *testing.T) {
	c := Design(Lowpass, 1, 0.707, 0)
	assert.InDelta(t, 1.0, c.B0, 1e-9)
	assert.InDelta(t, 0.0, c.B1, 1e-9)
	assert.InDelta(t, 0.0, c.B2, 1e-9)
}

func TestLowpassAtZeroIsSilence(t *testing.T) {
	c := Design(Lowpass, 0, 0.707, 0)
	assert.InDelta(t, 0.0, c.B0, 1e-9)
}

func TestHighpassAtZeroIsSilence(t *testing.T) {
	c := Design(Highpass, 0, 0.707, 0)
	assert.InDelta(t, 0.0, c.B0, 1e-9)
}

func TestHighpassAtNyquistIsIdentity(t *testing.T) {
	c := Design(Highpass, 1, 0.707, 0)
	assert.InDelta(t, 1.0, c.B0, 1e-9)
}

func TestPeakingZeroGainIsIdentity(t *testing.T) {
	c := Design(Peaking, 0.25, 1.0, 0)
	assert.InDelta(t, 1.0, c.B0, 1e-9)
	assert.InDelta(t, c.A1, c.B1, 1e-9)
	assert.InDelta(t, c.A2, c.B2, 1e-9)
}

func TestRawZeroA0FallsBackToUnity(t *testing.T) {
	c := Raw(2, 0, 0, 0, 0, 0)
	assert.InDelta(t, 2.0, c.B0, 1e-9)
}

func TestSectionRunMatchesDirectForm(t *testing.T) {
	sec := NewSection(Lowpass, 0.25, 0.707, 0)
	src := []float32{1, 0, 0, 0, 0, 0, 0, 0}
	dst := make([]float32, len(src))
	sec.Run(dst, src, len(src))

	// Reference: run the same transposed direct form II by hand.
	c := Design(Lowpass, 0.25, 0.707, 0)
	var x1, x2 float64
	want := make([]float32, len(src))
	for i, xv := range src {
		x := float64(xv)
		y := c.B0*x + x1
		x1 = c.B1*x - c.A1*y + x2
		x2 = c.B2*x - c.A2*y
		want[i] = float32(y)
	}

	assert.Equal(t, want, dst)
}

func TestSectionResetClearsState(t *testing.T) {
	sec := NewSection(Lowpass, 0.25, 0.707, 0)
	dst := make([]float32, 4)
	sec.Run(dst, []float32{1, 1, 1, 1}, 4)

	x1, x2 := sec.State()
	require.False(t, x1 == 0 && x2 == 0)

	sec.Reset()
	x1, x2 = sec.State()
	assert.Zero(t, x1)
	assert.Zero(t, x2)
}

func TestCascadeEmptyIsPassthrough(t *testing.T) {
	var c Cascade
	src := []float32{1, 2, 3}
	dst := make([]float32, 3)
	c.Run(dst, src, 3, nil)
	assert.Equal(t, src, dst)
}

func TestCascadeChainsSections(t *testing.T) {
	a := NewSection(Lowpass, 0.4, 0.707, 0)
	b := NewSection(Lowpass, 0.4, 0.707, 0)
	c := Cascade{a, b}

	src := []float32{1, 0, 0, 0, 0, 0, 0, 0}
	viaCascade := make([]float32, len(src))
	scratch := make([]float32, len(src))
	c.Run(viaCascade, src, len(src), scratch)

	a2 := NewSection(Lowpass, 0.4, 0.707, 0)
	b2 := NewSection(Lowpass, 0.4, 0.707, 0)
	mid := make([]float32, len(src))
	viaManual := make([]float32, len(src))
	a2.Run(mid, src, len(src))
	b2.Run(viaManual, mid, len(src))

	assert.Equal(t, viaManual, viaCascade)
}

// TestStableSectionStateStaysBounded exercises biquad bound
// invariant: for a stable section driven by input with |x| <= 1, running
// state never grows past a small multiple of the unity-gain DC response,
// and never leaves a subnormal residue once the input returns to zero.
func TestStableSectionStateStaysBounded(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		freq := rapid.Float64Range(0.01, 0.99).Draw(t, "freq")
		q := rapid.Float64Range(0.1, 5).Draw(t, "q")
		kindIdx := rapid.IntRange(0, 7).Draw(t, "kind")
		sec := NewSection(Kind(kindIdx), freq, q, 0)

		n := rapid.IntRange(1, 512).Draw(t, "n")
		src := make([]float32, n)
		for i := range src {
			src[i] = rapid.Float32Range(-1, 1).Draw(t, "x")
		}
		dst := make([]float32, n)
		sec.Run(dst, src, n)

		x1, x2 := sec.State()
		bound := 1000.0 // generous bound; denormal flushing is the real property under test
		assert.LessOrEqual(t, math.Abs(x1), bound)
		assert.LessOrEqual(t, math.Abs(x2), bound)

		silence := make([]float32, 64)
		out := make([]float32, 64)
		sec.Run(out, silence, 64)
		fx1, fx2 := sec.State()
		assert.False(t, fx1 != 0 && math.Abs(fx1) < denormalFloor)
		assert.False(t, fx2 != 0 && math.Abs(fx2) < denormalFloor)
	})
}
