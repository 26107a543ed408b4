package dsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestMixGainSingleUnityIsCopy(t *testing.T) {
	src := []float32{0, 1, 2, 3}
	dstMix := make([]float32, 4)
	dstCopy := make([]float32, 4)

	MixGain(dstMix, [][]float32{src}, []float32{1.0}, 4)
	Copy(dstCopy, src, 4)

	assert.Equal(t, dstCopy, dstMix)
}

func TestMixGainZeroSourcesClears(t *testing.T) {
	dst := []float32{9, 9, 9}
	MixGain(dst, nil, nil, 3)
	assert.Equal(t, []float32{0, 0, 0}, dst)
}

func TestMixGainTwoSources(t *testing.T) {
	a := []float32{1, 1, 1, 1}
	b := []float32{2, 2, 2, 2}
	dst := make([]float32, 4)

	MixGain(dst, [][]float32{a, b}, []float32{0.5, 0.25}, 4)

	for _, v := range dst {
		assert.InDelta(t, 1.0, v, 1e-6)
	}
}

func TestMixGainSharedGainWhenFewerGainsThanSources(t *testing.T) {
	a := []float32{1, 1}
	b := []float32{1, 1}
	c := []float32{1, 1}
	dst := make([]float32, 2)

	MixGain(dst, [][]float32{a, b, c}, []float32{0.5}, 2)

	for _, v := range dst {
		assert.InDelta(t, 1.5, v, 1e-6)
	}
}

func TestMixGainEqualGainOrderIndependent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(t, "n")
		srcs := make([][]float32, n)
		for i := range srcs {
			srcs[i] = []float32{rapid.Float32Range(-10, 10).Draw(t, "v")}
		}

		forward := make([]float32, 1)
		MixGain(forward, srcs, []float32{1.0}, 1)

		reversed := make([][]float32, n)
		for i, s := range srcs {
			reversed[n-1-i] = s
		}
		backward := make([]float32, 1)
		MixGain(backward, reversed, []float32{1.0}, 1)

		assert.Equal(t, forward, backward)
	})
}

func TestSum(t *testing.T) {
	r := make([]float32, 3)
	Sum(r, []float32{1, 2, 3}, []float32{10, 20, 30}, 3)
	assert.Equal(t, []float32{11, 22, 33}, r)
}

func TestLinearFastPaths(t *testing.T) {
	src := []float32{1, 2, 3}
	dst := make([]float32, 3)

	Linear(dst, src, 0, 5, 3)
	assert.Equal(t, []float32{5, 5, 5}, dst)

	Linear(dst, src, 1, 0, 3)
	assert.Equal(t, src, dst)

	Linear(dst, src, 2, 0, 3)
	assert.Equal(t, []float32{2, 4, 6}, dst)

	Linear(dst, src, 2, 1, 3)
	assert.Equal(t, []float32{3, 5, 7}, dst)
}

func TestDelayLinePassThroughWhenZero(t *testing.T) {
	dl := NewDelayLine(8)
	src := []float32{1, 2, 3, 4}
	dst := make([]float32, 4)
	dl.Run(dst, src, 4)
	assert.Equal(t, src, dst)
}

func TestDelayLineDelaysBySetAmount(t *testing.T) {
	dl := NewDelayLine(8)
	dl.SetDelay(2)
	dl.SetCoefficients(0, 0)

	src := []float32{1, 2, 3, 4, 5}
	dst := make([]float32, 5)
	dl.Run(dst, src, 5)

	require.Len(t, dst, 5)
	assert.Equal(t, []float32{0, 0, 1, 2, 3}, dst)
}

func TestFFTRoundTrip(t *testing.T) {
	f := NewFFT(8)
	src := []float64{1, 0, 0, 0, 0, 0, 0, 0}
	spec := make([]complex128, f.ComplexSize())
	f.Forward(spec, src)

	out := make([]float64, 8)
	f.Inverse(out, spec)
	for i := range out {
		out[i] /= float64(f.Size())
	}

	for i, v := range out {
		assert.InDelta(t, src[i], v, 1e-9)
	}
}
