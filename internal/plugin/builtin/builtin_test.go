package builtin

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCopyPassthrough verifies the pass-through copy node forwards samples unchanged.
func TestCopyPassthrough(t *testing.T) {
	inst, err := CopyDescriptor.New(nil, 48000)
	require.NoError(t, err)

	in := []float32{0.0, 1.0, 2.0, 3.0}
	out := make([]float32, 4)
	require.NoError(t, inst.ConnectPort("in", in))
	require.NoError(t, inst.ConnectPort("out", out))
	require.NoError(t, inst.Activate())
	require.NoError(t, inst.Run(4))

	assert.Equal(t, in, out)
}

// TestMixerTwoGains verifies per-input gain application before summing.
func TestMixerTwoGains(t *testing.T) {
	inst, err := MixerDescriptor.New(nil, 48000)
	require.NoError(t, err)

	a := []float32{1, 1, 1, 1}
	b := []float32{2, 2, 2, 2}
	gA := []float32{0.5}
	gB := []float32{0.25}
	out := make([]float32, 4)

	require.NoError(t, inst.ConnectPort("in0", a))
	require.NoError(t, inst.ConnectPort("gain0", gA))
	require.NoError(t, inst.ConnectPort("in1", b))
	require.NoError(t, inst.ConnectPort("gain1", gB))
	require.NoError(t, inst.ConnectPort("out", out))
	require.NoError(t, inst.Activate())
	require.NoError(t, inst.Run(4))

	for _, v := range out {
		assert.InDelta(t, 1.0, v, 1e-6)
	}
}

// TestBiquadLowpassIdentityAtFreqOne verifies a lowpass biquad at the
// Nyquist-normalized cutoff passes an impulse through unchanged.
func TestBiquadLowpassIdentityAtFreqOne(t *testing.T) {
	d := NewBiquadDescriptor("bq_lowpass")
	inst, err := d.New(nil, 48000)
	require.NoError(t, err)

	freq := []float32{1.0}
	q := []float32{0.7}
	gain := []float32{0}
	in := []float32{1, 0, 0, 0, 0}
	out := make([]float32, 5)

	require.NoError(t, inst.ConnectPort("Freq", freq))
	require.NoError(t, inst.ConnectPort("Q", q))
	require.NoError(t, inst.ConnectPort("Gain", gain))
	require.NoError(t, inst.ConnectPort("in", in))
	require.NoError(t, inst.ConnectPort("out", out))
	require.NoError(t, inst.Activate())
	require.NoError(t, inst.Run(5))

	assert.InDelta(t, 1.0, out[0], 1e-9)
	for _, v := range out[1:] {
		assert.InDelta(t, 0.0, v, 1e-9)
	}
}

// TestConvolverDiracGain verifies a Dirac impulse response scales input by its gain.
func TestConvolverDiracGain(t *testing.T) {
	cfg := map[string]any{"filename": "/dirac", "gain": 2.0, "blocksize": 1}
	inst, err := ConvolverDescriptor.New(cfg, 48000)
	require.NoError(t, err)

	in := []float32{0.5}
	out := make([]float32, 1)
	require.NoError(t, inst.ConnectPort("in", in))
	require.NoError(t, inst.ConnectPort("out", out))
	require.NoError(t, inst.Activate())
	require.NoError(t, inst.Run(1))

	assert.InDelta(t, 1.0, out[0], 1e-6)
}

// TestParamEqPreampEnergy verifies a
// -6 dB preamp with no bands scales an impulse by 10^(-6/20), within 1%,
// so the integrated magnitude of the one-sample response equals that factor.
func TestParamEqPreampEnergy(t *testing.T) {
	cfg := map[string]any{"preamp": -6.0}
	inst, err := ParamEqDescriptor.New(cfg, 48000)
	require.NoError(t, err)

	in := []float32{1, 0, 0, 0}
	out := make([]float32, 4)
	require.NoError(t, inst.ConnectPort("in", in))
	require.NoError(t, inst.ConnectPort("out", out))
	require.NoError(t, inst.Activate())
	require.NoError(t, inst.Run(4))

	// The highshelf-at-freq=0 degenerate case yields a flat amplitude gain
	// of A^2 == 10^(gainDB/20) (the Audio EQ Cookbook's A is 10^(gainDB/40)),
	// so the impulse comes out as a single sample of that amplitude.
	want := math.Pow(10, -6.0/20.0)
	assert.InEpsilon(t, want, math.Abs(float64(out[0])), 0.01)
}

func TestDcBlockRemovesOffset(t *testing.T) {
	inst, err := DCBlockDescriptor.New(nil, 48000)
	require.NoError(t, err)

	in := make([]float32, 2000)
	for i := range in {
		in[i] = 1.0
	}
	out := make([]float32, len(in))
	require.NoError(t, inst.ConnectPort("in", in))
	require.NoError(t, inst.ConnectPort("out", out))
	require.NoError(t, inst.Activate())
	require.NoError(t, inst.Run(len(in)))

	assert.InDelta(t, 0.0, out[len(out)-1], 0.05)
}

func TestLoaderResolvesBuiltinLabels(t *testing.T) {
	l := NewLoader()
	d, err := l.Load("mixer")
	require.NoError(t, err)
	assert.Equal(t, "mixer", d.Name)

	_, err = l.Load("nonexistent")
	assert.Error(t, err)
}
