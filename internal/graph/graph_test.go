package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wirepod/wirepod/internal/plugin"
	"github.com/wirepod/wirepod/internal/plugin/builtin"
)

func newRegistry() *plugin.Registry {
	r := plugin.NewRegistry()
	r.Register(builtin.NewLoader())
	builtin.RegisterUnsupportedLoaders(r)
	return r
}

// TestCopyPassthroughGraph runs the copy-passthrough scenario through the
// full graph lifecycle instead of a bare node instance.
func TestCopyPassthroughGraph(t *testing.T) {
	cfg := &Config{
		NInputs:  1,
		NOutputs: 1,
		Nodes: []NodeConfig{
			{Type: "builtin", Name: "c", Label: "copy"},
		},
		Inputs:  []string{"in"},
		Outputs: []string{"out"},
	}

	g, err := Load(cfg, newRegistry(), 48000)
	require.NoError(t, err)
	require.NoError(t, g.Setup(1, 1))
	require.NoError(t, g.Activate(4))

	in := []float32{0, 1, 2, 3}
	out := make([]float32, 4)
	require.NoError(t, g.Run([][]float32{in}, [][]float32{out}, 4))

	assert.Equal(t, in, out)
}

// TestMixerGraphWithGains runs the two-input mixer scenario through the
// full graph, with controls set through SetControls.
func TestMixerGraphWithGains(t *testing.T) {
	cfg := &Config{
		NInputs:  2,
		NOutputs: 1,
		Nodes: []NodeConfig{
			{Type: "builtin", Name: "m", Label: "mixer", Control: map[string]float64{
				"gain0": 0.5, "gain1": 0.25,
			}},
		},
		Links: []LinkConfig{},
		Inputs:  []string{"m:in0", "m:in1"},
		Outputs: []string{"m:out"},
	}

	g, err := Load(cfg, newRegistry(), 48000)
	require.NoError(t, err)
	require.NoError(t, g.Setup(2, 1))
	require.NoError(t, g.Activate(4))

	a := []float32{1, 1, 1, 1}
	b := []float32{2, 2, 2, 2}
	out := make([]float32, 4)
	require.NoError(t, g.Run([][]float32{a, b}, [][]float32{out}, 4))

	for _, v := range out {
		assert.InDelta(t, 1.0, v, 1e-6)
	}
}

// TestTopologyRejection verifies a cycle A -> B -> A fails Setup.
func TestTopologyRejection(t *testing.T) {
	cfg := &Config{
		Nodes: []NodeConfig{
			{Type: "builtin", Name: "a", Label: "invert"},
			{Type: "builtin", Name: "b", Label: "invert"},
		},
		Links: []LinkConfig{
			{Output: "a:out", Input: "b:in"},
			{Output: "b:out", Input: "a:in"},
		},
		Inputs:  []string{"a:in"},
		Outputs: []string{"b:out"},
	}

	g, err := Load(cfg, newRegistry(), 48000)
	require.NoError(t, err)
	err = g.Setup(1, 1)
	require.Error(t, err)
	var pe *plugin.Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, plugin.Invalid, pe.Kind)
}
