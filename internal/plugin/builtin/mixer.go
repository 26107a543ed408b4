package builtin

import (
	"github.com/wirepod/wirepod/internal/dsp"
	"github.com/wirepod/wirepod/internal/plugin"
)

const mixerInputs = 8

// MixerDescriptor sums up to eight gain-scaled inputs into one output.
// plugin_builtin.c's mixer_impl and "equal-gain
// fast path" contract, implemented here via internal/dsp.MixGain, which
// already special-cases the zero- and one-source cases.
var MixerDescriptor = &plugin.Descriptor{
	Name:        "mixer",
	Description: "sums up to eight inputs, each with its own gain control",
	Ports: func() []plugin.Port {
		p := []plugin.Port{audioPort("out", plugin.Output)}
		for i := 0; i < mixerInputs; i++ {
			p = append(p, audioPort(inName(i), plugin.Input))
			p = append(p, controlPort(gainName(i), 1.0, 0, 10))
		}
		return p
	}(),
	New: func(cfg map[string]any, sampleRate float64) (plugin.Instance, error) {
		return &mixerInstance{
			ports: newPorts(),
			srcs:  make([][]float32, 0, mixerInputs),
			gains: make([]float32, 0, mixerInputs),
		}, nil
	},
}

func inName(i int) string   { return "in" + itoa(i) }
func gainName(i int) string { return "gain" + itoa(i) }

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := []byte{}
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}

type mixerInstance struct {
	ports
	srcs  [][]float32
	gains []float32
}

func (m *mixerInstance) Activate() error { return nil }

func (m *mixerInstance) Run(n int) error {
	srcs := m.srcs[:0]
	gains := m.gains[:0]
	for i := 0; i < mixerInputs; i++ {
		buf, connected := m.buf[inName(i)]
		if !connected {
			continue
		}
		srcs = append(srcs, buf)
		gains = append(gains, float32(m.control(gainName(i), 1.0)))
	}
	m.srcs, m.gains = srcs, gains
	// Equal-gain fast path: a single shared gain makes MixGain sum the
	// sources first and scale the total once.
	if len(gains) > 1 {
		equal := true
		for _, g := range gains[1:] {
			if g != gains[0] {
				equal = false
				break
			}
		}
		if equal {
			gains = gains[:1]
		}
	}
	dsp.MixGain(m.out("out", n), srcs, gains, n)
	return nil
}
