package builtin

import (
	"github.com/wirepod/wirepod/internal/dsp/biquad"
	"github.com/wirepod/wirepod/internal/plugin"
)

// biquadKinds maps each builtin label to its biquad.Kind, following
// plugin_builtin.c's bq_lowpass..bq_raw label table.
var biquadKinds = map[string]biquad.Kind{
	"bq_lowpass":  biquad.Lowpass,
	"bq_highpass": biquad.Highpass,
	"bq_bandpass": biquad.Bandpass,
	"bq_lowshelf": biquad.Lowshelf,
	"bq_highshelf": biquad.Highshelf,
	"bq_peaking":  biquad.Peaking,
	"bq_notch":    biquad.Notch,
	"bq_allpass":  biquad.Allpass,
	"bq_raw":      biquad.Raw,
}

// NewBiquadDescriptor builds the descriptor for one bq_* label. Every kind
// shares the same port layout: one audio input/output and the control
// ports needed to redesign the section (Freq, Q, Gain, or the six raw
// coefficients for bq_raw).
func NewBiquadDescriptor(label string) *plugin.Descriptor {
	kind := biquadKinds[label]

	ports := []plugin.Port{
		audioPort("in", plugin.Input),
		audioPort("out", plugin.Output),
	}
	if kind == biquad.Raw {
		ports = append(ports,
			controlPort("b0", 1, -10, 10),
			controlPort("b1", 0, -10, 10),
			controlPort("b2", 0, -10, 10),
			controlPort("a0", 1, -10, 10),
			controlPort("a1", 0, -10, 10),
			controlPort("a2", 0, -10, 10),
		)
	} else {
		ports = append(ports,
			plugin.Port{Name: "Freq", Direction: plugin.Input, IsControl: true, Default: 0.25, Min: 0, Max: 1},
			controlPort("Q", 0.707, 0, 10),
			controlPort("Gain", 0, -60, 60),
		)
	}

	return &plugin.Descriptor{
		Name:        label,
		Description: "single biquad section: " + label,
		Ports:       ports,
		New: func(cfg map[string]any, sampleRate float64) (plugin.Instance, error) {
			return &biquadInstance{
				ports: newPorts(),
				kind:  kind,
				sec:   biquad.NewSection(kind, 0.25, 0.707, 0),
			}, nil
		},
	}
}

type biquadInstance struct {
	ports
	kind biquad.Kind
	sec  *biquad.Section

	lastFreq, lastQ, lastGain               float64
	lastB0, lastB1, lastB2, lastA0, lastA1, lastA2 float64
	configured                               bool
}

func (b *biquadInstance) Activate() error {
	b.reconfigureIfChanged()
	return nil
}

// reconfigureIfChanged redesigns the section only when its controls
// actually moved: coefficients are recomputed only when Freq, Q, or Gain
// changes.
func (b *biquadInstance) reconfigureIfChanged() {
	if b.kind == biquad.Raw {
		b0, b1, b2 := b.control("b0", 1), b.control("b1", 0), b.control("b2", 0)
		a0, a1, a2 := b.control("a0", 1), b.control("a1", 0), b.control("a2", 0)
		if b.configured && b0 == b.lastB0 && b1 == b.lastB1 && b2 == b.lastB2 &&
			a0 == b.lastA0 && a1 == b.lastA1 && a2 == b.lastA2 {
			return
		}
		b.sec.SetRaw(b0, b1, b2, a0, a1, a2)
		b.lastB0, b.lastB1, b.lastB2, b.lastA0, b.lastA1, b.lastA2 = b0, b1, b2, a0, a1, a2
		b.configured = true
		return
	}

	freq, q, gain := b.control("Freq", 0.25), b.control("Q", 0.707), b.control("Gain", 0)
	if b.configured && freq == b.lastFreq && q == b.lastQ && gain == b.lastGain {
		return
	}
	b.sec.Reconfigure(freq, q, gain)
	b.lastFreq, b.lastQ, b.lastGain = freq, q, gain
	b.configured = true
}

func (b *biquadInstance) Run(n int) error {
	b.reconfigureIfChanged()
	b.sec.Run(b.out("out", n), b.in("in", n), n)
	return nil
}
