package builtin

import (
	"github.com/wirepod/wirepod/internal/dsp/biquad"
	"github.com/wirepod/wirepod/internal/plugin"
)

const paramEqMaxBands = 64

// filterKindNames maps the param_eq preset vocabulary to biquad kinds.
var filterKindNames = map[string]biquad.Kind{
	"lowpass":   biquad.Lowpass,
	"highpass":  biquad.Highpass,
	"bandpass":  biquad.Bandpass,
	"lowshelf":  biquad.Lowshelf,
	"highshelf": biquad.Highshelf,
	"peaking":   biquad.Peaking,
	"notch":     biquad.Notch,
	"allpass":   biquad.Allpass,
}

// ParamEqDescriptor runs a per-channel cascade of up to paramEqMaxBands
// biquads plus an optional preamp stage. A negative preamp value is
// realized as a highshelf section at freq == 0, which (via
// internal/dsp/biquad's freq<=0 highshelf branch) reduces to a flat gain of
// 10^(preamp/20), the same factor a true preamp multiply would apply.
var ParamEqDescriptor = &plugin.Descriptor{
	Name:        "param_eq",
	Description: "cascade of up to 64 biquad bands plus an optional preamp",
	Ports: []plugin.Port{
		audioPort("in", plugin.Input),
		audioPort("out", plugin.Output),
	},
	New: func(cfg map[string]any, sampleRate float64) (plugin.Instance, error) {
		var cascade biquad.Cascade

		preamp := configFloat(cfg, "preamp", 0)
		if preamp < 0 {
			cascade = append(cascade, biquad.NewSection(biquad.Highshelf, 0, 0.707, preamp))
		}

		filters, _ := cfg["filters"].([]map[string]any)
		if len(filters) > paramEqMaxBands {
			return nil, plugin.Errorf(plugin.BadConfig, "param_eq: %d filters exceeds the %d-band limit", len(filters), paramEqMaxBands)
		}
		for _, f := range filters {
			kind, ok := filterKindNames[configString(f, "type", "peaking")]
			if !ok {
				return nil, plugin.Errorf(plugin.BadConfig, "param_eq: unknown filter type %q", f["type"])
			}
			freq := configFloat(f, "freq", 1000) / (sampleRate / 2)
			q := configFloat(f, "q", 0.707)
			gain := configFloat(f, "gain", 0)
			cascade = append(cascade, biquad.NewSection(kind, freq, q, gain))
		}

		return &paramEqInstance{ports: newPorts(), cascade: cascade}, nil
	},
}

type paramEqInstance struct {
	ports
	cascade biquad.Cascade
	scratch []float32
}

func (p *paramEqInstance) Activate() error { return nil }

func (p *paramEqInstance) Run(n int) error {
	if cap(p.scratch) < n {
		p.scratch = make([]float32, n)
	}
	p.cascade.Run(p.out("out", n), p.in("in", n), n, p.scratch[:n])
	return nil
}
