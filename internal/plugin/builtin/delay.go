package builtin

import (
	"github.com/wirepod/wirepod/internal/dsp"
	"github.com/wirepod/wirepod/internal/plugin"
)

// DelayDescriptor is a circular-buffer delay sized for a configured maximum
// delay in seconds, with a "delay" control in seconds and a "Latency"
// notify port reporting the current delay in samples.
var DelayDescriptor = &plugin.Descriptor{
	Name:        "delay",
	Description: "circular-buffer delay line",
	Ports: []plugin.Port{
		audioPort("in", plugin.Input),
		audioPort("out", plugin.Output),
		controlPort("delay", 0, 0, 10),
		notifyPort("Latency", 0, 0, 1<<30),
	},
	New: func(cfg map[string]any, sampleRate float64) (plugin.Instance, error) {
		maxDelay := configFloat(cfg, "max-delay", 1.0)
		maxSamples := int(maxDelay*sampleRate) + 1
		if maxSamples < 1 {
			maxSamples = 1
		}
		return &delayInstance{
			ports:      newPorts(),
			dl:         dsp.NewDelayLine(maxSamples),
			sampleRate: sampleRate,
		}, nil
	},
}

type delayInstance struct {
	ports
	dl         *dsp.DelayLine
	sampleRate float64
	lastDelay  float64
	configured bool
}

func (d *delayInstance) Activate() error {
	d.apply()
	return nil
}

func (d *delayInstance) apply() {
	delay := d.control("delay", 0)
	if d.configured && delay == d.lastDelay {
		return
	}
	samples := int(delay * d.sampleRate)
	d.dl.SetDelay(samples)
	d.setControl("Latency", float64(samples))
	d.lastDelay = delay
	d.configured = true
}

func (d *delayInstance) Run(n int) error {
	d.apply()
	d.dl.Run(d.out("out", n), d.in("in", n), n)
	return nil
}
