package builtin

import (
	"github.com/wirepod/wirepod/internal/dsp"
	"github.com/wirepod/wirepod/internal/plugin"
)

// CopyDescriptor passes its input straight to its output. It is also the
// descriptor the graph core recognizes for COPY fan-out :
// an input slot bound to a copy node's input can drive several downstream
// consumers.
var CopyDescriptor = &plugin.Descriptor{
	Name:        "copy",
	Description: "passes one audio input straight through to one output",
	Ports: []plugin.Port{
		audioPort("in", plugin.Input),
		audioPort("out", plugin.Output),
	},
	New: func(cfg map[string]any, sampleRate float64) (plugin.Instance, error) {
		return &copyInstance{ports: newPorts()}, nil
	},
}

type copyInstance struct {
	ports
}

func (c *copyInstance) Activate() error { return nil }

func (c *copyInstance) Run(n int) error {
	dsp.Copy(c.out("out", n), c.in("in", n), n)
	return nil
}
