package builtin

import "github.com/wirepod/wirepod/internal/plugin"

// DCBlockDescriptor is a first-order high-pass, y[n] = x[n] - x[n-1] +
// R*y[n-1], with the leak coefficient R shared by all channels the node is
// duplicated across .
var DCBlockDescriptor = &plugin.Descriptor{
	Name:        "dcblock",
	Description: "first-order DC-blocking high-pass",
	Ports: []plugin.Port{
		audioPort("in", plugin.Input),
		audioPort("out", plugin.Output),
		controlPort("R", 0.995, 0, 0.9999),
	},
	New: func(cfg map[string]any, sampleRate float64) (plugin.Instance, error) {
		return &dcBlockInstance{ports: newPorts()}, nil
	},
}

type dcBlockInstance struct {
	ports
	x1, y1 float64
}

func (d *dcBlockInstance) Activate() error { return nil }

func (d *dcBlockInstance) Run(n int) error {
	r := d.control("R", 0.995)
	in, out := d.in("in", n), d.out("out", n)
	x1, y1 := d.x1, d.y1
	for i := 0; i < n; i++ {
		x := float64(in[i])
		y := x - x1 + r*y1
		out[i] = float32(y)
		x1, y1 = x, y
	}
	d.x1, d.y1 = x1, y1
	return nil
}
