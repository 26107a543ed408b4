package builtin

import (
	"math"

	"github.com/wirepod/wirepod/internal/plugin"
)

// unaryDescriptor builds the family of single-input, single-output,
// stateless sample transforms from plugin_builtin.c's node table: invert,
// clamp, linear, recip, exp, log, abs, sqrt. max has eight inputs and is
// built separately below.
func unaryDescriptor(name, description string, extraPorts []plugin.Port, fn func(x float64, i *unaryInstance) float64) *plugin.Descriptor {
	ports := append([]plugin.Port{
		audioPort("in", plugin.Input),
		audioPort("out", plugin.Output),
	}, extraPorts...)

	return &plugin.Descriptor{
		Name:        name,
		Description: description,
		Ports:       ports,
		New: func(cfg map[string]any, sampleRate float64) (plugin.Instance, error) {
			return &unaryInstance{ports: newPorts(), fn: fn}, nil
		},
	}
}

type unaryInstance struct {
	ports
	fn func(x float64, i *unaryInstance) float64
}

func (u *unaryInstance) Activate() error { return nil }

func (u *unaryInstance) Run(n int) error {
	in, out := u.in("in", n), u.out("out", n)
	for i := 0; i < n; i++ {
		out[i] = float32(u.fn(float64(in[i]), u))
	}
	return nil
}

var InvertDescriptor = unaryDescriptor("invert", "negates its input", nil,
	func(x float64, u *unaryInstance) float64 { return -x })

var ClampDescriptor = unaryDescriptor("clamp", "clamps its input to [min, max]",
	[]plugin.Port{controlPort("min", -1, -1000, 1000), controlPort("max", 1, -1000, 1000)},
	func(x float64, u *unaryInstance) float64 {
		lo, hi := u.control("min", -1), u.control("max", 1)
		return math.Max(lo, math.Min(x, hi))
	})

var LinearDescriptor = unaryDescriptor("linear", "applies dst = mult*src + add",
	[]plugin.Port{controlPort("mult", 1, -1000, 1000), controlPort("add", 0, -1000, 1000)},
	func(x float64, u *unaryInstance) float64 {
		return u.control("mult", 1)*x + u.control("add", 0)
	})

var RecipDescriptor = unaryDescriptor("recip", "computes the reciprocal of its input", nil,
	func(x float64, u *unaryInstance) float64 {
		if x == 0 {
			return 0
		}
		return 1 / x
	})

var ExpDescriptor = unaryDescriptor("exp", "computes e raised to its input", nil,
	func(x float64, u *unaryInstance) float64 { return math.Exp(x) })

var LogDescriptor = unaryDescriptor("log", "computes the natural log of its input", nil,
	func(x float64, u *unaryInstance) float64 {
		if x <= 0 {
			return 0
		}
		return math.Log(x)
	})

var AbsDescriptor = unaryDescriptor("abs", "computes the absolute value of its input", nil,
	func(x float64, u *unaryInstance) float64 { return math.Abs(x) })

var SqrtDescriptor = unaryDescriptor("sqrt", "computes the square root of its input", nil,
	func(x float64, u *unaryInstance) float64 {
		if x < 0 {
			return 0
		}
		return math.Sqrt(x)
	})

// MaxDescriptor takes the running elementwise maximum of up to eight
// inputs, mirroring mixer's port shape without the gain controls.
var MaxDescriptor = &plugin.Descriptor{
	Name:        "max",
	Description: "elementwise maximum of up to eight inputs",
	Ports: func() []plugin.Port {
		p := []plugin.Port{audioPort("out", plugin.Output)}
		for i := 0; i < mixerInputs; i++ {
			p = append(p, audioPort(inName(i), plugin.Input))
		}
		return p
	}(),
	New: func(cfg map[string]any, sampleRate float64) (plugin.Instance, error) {
		return &maxInstance{ports: newPorts()}, nil
	},
}

type maxInstance struct {
	ports
}

func (m *maxInstance) Activate() error { return nil }

func (m *maxInstance) Run(n int) error {
	out := m.out("out", n)
	first := true
	for i := 0; i < mixerInputs; i++ {
		src, connected := m.buf[inName(i)]
		if !connected {
			continue
		}
		if first {
			copy(out, src[:n])
			first = false
			continue
		}
		for j := 0; j < n; j++ {
			if src[j] > out[j] {
				out[j] = src[j]
			}
		}
	}
	if first {
		for i := range out {
			out[i] = 0
		}
	}
	return nil
}

// DebugDescriptor passes audio through unchanged while counting samples
// seen, exposed via a "count" notify port, for probing graph wiring during
// development.
var DebugDescriptor = &plugin.Descriptor{
	Name:        "debug",
	Description: "passthrough that counts samples seen",
	Ports: []plugin.Port{
		audioPort("in", plugin.Input),
		audioPort("out", plugin.Output),
		notifyPort("count", 0, 0, math.MaxFloat64),
	},
	New: func(cfg map[string]any, sampleRate float64) (plugin.Instance, error) {
		return &debugInstance{ports: newPorts()}, nil
	},
}

type debugInstance struct {
	ports
	count float64
}

func (d *debugInstance) Activate() error { return nil }

func (d *debugInstance) Run(n int) error {
	in, out := d.in("in", n), d.out("out", n)
	copy(out, in[:n])
	d.count += float64(n)
	d.setControl("count", d.count)
	return nil
}
