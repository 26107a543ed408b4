package graph

import "math"

// ScaleKind selects how a raw [0,1] volume fader maps onto a control
// port's [min,max] range.
type ScaleKind int

const (
	LinearScale ScaleKind = iota
	CubicScale
)

func parseScaleKind(s string) ScaleKind {
	if s == "cubic" {
		return CubicScale
	}
	return LinearScale
}

// VolumeChannel binds one fader to a named control port with a min/max
// range and a scale curve.
type VolumeChannel struct {
	Control string
	Min, Max float64
	Scale    ScaleKind
}

// VolumeGroup is one of the graph's two (input, output) volume groups: a
// per-channel fader array plus a shared mute flag.
type VolumeGroup struct {
	Channels []VolumeChannel
	Values   []float64 // current fader positions in [0,1]
	Mute     bool
}

func newVolumeGroup(cfgs []VolumeConfig) *VolumeGroup {
	g := &VolumeGroup{}
	for _, c := range cfgs {
		min, max := c.Min, c.Max
		if min == 0 && max == 0 {
			max = 1
		}
		g.Channels = append(g.Channels, VolumeChannel{
			Control: c.Control, Min: min, Max: max, Scale: parseScaleKind(c.Scale),
		})
	}
	g.Values = make([]float64, len(g.Channels))
	for i := range g.Values {
		g.Values[i] = 1.0
	}
	return g
}

// ControlValue computes channel i's scaled control value from its current
// fader position, applying mute.
func (g *VolumeGroup) ControlValue(i int) float64 {
	if g.Mute || i >= len(g.Channels) {
		return 0
	}
	ch := g.Channels[i]
	v := g.Values[i]

	var scaled float64
	switch ch.Scale {
	case CubicScale:
		scaled = math.Pow(v, 3)
	default:
		scaled = v
	}
	return ch.Min + scaled*(ch.Max-ch.Min)
}

// SetVolumes installs a new per-channel fader array, clamped to [0,1].
func (g *VolumeGroup) SetVolumes(values []float64) {
	for i, v := range values {
		if i >= len(g.Values) {
			break
		}
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		g.Values[i] = v
	}
}
