package builtin

import (
	"math"

	"github.com/wirepod/wirepod/internal/plugin"
)

type zeroRampState int

const (
	zrNormal zeroRampState = iota
	zrZero
	zrFadein
)

// ZeroRampDescriptor detects a run of consecutive zero samples at least
// "gap" long; once the run reaches "gap" samples it outputs a cosine
// fade-out of the last nonzero input value across "duration" samples,
// holds silence, then cosine-fades back in starting from the first nonzero
// sample, per the three-state machine.
var ZeroRampDescriptor = &plugin.Descriptor{
	Name:        "zeroramp",
	Description: "cosine fade to/from silence around runs of exact zero input",
	Ports: []plugin.Port{
		audioPort("in", plugin.Input),
		audioPort("out", plugin.Output),
		controlPort("gap", 256, 1, 1 << 20),
		controlPort("duration", 64, 1, 1 << 16),
	},
	New: func(cfg map[string]any, sampleRate float64) (plugin.Instance, error) {
		return &zeroRampInstance{ports: newPorts()}, nil
	},
}

type zeroRampInstance struct {
	ports
	state       zeroRampState
	zeroRun     int
	fadePos     int
	fadeLen     int
	lastNonzero float32
}

func (z *zeroRampInstance) Activate() error {
	z.state = zrNormal
	z.zeroRun = 0
	return nil
}

func cosineFade(pos, length int, fadeOut bool) float32 {
	if length <= 0 {
		return 0
	}
	t := float64(pos) / float64(length)
	g := 0.5 - 0.5*math.Cos(math.Pi*t)
	if fadeOut {
		g = 1 - g
	}
	return float32(g)
}

func (z *zeroRampInstance) Run(n int) error {
	gap := int(z.control("gap", 256))
	duration := int(z.control("duration", 64))

	in, out := z.in("in", n), z.out("out", n)

	for i := 0; i < n; i++ {
		x := in[i]

		switch z.state {
		case zrNormal:
			if x == 0 {
				z.zeroRun++
				if z.zeroRun >= gap {
					z.state = zrZero
					z.fadePos = 0
					z.fadeLen = duration
				}
				out[i] = x
			} else {
				z.zeroRun = 0
				out[i] = x
			}
		case zrZero:
			if z.fadePos < z.fadeLen {
				out[i] = z.lastNonzero * cosineFade(z.fadePos, z.fadeLen, true)
				z.fadePos++
			} else {
				out[i] = 0
			}
			if x != 0 {
				z.state = zrFadein
				z.fadePos = 0
				z.fadeLen = duration
			}
		case zrFadein:
			out[i] = x * cosineFade(z.fadePos, z.fadeLen, false)
			z.fadePos++
			if z.fadePos >= z.fadeLen {
				z.state = zrNormal
				z.zeroRun = 0
			}
		}

		if x != 0 {
			z.lastNonzero = x
		}
	}
	return nil
}
