package builtin

import (
	"math"

	"github.com/wirepod/wirepod/internal/plugin"
)

type gateState int

const (
	gateClosed gateState = iota
	gateOpening
	gateHold
	gateOpen
	gateClosing
)

// NoisegateDescriptor implements a five-state noise gate:
// closed -> opening -> open -> hold -> closing -> (opening|closed), driven
// by an envelope follower with hysteresis between open_threshold and
// close_threshold. hold is entered from open when the envelope falls below
// close_threshold and returns to open if it rises back before the hold
// time runs out.
var NoisegateDescriptor = &plugin.Descriptor{
	Name:        "noisegate",
	Description: "envelope-following noise gate with attack/hold/release",
	Ports: []plugin.Port{
		audioPort("in", plugin.Input),
		audioPort("out", plugin.Output),
		controlPort("open_threshold", 0.01, 0, 1),
		controlPort("close_threshold", 0.005, 0, 1),
		controlPort("attack", 0.005, 0, 1),
		controlPort("hold", 0.1, 0, 2),
		controlPort("release", 0.05, 0, 2),
	},
	New: func(cfg map[string]any, sampleRate float64) (plugin.Instance, error) {
		return &noisegateInstance{ports: newPorts(), sampleRate: sampleRate, state: gateClosed}, nil
	},
}

type noisegateInstance struct {
	ports
	sampleRate float64
	state      gateState
	envelope   float64
	gain       float64
	holdSamplesLeft int
}

func (ng *noisegateInstance) Activate() error {
	ng.state = gateClosed
	ng.envelope = 0
	ng.gain = 0
	return nil
}

func (ng *noisegateInstance) Run(n int) error {
	openTh := ng.control("open_threshold", 0.01)
	closeTh := ng.control("close_threshold", 0.005)
	attack := ng.control("attack", 0.005)
	hold := ng.control("hold", 0.1)
	release := ng.control("release", 0.05)

	attackStep := 1.0 / math.Max(1, attack*ng.sampleRate)
	releaseStep := 1.0 / math.Max(1, release*ng.sampleRate)
	holdSamples := int(hold * ng.sampleRate)

	in, out := ng.in("in", n), ng.out("out", n)
	const envAlpha = 0.01

	for i := 0; i < n; i++ {
		x := float64(in[i])
		ng.envelope += envAlpha * (math.Abs(x) - ng.envelope)

		switch ng.state {
		case gateClosed:
			if ng.envelope >= openTh {
				ng.state = gateOpening
			}
		case gateOpening:
			ng.gain += attackStep
			if ng.gain >= 1 {
				ng.gain = 1
				ng.state = gateOpen
			}
		case gateOpen:
			if ng.envelope < closeTh {
				ng.state = gateHold
				ng.holdSamplesLeft = holdSamples
			}
		case gateHold:
			if ng.envelope >= closeTh {
				ng.state = gateOpen
				break
			}
			ng.holdSamplesLeft--
			if ng.holdSamplesLeft <= 0 {
				ng.state = gateClosing
			}
		case gateClosing:
			ng.gain -= releaseStep
			if ng.gain <= 0 {
				ng.gain = 0
				ng.state = gateClosed
			} else if ng.envelope >= openTh {
				ng.state = gateOpening
			}
		}

		out[i] = float32(x * ng.gain)
	}
	return nil
}
