package builtin

import (
	"math"

	"github.com/wirepod/wirepod/internal/plugin"
)

// SineDescriptor is a free-running oscillator with a phase accumulator, so
// its frequency can change between blocks without a phase discontinuity at
// block boundaries (the generator never resets phase to zero per-block).
var SineDescriptor = &plugin.Descriptor{
	Name:        "sine",
	Description: "free-running sine oscillator",
	Ports: []plugin.Port{
		audioPort("out", plugin.Output),
		controlPort("freq", 440, 0, 22000),
		controlPort("volume", 1.0, 0, 10),
	},
	New: func(cfg map[string]any, sampleRate float64) (plugin.Instance, error) {
		return &sineInstance{ports: newPorts(), sampleRate: sampleRate}, nil
	},
}

type sineInstance struct {
	ports
	sampleRate float64
	phase      float64
}

func (s *sineInstance) Activate() error { return nil }

func (s *sineInstance) Run(n int) error {
	freq := s.control("freq", 440)
	vol := s.control("volume", 1.0)
	step := 2 * math.Pi * freq / s.sampleRate

	out := s.out("out", n)
	for i := 0; i < n; i++ {
		out[i] = float32(vol * math.Sin(s.phase))
		s.phase += step
		if s.phase >= 2*math.Pi {
			s.phase -= 2 * math.Pi
		}
	}
	return nil
}
