package builtin

import (
	"github.com/wirepod/wirepod/internal/dsp/convolver"
	"github.com/wirepod/wirepod/internal/plugin"
)

// SpatializerDescriptor streams a mono input through two convolvers, left
// and right ear HRTFs. An actual SOFA-dataset lookup belongs to the "sofa"
// plugin loader (registered separately, and a NotSupported stub in this
// build; see internal/plugin/builtin/loader.go); this descriptor takes
// pre-resolved left/right impulse responses via config. The azimuth and
// elevation control ports are exposed but not read, there is no radius
// control, and control changes do not trigger a reload; Reload swaps in
// new impulse responses with a one-block crossfade when called directly.
var SpatializerDescriptor = &plugin.Descriptor{
	Name:        "spatializer",
	Description: "binaural HRTF convolution with crossfaded reload",
	Ports: []plugin.Port{
		audioPort("in", plugin.Input),
		audioPort("outL", plugin.Output),
		audioPort("outR", plugin.Output),
		controlPort("azimuth", 0, -180, 180),
		controlPort("elevation", 0, -90, 90),
	},
	New: func(cfg map[string]any, sampleRate float64) (plugin.Instance, error) {
		blockSize := configInt(cfg, "blocksize", 256)
		lIR, lOK := cfg["ir_left"].([]float32)
		rIR, rOK := cfg["ir_right"].([]float32)
		if !lOK || !rOK {
			return nil, plugin.Errorf(plugin.BadConfig, "spatializer: config requires ir_left and ir_right (resolved by the sofa loader upstream)")
		}

		return &spatializerInstance{
			ports:     newPorts(),
			blockSize: blockSize,
			convL:     convolver.New(lIR, blockSize),
			convR:     convolver.New(rIR, blockSize),
		}, nil
	},
}

type spatializerInstance struct {
	ports
	blockSize int

	convL, convR *convolver.Convolver

	// crossfade targets, set by a reload; nil when no reload is pending.
	pendingL, pendingR *convolver.Convolver
	fadePos            int
}

func (s *spatializerInstance) Activate() error { return nil }

// Reload swaps in new HRTF convolvers, crossfading across one block instead
// of switching instantaneously.
func (s *spatializerInstance) Reload(lIR, rIR []float32) {
	s.pendingL = convolver.New(lIR, s.blockSize)
	s.pendingR = convolver.New(rIR, s.blockSize)
	s.fadePos = 0
}

func (s *spatializerInstance) Run(n int) error {
	in := s.in("in", n)
	outL, outR := s.out("outL", n), s.out("outR", n)

	s.convL.Run(outL, in, n)
	s.convR.Run(outR, in, n)

	if s.pendingL == nil {
		return nil
	}

	newL := make([]float32, n)
	newR := make([]float32, n)
	s.pendingL.Run(newL, in, n)
	s.pendingR.Run(newR, in, n)

	for i := 0; i < n; i++ {
		t := float32(s.fadePos+i) / float32(n)
		outL[i] = outL[i]*(1-t) + newL[i]*t
		outR[i] = outR[i]*(1-t) + newR[i]*t
	}

	s.convL, s.convR = s.pendingL, s.pendingR
	s.pendingL, s.pendingR = nil, nil
	return nil
}
