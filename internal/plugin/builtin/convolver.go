package builtin

import (
	"math"

	"github.com/wirepod/wirepod/internal/dsp/convolver"
	"github.com/wirepod/wirepod/internal/plugin"
)

// ConvolverDescriptor wraps internal/dsp/convolver as a graph node. Its
// config accepts: blocksize, filename ("/dirac", "/hilbert", or a []float32
// of samples; an "inline_ir" []float32 is also accepted), gain, delay in
// seconds. tailsize is not read; the head/tail split is internal to
// internal/dsp/convolver. String IRs other than "/dirac" and "/hilbert",
// including the "/ir:[rate, samples...]" form, are rejected with BadConfig.
var ConvolverDescriptor = &plugin.Descriptor{
	Name:        "convolver",
	Description: "FFT convolution against a loaded or synthetic impulse response",
	Ports: []plugin.Port{
		audioPort("in", plugin.Input),
		audioPort("out", plugin.Output),
	},
	New: func(cfg map[string]any, sampleRate float64) (plugin.Instance, error) {
		blockSize := configInt(cfg, "blocksize", 256)
		gain := configFloat(cfg, "gain", 1.0)
		delaySeconds := configFloat(cfg, "delay", 0)

		ir, err := loadIR(cfg, sampleRate)
		if err != nil {
			return nil, err
		}

		delaySamples := int(delaySeconds * sampleRate)
		if delaySamples > 0 {
			padded := make([]float32, delaySamples+len(ir))
			copy(padded[delaySamples:], ir)
			ir = padded
		}

		for i := range ir {
			ir[i] *= float32(gain)
		}

		return &convolverInstance{
			ports: newPorts(),
			conv:  convolver.New(ir, blockSize),
		}, nil
	},
}

// loadIR resolves the "filename" config entry into a sample buffer. Real
// file-backed impulse responses (WAV) are the graph's job to resolve to an
// inline array before construction; this resolves the two synthetic forms
// plus an inline literal array of samples.
func loadIR(cfg map[string]any, sampleRate float64) ([]float32, error) {
	filename := configString(cfg, "filename", "/dirac")

	switch filename {
	case "/dirac":
		ir := make([]float32, 1)
		ir[0] = 1
		return ir, nil
	case "/hilbert":
		return hilbertIR(255), nil
	}

	if samples, ok := cfg["filename"].([]float32); ok {
		return samples, nil
	}
	if samples, ok := cfg["inline_ir"].([]float32); ok {
		return samples, nil
	}

	return nil, plugin.Errorf(plugin.BadConfig, "convolver: unsupported filename %q (file-backed IRs must be pre-resolved by the host)", filename)
}

// hilbertIR builds a windowed discrete Hilbert transformer of odd length n,
// the synthetic "/hilbert" impulse response.
func hilbertIR(n int) []float32 {
	if n%2 == 0 {
		n++
	}
	ir := make([]float32, n)
	mid := n / 2
	for i := 0; i < n; i++ {
		k := i - mid
		if k == 0 || k%2 == 0 {
			continue
		}
		w := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1)) // Hann window
		ir[i] = float32(w * 2 / (math.Pi * float64(k)))
	}
	return ir
}

type convolverInstance struct {
	ports
	conv *convolver.Convolver
}

func (c *convolverInstance) Activate() error {
	c.conv.Reset()
	return nil
}

func (c *convolverInstance) Run(n int) error {
	c.conv.Run(c.out("out", n), c.in("in", n), n)
	return nil
}
