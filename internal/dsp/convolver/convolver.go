// Package convolver implements uniform-partitioned FFT convolution with a
// direct-form head section, the filter-graph's C convolver
// (spa/plugins/filter-graph/convolver.c): short impulse responses run
// entirely in the time domain, long ones split into a direct head plus one
// or more frequency-domain tail partitions so that processing latency stays
// at one block instead of one FFT size.
package convolver

import "github.com/wirepod/wirepod/internal/dsp"

// direct runs a short impulse response (or the head segment of a longer
// one) by brute-force time-domain convolution.
type direct struct {
	ir  []float32
	buf []float32 // circular history, length len(ir)
	pos int
}

func newDirect(ir []float32) *direct {
	d := &direct{ir: ir, buf: make([]float32, len(ir))}
	return d
}

func (d *direct) reset() {
	dsp.Clear(d.buf, len(d.buf))
	d.pos = 0
}

// run adds this segment's contribution for n input samples into dst, which
// must already hold any other segments' contributions (segments accumulate,
// they do not overwrite).
func (d *direct) run(dst, src []float32, n int) {
	ir := d.ir
	buf := d.buf
	L := len(buf)
	if L == 0 {
		return
	}

	for i := 0; i < n; i++ {
		buf[d.pos] = src[i]

		var sum float32
		p := d.pos
		for k := 0; k < L; k++ {
			sum += ir[k] * buf[p]
			p--
			if p < 0 {
				p = L - 1
			}
		}
		dst[i] += sum

		d.pos++
		if d.pos >= L {
			d.pos = 0
		}
	}
}

// partition is one uniformly-partitioned frequency-domain tail segment: the
// IR segment's half-complex spectrum. The ring of input-block spectra and
// the accumulated output spectrum live on the Convolver.
type partition struct {
	irSpectrum []complex128
}

// Convolver runs a (possibly long) impulse response against a block stream.
// Input arrives in fixed-size blocks of blockSize samples; Run must always
// be called with exactly that many samples.
type Convolver struct {
	blockSize int
	head      *direct // time-domain head, length <= directHeadLen

	fft        *dsp.FFT
	segSize    int // 2*blockSize, the FFT size for tail partitions
	partitions []partition
	ring       [][]complex128 // ring of input spectra, one per partition delay slot
	ringPos    int
	sumSpec    []complex128

	inBuf     []float32 // sliding window of 2 blocks for overlap-save
	fdOut     []float32
	scale     float64
	delayLine []float32 // compensates head-only latency vs partitioned path

	// Run scratch, sized once at New and reused on every call so the
	// real-time audio path never allocates.
	delayedScratch []float32
	freqScratch    []float64
	specScratch    []complex128
	outScratch     []float64
}

const directHeadLen = 256

// New builds a convolver for the given impulse response and block size,
// following convolver.c: the first directHeadLen taps (or the whole IR, if
// shorter) run in the time domain; any remaining taps are partitioned into
// segSize = 2*blockSize FFT blocks processed via overlap-save.
func New(ir []float32, blockSize int) *Convolver {
	if blockSize <= 0 {
		blockSize = 1
	}
	c := &Convolver{blockSize: blockSize}

	headLen := directHeadLen
	if headLen > len(ir) {
		headLen = len(ir)
	}
	c.head = newDirect(ir[:headLen])

	tail := ir[headLen:]
	if len(tail) == 0 {
		return c
	}
	// The partitioned path adds no latency of its own, so the tail taps are
	// shifted by the head length plus the one-block delay applied to the
	// head, keeping every tap at its place relative to ir[0].
	padded := make([]float32, blockSize+headLen+len(tail))
	copy(padded[blockSize+headLen:], tail)
	tail = padded

	segSize := 2 * blockSize
	c.segSize = segSize
	c.fft = dsp.NewFFT(segSize)
	complexSize := c.fft.ComplexSize()

	nPart := (len(tail) + blockSize - 1) / blockSize
	c.partitions = make([]partition, nPart)
	c.ring = make([][]complex128, nPart)
	for i := 0; i < nPart; i++ {
		seg := make([]float64, segSize)
		start := i * blockSize
		end := start + blockSize
		if end > len(tail) {
			end = len(tail)
		}
		for j := start; j < end; j++ {
			seg[j-start] = float64(tail[j])
		}
		spec := make([]complex128, complexSize)
		c.fft.Forward(spec, seg)
		c.partitions[i].irSpectrum = spec
		c.ring[i] = make([]complex128, complexSize)
	}

	c.sumSpec = make([]complex128, complexSize)
	c.inBuf = make([]float32, segSize)
	c.fdOut = make([]float32, segSize)
	// The head path is delayed by one block, the convolver's reported
	// latency; the tail partitions above carry the matching offset.
	c.delayLine = make([]float32, blockSize)
	c.scale = 1.0 / float64(segSize)

	c.delayedScratch = make([]float32, blockSize)
	c.freqScratch = make([]float64, segSize)
	c.specScratch = make([]complex128, complexSize)
	c.outScratch = make([]float64, segSize)

	return c
}

// Reset clears all running state (history buffers, ring of partition
// spectra), as if newly constructed.
func (c *Convolver) Reset() {
	c.head.reset()
	for i := range c.ring {
		for j := range c.ring[i] {
			c.ring[i][j] = 0
		}
	}
	c.ringPos = 0
	dsp.Clear(c.delayLine, len(c.delayLine))
	dsp.Clear(c.inBuf, len(c.inBuf))
}

// Latency returns the processing latency in samples introduced by the
// tail's overlap-save block buffering; zero when the impulse response is
// short enough to run entirely in the direct head.
func (c *Convolver) Latency() int {
	if len(c.partitions) == 0 {
		return 0
	}
	return c.blockSize
}

// Run convolves exactly blockSize samples from src into dst.
func (c *Convolver) Run(dst, src []float32, n int) {
	if n != c.blockSize {
		n = c.blockSize
	}

	if len(c.partitions) == 0 {
		dsp.Clear(dst, n)
		c.head.run(dst, src, n)
		return
	}

	dsp.Clear(dst, n)

	// Delay the direct head's contribution by one block, the convolver's
	// reported latency; the tail partitions are offset in New to match.
	delayed := c.delayedScratch[:n]
	copy(delayed, c.delayLine)
	copy(c.delayLine, src[:n])
	c.head.run(dst, delayed, n)

	// Slide the two-block input window and transform it.
	copy(c.inBuf, c.inBuf[c.blockSize:])
	copy(c.inBuf[c.blockSize:], src[:n])

	freq := c.freqScratch
	for i, v := range c.inBuf {
		freq[i] = float64(v)
	}
	newSpec := c.specScratch
	c.fft.Forward(newSpec, freq)

	copy(c.ring[c.ringPos], newSpec)

	for i := range c.sumSpec {
		c.sumSpec[i] = 0
	}
	np := len(c.partitions)
	for k := 0; k < np; k++ {
		idx := c.ringPos - k
		if idx < 0 {
			idx += np
		}
		dsp.CMulAdd(c.sumSpec, c.sumSpec, c.ring[idx], c.partitions[k].irSpectrum, len(c.sumSpec), c.scale)
	}

	c.ringPos++
	if c.ringPos >= np {
		c.ringPos = 0
	}

	out := c.outScratch
	c.fft.Inverse(out, c.sumSpec)

	// Overlap-save: the second half of the transformed block is the valid,
	// non-circular-wrapped convolution result for this block.
	half := c.segSize / 2
	for i := 0; i < n; i++ {
		dst[i] += float32(out[half+i])
	}
}
