package builtin

import (
	"math"

	"github.com/wirepod/wirepod/internal/plugin"
)

// Ebur128Descriptor is a simplified EBU R128 loudness meter: momentary (400
// ms) and short-term (3 s) mean-square power converted to LUFS, plus a
// running sample peak. No K-weighting filter or gating is applied. The
// "integrated" notify port reports the momentary value, "range" always
// reports 0, and "truepeak" reports the sample peak; see DESIGN.md.
var Ebur128Descriptor = &plugin.Descriptor{
	Name:        "ebur128",
	Description: "EBU R128-style loudness meter",
	Ports: []plugin.Port{
		audioPort("in", plugin.Input),
		notifyPort("momentary", -70, -70, 0),
		notifyPort("shortterm", -70, -70, 0),
		notifyPort("integrated", -70, -70, 0),
		notifyPort("range", 0, 0, 60),
		notifyPort("samplepeak", 0, 0, 1),
		notifyPort("truepeak", 0, 0, 1),
	},
	New: func(cfg map[string]any, sampleRate float64) (plugin.Instance, error) {
		return &ebur128Instance{
			ports:           newPorts(),
			momentaryWindow: newPowerWindow(int(0.4 * sampleRate)),
			shortWindow:     newPowerWindow(int(3.0 * sampleRate)),
		}, nil
	},
}

// powerWindow is a running mean-square estimate over a fixed sample window.
type powerWindow struct {
	buf []float64
	pos int
	sum float64
	n   int
}

func newPowerWindow(size int) *powerWindow {
	if size < 1 {
		size = 1
	}
	return &powerWindow{buf: make([]float64, size)}
}

func (w *powerWindow) push(sq float64) float64 {
	w.sum -= w.buf[w.pos]
	w.buf[w.pos] = sq
	w.sum += sq
	w.pos = (w.pos + 1) % len(w.buf)
	if w.n < len(w.buf) {
		w.n++
	}
	return w.sum / float64(w.n)
}

func lufs(meanSquare float64) float64 {
	if meanSquare <= 0 {
		return -70
	}
	return -0.691 + 10*math.Log10(meanSquare)
}

type ebur128Instance struct {
	ports
	momentaryWindow *powerWindow
	shortWindow     *powerWindow
	peak            float64
}

func (e *ebur128Instance) Activate() error { return nil }

func (e *ebur128Instance) Run(n int) error {
	in := e.in("in", n)

	var mMean, sMean float64
	for i := 0; i < n; i++ {
		x := float64(in[i])
		sq := x * x
		mMean = e.momentaryWindow.push(sq)
		sMean = e.shortWindow.push(sq)
		if a := math.Abs(x); a > e.peak {
			e.peak = a
		}
	}

	mLoudness := lufs(mMean)
	sLoudness := lufs(sMean)

	e.setControl("momentary", mLoudness)
	e.setControl("shortterm", sLoudness)
	e.setControl("integrated", mLoudness)
	e.setControl("range", 0)
	e.setControl("samplepeak", e.peak)
	e.setControl("truepeak", e.peak)
	return nil
}
