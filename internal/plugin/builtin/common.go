// Package builtin implements the filter-graph's fixed catalog of roughly
// thirty audio nodes, spa/plugins/filter-graph/plugin_builtin.c's
// node table. Every node is a plugin.Descriptor whose Instance stores the
// buffers bound by ConnectPort in a small map rather than a vtable, since Go
// has no equivalent of the C ancestor's function-pointer struct.
package builtin

import "github.com/wirepod/wirepod/internal/plugin"

// ports is the common per-instance port-buffer table every builtin node
// instance embeds. It is not an Instance by itself; node types embed it and
// implement Run.
type ports struct {
	buf map[string][]float32
}

func newPorts() ports {
	return ports{buf: make(map[string][]float32)}
}

func (p *ports) ConnectPort(name string, buf []float32) error {
	p.buf[name] = buf
	return nil
}

func (p *ports) Deactivate() error { return nil }
func (p *ports) Cleanup() error    { return nil }

// in returns the named audio port's buffer, or a zero-valued scratch buffer
// of length n if the port is unconnected (the silence convention used for
// unlinked graph inputs).
func (p *ports) in(name string, n int) []float32 {
	b, ok := p.buf[name]
	if !ok || b == nil {
		return make([]float32, n)
	}
	return b
}

// out returns the named audio port's buffer, or a scratch discard buffer if
// unconnected.
func (p *ports) out(name string, n int) []float32 {
	b, ok := p.buf[name]
	if !ok || b == nil {
		return make([]float32, n)
	}
	return b
}

// control reads a one-element control port, defaulting when unconnected.
func (p *ports) control(name string, def float64) float64 {
	b, ok := p.buf[name]
	if !ok || len(b) == 0 {
		return def
	}
	return float64(b[0])
}

// setControl writes a one-element notify control port, if connected.
func (p *ports) setControl(name string, v float64) {
	if b, ok := p.buf[name]; ok && len(b) > 0 {
		b[0] = float32(v)
	}
}

func audioPort(name string, dir plugin.Direction) plugin.Port {
	return plugin.Port{Name: name, Direction: dir}
}

func controlPort(name string, def, min, max float64) plugin.Port {
	return plugin.Port{Name: name, Direction: plugin.Input, IsControl: true, Default: def, Min: min, Max: max}
}

func notifyPort(name string, def, min, max float64) plugin.Port {
	return plugin.Port{Name: name, Direction: plugin.Output, IsControl: true, Default: def, Min: min, Max: max}
}

func configFloat(cfg map[string]any, key string, def float64) float64 {
	if cfg == nil {
		return def
	}
	switch v := cfg[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

func configString(cfg map[string]any, key, def string) string {
	if cfg == nil {
		return def
	}
	if v, ok := cfg[key].(string); ok {
		return v
	}
	return def
}

func configInt(cfg map[string]any, key string, def int) int {
	return int(configFloat(cfg, key, float64(def)))
}
