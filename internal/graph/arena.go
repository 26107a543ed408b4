package graph

import "github.com/wirepod/wirepod/internal/plugin"

// PortKind distinguishes audio data ports from single-value control ports.
type PortKind int

const (
	AudioKind PortKind = iota
	ControlKind
)

// Port belongs to exactly one Node. Per the design, an input port holds at
// most one inbound Link; an output port may fan out to many.
type Port struct {
	Node      *Node
	Name      string
	Direction plugin.Direction
	Kind      PortKind

	// Inbound is the single link feeding an input port, nil if unlinked.
	Inbound *Link
	// Outbound lists every link this output port feeds.
	Outbound []*Link

	// External names the graph-level input/output slot index this port is
	// bound to, or -1 if the port is purely internal.
	External int

	// perHandle holds one buffer per plugin handle: an n-sample audio
	// buffer for AudioKind ports, a length-1 buffer for ControlKind ports
	// (so a connected instance's writes to a notify port are visible
	// through the same slice the graph reads back).
	perHandle [][]float32
}

// Link connects exactly one output port to one input port.
type Link struct {
	Output *Port
	Input  *Port
}

// Node owns a descriptor, its replicated plugin instances (one per
// handle), and its four port arrays.
type Node struct {
	Name       string
	Descriptor *plugin.Descriptor
	Config     map[string]any
	Control    map[string]float64

	InputsAudio  []*Port
	OutputsAudio []*Port
	Controls     []*Port
	Notify       []*Port

	Handles []plugin.Instance

	// inDegree is not used: topoSort keeps its Kahn's-algorithm dependency
	// counts in a local map.
	inDegree int

	Activated    bool
	MinLatency   int
	MaxLatency   int

	// copyFanout marks the first node as the COPY descriptor: its single
	// external input slot feeds every downstream linked input port, rather
	// than one plugin port.
	copyFanout bool
}

func newPort(n *Node, name string, dir plugin.Direction, kind PortKind) *Port {
	return &Port{Node: n, Name: name, Direction: dir, Kind: kind, External: -1}
}

func newNode(name string, d *plugin.Descriptor, cfg map[string]any, control map[string]float64) *Node {
	n := &Node{Name: name, Descriptor: d, Config: cfg, Control: control}
	for _, p := range d.Ports {
		kind := AudioKind
		if p.IsControl {
			kind = ControlKind
		}
		port := newPort(n, p.Name, p.Direction, kind)
		switch {
		case kind == AudioKind && p.Direction == plugin.Input:
			n.InputsAudio = append(n.InputsAudio, port)
		case kind == AudioKind && p.Direction == plugin.Output:
			n.OutputsAudio = append(n.OutputsAudio, port)
		case kind == ControlKind && p.Direction == plugin.Input:
			n.Controls = append(n.Controls, port)
		case kind == ControlKind && p.Direction == plugin.Output:
			n.Notify = append(n.Notify, port)
		}
	}
	return n
}

// PortByName finds a port on the node by name across all four arrays.
func (n *Node) PortByName(name string) (*Port, bool) {
	for _, list := range [][]*Port{n.InputsAudio, n.OutputsAudio, n.Controls, n.Notify} {
		for _, p := range list {
			if p.Name == name {
				return p, true
			}
		}
	}
	return nil, false
}

func (p *Port) handleBuf(handle, n int) []float32 {
	for len(p.perHandle) <= handle {
		p.perHandle = append(p.perHandle, nil)
	}
	if len(p.perHandle[handle]) < n {
		p.perHandle[handle] = make([]float32, n)
	}
	return p.perHandle[handle][:n]
}

// controlBuf returns the length-1 control buffer for the given handle,
// allocating it on first use.
func (p *Port) controlBuf(handle int) []float32 {
	for len(p.perHandle) <= handle {
		p.perHandle = append(p.perHandle, nil)
	}
	if p.perHandle[handle] == nil {
		p.perHandle[handle] = make([]float32, 1)
	}
	return p.perHandle[handle]
}
