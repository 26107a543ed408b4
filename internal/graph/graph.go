package graph

import (
	"strconv"
	"strings"

	"github.com/wirepod/wirepod/internal/plugin"
)

// Graph is a loaded, possibly-activated filter graph: nodes, the links
// between their ports, the resolved external input/output slot tables, and
// the two volume groups.
type Graph struct {
	Nodes []*Node
	Links []*Link

	InputNames  []string
	OutputNames []string

	InputVolume  *VolumeGroup
	OutputVolume *VolumeGroup

	NHndl int

	nodeByName map[string]*Node
	order      []*Node

	externalInputs  []*Port // resolved target port for each input name, nil for "null"
	externalOutputs []*Port

	// inputFanout caches fanoutTargets(externalInputs[i]) per external input
	// slot, resolved once at Activate so Run never recomputes or reallocates
	// it on the real-time path.
	inputFanout [][]*Port

	sampleRate float64
	registry   *plugin.Registry

	activated bool
}

// Load parses a graph document, resolves every node's plugin descriptor via
// registry, and builds the node/port arena. It does not yet determine
// handle multiplicity or run topological sort; call Setup for that.
func Load(cfg *Config, registry *plugin.Registry, sampleRate float64) (*Graph, error) {
	g := &Graph{
		InputNames:   cfg.Inputs,
		OutputNames:  cfg.Outputs,
		InputVolume:  newVolumeGroup(cfg.InputVolumes),
		OutputVolume: newVolumeGroup(cfg.OutputVolumes),
		sampleRate:   sampleRate,
		registry:     registry,
		nodeByName:   make(map[string]*Node),
	}

	for _, nc := range cfg.Nodes {
		ref := nc.Plugin
		if ref == "" {
			ref = "builtin"
		}
		if nc.Label != "" {
			ref = ref + "/" + nc.Label
		}
		d, err := registry.Load(ref)
		if err != nil {
			return nil, err
		}

		name := nc.Name
		if name == "" {
			name = nc.Label
		}
		if _, dup := g.nodeByName[name]; dup {
			return nil, plugin.Errorf(plugin.BadConfig, "graph: duplicate node name %q", name)
		}

		n := newNode(name, d, nc.Config, nc.Control)
		if d.Name == "copy" {
			n.copyFanout = len(g.Nodes) == 0
		}
		g.Nodes = append(g.Nodes, n)
		g.nodeByName[name] = n
	}

	for _, lc := range cfg.Links {
		out, err := g.resolveLinkEnd(lc.Output, plugin.Output)
		if err != nil {
			return nil, err
		}
		in, err := g.resolveLinkEnd(lc.Input, plugin.Input)
		if err != nil {
			return nil, err
		}
		if in.Inbound != nil {
			return nil, plugin.Errorf(plugin.Busy, "graph: input port %q already has an inbound link", lc.Input)
		}
		link := &Link{Output: out, Input: in}
		in.Inbound = link
		out.Outbound = append(out.Outbound, link)
		g.Links = append(g.Links, link)
	}

	return g, nil
}

// resolveLinkEnd parses "<node>:<port>" and returns the named port.
func (g *Graph) resolveLinkEnd(ref string, dir plugin.Direction) (*Port, error) {
	parts := strings.SplitN(ref, ":", 2)
	if len(parts) != 2 {
		return nil, plugin.Errorf(plugin.BadConfig, "graph: link endpoint %q must be \"node:port\"", ref)
	}
	n, ok := g.nodeByName[parts[0]]
	if !ok {
		return nil, plugin.Errorf(plugin.BadConfig, "graph: link references unknown node %q", parts[0])
	}
	p, ok := n.PortByName(parts[1])
	if !ok {
		return nil, plugin.Errorf(plugin.BadConfig, "graph: node %q has no port %q", parts[0], parts[1])
	}
	if p.Direction != dir {
		return nil, plugin.Errorf(plugin.BadConfig, "graph: port %q is not a %s", ref, dir)
	}
	return p, nil
}

// Setup computes handle multiplicity, resolves the external input/output
// name lists into concrete ports, and topologically sorts the nodes,
// rejecting cycles. It is idempotent and safe to re-run when n_inputs or
// n_outputs change.
func (g *Graph) Setup(nInputs, nOutputs int) error {
	perInstanceIn := len(g.InputNames)
	perInstanceOut := len(g.OutputNames)
	if perInstanceIn == 0 {
		perInstanceIn = 1
	}
	if perInstanceIn == 0 || nInputs%perInstanceIn != 0 {
		return plugin.Errorf(plugin.Invalid, "graph: n_inputs %d is not a multiple of %d declared input names", nInputs, perInstanceIn)
	}
	nHndl := nInputs / perInstanceIn
	if perInstanceOut > 0 {
		if nOutputs%perInstanceOut != 0 || nOutputs/perInstanceOut != nHndl {
			return plugin.Errorf(plugin.Invalid, "graph: n_outputs %d does not match handle multiplicity %d implied by n_inputs", nOutputs, nHndl)
		}
	}
	g.NHndl = nHndl

	externalIn, err := g.resolveExternalSlots(g.InputNames, plugin.Input)
	if err != nil {
		return err
	}
	externalOut, err := g.resolveExternalSlots(g.OutputNames, plugin.Output)
	if err != nil {
		return err
	}
	g.externalInputs = externalIn
	g.externalOutputs = externalOut
	for _, n := range g.Nodes {
		for _, p := range append(append([]*Port(nil), n.InputsAudio...), n.OutputsAudio...) {
			p.External = -1
		}
	}
	for _, slots := range [][]*Port{externalIn, externalOut} {
		for i, p := range slots {
			if p != nil {
				p.External = i
			}
		}
	}

	order, err := topoSort(g.Nodes)
	if err != nil {
		return err
	}
	g.order = order
	return nil
}

// resolveExternalSlots resolves the "inputs"/"outputs" name list against
// the first (for inputs) or last (for outputs) node when a bare name or
// integer index is given.
func (g *Graph) resolveExternalSlots(names []string, dir plugin.Direction) ([]*Port, error) {
	if len(g.Nodes) == 0 {
		return nil, nil
	}
	defaultNode := g.Nodes[0]
	var defaultPorts []*Port
	if dir == plugin.Input {
		defaultPorts = defaultNode.InputsAudio
	} else {
		defaultNode = g.Nodes[len(g.Nodes)-1]
		defaultPorts = defaultNode.OutputsAudio
	}

	slots := make([]*Port, len(names))
	for i, name := range names {
		if name == "" || name == "null" {
			slots[i] = nil
			continue
		}

		if idx, err := strconv.Atoi(name); err == nil {
			if idx < 0 || idx >= len(defaultPorts) {
				return nil, plugin.Errorf(plugin.BadConfig, "graph: external slot index %d out of range", idx)
			}
			slots[i] = defaultPorts[idx]
			continue
		}

		if parts := strings.SplitN(name, ":", 2); len(parts) == 2 {
			n, ok := g.nodeByName[parts[0]]
			if !ok {
				return nil, plugin.Errorf(plugin.BadConfig, "graph: external slot references unknown node %q", parts[0])
			}
			if idx, err := strconv.Atoi(parts[1]); err == nil {
				ports := n.InputsAudio
				if dir == plugin.Output {
					ports = n.OutputsAudio
				}
				if idx < 0 || idx >= len(ports) {
					return nil, plugin.Errorf(plugin.BadConfig, "graph: external slot index %d out of range on node %q", idx, parts[0])
				}
				slots[i] = ports[idx]
				continue
			}
			p, ok := n.PortByName(parts[1])
			if !ok {
				return nil, plugin.Errorf(plugin.BadConfig, "graph: node %q has no port %q", parts[0], parts[1])
			}
			slots[i] = p
			continue
		}

		var found *Port
		for _, p := range defaultPorts {
			if p.Name == name {
				found = p
				break
			}
		}
		if found == nil {
			return nil, plugin.Errorf(plugin.BadConfig, "graph: external slot %q not found on %s node %q", name, dir, defaultNode.Name)
		}
		slots[i] = found
	}
	return slots, nil
}

// fanoutTargets returns every input port an external input slot should be
// bound to: normally just the slot itself, but when the slot is the sole
// input port of a COPY node, every port downstream of that node's output
// link (fan-out mechanism), eliding the copy node itself.
func fanoutTargets(p *Port) []*Port {
	if p == nil {
		return nil
	}
	if p.Node.copyFanout && len(p.Node.OutputsAudio) == 1 {
		out := p.Node.OutputsAudio[0]
		if len(out.Outbound) > 0 {
			targets := make([]*Port, 0, len(out.Outbound))
			for _, link := range out.Outbound {
				targets = append(targets, link.Input)
			}
			return targets
		}
	}
	return []*Port{p}
}

// isElidedFanout reports whether n is a COPY node whose output feeds
// internal links; such a node's buffers are bypassed entirely by
// fanoutTargets, so running its instance would do pointless (if harmless)
// work. A COPY node with no downstream links is a plain passthrough and
// still runs normally.
func isElidedFanout(n *Node) bool {
	return n.copyFanout && len(n.OutputsAudio) == 1 && len(n.OutputsAudio[0].Outbound) > 0
}

// Activate instantiates NHndl plugin instances per node, wires every link
// and external slot's buffers, and invokes each instance's Activate.
func (g *Graph) Activate(quantum int) error {
	if g.NHndl == 0 {
		g.NHndl = 1
	}

	for _, n := range g.order {
		n.Handles = n.Handles[:0]
		for h := 0; h < g.NHndl; h++ {
			inst, err := n.Descriptor.New(n.Config, g.sampleRate)
			if err != nil {
				return plugin.WrapErr(plugin.BadConfig, err, "graph: instantiating node %q handle %d", n.Name, h)
			}
			n.Handles = append(n.Handles, inst)
		}
	}

	// Wire internal links: the output side owns the buffer; both ends
	// connect to the same slice per handle, so data flows without a copy.
	for _, link := range g.Links {
		for h := 0; h < g.NHndl; h++ {
			buf := link.Output.handleBuf(h, quantum)
			if err := link.Output.Node.Handles[h].ConnectPort(link.Output.Name, buf); err != nil {
				return err
			}
			if err := link.Input.Node.Handles[h].ConnectPort(link.Input.Name, buf); err != nil {
				return err
			}
		}
	}

	// Unlinked audio inputs that are not bound to an external slot read
	// their own per-handle buffer, zeroed when allocated; unlinked audio
	// outputs write to their own per-handle discard buffer.
	for _, n := range g.order {
		for _, p := range n.InputsAudio {
			if p.Inbound != nil || p.External >= 0 {
				continue
			}
			for h := 0; h < g.NHndl; h++ {
				if err := n.Handles[h].ConnectPort(p.Name, p.handleBuf(h, quantum)); err != nil {
					return err
				}
			}
		}
		for _, p := range n.OutputsAudio {
			if len(p.Outbound) > 0 {
				continue
			}
			for h := 0; h < g.NHndl; h++ {
				if err := n.Handles[h].ConnectPort(p.Name, p.handleBuf(h, quantum)); err != nil {
					return err
				}
			}
		}

		for _, p := range n.Controls {
			def := 0.0
			if dp, ok := n.Descriptor.PortByName(p.Name); ok {
				def = dp.Default
			}
			if v, ok := n.Control[p.Name]; ok {
				def = v
			}
			for h := 0; h < g.NHndl; h++ {
				buf := p.controlBuf(h)
				buf[0] = float32(def)
				if err := n.Handles[h].ConnectPort(p.Name, buf); err != nil {
					return err
				}
			}
		}
		for _, p := range n.Notify {
			for h := 0; h < g.NHndl; h++ {
				if err := n.Handles[h].ConnectPort(p.Name, p.controlBuf(h)); err != nil {
					return err
				}
			}
		}
	}

	for _, n := range g.order {
		for h := 0; h < g.NHndl; h++ {
			if err := n.Handles[h].Activate(); err != nil {
				return plugin.WrapErr(plugin.BadConfig, err, "graph: activating node %q handle %d", n.Name, h)
			}
		}
		n.Activated = true
	}

	g.inputFanout = make([][]*Port, len(g.externalInputs))
	for i, slot := range g.externalInputs {
		g.inputFanout[i] = fanoutTargets(slot)
	}

	g.activated = true
	return nil
}

// Run drives every node's handles once, in topological order, for n
// samples. External input slots are rebound to the caller's buffers first,
// matching per-quantum connect_port rebinding; internal
// links were already wired once at Activate and need no per-quantum work.
func (g *Graph) Run(in, out [][]float32, n int) error {
	for h := 0; h < g.NHndl; h++ {
		for i := range g.externalInputs {
			idx := h*len(g.externalInputs) + i
			if idx >= len(in) {
				continue
			}
			for _, target := range g.inputFanout[i] {
				if target == nil {
					continue
				}
				if err := target.Node.Handles[h].ConnectPort(target.Name, in[idx]); err != nil {
					return err
				}
			}
		}
		for i, slot := range g.externalOutputs {
			idx := h*len(g.externalOutputs) + i
			if idx >= len(out) {
				continue
			}
			if slot == nil {
				for j := range out[idx][:n] {
					out[idx][j] = 0
				}
				continue
			}
			if err := slot.Node.Handles[h].ConnectPort(slot.Name, out[idx]); err != nil {
				return err
			}
		}
	}

	for _, n2 := range g.order {
		if isElidedFanout(n2) {
			continue
		}
		for h := 0; h < g.NHndl; h++ {
			if err := n2.Handles[h].Run(n); err != nil {
				return err
			}
		}
	}
	return nil
}

// Reset deactivates then reactivates every node, re-initializing filter
// state.
func (g *Graph) Reset(quantum int) error {
	for _, n := range g.order {
		for _, inst := range n.Handles {
			inst.Deactivate()
		}
	}
	return g.Activate(quantum)
}

// SetControls mutates named controls (qualified "<node>:<control>") and
// leaves each node free to pick up the new value on its next Run.
func (g *Graph) SetControls(params map[string]float64) error {
	for ref, v := range params {
		parts := strings.SplitN(ref, ":", 2)
		if len(parts) != 2 {
			return plugin.Errorf(plugin.BadConfig, "graph: control %q must be \"node:control\"", ref)
		}
		n, ok := g.nodeByName[parts[0]]
		if !ok {
			return plugin.Errorf(plugin.NoEntry, "graph: unknown node %q", parts[0])
		}
		p, ok := n.PortByName(parts[1])
		if !ok || p.Kind != ControlKind {
			return plugin.Errorf(plugin.NoEntry, "graph: node %q has no control %q", parts[0], parts[1])
		}
		for h := 0; h < g.NHndl; h++ {
			p.controlBuf(h)[0] = float32(v)
		}
	}
	return nil
}
