package proto

import (
	"github.com/wirepod/wirepod/internal/pod"
	"github.com/wirepod/wirepod/internal/wire"
)

// Marshal writes args as this method's single top-level payload Struct.
type Marshal func(b *pod.Builder, args any) error

// Demarshal parses a method's payload Struct into its typed arguments.
type Demarshal func(p *pod.Parser) (any, error)

// Method pairs one interface method's wire codec with the permission bit
// a caller must hold to invoke it.
type Method struct {
	Name       string
	Opcode     uint8
	Permission Permission
	Marshal    Marshal
	Demarshal  Demarshal
}

// Interface is a named collection of methods sharing one opcode space,
// analogous to a pipewire extension interface (core, client, node, ...).
type Interface struct {
	Name    string
	ID      uint32
	Methods map[uint8]*Method
}

// NewInterface returns an empty interface ready for AddMethod calls.
func NewInterface(name string, id uint32) *Interface {
	return &Interface{Name: name, ID: id, Methods: make(map[uint8]*Method)}
}

// AddMethod registers a method, defaulting its permission to PermExecute
// when unset.
func (i *Interface) AddMethod(m *Method) *Interface {
	if m.Permission == 0 {
		m.Permission = PermExecute
	}
	i.Methods[m.Opcode] = m
	return i
}

// Registry maps interface ids to their method tables.
type Registry struct {
	interfaces map[uint32]*Interface
}

// NewRegistry returns an empty interface registry.
func NewRegistry() *Registry {
	return &Registry{interfaces: make(map[uint32]*Interface)}
}

// Register adds iface to the registry.
func (r *Registry) Register(iface *Interface) {
	r.interfaces[iface.ID] = iface
}

func (r *Registry) lookup(interfaceID uint32, opcode uint8) (*Interface, *Method, bool) {
	iface, ok := r.interfaces[interfaceID]
	if !ok {
		return nil, nil, false
	}
	m, ok := iface.Methods[opcode]
	if !ok {
		return iface, nil, false
	}
	return iface, m, true
}

// binding records which interface an object_id implements and the
// permission bitset its resource holds.
type binding struct {
	interfaceID uint32
	permission  Permission
}

// Dispatcher routes inbound wire.Message values to their registered
// method, enforcing permissions before demarshal and synthesizing a
// protocol error referencing (object_id, opcode) on any failure.
type Dispatcher struct {
	registry *Registry
	bindings map[uint32]binding
}

// NewDispatcher returns a dispatcher backed by registry.
func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry, bindings: make(map[uint32]binding)}
}

// Bind associates objectID with the interface it implements and the
// permission bitset the caller (or callee, for server-bound objects)
// holds over it.
func (d *Dispatcher) Bind(objectID, interfaceID uint32, permission Permission) {
	d.bindings[objectID] = binding{interfaceID: interfaceID, permission: permission}
}

// Unbind forgets objectID, e.g. on resource destruction.
func (d *Dispatcher) Unbind(objectID uint32) {
	delete(d.bindings, objectID)
}

// Dispatch demarshals msg's payload according to its bound interface and
// opcode, after checking permissions. On any failure it returns a *Error
// naming the offending object and opcode rather than the underlying pod
// parser error.
func (d *Dispatcher) Dispatch(msg *wire.Message) (methodName string, args any, err error) {
	b, bound := d.bindings[msg.ObjectID]
	if !bound {
		return "", nil, protocolErrorf(msg.ObjectID, msg.Opcode, "object not bound")
	}
	iface, method, ok := d.registry.lookup(b.interfaceID, msg.Opcode)
	if !ok {
		if iface == nil {
			return "", nil, protocolErrorf(msg.ObjectID, msg.Opcode, "unknown interface %d", b.interfaceID)
		}
		return "", nil, protocolErrorf(msg.ObjectID, msg.Opcode, "unknown opcode on interface %s", iface.Name)
	}
	if b.permission&method.Permission != method.Permission {
		return "", nil, accessError(msg.ObjectID, msg.Opcode, method.Permission, b.permission)
	}

	p := pod.NewParser(msg.Payload)
	args, perr := method.Demarshal(p)
	if perr != nil {
		return "", nil, protocolErrorf(msg.ObjectID, msg.Opcode, "demarshal %s.%s: %v", iface.Name, method.Name, perr)
	}
	return method.Name, args, nil
}

// Send marshals args for the named method on conn, addressed to objectID.
func Send(conn *wire.Connection, objectID uint32, method *Method, args any) error {
	b, err := conn.Begin(objectID, method.Opcode)
	if err != nil {
		return err
	}
	if err := method.Marshal(b, args); err != nil {
		return err
	}
	return conn.End()
}
