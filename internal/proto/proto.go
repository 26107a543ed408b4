// Package proto implements per-method marshal/demarshal registration on
// top of internal/pod and internal/wire: permission-gated dispatch by
// (object_id, opcode), and protocol-error synthesis that names the
// offending object and opcode. Modeled on a generated-marshal.c pattern of
// one function pair per interface method, adapted to a typed Go registry
// instead of code generation.
package proto

import "fmt"

// Permission is a bitmask granted to a bound object.
type Permission uint32

const (
	PermRead Permission = 1 << iota
	PermWrite
	PermExecute
	PermMetadata
)

func (p Permission) String() string {
	if p == 0 {
		return "none"
	}
	names := []struct {
		bit  Permission
		name string
	}{
		{PermRead, "r"}, {PermWrite, "w"}, {PermExecute, "x"}, {PermMetadata, "m"},
	}
	s := ""
	for _, n := range names {
		if p&n.bit != 0 {
			s += n.name
		}
	}
	return s
}

// ErrKind classifies a protocol-layer failure.
type ErrKind int

const (
	Protocol ErrKind = iota
	Access
	Invalid
	NoEntry
)

func (k ErrKind) String() string {
	switch k {
	case Protocol:
		return "protocol"
	case Access:
		return "access"
	case Invalid:
		return "invalid"
	case NoEntry:
		return "no entry"
	default:
		return "unknown"
	}
}

// Error is a dispatch failure naming the (object_id, opcode) it occurred
// on, so a client can tell exactly which call was rejected and why.
type Error struct {
	Kind     ErrKind
	ObjectID uint32
	Opcode   uint8
	Msg      string
	Required Permission
	Held     Permission
}

func (e *Error) Error() string {
	if e.Kind == Access {
		return fmt.Sprintf("proto: access denied on object %d opcode %d: requires %s, held %s",
			e.ObjectID, e.Opcode, e.Required, e.Held)
	}
	return fmt.Sprintf("proto: %s on object %d opcode %d: %s", e.Kind, e.ObjectID, e.Opcode, e.Msg)
}

func protocolErrorf(objectID uint32, opcode uint8, format string, args ...any) *Error {
	return &Error{Kind: Protocol, ObjectID: objectID, Opcode: opcode, Msg: fmt.Sprintf(format, args...)}
}

func accessError(objectID uint32, opcode uint8, required, held Permission) *Error {
	return &Error{Kind: Access, ObjectID: objectID, Opcode: opcode, Required: required, Held: held}
}
