// Package wire implements the framed AF_UNIX connection that carries POD
// messages between graph clients and the filter-graph server: header
// layout, non-blocking refill/flush, and ancillary FD passing. Modeled on
// module-protocol-native/connection.c's buffer management and
// protocol-footer.c's trailing-footer convention, using a 16-byte header
// (object_id, size+opcode, seq, n_fds).
package wire

import (
	"encoding/binary"
	"fmt"
)

const (
	headerLen = 16
	maxFDs    = 28
)

// ErrKind classifies wire-layer failures.
type ErrKind int

const (
	Pipe ErrKind = iota
	Invalid
	Protocol
	TryAgain
	NoSpace
)

func (k ErrKind) String() string {
	switch k {
	case Pipe:
		return "pipe"
	case Invalid:
		return "invalid"
	case Protocol:
		return "protocol"
	case TryAgain:
		return "try again"
	case NoSpace:
		return "no space"
	default:
		return "unknown"
	}
}

// Error is a wire-layer failure.
type Error struct {
	Kind ErrKind
	Msg  string
}

func (e *Error) Error() string { return fmt.Sprintf("wire: %s: %s", e.Kind, e.Msg) }

func errorf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Message is one demarshaled wire frame: a destination object, an opcode,
// a sequence number, the method payload (one top-level POD), an optional
// trailing footer POD, and any FDs carried alongside it.
type Message struct {
	ObjectID uint32
	Opcode   uint8
	Seq      uint32
	Payload  []byte
	Footer   []byte

	fds     []int
	claimed []bool
}

// GetFd claims the FD at index, marking it as no longer owned by the
// connection so Release will not close it. Any FD left unclaimed when the
// message is released is closed to prevent leaks.
func (m *Message) GetFd(index uint32) (int, error) {
	if int(index) >= len(m.fds) {
		return -1, errorf(Invalid, "fd index %d out of range (%d fds)", index, len(m.fds))
	}
	m.claimed[index] = true
	return m.fds[index], nil
}

// NFds reports how many FDs arrived with this message.
func (m *Message) NFds() int { return len(m.fds) }

// Release closes every FD attached to the message that dispatch did not
// claim via GetFd.
func (m *Message) Release() {
	for i, fd := range m.fds {
		if !m.claimed[i] {
			closeFD(fd)
		}
	}
}

func writeHeader(dst []byte, objectID uint32, opcode uint8, size uint32, seq, nFDs uint32) {
	binary.LittleEndian.PutUint32(dst[0:4], objectID)
	dst[4] = byte(size)
	dst[5] = byte(size >> 8)
	dst[6] = byte(size >> 16)
	dst[7] = opcode
	binary.LittleEndian.PutUint32(dst[8:12], seq)
	binary.LittleEndian.PutUint32(dst[12:16], nFDs)
}

func readHeader(src []byte) (objectID uint32, opcode uint8, size uint32, seq, nFDs uint32) {
	objectID = binary.LittleEndian.Uint32(src[0:4])
	size = uint32(src[4]) | uint32(src[5])<<8 | uint32(src[6])<<16
	opcode = src[7]
	seq = binary.LittleEndian.Uint32(src[8:12])
	nFDs = binary.LittleEndian.Uint32(src[12:16])
	return
}
