package wire

import "github.com/wirepod/wirepod/internal/pod"

// FooterOpcodeGeneration is the only footer entry this connection currently
// emits: the sender's registry generation counter, grounded on
// protocol-footer.c's FOOTER_CORE_OPCODE_GENERATION /
// FOOTER_CLIENT_OPCODE_GENERATION.
const FooterOpcodeGeneration uint32 = 0

// Footer tracks the generation counter each side of a connection reports
// to the other. protocol-footer.c's marshal_core_footers /
// marshal_client_footers (outer Struct of (Id opcode, inner Struct
// payload) pairs) and its demarshal_*_generation functions (accumulate via
// max, since generations only move forward).
//
// Once a generation value has been set it is carried on every subsequent
// outbound message until it changes again, rather than only on the call
// where the value actually changed. See DESIGN.md for the rationale.
type Footer struct {
	pending   uint64
	hasValue  bool
	received  uint64
}

// NewFooter returns an empty footer with nothing pending to send.
func NewFooter() *Footer {
	return &Footer{}
}

// SetGeneration sets the generation value this side reports on every
// outbound message from now on.
func (f *Footer) SetGeneration(n uint64) {
	f.pending = n
	f.hasValue = true
}

// ReceivedGeneration returns the highest generation value the peer has
// reported so far.
func (f *Footer) ReceivedGeneration() uint64 { return f.received }

func (f *Footer) hasPending() bool { return f.hasValue }

func (f *Footer) marshal(b *pod.Builder) {
	if !f.hasValue {
		return
	}
	b.PushStruct()
	b.PutID(FooterOpcodeGeneration)
	b.PushStruct()
	b.PutLong(int64(f.pending))
	b.Pop()
	b.Pop()
}

func (f *Footer) demarshal(data []byte) error {
	p := pod.NewParser(data)
	if err := p.PushStruct(); err != nil {
		return err
	}
	for p.HasNext() {
		opcode, err := p.GetID()
		if err != nil {
			return err
		}
		if err := p.PushStruct(); err != nil {
			return err
		}
		switch opcode {
		case FooterOpcodeGeneration:
			g, err := p.GetLong()
			if err != nil {
				return err
			}
			if uint64(g) > f.received {
				f.received = uint64(g)
			}
		default:
			for p.HasNext() {
				if err := p.SkipValue(); err != nil {
					return err
				}
			}
		}
		p.Pop()
	}
	p.Pop()
	return nil
}
