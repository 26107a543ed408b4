package pod

import (
	"encoding/binary"
	"math"
)

// frameR tracks one open container frame during parsing.
type frameR struct {
	typ       Type
	headerPos int
	bodyEnd   int // exclusive end of the container's body, unaligned
}

// Parser walks a byte range holding one or more PODs, optionally nested
// inside container frames opened with Push*. It is the read side of
// the TLV-tagged POD wire format.
type Parser struct {
	buf    []byte
	pos    int
	frames []frameR
}

// NewParser wraps buf for reading starting at offset 0.
func NewParser(buf []byte) *Parser {
	return &Parser{buf: buf}
}

// Pos returns the parser's current read offset.
func (p *Parser) Pos() int { return p.pos }

func readU32(b []byte, off int) uint32 { return binary.LittleEndian.Uint32(b[off : off+4]) }
func readU64(b []byte, off int) uint64 { return binary.LittleEndian.Uint64(b[off : off+8]) }

func (p *Parser) advanceRaw(size int) {
	p.pos += align8(headerSize + size)
}

// peekHeader reads the {size, type} header at the current position without
// consuming it, validating the full aligned pod fits inside the buffer.
func (p *Parser) peekHeader() (Type, int, error) {
	if p.pos+headerSize > len(p.buf) {
		return 0, 0, errorf(Pipe, "truncated pod header at offset %d", p.pos)
	}
	size := int(readU32(p.buf, p.pos))
	typ := Type(readU32(p.buf, p.pos+4))
	total := align8(headerSize + size)
	if p.pos+total > len(p.buf) {
		return 0, 0, errorf(Pipe, "truncated pod body at offset %d", p.pos)
	}
	return typ, size, nil
}

// HasNext reports whether there is more data to read in the current frame
// (or, at top level, in the whole buffer).
func (p *Parser) HasNext() bool {
	if len(p.frames) == 0 {
		return p.pos < len(p.buf)
	}
	return p.pos < p.frames[len(p.frames)-1].bodyEnd
}

// expect reads the pod at the current position expecting type want, and
// returns its raw body bytes. A Choice pod with kind ChoiceNone and exactly
// one alternative of the expected type unwraps transparently, so a plain
// value and a single-valued choice are interchangeable to the caller.
func (p *Parser) expect(want Type) ([]byte, error) {
	typ, size, err := p.peekHeader()
	if err != nil {
		return nil, err
	}
	bodyStart := p.pos + headerSize
	if typ == want {
		data := p.buf[bodyStart : bodyStart+size]
		p.advanceRaw(size)
		return data, nil
	}
	if typ == TypeChoice {
		return p.expectChoiceTransparent(want, size)
	}
	return nil, errorf(Invalid, "type mismatch: want %s got %s", want, typ)
}

func (p *Parser) expectChoiceTransparent(want Type, choiceSize int) ([]byte, error) {
	bodyStart := p.pos + headerSize
	if choiceSize < 16 {
		return nil, errorf(Protocol, "choice body too small")
	}
	kind := ChoiceKind(readU32(p.buf, bodyStart))
	childSize := int(readU32(p.buf, bodyStart+8))
	childType := Type(readU32(p.buf, bodyStart+12))
	if kind != ChoiceNone {
		return nil, errorf(Invalid, "cannot read %s from a choice with alternatives", want)
	}
	altBytes := choiceSize - 16
	if childSize <= 0 || altBytes != childSize {
		return nil, errorf(Invalid, "choice does not carry exactly one %s alternative", want)
	}
	if childType != want {
		return nil, errorf(Invalid, "choice alternative type mismatch: want %s got %s", want, childType)
	}
	data := p.buf[bodyStart+16 : bodyStart+16+childSize]
	p.advanceRaw(choiceSize)
	return data, nil
}

// GetNone consumes a None pod.
func (p *Parser) GetNone() error {
	_, err := p.expect(TypeNone)
	return err
}

// GetBool consumes a Bool pod.
func (p *Parser) GetBool() (bool, error) {
	data, err := p.expect(TypeBool)
	if err != nil {
		return false, err
	}
	if len(data) < 4 {
		return false, errorf(Pipe, "truncated bool")
	}
	return readU32(data, 0) != 0, nil
}

// GetID consumes an Id pod.
func (p *Parser) GetID() (uint32, error) {
	data, err := p.expect(TypeID)
	if err != nil {
		return 0, err
	}
	if len(data) < 4 {
		return 0, errorf(Pipe, "truncated id")
	}
	return readU32(data, 0), nil
}

// GetInt consumes an Int pod.
func (p *Parser) GetInt() (int32, error) {
	data, err := p.expect(TypeInt)
	if err != nil {
		return 0, err
	}
	if len(data) < 4 {
		return 0, errorf(Pipe, "truncated int")
	}
	return int32(readU32(data, 0)), nil
}

// GetLong consumes a Long pod.
func (p *Parser) GetLong() (int64, error) {
	data, err := p.expect(TypeLong)
	if err != nil {
		return 0, err
	}
	if len(data) < 8 {
		return 0, errorf(Pipe, "truncated long")
	}
	return int64(readU64(data, 0)), nil
}

// GetFloat consumes a Float pod.
func (p *Parser) GetFloat() (float32, error) {
	data, err := p.expect(TypeFloat)
	if err != nil {
		return 0, err
	}
	if len(data) < 4 {
		return 0, errorf(Pipe, "truncated float")
	}
	return math.Float32frombits(readU32(data, 0)), nil
}

// GetDouble consumes a Double pod.
func (p *Parser) GetDouble() (float64, error) {
	data, err := p.expect(TypeDouble)
	if err != nil {
		return 0, err
	}
	if len(data) < 8 {
		return 0, errorf(Pipe, "truncated double")
	}
	return math.Float64frombits(readU64(data, 0)), nil
}

// GetString consumes a nul-terminated String pod.
func (p *Parser) GetString() (string, error) {
	data, err := p.expect(TypeString)
	if err != nil {
		return "", err
	}
	for i, c := range data {
		if c == 0 {
			return string(data[:i]), nil
		}
	}
	return string(data), nil
}

// GetBytes consumes an opaque Bytes pod.
func (p *Parser) GetBytes() ([]byte, error) {
	data, err := p.expect(TypeBytes)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), data...), nil
}

// GetRectangle consumes a Rectangle pod.
func (p *Parser) GetRectangle() (Rectangle, error) {
	data, err := p.expect(TypeRectangle)
	if err != nil {
		return Rectangle{}, err
	}
	if len(data) < 8 {
		return Rectangle{}, errorf(Pipe, "truncated rectangle")
	}
	return Rectangle{Width: readU32(data, 0), Height: readU32(data, 4)}, nil
}

// GetFraction consumes a Fraction pod.
func (p *Parser) GetFraction() (Fraction, error) {
	data, err := p.expect(TypeFraction)
	if err != nil {
		return Fraction{}, err
	}
	if len(data) < 8 {
		return Fraction{}, errorf(Pipe, "truncated fraction")
	}
	return Fraction{Num: readU32(data, 0), Denom: readU32(data, 4)}, nil
}

// GetFd consumes an Fd pod, returning its ancillary-array index.
func (p *Parser) GetFd() (int64, error) {
	data, err := p.expect(TypeFd)
	if err != nil {
		return 0, err
	}
	if len(data) < 8 {
		return 0, errorf(Pipe, "truncated fd")
	}
	return int64(readU64(data, 0)), nil
}

// GetPointer consumes a Pointer pod as an opaque 8-byte token. Pointers are
// never dereferenced locally; they only round-trip between peers that
// share the same address space context (real
// shared-memory pointer passing).
func (p *Parser) GetPointer() (uint64, error) {
	data, err := p.expect(TypePointer)
	if err != nil {
		return 0, err
	}
	if len(data) < 8 {
		return 0, errorf(Pipe, "truncated pointer")
	}
	return readU64(data, 0), nil
}

func (p *Parser) pushContainer(want Type, extra int) (bodyStart, size int, err error) {
	typ, size, err := p.peekHeader()
	if err != nil {
		return 0, 0, err
	}
	if typ != want {
		return 0, 0, errorf(Invalid, "type mismatch: want %s got %s", want, typ)
	}
	if size < extra {
		return 0, 0, errorf(Protocol, "%s body too small", want)
	}
	bodyStart = p.pos + headerSize
	p.frames = append(p.frames, frameR{typ: want, headerPos: p.pos, bodyEnd: bodyStart + size})
	return bodyStart, size, nil
}

// PushStruct opens a Struct frame.
func (p *Parser) PushStruct() error {
	_, _, err := p.pushContainer(TypeStruct, 0)
	if err != nil {
		return err
	}
	p.pos = p.frames[len(p.frames)-1].headerPos + headerSize
	return nil
}

// PushSequence opens a Sequence frame.
func (p *Parser) PushSequence() error {
	_, _, err := p.pushContainer(TypeSequence, 0)
	if err != nil {
		return err
	}
	p.pos = p.frames[len(p.frames)-1].headerPos + headerSize
	return nil
}

// PushObject opens an Object frame, returning its {type, id} header.
func (p *Parser) PushObject() (objType, id uint32, err error) {
	bodyStart, _, err := p.pushContainer(TypeObject, 8)
	if err != nil {
		return 0, 0, err
	}
	objType = readU32(p.buf, bodyStart)
	id = readU32(p.buf, bodyStart+4)
	p.pos = bodyStart + 8
	return objType, id, nil
}

// PushArray opens an Array frame, returning its element type, element size,
// and element count.
func (p *Parser) PushArray() (childType Type, childSize, count int, err error) {
	bodyStart, size, err := p.pushContainer(TypeArray, 8)
	if err != nil {
		return 0, 0, 0, err
	}
	childSize = int(readU32(p.buf, bodyStart))
	childType = Type(readU32(p.buf, bodyStart+4))
	p.pos = bodyStart + 8
	if childSize <= 0 {
		count = 0
	} else {
		rem := size - 8
		if rem%childSize != 0 {
			return 0, 0, 0, errorf(Protocol, "array body not a multiple of element size")
		}
		count = rem / childSize
	}
	return childType, childSize, count, nil
}

// NextArrayElem reads the next packed, header-less array element.
func (p *Parser) NextArrayElem(childSize int) ([]byte, error) {
	end := p.frames[len(p.frames)-1].bodyEnd
	if p.pos+childSize > end {
		return nil, errorf(Pipe, "truncated array element")
	}
	b := p.buf[p.pos : p.pos+childSize]
	p.pos += childSize
	return b, nil
}

// PushChoice opens a Choice frame, returning its kind, flags, alternative
// type, alternative size, and alternative count.
func (p *Parser) PushChoice() (kind ChoiceKind, flags uint32, childType Type, childSize, count int, err error) {
	bodyStart, size, err := p.pushContainer(TypeChoice, 16)
	if err != nil {
		return 0, 0, 0, 0, 0, err
	}
	kind = ChoiceKind(readU32(p.buf, bodyStart))
	flags = readU32(p.buf, bodyStart+4)
	childSize = int(readU32(p.buf, bodyStart+8))
	childType = Type(readU32(p.buf, bodyStart+12))
	p.pos = bodyStart + 16
	if childSize <= 0 {
		count = 0
	} else {
		rem := size - 16
		if rem%childSize != 0 {
			return 0, 0, 0, 0, 0, errorf(Protocol, "choice body not a multiple of alternative size")
		}
		count = rem / childSize
	}
	return kind, flags, childType, childSize, count, nil
}

// NextChoiceAlternative reads the next packed, header-less choice alternative.
func (p *Parser) NextChoiceAlternative(childSize int) ([]byte, error) {
	return p.NextArrayElem(childSize)
}

// Pop closes the innermost open frame and advances past it.
func (p *Parser) Pop() {
	n := len(p.frames)
	if n == 0 {
		return
	}
	f := p.frames[n-1]
	p.frames = p.frames[:n-1]
	size := f.bodyEnd - f.headerPos - headerSize
	p.pos = f.headerPos + align8(headerSize+size)
}

// NextPropKey reads the next Object Prop's {key, flags} header. The caller
// must follow with exactly one value read (a Get*, or Push*/.../Pop for a
// nested container), or SkipValue to discard it.
func (p *Parser) NextPropKey() (key, flags uint32, err error) {
	if len(p.frames) == 0 || p.frames[len(p.frames)-1].typ != TypeObject {
		return 0, 0, errorf(Protocol, "next_prop called outside an object frame")
	}
	end := p.frames[len(p.frames)-1].bodyEnd
	if p.pos+8 > end {
		return 0, 0, errorf(Pipe, "truncated prop header")
	}
	key = readU32(p.buf, p.pos)
	flags = readU32(p.buf, p.pos+4)
	p.pos += 8
	return key, flags, nil
}

// SkipValue discards the pod at the current position without interpreting
// it, for skipping unrecognized or unwanted fields.
func (p *Parser) SkipValue() error {
	_, size, err := p.peekHeader()
	if err != nil {
		return err
	}
	p.advanceRaw(size)
	return nil
}

// FindProp scans forward from the current position in the innermost Object
// frame for a Prop with the given key, leaving the parser positioned to
// read its value. An optional field that is missing should be treated as
// NoEntry by the caller rather than aborting the surrounding aggregate.
func (p *Parser) FindProp(key uint32) (flags uint32, err error) {
	for p.HasNext() {
		k, fl, err := p.NextPropKey()
		if err != nil {
			return 0, err
		}
		if k == key {
			return fl, nil
		}
		if err := p.SkipValue(); err != nil {
			return 0, err
		}
	}
	return 0, errorf(NoEntry, "prop %d not found", key)
}
