package pod

import (
	"encoding/binary"
	"math"
)

// frame tracks one open container (Struct/Object/Array/Choice/Sequence) so
// Pop can backpatch its final size once every child has been written.
type frame struct {
	headerOffset int
	typ          Type
}

// Builder writes PODs to a growable byte buffer, 8-byte-aligning every
// value and supporting nested container frames. It is the write side of
// the TLV-tagged POD wire format.
type Builder struct {
	buf    []byte
	frames []frame
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Bytes returns the builder's underlying buffer. It is only meaningful
// with no frames open.
func (b *Builder) Bytes() []byte { return b.buf }

// Offset returns the builder's current, monotonically increasing write
// position.
func (b *Builder) Offset() int { return len(b.buf) }

func (b *Builder) padTo8(from int) {
	for (len(b.buf)-from)%8 != 0 {
		b.buf = append(b.buf, 0)
	}
}

func (b *Builder) writeHeader(typ Type) int {
	off := len(b.buf)
	b.buf = append(b.buf, 0, 0, 0, 0) // size, backpatched by the caller
	var typeBuf [4]byte
	binary.LittleEndian.PutUint32(typeBuf[:], uint32(typ))
	b.buf = append(b.buf, typeBuf[:]...)
	return off
}

func (b *Builder) backpatchSize(headerOffset int) {
	size := len(b.buf) - headerOffset - headerSize
	binary.LittleEndian.PutUint32(b.buf[headerOffset:headerOffset+4], uint32(size))
	b.padTo8(headerOffset)
}

func (b *Builder) writeFixed(typ Type, body []byte) int {
	off := b.writeHeader(typ)
	b.buf = append(b.buf, body...)
	b.backpatchSize(off)
	return off
}

// PutNone writes the None singleton (size == 0).
func (b *Builder) PutNone() int { return b.writeFixed(TypeNone, nil) }

// PutBool writes a Bool as a 4-byte int32 of 0 or 1.
func (b *Builder) PutBool(v bool) int {
	var body [4]byte
	if v {
		binary.LittleEndian.PutUint32(body[:], 1)
	}
	return b.writeFixed(TypeBool, body[:])
}

// PutID writes an Id (an enumerated integer token, not a free integer).
func (b *Builder) PutID(id uint32) int {
	var body [4]byte
	binary.LittleEndian.PutUint32(body[:], id)
	return b.writeFixed(TypeID, body[:])
}

// PutInt writes a 32-bit signed Int.
func (b *Builder) PutInt(v int32) int {
	var body [4]byte
	binary.LittleEndian.PutUint32(body[:], uint32(v))
	return b.writeFixed(TypeInt, body[:])
}

// PutLong writes a 64-bit signed Long.
func (b *Builder) PutLong(v int64) int {
	var body [8]byte
	binary.LittleEndian.PutUint64(body[:], uint64(v))
	return b.writeFixed(TypeLong, body[:])
}

// PutFloat writes a 32-bit Float.
func (b *Builder) PutFloat(v float32) int {
	var body [4]byte
	binary.LittleEndian.PutUint32(body[:], math.Float32bits(v))
	return b.writeFixed(TypeFloat, body[:])
}

// PutDouble writes a 64-bit Double.
func (b *Builder) PutDouble(v float64) int {
	var body [8]byte
	binary.LittleEndian.PutUint64(body[:], math.Float64bits(v))
	return b.writeFixed(TypeDouble, body[:])
}

// PutString writes a nul-terminated String body.
func (b *Builder) PutString(s string) int {
	body := append([]byte(s), 0)
	return b.writeFixed(TypeString, body)
}

// PutBytes writes an opaque Bytes blob.
func (b *Builder) PutBytes(data []byte) int {
	return b.writeFixed(TypeBytes, data)
}

// PutRectangle writes a Rectangle (width, height).
func (b *Builder) PutRectangle(r Rectangle) int {
	var body [8]byte
	binary.LittleEndian.PutUint32(body[0:4], r.Width)
	binary.LittleEndian.PutUint32(body[4:8], r.Height)
	return b.writeFixed(TypeRectangle, body[:])
}

// PutFraction writes a Fraction (num, denom).
func (b *Builder) PutFraction(f Fraction) int {
	var body [8]byte
	binary.LittleEndian.PutUint32(body[0:4], f.Num)
	binary.LittleEndian.PutUint32(body[4:8], f.Denom)
	return b.writeFixed(TypeFraction, body[:])
}

// PutFd writes an Fd POD carrying the index into the connection's ancillary
// FD array that add_fd returned .
func (b *Builder) PutFd(index int64) int {
	var body [8]byte
	binary.LittleEndian.PutUint64(body[:], uint64(index))
	return b.writeFixed(TypeFd, body[:])
}

// PushStruct opens a Struct frame: an ordered sequence of child PODs.
func (b *Builder) PushStruct() {
	b.frames = append(b.frames, frame{headerOffset: b.writeHeader(TypeStruct), typ: TypeStruct})
}

// PushSequence opens a Sequence frame, an ordered list of child PODs used
// for the wire message footer .
func (b *Builder) PushSequence() {
	b.frames = append(b.frames, frame{headerOffset: b.writeHeader(TypeSequence), typ: TypeSequence})
}

// PushObject opens an Object frame: {type, id} followed by Prop entries
// written with PutProp.
func (b *Builder) PushObject(objType, id uint32) {
	off := b.writeHeader(TypeObject)
	var hdr [8]byte
	binary.LittleEndian.PutUint32(hdr[0:4], objType)
	binary.LittleEndian.PutUint32(hdr[4:8], id)
	b.buf = append(b.buf, hdr[:]...)
	b.frames = append(b.frames, frame{headerOffset: off, typ: TypeObject})
}

// PutPropHeader writes one Prop's {key, flags} header; the caller follows
// with exactly one value-writing call (Put* or Push*/Pop).
func (b *Builder) PutPropHeader(key, flags uint32) {
	var hdr [8]byte
	binary.LittleEndian.PutUint32(hdr[0:4], key)
	binary.LittleEndian.PutUint32(hdr[4:8], flags)
	b.buf = append(b.buf, hdr[:]...)
}

// PushArray opens an Array frame: {child_size, child_type} followed by n
// packed child bodies with no inner headers. Use PutArrayElem to write
// elements matching childSize exactly.
func (b *Builder) PushArray(childType Type, childSize uint32) {
	off := b.writeHeader(TypeArray)
	var hdr [8]byte
	binary.LittleEndian.PutUint32(hdr[0:4], childSize)
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(childType))
	b.buf = append(b.buf, hdr[:]...)
	b.frames = append(b.frames, frame{headerOffset: off, typ: TypeArray})
}

// PutArrayElem appends one packed (header-less) array element body.
func (b *Builder) PutArrayElem(body []byte) {
	b.buf = append(b.buf, body...)
}

// PushChoice opens a Choice frame: {choice_type, flags, child-header}
// followed by alternatives each of the child header's declared size.
func (b *Builder) PushChoice(kind ChoiceKind, flags uint32, childType Type, childSize uint32) {
	off := b.writeHeader(TypeChoice)
	var hdr [16]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(kind))
	binary.LittleEndian.PutUint32(hdr[4:8], flags)
	binary.LittleEndian.PutUint32(hdr[8:12], childSize)
	binary.LittleEndian.PutUint32(hdr[12:16], uint32(childType))
	b.buf = append(b.buf, hdr[:]...)
	b.frames = append(b.frames, frame{headerOffset: off, typ: TypeChoice})
}

// PutChoiceAlternative appends one packed choice alternative body.
func (b *Builder) PutChoiceAlternative(body []byte) {
	b.buf = append(b.buf, body...)
}

// Pop closes the innermost open frame, backpatching its final size.
func (b *Builder) Pop() {
	n := len(b.frames)
	if n == 0 {
		return
	}
	f := b.frames[n-1]
	b.frames = b.frames[:n-1]
	b.backpatchSize(f.headerOffset)
}

// Depth reports how many container frames are currently open.
func (b *Builder) Depth() int { return len(b.frames) }
