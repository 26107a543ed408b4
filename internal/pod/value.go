package pod

// Prop is one decoded Object property: a key, its flags, and its value.
type Prop struct {
	Key   uint32
	Flags uint32
	Value Value
}

// Value is a fully decoded POD, used by Decode for introspection and by
// round-trip tests. It is a convenience tree on top of Parser/Builder, not
// itself part of the wire format.
type Value struct {
	Type Type

	Bool     bool
	ID       uint32
	Int      int32
	Long     int64
	Float    float32
	Double   float64
	String   string
	Bytes    []byte
	Rect     Rectangle
	Frac     Fraction
	Fd       int64
	Pointer  uint64

	// Struct, Sequence
	Fields []Value

	// Object
	ObjType uint32
	ObjID   uint32
	Props   []Prop

	// Array
	ArrayChildType Type
	ArrayElems     [][]byte

	// Choice
	ChoiceKind         ChoiceKind
	ChoiceFlags        uint32
	ChoiceChildType    Type
	ChoiceAlternatives [][]byte
}

// Decode parses exactly one top-level POD from buf and returns it as a
// Value tree, failing if any bytes remain unconsumed afterwards.
func Decode(buf []byte) (Value, error) {
	p := NewParser(buf)
	v, err := decodeValue(p)
	if err != nil {
		return Value{}, err
	}
	if p.pos != len(p.buf) {
		return Value{}, errorf(Protocol, "trailing bytes after top-level pod")
	}
	return v, nil
}

func decodeValue(p *Parser) (Value, error) {
	typ, _, err := p.peekHeader()
	if err != nil {
		return Value{}, err
	}
	switch typ {
	case TypeNone:
		if err := p.GetNone(); err != nil {
			return Value{}, err
		}
		return Value{Type: TypeNone}, nil
	case TypeBool:
		b, err := p.GetBool()
		return Value{Type: TypeBool, Bool: b}, err
	case TypeID:
		id, err := p.GetID()
		return Value{Type: TypeID, ID: id}, err
	case TypeInt:
		v, err := p.GetInt()
		return Value{Type: TypeInt, Int: v}, err
	case TypeLong:
		v, err := p.GetLong()
		return Value{Type: TypeLong, Long: v}, err
	case TypeFloat:
		v, err := p.GetFloat()
		return Value{Type: TypeFloat, Float: v}, err
	case TypeDouble:
		v, err := p.GetDouble()
		return Value{Type: TypeDouble, Double: v}, err
	case TypeString:
		v, err := p.GetString()
		return Value{Type: TypeString, String: v}, err
	case TypeBytes:
		v, err := p.GetBytes()
		return Value{Type: TypeBytes, Bytes: v}, err
	case TypeRectangle:
		v, err := p.GetRectangle()
		return Value{Type: TypeRectangle, Rect: v}, err
	case TypeFraction:
		v, err := p.GetFraction()
		return Value{Type: TypeFraction, Frac: v}, err
	case TypeFd:
		v, err := p.GetFd()
		return Value{Type: TypeFd, Fd: v}, err
	case TypePointer:
		v, err := p.GetPointer()
		return Value{Type: TypePointer, Pointer: v}, err
	case TypeStruct:
		if err := p.PushStruct(); err != nil {
			return Value{}, err
		}
		var fields []Value
		for p.HasNext() {
			v, err := decodeValue(p)
			if err != nil {
				return Value{}, err
			}
			fields = append(fields, v)
		}
		p.Pop()
		return Value{Type: TypeStruct, Fields: fields}, nil
	case TypeSequence:
		if err := p.PushSequence(); err != nil {
			return Value{}, err
		}
		var fields []Value
		for p.HasNext() {
			v, err := decodeValue(p)
			if err != nil {
				return Value{}, err
			}
			fields = append(fields, v)
		}
		p.Pop()
		return Value{Type: TypeSequence, Fields: fields}, nil
	case TypeObject:
		objType, objID, err := p.PushObject()
		if err != nil {
			return Value{}, err
		}
		var props []Prop
		for p.HasNext() {
			key, flags, err := p.NextPropKey()
			if err != nil {
				return Value{}, err
			}
			v, err := decodeValue(p)
			if err != nil {
				return Value{}, err
			}
			props = append(props, Prop{Key: key, Flags: flags, Value: v})
		}
		p.Pop()
		return Value{Type: TypeObject, ObjType: objType, ObjID: objID, Props: props}, nil
	case TypeArray:
		childType, childSize, count, err := p.PushArray()
		if err != nil {
			return Value{}, err
		}
		elems := make([][]byte, 0, count)
		for i := 0; i < count; i++ {
			b, err := p.NextArrayElem(childSize)
			if err != nil {
				return Value{}, err
			}
			elems = append(elems, append([]byte(nil), b...))
		}
		p.Pop()
		return Value{Type: TypeArray, ArrayChildType: childType, ArrayElems: elems}, nil
	case TypeChoice:
		kind, flags, childType, childSize, count, err := p.PushChoice()
		if err != nil {
			return Value{}, err
		}
		alts := make([][]byte, 0, count)
		for i := 0; i < count; i++ {
			b, err := p.NextChoiceAlternative(childSize)
			if err != nil {
				return Value{}, err
			}
			alts = append(alts, append([]byte(nil), b...))
		}
		p.Pop()
		return Value{
			Type:               TypeChoice,
			ChoiceKind:         kind,
			ChoiceFlags:        flags,
			ChoiceChildType:    childType,
			ChoiceAlternatives: alts,
		}, nil
	default:
		return Value{}, errorf(Invalid, "unsupported pod type %s", typ)
	}
}
