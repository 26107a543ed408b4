package pod

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestBuilderScalarRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		i := rapid.Int32().Draw(t, "i")
		l := rapid.Int64().Draw(t, "l")
		f := rapid.Float32().Draw(t, "f")
		d := rapid.Float64().Draw(t, "d")
		s := rapid.String().Draw(t, "s")
		bl := rapid.Bool().Draw(t, "bl")

		b := NewBuilder()
		b.PushStruct()
		b.PutInt(i)
		b.PutLong(l)
		b.PutFloat(f)
		b.PutDouble(d)
		b.PutString(s)
		b.PutBool(bl)
		b.Pop()

		v, err := Decode(b.Bytes())
		require.NoError(t, err)
		require.Equal(t, TypeStruct, v.Type)
		require.Len(t, v.Fields, 6)
		assert.Equal(t, i, v.Fields[0].Int)
		assert.Equal(t, l, v.Fields[1].Long)
		assert.Equal(t, f, v.Fields[2].Float)
		assert.Equal(t, d, v.Fields[3].Double)
		assert.Equal(t, s, v.Fields[4].String)
		assert.Equal(t, bl, v.Fields[5].Bool)
	})
}

func TestBuilderBytesAndAlignmentRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := rapid.SliceOfN(rapid.Byte(), 0, 37).Draw(t, "data")

		b := NewBuilder()
		b.PushStruct()
		b.PutBytes(data)
		b.PutInt(7) // trailing value exercises the padding the Bytes pod left
		b.Pop()

		assert.Equal(t, 0, len(b.Bytes())%8, "overall buffer must stay 8-byte aligned")

		v, err := Decode(b.Bytes())
		require.NoError(t, err)
		require.Len(t, v.Fields, 2)
		assert.Equal(t, data, v.Fields[0].Bytes)
		assert.Equal(t, int32(7), v.Fields[1].Int)
	})
}

func TestObjectPropsRoundTrip(t *testing.T) {
	b := NewBuilder()
	b.PushObject(1, 2)
	b.PutPropHeader(10, 0)
	b.PutInt(42)
	b.PutPropHeader(11, 0)
	b.PutString("hello")
	b.Pop()

	v, err := Decode(b.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint32(1), v.ObjType)
	assert.Equal(t, uint32(2), v.ObjID)
	require.Len(t, v.Props, 2)
	assert.Equal(t, uint32(10), v.Props[0].Key)
	assert.Equal(t, int32(42), v.Props[0].Value.Int)
	assert.Equal(t, uint32(11), v.Props[1].Key)
	assert.Equal(t, "hello", v.Props[1].Value.String)
}

func TestFindPropSkipsUnwanted(t *testing.T) {
	b := NewBuilder()
	b.PushObject(1, 1)
	b.PutPropHeader(1, 0)
	b.PutInt(1)
	b.PutPropHeader(2, 0)
	b.PutInt(2)
	b.PutPropHeader(3, 0)
	b.PutInt(3)
	b.Pop()

	p := NewParser(b.Bytes())
	_, _, err := p.PushObject()
	require.NoError(t, err)

	_, err = p.FindProp(3)
	require.NoError(t, err)
	v, err := p.GetInt()
	require.NoError(t, err)
	assert.Equal(t, int32(3), v)
}

func TestFindPropMissingIsNoEntry(t *testing.T) {
	b := NewBuilder()
	b.PushObject(1, 1)
	b.PutPropHeader(1, 0)
	b.PutInt(1)
	b.Pop()

	p := NewParser(b.Bytes())
	_, _, err := p.PushObject()
	require.NoError(t, err)

	_, err = p.FindProp(99)
	require.Error(t, err)
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, NoEntry, pe.Kind)
}

func TestArrayRoundTrip(t *testing.T) {
	b := NewBuilder()
	b.PushArray(TypeInt, 4)
	for i := int32(0); i < 5; i++ {
		var body [4]byte
		body[0] = byte(i)
		b.PutArrayElem(body[:])
	}
	b.Pop()

	v, err := Decode(b.Bytes())
	require.NoError(t, err)
	assert.Equal(t, TypeInt, v.ArrayChildType)
	require.Len(t, v.ArrayElems, 5)
	for i, elem := range v.ArrayElems {
		assert.Equal(t, byte(i), elem[0])
	}
}

// TestChoiceNoneUnwrapsTransparently exercises rule that a
// Choice{None, single alternative} is readable as a plain value of that
// alternative's type.
func TestChoiceNoneUnwrapsTransparently(t *testing.T) {
	b := NewBuilder()
	b.PushStruct()
	b.PushChoice(ChoiceNone, 0, TypeInt, 4)
	var body [4]byte
	body[0] = 9
	b.PutChoiceAlternative(body[:])
	b.Pop() // choice
	b.Pop() // struct

	p := NewParser(b.Bytes())
	require.NoError(t, p.PushStruct())
	v, err := p.GetInt()
	require.NoError(t, err)
	assert.Equal(t, int32(9), v)
}

func TestChoiceEnumDoesNotUnwrap(t *testing.T) {
	b := NewBuilder()
	b.PushChoice(ChoiceEnum, 0, TypeInt, 4)
	for i := int32(0); i < 3; i++ {
		var body [4]byte
		body[0] = byte(i)
		b.PutChoiceAlternative(body[:])
	}
	b.Pop()

	p := NewParser(b.Bytes())
	_, err := p.GetInt()
	require.Error(t, err)
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, Invalid, pe.Kind)
}

func TestTruncatedBufferIsPipeError(t *testing.T) {
	b := NewBuilder()
	b.PutInt(5)
	buf := b.Bytes()[:4] // chop off the type field and body

	_, err := Decode(buf)
	require.Error(t, err)
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, Pipe, pe.Kind)
}

func TestTypeMismatchIsInvalidError(t *testing.T) {
	b := NewBuilder()
	b.PutInt(5)

	p := NewParser(b.Bytes())
	_, err := p.GetString()
	require.Error(t, err)
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, Invalid, pe.Kind)
}

func TestNestedStructRoundTrip(t *testing.T) {
	b := NewBuilder()
	b.PushStruct()
	b.PutInt(1)
	b.PushStruct()
	b.PutInt(2)
	b.PutInt(3)
	b.Pop()
	b.PutInt(4)
	b.Pop()

	v, err := Decode(b.Bytes())
	require.NoError(t, err)
	require.Len(t, v.Fields, 3)
	assert.Equal(t, int32(1), v.Fields[0].Int)
	require.Len(t, v.Fields[1].Fields, 2)
	assert.Equal(t, int32(2), v.Fields[1].Fields[0].Int)
	assert.Equal(t, int32(3), v.Fields[1].Fields[1].Int)
	assert.Equal(t, int32(4), v.Fields[2].Int)
}
