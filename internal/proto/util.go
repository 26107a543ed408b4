package proto

import (
	"encoding/binary"
	"math"
)

func putFloat32(dst []byte, v float32) {
	binary.LittleEndian.PutUint32(dst, math.Float32bits(v))
}

func getFloat32(src []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(src))
}
