package convolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestShortIRRunsDirectOnly checks that an impulse response shorter than
// the direct head never allocates a frequency-domain tail.
func TestShortIRRunsDirectOnly(t *testing.T) {
	ir := make([]float32, 8)
	ir[0] = 1
	c := New(ir, 4)
	require.Empty(t, c.partitions)
	assert.Equal(t, 0, c.Latency())
}

// TestDiracIdentityDirectOnly exercises Dirac-impulse identity
// property for the short, direct-only path: convolving with a unit impulse
// reproduces the input exactly (after the path's own latency, which is zero
// when the IR fits entirely in the direct head).
func TestDiracIdentityDirectOnly(t *testing.T) {
	ir := make([]float32, 16)
	ir[0] = 1
	blockSize := 8
	c := New(ir, blockSize)

	src := []float32{1, 2, 3, 4, 5, 6, 7, 8}
	dst := make([]float32, blockSize)
	c.Run(dst, src, blockSize)

	assert.Equal(t, src, dst)
}

// TestDelayedImpulseShiftsSignal checks that an impulse response with a
// single unit tap at offset k delays the input by k samples within the
// direct-head-only regime.
func TestDelayedImpulseShiftsSignal(t *testing.T) {
	ir := make([]float32, 16)
	ir[3] = 1
	blockSize := 8
	c := New(ir, blockSize)

	src := []float32{1, 2, 3, 4, 5, 6, 7, 8}
	dst := make([]float32, blockSize)
	c.Run(dst, src, blockSize)

	want := []float32{0, 0, 0, 1, 2, 3, 4, 5}
	assert.Equal(t, want, dst)
}

func TestResetClearsHistory(t *testing.T) {
	ir := make([]float32, 8)
	ir[0] = 1
	c := New(ir, 4)

	src := []float32{1, 2, 3, 4}
	dst := make([]float32, 4)
	c.Run(dst, src, 4)
	c.Reset()

	dst2 := make([]float32, 4)
	zero := make([]float32, 4)
	c.Run(dst2, zero, 4)
	assert.Equal(t, zero, dst2)
}

// TestLongIRBuildsPartitions checks that an IR longer than the direct head
// allocates frequency-domain tail partitions and reports nonzero latency.
func TestLongIRBuildsPartitions(t *testing.T) {
	ir := make([]float32, 600)
	ir[0] = 1
	blockSize := 64
	c := New(ir, blockSize)

	require.NotEmpty(t, c.partitions)
	assert.Equal(t, blockSize, c.Latency())
}
