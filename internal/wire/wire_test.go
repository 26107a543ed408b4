package wire

import (
	"net"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wirepod/wirepod/internal/pod"
)

func socketPair(t *testing.T) (*Connection, *Connection) {
	t.Helper()
	fds, err := syscall.Socketpair(syscall.AF_UNIX, syscall.SOCK_STREAM, 0)
	require.NoError(t, err)

	toConn := func(fd int) *net.UnixConn {
		f := os.NewFile(uintptr(fd), "socketpair")
		c, err := net.FileConn(f)
		require.NoError(t, err)
		f.Close()
		uc, ok := c.(*net.UnixConn)
		require.True(t, ok)
		return uc
	}

	a := NewConnection(toConn(fds[0]))
	b := NewConnection(toConn(fds[1]))
	return a, b
}

func recvOneMessage(t *testing.T, c *Connection) *Message {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		msg, ok, err := c.GetNext()
		require.NoError(t, err)
		if ok {
			return msg
		}
		require.False(t, time.Now().After(deadline), "timed out waiting for a message")
		err = c.Refill()
		if err != nil {
			if e, ok2 := err.(*Error); ok2 && e.Kind == TryAgain {
				continue
			}
			require.NoError(t, err)
		}
	}
}

// TestPayloadRoundTrip verifies a struct built on one side of a
// connection arrives intact on the other.
func TestPayloadRoundTrip(t *testing.T) {
	a, b := socketPair(t)

	builder, err := a.Begin(5, 3)
	require.NoError(t, err)
	builder.PushStruct()
	builder.PutInt(42)
	builder.Pop()
	require.NoError(t, a.End())
	require.NoError(t, a.Flush())

	msg := recvOneMessage(t, b)
	assert := require.New(t)
	assert.Equal(uint32(5), msg.ObjectID)
	assert.Equal(uint8(3), msg.Opcode)

	v, err := pod.Decode(msg.Payload)
	require.NoError(t, err)
	require.Len(t, v.Fields, 1)
	assert.Equal(int32(42), v.Fields[0].Int)
}

// TestFDRoundTrip verifies a struct carrying an AddFD index (as an Int
// pod) round-trips together with the real file descriptor it references.
func TestFDRoundTrip(t *testing.T) {
	a, b := socketPair(t)

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	builder, err := a.Begin(1, 0)
	require.NoError(t, err)
	fdIndex, err := a.AddFD(int(w.Fd()))
	require.NoError(t, err)

	builder.PushStruct()
	builder.PutInt(42)
	builder.PutID(uint32(pod.TypeObject))
	builder.PutInt(int32(fdIndex))
	builder.Pop()
	require.NoError(t, a.End())
	require.NoError(t, a.Flush())

	msg := recvOneMessage(t, b)
	require.Equal(t, 1, msg.NFds())

	v, err := pod.Decode(msg.Payload)
	require.NoError(t, err)
	require.Len(t, v.Fields, 3)
	require.Equal(t, int32(42), v.Fields[0].Int)
	require.Equal(t, uint32(pod.TypeObject), v.Fields[1].ID)

	fd, err := msg.GetFd(uint32(v.Fields[2].Int))
	require.NoError(t, err)
	assert := require.New(t)
	assert.Greater(fd, 0)
	msg.Release()

	// The claimed fd is a real, usable duplicate of the write end.
	f := os.NewFile(uintptr(fd), "received")
	defer f.Close()
	_, err = f.WriteString("x")
	require.NoError(t, err)
}

// TestGenerationFooterSync verifies that once a received generation has
// been recorded, the receiving side's own outbound messages carry that
// generation until it advances.
func TestGenerationFooterSync(t *testing.T) {
	server, client := socketPair(t)

	sendWithGeneration := func(c *Connection, gen uint64, hasGen bool) {
		if hasGen {
			c.Footer().SetGeneration(gen)
		}
		b, err := c.Begin(1, 0)
		require.NoError(t, err)
		b.PushStruct()
		b.PutInt(1)
		b.Pop()
		require.NoError(t, c.End())
		require.NoError(t, c.Flush())
	}

	sendWithGeneration(server, 7, true)
	msg1 := recvOneMessage(t, client)
	require.NotEmpty(t, msg1.Footer)
	assert := require.New(t)
	assert.Equal(uint64(7), client.Footer().ReceivedGeneration())

	// Client echoes the generation it learned on its own next message.
	client.Footer().SetGeneration(client.Footer().ReceivedGeneration())
	sendWithGeneration(client, client.Footer().ReceivedGeneration(), false)
	msg2 := recvOneMessage(t, server)
	require.NotEmpty(t, msg2.Footer)
	assert.Equal(uint64(7), server.Footer().ReceivedGeneration())

	// A second message from the client still carries generation 7, since
	// the client's local generation has not advanced.
	sendWithGeneration(client, 0, false)
	msg3 := recvOneMessage(t, server)
	require.NotEmpty(t, msg3.Footer)
	assert.Equal(uint64(7), server.Footer().ReceivedGeneration())
}
