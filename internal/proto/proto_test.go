package proto

import (
	"net"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wirepod/wirepod/internal/wire"
)

func socketPair(t *testing.T) (*wire.Connection, *wire.Connection) {
	t.Helper()
	fds, err := syscall.Socketpair(syscall.AF_UNIX, syscall.SOCK_STREAM, 0)
	require.NoError(t, err)
	toConn := func(fd int) *net.UnixConn {
		f := os.NewFile(uintptr(fd), "socketpair")
		c, err := net.FileConn(f)
		require.NoError(t, err)
		f.Close()
		return c.(*net.UnixConn)
	}
	return wire.NewConnection(toConn(fds[0])), wire.NewConnection(toConn(fds[1]))
}

func recvOneMessage(t *testing.T, c *wire.Connection) *wire.Message {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		msg, ok, err := c.GetNext()
		require.NoError(t, err)
		if ok {
			return msg
		}
		require.False(t, time.Now().After(deadline))
		_ = c.Refill()
	}
}

func TestSetControlsRoundTripOverWire(t *testing.T) {
	a, b := socketPair(t)
	iface := NewGraphInterface()
	registry := NewRegistry()
	registry.Register(iface)

	dispatcher := NewDispatcher(registry)
	dispatcher.Bind(7, GraphInterfaceID, PermWrite)

	args := SetControlsArgs{Params: []ControlParam{{Name: "mixer:gain0", Value: 0.5}}}
	require.NoError(t, Send(a, 7, iface.Methods[OpSetControls], args))
	require.NoError(t, a.Flush())

	msg := recvOneMessage(t, b)
	assert.Equal(t, uint32(7), msg.ObjectID)

	name, got, err := dispatcher.Dispatch(msg)
	require.NoError(t, err)
	assert.Equal(t, "set_controls", name)
	sc := got.(SetControlsArgs)
	require.Len(t, sc.Params, 1)
	assert.Equal(t, "mixer:gain0", sc.Params[0].Name)
	assert.InDelta(t, 0.5, sc.Params[0].Value, 1e-9)
}

func TestSetVolumeOptionalChannelsOmitted(t *testing.T) {
	a, b := socketPair(t)
	iface := NewGraphInterface()
	registry := NewRegistry()
	registry.Register(iface)
	dispatcher := NewDispatcher(registry)
	dispatcher.Bind(1, GraphInterfaceID, PermWrite)

	args := SetVolumeArgs{Mute: true}
	require.NoError(t, Send(a, 1, iface.Methods[OpSetVolume], args))
	require.NoError(t, a.Flush())

	msg := recvOneMessage(t, b)
	_, got, err := dispatcher.Dispatch(msg)
	require.NoError(t, err)
	sv := got.(SetVolumeArgs)
	assert.True(t, sv.Mute)
	assert.False(t, sv.HasChannels)
	assert.Empty(t, sv.Channels)
}

func TestSetVolumeWithChannels(t *testing.T) {
	a, b := socketPair(t)
	iface := NewGraphInterface()
	registry := NewRegistry()
	registry.Register(iface)
	dispatcher := NewDispatcher(registry)
	dispatcher.Bind(1, GraphInterfaceID, PermWrite)

	args := SetVolumeArgs{Mute: false, Channels: []float32{0.1, 0.2}, HasChannels: true}
	require.NoError(t, Send(a, 1, iface.Methods[OpSetVolume], args))
	require.NoError(t, a.Flush())

	msg := recvOneMessage(t, b)
	_, got, err := dispatcher.Dispatch(msg)
	require.NoError(t, err)
	sv := got.(SetVolumeArgs)
	require.True(t, sv.HasChannels)
	require.Len(t, sv.Channels, 2)
	assert.InDelta(t, 0.1, sv.Channels[0], 1e-6)
	assert.InDelta(t, 0.2, sv.Channels[1], 1e-6)
}

func TestDispatchDeniesMissingPermission(t *testing.T) {
	a, b := socketPair(t)
	iface := NewGraphInterface()
	registry := NewRegistry()
	registry.Register(iface)
	dispatcher := NewDispatcher(registry)
	dispatcher.Bind(1, GraphInterfaceID, PermRead) // no write

	require.NoError(t, Send(a, 1, iface.Methods[OpSetControls], SetControlsArgs{}))
	require.NoError(t, a.Flush())

	msg := recvOneMessage(t, b)
	_, _, err := dispatcher.Dispatch(msg)
	require.Error(t, err)
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, Access, pe.Kind)
	assert.Equal(t, uint32(1), pe.ObjectID)
}

func TestDispatchUnboundObjectIsProtocolError(t *testing.T) {
	a, b := socketPair(t)
	iface := NewGraphInterface()
	registry := NewRegistry()
	registry.Register(iface)
	dispatcher := NewDispatcher(registry)

	require.NoError(t, Send(a, 99, iface.Methods[OpReset], ResetArgs{}))
	require.NoError(t, a.Flush())

	msg := recvOneMessage(t, b)
	_, _, err := dispatcher.Dispatch(msg)
	require.Error(t, err)
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, Protocol, pe.Kind)
	assert.Equal(t, uint32(99), pe.ObjectID)
}
