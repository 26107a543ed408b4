package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopInstance struct{}

func (nopInstance) ConnectPort(string, []float32) error { return nil }
func (nopInstance) Activate() error                      { return nil }
func (nopInstance) Run(int) error                         { return nil }
func (nopInstance) Deactivate() error                     { return nil }
func (nopInstance) Cleanup() error                        { return nil }

type fakeLoader struct{ typ string }

func (f fakeLoader) TypeName() string { return f.typ }

func (f fakeLoader) Load(name string) (*Descriptor, error) {
	if name == "missing" {
		return nil, Errorf(NoEntry, "no such plugin %q", name)
	}
	return &Descriptor{
		Name: name,
		New: func(map[string]any, float64) (Instance, error) {
			return nopInstance{}, nil
		},
	}, nil
}

func TestRegistryDispatchesByType(t *testing.T) {
	r := NewRegistry()
	r.Register(fakeLoader{typ: "builtin"})

	d, err := r.Load("builtin/copy")
	require.NoError(t, err)
	assert.Equal(t, "copy", d.Name)
}

func TestRegistryDefaultsToBuiltin(t *testing.T) {
	r := NewRegistry()
	r.Register(fakeLoader{typ: "builtin"})

	d, err := r.Load("copy")
	require.NoError(t, err)
	assert.Equal(t, "copy", d.Name)
}

func TestRegistryUnknownTypeIsNoEntry(t *testing.T) {
	r := NewRegistry()
	_, err := r.Load("lv2/reverb")
	require.Error(t, err)
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, NoEntry, pe.Kind)
}

func TestStubLoaderAlwaysNotSupported(t *testing.T) {
	r := NewRegistry()
	r.Register(StubLoader{Type: "lv2", Reason: "no lv2 host linked in"})

	_, err := r.Load("lv2/reverb")
	require.Error(t, err)
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, NotSupported, pe.Kind)
}

func TestPortByName(t *testing.T) {
	d := &Descriptor{Ports: []Port{{Name: "in"}, {Name: "out"}}}
	p, ok := d.PortByName("out")
	require.True(t, ok)
	assert.Equal(t, Input, p.Direction) // zero value; descriptor in this test doesn't set it

	_, ok = d.PortByName("missing")
	assert.False(t, ok)
}
