package proto

import (
	"github.com/wirepod/wirepod/internal/pod"
)

// GraphInterfaceID identifies the filter-graph control interface in the
// object-id -> interface binding table.
const GraphInterfaceID uint32 = 1

const (
	OpSetControls uint8 = iota
	OpSetVolume
	OpReset
	OpControlChanged
)

// ControlParam is one (name, value) pair in a set_controls call: a flat
// params list of (name, value) used to mutate controls.
type ControlParam struct {
	Name  string
	Value float64
}

// SetControlsArgs is OpSetControls' argument struct.
type SetControlsArgs struct {
	Params []ControlParam
}

// SetVolumeArgs is OpSetVolume's argument struct. Channels is optional:
// a mute-only message omits it entirely, per the `?`-prefixed
// optional field convention applied positionally to a Struct.
type SetVolumeArgs struct {
	Mute        bool
	Channels    []float32
	HasChannels bool
}

// ResetArgs is OpReset's (empty) argument struct.
type ResetArgs struct{}

// ControlChangedArgs is the OpControlChanged server-to-client notification
// payload naming one node control and its new value. The control server in
// cmd/wirepod-graph does not send it.
type ControlChangedArgs struct {
	Node    string
	Control string
	Value   float64
}

// NewGraphInterface builds the filter-graph control interface: the method
// table a client uses to mutate a running graph and the event the server
// uses to report the result.
func NewGraphInterface() *Interface {
	iface := NewInterface("graph", GraphInterfaceID)

	iface.AddMethod(&Method{
		Name:       "set_controls",
		Opcode:     OpSetControls,
		Permission: PermWrite,
		Marshal: func(b *pod.Builder, a any) error {
			args := a.(SetControlsArgs)
			b.PushStruct()
			for _, p := range args.Params {
				b.PutString(p.Name)
				b.PutDouble(p.Value)
			}
			b.Pop()
			return nil
		},
		Demarshal: func(p *pod.Parser) (any, error) {
			if err := p.PushStruct(); err != nil {
				return nil, err
			}
			var params []ControlParam
			for p.HasNext() {
				name, err := p.GetString()
				if err != nil {
					return nil, err
				}
				val, err := p.GetDouble()
				if err != nil {
					return nil, err
				}
				params = append(params, ControlParam{Name: name, Value: val})
			}
			p.Pop()
			return SetControlsArgs{Params: params}, nil
		},
	})

	iface.AddMethod(&Method{
		Name:       "set_volume",
		Opcode:     OpSetVolume,
		Permission: PermWrite,
		Marshal: func(b *pod.Builder, a any) error {
			args := a.(SetVolumeArgs)
			b.PushStruct()
			b.PutBool(args.Mute)
			if args.HasChannels {
				b.PushArray(pod.TypeFloat, 4)
				for _, v := range args.Channels {
					var body [4]byte
					putFloat32(body[:], v)
					b.PutArrayElem(body[:])
				}
				b.Pop()
			}
			b.Pop()
			return nil
		},
		Demarshal: func(p *pod.Parser) (any, error) {
			if err := p.PushStruct(); err != nil {
				return nil, err
			}
			mute, err := p.GetBool()
			if err != nil {
				return nil, err
			}
			args := SetVolumeArgs{Mute: mute}
			if p.HasNext() {
				_, childSize, count, err := p.PushArray()
				if err != nil {
					return nil, err
				}
				args.Channels = make([]float32, 0, count)
				for i := 0; i < count; i++ {
					elem, err := p.NextArrayElem(childSize)
					if err != nil {
						return nil, err
					}
					args.Channels = append(args.Channels, getFloat32(elem))
				}
				p.Pop()
				args.HasChannels = true
			}
			p.Pop()
			return args, nil
		},
	})

	iface.AddMethod(&Method{
		Name:       "reset",
		Opcode:     OpReset,
		Permission: PermWrite,
		Marshal: func(b *pod.Builder, a any) error {
			b.PushStruct()
			b.Pop()
			return nil
		},
		Demarshal: func(p *pod.Parser) (any, error) {
			if err := p.PushStruct(); err != nil {
				return nil, err
			}
			p.Pop()
			return ResetArgs{}, nil
		},
	})

	iface.AddMethod(&Method{
		Name:       "control_changed",
		Opcode:     OpControlChanged,
		Permission: PermRead,
		Marshal: func(b *pod.Builder, a any) error {
			args := a.(ControlChangedArgs)
			b.PushStruct()
			b.PutString(args.Node)
			b.PutString(args.Control)
			b.PutDouble(args.Value)
			b.Pop()
			return nil
		},
		Demarshal: func(p *pod.Parser) (any, error) {
			if err := p.PushStruct(); err != nil {
				return nil, err
			}
			node, err := p.GetString()
			if err != nil {
				return nil, err
			}
			control, err := p.GetString()
			if err != nil {
				return nil, err
			}
			value, err := p.GetDouble()
			if err != nil {
				return nil, err
			}
			p.Pop()
			return ControlChangedArgs{Node: node, Control: control, Value: value}, nil
		},
	})

	return iface
}
