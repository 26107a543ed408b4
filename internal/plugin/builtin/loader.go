package builtin

import "github.com/wirepod/wirepod/internal/plugin"

// biquadLabels lists every bq_* label this build registers, matching
// plugin_builtin.c's bq_lowpass..bq_raw table.
var biquadLabels = []string{
	"bq_lowpass", "bq_highpass", "bq_bandpass", "bq_lowshelf",
	"bq_highshelf", "bq_peaking", "bq_notch", "bq_allpass", "bq_raw",
}

// Loader resolves the fixed "builtin" plugin type's ~30 node labels to
// Descriptors. Unlike the other plugin types, it never fails to find a
// label due to missing host support: every label here is fully
// implemented in Go.
type Loader struct {
	descriptors map[string]*plugin.Descriptor
	order       []string
}

// NewLoader builds the builtin catalog, grounded on
// spa/plugins/filter-graph/plugin_builtin.c's node table.
func NewLoader() *Loader {
	l := &Loader{descriptors: make(map[string]*plugin.Descriptor)}

	l.add(MixerDescriptor)
	l.add(CopyDescriptor)
	l.add(ConvolverDescriptor)
	l.add(DelayDescriptor)
	l.add(SineDescriptor)
	l.add(ParamEqDescriptor)
	l.add(DCBlockDescriptor)
	l.add(SpatializerDescriptor)
	l.add(PipeDescriptor)
	l.add(NoisegateDescriptor)
	l.add(ZeroRampDescriptor)
	l.add(Ebur128Descriptor)
	l.add(InvertDescriptor)
	l.add(ClampDescriptor)
	l.add(LinearDescriptor)
	l.add(RecipDescriptor)
	l.add(ExpDescriptor)
	l.add(LogDescriptor)
	l.add(AbsDescriptor)
	l.add(SqrtDescriptor)
	l.add(MaxDescriptor)
	l.add(DebugDescriptor)

	for _, label := range biquadLabels {
		l.add(NewBiquadDescriptor(label))
	}

	return l
}

func (l *Loader) add(d *plugin.Descriptor) {
	if _, dup := l.descriptors[d.Name]; !dup {
		l.order = append(l.order, d.Name)
	}
	l.descriptors[d.Name] = d
}

func (l *Loader) TypeName() string { return "builtin" }

func (l *Loader) Load(name string) (*plugin.Descriptor, error) {
	d, ok := l.descriptors[name]
	if !ok {
		return nil, plugin.Errorf(plugin.NoEntry, "no builtin node named %q", name)
	}
	return d, nil
}

// Names lists every registered builtin label, sorted by registration order
// (biquad labels last), for property enumeration.
func (l *Loader) Names() []string {
	return append([]string(nil), l.order...)
}

// RegisterUnsupportedLoaders installs NotSupported stub loaders for every
// plugin type this build does not implement a real host for: ladspa, lv2,
// sofa, ffmpeg, onnx. "ebur128" is not stubbed because the builtin catalog
// already provides a real (if simplified) loudness meter node.
func RegisterUnsupportedLoaders(r *plugin.Registry) {
	r.Register(plugin.StubLoader{Type: "ladspa", Reason: "no LADSPA host linked into this build"})
	r.Register(plugin.StubLoader{Type: "lv2", Reason: "no LV2 host linked into this build"})
	r.Register(plugin.StubLoader{Type: "sofa", Reason: "no SOFA dataset reader linked into this build; pass ir_left/ir_right to spatializer directly"})
	r.Register(plugin.StubLoader{Type: "ffmpeg", Reason: "no ffmpeg codec bridge linked into this build"})
	r.Register(plugin.StubLoader{Type: "onnx", Reason: "no ONNX runtime linked into this build"})
}
