package plugin

import "sync"

// Loader resolves plugin names within one plugin "type" (builtin, ladspa,
// lv2, ...) into Descriptors. A Loader that cannot load anything on this
// platform still registers, so lookups fail with NotSupported rather than
// NoEntry, matching the filter-graph's behavior of listing disabled plugin
// types instead of hiding them.
type Loader interface {
	// TypeName is the plugin type this loader serves, e.g. "builtin".
	TypeName() string
	// Load resolves name to a Descriptor, or returns a *Error.
	Load(name string) (*Descriptor, error)
}

// Registry dispatches plugin references of the form "type/name" (or a bare
// name, defaulting to "builtin") to the Loader registered for that type.
type Registry struct {
	mu      sync.RWMutex
	loaders map[string]Loader
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{loaders: make(map[string]Loader)}
}

// Register installs a loader for its TypeName, replacing any previous
// loader registered under the same type.
func (r *Registry) Register(l Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders[l.TypeName()] = l
}

// Types lists the registered plugin type names.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.loaders))
	for t := range r.loaders {
		types = append(types, t)
	}
	return types
}

// Load resolves a "type/name" (or bare "name", defaulting to type
// "builtin") reference into a Descriptor.
func (r *Registry) Load(ref string) (*Descriptor, error) {
	typ, name := splitRef(ref)

	r.mu.RLock()
	loader, ok := r.loaders[typ]
	r.mu.RUnlock()
	if !ok {
		return nil, Errorf(NoEntry, "no loader registered for plugin type %q", typ)
	}
	return loader.Load(name)
}

func splitRef(ref string) (typ, name string) {
	for i := 0; i < len(ref); i++ {
		if ref[i] == '/' {
			return ref[:i], ref[i+1:]
		}
	}
	return "builtin", ref
}

// StubLoader implements Loader for a plugin type this build does not
// support, always returning NotSupported. It is used to register
// "ladspa", "lv2", "sofa", "ffmpeg", and "onnx" so that
// referencing them produces a clear error instead of an unknown-type one.
type StubLoader struct {
	Type   string
	Reason string
}

func (s StubLoader) TypeName() string { return s.Type }

func (s StubLoader) Load(name string) (*Descriptor, error) {
	return nil, Errorf(NotSupported, "plugin type %q (%s) is not supported in this build: %s", s.Type, name, s.Reason)
}
