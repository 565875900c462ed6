package plugins

import "context"

// EngineKind tags the runtime a deployed plugin targets.
type EngineKind string

const (
	// KindVSX marks marketplace extensions; only these participate in the
	// installed scan.
	KindVSX EngineKind = "vsx"
	// KindBuiltinFrontend marks plugins compiled into the shell itself.
	KindBuiltinFrontend EngineKind = "frontend"
)

// Plugin describes a plugin the host currently has deployed.
type Plugin struct {
	// ID is the lowercase "namespace.name" extension id.
	ID string `json:"id"`
	// Kind is the plugin's engine type.
	Kind EngineKind `json:"kind"`
	// Builtin is true for plugins shipped with the host.
	Builtin bool `json:"builtin"`
}

// Host is the plugin-host collaborator. Implementations own the transport
// to the actual plugin runtime; the model only consumes this contract.
type Host interface {
	// WillStart blocks until the host is ready to enumerate plugins.
	WillStart(ctx context.Context) error
	// Plugins returns the host's current plugin list.
	Plugins() []Plugin
	// OnDidChangePlugins registers a callback fired on every plugin-list
	// change. The returned function removes the subscription.
	OnDidChangePlugins(fn func()) func()
}
