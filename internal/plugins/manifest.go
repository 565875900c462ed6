package plugins

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/vertexide/vertex/backend/internal/events"
)

// ManifestHost is a Host backed by a JSON manifest on disk listing the
// plugins the IDE shell currently has deployed. Reload re-reads the file
// and notifies subscribers when the list changed.
type ManifestHost struct {
	path string

	mu   sync.Mutex
	list []Plugin

	changes *events.Emitter[struct{}]
}

// NewManifestHost creates a host reading from path. The file is loaded on
// WillStart; a missing file means no deployed plugins.
func NewManifestHost(path string) *ManifestHost {
	return &ManifestHost{
		path:    path,
		changes: events.NewEmitter[struct{}](),
	}
}

// WillStart loads the manifest. A missing file is not an error.
func (h *ManifestHost) WillStart(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := h.load()
	return err
}

// Plugins returns the current plugin list.
func (h *ManifestHost) Plugins() []Plugin {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Plugin(nil), h.list...)
}

// OnDidChangePlugins registers a callback fired after every reload that
// changed the list.
func (h *ManifestHost) OnDidChangePlugins(fn func()) func() {
	return h.changes.Subscribe(func(struct{}) { fn() })
}

// Reload re-reads the manifest and notifies subscribers if the plugin list
// changed.
func (h *ManifestHost) Reload() error {
	changed, err := h.load()
	if err != nil {
		return err
	}
	if changed {
		h.changes.Emit(struct{}{})
	}
	return nil
}

func (h *ManifestHost) load() (changed bool, err error) {
	data, err := os.ReadFile(h.path)
	if err != nil {
		if os.IsNotExist(err) {
			data = []byte("[]")
		} else {
			return false, fmt.Errorf("failed to read plugin manifest: %w", err)
		}
	}

	var list []Plugin
	if err := json.Unmarshal(data, &list); err != nil {
		return false, fmt.Errorf("failed to parse plugin manifest %s: %w", h.path, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if equalPlugins(h.list, list) {
		return false, nil
	}
	h.list = list
	return true, nil
}

func equalPlugins(a, b []Plugin) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
