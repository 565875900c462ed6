package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vertexide/vertex/backend/internal/extensions"
	"github.com/vertexide/vertex/backend/internal/openvsx"
	"github.com/vertexide/vertex/backend/internal/plugins"
	"github.com/vertexide/vertex/backend/internal/types"
	"github.com/vertexide/vertex/backend/internal/utils"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	model    *extensions.Model
	registry *openvsx.Client
	host     *plugins.ManifestHost
}

// NewHandlers creates a new handler set. registry and host may be nil in
// tests.
func NewHandlers(model *extensions.Model, registry *openvsx.Client, host *plugins.ManifestHost) *Handlers {
	return &Handlers{
		model:    model,
		registry: registry,
		host:     host,
	}
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "Vertex Marketplace (Go)",
		"version": "0.2.0",
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	registryState := "unknown"
	if h.registry != nil {
		registryState = h.registry.BreakerState().String()
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"marketplace": gin.H{
			"installed":      len(h.model.Installed()),
			"search_results": len(h.model.SearchResults()),
			"query":          h.model.Query(),
		},
		"registry": gin.H{"circuit": registryState},
	})
}

// GetExtension returns the cached entry for an extension id
func (h *Handlers) GetExtension(c *gin.Context) {
	id := c.Param("id")

	if err := utils.ValidateExtensionID(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ext, ok := h.model.Extension(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "extension not known"})
		return
	}

	c.JSON(http.StatusOK, ext)
}

// ListInstalled lists the installed extension set
func (h *Handlers) ListInstalled(c *gin.Context) {
	ids := h.model.Installed()

	c.JSON(http.StatusOK, gin.H{
		"ids":        ids,
		"extensions": h.hydrate(ids),
	})
}

// GetSearch returns the current query and its result set
func (h *Handlers) GetSearch(c *gin.Context) {
	ids := h.model.SearchResults()

	c.JSON(http.StatusOK, gin.H{
		"query":      h.model.Query(),
		"ids":        ids,
		"extensions": h.hydrate(ids),
	})
}

// UpdateQuery sets the search query; evaluation is debounced and results
// arrive over the event stream
func (h *Handlers) UpdateQuery(c *gin.Context) {
	var req struct {
		Query string `json:"query"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := utils.ValidateQuery(req.Query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.model.SetQuery(req.Query)

	c.JSON(http.StatusAccepted, gin.H{
		"query": req.Query,
	})
}

// ResolveExtension refreshes an extension from the remote registry and
// returns it with its rendered readme
func (h *Handlers) ResolveExtension(c *gin.Context) {
	id := c.Param("id")

	if err := utils.ValidateExtensionID(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ext, err := h.model.Resolve(c.Request.Context(), id)
	if err != nil {
		var resErr *extensions.ResolutionError
		if errors.As(err, &resErr) && openvsx.IsNotFound(resErr.Err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "extension not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, ext)
}

// ReloadPlugins re-reads the plugin manifest; the installed scan follows
// through the host's change notification
func (h *Handlers) ReloadPlugins(c *gin.Context) {
	if h.host == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no plugin host attached"})
		return
	}

	if err := h.host.Reload(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"plugins": len(h.host.Plugins()),
	})
}

// hydrate maps ids to their cached entries, dropping any id that has no
// table entry yet
func (h *Handlers) hydrate(ids []string) []types.Extension {
	exts := make([]types.Extension, 0, len(ids))
	for _, id := range ids {
		if ext, ok := h.model.Extension(id); ok {
			exts = append(exts, ext)
		}
	}
	return exts
}
