package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vertexide/vertex/backend/internal/extensions"
	"github.com/vertexide/vertex/backend/internal/infrastructure/monitoring"
	"github.com/vertexide/vertex/backend/internal/logging"
	"github.com/vertexide/vertex/backend/internal/utils"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev
	},
}

const (
	writeTimeout = 10 * time.Second
	// sendBuffer bounds per-connection outbound queueing; messages to a
	// client that cannot keep up are dropped instead of blocking the model.
	sendBuffer = 32
)

// Handler manages WebSocket connections for the marketplace event stream
type Handler struct {
	model   *extensions.Model
	log     *logging.Logger
	metrics *monitoring.Metrics
}

// NewHandler creates a new WebSocket handler. metrics may be nil.
func NewHandler(model *extensions.Model, log *logging.Logger, metrics *monitoring.Metrics) *Handler {
	return &Handler{
		model:   model,
		log:     log,
		metrics: metrics,
	}
}

type inbound struct {
	Type  string `json:"type"`
	Query string `json:"query"`
}

// HandleConnection upgrades the connection and streams model events until
// the client goes away
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}

	send := make(chan map[string]interface{}, sendBuffer)
	done := make(chan struct{})
	defer close(done)

	unsubChange := h.model.OnDidChange(func() {
		h.enqueue(send, done, map[string]interface{}{
			"type":      "model-updated",
			"timestamp": time.Now().Unix(),
		})
	})
	defer unsubChange()

	unsubResults := h.model.OnDidResults(func(count int) {
		h.enqueue(send, done, map[string]interface{}{
			"type":      "search-results",
			"count":     count,
			"timestamp": time.Now().Unix(),
		})
	})
	defer unsubResults()

	// Writer goroutine owns the connection's write side.
	go func() {
		for {
			select {
			case <-done:
				return
			case msg := <-send:
				conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteJSON(msg); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	h.enqueue(send, done, map[string]interface{}{
		"type":    "system",
		"message": "Connected to Vertex Marketplace (Go)",
	})

	for {
		var msg inbound
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case "set-query":
			h.handleSetQuery(send, done, msg.Query)
		case "ping":
			h.enqueue(send, done, map[string]interface{}{"type": "pong"})
		default:
			h.enqueue(send, done, map[string]interface{}{
				"type":      "error",
				"message":   "unknown message type",
				"timestamp": time.Now().Unix(),
			})
		}
	}
}

func (h *Handler) handleSetQuery(send chan map[string]interface{}, done chan struct{}, query string) {
	if err := utils.ValidateQuery(query); err != nil {
		h.enqueue(send, done, map[string]interface{}{
			"type":      "error",
			"message":   err.Error(),
			"timestamp": time.Now().Unix(),
		})
		return
	}

	h.model.SetQuery(query)
	h.enqueue(send, done, map[string]interface{}{
		"type":      "query-accepted",
		"query":     query,
		"timestamp": time.Now().Unix(),
	})
}

// enqueue delivers a message to the writer without ever blocking a model
// event callback
func (h *Handler) enqueue(send chan map[string]interface{}, done chan struct{}, msg map[string]interface{}) {
	select {
	case <-done:
	case send <- msg:
	default:
		h.log.Debug("dropping websocket message, client too slow")
	}
}
