package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vertexide/vertex/backend/internal/config"
	"github.com/vertexide/vertex/backend/internal/extensions"
	apihttp "github.com/vertexide/vertex/backend/internal/http"
	"github.com/vertexide/vertex/backend/internal/infrastructure/monitoring"
	"github.com/vertexide/vertex/backend/internal/logging"
	"github.com/vertexide/vertex/backend/internal/middleware"
	"github.com/vertexide/vertex/backend/internal/openvsx"
	"github.com/vertexide/vertex/backend/internal/plugins"
	"github.com/vertexide/vertex/backend/internal/progress"
	"github.com/vertexide/vertex/backend/internal/readme"
	"github.com/vertexide/vertex/backend/internal/ws"
)

// Server wraps the HTTP server and its marketplace dependencies
type Server struct {
	cfg    *config.Config
	log    *logging.Logger
	router *gin.Engine
	model  *extensions.Model
	host   *plugins.ManifestHost

	httpServer *http.Server
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, log *logging.Logger) (*Server, error) {
	metrics := monitoring.NewMetrics()

	registry, err := openvsx.NewClient(openvsx.Options{
		BaseURL:       cfg.Marketplace.RegistryURL,
		EngineVersion: cfg.Marketplace.EngineVersion,
		Timeout:       cfg.Marketplace.RequestTimeout,
		RateLimit:     cfg.Marketplace.RateLimit,
		Logger:        log.Named("openvsx"),
	})
	if err != nil {
		return nil, err
	}

	host := plugins.NewManifestHost(cfg.Marketplace.PluginsManifest)

	model := extensions.NewModel(extensions.Options{
		Registry: registry,
		Host:     host,
		Renderer: readme.New(1),
		Progress: progress.NewLogReporter(log.Named("tasks"), metrics),
		Logger:   log.Named("model"),
		Metrics:  metrics,
		Debounce: cfg.Marketplace.SearchDebounce,
	})

	if cfg.Logging.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
	router.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "Cache-Control"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	handlers := apihttp.NewHandlers(model, registry, host)
	wsHandler := ws.NewHandler(model, log.Named("ws"), metrics)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Marketplace endpoints
	router.GET("/marketplace/installed", handlers.ListInstalled)
	router.GET("/marketplace/search", handlers.GetSearch)
	router.PUT("/marketplace/search", handlers.UpdateQuery)
	router.GET("/marketplace/extensions/:id", handlers.GetExtension)
	router.POST("/marketplace/extensions/:id/resolve", handlers.ResolveExtension)

	// Plugin host endpoints
	router.POST("/plugins/reload", handlers.ReloadPlugins)

	// WebSocket event stream
	router.GET("/stream", wsHandler.HandleConnection)

	return &Server{
		cfg:    cfg,
		log:    log,
		router: router,
		model:  model,
		host:   host,
	}, nil
}

// Run starts the model and serves HTTP until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	s.model.Start(ctx)

	addr := s.cfg.Server.Host + ":" + s.cfg.Server.Port
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	s.log.Info("starting marketplace server", zap.String("addr", addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.log.Info("shutting down marketplace server")
	return s.httpServer.Shutdown(ctx)
}
