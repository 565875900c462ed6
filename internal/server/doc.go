// Package server provides HTTP server setup and initialization for the
// marketplace backend.
//
// This package orchestrates all components:
//   - HTTP routing with Gin framework
//   - Middleware stack (CORS, rate limiting, metrics, recovery)
//   - Remote registry client construction
//   - Plugin host and extension model wiring
//
// Server Lifecycle:
//  1. Load configuration from environment
//  2. Initialize logger (production or development)
//  3. Build the registry client and plugin host
//  4. Start the extension model's bootstrap sequences
//  5. Serve HTTP until the context is cancelled
//  6. Graceful shutdown on signal
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.NewServer(cfg, logger)
//	if err := srv.Run(ctx); err != nil {
//	    logger.Fatal("server failed", zap.Error(err))
//	}
package server
