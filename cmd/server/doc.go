// Package main is the entry point for the marketplace backend server.
//
// This application serves the IDE shell's extension marketplace: it keeps
// a session-scoped registry of extensions known from the plugin host and
// the remote Open VSX-style registry, and exposes it over REST and a
// WebSocket event stream.
//
// Architecture:
//
//	IDE shell (frontend) -> Go backend -> Open VSX registry (HTTP)
//	                                   -> Plugin host manifest (disk)
//
// The server provides:
//   - REST API for extension lookup, search, and resolution
//   - WebSocket stream for model-change and search-result events
//   - Prometheus metrics under /metrics
//
// Configuration:
//   - Environment variables (12-factor)
//   - Defaults for development
//
// Usage:
//
//	# Production mode
//	PORT=9400 REGISTRY_URL=https://open-vsx.org/api ./server
//
//	# Development mode (colored logs, debug level)
//	LOG_DEV=true LOG_LEVEL=debug ./server
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
