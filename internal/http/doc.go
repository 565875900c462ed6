// Package http provides HTTP handlers and routing for the marketplace
// REST API.
//
// This package implements all HTTP endpoints using the Gin framework,
// including health checks, extension lookup, search, and resolution.
//
// Endpoints:
//   - Health: / and /health
//   - Extensions: /marketplace/extensions/:id, /marketplace/extensions/:id/resolve
//   - Installed: /marketplace/installed
//   - Search: /marketplace/search
//   - Plugins: /plugins/reload
//
// Features:
//   - JSON request/response handling
//   - Proper HTTP status codes
//   - Error response formatting
//   - Request validation
//
// Example Usage:
//
//	handlers := http.NewHandlers(model, registry, host)
//	router.GET("/health", handlers.Health)
//	router.PUT("/marketplace/search", handlers.UpdateQuery)
package http
