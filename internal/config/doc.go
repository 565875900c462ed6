// Package config provides 12-factor configuration management for the
// marketplace backend.
//
// Configuration is loaded from environment variables with sensible defaults.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Marketplace: remote registry URL, engine version, search debounce,
//     plugin manifest path
//   - Logging: Log level and output format
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST
//   - REGISTRY_URL, ENGINE_VERSION, SEARCH_DEBOUNCE, REGISTRY_TIMEOUT
//   - REGISTRY_RATE_LIMIT, PLUGINS_MANIFEST
//   - LOG_LEVEL, LOG_DEV
package config
