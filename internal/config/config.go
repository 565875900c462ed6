package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Marketplace MarketplaceConfig
	Logging     LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"9400"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// MarketplaceConfig holds extension registry configuration.
type MarketplaceConfig struct {
	// RegistryURL is the base URL of the remote extension registry API.
	RegistryURL string `envconfig:"REGISTRY_URL" default:"https://open-vsx.org/api"`
	// EngineVersion is the editor engine version used for compatibility checks.
	EngineVersion string `envconfig:"ENGINE_VERSION" default:"1.88.0"`
	// SearchDebounce is the quiet period before a query triggers a search.
	SearchDebounce time.Duration `envconfig:"SEARCH_DEBOUNCE" default:"150ms"`
	// RequestTimeout bounds individual registry API calls.
	RequestTimeout time.Duration `envconfig:"REGISTRY_TIMEOUT" default:"30s"`
	// RateLimit caps registry requests per second; zero means unlimited.
	RateLimit float64 `envconfig:"REGISTRY_RATE_LIMIT" default:"0"`
	// PluginsManifest is the path of the deployed-plugins manifest file.
	PluginsManifest string `envconfig:"PLUGINS_MANIFEST" default:"plugins.json"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "9400",
			Host: "0.0.0.0",
		},
		Marketplace: MarketplaceConfig{
			RegistryURL:     "https://open-vsx.org/api",
			EngineVersion:   "1.88.0",
			SearchDebounce:  150 * time.Millisecond,
			RequestTimeout:  30 * time.Second,
			PluginsManifest: "plugins.json",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}
