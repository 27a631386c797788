package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the hub process configuration, loaded from the
// environment
type Config struct {
	// HTTP listener
	HTTPHost string `env:"NEXUS_HTTP_HOST" envDefault:"0.0.0.0"`
	HTTPPort int    `env:"NEXUS_HTTP_PORT" envDefault:"8080"`

	// Backend selection: "memory" or "redis". Storage and bus share
	// the Redis connection when both are redis
	StorageType string `env:"NEXUS_STORAGE" envDefault:"memory"`
	BusType     string `env:"NEXUS_BUS" envDefault:"memory"`
	RedisURL    string `env:"NEXUS_REDIS_URL" envDefault:"redis://localhost:6379"`

	// Durable profile store. Empty path keeps profiles in memory,
	// which only makes sense for local development
	SQLitePath string `env:"NEXUS_SQLITE_PATH" envDefault:"nexus.db"`

	// Routing
	RoutingPolicy   string        `env:"NEXUS_ROUTING_POLICY" envDefault:"least_loaded"`
	HeartbeatExpiry time.Duration `env:"NEXUS_HEARTBEAT_EXPIRY" envDefault:"90s"`

	// Session lifecycle
	TransferTimeout time.Duration `env:"NEXUS_TRANSFER_TIMEOUT" envDefault:"30s"`
	SweepInterval   time.Duration `env:"NEXUS_SWEEP_INTERVAL" envDefault:"5s"`
	StalenessBound  time.Duration `env:"NEXUS_STALENESS_BOUND" envDefault:"30s"`

	// Parties
	InviteTTL time.Duration `env:"NEXUS_INVITE_TTL" envDefault:"60s"`

	// Logging
	LogLevel string `env:"NEXUS_LOG_LEVEL" envDefault:"info"`
}

// Load parses configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// HTTPAddr returns the listen address for the HTTP server
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTPHost, c.HTTPPort)
}
