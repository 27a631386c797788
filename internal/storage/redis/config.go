package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// TTL settings for different entity types. Session and party records
	// outlive any single process restart; last-server and profile cache
	// entries are deliberately short-lived.
	SessionTTL      time.Duration
	PartyTTL        time.Duration
	LastServerTTL   time.Duration
	ProfileCacheTTL time.Duration
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:             "redis://localhost:6379",
		PoolSize:        10,
		MinIdleConns:    2,
		SessionTTL:      12 * time.Hour,
		PartyTTL:        12 * time.Hour,
		LastServerTTL:   24 * time.Hour,
		ProfileCacheTTL: 10 * time.Minute,
	}
}
