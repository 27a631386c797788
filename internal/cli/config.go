package cli

import "os"

// Config holds CLI configuration
type Config struct {
	// ServerURL is the hub API base URL
	ServerURL string

	// Output is the output format: text or json
	Output string

	// Verbose enables verbose output
	Verbose bool
}

// DefaultConfig returns CLI defaults, honoring environment overrides
func DefaultConfig() *Config {
	cfg := &Config{
		ServerURL: "http://localhost:8080",
		Output:    "text",
	}

	if url := os.Getenv("NEXUS_SERVER"); url != "" {
		cfg.ServerURL = url
	}
	if output := os.Getenv("NEXUS_OUTPUT"); output != "" {
		cfg.Output = output
	}

	return cfg
}
