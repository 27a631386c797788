package registry

import "time"

// Config holds session registry behavior settings
type Config struct {
	// TransferTimeout bounds how long a session may sit in TRANSFERRING
	// before the sweeper force-closes it
	TransferTimeout time.Duration

	// SweepInterval is how often the sweeper scans for stuck transfers
	SweepInterval time.Duration

	// StalenessBound is how old a registry read may be before consumers
	// should re-validate it
	StalenessBound time.Duration

	// MaxRetries bounds how many times a mutation retries after losing a
	// version race
	MaxRetries int
}

// DefaultConfig returns sensible defaults for registry configuration
func DefaultConfig() Config {
	return Config{
		TransferTimeout: 30 * time.Second,
		SweepInterval:   5 * time.Second,
		StalenessBound:  30 * time.Second,
		MaxRetries:      5,
	}
}
