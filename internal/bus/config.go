package bus

import "time"

// Config holds publish retry and subscription behavior settings
type Config struct {
	// Publish retry: bounded exponential backoff, then the publish fails
	// with ErrPublishUnavailable
	PublishMaxRetries     uint64
	PublishInitialBackoff time.Duration
	PublishMaxBackoff     time.Duration

	// ResubscribeDelay is the pause before re-establishing a dropped
	// subscription
	ResubscribeDelay time.Duration

	// SubscriberBuffer is the per-subscription channel buffer size
	SubscriberBuffer int
}

// DefaultConfig returns sensible defaults for bus configuration
func DefaultConfig() Config {
	return Config{
		PublishMaxRetries:     5,
		PublishInitialBackoff: 50 * time.Millisecond,
		PublishMaxBackoff:     2 * time.Second,
		ResubscribeDelay:      250 * time.Millisecond,
		SubscriberBuffer:      64,
	}
}
