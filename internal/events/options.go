package events

import "time"

const defaultRetryInterval = 25 * time.Millisecond

type hubConfig struct {
	name          string
	retryInterval time.Duration
}

func defaultHubConfig() hubConfig {
	return hubConfig{
		name:          "hub",
		retryInterval: defaultRetryInterval,
	}
}

// Option configures a Hub.
type Option func(*hubConfig)

// WithName labels the hub in logs.
func WithName(name string) Option {
	return func(c *hubConfig) {
		if name != "" {
			c.name = name
		}
	}
}

// WithRetryInterval sets how often a stalled actor re-checks mailboxes that
// are read through Subscription.Events rather than Next.
func WithRetryInterval(d time.Duration) Option {
	return func(c *hubConfig) {
		if d > 0 {
			c.retryInterval = d
		}
	}
}
