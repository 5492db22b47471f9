package transport

import "time"

// BackoffConfig defines retry backoff behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config bounds what a Conn sends and how it retries.
type Config struct {
	// MaxPacket caps the encoded size including the ID; <= 0 disables it.
	MaxPacket    int
	SendAttempts int
	Backoff      BackoffConfig
}

func DefaultConfig() Config {
	return Config{
		MaxPacket:    1024,
		SendAttempts: 3,
		Backoff: BackoffConfig{
			InitialDelay: 10 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     250 * time.Millisecond,
			Jitter:       true,
		},
	}
}
