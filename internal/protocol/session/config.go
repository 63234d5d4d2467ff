package session

import (
	"time"

	"github.com/danmuck/cslink/internal/protocol/frame"
	"github.com/danmuck/cslink/internal/xmltrace"
)

// BackoffConfig defines the receiver's read-retry behavior. The protocol
// default is a fixed 50ms wait (Multiplier 1.0).
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config defines link reliability defaults.
type Config struct {
	DialTimeout  time.Duration
	SendInterval time.Duration
	Backoff      BackoffConfig
	Limits       frame.Limits

	// Trace, when set, receives every inbound payload for diagnostics.
	Trace *xmltrace.Writer
}

func DefaultConfig() Config {
	return Config{
		DialTimeout:  5 * time.Second,
		SendInterval: 1 * time.Second,
		Backoff: BackoffConfig{
			InitialDelay: 50 * time.Millisecond,
			Multiplier:   1.0,
			MaxDelay:     50 * time.Millisecond,
		},
		Limits: frame.DefaultLimits(),
	}
}

func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.DialTimeout <= 0 {
		c.DialTimeout = def.DialTimeout
	}
	if c.SendInterval <= 0 {
		c.SendInterval = def.SendInterval
	}
	if c.Backoff.InitialDelay <= 0 {
		c.Backoff = def.Backoff
	}
	if c.Limits.MaxPayloadBytes <= 0 {
		c.Limits = def.Limits
	}
	return c
}
