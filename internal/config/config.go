package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/danmuck/cslink/internal/protocol"
	"github.com/danmuck/cslink/internal/protocol/session"
)

// ClientConfig is the TOML shape of a cslinkd deployment.
type ClientConfig struct {
	Remote         string   `toml:"remote"`
	DialTimeoutMS  int      `toml:"dial_timeout_ms"`
	SendIntervalMS int      `toml:"send_interval_ms"`
	RetryDelayMS   int      `toml:"retry_delay_ms"`
	StatusAddr     string   `toml:"status_addr"`
	CorsOrigins    []string `toml:"cors_origins"`
	XMLLogPath     string   `toml:"xml_log_path"`

	Request RequestColor `toml:"request"`
}

// RequestColor is the initial colour the sender transmits.
type RequestColor struct {
	Red   uint16 `toml:"red"`
	Green uint16 `toml:"green"`
	Blue  uint16 `toml:"blue"`
	Depth uint8  `toml:"depth"`
}

func LoadClientConfig(path string) (ClientConfig, error) {
	var cfg ClientConfig
	if err := loadToml(path, &cfg); err != nil {
		return ClientConfig{}, err
	}
	applyDefaults(&cfg)
	if err := ValidateClientConfig(cfg); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

// DefaultClientConfig returns the config used when no file is given.
func DefaultClientConfig() ClientConfig {
	var cfg ClientConfig
	applyDefaults(&cfg)
	return cfg
}

func applyDefaults(cfg *ClientConfig) {
	if cfg.Remote == "" {
		cfg.Remote = "localhost:" + session.DefaultPort
	}
	if cfg.DialTimeoutMS <= 0 {
		cfg.DialTimeoutMS = 5000
	}
	if cfg.SendIntervalMS <= 0 {
		cfg.SendIntervalMS = 1000
	}
	if cfg.RetryDelayMS <= 0 {
		cfg.RetryDelayMS = 50
	}
	if cfg.StatusAddr == "" {
		cfg.StatusAddr = ":9200"
	}
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateClientConfig(cfg ClientConfig) error {
	if strings.TrimSpace(cfg.Remote) == "" {
		return fmt.Errorf("client config missing remote")
	}
	if cfg.Request.Depth > 16 {
		return fmt.Errorf("request depth %d exceeds 16 bits", cfg.Request.Depth)
	}
	return nil
}

// SessionConfig converts the file shape into link reliability settings.
func (cfg ClientConfig) SessionConfig() session.Config {
	out := session.DefaultConfig()
	out.DialTimeout = time.Duration(cfg.DialTimeoutMS) * time.Millisecond
	out.SendInterval = time.Duration(cfg.SendIntervalMS) * time.Millisecond
	out.Backoff.InitialDelay = time.Duration(cfg.RetryDelayMS) * time.Millisecond
	out.Backoff.MaxDelay = out.Backoff.InitialDelay
	return out
}

// RequestedColor converts the file shape into the protocol colour.
func (cfg ClientConfig) RequestedColor() protocol.Color {
	return protocol.Color{
		R:     cfg.Request.Red,
		G:     cfg.Request.Green,
		B:     cfg.Request.Blue,
		Depth: cfg.Request.Depth,
	}
}
