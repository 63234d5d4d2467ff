package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

type mockConfig struct {
	Addr string
	X    float64
	Y    float64

	Rectangle *rectConfig
}

type rectConfig struct {
	Red    uint16
	Green  uint16
	Blue   uint16
	Width  float64
	Height float64
}

func defaultMockConfig() mockConfig {
	return mockConfig{
		Addr: ":20002",
		X:    0.3127,
		Y:    0.3290,
	}
}

type fileConfig struct {
	Addr string  `toml:"addr"`
	X    float64 `toml:"x"`
	Y    float64 `toml:"y"`

	Rectangle fileRect `toml:"rectangle"`
}

type fileRect struct {
	Red    uint16  `toml:"red"`
	Green  uint16  `toml:"green"`
	Blue   uint16  `toml:"blue"`
	Width  float64 `toml:"width"`
	Height float64 `toml:"height"`
}

// loadMockConfig overlays the file onto defaults. Presence detection
// matters here: x = 0.0 is a legal chromaticity coordinate.
func loadMockConfig(path string) (mockConfig, error) {
	cfg := defaultMockConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return mockConfig{}, fmt.Errorf("load mock config: %w", err)
	}

	if meta.IsDefined("addr") {
		if addr := strings.TrimSpace(raw.Addr); addr != "" {
			cfg.Addr = addr
		}
	}
	if meta.IsDefined("x") {
		cfg.X = raw.X
	}
	if meta.IsDefined("y") {
		cfg.Y = raw.Y
	}
	if meta.IsDefined("rectangle") {
		rect := rectConfig{
			Red:    raw.Rectangle.Red,
			Green:  raw.Rectangle.Green,
			Blue:   raw.Rectangle.Blue,
			Width:  1.0,
			Height: 1.0,
		}
		if meta.IsDefined("rectangle", "width") {
			rect.Width = raw.Rectangle.Width
		}
		if meta.IsDefined("rectangle", "height") {
			rect.Height = raw.Rectangle.Height
		}
		cfg.Rectangle = &rect
	}

	return cfg, nil
}
