package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeMockConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "csmock.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMockConfigOverlaysDefaults(t *testing.T) {
	path := writeMockConfig(t, `
addr = ":30002"
x = 0.0
`)

	cfg, err := loadMockConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":30002" {
		t.Fatalf("addr = %q", cfg.Addr)
	}
	// Zero is a defined value, not an absent one.
	if cfg.X != 0.0 {
		t.Fatalf("x = %v, want 0.0", cfg.X)
	}
	if cfg.Y != 0.3290 {
		t.Fatalf("y = %v, want default", cfg.Y)
	}
	if cfg.Rectangle != nil {
		t.Fatalf("unexpected rectangle config")
	}
}

func TestLoadMockConfigRectangle(t *testing.T) {
	path := writeMockConfig(t, `
[rectangle]
red = 200
green = 100
blue = 50
width = 0.5
`)

	cfg, err := loadMockConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Rectangle == nil {
		t.Fatalf("expected rectangle config")
	}
	if cfg.Rectangle.Red != 200 || cfg.Rectangle.Green != 100 || cfg.Rectangle.Blue != 50 {
		t.Fatalf("rect colour = %+v", cfg.Rectangle)
	}
	if cfg.Rectangle.Width != 0.5 {
		t.Fatalf("width = %v", cfg.Rectangle.Width)
	}
	if cfg.Rectangle.Height != 1.0 {
		t.Fatalf("height = %v, want default 1.0", cfg.Rectangle.Height)
	}
}

func TestLoadMockConfigMissingFile(t *testing.T) {
	if _, err := loadMockConfig(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
