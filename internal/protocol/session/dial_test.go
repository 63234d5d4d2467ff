package session

import (
	"net"
	"testing"
	"time"

	"github.com/danmuck/cslink/internal/testutil/testlog"
)

func TestDialReachesListener(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	conn, err := Dial(ln.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Close()
}

func TestDialUnresolvableHost(t *testing.T) {
	testlog.Start(t)
	if _, err := Dial("host.invalid:20002", 200*time.Millisecond); err == nil {
		t.Fatalf("expected resolve error for invalid host")
	}
}

func TestDialRefusedPort(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	if _, err := Dial(addr, 200*time.Millisecond); err == nil {
		t.Fatalf("expected dial error for closed port")
	}
}

func TestNextBackoffDelayFixed(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultConfig().Backoff
	for attempt := 1; attempt <= 5; attempt++ {
		if d := NextBackoffDelay(cfg, attempt, nil); d != 50*time.Millisecond {
			t.Fatalf("attempt %d: delay = %v, want 50ms", attempt, d)
		}
	}
}

func TestNextBackoffDelayCapped(t *testing.T) {
	testlog.Start(t)
	cfg := BackoffConfig{
		InitialDelay: 10 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     25 * time.Millisecond,
	}
	if d := NextBackoffDelay(cfg, 1, nil); d != 10*time.Millisecond {
		t.Fatalf("attempt 1: delay = %v, want 10ms", d)
	}
	if d := NextBackoffDelay(cfg, 2, nil); d != 20*time.Millisecond {
		t.Fatalf("attempt 2: delay = %v, want 20ms", d)
	}
	if d := NextBackoffDelay(cfg, 3, nil); d != 25*time.Millisecond {
		t.Fatalf("attempt 3: delay = %v, want cap 25ms", d)
	}
}
