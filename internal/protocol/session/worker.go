package session

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/cslink/internal/observability"
	"github.com/danmuck/cslink/internal/protocol"
	"github.com/danmuck/cslink/internal/protocol/frame"
)

// Link is one live connection to an instrument plus the worker pair that
// drives it. Consumers interact only through Read and SetRequestedColor.
type Link struct {
	id    string
	cfg   Config
	state *State
	log   zerolog.Logger

	conn net.Conn
	fr   *frame.Framer

	// writeMu serializes wire writes (handshake and sender). Reads are
	// performed only by the receiver goroutine.
	writeMu sync.Mutex

	cancel context.CancelFunc
}

// Spawn dials addr, starts the receiver/sender pair and returns the link
// handle. A connect failure surfaces immediately; no worker is created.
func Spawn(addr string, cfg Config) (*Link, error) {
	return SpawnContext(context.Background(), addr, cfg)
}

func SpawnContext(ctx context.Context, addr string, cfg Config) (*Link, error) {
	cfg = cfg.WithDefaults()

	conn, err := Dial(addr, cfg.DialTimeout)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	l := &Link{
		id:     uuid.NewString(),
		cfg:    cfg,
		state:  NewState(),
		conn:   conn,
		fr:     frame.NewWithLimits(conn, cfg.Limits),
		cancel: cancel,
	}
	l.log = log.With().
		Str("session_id", l.id).
		Str("remote", conn.RemoteAddr().String()).
		Logger()

	l.log.Info().Msg("instrument link established")
	go l.receiveLoop(ctx)
	go l.sendLoop(ctx)
	return l, nil
}

// Read returns the latest shared state.
func (l *Link) Read() Snapshot {
	return l.state.Snapshot()
}

// SetRequestedColor records the colour the sender transmits on its next
// tick.
func (l *Link) SetRequestedColor(c protocol.Color) {
	l.state.SetRequested(c)
}

// Close tears the link down. The protocol itself has no close exchange;
// this exists for orderly process shutdown.
func (l *Link) Close() error {
	l.cancel()
	return l.conn.Close()
}

func (l *Link) writeFrame(payload []byte) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	return l.fr.WriteFrame(payload)
}

// receiveLoop sends the handshake once, then consumes frames for the
// life of the link. Disconnect signals and transient read faults clear
// the connected flag and retry after a short wait; protocol violations
// are hard faults that end the loop.
func (l *Link) receiveLoop(ctx context.Context) {
	if err := l.writeFrame(protocol.EncodeInitProfile()); err != nil {
		// The read path observes the same broken socket and applies the
		// retry policy; nothing else to do here.
		l.log.Warn().Err(err).Msg("init profile handshake failed")
		l.state.markDisconnected()
	} else {
		observability.RecordFrameWritten(len(protocol.EncodeInitProfile()))
	}

	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		payload, err := l.fr.ReadFrame()
		if err != nil {
			if errors.Is(err, frame.ErrInvalidPayload) {
				l.fail(err)
				return
			}
			// Disconnect signal or transient I/O: the remote may resume
			// on the same socket.
			l.state.markDisconnected()
			observability.SetConnected(false)
			if !errors.Is(err, frame.ErrDisconnected) {
				l.log.Warn().Err(err).Msg("read fault, retrying")
			}
			attempt++
			observability.RecordRetryWait()
			if !l.sleep(ctx, NextBackoffDelay(l.cfg.Backoff, attempt, nil)) {
				return
			}
			continue
		}
		attempt = 0
		observability.RecordFrameRead(len(payload))
		if l.cfg.Trace != nil {
			l.cfg.Trace.Record(payload)
		}

		echo := l.state.Requested().Canonical8()
		res, err := protocol.ParseMeasurement(string(payload), echo)
		if err != nil {
			l.fail(err)
			return
		}

		l.state.applyResult(res)
		observability.SetConnected(true)
		l.log.Debug().
			Int("shapes", len(res.Shapes)).
			Msg("measurement merged")
	}
}

// sendLoop transmits the requested colour on a fixed cadence, regardless
// of the connected flag, so a resumed remote needs no re-arming. A write
// failure ends the sender; the receiver keeps its own retry policy.
func (l *Link) sendLoop(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.SendInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			payload := protocol.EncodeMeasurement(l.state.Requested())
			if err := l.writeFrame(payload); err != nil {
				if ctx.Err() != nil {
					return
				}
				l.state.markDisconnected()
				observability.SetConnected(false)
				l.log.Warn().Err(err).Msg("measurement write failed, sender stopping")
				return
			}
			observability.RecordFrameWritten(len(payload))
		}
	}
}

// fail records a protocol-contract violation: not retryable, surfaced to
// the consumer as a hard fault.
func (l *Link) fail(err error) {
	l.state.setFault(err)
	observability.RecordProtocolFault()
	observability.SetConnected(false)
	l.log.Error().Err(err).Msg("protocol violation, receiver stopping")
}

func (l *Link) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
