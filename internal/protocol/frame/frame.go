// Package frame reads and writes ColourSpace Link wire frames: a 4-byte
// big-endian signed length followed by that many raw payload bytes. A
// negative length is the protocol's disconnect/idle signal, not an error
// in the stream itself.
package frame

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"unicode/utf8"
)

const headerLen = 4

var (
	ErrPayloadTooLarge = errors.New("frame: payload exceeds 31-bit length bound")
	ErrDisconnected    = errors.New("frame: disconnect signal")
	ErrInvalidPayload  = errors.New("frame: payload is not valid utf-8")
	ErrShortHeader     = errors.New("frame: short header")
)

// Limits constrains frame memory use.
type Limits struct {
	MaxPayloadBytes int64
}

func DefaultLimits() Limits {
	return Limits{MaxPayloadBytes: math.MaxInt32}
}

// Framer wraps one stream with buffered, flushed frame I/O. It performs no
// locking of its own; callers serialize concurrent writers.
type Framer struct {
	r      io.Reader
	w      *bufio.Writer
	limits Limits
}

func New(rw io.ReadWriter) *Framer {
	return NewWithLimits(rw, DefaultLimits())
}

func NewWithLimits(rw io.ReadWriter, limits Limits) *Framer {
	if limits.MaxPayloadBytes <= 0 || limits.MaxPayloadBytes > math.MaxInt32 {
		limits.MaxPayloadBytes = math.MaxInt32
	}
	return &Framer{r: rw, w: bufio.NewWriter(rw), limits: limits}
}

// WriteFrame writes the length header and payload, then flushes.
func (f *Framer) WriteFrame(payload []byte) error {
	if int64(len(payload)) > f.limits.MaxPayloadBytes {
		return ErrPayloadTooLarge
	}
	var head [headerLen]byte
	binary.BigEndian.PutUint32(head[:], uint32(int32(len(payload))))
	if _, err := f.w.Write(head[:]); err != nil {
		return err
	}
	if _, err := f.w.Write(payload); err != nil {
		return err
	}
	return f.w.Flush()
}

// WriteDisconnect writes the negative-length idle signal, header only.
func (f *Framer) WriteDisconnect() error {
	var head [headerLen]byte
	disconnect := int32(-1)
	binary.BigEndian.PutUint32(head[:], uint32(disconnect))
	if _, err := f.w.Write(head[:]); err != nil {
		return err
	}
	return f.w.Flush()
}

// ReadFrame blocks for the 4-byte header and returns the payload. A
// negative header yields ErrDisconnected with no payload bytes consumed; a
// zero header yields an empty payload. Positive payloads must decode as
// valid UTF-8 text.
func (f *Framer) ReadFrame() ([]byte, error) {
	var head [headerLen]byte
	if _, err := io.ReadFull(f.r, head[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrShortHeader
		}
		return nil, err
	}
	n := int32(binary.BigEndian.Uint32(head[:]))
	if n < 0 {
		return nil, ErrDisconnected
	}
	if n == 0 {
		return []byte{}, nil
	}
	if int64(n) > f.limits.MaxPayloadBytes {
		return nil, ErrPayloadTooLarge
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(f.r, payload); err != nil {
		return nil, err
	}
	if !utf8.Valid(payload) {
		return nil, ErrInvalidPayload
	}
	return payload, nil
}
