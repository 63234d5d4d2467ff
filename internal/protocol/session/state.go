package session

import (
	"sync"

	"github.com/danmuck/cslink/internal/protocol"
)

// Snapshot is the consumer-facing view of link state. Fault is non-nil
// once the receiver stopped on a protocol violation. The chromaticity
// pointers are nil until the instrument reports them.
type Snapshot struct {
	Connected bool
	Shapes    []protocol.ShapeInstruction
	Measured  protocol.Color
	X         *float64
	Y         *float64
	YLum      *float64
	Fault     error
}

// State is the shared measurement record. The receiver and sender loops
// write it; any number of consumers may read it concurrently.
type State struct {
	mu        sync.RWMutex
	connected bool
	shapes    []protocol.ShapeInstruction
	measured  protocol.Color
	x, y, yl  *float64
	requested protocol.Color
	fault     error
}

func NewState() *State {
	return &State{}
}

// Snapshot copies the current record; the shape slice is detached from
// the guarded storage.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var shapes []protocol.ShapeInstruction
	if len(s.shapes) > 0 {
		shapes = make([]protocol.ShapeInstruction, len(s.shapes))
		copy(shapes, s.shapes)
	}
	return Snapshot{
		Connected: s.connected,
		Shapes:    shapes,
		Measured:  s.measured,
		X:         s.x,
		Y:         s.y,
		YLum:      s.yl,
		Fault:     s.fault,
	}
}

// SetRequested records the colour the sender should transmit next.
func (s *State) SetRequested(c protocol.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requested = c
}

// Requested returns the colour the sender transmits on its next tick.
func (s *State) Requested() protocol.Color {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.requested
}

func (s *State) markDisconnected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
}

// applyResult merges one parsed measurement. A shape-carrying message
// overrides the scalar echo as the measured-colour source.
func (s *State) applyResult(res protocol.MeasurementResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	s.x, s.y, s.yl = res.X, res.Y, res.YLum
	if len(res.Shapes) > 0 {
		s.shapes = make([]protocol.ShapeInstruction, len(res.Shapes))
		copy(s.shapes, res.Shapes)
		s.measured = res.Shapes[0].Rect.Color
		return
	}
	s.shapes = nil
	s.measured = res.ScalarColor()
}

// setFault records a hard protocol fault and clears the connected flag.
func (s *State) setFault(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	s.fault = err
}
