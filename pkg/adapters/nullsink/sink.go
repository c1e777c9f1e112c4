// Package nullsink provides no-op renderer and position sink implementations.
package nullsink

import "github.com/user/tapeplay/pkg/ports"

// Sink discards frames, positions and state updates.
type Sink struct{}

// New creates a new NullSink.
func New() *Sink {
	return &Sink{}
}

// Render does nothing.
func (s *Sink) Render(row int, frame ports.Frame) error {
	return nil
}

// Publish does nothing.
func (s *Sink) Publish(row int) {}

// PublishState does nothing.
func (s *Sink) PublishState(update ports.StateUpdate) {}

var (
	_ ports.Renderer     = (*Sink)(nil)
	_ ports.PositionSink = (*Sink)(nil)
	_ ports.StateSink    = (*Sink)(nil)
)
