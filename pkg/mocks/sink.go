package mocks

import (
	"sync"

	"github.com/user/tapeplay/pkg/ports"
)

// PositionSink is a mock implementation of ports.PositionSink and ports.StateSink.
type PositionSink struct {
	mu     sync.Mutex
	rows   []int
	states []ports.StateUpdate
}

// NewPositionSink creates a new mock PositionSink.
func NewPositionSink() *PositionSink {
	return &PositionSink{}
}

func (m *PositionSink) Publish(row int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, row)
}

func (m *PositionSink) PublishState(update ports.StateUpdate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = append(m.states, update)
}

// Rows returns the published rows in order.
func (m *PositionSink) Rows() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.rows...)
}

// States returns the published state updates in order.
func (m *PositionSink) States() []ports.StateUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.StateUpdate(nil), m.states...)
}

var (
	_ ports.PositionSink = (*PositionSink)(nil)
	_ ports.StateSink    = (*PositionSink)(nil)
)
