package mocks

import (
	"sync"

	"github.com/user/tapeplay/pkg/ports"
)

// Renderer is a mock implementation of ports.Renderer that records rendered rows.
type Renderer struct {
	mu   sync.Mutex
	rows []int

	RenderFunc func(row int, frame ports.Frame) error
}

// NewRenderer creates a new mock Renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

func (m *Renderer) Render(row int, frame ports.Frame) error {
	m.mu.Lock()
	m.rows = append(m.rows, row)
	m.mu.Unlock()
	if m.RenderFunc != nil {
		return m.RenderFunc(row, frame)
	}
	return nil
}

// Rows returns the rendered rows in order (for test verification).
func (m *Renderer) Rows() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.rows...)
}

// Count returns the number of Render calls.
func (m *Renderer) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

var _ ports.Renderer = (*Renderer)(nil)
