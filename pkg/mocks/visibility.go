package mocks

import (
	"sync"

	"github.com/user/tapeplay/pkg/ports"
)

// VisibilitySource is a mock implementation of ports.VisibilitySource.
// Set delivers the change synchronously to every subscriber.
type VisibilitySource struct {
	mu      sync.Mutex
	mode    ports.VisibilityMode
	subs    map[int]func(ports.VisibilityMode)
	nextSub int
}

// NewVisibilitySource creates a source starting in mode.
func NewVisibilitySource(mode ports.VisibilityMode) *VisibilitySource {
	return &VisibilitySource{
		mode: mode,
		subs: make(map[int]func(ports.VisibilityMode)),
	}
}

func (m *VisibilitySource) Current() ports.VisibilityMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

func (m *VisibilitySource) Subscribe(fn func(mode ports.VisibilityMode)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// Set changes the mode and notifies subscribers.
func (m *VisibilitySource) Set(mode ports.VisibilityMode) {
	m.mu.Lock()
	m.mode = mode
	subs := make([]func(ports.VisibilityMode), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()
	for _, fn := range subs {
		fn(mode)
	}
}

// Subscribers returns the number of active subscriptions.
func (m *VisibilitySource) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

var _ ports.VisibilitySource = (*VisibilitySource)(nil)
