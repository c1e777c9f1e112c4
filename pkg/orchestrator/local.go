package orchestrator

import (
	"context"

	"github.com/user/tapeplay/pkg/ports"
)

// LocalSource serves one recording from an Orchestrator in-process.
// Each fetch runs on its own goroutine and the result is posted back
// through the dispatcher, like a network source would.
type LocalSource struct {
	ctx        context.Context
	orch       *Orchestrator
	name       string
	dispatcher ports.Dispatcher
}

// NewLocalSource creates a source for name. Fetches fail once ctx is done.
func NewLocalSource(ctx context.Context, orch *Orchestrator, name string, dispatcher ports.Dispatcher) *LocalSource {
	return &LocalSource{ctx: ctx, orch: orch, name: name, dispatcher: dispatcher}
}

// Fetch implements ports.RemoteDataSource.
func (s *LocalSource) Fetch(req ports.ChunkRequest, deliver ports.DeliverFunc) {
	go func() {
		d, err := s.orch.Chunk(s.ctx, s.name, req)
		s.dispatcher.Post(func() { deliver(d, err) })
	}()
}

var _ ports.RemoteDataSource = (*LocalSource)(nil)
