package httpsource

import (
	"context"

	"github.com/user/tapeplay/pkg/ports"
)

// Source is a ports.RemoteDataSource for one recording on a server.
// Requests run on their own goroutines; results are posted through the
// dispatcher.
type Source struct {
	client     *Client
	name       string
	dispatcher ports.Dispatcher
	logger     ports.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewSource creates a Source for name.
func NewSource(client *Client, name string, dispatcher ports.Dispatcher, logger ports.Logger) *Source {
	ctx, cancel := context.WithCancel(context.Background())
	return &Source{
		client:     client,
		name:       name,
		dispatcher: dispatcher,
		logger:     logger.WithComponent("httpsource"),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Fetch implements ports.RemoteDataSource.
func (s *Source) Fetch(req ports.ChunkRequest, deliver ports.DeliverFunc) {
	go func() {
		s.logger.Debug("GET %s rows %d+%d (reset=%t)", s.name, req.StartRow, req.Count, req.Reset)
		d, err := s.client.Chunk(s.ctx, s.name, req)
		if err != nil {
			s.logger.Debug("GET %s rows %d+%d failed: %v", s.name, req.StartRow, req.Count, err)
		}
		s.dispatcher.Post(func() { deliver(d, err) })
	}()
}

// Close aborts requests in flight. Their deliveries carry the context error.
func (s *Source) Close() {
	s.cancel()
}

var _ ports.RemoteDataSource = (*Source)(nil)
