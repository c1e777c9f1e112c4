package mocks

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/user/tapeplay/pkg/ports"
)

// PendingFetch is a request held by a DataSource until the test answers it.
type PendingFetch struct {
	Request ports.ChunkRequest
	deliver ports.DeliverFunc
}

// DataSource is a mock implementation of ports.RemoteDataSource.
//
// With Synchronous set, every fetch is answered before Fetch returns with
// frames generated by FrameFunc, truncated at TotalRows. Otherwise requests
// are held until Deliver or Fail is called, in any order.
type DataSource struct {
	mu       sync.Mutex
	requests []ports.ChunkRequest
	pending  []PendingFetch

	Synchronous bool
	TotalRows   int
	FrameFunc   func(row int) ports.Frame
}

// NewDataSource creates a mock that holds requests.
func NewDataSource() *DataSource {
	return &DataSource{}
}

// NewSyncDataSource creates a mock that answers requests immediately.
func NewSyncDataSource(totalRows int) *DataSource {
	return &DataSource{Synchronous: true, TotalRows: totalRows}
}

func (m *DataSource) Fetch(req ports.ChunkRequest, deliver ports.DeliverFunc) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	if !m.Synchronous {
		m.pending = append(m.pending, PendingFetch{Request: req, deliver: deliver})
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	end := req.End()
	if m.TotalRows > 0 && end > m.TotalRows {
		end = m.TotalRows
	}
	deliver(ports.ChunkDelivery{Frames: m.Frames(req.StartRow, end), Echo: req}, nil)
}

// Requests returns every request seen so far.
func (m *DataSource) Requests() []ports.ChunkRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.ChunkRequest(nil), m.requests...)
}

// Pending returns the requests not yet answered.
func (m *DataSource) Pending() []ports.ChunkRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	reqs := make([]ports.ChunkRequest, len(m.pending))
	for i, p := range m.pending {
		reqs[i] = p.Request
	}
	return reqs
}

// Deliver answers the i-th pending request with the given frames.
func (m *DataSource) Deliver(i int, frames []ports.Frame) error {
	p, err := m.take(i)
	if err != nil {
		return err
	}
	p.deliver(ports.ChunkDelivery{Frames: frames, Echo: p.Request}, nil)
	return nil
}

// DeliverRows answers the i-th pending request with generated frames for its rows.
func (m *DataSource) DeliverRows(i int) error {
	m.mu.Lock()
	if i < 0 || i >= len(m.pending) {
		m.mu.Unlock()
		return fmt.Errorf("no pending request at index %d", i)
	}
	req := m.pending[i].Request
	m.mu.Unlock()
	return m.Deliver(i, m.Frames(req.StartRow, req.End()))
}

// Fail answers the i-th pending request with an error.
func (m *DataSource) Fail(i int, err error) error {
	p, takeErr := m.take(i)
	if takeErr != nil {
		return takeErr
	}
	p.deliver(ports.ChunkDelivery{}, err)
	return nil
}

// Frames generates frames for rows [start, end).
func (m *DataSource) Frames(start, end int) []ports.Frame {
	if end < start {
		return nil
	}
	frames := make([]ports.Frame, 0, end-start)
	for row := start; row < end; row++ {
		if m.FrameFunc != nil {
			frames = append(frames, m.FrameFunc(row))
			continue
		}
		frames = append(frames, RowFrame(row))
	}
	return frames
}

// RowFrame returns a small JSON frame carrying its row index.
func RowFrame(row int) ports.Frame {
	data, _ := json.Marshal(map[string]int{"row_idx": row})
	return ports.Frame(data)
}

func (m *DataSource) take(i int) (PendingFetch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.pending) {
		return PendingFetch{}, fmt.Errorf("no pending request at index %d", i)
	}
	p := m.pending[i]
	m.pending = append(m.pending[:i], m.pending[i+1:]...)
	return p, nil
}

var _ ports.RemoteDataSource = (*DataSource)(nil)
