package playback

import "github.com/user/tapeplay/pkg/ports"

// PrefetchPolicy decides when a chunk must be requested.
// It owns the in-flight flag: at most one request is outstanding at a time,
// and the flag clears only when the request settles.
type PrefetchPolicy struct {
	lowWaterMark int
	chunkSize    int
	inFlight     bool
	pending      ports.ChunkRequest
}

// NewPrefetchPolicy creates a policy with a fixed low water mark and chunk size.
func NewPrefetchPolicy(lowWaterMark, chunkSize int) *PrefetchPolicy {
	return &PrefetchPolicy{
		lowWaterMark: lowWaterMark,
		chunkSize:    chunkSize,
	}
}

// FillGap issues a reset request at playhead when it is not buffered.
func (p *PrefetchPolicy) FillGap(buf *FrameBuffer, playhead int) (ports.ChunkRequest, bool) {
	if p.inFlight || buf.Contains(playhead) {
		return ports.ChunkRequest{}, false
	}
	return p.issue(ports.ChunkRequest{StartRow: playhead, Count: p.chunkSize, Reset: true}), true
}

// ShouldPrefetch evaluates the rules in priority order:
// a gap at the playhead gets a reset request; otherwise, when fewer than the
// low water mark frames remain ahead and the buffer stops short of totalRows,
// the next chunk is requested from the buffer end.
// A returned request is marked in flight.
func (p *PrefetchPolicy) ShouldPrefetch(buf *FrameBuffer, playhead, totalRows int) (ports.ChunkRequest, bool) {
	if p.inFlight {
		return ports.ChunkRequest{}, false
	}
	if req, ok := p.FillGap(buf, playhead); ok {
		return req, true
	}
	end := buf.End()
	if buf.RemainingAhead(playhead) < p.lowWaterMark && end < totalRows {
		return p.issue(ports.ChunkRequest{StartRow: end, Count: p.chunkSize}), true
	}
	return ports.ChunkRequest{}, false
}

// InFlight reports whether a request is outstanding.
func (p *PrefetchPolicy) InFlight() bool {
	return p.inFlight
}

// Pending returns the outstanding request, if any.
func (p *PrefetchPolicy) Pending() (ports.ChunkRequest, bool) {
	return p.pending, p.inFlight
}

// Settle clears the in-flight flag once the outstanding request is answered.
func (p *PrefetchPolicy) Settle() {
	p.inFlight = false
	p.pending = ports.ChunkRequest{}
}

func (p *PrefetchPolicy) issue(req ports.ChunkRequest) ports.ChunkRequest {
	p.inFlight = true
	p.pending = req
	return req
}
