package playback

import "github.com/user/tapeplay/pkg/ports"

// IngestOutcome tells what an Ingest call did to the buffer.
type IngestOutcome int

const (
	// IngestIgnored means the delivery was empty or malformed and the buffer is unchanged.
	IngestIgnored IngestOutcome = iota
	// IngestReset means a reset delivery replaced the buffer.
	IngestReset
	// IngestAppend means the delivery abutted the buffer end and was appended.
	IngestAppend
	// IngestMismatch means a non-reset delivery did not abut the buffer end
	// and replaced the buffer.
	IngestMismatch
)

// String returns the string representation of the outcome.
func (o IngestOutcome) String() string {
	switch o {
	case IngestIgnored:
		return "ignored"
	case IngestReset:
		return "reset"
	case IngestAppend:
		return "append"
	case IngestMismatch:
		return "mismatch"
	default:
		return "unknown"
	}
}

// FrameBuffer is a contiguous window of frames starting at a known row.
// Frames are always contiguous: there are no gaps and no duplicates.
type FrameBuffer struct {
	startRow int
	frames   []ports.Frame
	logger   ports.Logger
}

// NewFrameBuffer creates an empty buffer starting at row 0.
func NewFrameBuffer(logger ports.Logger) *FrameBuffer {
	return &FrameBuffer{
		logger: logger.WithComponent("buffer"),
	}
}

// StartRow returns the row of the first buffered frame.
func (b *FrameBuffer) StartRow() int {
	return b.startRow
}

// Len returns the number of buffered frames.
func (b *FrameBuffer) Len() int {
	return len(b.frames)
}

// End returns the exclusive end row of the buffer.
func (b *FrameBuffer) End() int {
	return b.startRow + len(b.frames)
}

// Contains reports whether row is buffered.
func (b *FrameBuffer) Contains(row int) bool {
	return row >= b.startRow && row < b.End()
}

// Lookup returns the frame at row if it is buffered.
func (b *FrameBuffer) Lookup(row int) (ports.Frame, bool) {
	if !b.Contains(row) {
		return nil, false
	}
	return b.frames[row-b.startRow], true
}

// RemainingAhead returns how many buffered frames remain from row to the end.
// It is negative when row lies past the end and larger than Len when row
// precedes the start; callers treat both as "not available".
func (b *FrameBuffer) RemainingAhead(row int) int {
	return b.End() - row
}

// Ingest applies a delivery to the buffer.
//
// A reset delivery replaces the buffer. A delivery starting exactly at End
// is appended. Anything else is stale or out of order: the old frames are
// dropped and the delivered frames become the buffer.
func (b *FrameBuffer) Ingest(d ports.ChunkDelivery) IngestOutcome {
	if len(d.Frames) == 0 || d.Echo.StartRow < 0 {
		b.logger.Debug("Ignoring empty delivery at row %d", d.Echo.StartRow)
		return IngestIgnored
	}

	if d.Echo.Reset {
		b.replace(d.Echo.StartRow, d.Frames)
		b.logger.Debug("Buffer reset to rows [%d, %d)", b.startRow, b.End())
		return IngestReset
	}

	if d.Echo.StartRow == b.End() {
		b.frames = append(b.frames, d.Frames...)
		b.logger.Debug("Buffer extended to rows [%d, %d)", b.startRow, b.End())
		return IngestAppend
	}

	b.logger.Warn("Chunk at row %d does not continue buffer ending at row %d, replacing buffer", d.Echo.StartRow, b.End())
	b.replace(d.Echo.StartRow, d.Frames)
	return IngestMismatch
}

// DiscardBefore drops frames before row, keeping the buffer contiguous.
func (b *FrameBuffer) DiscardBefore(row int) int {
	if row <= b.startRow {
		return 0
	}
	n := row - b.startRow
	if n > len(b.frames) {
		n = len(b.frames)
	}
	b.frames = append([]ports.Frame(nil), b.frames[n:]...)
	b.startRow += n
	return n
}

// Clear empties the buffer and moves its start back to row 0.
func (b *FrameBuffer) Clear() {
	b.startRow = 0
	b.frames = nil
}

func (b *FrameBuffer) replace(startRow int, frames []ports.Frame) {
	b.startRow = startRow
	b.frames = append(make([]ports.Frame, 0, len(frames)), frames...)
}
