// Package ports defines interfaces for external dependencies.
package ports

import "fmt"

// Frame is the opaque payload for one row of a recording.
// The payload is a JSON document; its row index is implied by its position
// in a ChunkDelivery.
type Frame []byte

// MarshalJSON emits the payload verbatim.
func (f Frame) MarshalJSON() ([]byte, error) {
	if len(f) == 0 {
		return []byte("null"), nil
	}
	return f, nil
}

// UnmarshalJSON keeps a copy of the raw payload. null decodes to an empty frame.
func (f *Frame) UnmarshalJSON(data []byte) error {
	if f == nil {
		return fmt.Errorf("ports.Frame: UnmarshalJSON on nil pointer")
	}
	if string(data) == "null" {
		*f = nil
		return nil
	}
	*f = append((*f)[0:0], data...)
	return nil
}

// ChunkRequest asks the remote store for Count frames starting at StartRow.
// Reset requests replace the local buffer; the others must extend it.
type ChunkRequest struct {
	StartRow int  `json:"start_row"`
	Count    int  `json:"count"`
	Reset    bool `json:"reset"`
}

// End returns the exclusive end row the request covers.
func (r ChunkRequest) End() int {
	return r.StartRow + r.Count
}

// ChunkDelivery is the answer to a ChunkRequest. Echo is the request it answers.
type ChunkDelivery struct {
	Frames []Frame      `json:"frames"`
	Echo   ChunkRequest `json:"echo"`
}

// VisibilityMode tells whether the consuming surface is currently visible.
type VisibilityMode int

const (
	// Foreground means the surface is visible and display refresh callbacks run at full rate.
	Foreground VisibilityMode = iota
	// Background means the surface is hidden and refresh callbacks are throttled by the host.
	Background
)

// String returns the string representation of the visibility mode.
func (m VisibilityMode) String() string {
	switch m {
	case Foreground:
		return "foreground"
	case Background:
		return "background"
	default:
		return "unknown"
	}
}
