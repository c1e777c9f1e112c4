package playback

import (
	"time"

	"github.com/user/tapeplay/pkg/ports"
)

// Status is the controller's position in its state machine.
type Status int

const (
	// StatusIdle means no session is active.
	StatusIdle Status = iota
	// StatusPlaying means a strategy is running and ticks advance the playhead.
	StatusPlaying
	// StatusPaused means the session exists but no strategy runs.
	StatusPaused
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	default:
		return "unknown"
	}
}

// State is a snapshot of the controller.
type State struct {
	Status      Status
	Playhead    int
	Speed       float64
	TargetRate  float64
	TotalRows   int
	Visibility  ports.VisibilityMode
	Strategy    string
	BufferStart int
	BufferLen   int
	InFlight    bool
}

// AtEnd reports whether the playhead has run past the last row.
func (s State) AtEnd() bool {
	return s.Playhead >= s.TotalRows
}

// Stats counts what happened during a session.
type Stats struct {
	FramesRendered    int
	Stalls            int
	Requests          int
	ResetRequests     int
	Appends           int
	Resets            int
	Mismatches        int
	EmptyDeliveries   int
	DroppedDeliveries int
	FetchErrors       int
	RenderFailures    int
	Published         int
	StrategySwitches  int
	Seeks             int

	StartedAt  time.Time // First transition to playing
	FinishedAt time.Time // Last time the end of data was reached
}

// Input is the external playback configuration as last seen by the UI.
// Apply diffs it against the previous Input to derive transitions.
type Input struct {
	IsPlaying    bool
	Speed        float64
	PlayStartRow *int
}
