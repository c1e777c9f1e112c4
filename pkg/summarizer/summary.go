// Package summarizer builds end-of-session playback summaries.
package summarizer

import (
	"time"

	"github.com/user/tapeplay/pkg/playback"
)

// Summary contains all data collected during a playback session.
type Summary struct {
	// Metadata
	GeneratedAt time.Time

	// What was played and from where
	Session SessionInfo

	// Session settings
	Settings Settings

	// Outcome
	Result ResultInfo

	// Event counters
	Counters Counters
}

// SessionInfo identifies the session.
type SessionInfo struct {
	ID     string
	File   string
	Source string // Server URL or local data directory
}

// Settings contains the playback configuration.
type Settings struct {
	TargetRate   float64
	Speed        float64
	ChunkSize    int
	LowWaterMark int
	ThrottleMs   int
	Background   bool
}

// ResultInfo describes how far playback got.
type ResultInfo struct {
	StartRow   int
	FinalRow   int
	TotalRows  int
	DurationMs int64
	ReachedEnd bool
}

// Counters mirrors playback.Stats.
type Counters struct {
	FramesRendered    int
	Stalls            int
	Requests          int
	ResetRequests     int
	Mismatches        int
	EmptyDeliveries   int
	DroppedDeliveries int
	FetchErrors       int
	RenderFailures    int
	Published         int
	StrategySwitches  int
	Seeks             int
}

// EffectiveRate returns rendered frames per second of wall time.
func (s *Summary) EffectiveRate() float64 {
	if s.Result.DurationMs <= 0 {
		return 0
	}
	return float64(s.Counters.FramesRendered) / (float64(s.Result.DurationMs) / 1000)
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithSession sets what was played.
func (b *Builder) WithSession(id, file, source string) *Builder {
	b.summary.Session = SessionInfo{
		ID:     id,
		File:   file,
		Source: source,
	}
	return b
}

// WithSettings sets the playback settings.
func (b *Builder) WithSettings(settings Settings) *Builder {
	b.summary.Settings = settings
	return b
}

// WithState records the final controller state.
func (b *Builder) WithState(startRow int, st playback.State) *Builder {
	b.summary.Result.StartRow = startRow
	b.summary.Result.FinalRow = st.Playhead
	b.summary.Result.TotalRows = st.TotalRows
	b.summary.Result.ReachedEnd = st.AtEnd()
	return b
}

// WithStats copies the session counters. The duration runs from the first
// play to the end of data, or to the time of the summary when the end was
// never reached.
func (b *Builder) WithStats(stats playback.Stats) *Builder {
	b.summary.Counters = Counters{
		FramesRendered:    stats.FramesRendered,
		Stalls:            stats.Stalls,
		Requests:          stats.Requests,
		ResetRequests:     stats.ResetRequests,
		Mismatches:        stats.Mismatches,
		EmptyDeliveries:   stats.EmptyDeliveries,
		DroppedDeliveries: stats.DroppedDeliveries,
		FetchErrors:       stats.FetchErrors,
		RenderFailures:    stats.RenderFailures,
		Published:         stats.Published,
		StrategySwitches:  stats.StrategySwitches,
		Seeks:             stats.Seeks,
	}

	if !stats.StartedAt.IsZero() {
		end := stats.FinishedAt
		if end.IsZero() || end.Before(stats.StartedAt) {
			end = b.summary.GeneratedAt
		}
		b.summary.Result.DurationMs = end.Sub(stats.StartedAt).Milliseconds()
	}
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
