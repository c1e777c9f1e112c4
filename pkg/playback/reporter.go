package playback

import (
	"time"

	"github.com/user/tapeplay/pkg/ports"
)

// PositionReporter publishes the playhead to a sink at most once per window.
// Only the published position is throttled; the controller's playhead is not.
type PositionReporter struct {
	sink        ports.PositionSink
	window      time.Duration
	lastPublish time.Time
	published   bool
	count       int
}

// NewPositionReporter creates a reporter publishing to sink.
func NewPositionReporter(sink ports.PositionSink, window time.Duration) *PositionReporter {
	return &PositionReporter{
		sink:   sink,
		window: window,
	}
}

// Report publishes row if the throttle window has passed since the last publish.
// It returns true when the row was published.
func (r *PositionReporter) Report(row int, now time.Time) bool {
	if r.published && now.Sub(r.lastPublish) < r.window {
		return false
	}
	r.publish(row, now)
	return true
}

// Flush publishes row regardless of the throttle window.
func (r *PositionReporter) Flush(row int, now time.Time) {
	r.publish(row, now)
}

// Published returns the number of publishes so far.
func (r *PositionReporter) Published() int {
	return r.count
}

func (r *PositionReporter) publish(row int, now time.Time) {
	r.lastPublish = now
	r.published = true
	r.count++
	if r.sink != nil {
		r.sink.Publish(row)
	}
}
