package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/user/tapeplay/pkg/mocks"
)

func TestPositionReporter_Throttle(t *testing.T) {
	sink := mocks.NewPositionSink()
	r := NewPositionReporter(sink, time.Second)
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, r.Report(1, t0))
	assert.False(t, r.Report(2, t0.Add(500*time.Millisecond)))
	assert.True(t, r.Report(3, t0.Add(1200*time.Millisecond)))

	assert.Equal(t, []int{1, 3}, sink.Rows())
	assert.Equal(t, 2, r.Published())
}

func TestPositionReporter_SkippedReportKeepsWindow(t *testing.T) {
	sink := mocks.NewPositionSink()
	r := NewPositionReporter(sink, time.Second)
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	r.Report(1, t0)
	r.Report(2, t0.Add(900*time.Millisecond))
	assert.True(t, r.Report(3, t0.Add(1000*time.Millisecond)), "window is measured from the last publish")
	assert.Equal(t, []int{1, 3}, sink.Rows())
}

func TestPositionReporter_Flush(t *testing.T) {
	sink := mocks.NewPositionSink()
	r := NewPositionReporter(sink, time.Second)
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	r.Report(1, t0)
	r.Flush(9, t0.Add(10*time.Millisecond))
	assert.False(t, r.Report(10, t0.Add(500*time.Millisecond)))
	assert.Equal(t, []int{1, 9}, sink.Rows())
}

func TestPositionReporter_NilSink(t *testing.T) {
	r := NewPositionReporter(nil, time.Second)
	assert.NotPanics(t, func() {
		r.Report(1, time.Now())
	})
}
