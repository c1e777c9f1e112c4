package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/tapeplay/pkg/mocks"
)

var epoch0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func fixedPace(d time.Duration) PaceFunc {
	return func() time.Duration { return d }
}

// leakyRefresh hands out refresh callbacks but ignores cancellation, so
// only the generation guard can keep stale callbacks quiet.
type leakyRefresh struct {
	callbacks []func(time.Time)
}

func (r *leakyRefresh) RequestFrame(cb func(now time.Time)) func() {
	r.callbacks = append(r.callbacks, cb)
	return func() {}
}

func (r *leakyRefresh) fire(now time.Time) {
	due := r.callbacks
	r.callbacks = nil
	for _, cb := range due {
		cb(now)
	}
}

func TestStrategies_Pacing(t *testing.T) {
	tests := []struct {
		name  string
		build func(*mocks.ManualClock) Strategy
		want  float64
		delta float64
	}{
		{
			name:  "continuous",
			build: func(c *mocks.ManualClock) Strategy { return NewContinuousStrategy(c) },
			want:  10,
			delta: 1,
		},
		{
			name:  "interval",
			build: func(c *mocks.ManualClock) Strategy { return NewIntervalStrategy(c) },
			want:  10,
			delta: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := mocks.NewManualClock(epoch0, 16*time.Millisecond)
			s := tt.build(clock)
			ticks := 0
			s.Start(fixedPace(TickInterval(10, 1)), func(time.Time) { ticks++ })
			require.True(t, s.Running())

			clock.Advance(time.Second)
			assert.InDelta(t, tt.want, float64(ticks), tt.delta)
		})
	}
}

func TestStrategies_StopEndsTicks(t *testing.T) {
	for _, name := range []string{"continuous", "interval"} {
		t.Run(name, func(t *testing.T) {
			clock := mocks.NewManualClock(epoch0, 16*time.Millisecond)
			var s Strategy = NewIntervalStrategy(clock)
			if name == "continuous" {
				s = NewContinuousStrategy(clock)
			}
			assert.Equal(t, name, s.Name())

			assert.NotPanics(t, s.Stop, "stop before start")

			ticks := 0
			s.Start(fixedPace(100*time.Millisecond), func(time.Time) { ticks++ })
			clock.Advance(500 * time.Millisecond)
			before := ticks
			assert.Greater(t, before, 0)

			s.Stop()
			s.Stop()
			assert.False(t, s.Running())
			assert.Zero(t, clock.PendingFrames())
			assert.Zero(t, clock.ActiveTimers())

			clock.Advance(2 * time.Second)
			assert.Equal(t, before, ticks)
		})
	}
}

func TestContinuousStrategy_StaleCallbacks(t *testing.T) {
	refresh := &leakyRefresh{}
	s := NewContinuousStrategy(refresh)
	ticks := 0
	s.Start(fixedPace(10*time.Millisecond), func(time.Time) { ticks++ })
	s.Stop()

	now := epoch0
	for i := 0; i < 10; i++ {
		now = now.Add(16 * time.Millisecond)
		refresh.fire(now)
	}
	assert.Zero(t, ticks)
	assert.Empty(t, refresh.callbacks, "stale callbacks must not re-request frames")
}

func TestContinuousStrategy_RestartInvalidatesOldLoop(t *testing.T) {
	refresh := &leakyRefresh{}
	s := NewContinuousStrategy(refresh)

	var first, second int
	s.Start(fixedPace(10*time.Millisecond), func(time.Time) { first++ })
	s.Start(fixedPace(10*time.Millisecond), func(time.Time) { second++ })
	require.Len(t, refresh.callbacks, 2)

	now := epoch0
	for i := 0; i < 10; i++ {
		now = now.Add(16 * time.Millisecond)
		refresh.fire(now)
	}
	assert.Zero(t, first)
	assert.Equal(t, 9, second, "first refresh only primes the reference time")
	assert.Len(t, refresh.callbacks, 1)
}

func TestContinuousStrategy_FollowsPaceChanges(t *testing.T) {
	clock := mocks.NewManualClock(epoch0, 16*time.Millisecond)
	s := NewContinuousStrategy(clock)
	assert.True(t, s.AdaptsToPace())

	interval := 100 * time.Millisecond
	ticks := 0
	s.Start(func() time.Duration { return interval }, func(time.Time) { ticks++ })

	clock.Advance(time.Second)
	assert.InDelta(t, 10, float64(ticks), 1)

	interval = 50 * time.Millisecond
	ticks = 0
	clock.Advance(time.Second)
	assert.InDelta(t, 20, float64(ticks), 2)
}

func TestContinuousStrategy_TickMayStopStrategy(t *testing.T) {
	clock := mocks.NewManualClock(epoch0, 16*time.Millisecond)
	s := NewContinuousStrategy(clock)
	ticks := 0
	s.Start(fixedPace(100*time.Millisecond), func(time.Time) {
		ticks++
		s.Stop()
	})

	clock.Advance(time.Second)
	assert.Equal(t, 1, ticks)
	assert.False(t, s.Running())
	assert.Zero(t, clock.PendingFrames())
}

func TestIntervalStrategy_ReadsPaceAtStart(t *testing.T) {
	clock := mocks.NewManualClock(epoch0, 16*time.Millisecond)
	s := NewIntervalStrategy(clock)
	assert.False(t, s.AdaptsToPace())

	interval := 100 * time.Millisecond
	ticks := 0
	s.Start(func() time.Duration { return interval }, func(time.Time) { ticks++ })
	assert.Equal(t, 100*time.Millisecond, s.Interval())

	interval = 50 * time.Millisecond
	clock.Advance(time.Second)
	assert.Equal(t, 10, ticks, "interval keeps its pace until restarted")

	s.Start(func() time.Duration { return interval }, func(time.Time) { ticks++ })
	assert.Equal(t, 1, clock.ActiveTimers())
	clock.Advance(time.Second)
	assert.Equal(t, 30, ticks)
}

func TestIntervalStrategy_ZeroPaceDoesNotStart(t *testing.T) {
	clock := mocks.NewManualClock(epoch0, 16*time.Millisecond)
	s := NewIntervalStrategy(clock)
	s.Start(fixedPace(0), func(time.Time) { t.Fatal("unexpected tick") })

	assert.False(t, s.Running())
	assert.Zero(t, clock.ActiveTimers())
	clock.Advance(time.Second)
}
