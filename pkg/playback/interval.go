package playback

import (
	"time"

	"github.com/user/tapeplay/pkg/ports"
)

// IntervalStrategy ticks from a repeating timer set to the pace at Start.
// It is used while the surface is in the background, where refresh
// callbacks are throttled by the host.
type IntervalStrategy struct {
	timers   ports.TimerSource
	gen      generation
	stop     func()
	interval time.Duration
}

// NewIntervalStrategy creates a strategy driven by timers.
func NewIntervalStrategy(timers ports.TimerSource) *IntervalStrategy {
	return &IntervalStrategy{timers: timers}
}

// Start implements Strategy.
func (s *IntervalStrategy) Start(pace PaceFunc, onTick TickFunc) {
	s.Stop()
	s.interval = pace()
	if s.interval <= 0 {
		return
	}
	gen := s.gen.begin()
	s.stop = s.timers.Every(s.interval, func(now time.Time) {
		if !s.gen.live(gen) {
			return
		}
		onTick(now)
	})
}

// Stop implements Strategy.
func (s *IntervalStrategy) Stop() {
	if !s.gen.end() {
		return
	}
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
}

// Running implements Strategy.
func (s *IntervalStrategy) Running() bool {
	return s.gen.running
}

// AdaptsToPace implements Strategy. The timer keeps the interval it started with.
func (s *IntervalStrategy) AdaptsToPace() bool {
	return false
}

// Interval returns the interval of the current or last run.
func (s *IntervalStrategy) Interval() time.Duration {
	return s.interval
}

// Name implements Strategy.
func (s *IntervalStrategy) Name() string {
	return "interval"
}

var _ Strategy = (*IntervalStrategy)(nil)
