package playback

import (
	"time"

	"github.com/user/tapeplay/pkg/ports"
)

// ContinuousStrategy ticks from display refresh callbacks.
//
// Refresh callbacks usually arrive more often than the target rate. The
// strategy accumulates the time since the last tick and fires once it exceeds
// the interval, then carries the remainder forward so refresh quantization
// does not drift the pace.
type ContinuousStrategy struct {
	refresh ports.RefreshSource
	gen     generation
	cancel  func()
	last    time.Time
	primed  bool
}

// NewContinuousStrategy creates a strategy driven by refresh.
func NewContinuousStrategy(refresh ports.RefreshSource) *ContinuousStrategy {
	return &ContinuousStrategy{refresh: refresh}
}

// Start implements Strategy.
func (s *ContinuousStrategy) Start(pace PaceFunc, onTick TickFunc) {
	s.Stop()
	gen := s.gen.begin()
	s.primed = false

	var frame func(now time.Time)
	frame = func(now time.Time) {
		if !s.gen.live(gen) {
			return
		}
		if !s.primed {
			s.last = now
			s.primed = true
		}

		elapsed := now.Sub(s.last)
		if interval := pace(); interval > 0 && elapsed > interval {
			s.last = now.Add(-(elapsed % interval))
			onTick(now)
			// onTick may stop or restart the strategy.
			if !s.gen.live(gen) {
				return
			}
		}
		s.cancel = s.refresh.RequestFrame(frame)
	}
	s.cancel = s.refresh.RequestFrame(frame)
}

// Stop implements Strategy.
func (s *ContinuousStrategy) Stop() {
	if !s.gen.end() {
		return
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Running implements Strategy.
func (s *ContinuousStrategy) Running() bool {
	return s.gen.running
}

// AdaptsToPace implements Strategy. The pace is read on every refresh.
func (s *ContinuousStrategy) AdaptsToPace() bool {
	return true
}

// Name implements Strategy.
func (s *ContinuousStrategy) Name() string {
	return "continuous"
}

var _ Strategy = (*ContinuousStrategy)(nil)
