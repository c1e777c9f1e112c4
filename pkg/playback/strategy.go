package playback

import "time"

// TickFunc receives a tick from a pacing strategy.
type TickFunc func(now time.Time)

// PaceFunc returns the current time between ticks.
type PaceFunc func() time.Duration

// Strategy paces playback ticks.
// Stop is idempotent and safe before Start; after Stop returns no further
// tick is delivered, including callbacks that were already queued.
type Strategy interface {
	// Start begins ticking. A running strategy is stopped first.
	Start(pace PaceFunc, onTick TickFunc)

	// Stop ends ticking.
	Stop()

	// Running reports whether the strategy has been started and not stopped.
	Running() bool

	// AdaptsToPace reports whether a running strategy follows pace changes
	// by itself. Strategies that do not must be restarted after a change.
	AdaptsToPace() bool

	// Name identifies the strategy in logs and state snapshots.
	Name() string
}

// generation guards strategy callbacks: each Start and Stop invalidates
// callbacks captured under an earlier generation.
type generation struct {
	current uint64
	running bool
}

func (g *generation) begin() uint64 {
	g.current++
	g.running = true
	return g.current
}

func (g *generation) end() bool {
	if !g.running {
		return false
	}
	g.current++
	g.running = false
	return true
}

func (g *generation) live(gen uint64) bool {
	return g.running && g.current == gen
}
