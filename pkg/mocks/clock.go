package mocks

import (
	"sync"
	"time"

	"github.com/user/tapeplay/pkg/ports"
)

// ManualClock is a deterministic clock, refresh source and timer source.
// Time only moves when Advance is called; callbacks run on the caller's goroutine.
type ManualClock struct {
	mu sync.Mutex

	now         time.Time
	refresh     time.Duration
	nextRefresh time.Time
	frames      []*frameRequest
	timers      []*manualTimer
}

type frameRequest struct {
	cb        func(time.Time)
	cancelled bool
}

type manualTimer struct {
	interval time.Duration
	next     time.Time
	cb       func(time.Time)
	stopped  bool
}

// NewManualClock creates a clock at start whose refresh callbacks fire every refresh.
func NewManualClock(start time.Time, refresh time.Duration) *ManualClock {
	if refresh <= 0 {
		refresh = 16 * time.Millisecond
	}
	return &ManualClock{
		now:         start,
		refresh:     refresh,
		nextRefresh: start.Add(refresh),
	}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) RequestFrame(cb func(now time.Time)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	req := &frameRequest{cb: cb}
	c.frames = append(c.frames, req)
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		req.cancelled = true
	}
}

func (c *ManualClock) Every(d time.Duration, cb func(now time.Time)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{interval: d, next: c.now.Add(d), cb: cb}
	c.timers = append(c.timers, t)
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		t.stopped = true
	}
}

// PendingFrames returns the number of refresh requests waiting to fire.
func (c *ManualClock) PendingFrames() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, f := range c.frames {
		if !f.cancelled {
			n++
		}
	}
	return n
}

// ActiveTimers returns the number of timers that have not been stopped.
func (c *ManualClock) ActiveTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

// Advance moves time forward by d, firing due timers and refresh callbacks
// in time order. Callbacks registered while firing wait for the next event.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		at, timer := c.nextEvent()
		if at.After(target) {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = at

		if timer != nil {
			timer.next = timer.next.Add(timer.interval)
			cb := timer.cb
			c.mu.Unlock()
			cb(at)
			continue
		}

		c.nextRefresh = c.nextRefresh.Add(c.refresh)
		due := c.frames
		c.frames = nil
		c.mu.Unlock()
		for _, f := range due {
			c.mu.Lock()
			cancelled := f.cancelled
			c.mu.Unlock()
			if !cancelled {
				f.cb(at)
			}
		}
	}
}

// nextEvent returns the earliest due timer, or the next refresh when no
// timer is due before it. Timers win ties. Callers hold c.mu.
func (c *ManualClock) nextEvent() (time.Time, *manualTimer) {
	var first *manualTimer
	live := c.timers[:0]
	for _, t := range c.timers {
		if t.stopped {
			continue
		}
		live = append(live, t)
		if first == nil || t.next.Before(first.next) {
			first = t
		}
	}
	c.timers = live

	if first != nil && !first.next.After(c.nextRefresh) {
		return first.next, first
	}
	return c.nextRefresh, nil
}

var (
	_ ports.Clock         = (*ManualClock)(nil)
	_ ports.RefreshSource = (*ManualClock)(nil)
	_ ports.TimerSource   = (*ManualClock)(nil)
)
