// Package realclock provides wall-clock time, refresh and timer sources.
// Callbacks are posted through a dispatcher so they run on the playback loop.
package realclock

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/tapeplay/pkg/ports"
)

// DefaultRefreshHz is the emulated display refresh rate.
const DefaultRefreshHz = 60

// Clock implements ports.Clock, ports.RefreshSource and ports.TimerSource.
type Clock struct {
	dispatcher ports.Dispatcher
	refresh    time.Duration
}

// New creates a Clock whose refresh callbacks are aligned to refreshHz.
func New(dispatcher ports.Dispatcher, refreshHz float64) *Clock {
	if refreshHz <= 0 {
		refreshHz = DefaultRefreshHz
	}
	return &Clock{
		dispatcher: dispatcher,
		refresh:    time.Duration(float64(time.Second) / refreshHz),
	}
}

// Now implements ports.Clock.
func (c *Clock) Now() time.Time {
	return time.Now()
}

// RefreshInterval returns the time between refresh callbacks.
func (c *Clock) RefreshInterval() time.Duration {
	return c.refresh
}

// RequestFrame implements ports.RefreshSource. cb runs once at the next
// refresh boundary.
func (c *Clock) RequestFrame(cb func(now time.Time)) func() {
	var cancelled atomic.Bool
	now := time.Now()
	wait := now.Truncate(c.refresh).Add(c.refresh).Sub(now)

	timer := time.AfterFunc(wait, func() {
		c.dispatcher.Post(func() {
			if cancelled.Load() {
				return
			}
			cb(time.Now())
		})
	})
	return func() {
		cancelled.Store(true)
		timer.Stop()
	}
}

// Every implements ports.TimerSource.
func (c *Clock) Every(d time.Duration, cb func(now time.Time)) func() {
	ticker := time.NewTicker(d)
	done := make(chan struct{})
	var stopped atomic.Bool

	go func() {
		for {
			select {
			case <-done:
				return
			case t := <-ticker.C:
				c.dispatcher.Post(func() {
					if stopped.Load() {
						return
					}
					cb(t)
				})
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			stopped.Store(true)
			ticker.Stop()
			close(done)
		})
	}
}

var (
	_ ports.Clock         = (*Clock)(nil)
	_ ports.RefreshSource = (*Clock)(nil)
	_ ports.TimerSource   = (*Clock)(nil)
)
