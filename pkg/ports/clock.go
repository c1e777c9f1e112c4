package ports

import "time"

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// RefreshSource emulates a display refresh callback.
type RefreshSource interface {
	// RequestFrame schedules cb for the next refresh. Each request fires at most once.
	// The returned function cancels the request if it has not fired yet.
	RequestFrame(cb func(now time.Time)) (cancel func())
}

// TimerSource provides repeating timers.
type TimerSource interface {
	// Every calls cb every d until the returned stop function is called.
	Every(d time.Duration, cb func(now time.Time)) (stop func())
}

// Dispatcher serializes callbacks onto a single goroutine.
// Adapters that call back from their own goroutines post through it.
type Dispatcher interface {
	Post(fn func())
}
