package ports

// VisibilitySource emits Foreground/Background changes asynchronously.
type VisibilitySource interface {
	// Current returns the mode at the time of the call.
	Current() VisibilityMode

	// Subscribe registers fn for future changes and returns a function that removes it.
	Subscribe(fn func(mode VisibilityMode)) (unsubscribe func())
}
