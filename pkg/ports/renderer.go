package ports

// Renderer paints a frame onto the consuming surface.
type Renderer interface {
	// Render draws the frame for the given row.
	// Implementations should handle their own failures; a returned error
	// is logged by the caller and playback continues.
	Render(row int, frame Frame) error
}
