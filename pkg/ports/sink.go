package ports

// PositionSink receives the externally visible playhead.
// Publishing is fire-and-forget and best-effort.
type PositionSink interface {
	Publish(row int)
}

// StateUpdate is a snapshot broadcast to other viewers when playback state changes.
type StateUpdate struct {
	IsPlaying bool    `json:"is_playing"`
	Speed     float64 `json:"speed"`
	Row       int     `json:"row"`
	TotalRows int     `json:"total_rows"`
}

// StateSink is an optional extension of PositionSink for full state broadcasts.
type StateSink interface {
	PublishState(update StateUpdate)
}
