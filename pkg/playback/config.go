// Package playback implements the time-indexed playback engine: a sliding
// frame buffer, prefetch policy, pacing strategies and the controller that
// ties them together.
//
// Every type in this package is meant to be driven from a single goroutine.
// Adapters that call back from other goroutines post through a Loop.
package playback

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrInvalidSpeed is returned for speeds that are not finite and positive.
	ErrInvalidSpeed = errors.New("playback: speed must be a positive number")
	// ErrInvalidRate is returned for target rates that are not finite and positive.
	ErrInvalidRate = errors.New("playback: target rate must be a positive number")
	// ErrInvalidRow is returned for negative rows and row counts.
	ErrInvalidRow = errors.New("playback: row must not be negative")
)

// Config holds the tunables of a playback session.
type Config struct {
	TargetRate     float64       // Frames per second at speed 1 (default: 10)
	Speed          float64       // Playback speed multiplier (default: 1)
	ChunkSize      int           // Frames per chunk request (default: 500)
	LowWaterMark   int           // Prefetch when fewer frames remain ahead (default: 150)
	ThrottleWindow time.Duration // Minimum gap between position publishes (default: 1s)
	TotalRows      int           // Exclusive upper bound of playable rows (default: 10000)
	KeepBehind     int           // Frames kept behind the playhead after an append; 0 keeps all
}

// DefaultConfig returns Config with default values.
func DefaultConfig() Config {
	return Config{
		TargetRate:     10,
		Speed:          1,
		ChunkSize:      500,
		LowWaterMark:   150,
		ThrottleWindow: time.Second,
		TotalRows:      10000,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if !validPositive(c.TargetRate) {
		return ErrInvalidRate
	}
	if !validPositive(c.Speed) {
		return ErrInvalidSpeed
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("playback: chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.LowWaterMark < 0 {
		return fmt.Errorf("playback: low water mark must not be negative, got %d", c.LowWaterMark)
	}
	if c.ThrottleWindow < 0 {
		return fmt.Errorf("playback: throttle window must not be negative, got %s", c.ThrottleWindow)
	}
	if c.TotalRows < 0 || c.KeepBehind < 0 {
		return ErrInvalidRow
	}
	return nil
}

// TickInterval returns the time between frames for a rate and speed.
func TickInterval(targetRate, speed float64) time.Duration {
	if !validPositive(targetRate) || !validPositive(speed) {
		return 0
	}
	return time.Duration(float64(time.Second) / (targetRate * speed))
}

func validPositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
