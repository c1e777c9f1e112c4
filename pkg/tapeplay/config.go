// Package tapeplay provides a high-level API for playing back recordings.
package tapeplay

import (
	"time"

	"github.com/user/tapeplay/pkg/playback"
)

// Config represents the configuration of a playback session.
type Config struct {
	// Pacing
	TargetRate float64 // Frames per second at speed 1 (default: 10)
	Speed      float64 // Playback speed multiplier (default: 1)
	RefreshHz  float64 // Emulated display refresh rate (default: 60)

	// Buffering
	ChunkSize    int // Frames per request (default: 500)
	LowWaterMark int // Prefetch when fewer frames remain ahead (default: 150)
	KeepBehind   int // Frames kept behind the playhead; 0 keeps all

	// Position reporting
	ThrottleMs int // Minimum gap between position publishes in milliseconds (default: 1000)

	// Range
	StartRow  int // First row to play
	TotalRows int // Fallback row count when the recording does not report one (default: 10000)

	// Start hidden, ticking on timers instead of refresh callbacks
	Background bool
}

// ConfigBuilder provides a fluent interface for building Config.
type ConfigBuilder struct {
	config Config
}

// NewConfigBuilder creates a ConfigBuilder with real-time defaults.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		config: realtimeDefaults(),
	}
}

// NewReplayConfigBuilder creates a ConfigBuilder for fast review: speed 10,
// larger chunks and a tighter publish throttle.
func NewReplayConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		config: replayDefaults(),
	}
}

// NewConfigBuilderFrom starts from an existing Config.
func NewConfigBuilderFrom(cfg Config) *ConfigBuilder {
	return &ConfigBuilder{config: cfg}
}

func realtimeDefaults() Config {
	return Config{
		TargetRate:   10,
		Speed:        1,
		RefreshHz:    60,
		ChunkSize:    500,
		LowWaterMark: 150,
		ThrottleMs:   1000,
		TotalRows:    10000,
	}
}

func replayDefaults() Config {
	return Config{
		TargetRate:   10,
		Speed:        10,
		RefreshHz:    60,
		ChunkSize:    2000,
		LowWaterMark: 1000,
		ThrottleMs:   250,
		TotalRows:    10000,
	}
}

// Build returns the final Config, applying constraints.
func (b *ConfigBuilder) Build() Config {
	cfg := b.config

	if cfg.TargetRate <= 0 {
		cfg.TargetRate = 10
	}
	if cfg.Speed <= 0 {
		cfg.Speed = 1
	}
	if cfg.RefreshHz <= 0 {
		cfg.RefreshHz = 60
	}

	// A chunk holds at least one frame
	if cfg.ChunkSize < 1 {
		cfg.ChunkSize = 1
	}

	if cfg.LowWaterMark < 0 {
		cfg.LowWaterMark = 0
	}
	if cfg.KeepBehind < 0 {
		cfg.KeepBehind = 0
	}
	if cfg.ThrottleMs < 0 {
		cfg.ThrottleMs = 0
	}
	if cfg.StartRow < 0 {
		cfg.StartRow = 0
	}
	if cfg.TotalRows < 0 {
		cfg.TotalRows = 0
	}

	return cfg
}

// WithTargetRate sets the frames per second at speed 1.
func (b *ConfigBuilder) WithTargetRate(fps float64) *ConfigBuilder {
	b.config.TargetRate = fps
	return b
}

// WithSpeed sets the playback speed multiplier.
func (b *ConfigBuilder) WithSpeed(speed float64) *ConfigBuilder {
	b.config.Speed = speed
	return b
}

// WithRefreshHz sets the emulated display refresh rate.
func (b *ConfigBuilder) WithRefreshHz(hz float64) *ConfigBuilder {
	b.config.RefreshHz = hz
	return b
}

// WithChunkSize sets the frames per request.
// Values below 1 will be forced to 1.
func (b *ConfigBuilder) WithChunkSize(n int) *ConfigBuilder {
	b.config.ChunkSize = n
	return b
}

// WithLowWaterMark sets how few frames ahead trigger a prefetch.
func (b *ConfigBuilder) WithLowWaterMark(n int) *ConfigBuilder {
	b.config.LowWaterMark = n
	return b
}

// WithKeepBehind bounds how many frames stay buffered behind the playhead.
func (b *ConfigBuilder) WithKeepBehind(n int) *ConfigBuilder {
	b.config.KeepBehind = n
	return b
}

// WithThrottleMs sets the minimum gap between position publishes.
func (b *ConfigBuilder) WithThrottleMs(ms int) *ConfigBuilder {
	b.config.ThrottleMs = ms
	return b
}

// WithStartRow sets the first row to play.
func (b *ConfigBuilder) WithStartRow(row int) *ConfigBuilder {
	b.config.StartRow = row
	return b
}

// WithTotalRows sets the fallback row count.
func (b *ConfigBuilder) WithTotalRows(n int) *ConfigBuilder {
	b.config.TotalRows = n
	return b
}

// WithBackground starts the session in background mode.
func (b *ConfigBuilder) WithBackground(background bool) *ConfigBuilder {
	b.config.Background = background
	return b
}

// ToPlaybackConfig converts Config to playback.Config.
func (c Config) ToPlaybackConfig() playback.Config {
	return playback.Config{
		TargetRate:     c.TargetRate,
		Speed:          c.Speed,
		ChunkSize:      c.ChunkSize,
		LowWaterMark:   c.LowWaterMark,
		ThrottleWindow: time.Duration(c.ThrottleMs) * time.Millisecond,
		TotalRows:      c.TotalRows,
		KeepBehind:     c.KeepBehind,
	}
}
