// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"image/color"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/user/tapeplay/pkg/adapters/ggrenderer"
	"github.com/user/tapeplay/pkg/orchestrator"
	"github.com/user/tapeplay/pkg/playback"
	"github.com/user/tapeplay/pkg/ports"
	"github.com/user/tapeplay/pkg/server"
	"github.com/user/tapeplay/pkg/tapeplay"
)

// Render modes.
const (
	RenderText = "text"
	RenderPNG  = "png"
	RenderJSON = "json"
	RenderNone = "none"
)

// Config represents the full configuration for tapeplay.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Playback PlaybackConfig `yaml:"playback"`
	Render   RenderConfig   `yaml:"render"`
	LogLevel ports.LogLevel `yaml:"log_level"`
}

// ServerConfig configures the chunk API.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	DataDir   string `yaml:"data_dir"`
	ChunkSize int    `yaml:"chunk_size"`
	Workers   int    `yaml:"workers"` // Extraction workers; 0 uses every CPU
}

// PlaybackConfig configures a playback session.
type PlaybackConfig struct {
	FPS          float64 `yaml:"fps"`
	Speed        float64 `yaml:"speed"`
	ChunkSize    int     `yaml:"chunk_size"`
	LowWaterMark int     `yaml:"low_water_mark"`
	ThrottleMs   int     `yaml:"throttle_ms"`
	TotalRows    int     `yaml:"total_rows"`
	KeepBehind   int     `yaml:"keep_behind"`
	RefreshHz    float64 `yaml:"refresh_hz"`
	Background   bool    `yaml:"background"`
}

// RenderConfig selects how frames are shown.
type RenderConfig struct {
	Mode    string      `yaml:"mode"` // text, png, json or none
	Dir     string      `yaml:"dir"`  // Output directory for png and json
	Compact bool        `yaml:"compact"`
	Width   int         `yaml:"width"`
	Height  int         `yaml:"height"`
	Theme   ThemeConfig `yaml:"theme"`
}

// ThemeConfig overrides colors of the png renderer.
type ThemeConfig struct {
	BackgroundColor string `yaml:"background_color"`
	TextColor       string `yaml:"text_color"`
	BidColor        string `yaml:"bid_color"`
	AskColor        string `yaml:"ask_color"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr:      ":8050",
			DataDir:   "files",
			ChunkSize: orchestrator.DefaultChunkSize,
		},
		Playback: PlaybackConfig{
			FPS:          10,
			Speed:        1,
			ChunkSize:    500,
			LowWaterMark: 150,
			ThrottleMs:   1000,
			TotalRows:    10000,
			RefreshHz:    60,
		},
		Render: RenderConfig{
			Mode:    RenderText,
			Dir:     "./frames",
			Compact: true,
			Width:   800,
			Height:  360,
		},
		LogLevel: ports.LevelInfo,
	}
}

// LoadFromFile loads configuration from a YAML file over Defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	return Parse(data)
}

// Parse decodes YAML over Defaults.
func Parse(data []byte) (Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports invalid values.
func (c Config) Validate() error {
	switch c.Render.Mode {
	case RenderText, RenderPNG, RenderJSON, RenderNone:
	default:
		return fmt.Errorf("unknown render mode %q", c.Render.Mode)
	}
	return c.ToPlaybackConfig().Validate()
}

// ToPlaybackConfig converts the playback section to playback.Config.
func (c Config) ToPlaybackConfig() playback.Config {
	return playback.Config{
		TargetRate:     c.Playback.FPS,
		Speed:          c.Playback.Speed,
		ChunkSize:      c.Playback.ChunkSize,
		LowWaterMark:   c.Playback.LowWaterMark,
		ThrottleWindow: time.Duration(c.Playback.ThrottleMs) * time.Millisecond,
		TotalRows:      c.Playback.TotalRows,
		KeepBehind:     c.Playback.KeepBehind,
	}
}

// ToSessionConfig converts the playback section to tapeplay.Config.
func (c Config) ToSessionConfig() tapeplay.Config {
	return tapeplay.Config{
		TargetRate:   c.Playback.FPS,
		Speed:        c.Playback.Speed,
		RefreshHz:    c.Playback.RefreshHz,
		ChunkSize:    c.Playback.ChunkSize,
		LowWaterMark: c.Playback.LowWaterMark,
		KeepBehind:   c.Playback.KeepBehind,
		ThrottleMs:   c.Playback.ThrottleMs,
		TotalRows:    c.Playback.TotalRows,
		Background:   c.Playback.Background,
	}
}

// ToOrchestratorConfig converts the server section to orchestrator.Config.
func (c Config) ToOrchestratorConfig() orchestrator.Config {
	return orchestrator.Config{
		DataDir:   c.Server.DataDir,
		ChunkSize: c.Server.ChunkSize,
	}
}

// ToServerConfig converts the server section to server.Config.
func (c Config) ToServerConfig() server.Config {
	cfg := server.DefaultConfig()
	if c.Server.Addr != "" {
		cfg.Addr = c.Server.Addr
	}
	return cfg
}

// ToRenderOptions converts the render section to ggrenderer.Options.
func (c Config) ToRenderOptions() ggrenderer.Options {
	theme := ggrenderer.DefaultTheme()
	if c.Render.Theme.BackgroundColor != "" {
		theme.Background = ParseColor(c.Render.Theme.BackgroundColor)
	}
	if c.Render.Theme.TextColor != "" {
		theme.Text = ParseColor(c.Render.Theme.TextColor)
	}
	if c.Render.Theme.BidColor != "" {
		theme.Bid = ParseColor(c.Render.Theme.BidColor)
	}
	if c.Render.Theme.AskColor != "" {
		theme.Ask = ParseColor(c.Render.Theme.AskColor)
	}
	return ggrenderer.Options{
		Width:  c.Render.Width,
		Height: c.Render.Height,
		Theme:  theme,
	}
}

// ParseColor parses a hex color string to color.Color.
func ParseColor(hex string) color.Color {
	if len(hex) == 0 {
		return color.Black
	}

	if hex[0] == '#' {
		hex = hex[1:]
	}

	if len(hex) != 6 {
		return color.Black
	}

	return color.RGBA{
		R: hexByte(hex[0], hex[1]),
		G: hexByte(hex[2], hex[3]),
		B: hexByte(hex[4], hex[5]),
		A: 255,
	}
}

func hexByte(hi, lo byte) uint8 {
	return hexValue(hi)<<4 | hexValue(lo)
}

func hexValue(c byte) uint8 {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return 0
	}
}
