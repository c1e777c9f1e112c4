package config

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/user/tapeplay/pkg/ports"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Playback.FPS != 10 || cfg.Playback.Speed != 1 {
		t.Errorf("unexpected pacing defaults: %+v", cfg.Playback)
	}
	if cfg.Render.Mode != RenderText {
		t.Errorf("expected render mode text, got %q", cfg.Render.Mode)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should be valid, got %v", err)
	}
}

func TestParse(t *testing.T) {
	data := []byte(`
server:
  addr: "127.0.0.1:9000"
  data_dir: /srv/recordings
playback:
  fps: 20
  speed: 2.5
  throttle_ms: 500
  background: true
render:
  mode: png
  dir: /tmp/frames
  theme:
    bid_color: "#00ff00"
log_level: debug
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:9000" || cfg.Server.DataDir != "/srv/recordings" {
		t.Errorf("unexpected server section: %+v", cfg.Server)
	}
	if cfg.Playback.FPS != 20 || cfg.Playback.Speed != 2.5 || !cfg.Playback.Background {
		t.Errorf("unexpected playback section: %+v", cfg.Playback)
	}
	// Unset keys keep their defaults
	if cfg.Playback.ChunkSize != 500 || cfg.Playback.LowWaterMark != 150 {
		t.Errorf("expected defaults for unset keys, got %+v", cfg.Playback)
	}
	if cfg.LogLevel != ports.LevelDebug {
		t.Errorf("expected log level debug, got %s", cfg.LogLevel)
	}

	pc := cfg.ToPlaybackConfig()
	if pc.TargetRate != 20 || pc.ThrottleWindow != 500*time.Millisecond {
		t.Errorf("unexpected playback config: %+v", pc)
	}

	sc := cfg.ToSessionConfig()
	if !sc.Background || sc.RefreshHz != 60 {
		t.Errorf("unexpected session config: %+v", sc)
	}

	opts := cfg.ToRenderOptions()
	if opts.Theme.Bid != (color.RGBA{R: 0, G: 255, B: 0, A: 255}) {
		t.Errorf("expected bid color override, got %v", opts.Theme.Bid)
	}
	if opts.Width != 800 {
		t.Errorf("expected width 800, got %d", opts.Width)
	}

	if got := cfg.ToServerConfig().Addr; got != "127.0.0.1:9000" {
		t.Errorf("expected server addr override, got %q", got)
	}
	if got := cfg.ToOrchestratorConfig().DataDir; got != "/srv/recordings" {
		t.Errorf("expected data dir override, got %q", got)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad render mode", "render:\n  mode: video\n"},
		{"bad speed", "playback:\n  speed: 0\n"},
		{"bad log level", "log_level: verbose\n"},
		{"not yaml", "playback: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tapeplay.yaml")
	if err := os.WriteFile(path, []byte("playback:\n  fps: 5\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.Playback.FPS != 5 {
		t.Errorf("expected fps 5, got %v", cfg.Playback.FPS)
	}

	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		input string
		want  color.Color
	}{
		{"#dcdcdc", color.RGBA{R: 220, G: 220, B: 220, A: 255}},
		{"1A2b3C", color.RGBA{R: 0x1a, G: 0x2b, B: 0x3c, A: 255}},
		{"", color.Black},
		{"#fff", color.Black},
	}

	for _, tt := range tests {
		if got := ParseColor(tt.input); got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
