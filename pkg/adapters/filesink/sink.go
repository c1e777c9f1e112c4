// Package filesink dumps played frames and published positions to files.
package filesink

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/user/tapeplay/pkg/ports"
)

// Sink writes each rendered frame as JSON and keeps a log of published
// positions and states that Close writes to playback.json.
type Sink struct {
	baseDir string
	fs      ports.FileSystem

	mu        sync.Mutex
	madeDir   bool
	positions []int
	states    []ports.StateUpdate
}

// New creates a new FileSink.
func New(baseDir string, fs ports.FileSystem) *Sink {
	return &Sink{
		baseDir: baseDir,
		fs:      fs,
	}
}

// FramePath returns the file a row is written to.
func (s *Sink) FramePath(row int) string {
	return filepath.Join(s.baseDir, "frames", fmt.Sprintf("frame-%06d.json", row))
}

// Render implements ports.Renderer.
func (s *Sink) Render(row int, frame ports.Frame) error {
	if !json.Valid(frame) {
		return fmt.Errorf("frame for row %d is not valid JSON", row)
	}
	if err := s.ensureDir(); err != nil {
		return err
	}
	return s.fs.WriteFile(s.FramePath(row), frame)
}

// Publish implements ports.PositionSink.
func (s *Sink) Publish(row int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions = append(s.positions, row)
}

// PublishState implements ports.StateSink.
func (s *Sink) PublishState(update ports.StateUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, update)
}

// Close writes the position and state log.
func (s *Sink) Close() error {
	s.mu.Lock()
	data, err := json.MarshalIndent(struct {
		Positions []int               `json:"positions"`
		States    []ports.StateUpdate `json:"states"`
	}{s.positions, s.states}, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encode playback log: %w", err)
	}

	if err := s.fs.MkdirAll(s.baseDir); err != nil {
		return err
	}
	return s.fs.WriteFile(filepath.Join(s.baseDir, "playback.json"), data)
}

func (s *Sink) ensureDir() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.madeDir {
		return nil
	}
	if err := s.fs.MkdirAll(filepath.Join(s.baseDir, "frames")); err != nil {
		return err
	}
	s.madeDir = true
	return nil
}

var (
	_ ports.Renderer     = (*Sink)(nil)
	_ ports.PositionSink = (*Sink)(nil)
	_ ports.StateSink    = (*Sink)(nil)
)
