package tapeplay

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/user/tapeplay/pkg/playback"
	"github.com/user/tapeplay/pkg/ports"
)

// Clock combines the time sources a session paces itself with.
type Clock interface {
	ports.Clock
	ports.RefreshSource
	ports.TimerSource
}

// Deps are the collaborators of a Session. Asynchronous adapters must post
// their callbacks to the same Loop the session runs.
type Deps struct {
	Source   ports.RemoteDataSource
	Renderer ports.Renderer
	Clock    Clock
	Logger   ports.Logger

	// Sink receives the playhead. When it also implements ports.StateSink it
	// receives a state update after every transition.
	Sink ports.PositionSink

	// Visibility drives foreground/background switching. When nil the session
	// stays in the mode Config.Background selects.
	Visibility ports.VisibilitySource

	// Catalog and File let the session read the row count of the recording.
	Catalog ports.Catalog
	File    string
}

// Session plays one recording. It owns the controller and the loop that
// drives it; its methods may be called from any goroutine while Run is active.
type Session struct {
	id         string
	config     Config
	loop       *playback.Loop
	ctrl       *playback.Controller
	visibility ports.VisibilitySource
	states     ports.StateSink
	catalog    ports.Catalog
	file       string
	logger     ports.Logger

	done     chan struct{}
	doneOnce sync.Once
}

// NewSession creates a session on loop. The loop must not be running yet.
func NewSession(cfg Config, loop *playback.Loop, deps Deps) (*Session, error) {
	if loop == nil {
		return nil, fmt.Errorf("tapeplay: loop is required")
	}
	if deps.Clock == nil {
		return nil, fmt.Errorf("tapeplay: clock is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("tapeplay: logger is required")
	}

	ctrl, err := playback.New(cfg.ToPlaybackConfig(), playback.Deps{
		Source:     deps.Source,
		Renderer:   deps.Renderer,
		Sink:       deps.Sink,
		Clock:      deps.Clock,
		Foreground: playback.NewContinuousStrategy(deps.Clock),
		Background: playback.NewIntervalStrategy(deps.Clock),
		Logger:     deps.Logger,
	})
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:         uuid.NewString(),
		config:     cfg,
		loop:       loop,
		ctrl:       ctrl,
		visibility: deps.Visibility,
		catalog:    deps.Catalog,
		file:       deps.File,
		logger:     deps.Logger.WithComponent("session"),
		done:       make(chan struct{}),
	}
	if states, ok := deps.Sink.(ports.StateSink); ok {
		s.states = states
	}
	ctrl.OnStateChange(s.onStateChange)
	return s, nil
}

// ID identifies the session.
func (s *Session) ID() string {
	return s.id
}

// Done is closed when playback reaches the end of the data.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Run starts playback at Config.StartRow and drives the loop until the end
// of data is reached or ctx is cancelled. It returns nil at the end of data.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	totalRows := s.resolveTotalRows(ctx)

	loopErr := make(chan error, 1)
	go func() {
		loopErr <- s.loop.Run(ctx)
	}()

	if s.visibility != nil {
		unsubscribe := s.visibility.Subscribe(func(mode ports.VisibilityMode) {
			s.loop.Post(func() {
				s.ctrl.SetVisibility(mode)
			})
		})
		defer unsubscribe()
	}

	startErr := make(chan error, 1)
	s.loop.Post(func() {
		if err := s.ctrl.SetTotalRows(totalRows); err != nil {
			startErr <- err
			return
		}
		s.ctrl.SetVisibility(s.initialVisibility())
		startErr <- s.ctrl.PlayFrom(s.config.StartRow)
	})

	s.logger.Info("Playing %s from row %d of %d at %.2fx", s.describe(), s.config.StartRow, totalRows, s.config.Speed)

	var err error
	select {
	case err = <-startErr:
		if err == nil {
			select {
			case <-s.done:
			case err = <-loopErr:
				return err
			}
		}
	case err = <-loopErr:
		return err
	}

	cancel()
	<-loopErr
	return err
}

// Result returns the final state and counters. Call it only after Run has
// returned, when nothing else touches the controller.
func (s *Session) Result() (playback.State, playback.Stats) {
	return s.ctrl.State(), s.ctrl.Stats()
}

// Play resumes playback.
func (s *Session) Play(ctx context.Context) error {
	return s.do(ctx, s.ctrl.Play)
}

// Pause halts playback and keeps the buffer.
func (s *Session) Pause(ctx context.Context) error {
	return s.do(ctx, func() error {
		s.ctrl.Pause()
		return nil
	})
}

// Seek moves the playhead.
func (s *Session) Seek(ctx context.Context, row int) error {
	return s.do(ctx, func() error {
		return s.ctrl.Seek(row)
	})
}

// SetSpeed changes the speed multiplier.
func (s *Session) SetSpeed(ctx context.Context, speed float64) error {
	return s.do(ctx, func() error {
		return s.ctrl.SetSpeed(speed)
	})
}

// Apply feeds an external playback input to the controller.
func (s *Session) Apply(ctx context.Context, in playback.Input) error {
	return s.do(ctx, func() error {
		return s.ctrl.Apply(in)
	})
}

// State returns a snapshot of the controller.
func (s *Session) State(ctx context.Context) (playback.State, error) {
	var st playback.State
	err := s.do(ctx, func() error {
		st = s.ctrl.State()
		return nil
	})
	return st, err
}

// Stats returns the session counters.
func (s *Session) Stats(ctx context.Context) (playback.Stats, error) {
	var st playback.Stats
	err := s.do(ctx, func() error {
		st = s.ctrl.Stats()
		return nil
	})
	return st, err
}

// Controller exposes the controller for callers already running on the loop.
func (s *Session) Controller() *playback.Controller {
	return s.ctrl
}

func (s *Session) do(ctx context.Context, fn func() error) error {
	var err error
	if doErr := s.loop.Do(ctx, func() { err = fn() }); doErr != nil {
		return doErr
	}
	return err
}

func (s *Session) resolveTotalRows(ctx context.Context) int {
	if s.catalog == nil || s.file == "" {
		return s.config.TotalRows
	}
	info, err := s.catalog.Info(ctx, s.file)
	if err != nil {
		s.logger.Warn("Could not read info for %s, assuming %d rows: %v", s.file, s.config.TotalRows, err)
		return s.config.TotalRows
	}
	return info.Rows
}

func (s *Session) initialVisibility() ports.VisibilityMode {
	if s.visibility != nil {
		return s.visibility.Current()
	}
	if s.config.Background {
		return ports.Background
	}
	return ports.Foreground
}

func (s *Session) describe() string {
	if s.file != "" {
		return s.file
	}
	return s.id
}

// onStateChange runs on the loop after every controller transition.
func (s *Session) onStateChange(st playback.State) {
	if s.states != nil {
		s.states.PublishState(ports.StateUpdate{
			IsPlaying: st.Status == playback.StatusPlaying,
			Speed:     st.Speed,
			Row:       st.Playhead,
			TotalRows: st.TotalRows,
		})
	}
	if st.Status == playback.StatusPaused && st.AtEnd() {
		s.doneOnce.Do(func() { close(s.done) })
	}
}
