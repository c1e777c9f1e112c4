package tapeplay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/tapeplay/pkg/mocks"
	"github.com/user/tapeplay/pkg/playback"
	"github.com/user/tapeplay/pkg/ports"
)

var epoch0 = time.Date(2024, 11, 5, 9, 30, 0, 0, time.UTC)

type fakeCatalog struct {
	info ports.FileInfo
	err  error
}

func (c fakeCatalog) Files(ctx context.Context) ([]string, error) {
	return []string{c.info.Name}, nil
}

func (c fakeCatalog) Info(ctx context.Context, name string) (ports.FileInfo, error) {
	return c.info, c.err
}

type fixture struct {
	clock    *mocks.ManualClock
	loop     *playback.Loop
	source   *mocks.DataSource
	renderer *mocks.Renderer
	sink     *mocks.PositionSink
	log      *mocks.Logger
}

func newFixture(rows int) *fixture {
	return &fixture{
		clock:    mocks.NewManualClock(epoch0, 16*time.Millisecond),
		loop:     playback.NewLoop(0),
		source:   mocks.NewSyncDataSource(rows),
		renderer: mocks.NewRenderer(),
		sink:     mocks.NewPositionSink(),
		log:      mocks.NewLogger(),
	}
}

func (f *fixture) deps() Deps {
	return Deps{
		Source:   f.source,
		Renderer: f.renderer,
		Clock:    f.clock,
		Logger:   f.log,
		Sink:     f.sink,
	}
}

// drive advances the manual clock on the loop until the session finishes.
func (f *fixture) drive(t *testing.T, s *Session, step time.Duration) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 1000; i++ {
		select {
		case <-s.Done():
			return
		default:
		}
		_ = f.loop.Do(ctx, func() { f.clock.Advance(step) })
	}
	t.Fatal("session did not reach the end of data")
}

func start(t *testing.T, s *Session) (<-chan error, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()
	t.Cleanup(cancel)
	return errCh, cancel
}

func waitPlaying(t *testing.T, s *Session) playback.State {
	t.Helper()
	var st playback.State
	require.Eventually(t, func() bool {
		var err error
		st, err = s.State(context.Background())
		return err == nil && st.Status == playback.StatusPlaying
	}, time.Second, time.Millisecond)
	return st
}

func TestNewSession_Validation(t *testing.T) {
	f := newFixture(10)
	cfg := NewConfigBuilder().Build()

	_, err := NewSession(cfg, nil, f.deps())
	assert.Error(t, err)

	deps := f.deps()
	deps.Clock = nil
	_, err = NewSession(cfg, f.loop, deps)
	assert.Error(t, err)

	bad := cfg
	bad.Speed = -1
	_, err = NewSession(bad, f.loop, f.deps())
	assert.ErrorIs(t, err, playback.ErrInvalidSpeed)

	s, err := NewSession(cfg, f.loop, f.deps())
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID())
}

func TestSession_PlaysToEnd(t *testing.T) {
	f := newFixture(30)
	s, err := NewSession(NewConfigBuilder().WithTotalRows(30).Build(), f.loop, f.deps())
	require.NoError(t, err)

	errCh, _ := start(t, s)
	f.drive(t, s, 100*time.Millisecond)
	require.NoError(t, <-errCh)

	rows := f.renderer.Rows()
	require.Len(t, rows, 30)
	assert.Equal(t, 0, rows[0])
	assert.Equal(t, 29, rows[29])

	published := f.sink.Rows()
	require.NotEmpty(t, published)
	assert.Equal(t, 30, published[len(published)-1], "the final playhead is published unthrottled")

	states := f.sink.States()
	require.NotEmpty(t, states)
	assert.True(t, states[0].IsPlaying)
	assert.Equal(t, ports.StateUpdate{IsPlaying: false, Speed: 1, Row: 30, TotalRows: 30}, states[len(states)-1])
}

func TestSession_StartRow(t *testing.T) {
	f := newFixture(20)
	cfg := NewConfigBuilder().WithTotalRows(20).WithStartRow(15).Build()
	s, err := NewSession(cfg, f.loop, f.deps())
	require.NoError(t, err)

	errCh, _ := start(t, s)
	f.drive(t, s, 100*time.Millisecond)
	require.NoError(t, <-errCh)

	assert.Equal(t, []int{15, 16, 17, 18, 19}, f.renderer.Rows())
	require.NotEmpty(t, f.source.Requests())
	assert.Equal(t, 15, f.source.Requests()[0].StartRow)
}

func TestSession_TotalRowsFromCatalog(t *testing.T) {
	f := newFixture(100)
	deps := f.deps()
	deps.Catalog = fakeCatalog{info: ports.FileInfo{Name: "btc.csv", Rows: 12}}
	deps.File = "btc.csv"

	s, err := NewSession(NewConfigBuilder().Build(), f.loop, deps)
	require.NoError(t, err)

	errCh, _ := start(t, s)
	f.drive(t, s, 100*time.Millisecond)
	require.NoError(t, <-errCh)

	assert.Equal(t, 12, f.renderer.Count())
}

func TestSession_CatalogErrorFallsBack(t *testing.T) {
	f := newFixture(100)
	deps := f.deps()
	deps.Catalog = fakeCatalog{err: errors.New("connection refused")}
	deps.File = "btc.csv"

	s, err := NewSession(NewConfigBuilder().WithTotalRows(5).Build(), f.loop, deps)
	require.NoError(t, err)

	errCh, _ := start(t, s)
	f.drive(t, s, 100*time.Millisecond)
	require.NoError(t, <-errCh)

	assert.Equal(t, 5, f.renderer.Count())
	assert.NotEmpty(t, f.log.Entries(ports.LevelWarn))
}

func TestSession_BackgroundConfig(t *testing.T) {
	f := newFixture(100)
	s, err := NewSession(NewConfigBuilder().WithBackground(true).Build(), f.loop, f.deps())
	require.NoError(t, err)

	errCh, cancel := start(t, s)
	st := waitPlaying(t, s)
	assert.Equal(t, "interval", st.Strategy)
	assert.Equal(t, ports.Background, st.Visibility)

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
}

func TestSession_FollowsVisibility(t *testing.T) {
	f := newFixture(1000)
	vis := mocks.NewVisibilitySource(ports.Background)
	deps := f.deps()
	deps.Visibility = vis

	s, err := NewSession(NewConfigBuilder().Build(), f.loop, deps)
	require.NoError(t, err)

	errCh, cancel := start(t, s)
	st := waitPlaying(t, s)
	assert.Equal(t, "interval", st.Strategy)
	require.Equal(t, 1, vis.Subscribers())

	vis.Set(ports.Foreground)
	st, err = s.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "continuous", st.Strategy)
	assert.Equal(t, ports.Foreground, st.Visibility)

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
	assert.Zero(t, vis.Subscribers())
}

func TestSession_Controls(t *testing.T) {
	f := newFixture(1000)
	s, err := NewSession(NewConfigBuilder().Build(), f.loop, f.deps())
	require.NoError(t, err)

	ctx := context.Background()
	errCh, cancel := start(t, s)
	waitPlaying(t, s)

	require.NoError(t, s.Pause(ctx))
	st, err := s.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, playback.StatusPaused, st.Status)

	require.NoError(t, s.Seek(ctx, 400))
	require.NoError(t, s.SetSpeed(ctx, 4))
	assert.ErrorIs(t, s.SetSpeed(ctx, 0), playback.ErrInvalidSpeed)

	require.NoError(t, s.Play(ctx))
	st, err = s.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, playback.StatusPlaying, st.Status)
	assert.Equal(t, 400, st.Playhead)
	assert.Equal(t, 4.0, st.Speed)

	row := 10
	require.NoError(t, s.Apply(ctx, playback.Input{IsPlaying: true, Speed: 4, PlayStartRow: &row}))
	st, err = s.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, st.Playhead)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Seeks)

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
	assert.Error(t, s.Pause(ctx), "the loop has stopped")
}

func TestSession_Result(t *testing.T) {
	f := newFixture(8)
	s, err := NewSession(NewConfigBuilder().WithTotalRows(8).Build(), f.loop, f.deps())
	require.NoError(t, err)

	errCh, _ := start(t, s)
	f.drive(t, s, 100*time.Millisecond)
	require.NoError(t, <-errCh)

	st, stats := s.Result()
	assert.True(t, st.AtEnd())
	assert.Equal(t, playback.StatusPaused, st.Status)
	assert.Equal(t, 8, stats.FramesRendered)
	assert.False(t, stats.FinishedAt.IsZero())
}

func TestSession_InvalidStartRowFromRun(t *testing.T) {
	f := newFixture(8)
	cfg := NewConfigBuilder().Build()
	cfg.StartRow = -1

	s, err := NewSession(cfg, f.loop, f.deps())
	require.NoError(t, err)

	err = s.Run(context.Background())
	assert.ErrorIs(t, err, playback.ErrInvalidRow)
}
