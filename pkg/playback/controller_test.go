package playback

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/tapeplay/pkg/mocks"
	"github.com/user/tapeplay/pkg/ports"
)

type harness struct {
	clock    *mocks.ManualClock
	source   *mocks.DataSource
	renderer *mocks.Renderer
	sink     *mocks.PositionSink
	log      *mocks.Logger
	fg       *ContinuousStrategy
	bg       *IntervalStrategy
	ctrl     *Controller
}

func newHarness(t *testing.T, cfg Config, source *mocks.DataSource) *harness {
	t.Helper()
	h := &harness{
		clock:    mocks.NewManualClock(epoch0, 16*time.Millisecond),
		source:   source,
		renderer: mocks.NewRenderer(),
		sink:     mocks.NewPositionSink(),
		log:      mocks.NewLogger(),
	}
	h.fg = NewContinuousStrategy(h.clock)
	h.bg = NewIntervalStrategy(h.clock)

	ctrl, err := New(cfg, Deps{
		Source:     h.source,
		Renderer:   h.renderer,
		Sink:       h.sink,
		Clock:      h.clock,
		Foreground: h.fg,
		Background: h.bg,
		Logger:     h.log,
	})
	require.NoError(t, err)
	h.ctrl = ctrl
	return h
}

func intRange(start, end int) []int {
	rows := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		rows = append(rows, i)
	}
	return rows
}

func TestNew_Validation(t *testing.T) {
	clock := mocks.NewManualClock(epoch0, 0)
	fg := NewContinuousStrategy(clock)
	deps := Deps{
		Source:     mocks.NewDataSource(),
		Renderer:   mocks.NewRenderer(),
		Clock:      clock,
		Foreground: fg,
		Background: NewIntervalStrategy(clock),
	}

	_, err := New(DefaultConfig(), deps)
	assert.NoError(t, err, "nil logger and sink are allowed")

	cfg := DefaultConfig()
	cfg.Speed = 0
	_, err = New(cfg, deps)
	assert.ErrorIs(t, err, ErrInvalidSpeed)

	cfg = DefaultConfig()
	cfg.TargetRate = math.Inf(1)
	_, err = New(cfg, deps)
	assert.ErrorIs(t, err, ErrInvalidRate)

	same := deps
	same.Background = fg
	_, err = New(DefaultConfig(), same)
	assert.Error(t, err)

	missing := deps
	missing.Source = nil
	_, err = New(DefaultConfig(), missing)
	assert.Error(t, err)
}

func TestController_EndToEndPrefetch(t *testing.T) {
	h := newHarness(t, DefaultConfig(), mocks.NewDataSource())
	h.ctrl.SetVisibility(ports.Background)

	require.NoError(t, h.ctrl.PlayFrom(0))
	assert.Equal(t, StatusPlaying, h.ctrl.State().Status)
	assert.Equal(t, "interval", h.ctrl.State().Strategy)
	require.Equal(t, []ports.ChunkRequest{{StartRow: 0, Count: 500, Reset: true}}, h.source.Requests())
	require.NoError(t, h.source.DeliverRows(0))

	// 352 ticks render rows 0..351; the tick at row 351 sees 149 frames ahead.
	h.clock.Advance(35200 * time.Millisecond)

	assert.Equal(t, intRange(0, 352), h.renderer.Rows())
	assert.Equal(t, 352, h.ctrl.State().Playhead)
	assert.True(t, h.ctrl.State().InFlight)
	require.Equal(t, []ports.ChunkRequest{{StartRow: 500, Count: 500, Reset: false}}, h.source.Pending())

	// One publish per second of playback at 10 frames per second.
	published := h.sink.Rows()
	require.Len(t, published, 36)
	assert.Equal(t, 0, published[0])
	assert.Equal(t, 10, published[1])
	assert.Equal(t, 350, published[35])

	require.NoError(t, h.source.DeliverRows(0))
	state := h.ctrl.State()
	assert.False(t, state.InFlight)
	assert.Equal(t, 0, state.BufferStart)
	assert.Equal(t, 1000, state.BufferLen)

	h.clock.Advance(100 * time.Millisecond)
	assert.Equal(t, 353, h.renderer.Count())

	stats := h.ctrl.Stats()
	assert.Equal(t, 2, stats.Requests)
	assert.Equal(t, 1, stats.ResetRequests)
	assert.Equal(t, 1, stats.Resets)
	assert.Equal(t, 1, stats.Appends)
	assert.Zero(t, stats.Stalls)
	assert.Zero(t, stats.Mismatches)
	assert.Equal(t, len(h.sink.Rows()), stats.Published)
}

func TestController_EndOfData(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TotalRows = 20
	h := newHarness(t, cfg, mocks.NewSyncDataSource(20))
	h.ctrl.SetVisibility(ports.Background)

	var states []State
	h.ctrl.OnStateChange(func(s State) { states = append(states, s) })

	require.NoError(t, h.ctrl.Play())
	h.clock.Advance(5 * time.Second)

	assert.Equal(t, intRange(0, 20), h.renderer.Rows())
	assert.Len(t, h.source.Requests(), 1, "no prefetch past total rows")

	state := h.ctrl.State()
	assert.Equal(t, StatusPaused, state.Status)
	assert.True(t, state.AtEnd())
	assert.False(t, h.bg.Running())
	assert.Zero(t, h.clock.ActiveTimers())

	rows := h.sink.Rows()
	assert.Equal(t, 20, rows[len(rows)-1], "final playhead is flushed")

	require.NotEmpty(t, states)
	assert.Equal(t, StatusPaused, states[len(states)-1].Status)

	stats := h.ctrl.Stats()
	assert.Equal(t, epoch0, stats.StartedAt)
	assert.Equal(t, epoch0.Add(2100*time.Millisecond), stats.FinishedAt)

	infos := h.log.Entries(ports.LevelInfo)
	require.Len(t, infos, 1)
	assert.Equal(t, "controller", infos[0].Component)
}

func TestController_VisibilitySwap(t *testing.T) {
	h := newHarness(t, DefaultConfig(), mocks.NewSyncDataSource(10000))

	require.NoError(t, h.ctrl.Play())
	assert.Equal(t, "continuous", h.ctrl.State().Strategy)
	h.clock.Advance(time.Second)
	before := h.ctrl.State()
	assert.InDelta(t, 10, float64(before.Playhead), 1)

	h.ctrl.SetVisibility(ports.Background)
	after := h.ctrl.State()
	assert.Equal(t, "interval", after.Strategy)
	assert.Equal(t, before.Playhead, after.Playhead)
	assert.Equal(t, before.BufferStart, after.BufferStart)
	assert.Equal(t, before.BufferLen, after.BufferLen)
	assert.False(t, h.fg.Running())
	assert.True(t, h.bg.Running())
	assert.Zero(t, h.clock.PendingFrames())

	h.clock.Advance(time.Second)
	assert.Equal(t, before.Playhead+10, h.ctrl.State().Playhead)
	assert.Equal(t, intRange(0, before.Playhead+10), h.renderer.Rows())

	h.ctrl.SetVisibility(ports.Background)
	h.ctrl.SetVisibility(ports.Foreground)
	assert.True(t, h.fg.Running())
	assert.False(t, h.bg.Running())
	assert.Equal(t, 2, h.ctrl.Stats().StrategySwitches)
}

func TestController_VisibilityWhilePaused(t *testing.T) {
	h := newHarness(t, DefaultConfig(), mocks.NewSyncDataSource(10000))

	h.ctrl.SetVisibility(ports.Background)
	assert.False(t, h.bg.Running())
	assert.Zero(t, h.ctrl.Stats().StrategySwitches)

	require.NoError(t, h.ctrl.Play())
	assert.True(t, h.bg.Running())
}

func TestController_SpeedRestartsInterval(t *testing.T) {
	h := newHarness(t, DefaultConfig(), mocks.NewSyncDataSource(10000))
	h.ctrl.SetVisibility(ports.Background)
	require.NoError(t, h.ctrl.Play())
	assert.Equal(t, 100*time.Millisecond, h.bg.Interval())

	require.NoError(t, h.ctrl.SetSpeed(2))
	assert.Equal(t, 50*time.Millisecond, h.bg.Interval())
	assert.Equal(t, 1, h.clock.ActiveTimers())

	h.clock.Advance(time.Second)
	assert.Equal(t, 20, h.ctrl.State().Playhead)
	assert.Equal(t, 2.0, h.ctrl.State().Speed)

	require.NoError(t, h.ctrl.SetTargetRate(40))
	assert.Equal(t, 12500*time.Microsecond, h.bg.Interval())
}

func TestController_InvalidSpeed(t *testing.T) {
	h := newHarness(t, DefaultConfig(), mocks.NewSyncDataSource(10000))

	for _, v := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		assert.ErrorIs(t, h.ctrl.SetSpeed(v), ErrInvalidSpeed, "speed %v", v)
		assert.ErrorIs(t, h.ctrl.SetTargetRate(v), ErrInvalidRate, "rate %v", v)
	}
	assert.Equal(t, 1.0, h.ctrl.State().Speed)
	assert.ErrorIs(t, h.ctrl.Seek(-1), ErrInvalidRow)
	assert.ErrorIs(t, h.ctrl.PlayFrom(-1), ErrInvalidRow)
	assert.ErrorIs(t, h.ctrl.SetTotalRows(-1), ErrInvalidRow)
}

func TestController_RenderFailuresAreContained(t *testing.T) {
	h := newHarness(t, DefaultConfig(), mocks.NewSyncDataSource(10000))
	h.renderer.RenderFunc = func(row int, _ ports.Frame) error {
		switch row {
		case 3:
			return errors.New("draw failed")
		case 5:
			panic("bad frame")
		}
		return nil
	}
	h.ctrl.SetVisibility(ports.Background)

	require.NoError(t, h.ctrl.Play())
	h.clock.Advance(time.Second)

	assert.Equal(t, 10, h.ctrl.State().Playhead)
	stats := h.ctrl.Stats()
	assert.Equal(t, 2, stats.RenderFailures)
	assert.Equal(t, 8, stats.FramesRendered)
	assert.Len(t, h.log.Entries(ports.LevelError), 2)
}

func TestController_EmptyFramesSkipRender(t *testing.T) {
	source := mocks.NewSyncDataSource(10000)
	source.FrameFunc = func(row int) ports.Frame {
		if row%2 == 1 {
			return nil
		}
		return mocks.RowFrame(row)
	}
	h := newHarness(t, DefaultConfig(), source)
	h.ctrl.SetVisibility(ports.Background)

	require.NoError(t, h.ctrl.Play())
	h.clock.Advance(time.Second)

	assert.Equal(t, []int{0, 2, 4, 6, 8}, h.renderer.Rows())
	assert.Equal(t, 10, h.ctrl.State().Playhead)
}

func TestController_FetchErrorThenStall(t *testing.T) {
	h := newHarness(t, DefaultConfig(), mocks.NewDataSource())
	h.ctrl.SetVisibility(ports.Background)

	require.NoError(t, h.ctrl.Play())
	require.NoError(t, h.source.Fail(0, errors.New("connection refused")))

	assert.False(t, h.ctrl.State().InFlight)
	assert.Equal(t, 1, h.ctrl.Stats().FetchErrors)
	assert.Len(t, h.log.Entries(ports.LevelWarn), 1)

	h.clock.Advance(100 * time.Millisecond)
	assert.Equal(t, 0, h.ctrl.State().Playhead, "playhead waits for data")
	assert.Equal(t, 1, h.ctrl.Stats().Stalls)
	require.Equal(t, []ports.ChunkRequest{{StartRow: 0, Count: 500, Reset: true}}, h.source.Pending())

	// Further stalls do not pile up requests.
	h.clock.Advance(300 * time.Millisecond)
	assert.Len(t, h.source.Pending(), 1)
	assert.Equal(t, 4, h.ctrl.Stats().Stalls)

	require.NoError(t, h.source.DeliverRows(0))
	h.clock.Advance(100 * time.Millisecond)
	assert.Equal(t, []int{0}, h.renderer.Rows())
}

func TestController_StopDropsLateDelivery(t *testing.T) {
	h := newHarness(t, DefaultConfig(), mocks.NewDataSource())

	require.NoError(t, h.ctrl.PlayFrom(40))
	h.ctrl.Stop()

	state := h.ctrl.State()
	assert.Equal(t, StatusIdle, state.Status)
	assert.Equal(t, 0, state.Playhead)
	assert.False(t, state.InFlight)
	assert.False(t, h.fg.Running())

	require.NoError(t, h.source.DeliverRows(0))
	assert.Zero(t, h.ctrl.State().BufferLen)
	assert.Equal(t, 1, h.ctrl.Stats().DroppedDeliveries)

	require.NoError(t, h.ctrl.Play())
	reqs := h.source.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, ports.ChunkRequest{StartRow: 0, Count: 500, Reset: true}, reqs[1])

	h.ctrl.Stop()
	h.ctrl.Stop()
}

func TestController_PauseAndResume(t *testing.T) {
	h := newHarness(t, DefaultConfig(), mocks.NewSyncDataSource(10000))
	h.ctrl.SetVisibility(ports.Background)

	require.NoError(t, h.ctrl.Play())
	h.clock.Advance(500 * time.Millisecond)
	h.ctrl.Pause()
	h.ctrl.Pause()

	assert.Equal(t, StatusPaused, h.ctrl.State().Status)
	h.clock.Advance(time.Second)
	assert.Equal(t, 5, h.ctrl.State().Playhead)

	require.NoError(t, h.ctrl.Play())
	h.clock.Advance(500 * time.Millisecond)
	assert.Equal(t, 10, h.ctrl.State().Playhead)
	assert.Equal(t, intRange(0, 10), h.renderer.Rows())
	assert.Len(t, h.source.Requests(), 1)
}

func TestController_SeekOutsideBuffer(t *testing.T) {
	h := newHarness(t, DefaultConfig(), mocks.NewSyncDataSource(10000))
	h.ctrl.SetVisibility(ports.Background)
	require.NoError(t, h.ctrl.Play())

	require.NoError(t, h.ctrl.Seek(300))
	assert.Len(t, h.source.Requests(), 1, "row 300 is already buffered")

	require.NoError(t, h.ctrl.Seek(2000))
	reqs := h.source.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, ports.ChunkRequest{StartRow: 2000, Count: 500, Reset: true}, reqs[1])
	assert.Equal(t, 2000, h.ctrl.State().BufferStart)

	h.clock.Advance(300 * time.Millisecond)
	assert.Equal(t, []int{2000, 2001, 2002}, h.renderer.Rows())
	assert.Equal(t, 2, h.ctrl.Stats().Seeks)
}

func TestController_Apply(t *testing.T) {
	h := newHarness(t, DefaultConfig(), mocks.NewSyncDataSource(10000))
	h.ctrl.SetVisibility(ports.Background)

	require.NoError(t, h.ctrl.Apply(Input{IsPlaying: true, Speed: 1}))
	assert.Equal(t, StatusPlaying, h.ctrl.State().Status)
	assert.Len(t, h.source.Requests(), 1)

	require.NoError(t, h.ctrl.Apply(Input{IsPlaying: true, Speed: 1}))
	assert.Zero(t, h.ctrl.Stats().Seeks)

	row := 300
	require.NoError(t, h.ctrl.Apply(Input{IsPlaying: true, Speed: 1, PlayStartRow: &row}))
	assert.Equal(t, 300, h.ctrl.State().Playhead)
	assert.Equal(t, 1, h.ctrl.Stats().Seeks)

	same := 300
	require.NoError(t, h.ctrl.Apply(Input{IsPlaying: true, Speed: 1, PlayStartRow: &same}))
	assert.Equal(t, 1, h.ctrl.Stats().Seeks, "unchanged row is not a seek")

	require.NoError(t, h.ctrl.Apply(Input{IsPlaying: false, Speed: 1, PlayStartRow: &same}))
	assert.Equal(t, StatusPaused, h.ctrl.State().Status)

	require.NoError(t, h.ctrl.Apply(Input{IsPlaying: true, Speed: 2, PlayStartRow: &same}))
	state := h.ctrl.State()
	assert.Equal(t, StatusPlaying, state.Status)
	assert.Equal(t, 300, state.Playhead)
	assert.Equal(t, 2.0, state.Speed)
	assert.Equal(t, 50*time.Millisecond, h.bg.Interval())

	assert.ErrorIs(t, h.ctrl.Apply(Input{IsPlaying: true, Speed: -3}), ErrInvalidSpeed)
}

func TestController_PreloadAvoidsInitialRequest(t *testing.T) {
	h := newHarness(t, DefaultConfig(), mocks.NewDataSource())
	h.ctrl.Preload(delivery(0, 500, true))

	require.NoError(t, h.ctrl.Play())
	assert.Empty(t, h.source.Requests())
	assert.Equal(t, 1, h.ctrl.Stats().Resets)
}

func TestController_KeepBehindTrimsOnAppend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KeepBehind = 100
	h := newHarness(t, cfg, mocks.NewSyncDataSource(10000))
	h.ctrl.SetVisibility(ports.Background)

	require.NoError(t, h.ctrl.Play())
	h.clock.Advance(35200 * time.Millisecond)

	state := h.ctrl.State()
	assert.Equal(t, 251, state.BufferStart)
	assert.Equal(t, 1000, state.BufferStart+state.BufferLen)
}

func TestController_TickIgnoredWhenNotPlaying(t *testing.T) {
	h := newHarness(t, DefaultConfig(), mocks.NewSyncDataSource(10000))
	h.ctrl.OnTick(epoch0)
	assert.Zero(t, h.renderer.Count())
	assert.Zero(t, h.ctrl.State().Playhead)
}
