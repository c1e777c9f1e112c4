package playback

import (
	"fmt"
	"time"

	"github.com/user/tapeplay/pkg/ports"
)

// Deps are the collaborators a Controller is built from.
type Deps struct {
	Source     ports.RemoteDataSource
	Renderer   ports.Renderer
	Sink       ports.PositionSink
	Clock      ports.Clock
	Foreground Strategy // Used while the surface is visible
	Background Strategy // Used while the surface is hidden
	Logger     ports.Logger
}

// Controller is the playback state machine. It owns the buffer, the prefetch
// policy, the position reporter and the active strategy.
//
// Controller is not safe for concurrent use; drive it from one goroutine,
// usually a Loop.
type Controller struct {
	source     ports.RemoteDataSource
	renderer   ports.Renderer
	clock      ports.Clock
	foreground Strategy
	background Strategy
	logger     ports.Logger

	buffer   *FrameBuffer
	prefetch *PrefetchPolicy
	reporter *PositionReporter

	status     Status
	playhead   int
	speed      float64
	targetRate float64
	totalRows  int
	keepBehind int
	visibility ports.VisibilityMode
	active     Strategy

	// epoch changes when a session ends so late deliveries are dropped.
	epoch     uint64
	lastInput Input
	stats     Stats
	listeners []func(State)
}

// New creates an idle Controller.
func New(cfg Config, deps Deps) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Source == nil || deps.Renderer == nil || deps.Clock == nil {
		return nil, fmt.Errorf("playback: source, renderer and clock are required")
	}
	if deps.Foreground == nil || deps.Background == nil {
		return nil, fmt.Errorf("playback: foreground and background strategies are required")
	}
	if deps.Foreground == deps.Background {
		return nil, fmt.Errorf("playback: foreground and background strategies must differ")
	}

	if deps.Logger == nil {
		deps.Logger = nopLogger{}
	}
	logger := deps.Logger.WithComponent("controller")
	return &Controller{
		source:     deps.Source,
		renderer:   deps.Renderer,
		clock:      deps.Clock,
		foreground: deps.Foreground,
		background: deps.Background,
		logger:     logger,
		buffer:     NewFrameBuffer(deps.Logger),
		prefetch:   NewPrefetchPolicy(cfg.LowWaterMark, cfg.ChunkSize),
		reporter:   NewPositionReporter(deps.Sink, cfg.ThrottleWindow),
		speed:      cfg.Speed,
		targetRate: cfg.TargetRate,
		totalRows:  cfg.TotalRows,
		keepBehind: cfg.KeepBehind,
		lastInput:  Input{Speed: cfg.Speed},
	}, nil
}

// OnStateChange registers fn to be called after every state transition.
func (c *Controller) OnStateChange(fn func(State)) {
	c.listeners = append(c.listeners, fn)
}

// State returns a snapshot of the controller.
func (c *Controller) State() State {
	name := ""
	if c.active != nil {
		name = c.active.Name()
	}
	return State{
		Status:      c.status,
		Playhead:    c.playhead,
		Speed:       c.speed,
		TargetRate:  c.targetRate,
		TotalRows:   c.totalRows,
		Visibility:  c.visibility,
		Strategy:    name,
		BufferStart: c.buffer.StartRow(),
		BufferLen:   c.buffer.Len(),
		InFlight:    c.prefetch.InFlight(),
	}
}

// Stats returns the session counters.
func (c *Controller) Stats() Stats {
	s := c.stats
	s.Published = c.reporter.Published()
	return s
}

// Play starts or resumes playback at the current playhead.
func (c *Controller) Play() error {
	if c.status == StatusPlaying {
		return nil
	}
	c.start()
	return nil
}

// PlayFrom starts playback at row. While playing it behaves like Seek.
func (c *Controller) PlayFrom(row int) error {
	if row < 0 {
		return ErrInvalidRow
	}
	if c.status == StatusPlaying {
		return c.Seek(row)
	}
	c.playhead = row
	c.start()
	return nil
}

// Pause stops the strategy and keeps the session.
func (c *Controller) Pause() {
	if c.status != StatusPlaying {
		return
	}
	c.stopStrategy()
	c.status = StatusPaused
	c.logger.Debug("Paused at row %d", c.playhead)
	c.notify()
}

// Stop ends the session. The buffer is dropped and late deliveries are ignored.
func (c *Controller) Stop() {
	if c.status == StatusIdle {
		return
	}
	c.stopStrategy()
	c.status = StatusIdle
	c.epoch++
	c.prefetch.Settle()
	c.buffer.Clear()
	c.playhead = 0
	c.lastInput = Input{Speed: c.speed}
	c.logger.Debug("Stopped")
	c.notify()
}

// Seek moves the playhead. While playing, a gap at the new row is requested at once.
func (c *Controller) Seek(row int) error {
	if row < 0 {
		return ErrInvalidRow
	}
	c.playhead = row
	c.stats.Seeks++
	c.logger.Debug("Seek to row %d", row)
	if c.status == StatusPlaying {
		c.fillGap()
	}
	c.notify()
	return nil
}

// SetSpeed changes the speed multiplier. A running interval strategy is
// restarted with the new interval; a continuous one picks it up on its next refresh.
func (c *Controller) SetSpeed(speed float64) error {
	if !validPositive(speed) {
		return ErrInvalidSpeed
	}
	if speed == c.speed {
		return nil
	}
	c.speed = speed
	c.logger.Debug("Speed set to %.2fx", speed)
	c.repace()
	c.notify()
	return nil
}

// SetTargetRate changes the frames per second at speed 1.
func (c *Controller) SetTargetRate(rate float64) error {
	if !validPositive(rate) {
		return ErrInvalidRate
	}
	if rate == c.targetRate {
		return nil
	}
	c.targetRate = rate
	c.repace()
	return nil
}

// SetTotalRows changes the exclusive end of playable rows.
func (c *Controller) SetTotalRows(n int) error {
	if n < 0 {
		return ErrInvalidRow
	}
	c.totalRows = n
	return nil
}

// SetVisibility switches strategies while playing. The playhead, speed and
// buffer are left untouched.
func (c *Controller) SetVisibility(mode ports.VisibilityMode) {
	if mode == c.visibility {
		return
	}
	c.visibility = mode
	c.logger.Debug("Visibility changed to %s", mode)
	if c.status != StatusPlaying {
		return
	}
	c.stopStrategy()
	c.startStrategy()
	c.stats.StrategySwitches++
	c.notify()
}

// Apply diffs in against the previous Input and performs the implied transitions.
func (c *Controller) Apply(in Input) error {
	prev := c.lastInput
	c.lastInput = in

	if in.Speed != 0 && in.Speed != prev.Speed {
		if err := c.SetSpeed(in.Speed); err != nil {
			return err
		}
	}

	switch {
	case in.IsPlaying && c.status != StatusPlaying:
		if in.PlayStartRow != nil {
			return c.PlayFrom(*in.PlayStartRow)
		}
		return c.Play()
	case !in.IsPlaying && c.status == StatusPlaying:
		c.Pause()
	case in.IsPlaying && in.PlayStartRow != nil && !sameRow(prev.PlayStartRow, in.PlayStartRow):
		return c.Seek(*in.PlayStartRow)
	}
	return nil
}

// Preload ingests a delivery directly, without a request. It does not touch
// the in-flight flag.
func (c *Controller) Preload(d ports.ChunkDelivery) {
	c.ingest(d)
}

// OnTick advances playback by one frame. Strategies call it; tests may call
// it directly.
func (c *Controller) OnTick(now time.Time) {
	if c.status != StatusPlaying {
		return
	}

	if c.playhead >= c.totalRows {
		c.finish(now)
		return
	}

	frame, ok := c.buffer.Lookup(c.playhead)
	if !ok {
		c.stats.Stalls++
		c.logger.Debug("Row %d not buffered, waiting for data", c.playhead)
		c.fillGap()
		return
	}

	if len(frame) > 0 {
		c.render(c.playhead, frame)
		c.reporter.Report(c.playhead, now)
	}

	if req, ok := c.prefetch.ShouldPrefetch(c.buffer, c.playhead, c.totalRows); ok {
		c.fetch(req)
	}

	c.playhead++
}

func (c *Controller) start() {
	if c.stats.StartedAt.IsZero() {
		c.stats.StartedAt = c.clock.Now()
	}
	c.status = StatusPlaying
	c.logger.Debug("Playing from row %d at %.2fx", c.playhead, c.speed)
	c.fillGap()
	c.startStrategy()
	c.notify()
}

func (c *Controller) finish(now time.Time) {
	c.stopStrategy()
	c.status = StatusPaused
	c.stats.FinishedAt = c.clock.Now()
	c.reporter.Flush(c.playhead, now)
	c.logger.Info("Reached end of data at row %d", c.playhead)
	c.notify()
}

func (c *Controller) pace() time.Duration {
	return TickInterval(c.targetRate, c.speed)
}

func (c *Controller) selectStrategy() Strategy {
	if c.visibility == ports.Background {
		return c.background
	}
	return c.foreground
}

func (c *Controller) startStrategy() {
	c.active = c.selectStrategy()
	c.active.Start(c.pace, c.OnTick)
}

func (c *Controller) stopStrategy() {
	if c.active != nil {
		c.active.Stop()
	}
}

func (c *Controller) repace() {
	if c.status != StatusPlaying || c.active == nil || c.active.AdaptsToPace() {
		return
	}
	c.active.Stop()
	c.active.Start(c.pace, c.OnTick)
}

func (c *Controller) fillGap() {
	if req, ok := c.prefetch.FillGap(c.buffer, c.playhead); ok {
		c.fetch(req)
	}
}

func (c *Controller) fetch(req ports.ChunkRequest) {
	c.stats.Requests++
	if req.Reset {
		c.stats.ResetRequests++
	}
	c.logger.Debug("Requesting %d rows from row %d (reset=%t)", req.Count, req.StartRow, req.Reset)

	epoch := c.epoch
	c.source.Fetch(req, func(d ports.ChunkDelivery, err error) {
		c.settle(epoch, req, d, err)
	})
}

func (c *Controller) settle(epoch uint64, req ports.ChunkRequest, d ports.ChunkDelivery, err error) {
	if epoch != c.epoch {
		c.stats.DroppedDeliveries++
		c.logger.Debug("Dropping delivery for row %d from an ended session", req.StartRow)
		return
	}
	c.prefetch.Settle()
	if err != nil {
		c.stats.FetchErrors++
		c.logger.Warn("Fetching rows from %d failed: %v", req.StartRow, err)
		return
	}
	c.ingest(d)
}

func (c *Controller) ingest(d ports.ChunkDelivery) {
	switch c.buffer.Ingest(d) {
	case IngestIgnored:
		c.stats.EmptyDeliveries++
	case IngestReset:
		c.stats.Resets++
	case IngestAppend:
		c.stats.Appends++
		if c.keepBehind > 0 {
			c.buffer.DiscardBefore(c.playhead - c.keepBehind)
		}
	case IngestMismatch:
		c.stats.Mismatches++
	}
}

func (c *Controller) render(row int, frame ports.Frame) {
	defer func() {
		if r := recover(); r != nil {
			c.stats.RenderFailures++
			c.logger.Error("Renderer panicked at row %d: %v", row, r)
		}
	}()
	if err := c.renderer.Render(row, frame); err != nil {
		c.stats.RenderFailures++
		c.logger.Error("Rendering row %d failed: %v", row, err)
		return
	}
	c.stats.FramesRendered++
}

func (c *Controller) notify() {
	if len(c.listeners) == 0 {
		return
	}
	s := c.State()
	for _, fn := range c.listeners {
		fn(s)
	}
}

func sameRow(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
