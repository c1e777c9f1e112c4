// Package main provides the CLI entry point for tapeplay.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/go-chi/chi/v5"
	"github.com/ideamans/go-l10n"

	"github.com/user/tapeplay/pkg/adapters/filesink"
	"github.com/user/tapeplay/pkg/adapters/ggrenderer"
	"github.com/user/tapeplay/pkg/adapters/httpsource"
	"github.com/user/tapeplay/pkg/adapters/logger"
	"github.com/user/tapeplay/pkg/adapters/nullsink"
	"github.com/user/tapeplay/pkg/adapters/osfilesystem"
	"github.com/user/tapeplay/pkg/adapters/realclock"
	"github.com/user/tapeplay/pkg/adapters/textrenderer"
	"github.com/user/tapeplay/pkg/adapters/wshub"
	"github.com/user/tapeplay/pkg/config"
	"github.com/user/tapeplay/pkg/orchestrator"
	"github.com/user/tapeplay/pkg/playback"
	"github.com/user/tapeplay/pkg/ports"
	"github.com/user/tapeplay/pkg/server"
	"github.com/user/tapeplay/pkg/stages/extract"
	"github.com/user/tapeplay/pkg/stages/load"
	"github.com/user/tapeplay/pkg/summarizer"
	"github.com/user/tapeplay/pkg/tapeplay"
)

// Globals are flags shared by every subcommand.
type Globals struct {
	Config   string `short:"c" type:"path" help:"${help_config}"`
	LogLevel string `short:"l" default:"" enum:",debug,info,warn,error" help:"${help_log_level}"`
	Quiet    bool   `short:"Q" help:"${help_quiet}"`
}

// CLI defines the command-line interface with subcommands.
type CLI struct {
	Globals

	Serve   ServeCmd   `cmd:"" help:"${help_serve}"`
	Play    PlayCmd    `cmd:"" help:"${help_play}"`
	Files   FilesCmd   `cmd:"" help:"${help_files}"`
	Version VersionCmd `cmd:"" help:"${help_version}"`
}

// ServeCmd defines the serve subcommand.
type ServeCmd struct {
	DataDir   *string `short:"d" type:"path" help:"${help_data_dir}"`
	Addr      *string `short:"a" help:"${help_addr}"`
	ChunkSize *int    `help:"${help_server_chunk}"`
	Workers   *int    `short:"w" help:"${help_workers}"`
}

// PlayCmd defines the play subcommand.
type PlayCmd struct {
	File string `arg:"" help:"${help_file}"`

	// Source
	Server string `short:"s" default:"http://localhost:8050" help:"${help_server}"`
	Local  string `type:"path" help:"${help_local}"`

	// Preset
	Preset string `short:"p" default:"realtime" enum:"realtime,replay" help:"${help_preset}"`

	// Pacing
	Speed      *float64 `short:"x" help:"${help_speed}"`
	FPS        *float64 `short:"f" help:"${help_fps}"`
	Start      *int     `help:"${help_start}"`
	ChunkSize  *int     `help:"${help_chunk}"`
	KeepBehind *int     `help:"${help_keep_behind}"`
	Background bool     `short:"b" help:"${help_background}"`

	// Output
	Render    string `short:"r" default:"" enum:",text,png,json,none" help:"${help_render}"`
	RenderDir string `type:"path" help:"${help_render_dir}"`
	Block     bool   `help:"${help_block}"`
	WSAddr    string `help:"${help_ws_addr}"`
	Summary   string `type:"path" help:"${help_summary}"`
}

// FilesCmd defines the files subcommand.
type FilesCmd struct {
	Server string `short:"s" default:"http://localhost:8050" help:"${help_server}"`
	Local  string `type:"path" help:"${help_local}"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

var version = "dev"

func main() {
	cli := CLI{}

	ctx := kong.Parse(&cli,
		kong.Name("tapeplay"),
		kong.Description(l10n.T("Play back recorded order books at a steady frame rate.")),
		kong.UsageOnError(),
		helpVars(),
	)

	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}

// load reads the config file, if any, and applies the logging flags.
func (g *Globals) load() (config.Config, ports.Logger, error) {
	cfg := config.Defaults()
	if g.Config != "" {
		var err error
		if cfg, err = config.LoadFromFile(g.Config); err != nil {
			return cfg, nil, fmt.Errorf("load config: %w", err)
		}
	}
	if g.LogLevel != "" {
		cfg.LogLevel = ports.ParseLogLevel(g.LogLevel)
	}

	var log ports.Logger
	if g.Quiet {
		log = logger.NewNoop()
	} else {
		log = logger.NewConsole(cfg.LogLevel)
	}
	return cfg, log, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(log ports.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Interrupted, shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func newOrchestrator(cfg config.Config, log ports.Logger) *orchestrator.Orchestrator {
	fs := osfilesystem.New()
	return orchestrator.New(
		load.NewStage(fs, log),
		extract.NewStage(log, cfg.Server.Workers),
		fs,
		log,
		cfg.ToOrchestratorConfig(),
	)
}

// Run executes the serve command.
func (cmd *ServeCmd) Run(g *Globals) error {
	cfg, log, err := g.load()
	if err != nil {
		return err
	}
	if cmd.DataDir != nil {
		cfg.Server.DataDir = *cmd.DataDir
	}
	if cmd.Addr != nil {
		cfg.Server.Addr = *cmd.Addr
	}
	if cmd.ChunkSize != nil {
		cfg.Server.ChunkSize = *cmd.ChunkSize
	}
	if cmd.Workers != nil {
		cfg.Server.Workers = *cmd.Workers
	}

	ctx, cancel := signalContext(log)
	defer cancel()

	hub := wshub.New(log, ports.Foreground)
	defer hub.Close()

	srv := server.New(cfg.ToServerConfig(), newOrchestrator(cfg, log), hub, log)
	return srv.ListenAndServe(ctx)
}

// Run executes the play command.
func (cmd *PlayCmd) Run(g *Globals) error {
	fileCfg, log, err := g.load()
	if err != nil {
		return err
	}
	cfg := cmd.buildConfig(g, fileCfg)

	ctx, cancel := signalContext(log)
	defer cancel()

	loop := playback.NewLoop(0)
	fs := osfilesystem.New()

	deps := tapeplay.Deps{
		Clock:  realclock.New(loop, cfg.RefreshHz),
		Logger: log,
		File:   cmd.File,
	}

	// Source
	sourceDesc := cmd.Server
	if cmd.Local != "" {
		fileCfg.Server.DataDir = cmd.Local
		orch := newOrchestrator(fileCfg, log)
		deps.Source = orchestrator.NewLocalSource(ctx, orch, cmd.File, loop)
		deps.Catalog = orch
		sourceDesc = cmd.Local
	} else {
		client, err := httpsource.NewClient(cmd.Server)
		if err != nil {
			return err
		}
		src := httpsource.NewSource(client, cmd.File, loop, log)
		defer src.Close()
		deps.Source = src
		deps.Catalog = client
	}

	// Renderer
	var sinks fanout
	mode := fileCfg.Render.Mode
	if cmd.Render != "" {
		mode = cmd.Render
	}
	renderDir := fileCfg.Render.Dir
	if cmd.RenderDir != "" {
		renderDir = cmd.RenderDir
	}
	switch mode {
	case config.RenderPNG:
		if err := fs.MkdirAll(renderDir); err != nil {
			return fmt.Errorf("create render directory: %w", err)
		}
		deps.Renderer = ggrenderer.New(fs, renderDir, fileCfg.ToRenderOptions())
	case config.RenderJSON:
		dump := filesink.New(renderDir, fs)
		defer func() {
			if err := dump.Close(); err != nil {
				log.Error("Failed to write frame dump: %v", err)
			}
		}()
		deps.Renderer = dump
		sinks = append(sinks, dump)
	case config.RenderNone:
		deps.Renderer = nullsink.New()
	default:
		deps.Renderer = textrenderer.New(os.Stdout, !cmd.Block && fileCfg.Render.Compact)
	}

	// Viewers
	if cmd.WSAddr != "" {
		idle := ports.Foreground
		if cfg.Background {
			idle = ports.Background
		}
		hub := wshub.New(log, idle)
		defer hub.Close()
		stop := serveHub(cmd.WSAddr, hub, log)
		defer stop()

		sinks = append(sinks, hub)
		deps.Visibility = hub
	}
	deps.Sink = sinks

	session, err := tapeplay.NewSession(cfg, loop, deps)
	if err != nil {
		return err
	}

	runErr := session.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}

	return cmd.summarize(g, session, cfg, sourceDesc, fs, log)
}

// buildConfig creates a session Config from preset, file and CLI overrides.
func (cmd *PlayCmd) buildConfig(g *Globals, fileCfg config.Config) tapeplay.Config {
	var builder *tapeplay.ConfigBuilder
	switch {
	case g.Config != "":
		builder = tapeplay.NewConfigBuilderFrom(fileCfg.ToSessionConfig())
	case cmd.Preset == "replay":
		builder = tapeplay.NewReplayConfigBuilder()
	default:
		builder = tapeplay.NewConfigBuilder()
	}

	if cmd.Speed != nil {
		builder.WithSpeed(*cmd.Speed)
	}
	if cmd.FPS != nil {
		builder.WithTargetRate(*cmd.FPS)
	}
	if cmd.Start != nil {
		builder.WithStartRow(*cmd.Start)
	}
	if cmd.ChunkSize != nil {
		builder.WithChunkSize(*cmd.ChunkSize)
	}
	if cmd.KeepBehind != nil {
		builder.WithKeepBehind(*cmd.KeepBehind)
	}
	if cmd.Background {
		builder.WithBackground(true)
	}

	return builder.Build()
}

func (cmd *PlayCmd) summarize(g *Globals, session *tapeplay.Session, cfg tapeplay.Config, source string, fs ports.FileSystem, log ports.Logger) error {
	st, stats := session.Result()
	summary := summarizer.NewBuilder().
		WithSession(session.ID(), cmd.File, source).
		WithSettings(summarizer.Settings{
			TargetRate:   cfg.TargetRate,
			Speed:        cfg.Speed,
			ChunkSize:    cfg.ChunkSize,
			LowWaterMark: cfg.LowWaterMark,
			ThrottleMs:   cfg.ThrottleMs,
			Background:   cfg.Background,
		}).
		WithState(cfg.StartRow, st).
		WithStats(stats).
		Build()

	if !g.Quiet {
		fmt.Print(summarizer.NewTextFormatter(summarizer.WithTranslator(translate)).Format(summary))
	}

	if cmd.Summary != "" {
		w := summarizer.NewWriter(summarizer.NewMarkdownFormatter(
			summarizer.WithTranslator(translate),
			summarizer.WithVersion(version),
		), fs)
		if err := w.Write(cmd.Summary, summary); err != nil {
			log.Error("Failed to write summary: %s", err)
			return err
		}
		log.Info("Summary saved to %s", cmd.Summary)
	}
	return nil
}

// serveHub exposes the hub at /ws on addr and returns a function that stops it.
func serveHub(addr string, hub *wshub.Hub, log ports.Logger) func() {
	router := chi.NewRouter()
	router.Handle("/ws", hub)

	srv := &http.Server{Addr: addr, Handler: router}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Viewer hub stopped: %v", err)
		}
	}()
	log.Info("Viewers can connect to %s", "ws://"+addr+"/ws")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

// Run executes the files command.
func (cmd *FilesCmd) Run(g *Globals) error {
	cfg, log, err := g.load()
	if err != nil {
		return err
	}

	var catalog ports.Catalog
	if cmd.Local != "" {
		cfg.Server.DataDir = cmd.Local
		catalog = newOrchestrator(cfg, log)
	} else {
		client, err := httpsource.NewClient(cmd.Server)
		if err != nil {
			return err
		}
		catalog = client
	}

	ctx, cancel := signalContext(log)
	defer cancel()

	names, err := catalog.Files(ctx)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println(l10n.T("No recordings found."))
		return nil
	}
	for _, name := range names {
		info, err := catalog.Info(ctx, name)
		if err != nil {
			fmt.Printf("%s\t%s\n", name, err)
			continue
		}
		fmt.Println(l10n.F("%s\t%d rows\t%s → %s", info.Name, info.Rows, info.TimeStart, info.TimeEnd))
	}
	return nil
}

// Run executes the version command.
func (cmd *VersionCmd) Run() error {
	fmt.Println(l10n.F("tapeplay version %s", version))
	return nil
}

func translate(s string) string { return l10n.T(s) }

// fanout forwards positions and states to several sinks.
type fanout []ports.PositionSink

func (f fanout) Publish(row int) {
	for _, s := range f {
		s.Publish(row)
	}
}

func (f fanout) PublishState(update ports.StateUpdate) {
	for _, s := range f {
		if states, ok := s.(ports.StateSink); ok {
			states.PublishState(update)
		}
	}
}
