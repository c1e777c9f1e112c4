// Package orchestrator answers chunk requests by chaining the load and
// extract stages over cached recordings.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/user/tapeplay/pkg/pipeline"
	"github.com/user/tapeplay/pkg/ports"
)

var (
	// ErrFileNotFound is returned when a recording does not exist.
	ErrFileNotFound = errors.New("recording not found")
	// ErrRowOutOfRange is returned for negative start rows.
	ErrRowOutOfRange = errors.New("row out of range")
)

// DefaultChunkSize is used when a request does not name a count.
const DefaultChunkSize = 500

// Config contains the orchestrator settings.
type Config struct {
	DataDir   string
	ChunkSize int // Rows per chunk when a request has no count (default: 500)
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		DataDir:   "files",
		ChunkSize: DefaultChunkSize,
	}
}

// Orchestrator serves recordings. Loaded tables are cached per name.
// It is safe for concurrent use.
type Orchestrator struct {
	loadStage    pipeline.Stage[pipeline.LoadInput, pipeline.LoadResult]
	extractStage pipeline.Stage[pipeline.ExtractInput, pipeline.ExtractResult]
	fs           ports.FileSystem
	logger       ports.Logger
	config       Config

	mu     sync.Mutex
	tables map[string]*pipeline.Table
}

// New creates a new Orchestrator.
func New(
	loadStage pipeline.Stage[pipeline.LoadInput, pipeline.LoadResult],
	extractStage pipeline.Stage[pipeline.ExtractInput, pipeline.ExtractResult],
	fs ports.FileSystem,
	logger ports.Logger,
	config Config,
) *Orchestrator {
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultChunkSize
	}
	return &Orchestrator{
		loadStage:    loadStage,
		extractStage: extractStage,
		fs:           fs,
		logger:       logger.WithComponent("orchestrator"),
		config:       config,
		tables:       make(map[string]*pipeline.Table),
	}
}

// Files lists the CSV recordings in the data directory.
func (o *Orchestrator) Files(ctx context.Context) ([]string, error) {
	names, err := o.fs.Glob(o.config.DataDir, "*.csv")
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// Info describes a recording.
func (o *Orchestrator) Info(ctx context.Context, name string) (ports.FileInfo, error) {
	table, err := o.Table(ctx, name)
	if err != nil {
		return ports.FileInfo{}, err
	}
	return table.Info(), nil
}

// Chunk extracts the frames of req from a recording. Rows past the end are
// truncated; a start at or past the end yields an empty delivery.
func (o *Orchestrator) Chunk(ctx context.Context, name string, req ports.ChunkRequest) (ports.ChunkDelivery, error) {
	if req.StartRow < 0 {
		return ports.ChunkDelivery{}, fmt.Errorf("%w: start %d", ErrRowOutOfRange, req.StartRow)
	}
	if req.Count <= 0 {
		req.Count = o.config.ChunkSize
	}

	table, err := o.Table(ctx, name)
	if err != nil {
		return ports.ChunkDelivery{}, err
	}

	result, err := o.extractStage.Execute(ctx, pipeline.ExtractInput{
		Table:    table,
		StartRow: req.StartRow,
		Count:    req.Count,
	})
	if err != nil {
		o.logger.Error("Failed to extract rows from %s: %s", name, err)
		return ports.ChunkDelivery{}, fmt.Errorf("extract stage: %w", err)
	}
	o.logger.Debug("Serving %d frames of %s from row %d", len(result.Frames), name, req.StartRow)
	return ports.ChunkDelivery{Frames: result.Frames, Echo: req}, nil
}

// Table returns the cached table of a recording, loading it on first use.
// Loads are serialized so a recording is read once.
func (o *Orchestrator) Table(ctx context.Context, name string) (*pipeline.Table, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if t, ok := o.tables[name]; ok {
		return t, nil
	}

	exists, err := o.fs.Exists(filepath.Join(o.config.DataDir, filepath.Base(name)))
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", name, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}

	result, err := o.loadStage.Execute(ctx, pipeline.LoadInput{Dir: o.config.DataDir, Name: name})
	if err != nil {
		o.logger.Error("Failed to load %s: %s", name, err)
		return nil, fmt.Errorf("load stage: %w", err)
	}
	o.tables[name] = result.Table
	o.logger.Info("Loaded %s: %d rows, %d columns", name, result.Table.Len(), len(result.Table.Columns))
	return result.Table, nil
}

// Forget drops a cached table so the next request reloads it.
func (o *Orchestrator) Forget(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.tables, name)
}

var _ ports.Catalog = (*Orchestrator)(nil)
