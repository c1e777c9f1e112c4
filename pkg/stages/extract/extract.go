// Package extract implements the order-book frame extraction stage.
package extract

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/user/tapeplay/pkg/orderbook"
	"github.com/user/tapeplay/pkg/pipeline"
	"github.com/user/tapeplay/pkg/ports"
)

// parallelThreshold is the row count below which extraction stays on the
// calling goroutine.
const parallelThreshold = 64

// Stage turns table rows into encoded order-book frames.
type Stage struct {
	logger     ports.Logger
	numWorkers int
}

// NewStage creates a new extract stage.
func NewStage(logger ports.Logger, numWorkers int) *Stage {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &Stage{
		logger:     logger.WithComponent("extract"),
		numWorkers: numWorkers,
	}
}

// Execute extracts rows [StartRow, StartRow+Count) clipped to the table.
func (s *Stage) Execute(ctx context.Context, input pipeline.ExtractInput) (pipeline.ExtractResult, error) {
	if input.Table == nil {
		return pipeline.ExtractResult{}, fmt.Errorf("extract: no table")
	}
	start, end := clip(input.StartRow, input.Count, input.Table.Len())
	if start >= end {
		return pipeline.ExtractResult{Frames: []ports.Frame{}}, nil
	}

	frames := make([]ports.Frame, end-start)
	if end-start < parallelThreshold || s.numWorkers == 1 {
		for row := start; row < end; row++ {
			frame, err := s.extractRow(input.Table, row)
			if err != nil {
				return pipeline.ExtractResult{}, err
			}
			frames[row-start] = frame
		}
		return pipeline.ExtractResult{Frames: frames}, nil
	}

	s.logger.Debug("Extracting rows %d to %d with %d workers", start, end, s.numWorkers)
	if err := s.executeParallel(ctx, input.Table, start, frames); err != nil {
		return pipeline.ExtractResult{}, err
	}
	return pipeline.ExtractResult{Frames: frames}, nil
}

// executeParallel fills frames using a worker pool. Each worker writes its
// own slots, so results stay in row order without sorting.
func (s *Stage) executeParallel(ctx context.Context, table *pipeline.Table, start int, frames []ports.Frame) error {
	jobs := make(chan int, len(frames))
	errChan := make(chan error, s.numWorkers)

	var wg sync.WaitGroup
	for w := 0; w < s.numWorkers; w++ {
		wg.Add(1)
		go s.worker(ctx, &wg, table, start, frames, jobs, errChan)
	}

	for i := range frames {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	close(errChan)

	if err := <-errChan; err != nil {
		return err
	}
	return ctx.Err()
}

func (s *Stage) worker(
	ctx context.Context,
	wg *sync.WaitGroup,
	table *pipeline.Table,
	start int,
	frames []ports.Frame,
	jobs <-chan int,
	errChan chan<- error,
) {
	defer wg.Done()

	for i := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frame, err := s.extractRow(table, start+i)
		if err != nil {
			select {
			case errChan <- err:
			default:
			}
			return
		}
		frames[i] = frame
	}
}

func (s *Stage) extractRow(table *pipeline.Table, row int) (ports.Frame, error) {
	frame, err := orderbook.Encode(orderbook.Build(row, table.Row(row)))
	if err != nil {
		return nil, fmt.Errorf("extract row %d: %w", row, err)
	}
	return frame, nil
}

func clip(start, count, total int) (int, int) {
	if start < 0 {
		start = 0
	}
	if count < 0 {
		count = 0
	}
	end := start + count
	if end > total {
		end = total
	}
	return start, end
}
