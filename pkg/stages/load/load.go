// Package load implements the recording load stage.
package load

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/user/tapeplay/pkg/pipeline"
	"github.com/user/tapeplay/pkg/ports"
)

// ErrInvalidName is returned for names that are not plain CSV file names.
var ErrInvalidName = errors.New("invalid recording name")

// Stage reads a CSV recording through a FileSystem.
type Stage struct {
	fs     ports.FileSystem
	logger ports.Logger
}

// NewStage creates a new load stage.
func NewStage(fs ports.FileSystem, logger ports.Logger) *Stage {
	return &Stage{
		fs:     fs,
		logger: logger.WithComponent("load"),
	}
}

// Execute loads input.Name from input.Dir.
func (s *Stage) Execute(ctx context.Context, input pipeline.LoadInput) (pipeline.LoadResult, error) {
	if err := ValidateName(input.Name); err != nil {
		return pipeline.LoadResult{}, err
	}

	path := filepath.Join(input.Dir, input.Name)
	s.logger.Debug("Reading %s", path)
	data, err := s.fs.ReadFile(path)
	if err != nil {
		return pipeline.LoadResult{}, fmt.Errorf("read %s: %w", input.Name, err)
	}

	table, err := Parse(ctx, input.Name, data)
	if err != nil {
		return pipeline.LoadResult{}, err
	}
	s.logger.Debug("Loaded %d rows and %d columns from %s", table.Len(), len(table.Columns), input.Name)
	return pipeline.LoadResult{Table: table}, nil
}

// ValidateName accepts base names ending in .csv.
func ValidateName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if !strings.EqualFold(filepath.Ext(name), ".csv") {
		return fmt.Errorf("%w: %q is not a .csv file", ErrInvalidName, name)
	}
	return nil
}

// Parse reads CSV data with a header row. Records may be shorter or longer
// than the header; cells beyond the header are ignored by lookups.
func Parse(ctx context.Context, name string, data []byte) (*pipeline.Table, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	r.ReuseRecord = false

	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("parse %s: missing header", name)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	var records [][]string
	for {
		if len(records)%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		records = append(records, rec)
	}
	return pipeline.NewTable(name, header, records), nil
}
