package pipeline

import (
	"strconv"
	"strings"

	"github.com/user/tapeplay/pkg/ports"
)

// =============================================================================
// Table
// =============================================================================

// Table is a recording loaded into memory: a header and one record per row.
type Table struct {
	Name    string
	Columns []string
	Records [][]string
	index   map[string]int
}

// NewTable creates a Table and indexes its columns. The first occurrence of
// a duplicated column name wins.
func NewTable(name string, columns []string, records [][]string) *Table {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		c = strings.TrimSpace(c)
		if _, dup := index[c]; !dup {
			index[c] = i
		}
	}
	return &Table{Name: name, Columns: columns, Records: records, index: index}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Records)
}

// ColumnIndex returns the position of a column.
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// Row returns a view of row i. i must be in [0, Len()).
func (t *Table) Row(i int) RowView {
	return RowView{table: t, record: t.Records[i]}
}

// Info summarizes the table for the file listing.
func (t *Table) Info() ports.FileInfo {
	info := ports.FileInfo{
		Name:      t.Name,
		Rows:      t.Len(),
		Columns:   len(t.Columns),
		TimeStart: "N/A",
		TimeEnd:   "N/A",
	}
	if t.Len() == 0 {
		return info
	}
	if v, ok := t.Row(0).String("timestamp_et"); ok {
		info.TimeStart = v
	}
	if v, ok := t.Row(t.Len() - 1).String("timestamp_et"); ok {
		info.TimeEnd = v
	}
	return info
}

// RowView reads cells of one row by column name.
type RowView struct {
	table  *Table
	record []string
}

// String returns the raw cell. Short records report missing cells.
func (r RowView) String(column string) (string, bool) {
	i, ok := r.table.index[column]
	if !ok || i >= len(r.record) {
		return "", false
	}
	return r.record[i], true
}

// Float parses the cell as a float. Empty and unparsable cells are missing.
func (r RowView) Float(column string) (float64, bool) {
	s, ok := r.String(column)
	if !ok {
		return 0, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// =============================================================================
// Load Stage Types
// =============================================================================

// LoadInput names the recording to load.
type LoadInput struct {
	Dir  string // Data directory
	Name string // File name inside Dir, e.g. "btc-2024-11-05.csv"
}

// LoadResult contains the loaded table.
type LoadResult struct {
	Table *Table
}

// =============================================================================
// Extract Stage Types
// =============================================================================

// ExtractInput selects the rows to turn into frames.
type ExtractInput struct {
	Table    *Table
	StartRow int
	Count    int
}

// ExtractResult contains one frame per extracted row, in row order.
// Rows past the end of the table are not extracted.
type ExtractResult struct {
	Frames []ports.Frame
}
