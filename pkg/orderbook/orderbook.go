// Package orderbook builds per-row order-book snapshots from recorded market
// data. A snapshot is what the server sends as one frame.
package orderbook

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/user/tapeplay/pkg/ports"
)

// Levels is the depth recorded per side.
const Levels = 5

// Pressure labels.
const (
	Buyers  = "BUYERS"
	Sellers = "SELLERS"
)

// Row exposes one recorded row by column name.
// Float reports false for missing columns and empty or unparsable cells.
type Row interface {
	Float(column string) (float64, bool)
	String(column string) (string, bool)
}

// Level is one price level. Missing values encode as null.
type Level struct {
	Price     *float64 `json:"price"`
	Size      *float64 `json:"size"`
	Anomalous bool     `json:"anomalous,omitempty"`
}

// Book is one side of the market (UP or DOWN outcome).
type Book struct {
	Bids     []Level `json:"bids"`
	Asks     []Level `json:"asks"`
	BidTotal float64 `json:"bid_total"`
	AskTotal float64 `json:"ask_total"`
	Pressure string  `json:"pressure"`
}

// Markers are the reference prices plotted next to the books.
type Markers struct {
	BinancePrice *float64 `json:"binance_btc_price"`
	OraclePrice  *float64 `json:"oracle_btc_price"`
	Lag          *float64 `json:"lag"`
	UpBestAsk    *float64 `json:"up_best_ask"`
	DownBestAsk  *float64 `json:"down_best_ask"`
}

// Snapshot is the decoded content of one frame.
type Snapshot struct {
	Row       int    `json:"row_idx"`
	Timestamp string `json:"timestamp"`
	Up        Book   `json:"up"`
	Down      Book   `json:"down"`
	// AnomalyThreshold is nil when no level has a positive size.
	AnomalyThreshold *float64 `json:"anomaly_threshold"`
	Markers          Markers  `json:"markers"`
}

// Build extracts the snapshot of row idx.
func Build(idx int, row Row) Snapshot {
	s := Snapshot{
		Row:       idx,
		Timestamp: timestamp(row),
		Up:        readBook(row, "up"),
		Down:      readBook(row, "down"),
	}

	var sizes []float64
	for _, b := range []*Book{&s.Up, &s.Down} {
		sizes = append(sizes, sizesOf(b.Bids)...)
		sizes = append(sizes, sizesOf(b.Asks)...)
	}
	threshold := AnomalyThreshold(sizes)
	if !math.IsInf(threshold, 1) {
		s.AnomalyThreshold = &threshold
	}

	for _, b := range []*Book{&s.Up, &s.Down} {
		markAnomalies(b.Bids, threshold)
		markAnomalies(b.Asks, threshold)
		b.Pressure, b.BidTotal, b.AskTotal = Pressure(sizesOf(b.Bids), sizesOf(b.Asks))
	}

	s.Markers = Markers{
		BinancePrice: optional(row, "binance_btc_price"),
		OraclePrice:  optional(row, "oracle_btc_price"),
		Lag:          optional(row, "lag"),
		UpBestAsk:    s.Up.Asks[0].Price,
		DownBestAsk:  s.Down.Asks[0].Price,
	}
	return s
}

// AnomalyThreshold returns twice the mean of the positive sizes, or +Inf
// when there are none. NaN entries are skipped.
func AnomalyThreshold(sizes []float64) float64 {
	var sum float64
	n := 0
	for _, v := range sizes {
		if math.IsNaN(v) || v <= 0 {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.Inf(1)
	}
	return sum / float64(n) * 2
}

// Pressure compares bid and ask totals. Ties go to sellers.
func Pressure(bids, asks []float64) (label string, bidTotal, askTotal float64) {
	bidTotal = total(bids)
	askTotal = total(asks)
	if bidTotal > askTotal {
		return Buyers, bidTotal, askTotal
	}
	return Sellers, bidTotal, askTotal
}

// Encode marshals s into a frame.
func Encode(s Snapshot) (ports.Frame, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot for row %d: %w", s.Row, err)
	}
	return ports.Frame(data), nil
}

// Decode parses a frame produced by Encode.
func Decode(frame ports.Frame) (Snapshot, error) {
	var s Snapshot
	if len(frame) == 0 {
		return s, fmt.Errorf("empty frame")
	}
	if err := json.Unmarshal(frame, &s); err != nil {
		return s, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return s, nil
}

// Column returns the CSV column name of a level field,
// e.g. Column("up", "bid", 1, "price") is "up_bid_1_price".
func Column(book, side string, level int, field string) string {
	return fmt.Sprintf("%s_%s_%d_%s", book, side, level, field)
}

func readBook(row Row, book string) Book {
	return Book{
		Bids: readLevels(row, book, "bid"),
		Asks: readLevels(row, book, "ask"),
	}
}

func readLevels(row Row, book, side string) []Level {
	levels := make([]Level, Levels)
	for i := range levels {
		levels[i] = Level{
			Price: optional(row, Column(book, side, i+1, "price")),
			Size:  optional(row, Column(book, side, i+1, "size")),
		}
	}
	return levels
}

func timestamp(row Row) string {
	for _, col := range []string{"timestamp_et", "timestamp_ms"} {
		if v, ok := row.String(col); ok && v != "" {
			return v
		}
	}
	return "N/A"
}

func markAnomalies(levels []Level, threshold float64) {
	for i := range levels {
		if levels[i].Size != nil && *levels[i].Size > threshold {
			levels[i].Anomalous = true
		}
	}
}

// sizesOf returns level sizes with NaN for missing values.
func sizesOf(levels []Level) []float64 {
	out := make([]float64, len(levels))
	for i, l := range levels {
		if l.Size == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *l.Size
	}
	return out
}

func total(values []float64) float64 {
	var sum float64
	for _, v := range values {
		if !math.IsNaN(v) {
			sum += v
		}
	}
	return sum
}

func optional(row Row, column string) *float64 {
	v, ok := row.Float(column)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
