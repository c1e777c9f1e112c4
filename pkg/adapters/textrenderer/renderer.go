// Package textrenderer prints order-book frames as text.
package textrenderer

import (
	"fmt"
	"io"
	"strings"

	"github.com/user/tapeplay/pkg/orderbook"
	"github.com/user/tapeplay/pkg/ports"
)

// Renderer implements ports.Renderer by writing to an io.Writer.
// In compact mode each frame is a single line with the best levels; otherwise
// both books are printed level by level.
type Renderer struct {
	w       io.Writer
	compact bool
}

// New creates a Renderer.
func New(w io.Writer, compact bool) *Renderer {
	return &Renderer{w: w, compact: compact}
}

// Render implements ports.Renderer.
func (r *Renderer) Render(row int, frame ports.Frame) error {
	snap, err := orderbook.Decode(frame)
	if err != nil {
		return err
	}
	var text string
	if r.compact {
		text = Line(snap) + "\n"
	} else {
		text = Block(snap)
	}
	_, err = io.WriteString(r.w, text)
	return err
}

// Line formats the best bid and ask of each book on one line.
func Line(s orderbook.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %s", s.Row, s.Timestamp)
	for _, side := range []struct {
		name string
		book orderbook.Book
	}{{"UP", s.Up}, {"DOWN", s.Down}} {
		fmt.Fprintf(&b, " | %s %s %s %s / %s %s", side.name, side.book.Pressure,
			orderbook.FormatPrice(best(side.book.Bids).Price), orderbook.FormatSize(best(side.book.Bids).Size),
			orderbook.FormatPrice(best(side.book.Asks).Price), orderbook.FormatSize(best(side.book.Asks).Size))
	}
	if s.Markers.Lag != nil {
		fmt.Fprintf(&b, " | lag %.3f", *s.Markers.Lag)
	}
	return b.String()
}

// Block formats both books with every level, asks above bids.
// Anomalous levels are marked with '!'.
func Block(s orderbook.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "row %d  %s\n", s.Row, s.Timestamp)
	for _, side := range []struct {
		name string
		book orderbook.Book
	}{{"UP", s.Up}, {"DOWN", s.Down}} {
		fmt.Fprintf(&b, "  %s  %s (bid %s / ask %s)\n", side.name, side.book.Pressure,
			orderbook.FormatAmount(side.book.BidTotal), orderbook.FormatAmount(side.book.AskTotal))
		for i := len(side.book.Asks) - 1; i >= 0; i-- {
			writeLevel(&b, "ask", side.book.Asks[i])
		}
		for _, l := range side.book.Bids {
			writeLevel(&b, "bid", l)
		}
	}
	if m := s.Markers; m.BinancePrice != nil || m.OraclePrice != nil {
		fmt.Fprintf(&b, "  binance %s  oracle %s\n", orderbook.FormatPrice(m.BinancePrice), orderbook.FormatPrice(m.OraclePrice))
	}
	return b.String()
}

func writeLevel(b *strings.Builder, kind string, l orderbook.Level) {
	flag := " "
	if l.Anomalous {
		flag = "!"
	}
	fmt.Fprintf(b, "    %s %s %8s %12s\n", flag, kind, orderbook.FormatPrice(l.Price), orderbook.FormatSize(l.Size))
}

func best(levels []orderbook.Level) orderbook.Level {
	if len(levels) == 0 {
		return orderbook.Level{}
	}
	return levels[0]
}

var _ ports.Renderer = (*Renderer)(nil)
