// Package ggrenderer draws order-book frames to PNG files using the gg library.
package ggrenderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"path/filepath"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/user/tapeplay/pkg/orderbook"
	"github.com/user/tapeplay/pkg/ports"
)

// Theme holds the colors of a rendered frame.
type Theme struct {
	Background   color.Color
	Text         color.Color
	Muted        color.Color
	Bid          color.Color
	BidAnomalous color.Color
	Ask          color.Color
	AskAnomalous color.Color
	Axis         color.Color
}

// DefaultTheme returns the dark theme.
func DefaultTheme() Theme {
	return Theme{
		Background:   color.RGBA{R: 0x1e, G: 0x1e, B: 0x1e, A: 0xff},
		Text:         color.White,
		Muted:        color.RGBA{R: 0x99, G: 0x99, B: 0x99, A: 0xff},
		Bid:          color.RGBA{R: 0, G: 200, B: 83, A: 180},
		BidAnomalous: color.RGBA{R: 0, G: 255, B: 100, A: 255},
		Ask:          color.RGBA{R: 244, G: 67, B: 54, A: 180},
		AskAnomalous: color.RGBA{R: 255, G: 100, B: 100, A: 255},
		Axis:         color.RGBA{R: 255, G: 255, B: 255, A: 128},
	}
}

// Options configures a Renderer.
type Options struct {
	Width  int // Frame width in pixels (default: 800)
	Height int // Frame height in pixels (default: 360)
	Theme  Theme
}

// DefaultOptions returns Options with default values.
func DefaultOptions() Options {
	return Options{Width: 800, Height: 360, Theme: DefaultTheme()}
}

// Renderer implements ports.Renderer by writing one PNG per row.
type Renderer struct {
	fs      ports.FileSystem
	dir     string
	options Options
}

// New creates a Renderer writing frames under dir.
func New(fs ports.FileSystem, dir string, options Options) *Renderer {
	def := DefaultOptions()
	if options.Width <= 0 {
		options.Width = def.Width
	}
	if options.Height <= 0 {
		options.Height = def.Height
	}
	if options.Theme.Background == nil {
		options.Theme = def.Theme
	}
	return &Renderer{fs: fs, dir: dir, options: options}
}

// Render implements ports.Renderer.
func (r *Renderer) Render(row int, frame ports.Frame) error {
	snap, err := orderbook.Decode(frame)
	if err != nil {
		return err
	}
	data, err := EncodePNG(r.Draw(snap))
	if err != nil {
		return err
	}
	return r.fs.WriteFile(r.Path(row), data)
}

// Path returns the file a row is written to.
func (r *Renderer) Path(row int) string {
	return filepath.Join(r.dir, fmt.Sprintf("frame-%06d.png", row))
}

// Draw renders a snapshot: the UP book on the left, the DOWN book on the
// right, and a footer with the timestamp and reference prices.
func (r *Renderer) Draw(snap orderbook.Snapshot) image.Image {
	w, h := float64(r.options.Width), float64(r.options.Height)
	theme := r.options.Theme

	dc := gg.NewContext(r.options.Width, r.options.Height)
	dc.SetColor(theme.Background)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	footer := 40.0
	maxSize := largestSize(snap)
	half := w / 2
	r.drawBook(dc, "UP", snap.Up, 0, 0, half, h-footer, maxSize)
	r.drawBook(dc, "DOWN", snap.Down, half, 0, half, h-footer, maxSize)

	dc.SetColor(theme.Muted)
	dc.DrawLine(0, h-footer, w, h-footer)
	dc.Stroke()

	dc.SetColor(theme.Text)
	dc.DrawStringAnchored(fmt.Sprintf("#%d  %s", snap.Row, snap.Timestamp), 10, h-footer/2, 0, 0.5)
	dc.DrawStringAnchored(markerLine(snap.Markers), w-10, h-footer/2, 1, 0.5)

	return dc.Image()
}

// drawBook draws one book as horizontal bars: asks above the center line
// growing right, bids below growing left, best levels nearest the center.
func (r *Renderer) drawBook(dc *gg.Context, title string, book orderbook.Book, x, y, w, h, maxSize float64) {
	theme := r.options.Theme
	header := 24.0
	cx := x + w/2

	dc.SetColor(theme.Text)
	dc.DrawStringAnchored(fmt.Sprintf("%s  %s", title, book.Pressure), x+10, y+header/2, 0, 0.5)
	dc.SetColor(theme.Muted)
	dc.DrawStringAnchored(fmt.Sprintf("bid %s / ask %s",
		orderbook.FormatAmount(book.BidTotal), orderbook.FormatAmount(book.AskTotal)), x+w-10, y+header/2, 1, 0.5)

	rows := float64(len(book.Asks) + len(book.Bids))
	if rows == 0 {
		return
	}
	slot := (h - header) / rows
	barMax := w/2 - 70

	for i, level := range book.Asks {
		// Best ask sits just above the center line.
		top := y + header + float64(len(book.Asks)-1-i)*slot
		r.drawLevel(dc, level, cx, top, slot, barMax, maxSize, 1, theme.Ask, theme.AskAnomalous)
	}
	for i, level := range book.Bids {
		top := y + header + float64(len(book.Asks)+i)*slot
		r.drawLevel(dc, level, cx, top, slot, barMax, maxSize, -1, theme.Bid, theme.BidAnomalous)
	}

	dc.SetColor(theme.Axis)
	dc.SetLineWidth(2)
	dc.DrawLine(cx, y+header, cx, y+h)
	dc.Stroke()
}

func (r *Renderer) drawLevel(dc *gg.Context, level orderbook.Level, cx, top, slot, barMax, maxSize, dir float64, base, anomalous color.Color) {
	theme := r.options.Theme
	mid := top + slot/2

	if level.Size != nil && maxSize > 0 {
		length := *level.Size / maxSize * barMax
		if length < 0 {
			length = -length
		}
		col := base
		if level.Anomalous {
			col = anomalous
		}
		dc.SetColor(col)
		if dir > 0 {
			dc.DrawRectangle(cx, top+2, length, slot-4)
		} else {
			dc.DrawRectangle(cx-length, top+2, length, slot-4)
		}
		dc.Fill()
	}

	dc.SetColor(theme.Text)
	price := orderbook.FormatPrice(level.Price)
	size := orderbook.FormatSize(level.Size)
	if dir > 0 {
		dc.DrawStringAnchored(price, cx-8, mid, 1, 0.5)
		dc.DrawStringAnchored(size, cx+barMax+8, mid, 0, 0.5)
	} else {
		dc.DrawStringAnchored(price, cx+8, mid, 0, 0.5)
		dc.DrawStringAnchored(size, cx-barMax-8, mid, 1, 0.5)
	}
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func largestSize(snap orderbook.Snapshot) float64 {
	var max float64
	for _, levels := range [][]orderbook.Level{snap.Up.Bids, snap.Up.Asks, snap.Down.Bids, snap.Down.Asks} {
		for _, l := range levels {
			if l.Size != nil && *l.Size > max {
				max = *l.Size
			}
		}
	}
	return max
}

func markerLine(m orderbook.Markers) string {
	line := ""
	if m.BinancePrice != nil {
		line += fmt.Sprintf("binance %.2f  ", *m.BinancePrice)
	}
	if m.OraclePrice != nil {
		line += fmt.Sprintf("oracle %.2f  ", *m.OraclePrice)
	}
	if m.Lag != nil {
		line += fmt.Sprintf("lag %.3f", *m.Lag)
	}
	return line
}

var _ ports.Renderer = (*Renderer)(nil)
