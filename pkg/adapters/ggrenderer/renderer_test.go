package ggrenderer

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/user/tapeplay/pkg/mocks"
	"github.com/user/tapeplay/pkg/orderbook"
)

type row map[string]string

func (r row) Float(column string) (float64, bool) {
	switch r[column] {
	case "100":
		return 100, true
	case "5000":
		return 5000, true
	case "0.5":
		return 0.5, true
	}
	return 0, false
}

func (r row) String(column string) (string, bool) {
	v, ok := r[column]
	return v, ok
}

func testSnapshot() orderbook.Snapshot {
	r := row{"timestamp_et": "09:30:00", "lag": "0.5"}
	for i := 1; i <= orderbook.Levels; i++ {
		r[orderbook.Column("up", "bid", i, "size")] = "100"
		r[orderbook.Column("up", "bid", i, "price")] = "0.5"
		r[orderbook.Column("down", "ask", i, "size")] = "100"
	}
	r[orderbook.Column("up", "ask", 1, "size")] = "5000"
	return orderbook.Build(12, r)
}

func TestRenderer_Draw(t *testing.T) {
	r := New(mocks.NewFileSystem(), "/out", Options{Width: 640, Height: 300})

	img := r.Draw(testSnapshot())
	bounds := img.Bounds()
	if bounds.Dx() != 640 || bounds.Dy() != 300 {
		t.Errorf("expected 640x300, got %dx%d", bounds.Dx(), bounds.Dy())
	}

	// Top-left pixel is background.
	want := DefaultTheme().Background
	if img.At(0, 0) != want {
		r1, g1, b1, _ := img.At(0, 0).RGBA()
		r2, g2, b2, _ := want.RGBA()
		if r1 != r2 || g1 != g2 || b1 != b2 {
			t.Errorf("unexpected background color %v", img.At(0, 0))
		}
	}
}

func TestRenderer_Render(t *testing.T) {
	fs := mocks.NewFileSystem()
	r := New(fs, "/out", DefaultOptions())

	frame, err := orderbook.Encode(testSnapshot())
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Render(12, frame); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	data, ok := fs.GetFile("/out/frame-000012.png")
	if !ok {
		t.Fatal("expected frame file to be written")
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("invalid PNG: %v", err)
	}
	if img.Bounds().Dx() != 800 || img.Bounds().Dy() != 360 {
		t.Errorf("unexpected size %v", img.Bounds())
	}
}

func TestRenderer_RenderInvalidFrame(t *testing.T) {
	fs := mocks.NewFileSystem()
	r := New(fs, "/out", DefaultOptions())

	if err := r.Render(0, []byte("not json")); err == nil {
		t.Error("expected error for invalid frame")
	}
	if len(fs.GetAllFiles()) != 0 {
		t.Error("no file should be written for an invalid frame")
	}
}
