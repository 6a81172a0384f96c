package processor

import (
	"image/color"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/aliskhannn/newsflow/internal/loader"
)

func TestCoverRect(t *testing.T) {
	tests := []struct {
		name                       string
		srcW, srcH                 int
		wantW, wantH, wantX, wantY int
	}{
		{"landscape crops the sides", 1920, 1080, 1920, 1080, -420, 0},
		{"portrait crops top and bottom", 540, 1080, 1080, 2160, 0, -540},
		{"small square scales up", 100, 100, 1080, 1080, 0, 0},
		{"large square scales down", 2160, 2160, 1080, 1080, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, x, y := coverRect(tt.srcW, tt.srcH, CanvasSize, CanvasSize)
			if w != tt.wantW || h != tt.wantH || x != tt.wantX || y != tt.wantY {
				t.Errorf("coverRect = (%d,%d,%d,%d), want (%d,%d,%d,%d)",
					w, h, x, y, tt.wantW, tt.wantH, tt.wantX, tt.wantY)
			}
			if w < CanvasSize || h < CanvasSize {
				t.Errorf("scaled %dx%d does not cover the canvas", w, h)
			}
		})
	}
}

func TestPaintBackgroundFallbackCoversCanvas(t *testing.T) {
	s := newSurface()
	paintBackground(s, nil)

	img := imaging.Clone(s.dc.Image())
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if got := img.NRGBAAt(x, y); got != fallbackFill {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, fallbackFill)
			}
		}
	}
}

func TestPaintBackgroundCoversWithImage(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	bmp := loader.Bitmap{Image: imaging.New(300, 100, red)}

	s := newSurface()
	paintBackground(s, &bmp)

	img := imaging.Clone(s.dc.Image())
	for _, p := range [][2]int{{0, 0}, {CanvasSize - 1, 0}, {0, CanvasSize - 1}, {CanvasSize - 1, CanvasSize - 1}, {540, 540}} {
		got := img.NRGBAAt(p[0], p[1])
		if got.A != 255 || got.R < 250 || got.G > 5 || got.B > 5 {
			t.Errorf("pixel %v = %v, want opaque red", p, got)
		}
	}
	if s.tainted {
		t.Error("surface should not be tainted")
	}
}

func TestPaintBackgroundTaint(t *testing.T) {
	bmp := loader.Bitmap{Image: imaging.New(10, 10, color.White), Tainted: true}

	s := newSurface()
	paintBackground(s, &bmp)

	if !s.tainted {
		t.Error("drawing a tainted bitmap should taint the surface")
	}
	if _, err := export(s); err == nil {
		t.Error("export of a tainted surface should fail")
	}
}
