package processor

import (
	"image"

	"github.com/fogleman/gg"
)

// CanvasSize is the edge length of every rendered graphic.
const CanvasSize = 1080

// surface is the drawing target of one pass. It remembers whether any
// cross-origin bitmap was drawn onto it.
type surface struct {
	dc      *gg.Context
	tainted bool
}

func newSurface() *surface {
	return &surface{dc: gg.NewContext(CanvasSize, CanvasSize)}
}

func (s *surface) drawImage(img image.Image, x, y int, tainted bool) {
	s.dc.DrawImage(img, x, y)
	if tainted {
		s.tainted = true
	}
}

func (s *surface) width() float64  { return float64(s.dc.Width()) }
func (s *surface) height() float64 { return float64(s.dc.Height()) }
