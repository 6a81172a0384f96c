package processor

import (
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/aliskhannn/newsflow/internal/loader"
)

// fallbackFill paints the canvas when the background could not be loaded.
var fallbackFill = color.NRGBA{R: 0x11, G: 0x18, B: 0x27, A: 0xff}

// coverRect scales a srcW×srcH image to cover dstW×dstH without distortion
// and centres it. x and y are negative on the cropped axis.
func coverRect(srcW, srcH, dstW, dstH int) (w, h, x, y int) {
	scale := math.Max(float64(dstW)/float64(srcW), float64(dstH)/float64(srcH))

	// Ceil so rounding never leaves an unpainted edge; the epsilon keeps exact
	// fits from growing a pixel.
	w = int(math.Ceil(float64(srcW)*scale - 1e-6))
	h = int(math.Ceil(float64(srcH)*scale - 1e-6))
	x = (dstW - w) / 2
	y = (dstH - h) / 2

	return w, h, x, y
}

// paintBackground covers the whole surface with bmp, or with the fallback
// fill when bmp is nil. The fill is always laid down first so transparent
// sources never leave unpainted pixels.
func paintBackground(s *surface, bmp *loader.Bitmap) {
	s.dc.SetColor(fallbackFill)
	s.dc.Clear()

	if bmp == nil || bmp.Image == nil {
		return
	}

	b := bmp.Image.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return
	}

	w, h, x, y := coverRect(b.Dx(), b.Dy(), s.dc.Width(), s.dc.Height())
	scaled := imaging.Resize(bmp.Image, w, h, imaging.Lanczos)

	s.drawImage(scaled, x, y, bmp.Tainted)
}
