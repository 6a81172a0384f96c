package processor

import (
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/aliskhannn/newsflow/internal/loader"
)

// Logo badge geometry.
const (
	logoX        = 48
	logoY        = 48
	logoHeight   = 80
	logoMaxWidth = 260
	logoPadding  = 14
	logoRadius   = 14.0
	shadowOffset = 6
	shadowSigma  = 8.0
)

var (
	brandRed = color.NRGBA{R: 0xdc, G: 0x26, B: 0x26, A: 0xff}
	brandInk = color.NRGBA{R: 0x11, G: 0x18, B: 0x27, A: 0xff}
)

// defaultLogo is the built-in brand mark drawn whenever the caller's logo is
// missing or unusable.
var defaultLogo = sync.OnceValue(func() image.Image {
	dc := gg.NewContext(logoMaxWidth, logoHeight)

	dc.SetColor(brandRed)
	dc.DrawRoundedRectangle(0, 0, logoHeight, logoHeight, 16)
	dc.Fill()

	dc.SetFontFace(newFace(boldFont, 48))
	dc.SetColor(color.White)
	dc.DrawStringAnchored("N", logoHeight/2, logoHeight/2, 0.5, 0.5)

	dc.SetColor(brandInk)
	dc.SetFontFace(newFace(boldFont, 32))
	dc.DrawStringAnchored("News", logoHeight+14, logoHeight/2, 0, 0.5)
	w, _ := dc.MeasureString("News")
	dc.SetColor(brandRed)
	dc.SetFontFace(newFace(regularFont, 32))
	dc.DrawStringAnchored("Flow", logoHeight+14+w, logoHeight/2, 0, 0.5)

	return dc.Image()
})

func defaultLogoBitmap() loader.Bitmap {
	return loader.Bitmap{Image: defaultLogo(), Source: "builtin"}
}

// fitLogo scales img to the badge height. Width follows the aspect ratio and
// is clamped to logoMaxWidth by cropping the sides. The crop happens in source
// space first, so the work is bounded by the badge size and not by the
// source's aspect ratio.
func fitLogo(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return defaultLogo()
	}

	srcMaxW := int(math.Ceil(float64(logoMaxWidth) * float64(b.Dy()) / logoHeight))
	if b.Dx() > srcMaxW {
		img = imaging.CropCenter(img, srcMaxW, b.Dy())
		b = img.Bounds()
	}

	w := int(math.Round(float64(b.Dx()) * logoHeight / float64(b.Dy())))
	w = max(1, min(w, logoMaxWidth))

	return imaging.Resize(img, w, logoHeight, imaging.Lanczos)
}

// drawLogoBadge draws the logo top-left on a white rounded panel with a soft
// drop shadow.
func drawLogoBadge(s *surface, bmp loader.Bitmap) {
	logo := fitLogo(bmp.Image)

	panelW := logo.Bounds().Dx() + 2*logoPadding
	panelH := logoHeight + 2*logoPadding

	margin := int(3 * shadowSigma)
	shadow := gg.NewContext(panelW+2*margin, panelH+2*margin)
	shadow.SetRGBA(0, 0, 0, 0.35)
	shadow.DrawRoundedRectangle(float64(margin), float64(margin), float64(panelW), float64(panelH), logoRadius)
	shadow.Fill()
	s.dc.DrawImage(imaging.Blur(shadow.Image(), shadowSigma), logoX-margin+shadowOffset, logoY-margin+shadowOffset)

	s.dc.SetColor(color.White)
	s.dc.DrawRoundedRectangle(logoX, logoY, float64(panelW), float64(panelH), logoRadius)
	s.dc.Fill()

	s.drawImage(logo, logoX+logoPadding, logoY+logoPadding, bmp.Tainted)
}
