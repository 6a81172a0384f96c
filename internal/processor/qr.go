package processor

import (
	"fmt"
	"image/color"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	qrSize    = 140
	qrPadding = 10
)

// drawLinkQR places a QR code of the post link in the top-right corner,
// mirroring the logo badge.
func drawLinkQR(s *surface, link string) error {
	q, err := qrcode.New(link, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("encode link qr: %w", err)
	}
	q.DisableBorder = true

	x := s.dc.Width() - logoX - qrSize - 2*qrPadding
	y := logoY

	s.dc.SetColor(color.White)
	s.dc.DrawRoundedRectangle(float64(x), float64(y), qrSize+2*qrPadding, qrSize+2*qrPadding, logoRadius)
	s.dc.Fill()

	s.drawImage(q.Image(qrSize), x+qrPadding, y+qrPadding, false)

	return nil
}
