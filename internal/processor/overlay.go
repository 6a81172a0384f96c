package processor

import (
	"image/color"
	"math"
	"strings"

	"github.com/aliskhannn/newsflow/internal/model"
)

// Boxed caption geometry.
const (
	boxBorder     = 20.0
	boxBarHeight  = 80.0
	boxSideMargin = 60.0
	boxBarGap     = 40.0
	boxPadding    = 48.0
	boxFontSize   = 52.0
	boxLineHeight = boxFontSize * 1.25
	labelFontSize = 28.0
)

// captionTop is the highest point a caption may reach; it keeps headlines
// clear of the logo badge.
const captionTop = logoY + logoHeight + 2*logoPadding + 24.0

const ellipsis = "…"

// Scrim caption geometry.
const (
	scrimMargin     = 60.0
	scrimBottom     = 100.0
	scrimFontSize   = 64.0
	scrimLineHeight = scrimFontSize * 1.2
	scrimOpacity    = 0.55
)

// drawOverlay paints the template chrome and the headline. It never fails.
func drawOverlay(s *surface, tpl model.Template, title, siteLabel string) {
	switch tpl.Overlay {
	case model.OverlayBoxed:
		drawBoxed(s, tpl.Style, title, siteLabel)
	default:
		drawScrim(s, title)
	}
}

// boxedLayout wraps title for the boxed panel and places the panel above the
// bar. The font face must already be set on m.
func boxedLayout(title string, w, h float64, m measurer) (lines []string, panelY, panelH float64) {
	maxWidth := w - 2*boxSideMargin - 2*boxPadding
	maxLines := int((h - boxBarHeight - boxBarGap - captionTop - 2*boxPadding) / boxLineHeight)
	lines = clampLines(Wrap(title, maxWidth, m), maxLines, maxWidth, m)

	panelH = 2*boxPadding + float64(len(lines))*boxLineHeight
	panelY = h - boxBarHeight - boxBarGap - panelH

	return lines, panelY, panelH
}

// drawBoxed renders a panel in the template background above a colored bar
// inside a white border. The headline is centred in the panel and its last
// line uses the accent color.
func drawBoxed(s *surface, style model.Style, title, siteLabel string) {
	dc := s.dc
	w, h := s.width(), s.height()

	dc.SetFontFace(newFace(boldFont, boxFontSize))
	panelW := w - 2*boxSideMargin
	lines, panelY, panelH := boxedLayout(title, w, h, dc)

	dc.SetColor(style.Bar)
	dc.DrawRectangle(0, h-boxBarHeight, w, boxBarHeight)
	dc.Fill()

	dc.SetColor(style.Background)
	dc.DrawRectangle(boxSideMargin, panelY, panelW, panelH)
	dc.Fill()

	colors := lineColors(style, len(lines))
	for i, line := range lines {
		dc.SetColor(colors[i])
		y := panelY + boxPadding + float64(i)*boxLineHeight + boxLineHeight/2
		dc.DrawStringAnchored(line, w/2, y, 0.5, 0.5)
	}

	if label := siteLabelText(siteLabel); label != "" {
		dc.SetFontFace(newFace(boldFont, labelFontSize))
		dc.SetColor(color.White)
		visible := boxBarHeight - boxBorder
		dc.DrawStringAnchored(label, w/2, h-boxBorder-visible/2, 0.5, 0.5)
	}

	dc.SetColor(color.White)
	dc.DrawRectangle(0, 0, w, boxBorder)
	dc.DrawRectangle(0, h-boxBorder, w, boxBorder)
	dc.DrawRectangle(0, 0, boxBorder, h)
	dc.DrawRectangle(w-boxBorder, 0, boxBorder, h)
	dc.Fill()
}

// drawScrim darkens the whole canvas and stacks the headline bottom-up,
// left-aligned, in white.
func drawScrim(s *surface, title string) {
	dc := s.dc
	w, h := s.width(), s.height()

	dc.SetRGBA(0, 0, 0, scrimOpacity)
	dc.DrawRectangle(0, 0, w, h)
	dc.Fill()

	dc.SetFontFace(newFace(boldFont, scrimFontSize))
	maxWidth := w - 2*scrimMargin
	maxLines := int(math.Floor((h-scrimBottom-scrimFontSize-captionTop)/scrimLineHeight)) + 1
	lines := clampLines(Wrap(title, maxWidth, dc), maxLines, maxWidth, dc)

	dc.SetColor(color.White)
	for i := len(lines) - 1; i >= 0; i-- {
		fromBottom := float64(len(lines) - 1 - i)
		dc.DrawString(lines[i], scrimMargin, h-scrimBottom-fromBottom*scrimLineHeight)
	}
}

// lineColors returns the color of each of n headline lines on a boxed
// template: the text color, except the final line which is accented.
func lineColors(style model.Style, n int) []color.Color {
	colors := make([]color.Color, n)
	for i := range colors {
		colors[i] = style.Text
	}
	if n > 0 {
		colors[n-1] = style.Accent
	}

	return colors
}

// clampLines keeps at most limit lines. When lines are dropped, the last kept
// line loses words until it fits with an ellipsis appended.
func clampLines(lines []string, limit int, maxWidth float64, m measurer) []string {
	if limit < 1 {
		limit = 1
	}
	if len(lines) <= limit {
		return lines
	}

	out := append([]string(nil), lines[:limit]...)
	words := strings.Fields(out[limit-1])
	for len(words) > 0 {
		candidate := strings.Join(words, " ") + ellipsis
		if lw, _ := m.MeasureString(candidate); lw <= maxWidth {
			break
		}
		words = words[:len(words)-1]
	}
	out[limit-1] = strings.Join(words, " ") + ellipsis

	return out
}

func siteLabelText(label string) string {
	return strings.ToUpper(strings.TrimSpace(label))
}
