package model

import "image/color"

// TemplateID identifies one of the fixed graphic templates.
type TemplateID string

const (
	TemplateBreaking   TemplateID = "breaking"
	TemplateStandard   TemplateID = "standard"
	TemplateMinimalist TemplateID = "minimalist"
	TemplateModern     TemplateID = "modern"
)

// Overlay selects how a template places the headline over the background.
type Overlay string

const (
	OverlayBoxed Overlay = "boxed" // white panel, bar, border
	OverlayScrim Overlay = "scrim" // darkened canvas, white text
)

// Style is the fixed palette of a template.
type Style struct {
	Background color.NRGBA `json:"-"`
	Text       color.NRGBA `json:"-"`
	Accent     color.NRGBA `json:"-"`
	Bar        color.NRGBA `json:"-"`
}

// Template describes a template variant. Templates are defined once and never
// mutated.
type Template struct {
	ID      TemplateID `json:"id"`
	Name    string     `json:"name"`
	Style   Style      `json:"-"`
	Overlay Overlay    `json:"overlay"`
}

var templates = []Template{
	{
		ID:   TemplateBreaking,
		Name: "Breaking News",
		Style: Style{
			Background: hex(0xb9, 0x1c, 0x1c),
			Text:       hex(0xff, 0xff, 0xff),
			Accent:     hex(0xfd, 0xe0, 0x47),
			Bar:        hex(0x7f, 0x1d, 0x1d),
		},
		Overlay: OverlayScrim,
	},
	{
		ID:   TemplateStandard,
		Name: "Standard",
		Style: Style{
			Background: hex(0x1e, 0x29, 0x3b),
			Text:       hex(0xff, 0xff, 0xff),
			Accent:     hex(0x38, 0xbd, 0xf8),
			Bar:        hex(0x0f, 0x17, 0x2a),
		},
		Overlay: OverlayScrim,
	},
	{
		ID:   TemplateMinimalist,
		Name: "Minimalist",
		Style: Style{
			Background: hex(0xff, 0xff, 0xff),
			Text:       hex(0x11, 0x18, 0x27),
			Accent:     hex(0x6b, 0x72, 0x80),
			Bar:        hex(0xe5, 0xe7, 0xeb),
		},
		Overlay: OverlayScrim,
	},
	{
		ID:   TemplateModern,
		Name: "Modern News",
		Style: Style{
			Background: hex(0xff, 0xff, 0xff),
			Text:       hex(0x11, 0x18, 0x27),
			Accent:     hex(0xdc, 0x26, 0x26),
			Bar:        hex(0xdc, 0x26, 0x26),
		},
		Overlay: OverlayBoxed,
	},
}

// Templates returns every template in display order.
func Templates() []Template {
	out := make([]Template, len(templates))
	copy(out, templates)
	return out
}

// LookupTemplate returns the template for id. Unknown ids resolve to the
// standard template and ok is false.
func LookupTemplate(id TemplateID) (Template, bool) {
	for _, tpl := range templates {
		if tpl.ID == id {
			return tpl, true
		}
	}

	for _, tpl := range templates {
		if tpl.ID == TemplateStandard {
			return tpl, false
		}
	}

	return Template{}, false
}

func hex(r, g, b uint8) color.NRGBA {
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}
}
