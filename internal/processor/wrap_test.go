package processor

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/fogleman/gg"
)

// monoMeasurer gives every rune the same advance.
type monoMeasurer float64

func (m monoMeasurer) MeasureString(s string) (float64, float64) {
	return float64(utf8.RuneCountInString(s)) * float64(m), float64(m)
}

func TestWrap(t *testing.T) {
	m := monoMeasurer(10)

	tests := []struct {
		name     string
		text     string
		maxWidth float64
		want     []string
	}{
		{"fits on one line", "hello world", 200, []string{"hello world"}},
		{"breaks greedily", "aaa bbb ccc ddd", 70, []string{"aaa bbb", "ccc ddd"}},
		{"exact width fits", "aaa bbb", 70, []string{"aaa bbb"}},
		{"overlong word keeps its own line", "hi supercalifragilistic yo", 100, []string{"hi", "supercalifragilistic", "yo"}},
		{"single overlong word", "supercalifragilistic", 50, []string{"supercalifragilistic"}},
		{"empty input gives one empty line", "", 100, []string{""}},
		{"collapses runs of whitespace", "a   b\n c", 1000, []string{"a b c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Wrap(tt.text, tt.maxWidth, m)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Wrap(%q, %v) = %q, want %q", tt.text, tt.maxWidth, got, tt.want)
			}
		})
	}
}

func TestWrapLinesFitUnlessSingleWord(t *testing.T) {
	dc := gg.NewContext(CanvasSize, CanvasSize)
	dc.SetFontFace(newFace(boldFont, scrimFontSize))

	titles := []string{
		"Global Tech Summit 2025: AI Innovations Redefining the Digital Frontier",
		"Short",
		"Pneumonoultramicroscopicsilicovolcanoconiosis strikes again in a very long headline indeed",
		"City council approves new budget after marathon session that stretched past midnight",
	}

	const maxWidth = CanvasSize - 2*scrimMargin

	for _, title := range titles {
		for _, line := range Wrap(title, maxWidth, dc) {
			w, _ := dc.MeasureString(line)
			if w > maxWidth && strings.Contains(line, " ") {
				t.Errorf("line %q measures %v > %v", line, w, maxWidth)
			}
		}
	}
}

func TestWrapIsIdempotent(t *testing.T) {
	dc := gg.NewContext(CanvasSize, CanvasSize)
	dc.SetFontFace(newFace(boldFont, boxFontSize))

	const maxWidth = CanvasSize - 2*boxSideMargin - 2*boxPadding
	title := "Global Tech Summit 2025: AI Innovations Redefining the Digital Frontier"

	lines := Wrap(title, maxWidth, dc)
	if len(lines) < 2 {
		t.Fatalf("expected the title to wrap, got %q", lines)
	}

	for _, line := range lines {
		again := Wrap(line, maxWidth, dc)
		if len(again) != 1 || again[0] != line {
			t.Errorf("Wrap(%q) = %q, want it unchanged", line, again)
		}
	}
}

func TestWrapIsDeterministic(t *testing.T) {
	dc := gg.NewContext(CanvasSize, CanvasSize)
	dc.SetFontFace(newFace(boldFont, boxFontSize))

	title := "Markets rally as central bank signals a pause in rate hikes"
	first := Wrap(title, 500, dc)
	for i := 0; i < 5; i++ {
		if got := Wrap(title, 500, dc); !reflect.DeepEqual(got, first) {
			t.Fatalf("Wrap result changed: %q vs %q", got, first)
		}
	}
}
