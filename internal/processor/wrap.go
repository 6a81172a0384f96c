package processor

import "strings"

// measurer measures rendered text with the active font. *gg.Context satisfies it.
type measurer interface {
	MeasureString(s string) (w, h float64)
}

// Wrap breaks text into lines no wider than maxWidth, greedily adding words
// while they fit. A word wider than maxWidth on its own still gets its own
// line unmodified. The result always has at least one line.
func Wrap(text string, maxWidth float64, m measurer) []string {
	var lines []string
	line := ""

	for _, word := range strings.Fields(text) {
		candidate := word
		if line != "" {
			candidate = line + " " + word
		}

		if w, _ := m.MeasureString(candidate); w > maxWidth && line != "" {
			lines = append(lines, strings.TrimSpace(line))
			line = word
			continue
		}

		line = candidate
	}

	return append(lines, strings.TrimSpace(line))
}
