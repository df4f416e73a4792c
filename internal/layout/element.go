package layout

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Element is a single positioned text fragment as emitted by a source adapter.
// Coordinates are page-local and top-down: y grows towards the bottom of the page.
type Element struct {
	Text             string   `json:"text"`
	X                float64  `json:"x"`
	Y                float64  `json:"y"`
	Width            float64  `json:"width"`
	Height           float64  `json:"height"`
	Page             int      `json:"page"`
	SourceConfidence *float64 `json:"sourceConfidence,omitempty"`
}

// Right returns the x coordinate of the element's right edge.
func (e Element) Right() float64 {
	return e.X + e.Width
}

// FlipY converts a bottom-up PDF y coordinate into the top-down convention.
func FlipY(pageHeight, y float64) float64 {
	return pageHeight - y
}

// Clean trims and NFC-normalizes element text, drops elements that end up empty
// and clamps page numbers to 1. The input slice is not modified.
func Clean(elements []Element) []Element {
	out := make([]Element, 0, len(elements))
	for _, el := range elements {
		text := strings.TrimSpace(norm.NFC.String(el.Text))
		if text == "" {
			continue
		}
		el.Text = text
		if el.Page < 1 {
			el.Page = 1
		}
		out = append(out, el)
	}
	return out
}
