package layout

import (
	"cmp"
	"math"
	"slices"
	"strings"
)

// Options holds the geometry thresholds used by the reconstructor. All factors
// are multiplied by the average element height of the document.
type Options struct {
	MinTolerance    float64 // floor for the same-line tolerance
	ToleranceFactor float64 // same-line tolerance as a fraction of avg height
	ParagraphFactor float64 // vertical gap that produces a blank line
	ColumnFactor    float64 // horizontal gap that produces a tab
	MinSpaceGap     float64 // horizontal gap that produces a space
}

// DefaultOptions returns the thresholds used by Reconstruct.
func DefaultOptions() Options {
	return Options{
		MinTolerance:    5,
		ToleranceFactor: 0.4,
		ParagraphFactor: 2.5,
		ColumnFactor:    3,
		MinSpaceGap:     5,
	}
}

// Reconstruct turns positioned elements into linear text whose whitespace
// encodes the layout: newlines for rows, blank lines for paragraph gaps and
// tabs for column boundaries.
func Reconstruct(elements []Element) string {
	return ReconstructWithOptions(elements, DefaultOptions())
}

// ReconstructWithOptions is Reconstruct with caller supplied thresholds.
func ReconstructWithOptions(elements []Element, opts Options) string {
	if len(elements) == 0 {
		return ""
	}

	avg, ok := averageHeight(elements)
	if !ok {
		// no geometry to reason about; keep adapter order
		texts := make([]string, len(elements))
		for i, el := range elements {
			texts[i] = el.Text
		}
		return strings.TrimSpace(strings.Join(texts, " "))
	}

	tolerance := math.Max(opts.MinTolerance, avg*opts.ToleranceFactor)

	sorted := slices.Clone(elements)
	slices.SortStableFunc(sorted, func(a, b Element) int {
		if a.Page != b.Page {
			return cmp.Compare(a.Page, b.Page)
		}
		if math.Abs(a.Y-b.Y) < tolerance {
			return cmp.Compare(a.X, b.X)
		}
		return cmp.Compare(a.Y, b.Y)
	})

	var sb strings.Builder
	last := sorted[0]
	sb.WriteString(last.Text)

	for _, el := range sorted[1:] {
		switch {
		case el.Page != last.Page:
			sb.WriteString("\n\n")
		case math.Abs(el.Y-last.Y) > tolerance:
			if math.Abs(el.Y-last.Y) > avg*opts.ParagraphFactor {
				sb.WriteString("\n\n")
			} else {
				sb.WriteString("\n")
			}
		default:
			xDiff := el.X - last.Right()
			if xDiff > avg*opts.ColumnFactor {
				sb.WriteString("\t")
			} else if xDiff > opts.MinSpaceGap {
				sb.WriteString(" ")
			}
		}
		sb.WriteString(el.Text)
		last = el
	}

	return strings.TrimSpace(sb.String())
}

func averageHeight(elements []Element) (float64, bool) {
	var sum float64
	var n int
	for _, el := range elements {
		if el.Height > 0 {
			sum += el.Height
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// Lines splits reconstructed text into rows, each row split into its tab
// separated columns. Blank rows are skipped.
func Lines(text string) [][]string {
	var rows [][]string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		cols := strings.Split(line, "\t")
		for i := range cols {
			cols[i] = strings.TrimSpace(cols[i])
		}
		rows = append(rows, cols)
	}
	return rows
}
