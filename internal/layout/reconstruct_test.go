package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeElement creates a test element on page 1
func makeElement(txt string, x, y, width, height float64) Element {
	return Element{Text: txt, X: x, Y: y, Width: width, Height: height, Page: 1}
}

func TestReconstruct_Empty(t *testing.T) {
	assert.Equal(t, "", Reconstruct(nil))
	assert.Equal(t, "", Reconstruct([]Element{}))
}

func TestReconstruct_NoHeightsKeepsInputOrder(t *testing.T) {
	elements := []Element{
		makeElement("second", 100, 50, 10, 0),
		makeElement("first", 0, 0, 10, 0),
	}
	assert.Equal(t, "second first", Reconstruct(elements))
}

func TestReconstruct_ColumnsAndSpaces(t *testing.T) {
	elements := []Element{
		makeElement("Invoice", 0, 0, 40, 10),
		makeElement("No.", 200, 0, 20, 10),
		makeElement("INV-1", 240, 0, 30, 10),
	}
	assert.Equal(t, "Invoice\tNo. INV-1", Reconstruct(elements))
}

func TestReconstruct_GapMeasuredFromRightEdge(t *testing.T) {
	// "No." ends at 220, so INV-1 at 260 leaves a 40 gap: a column, not a space
	elements := []Element{
		makeElement("Invoice", 0, 0, 40, 10),
		makeElement("No.", 200, 0, 20, 10),
		makeElement("INV-1", 260, 0, 30, 10),
	}
	assert.Equal(t, "Invoice\tNo.\tINV-1", Reconstruct(elements))
}

func TestReconstruct_ColumnGapAboveThreshold(t *testing.T) {
	// avg height 10: gap of 31 is a column, 30 is a space, 5 touches
	tab := []Element{makeElement("A", 0, 0, 10, 10), makeElement("B", 41, 0, 10, 10)}
	space := []Element{makeElement("A", 0, 0, 10, 10), makeElement("B", 40, 0, 10, 10)}
	touch := []Element{makeElement("A", 0, 0, 10, 10), makeElement("B", 15, 0, 10, 10)}

	assert.Equal(t, "A\tB", Reconstruct(tab))
	assert.Equal(t, "A B", Reconstruct(space))
	assert.Equal(t, "AB", Reconstruct(touch))
}

func TestReconstruct_LineAndParagraphBreaks(t *testing.T) {
	line := []Element{makeElement("Header", 0, 0, 40, 10), makeElement("Body", 0, 12, 40, 10)}
	paragraph := []Element{makeElement("Header", 0, 0, 40, 10), makeElement("Body", 0, 40, 40, 10)}

	assert.Equal(t, "Header\nBody", Reconstruct(line))
	assert.Equal(t, "Header\n\nBody", Reconstruct(paragraph))
}

func TestReconstruct_SortsRowsTopDownLeftToRight(t *testing.T) {
	elements := []Element{
		makeElement("Total", 0, 100, 30, 10),
		makeElement("World", 70, 2, 30, 10),
		makeElement("Hello", 0, 0, 30, 10),
	}
	assert.Equal(t, "Hello\tWorld\n\nTotal", Reconstruct(elements))
}

func TestReconstruct_PagesInOrder(t *testing.T) {
	second := makeElement("page two", 0, 0, 40, 10)
	second.Page = 2
	elements := []Element{second, makeElement("page one", 0, 500, 40, 10)}

	assert.Equal(t, "page one\n\npage two", Reconstruct(elements))
}

func TestReconstruct_Deterministic(t *testing.T) {
	elements := []Element{
		makeElement("Qty", 300, 50, 20, 9),
		makeElement("Item", 10, 50, 30, 9),
		makeElement("Widget", 10, 65, 40, 11),
		makeElement("2", 300, 65, 6, 11),
	}
	original := append([]Element(nil), elements...)

	first := Reconstruct(elements)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, Reconstruct(elements))
	}
	assert.Equal(t, original, elements, "input must not be reordered")
	assert.Equal(t, "Item\tQty\nWidget\t2", first)
}

func TestReconstructWithOptions_CustomColumnFactor(t *testing.T) {
	opts := DefaultOptions()
	opts.ColumnFactor = 1
	elements := []Element{makeElement("A", 0, 0, 10, 10), makeElement("B", 25, 0, 10, 10)}

	assert.Equal(t, "A\tB", ReconstructWithOptions(elements, opts))
	assert.Equal(t, "A B", Reconstruct(elements))
}

func TestLines(t *testing.T) {
	rows := Lines("Item\tQty\n\nWidget\t 2 \n")
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Item", "Qty"}, rows[0])
	assert.Equal(t, []string{"Widget", "2"}, rows[1])
}
