package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	elements := []Element{
		{Text: "  total ", Page: 0},
		{Text: "   ", Page: 1},
		{Text: "Café", Page: 3},
	}

	cleaned := Clean(elements)

	require.Len(t, cleaned, 2)
	assert.Equal(t, "total", cleaned[0].Text)
	assert.Equal(t, 1, cleaned[0].Page)
	assert.Equal(t, "Café", cleaned[1].Text)
	assert.Equal(t, 3, cleaned[1].Page)
	assert.Equal(t, "  total ", elements[0].Text, "input must not be modified")
}

func TestFlipY(t *testing.T) {
	assert.Equal(t, 92.0, FlipY(792, 700))
	assert.Equal(t, 30.0, Element{X: 10, Width: 20}.Right())
}
