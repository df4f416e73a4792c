package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

func TestTruncate(t *testing.T) {
	s, cut := Truncate("äöü", 2)
	assert.True(t, cut)
	assert.Equal(t, "äö", s)

	s, cut = Truncate("short", 10)
	assert.False(t, cut)
	assert.Equal(t, "short", s)

	long := strings.Repeat("x", constants.MaxPromptChars+10)
	s, cut = Truncate(long, 0)
	assert.True(t, cut)
	assert.Len(t, s, constants.MaxPromptChars)
}

func TestBuildPrompts(t *testing.T) {
	sys := BuildSystemPrompt(PromptOptions{DefaultCurrency: "CHF"})
	assert.Contains(t, sys, "TAB separates table columns")
	assert.Contains(t, sys, "default to CHF")
	assert.Contains(t, sys, "quote")

	user := BuildUserPrompt("Invoice\tNo. 1", "a.pdf", PromptOptions{MaxChars: 7})
	assert.Contains(t, user, "Filename: a.pdf")
	assert.Contains(t, user, "Invoice")
	assert.NotContains(t, user, "No. 1")
	assert.Contains(t, user, "(truncated)")
}
