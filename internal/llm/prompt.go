package llm

import (
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// PromptOptions carries the per-deployment knobs of the extraction prompt.
type PromptOptions struct {
	DefaultCurrency string
	MaxChars        int
}

// BuildSystemPrompt describes the output shape and the conventions of the
// reconstructed text (tabs separate columns, blank lines separate blocks).
func BuildSystemPrompt(opts PromptOptions) string {
	defCur := strings.TrimSpace(opts.DefaultCurrency)
	if defCur == "" {
		defCur = constants.DefaultCurrency
	}

	parts := []string{
		"You are an invoice and quote parser. Return ONLY one JSON object, no prose, no markdown.",
		"The input is text reconstructed from a document layout: a TAB separates table columns, a newline separates rows, a blank line separates blocks.",
		"Keys: documentType (one of " + strings.Join(constants.DocumentTypesAsStrings(), ", ") + "), documentNumber, date, dueDate, currency,",
		"supplier {name, address, taxId, iban}, buyer {name, address, taxId, iban},",
		"items [{position, code, description, quantity, unit, unitPrice, discountPercent, totalPrice}],",
		"totals {subtotal, vatAmount, totalAmount}.",
		"Use ISO-8601 dates (YYYY-MM-DD) and plain JSON numbers for all amounts.",
		"Currency must be a 3-letter ISO 4217 code; default to " + defCur + " if uncertain.",
		"Number items by their order in the document starting at 1.",
		"Use null for anything that is not visible in the document. Do not guess.",
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt packages the file name hint and the (truncated) text.
func BuildUserPrompt(text, filename string, opts PromptOptions) string {
	var b strings.Builder
	if f := strings.TrimSpace(filename); f != "" {
		b.WriteString("Filename: ")
		b.WriteString(f)
		b.WriteString("\n")
	}
	body, cut := Truncate(strings.TrimSpace(text), opts.MaxChars)
	b.WriteString("\nDocument text:\n")
	b.WriteString(body)
	if cut {
		b.WriteString("\n…(truncated)")
	}
	return b.String()
}

// Truncate keeps at most max characters (runes) of s. max <= 0 means
// constants.MaxPromptChars.
func Truncate(s string, max int) (string, bool) {
	if max <= 0 {
		max = constants.MaxPromptChars
	}
	if utf8.RuneCountInString(s) <= max {
		return s, false
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i], true
		}
		n++
	}
	return s, false
}
