package extract

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/fieldpath"
	"github.com/joseph-ayodele/invoice-extractor/internal/layout"
	"github.com/joseph-ayodele/invoice-extractor/internal/normalize"
)

// FieldPattern extracts one field. Capture group 1 of Expr is written at Path.
// Matches whose full text matches Exclude are skipped. Last picks the last
// remaining match instead of the first.
type FieldPattern struct {
	Path    string
	Expr    *regexp.Regexp
	Exclude *regexp.Regexp
	Last    bool
}

// TypeRule assigns Type when any keyword occurs in the lowercased text.
// Rules are checked in order.
type TypeRule struct {
	Type     constants.DocumentType
	Keywords []string
}

const amount = `(-?\d[\d.,]*\d|\d)`

// DefaultFieldPatterns covers German and English invoice/quote vocabulary.
func DefaultFieldPatterns() []FieldPattern {
	date := `(\d{1,2}[./-]\d{1,2}[./-]\d{2,4}|\d{4}-\d{2}-\d{2})`
	cur := `(?:€|eur|usd|\$|chf|£)?`
	return []FieldPattern{
		{
			Path: "documentNumber",
			Expr: regexp.MustCompile(`(?i)\b(?:invoice|rechnungs?|angebots?|offer|quote|quotation|beleg|document|dokument|lieferschein)[ \t-]*(?:no\.?|nr\.?|number|nummer|#)?[ \t]*[:.]?[ \t]*([A-Z0-9][A-Z0-9\-/.]*\d[A-Z0-9\-/]*|\d)`),
		},
		{
			Path:    "date",
			Expr:    regexp.MustCompile(`(?i)(\w*[ \t]*)(?:date|datum)[ \t]*[:.]?[ \t]*` + date),
			Exclude: regexp.MustCompile(`(?i)due|fällig|lligkeit|liefer|delivery|leistung`),
		},
		{
			Path: "dueDate",
			Expr: regexp.MustCompile(`(?i)(?:due[ \t]*date|payable[ \t]*by|fällig(?:keit|[ \t]*am|[ \t]*bis)?|zahlbar[ \t]*bis)[ \t]*[:.]?[ \t]*` + date),
		},
		{
			Path: "totals.subtotal",
			Expr: regexp.MustCompile(`(?i)\b(?:subtotal|sub-total|zwischensumme|nettobetrag|netto|net[ \t]*amount|net[ \t]*total|summe[ \t]*netto)[ \t]*` + cur + `[ \t]*[:.]?[ \t]*` + cur + `[ \t]*` + amount),
		},
		{
			Path:    "totals.vatAmount",
			Expr:    regexp.MustCompile(`(?i)\b(?:vat|mwst\.?|ust\.?|umsatzsteuer|mehrwertsteuer|tax)(?:[ \t]*\(?\d{1,2}(?:[.,]\d+)?[ \t]*%\)?)?[ \t]*(?:amount)?[ \t]*[:.]?[ \t]*` + cur + `[ \t]*` + amount),
			Exclude: regexp.MustCompile(`(?i)\bid\b|nr\.|no\.`),
		},
		{
			Path:    "totals.totalAmount",
			Expr:    regexp.MustCompile(`(?i)\b(?:grand[ \t]*total|total[ \t]*amount|total[ \t]*due|amount[ \t]*due|gesamtbetrag|rechnungsbetrag|endbetrag|bruttobetrag|brutto|gesamtsumme|total|summe)[ \t]*` + cur + `[ \t]*[:.]?[ \t]*` + cur + `[ \t]*` + amount),
			Exclude: regexp.MustCompile(`(?i)netto|zwischen`),
			Last:    true,
		},
		{
			Path: "supplier.iban",
			Expr: regexp.MustCompile(`\b([A-Z]{2}\d{2}(?: ?[A-Z0-9]{4}){3,7}(?: ?[A-Z0-9]{1,3})?)\b`),
		},
		{
			Path: "supplier.taxId",
			Expr: regexp.MustCompile(`(?i)(?:ust-?id(?:nr)?\.?|ust\.?-?id\.?-?nr\.?|vat[ \t]*(?:id|reg(?:istration)?[ \t]*no\.?)|steuernummer|st\.?-?nr\.?|tax[ \t]*id)[ \t]*[:.]?[ \t]*([A-Z]{2}[ ]?[0-9A-Z]{8,12}|\d{2,3}/\d{3}/\d{4,5})`),
		},
		{
			Path: "currency",
			Expr: regexp.MustCompile(`(€|\bEUR\b|\bUSD\b|\$|£|\bGBP\b|\bCHF\b)`),
		},
	}
}

// DefaultTypeRules checks the more specific vocabularies first; "pre-invoice"
// must win over "invoice".
func DefaultTypeRules() []TypeRule {
	return []TypeRule{
		{Type: constants.DocumentRequest, Keywords: []string{"request for quotation", "request for quote", "preisanfrage", "anfrage"}},
		{Type: constants.DocumentQuote, Keywords: []string{"pre-invoice", "proforma", "pro forma", "offer", "angebot", "quotation", "kostenvoranschlag"}},
		{Type: constants.DocumentDelivery, Keywords: []string{"delivery note", "lieferschein", "packing slip"}},
		{Type: constants.DocumentTransfer, Keywords: []string{"bank transfer", "überweisung", "remittance"}},
		{Type: constants.DocumentReceipt, Keywords: []string{"receipt", "quittung", "kassenbon"}},
		{Type: constants.DocumentInvoice, Keywords: []string{"invoice", "rechnung", "bill to"}},
	}
}

// RegexStrategy is the deterministic extractor. It never fails; fields
// without a match stay absent and normalize to null.
type RegexStrategy struct {
	Patterns  []FieldPattern
	TypeRules []TypeRule
	// LineItems enables the tab separated table row heuristic.
	LineItems bool
}

func NewRegexStrategy() *RegexStrategy {
	return &RegexStrategy{
		Patterns:  DefaultFieldPatterns(),
		TypeRules: DefaultTypeRules(),
		LineItems: true,
	}
}

func (s *RegexStrategy) Name() string { return constants.StrategyRegex }

func (s *RegexStrategy) Extract(_ context.Context, text string) (Outcome, error) {
	return Outcome{
		Raw:        s.Fields(text),
		Method:     constants.MethodRegex,
		Confidence: constants.ConfidenceRegex,
	}, nil
}

// Fields runs every pattern against text and returns the raw field map.
func (s *RegexStrategy) Fields(text string) map[string]any {
	doc, _ := fieldpath.Set([]byte(`{}`), "documentType", string(s.detectType(text)))
	for _, p := range s.Patterns {
		if _, done := fieldpath.Get(doc, p.Path); done {
			continue
		}
		v, ok := p.find(text)
		if !ok {
			continue
		}
		// paths come from code; a malformed one leaves the field unset
		if next, err := fieldpath.Set(doc, p.Path, v); err == nil {
			doc = next
		}
	}
	raw := map[string]any{}
	_ = json.Unmarshal(doc, &raw)
	if s.LineItems {
		if items := lineItems(text); len(items) > 0 {
			raw["items"] = items
		}
	}
	return raw
}

func (s *RegexStrategy) detectType(text string) constants.DocumentType {
	lower := strings.ToLower(text)
	for _, rule := range s.TypeRules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return rule.Type
			}
		}
	}
	return constants.DocumentOther
}

func (p FieldPattern) find(text string) (string, bool) {
	matches := p.Expr.FindAllStringSubmatch(text, -1)
	if p.Last {
		for i := len(matches) - 1; i >= 0; i-- {
			if v, ok := p.accept(matches[i]); ok {
				return v, true
			}
		}
		return "", false
	}
	for _, m := range matches {
		if v, ok := p.accept(m); ok {
			return v, true
		}
	}
	return "", false
}

func (p FieldPattern) accept(m []string) (string, bool) {
	if p.Exclude != nil && p.Exclude.MatchString(m[0]) {
		return "", false
	}
	v := strings.TrimSpace(m[len(m)-1])
	return v, v != ""
}

var (
	reNumericCell = regexp.MustCompile(`^[+-]?\d[\d.,]*\s*(?:%|€|eur|usd|chf|\$)?$`)
	reIntegerCell = regexp.MustCompile(`^\d{1,4}\.?$`)
	reSummaryRow  = regexp.MustCompile(`(?i)\b(?:total|subtotal|summe|zwischensumme|gesamtbetrag|mwst|ust|vat|tax|netto|brutto|iban|datum|date)\b`)
)

// lineItems reads tab separated rows that look like positions: a text cell
// followed by at least two numeric cells. A cell ending in % is the discount;
// from the right, the other numeric cells are total price, unit price and
// quantity. A short text cell after the first number is the unit.
func lineItems(text string) []any {
	var items []any
	for _, row := range layout.Lines(text) {
		if len(row) < 3 || isSummaryRow(row) {
			continue
		}
		cells := row
		item := map[string]any{}
		if reIntegerCell.MatchString(cells[0]) {
			pos, _ := strconv.Atoi(strings.TrimSuffix(cells[0], "."))
			item["position"] = float64(pos)
			cells = cells[1:]
		}

		var description, unit, discount string
		var numbers []string
		for _, c := range cells {
			if reNumericCell.MatchString(strings.ToLower(c)) {
				if strings.HasSuffix(c, "%") && discount == "" {
					discount = c
				} else {
					numbers = append(numbers, c)
				}
				continue
			}
			if len(numbers) == 0 {
				if len(c) > len(description) {
					description = c
				}
			} else if unit == "" && len(c) <= 6 {
				unit = c
			}
		}
		if description == "" || len(numbers) < 2 {
			continue
		}
		if _, ok := normalize.ParseLocaleNumber(numbers[len(numbers)-1]); !ok {
			continue
		}
		item["description"] = description
		item["totalPrice"] = numbers[len(numbers)-1]
		item["unitPrice"] = numbers[len(numbers)-2]
		if len(numbers) >= 3 {
			item["quantity"] = numbers[len(numbers)-3]
		}
		if unit != "" {
			item["unit"] = unit
		}
		if discount != "" {
			item["discountPercent"] = discount
		}
		items = append(items, item)
	}
	return items
}

func isSummaryRow(row []string) bool {
	return reSummaryRow.MatchString(strings.Join(row, " "))
}
