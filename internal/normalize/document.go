package normalize

import (
	"cmp"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

var currencySymbols = map[string]string{
	"€":    "EUR",
	"EURO": "EUR",
	"$":    "USD",
	"US$":  "USD",
	"£":    "GBP",
	"¥":    "JPY",
	"₺":    "TRY",
	"FR.":  "CHF",
	"SFR":  "CHF",
}

// Normalizer coerces raw field maps into ExtractedDocument values.
type Normalizer struct {
	DefaultCurrency string
}

// Document normalizes raw with the package default currency.
func Document(raw map[string]any, method string, confidence float64) entity.ExtractedDocument {
	return Normalizer{DefaultCurrency: constants.DefaultCurrency}.Document(raw, method, confidence)
}

// Document is the single place where loosely typed extraction output becomes
// the canonical record. Unparseable values become nil, never errors.
func (n Normalizer) Document(raw map[string]any, method string, confidence float64) entity.ExtractedDocument {
	docType, _ := constants.CanonicalizeDocumentType(stringValue(raw["documentType"]))

	doc := entity.ExtractedDocument{
		DocumentType:   docType,
		DocumentNumber: optionalString(raw["documentNumber"]),
		Date:           Date(raw["date"]),
		DueDate:        Date(raw["dueDate"]),
		Currency:       n.currency(raw["currency"]),
		Supplier:       party(raw["supplier"]),
		Buyer:          party(raw["buyer"]),
		Items:          items(raw["items"]),
		Totals:         totals(raw["totals"]),
		Confidence:     clamp(confidence),
		AnalysisMethod: method,
	}
	if extra, ok := raw["extra"].(map[string]any); ok && len(extra) > 0 {
		doc.Extra = extra
	}
	return doc.Clone()
}

func (n Normalizer) currency(v any) string {
	s := strings.ToUpper(strings.TrimSpace(stringValue(v)))
	if code, ok := currencySymbols[s]; ok {
		return code
	}
	if len(s) == 3 && isUpperASCII(s) {
		return s
	}
	if n.DefaultCurrency != "" {
		return n.DefaultCurrency
	}
	return constants.DefaultCurrency
}

func party(v any) entity.Party {
	switch t := v.(type) {
	case string:
		return entity.Party{Name: strings.TrimSpace(t)}
	case map[string]any:
		return entity.Party{
			Name:    stringValue(t["name"]),
			Address: optionalString(t["address"]),
			TaxID:   optionalString(t["taxId"]),
			IBAN:    iban(t["iban"]),
		}
	}
	return entity.Party{}
}

func items(v any) []entity.LineItem {
	list, ok := v.([]any)
	if !ok {
		return []entity.LineItem{}
	}
	out := make([]entity.LineItem, 0, len(list))
	for i, e := range list {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		pos, ok := position(m["position"])
		if !ok {
			pos = i + 1
		}
		out = append(out, entity.LineItem{
			Position:        pos,
			Code:            optionalString(m["code"]),
			Description:     stringValue(m["description"]),
			Quantity:        Number(m["quantity"]),
			Unit:            stringValue(m["unit"]),
			UnitPrice:       Number(m["unitPrice"]),
			DiscountPercent: Number(m["discountPercent"]),
			TotalPrice:      Number(m["totalPrice"]),
		})
	}
	slices.SortStableFunc(out, func(a, b entity.LineItem) int {
		return cmp.Compare(a.Position, b.Position)
	})
	return out
}

// position accepts whole numbers in [1, MaxInt32]; anything else falls back
// to source order.
func position(v any) (int, bool) {
	p := Number(v)
	if p == nil || *p < 1 || *p > math.MaxInt32 || *p != math.Trunc(*p) {
		return 0, false
	}
	return int(*p), true
}

func totals(v any) entity.Totals {
	m, ok := v.(map[string]any)
	if !ok {
		return entity.Totals{}
	}
	return entity.Totals{
		Subtotal:    Number(m["subtotal"]),
		VATAmount:   Number(m["vatAmount"]),
		TotalAmount: Number(m["totalAmount"]),
	}
}

func iban(v any) *string {
	s := optionalString(v)
	if s == nil {
		return nil
	}
	compact := strings.ToUpper(strings.ReplaceAll(*s, " ", ""))
	return &compact
}

func clamp(c float64) float64 {
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// stringValue renders scalars as trimmed strings; numbers keep their shortest form.
func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

func optionalString(v any) *string {
	s := stringValue(v)
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	return &s
}

func isUpperASCII(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
