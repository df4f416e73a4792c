package llm

import (
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

var (
	topLevelSynonyms = map[string]string{
		"type":          "documentType",
		"document_type": "documentType",
		"invoiceNumber": "documentNumber",
		"number":        "documentNumber",
		"invoiceDate":   "date",
		"documentDate":  "date",
		"due_date":      "dueDate",
		"currencyCode":  "currency",
		"vendor":        "supplier",
		"seller":        "supplier",
		"customer":      "buyer",
		"recipient":     "buyer",
		"lineItems":     "items",
		"positions":     "items",
	}
	// amounts some models put at the top level instead of under totals
	totalsSynonyms = map[string]string{
		"subtotal":    "subtotal",
		"netAmount":   "subtotal",
		"net":         "subtotal",
		"vatAmount":   "vatAmount",
		"vat":         "vatAmount",
		"tax":         "vatAmount",
		"taxAmount":   "vatAmount",
		"totalAmount": "totalAmount",
		"total":       "totalAmount",
		"gross":       "totalAmount",
		"grossAmount": "totalAmount",
	}
	partySynonyms = map[string]string{
		"vatId":     "taxId",
		"ustId":     "taxId",
		"taxNumber": "taxId",
		"tax_id":    "taxId",
	}
	itemSynonyms = map[string]string{
		"pos":      "position",
		"name":     "description",
		"qty":      "quantity",
		"price":    "unitPrice",
		"discount": "discountPercent",
		"total":    "totalPrice",
		"amount":   "totalPrice",
	}

	allowedTopLevel = map[string]struct{}{
		"documentType": {}, "documentNumber": {}, "date": {}, "dueDate": {}, "currency": {},
		"supplier": {}, "buyer": {}, "items": {}, "totals": {},
	}
	allowedParty  = []string{"name", "address", "taxId", "iban"}
	allowedItem   = []string{"position", "code", "description", "quantity", "unit", "unitPrice", "discountPercent", "totalPrice"}
	allowedTotals = []string{"subtotal", "vatAmount", "totalAmount"}
)

// NormalizeAndSanitize rewrites a decoded model response in place
// - Renames known synonyms (invoiceNumber -> documentNumber, qty -> quantity)
// - Moves stray top-level amounts under totals
// - Trims strings, turns "" and "null" into null
// - Removes unknown keys (strict additionalProperties = false friendliness)
// It returns what was renamed or dropped.
func NormalizeAndSanitize(m map[string]any, logger *slog.Logger) []string {
	if logger == nil {
		logger = slog.Default()
	}
	changes := make([]string, 0, 8)

	renameKeys(m, topLevelSynonyms, "", &changes)

	totals, _ := m["totals"].(map[string]any)
	for from, to := range totalsSynonyms {
		v, ok := m[from]
		if !ok {
			continue
		}
		if totals == nil {
			totals = map[string]any{}
		}
		if _, exists := totals[to]; !exists {
			totals[to] = v
		}
		delete(m, from)
		changes = append(changes, from+"->totals."+to)
	}
	if totals != nil {
		renameKeys(totals, totalsSynonyms, "totals.", &changes)
		keepOnly(totals, allowedTotals, "totals.", &changes)
		m["totals"] = totals
	}

	for _, k := range []string{"supplier", "buyer"} {
		if p, ok := m[k].(map[string]any); ok {
			renameKeys(p, partySynonyms, k+".", &changes)
			keepOnly(p, allowedParty, k+".", &changes)
			cleanStrings(p)
		}
	}

	if items, ok := m["items"].([]any); ok {
		for _, it := range items {
			if im, ok := it.(map[string]any); ok {
				renameKeys(im, itemSynonyms, "items[].", &changes)
				keepOnly(im, allowedItem, "items[].", &changes)
				cleanStrings(im)
			}
		}
	}

	for k := range maps.Clone(m) {
		if _, ok := allowedTopLevel[k]; !ok {
			delete(m, k)
			changes = append(changes, k+"(unknown)")
		}
	}
	cleanStrings(m)

	if v, ok := m["documentType"].(string); ok {
		if dt, known := constants.CanonicalizeDocumentType(v); known {
			m["documentType"] = string(dt)
		} else {
			m["documentType"] = strings.ToLower(v)
		}
	}

	if len(changes) > 0 {
		slices.Sort(changes)
		logger.Warn("llm.extract.normalize_sanitize", "changes", changes)
	}
	return changes
}

func renameKeys(m map[string]any, synonyms map[string]string, prefix string, changes *[]string) {
	for from, to := range synonyms {
		if from == to {
			continue
		}
		v, ok := m[from]
		if !ok {
			continue
		}
		// don't overwrite existing value if already present
		if _, exists := m[to]; !exists {
			m[to] = v
		}
		delete(m, from)
		*changes = append(*changes, prefix+from+"->"+to)
	}
}

func keepOnly(m map[string]any, allowed []string, prefix string, changes *[]string) {
	for k := range maps.Clone(m) {
		if !slices.Contains(allowed, k) {
			delete(m, k)
			*changes = append(*changes, prefix+k+"(unknown)")
		}
	}
}

func cleanStrings(m map[string]any) {
	for k, v := range m {
		s, ok := v.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "n/a") {
			m[k] = nil
		} else {
			m[k] = s
		}
	}
}
