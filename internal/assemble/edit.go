package assemble

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/fieldpath"
	"github.com/joseph-ayodele/invoice-extractor/internal/normalize"
)

var numericMarkers = []string{"totals.", "Price", "Amount", "quantity", "Percent"}

// canonical mirrors the JSON shape of ExtractedDocument; paths outside it are
// stored under extra.
var canonical = map[string]map[string]struct{}{
	"documentType":   nil,
	"documentNumber": nil,
	"date":           nil,
	"dueDate":        nil,
	"currency":       nil,
	"confidence":     nil,
	"analysisMethod": nil,
	"supplier":       {"name": {}, "address": {}, "taxId": {}, "iban": {}},
	"buyer":          {"name": {}, "address": {}, "taxId": {}, "iban": {}},
	"totals":         {"subtotal": {}, "vatAmount": {}, "totalAmount": {}},
	"items": {
		"position": {}, "code": {}, "description": {}, "quantity": {},
		"unit": {}, "unitPrice": {}, "discountPercent": {}, "totalPrice": {},
	},
	"extra": nil,
}

// IsNumericPath reports whether edits at path are coerced to numbers.
func IsNumericPath(path string) bool {
	for _, m := range numericMarkers {
		if strings.Contains(path, m) {
			return true
		}
	}
	leaf := fieldpath.Leaf(path)
	return leaf == "position" || leaf == "confidence"
}

// IsDatePath reports whether edits at path are coerced to ISO dates.
func IsDatePath(path string) bool {
	leaf := fieldpath.Leaf(path)
	return leaf == "date" || leaf == "dueDate"
}

// ApplyFieldEdit returns a copy of doc with rawValue written at the dotted path.
// Numeric and date paths go through the normalizer (an empty string becomes
// null); everything else is stored verbatim. An item index may address an
// existing item or append one; the appended item gets the next position.
// doc itself is never modified.
func ApplyFieldEdit(doc entity.ExtractedDocument, path, rawValue string) (entity.ExtractedDocument, error) {
	segs, err := fieldpath.Split(path)
	if err != nil {
		return doc, err
	}

	target := path
	appended := false
	if isCanonical(segs) {
		if segs[0] == "items" {
			idx, ok := fieldpath.Index(segs[1])
			if !ok || idx > len(doc.Items) {
				return doc, fmt.Errorf("%w: item %s does not exist (document has %d)", common.ErrInvalidPath, segs[1], len(doc.Items))
			}
			appended = idx == len(doc.Items)
		}
	} else {
		target = "extra." + path
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return doc, fmt.Errorf("encode document: %w", err)
	}
	if appended {
		if raw, err = fieldpath.Set(raw, "items."+segs[1]+".position", len(doc.Items)+1); err != nil {
			return doc, err
		}
	}
	if raw, err = fieldpath.Set(raw, target, coerce(path, rawValue)); err != nil {
		return doc, err
	}

	var out entity.ExtractedDocument
	if err := json.Unmarshal(raw, &out); err != nil {
		return doc, fmt.Errorf("%w: value %q does not fit %q: %v", common.ErrInvalidPath, rawValue, path, err)
	}
	if out.Items == nil {
		out.Items = []entity.LineItem{}
	}
	return out, nil
}

// FieldEdit is a single manual correction.
type FieldEdit struct {
	Path  string
	Value string
}

// ParseFieldEdit parses "path=value".
func ParseFieldEdit(s string) (FieldEdit, error) {
	path, value, ok := strings.Cut(s, "=")
	if !ok {
		return FieldEdit{}, fmt.Errorf("%w: expected path=value, got %q", common.ErrInvalidPath, s)
	}
	return FieldEdit{Path: strings.TrimSpace(path), Value: value}, nil
}

// ApplyFieldEdits applies edits in order; the first failing edit aborts and
// the original doc is returned.
func ApplyFieldEdits(doc entity.ExtractedDocument, edits ...FieldEdit) (entity.ExtractedDocument, error) {
	cur := doc
	for _, e := range edits {
		next, err := ApplyFieldEdit(cur, e.Path, e.Value)
		if err != nil {
			return doc, err
		}
		cur = next
	}
	return cur, nil
}

func coerce(path, rawValue string) any {
	switch {
	case IsNumericPath(path):
		if strings.TrimSpace(rawValue) == "" {
			return nil
		}
		n := normalize.Number(rawValue)
		if n == nil {
			return nil
		}
		if fieldpath.Leaf(path) == "position" {
			return math.Trunc(*n)
		}
		return *n
	case IsDatePath(path):
		if d := normalize.Date(rawValue); d != nil {
			return *d
		}
		return nil
	}
	return rawValue
}

func isCanonical(segs []string) bool {
	children, ok := canonical[segs[0]]
	if !ok {
		return false
	}
	switch segs[0] {
	case "extra":
		return len(segs) > 1
	case "items":
		// items.<n>.<field>
		if len(segs) != 3 {
			return false
		}
		_, isIdx := fieldpath.Index(segs[1])
		return isIdx && hasKey(children, segs[2])
	}
	if children == nil {
		return len(segs) == 1
	}
	return len(segs) == 2 && hasKey(children, segs[1])
}

func hasKey(m map[string]struct{}, k string) bool {
	_, ok := m[k]
	return ok
}
