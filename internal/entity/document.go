package entity

import (
	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// ExtractedDocument is the canonical structured result of analysing one document.
// Nullable values are pointers; numbers are never locale formatted strings and
// dates are YYYY-MM-DD.
type ExtractedDocument struct {
	DocumentType   constants.DocumentType `json:"documentType"`
	DocumentNumber *string                `json:"documentNumber"`
	Date           *string                `json:"date"`
	DueDate        *string                `json:"dueDate"`
	Currency       string                 `json:"currency"`
	Supplier       Party                  `json:"supplier"`
	Buyer          Party                  `json:"buyer"`
	Items          []LineItem             `json:"items"`
	Totals         Totals                 `json:"totals"`
	Confidence     float64                `json:"confidence"`
	AnalysisMethod string                 `json:"analysisMethod"`
	// Extra keeps values set through field edits outside the canonical shape.
	Extra map[string]any `json:"extra,omitempty"`
}

// Party is the supplier or buyer block of a document.
type Party struct {
	Name    string  `json:"name"`
	Address *string `json:"address"`
	TaxID   *string `json:"taxId"`
	IBAN    *string `json:"iban"`
}

// LineItem is a single position of a document.
type LineItem struct {
	Position        int      `json:"position"`
	Code            *string  `json:"code"`
	Description     string   `json:"description"`
	Quantity        *float64 `json:"quantity"`
	Unit            string   `json:"unit"`
	UnitPrice       *float64 `json:"unitPrice"`
	DiscountPercent *float64 `json:"discountPercent"`
	TotalPrice      *float64 `json:"totalPrice"`
}

type Totals struct {
	Subtotal    *float64 `json:"subtotal"`
	VATAmount   *float64 `json:"vatAmount"`
	TotalAmount *float64 `json:"totalAmount"`
}

// Clone returns a deep copy that shares no pointers or slices with d.
func (d ExtractedDocument) Clone() ExtractedDocument {
	out := d
	out.DocumentNumber = cloneString(d.DocumentNumber)
	out.Date = cloneString(d.Date)
	out.DueDate = cloneString(d.DueDate)
	out.Supplier = d.Supplier.clone()
	out.Buyer = d.Buyer.clone()
	out.Totals = Totals{
		Subtotal:    cloneFloat(d.Totals.Subtotal),
		VATAmount:   cloneFloat(d.Totals.VATAmount),
		TotalAmount: cloneFloat(d.Totals.TotalAmount),
	}
	if d.Items != nil {
		out.Items = make([]LineItem, len(d.Items))
		for i, it := range d.Items {
			out.Items[i] = it.clone()
		}
	}
	if d.Extra != nil {
		out.Extra = cloneMap(d.Extra)
	}
	return out
}

func (p Party) clone() Party {
	return Party{
		Name:    p.Name,
		Address: cloneString(p.Address),
		TaxID:   cloneString(p.TaxID),
		IBAN:    cloneString(p.IBAN),
	}
}

func (it LineItem) clone() LineItem {
	out := it
	out.Code = cloneString(it.Code)
	out.Quantity = cloneFloat(it.Quantity)
	out.UnitPrice = cloneFloat(it.UnitPrice)
	out.DiscountPercent = cloneFloat(it.DiscountPercent)
	out.TotalPrice = cloneFloat(it.TotalPrice)
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case map[string]any:
			out[k] = cloneMap(t)
		case []any:
			s := make([]any, len(t))
			for i, e := range t {
				if mm, ok := e.(map[string]any); ok {
					s[i] = cloneMap(mm)
				} else {
					s[i] = e
				}
			}
			out[k] = s
		default:
			out[k] = v
		}
	}
	return out
}
