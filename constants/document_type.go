package constants

import (
	"strings"
)

type DocumentType string

const (
	DocumentRequest  DocumentType = "request"
	DocumentQuote    DocumentType = "quote"
	DocumentInvoice  DocumentType = "invoice"
	DocumentDelivery DocumentType = "delivery"
	DocumentTransfer DocumentType = "transfer"
	DocumentReceipt  DocumentType = "receipt"
	DocumentOther    DocumentType = "other"
)

var allDocumentTypes = []DocumentType{
	DocumentRequest,
	DocumentQuote,
	DocumentInvoice,
	DocumentDelivery,
	DocumentTransfer,
	DocumentReceipt,
	DocumentOther,
}

func DocumentTypesAsStrings() []string {
	result := make([]string, len(allDocumentTypes))
	for i, dt := range allDocumentTypes {
		result[i] = string(dt)
	}
	return result
}

// CanonicalizeDocumentType maps loose labels (model output, German terms) onto
// the closed document type set. Unknown labels become DocumentOther.
func CanonicalizeDocumentType(input string) (DocumentType, bool) {
	if input == "" {
		return DocumentOther, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	synonyms := map[string]DocumentType{
		"rfq":              DocumentRequest,
		"inquiry":          DocumentRequest,
		"anfrage":          DocumentRequest,
		"offer":            DocumentQuote,
		"quotation":        DocumentQuote,
		"angebot":          DocumentQuote,
		"proforma":         DocumentQuote,
		"pre-invoice":      DocumentQuote,
		"rechnung":         DocumentInvoice,
		"bill":             DocumentInvoice,
		"delivery note":    DocumentDelivery,
		"delivery_note":    DocumentDelivery,
		"lieferschein":     DocumentDelivery,
		"bank transfer":    DocumentTransfer,
		"ueberweisung":     DocumentTransfer,
		"überweisung":      DocumentTransfer,
		"quittung":         DocumentReceipt,
		"kassenbon":        DocumentReceipt,
		"payment receipt":  DocumentReceipt,
	}

	if dt, ok := synonyms[normalized]; ok {
		return dt, true
	}

	for _, dt := range allDocumentTypes {
		if normalized == string(dt) {
			return dt, true
		}
	}

	return DocumentOther, false
}
