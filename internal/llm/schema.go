package llm

import "github.com/joseph-ayodele/invoice-extractor/constants"

// BuildDocumentJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map.
// It is sent to the model as guidance and used locally to grade the response.
// Amounts accept strings as well as numbers; the normalizer coerces them later.
func BuildDocumentJSONSchema() map[string]any {
	party := map[string]any{
		"type": []any{"object", "null"},
		"properties": map[string]any{
			"name":    nullable("string"),
			"address": nullable("string"),
			"taxId":   nullable("string"),
			"iban":    nullable("string"),
		},
		"additionalProperties": false,
	}

	item := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"position":        amountProp(),
			"code":            map[string]any{"type": []any{"string", "number", "null"}},
			"description":     nullable("string"),
			"quantity":        amountProp(),
			"unit":            nullable("string"),
			"unitPrice":       amountProp(),
			"discountPercent": amountProp(),
			"totalPrice":      amountProp(),
		},
		"additionalProperties": false,
	}

	types := make([]any, 0, 8)
	for _, t := range constants.DocumentTypesAsStrings() {
		types = append(types, t)
	}

	props := map[string]any{
		"documentType":   map[string]any{"type": "string", "enum": types},
		"documentNumber": map[string]any{"type": []any{"string", "number", "null"}},
		"date":           dateProp(),
		"dueDate":        dateProp(),
		"currency":       map[string]any{"type": []any{"string", "null"}, "maxLength": 3},
		"supplier":       party,
		"buyer":          party,
		"items":          map[string]any{"type": []any{"array", "null"}, "items": item},
		"totals": map[string]any{
			"type": []any{"object", "null"},
			"properties": map[string]any{
				"subtotal":    amountProp(),
				"vatAmount":   amountProp(),
				"totalAmount": amountProp(),
			},
			"additionalProperties": false,
		},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             []string{"documentType"},
	}
}

func nullable(t string) map[string]any {
	return map[string]any{"type": []any{t, "null"}}
}

func amountProp() map[string]any {
	return map[string]any{"type": []any{"number", "string", "null"}}
}

func dateProp() map[string]any {
	return map[string]any{"type": []any{"string", "null"}}
}
