package assemble

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/normalize"
)

func sampleDocument() entity.ExtractedDocument {
	return normalize.Document(map[string]any{
		"documentType":   "invoice",
		"documentNumber": "INV-1",
		"supplier":       map[string]any{"name": "ACME"},
		"items": []any{
			map[string]any{"position": 1.0, "description": "Widget", "quantity": 2.0, "unitPrice": 10.0},
		},
		"totals": map[string]any{"subtotal": 1000.0, "totalAmount": 1190.0},
	}, constants.MethodLLM, 0.98)
}

func TestApplyFieldEdit_NumericPathIsNormalizedAndOriginalUntouched(t *testing.T) {
	doc := sampleDocument()

	edited, err := ApplyFieldEdit(doc, "totals.subtotal", "1500,00")
	require.NoError(t, err)

	require.NotNil(t, edited.Totals.Subtotal)
	assert.Equal(t, 1500.0, *edited.Totals.Subtotal)
	assert.Equal(t, 1000.0, *doc.Totals.Subtotal)
	assert.Equal(t, 1190.0, *edited.Totals.TotalAmount)
}

func TestApplyFieldEdit_EmptyNumericBecomesNull(t *testing.T) {
	doc := sampleDocument()

	edited, err := ApplyFieldEdit(doc, "items.0.unitPrice", "")
	require.NoError(t, err)

	assert.Nil(t, edited.Items[0].UnitPrice)
	require.NotNil(t, doc.Items[0].UnitPrice)
	assert.Equal(t, 10.0, *doc.Items[0].UnitPrice)
}

func TestApplyFieldEdit_VerbatimAndDatePaths(t *testing.T) {
	doc := sampleDocument()

	edited, err := ApplyFieldEdit(doc, "supplier.name", " Acme & Sons ")
	require.NoError(t, err)
	assert.Equal(t, " Acme & Sons ", edited.Supplier.Name)
	assert.Equal(t, "ACME", doc.Supplier.Name)

	edited, err = ApplyFieldEdit(edited, "date", "08.07.25")
	require.NoError(t, err)
	require.NotNil(t, edited.Date)
	assert.Equal(t, "2025-07-08", *edited.Date)
	assert.Equal(t, " Acme & Sons ", edited.Supplier.Name)

	edited, err = ApplyFieldEdit(edited, "dueDate", "someday")
	require.NoError(t, err)
	assert.Nil(t, edited.DueDate)
}

func TestApplyFieldEdit_CreatesMissingLevels(t *testing.T) {
	doc := sampleDocument()

	edited, err := ApplyFieldEdit(doc, "items.1.description", "Added")
	require.NoError(t, err)
	require.Len(t, edited.Items, 2)
	assert.Equal(t, 2, edited.Items[1].Position)
	assert.Equal(t, "Added", edited.Items[1].Description)
	assert.Len(t, doc.Items, 1)

	edited, err = ApplyFieldEdit(doc, "project.reference", "P-77")
	require.NoError(t, err)
	require.NotNil(t, edited.Extra)
	assert.Equal(t, map[string]any{"reference": "P-77"}, edited.Extra["project"])
	assert.Nil(t, doc.Extra)
}

func TestApplyFieldEdit_AppendToEmptyItems(t *testing.T) {
	doc := normalize.Document(map[string]any{"documentType": "invoice"}, constants.MethodRegex, 0.6)

	edited, err := ApplyFieldEdit(doc, "items.0.description", "Widget")
	require.NoError(t, err)
	require.Len(t, edited.Items, 1)
	assert.Equal(t, 1, edited.Items[0].Position)
	assert.Equal(t, "Widget", edited.Items[0].Description)

	edited, err = ApplyFieldEdit(doc, "items.0.position", "7")
	require.NoError(t, err)
	assert.Equal(t, 7, edited.Items[0].Position)
}

func TestApplyFieldEdit_ItemIndexPastEnd(t *testing.T) {
	doc := sampleDocument()

	for _, path := range []string{"items.2.description", "items.200000.unitPrice", "items.99999999999999999999.code"} {
		out, err := ApplyFieldEdit(doc, path, "5")
		require.Error(t, err, path)
		assert.True(t, errors.Is(err, common.ErrInvalidPath), path)
		assert.Len(t, out.Items, 1, path)
	}
}

func TestApplyFieldEdit_InvalidPath(t *testing.T) {
	doc := sampleDocument()

	_, err := ApplyFieldEdit(doc, "totals..subtotal", "1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidPath))

	_, err = ApplyFieldEdit(doc, "", "1")
	assert.Error(t, err)
}

func TestApplyFieldEdits(t *testing.T) {
	doc := sampleDocument()
	e1, err := ParseFieldEdit("totals.vatAmount=190")
	require.NoError(t, err)

	edited, err := ApplyFieldEdits(doc, e1, FieldEdit{Path: "buyer.name", Value: "Bob"})
	require.NoError(t, err)
	assert.Equal(t, 190.0, *edited.Totals.VATAmount)
	assert.Equal(t, "Bob", edited.Buyer.Name)

	_, err = ParseFieldEdit("no-separator")
	assert.Error(t, err)
}

func TestPathClassification(t *testing.T) {
	assert.True(t, IsNumericPath("totals.subtotal"))
	assert.True(t, IsNumericPath("items.0.unitPrice"))
	assert.True(t, IsNumericPath("items.0.discountPercent"))
	assert.True(t, IsNumericPath("items.0.quantity"))
	assert.False(t, IsNumericPath("supplier.name"))
	assert.True(t, IsDatePath("dueDate"))
	assert.False(t, IsDatePath("documentNumber"))
}
