package fieldpath

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

func TestSet_CreatesIntermediateLevels(t *testing.T) {
	doc := []byte(`{}`)

	doc, err := Set(doc, "totals.subtotal", 10.0)
	require.NoError(t, err)
	doc, err = Set(doc, "items.0.description", "first")
	require.NoError(t, err)

	v, ok := Get(doc, "totals.subtotal")
	require.True(t, ok)
	assert.Equal(t, 10.0, v.Float())
	assert.JSONEq(t, `{"totals":{"subtotal":10},"items":[{"description":"first"}]}`, string(doc))
}

func TestSet_DoesNotModifyInput(t *testing.T) {
	doc := []byte(`{"supplier":{"name":"old"}}`)

	out, err := Set(doc, "supplier.name", "new")
	require.NoError(t, err)

	v, _ := Get(out, "supplier.name")
	assert.Equal(t, "new", v.String())
	assert.JSONEq(t, `{"supplier":{"name":"old"}}`, string(doc))
}

func TestSet_InvalidPaths(t *testing.T) {
	doc := []byte(`{"totals":{"subtotal":5},"items":[]}`)

	for _, path := range []string{"", "totals..subtotal", ".x", "totals.subtotal.deep", "items.first", "items.-1"} {
		_, err := Set(doc, path, 1)
		require.Error(t, err, path)
		assert.True(t, errors.Is(err, common.ErrInvalidPath), path)
	}
}

func TestSet_IndexBounds(t *testing.T) {
	doc := []byte(`{"items":[{"code":"A"}]}`)

	out, err := Set(doc, "items.1.code", "B")
	require.NoError(t, err)
	assert.Equal(t, 2, Len(out, "items"))

	for _, path := range []string{"items.2.code", "items.200000.unitPrice", "extra.rows.3", "items.99999999999999999999.code"} {
		_, err := Set(doc, path, "x")
		require.Error(t, err, path)
		assert.True(t, errors.Is(err, common.ErrInvalidPath), path)
	}
}

func TestSet_LiteralKeys(t *testing.T) {
	doc, err := Set([]byte(`{}`), "extra.a*b", "star")
	require.NoError(t, err)
	doc, err = Set(doc, "extra.x:y", "colon")
	require.NoError(t, err)

	assert.JSONEq(t, `{"extra":{"a*b":"star","x:y":"colon"}}`, string(doc))
	v, ok := Get(doc, "extra.a*b")
	require.True(t, ok)
	assert.Equal(t, "star", v.String())
}

func TestGet_Missing(t *testing.T) {
	doc := []byte(`{"items":[{"code":"A"}]}`)

	_, ok := Get(doc, "items.3.code")
	assert.False(t, ok)
	_, ok = Get(doc, "buyer.name")
	assert.False(t, ok)

	v, ok := Get(doc, "items.0.code")
	assert.True(t, ok)
	assert.Equal(t, "A", v.String())
	assert.Equal(t, 0, Len(doc, "buyer"))
}

func TestIndex(t *testing.T) {
	n, ok := Index("12")
	assert.True(t, ok)
	assert.Equal(t, 12, n)
	for _, s := range []string{"", "-1", "+1", "x1", "1x", "99999999999999999999"} {
		_, ok := Index(s)
		assert.False(t, ok, s)
	}
}

func TestLeaf(t *testing.T) {
	assert.Equal(t, "unitPrice", Leaf("items.0.unitPrice"))
	assert.Equal(t, "date", Leaf("date"))
}
