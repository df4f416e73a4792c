package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

func TestParseJSONObject_Clean(t *testing.T) {
	out, recovered, err := ParseJSONObject(` {"documentType":"invoice","totals":{"totalAmount":10}} `)
	require.NoError(t, err)
	assert.False(t, recovered)
	assert.Equal(t, "invoice", out["documentType"])
}

func TestParseJSONObject_RecoversFromProseAndFences(t *testing.T) {
	content := "Sure! Here is the data:\n```json\n{\"documentNumber\":\"A-{1}\",\"items\":[{\"description\":\"x\"}]}\n```\nAnything else?"

	out, recovered, err := ParseJSONObject(content)
	require.NoError(t, err)
	assert.True(t, recovered)
	assert.Equal(t, "A-{1}", out["documentNumber"])
}

func TestParseJSONObject_Failures(t *testing.T) {
	for _, content := range []string{"", "no json here", "{\"a\": ", "[1,2,3]", "{not json}"} {
		_, _, err := ParseJSONObject(content)
		require.Error(t, err, content)
		assert.True(t, errors.Is(err, common.ErrUnparseableResponse), content)
	}
}

func TestFirstBalancedObject(t *testing.T) {
	got, ok := FirstBalancedObject(`x {"a":{"b":"}"}} {"c":1}`)
	require.True(t, ok)
	assert.Equal(t, `{"a":{"b":"}"}}`, got)

	_, ok = FirstBalancedObject(`{"open": true`)
	assert.False(t, ok)
}
