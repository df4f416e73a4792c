package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocaleNumber(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
		ok    bool
	}{
		{"german thousands and decimal", "1.234,56", 1234.56, true},
		{"english thousands and decimal", "1,234.56", 1234.56, true},
		{"comma decimal", "4,25", 4.25, true},
		{"plain", "1500", 1500, true},
		{"inner whitespace", " 1 234,50 ", 1234.5, true},
		{"negative", "-12,5", -12.5, true},
		{"trailing currency", "99,90 €", 99.9, true},
		{"leading currency", "€ 1.000,00", 1000, true},
		{"trailing text", "19%", 19, true},
		{"letters", "abc", 0, false},
		{"empty", "", 0, false},
		{"spaces only", "   ", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLocaleNumber(tt.input)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestNumber_IdempotentOnNumericInput(t *testing.T) {
	got := Number(1234.5)
	require.NotNil(t, got)
	assert.Equal(t, 1234.5, *got)

	again := Number(*got)
	require.NotNil(t, again)
	assert.Equal(t, *got, *again)

	assert.Equal(t, 3.0, *Number(3))
	assert.Equal(t, 2.5, *Number(json.Number("2.5")))
}

func TestNumber_Unparseable(t *testing.T) {
	assert.Nil(t, Number(nil))
	assert.Nil(t, Number("n/a"))
	assert.Nil(t, Number(map[string]any{}))
	assert.Nil(t, Number(""))
}

func TestNumber_AllIntegerKinds(t *testing.T) {
	for _, v := range []any{int8(7), int16(7), int32(7), int64(7), uint(7), uint8(7), uint16(7), uint32(7), uint64(7)} {
		got := Number(v)
		require.NotNil(t, got, "%T", v)
		assert.Equal(t, 7.0, *got, "%T", v)
	}
}
