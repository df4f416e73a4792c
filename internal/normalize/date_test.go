package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocaleDate(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"08.07.25", "2025-07-08", true},
		{"2025-07-08", "2025-07-08", true},
		{"8/7/2025", "2025-07-08", true},
		{"1-12-2024.", "2024-12-01", true},
		{"31.02.2025", "2025-02-31", true},
		{"2025-07-08T10:00:00Z", "2025-07-08", true},
		{"32.13.99", "", false},
		{"01.01.1900", "", false},
		{"00.05.2024", "", false},
		{"July 8th", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseLocaleDate(tt.input)
			require.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDate(t *testing.T) {
	require.NotNil(t, Date("08.07.25"))
	assert.Equal(t, "2025-07-08", *Date("08.07.25"))
	assert.Equal(t, "2024-03-01", *Date(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))
	assert.Nil(t, Date(42.0))
	assert.Nil(t, Date("tomorrow"))
}
