package normalize

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var (
	reNumberPrefix   = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
	currencyPrefixes = []string{"€", "$", "£", "¥", "₺", "CHF", "EUR", "USD", "GBP"}
)

// ParseLocaleNumber converts a locale formatted number ("1.234,56", "1,234.56",
// "4,25") into a float. When both separators appear, the first one is the
// thousands separator. A lone comma is a decimal point. Like parseFloat, the
// longest numeric prefix is used, so trailing units or symbols are ignored.
func ParseLocaleNumber(raw string) (float64, bool) {
	s := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
	for _, p := range currencyPrefixes {
		if strings.HasPrefix(s, p) {
			s = strings.TrimPrefix(s, p)
			break
		}
	}
	if s == "" {
		return 0, false
	}

	dot := strings.Index(s, ".")
	comma := strings.Index(s, ",")
	switch {
	case dot >= 0 && comma >= 0:
		if dot < comma {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case comma >= 0:
		s = strings.ReplaceAll(s, ",", ".")
	}

	prefix := reNumberPrefix.FindString(s)
	if prefix == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(strings.TrimPrefix(prefix, "+"))
	if err != nil {
		return 0, false
	}
	f := d.InexactFloat64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Number coerces a loosely typed value into a float pointer. Numeric input is
// returned unchanged, strings go through ParseLocaleNumber, anything else is nil.
func Number(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int8:
		f = float64(t)
	case int16:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case uint:
		f = float64(t)
	case uint8:
		f = float64(t)
	case uint16:
		f = float64(t)
	case uint32:
		f = float64(t)
	case uint64:
		f = float64(t)
	case json.Number:
		parsed, ok := ParseLocaleNumber(t.String())
		if !ok {
			return nil
		}
		f = parsed
	case decimal.Decimal:
		f = t.InexactFloat64()
	case *float64:
		if t == nil {
			return nil
		}
		f = *t
	case string:
		parsed, ok := ParseLocaleNumber(t)
		if !ok {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
