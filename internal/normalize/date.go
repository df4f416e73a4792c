package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	reISODate    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	reISOStamp   = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})[T ]`)
	reLocaleDate = regexp.MustCompile(`^(\d{1,2})[./-](\d{1,2})[./-](\d{2,4})\.?$`)
)

// ParseLocaleDate converts day-first dates ("08.07.25", "8/7/2025") into
// YYYY-MM-DD. ISO input is returned unchanged. Two digit years are 20xx.
// Only ranges are checked, so 31.02.2025 is accepted.
func ParseLocaleDate(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	if reISODate.MatchString(s) {
		return s, true
	}
	if m := reISOStamp.FindStringSubmatch(s); m != nil {
		return m[1], true
	}

	m := reLocaleDate.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	yearText := m[3]
	if len(yearText) == 2 {
		yearText = "20" + yearText
	}
	year, _ := strconv.Atoi(yearText)

	if year <= 1900 || month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
}

// Date coerces a loosely typed value into an ISO date pointer.
func Date(v any) *string {
	switch t := v.(type) {
	case string:
		if s, ok := ParseLocaleDate(t); ok {
			return &s
		}
	case *string:
		if t != nil {
			return Date(*t)
		}
	case time.Time:
		if !t.IsZero() {
			s := t.Format(time.DateOnly)
			return &s
		}
	}
	return nil
}
