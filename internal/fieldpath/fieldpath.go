// Package fieldpath reads and writes dotted paths ("totals.subtotal",
// "items.0.unitPrice") in JSON documents.
package fieldpath

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// Split validates path and returns its segments.
func Split(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: empty path", common.ErrInvalidPath)
	}
	segs := strings.Split(path, ".")
	for _, s := range segs {
		if strings.TrimSpace(s) == "" {
			return nil, fmt.Errorf("%w: empty segment in %q", common.ErrInvalidPath, path)
		}
		if digits(s) {
			if _, ok := Index(s); !ok {
				return nil, fmt.Errorf("%w: index %s out of range in %q", common.ErrInvalidPath, s, path)
			}
		}
	}
	return segs, nil
}

// Leaf returns the last segment of path.
func Leaf(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Index parses an array index segment in [0, MaxInt32].
func Index(seg string) (int, bool) {
	if !digits(seg) {
		return 0, false
	}
	n, err := strconv.ParseInt(seg, 10, 32)
	if err != nil {
		return 0, false
	}
	return int(n), true
}

func digits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Set returns a copy of doc with value written at path. Missing objects are
// created; a numeric segment below a missing level creates an array. Indexes
// into an array may address an existing element or append exactly one.
func Set(doc []byte, path string, value any) ([]byte, error) {
	segs, err := Split(path)
	if err != nil {
		return nil, err
	}
	if err := checkWritable(doc, segs, path); err != nil {
		return nil, err
	}
	out, err := sjson.SetBytes(doc, join(segs), value)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", common.ErrInvalidPath, path, err)
	}
	return out, nil
}

// Get returns the value at path, or false if any segment is missing.
func Get(doc []byte, path string) (gjson.Result, bool) {
	segs, err := Split(path)
	if err != nil {
		return gjson.Result{}, false
	}
	r := gjson.GetBytes(doc, join(segs))
	return r, r.Exists()
}

// Len returns the number of elements of the array at path, 0 if there is none.
func Len(doc []byte, path string) int {
	r, ok := Get(doc, path)
	if !ok || !r.IsArray() {
		return 0
	}
	return len(r.Array())
}

func checkWritable(doc []byte, segs []string, path string) error {
	cur := gjson.ParseBytes(doc)
	for i, seg := range segs {
		switch {
		case cur.IsArray():
			idx, ok := Index(seg)
			if !ok {
				return fmt.Errorf("%w: %q is not an index in %q", common.ErrInvalidPath, seg, path)
			}
			if n := len(cur.Array()); idx > n {
				return fmt.Errorf("%w: index %d past end (%d) in %q", common.ErrInvalidPath, idx, n, path)
			}
		case cur.IsObject():
		case cur.Type == gjson.Null:
			// everything from here down is created, new arrays start empty
			for _, rest := range segs[i:] {
				if idx, ok := Index(rest); ok && idx > 0 {
					return fmt.Errorf("%w: index %d past end (0) in %q", common.ErrInvalidPath, idx, path)
				}
			}
			return nil
		default:
			return fmt.Errorf("%w: cannot descend into %s at %q in %q", common.ErrInvalidPath, cur.Type, seg, path)
		}
		cur = cur.Get(escape(seg))
	}
	return nil
}

func join(segs []string) string {
	parts := make([]string, len(segs))
	for i, s := range segs {
		parts[i] = escape(s)
	}
	return strings.Join(parts, ".")
}

// escape quotes path syntax characters so keys such as "a*b" or "x:y" are
// taken literally.
func escape(seg string) string {
	var b strings.Builder
	for i := 0; i < len(seg); i++ {
		c := seg[i]
		if c < 0x80 && !isKeyChar(c) {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isKeyChar(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
