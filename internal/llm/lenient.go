package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// ParseJSONObject decodes model output into a map. A strict parse of the whole
// content reports recovered=false. Otherwise the first balanced {...} block
// (prose or markdown fences around it are ignored) is parsed and recovered=true.
func ParseJSONObject(content string) (out map[string]any, recovered bool, err error) {
	s := strings.TrimSpace(content)
	if err := json.Unmarshal([]byte(s), &out); err == nil && out != nil {
		return out, false, nil
	}

	block, ok := FirstBalancedObject(s)
	if !ok {
		return nil, false, fmt.Errorf("%w: no JSON object found", common.ErrUnparseableResponse)
	}
	out = nil
	if err := json.Unmarshal([]byte(block), &out); err != nil || out == nil {
		return nil, false, fmt.Errorf("%w: recovered block: %v", common.ErrUnparseableResponse, err)
	}
	return out, true, nil
}

// FirstBalancedObject returns the first {...} substring whose braces balance,
// ignoring braces inside JSON strings.
func FirstBalancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
