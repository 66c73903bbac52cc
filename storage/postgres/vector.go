package postgres

import (
	"fmt"
	"strconv"
	"strings"
)

// ToLiteral renders v in pgvector's text input format.
func ToLiteral(v []float32) string {
	parts := make([]string, 0, len(v))
	for _, x := range v {
		parts = append(parts, strconv.FormatFloat(float64(x), 'f', -1, 32))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// literalOrNil returns nil for an empty vector so the column stays NULL.
func literalOrNil(v []float32) *string {
	if len(v) == 0 {
		return nil
	}
	s := ToLiteral(v)
	return &s
}

// ParseLiteral parses pgvector's text output format.
func ParseLiteral(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("invalid vector literal %q", s)
	}
	body := strings.TrimSpace(s[1 : len(s)-1])
	if body == "" {
		return nil, nil
	}
	fields := strings.Split(body, ",")
	out := make([]float32, 0, len(fields))
	for _, f := range fields {
		x, err := strconv.ParseFloat(strings.TrimSpace(f), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vector element %q: %w", f, err)
		}
		out = append(out, float32(x))
	}
	return out, nil
}
