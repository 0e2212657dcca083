package convert

import (
	"fmt"
	"sort"
	"strings"
)

// ParseList parses "[a, b, c]" (brackets optional) into its elements.
// An empty or "[]" string yields an empty slice.
func ParseList(s string) []string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// ParseMap parses "{k=v, k2=v2}" (braces optional) into a map.
// Entries without '=' map to an empty value.
func ParseMap(s string) map[string]string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")
	out := map[string]string{}
	if strings.TrimSpace(s) == "" {
		return out
	}
	for _, entry := range strings.Split(s, ",") {
		k, v, _ := strings.Cut(entry, "=")
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		out[k] = strings.TrimSpace(v)
	}
	return out
}

// FormatMap renders m as "{k=v, k2=v2}" with keys sorted.
func FormatMap(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(m[k])
	}
	b.WriteByte('}')
	return b.String()
}

func fallbackString(v any) string {
	return fmt.Sprint(v)
}
