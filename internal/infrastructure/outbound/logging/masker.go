package logging

import (
	"regexp"
	"strings"
)

// MaskValue replaces sensitive values.
const MaskValue = "****"

// DefaultMaskKeywords are masked when no keywords are configured.
var DefaultMaskKeywords = []string{"password", "secret", "secretKey"}

// Masker hides the values of sensitive keys in XML elements and attributes,
// JSON members and key=value pairs.
type Masker struct {
	patterns []*regexp.Regexp
}

// NewMasker builds a masker for keywords. Matching ignores case. An empty
// list yields a masker that returns its input unchanged.
func NewMasker(keywords []string) *Masker {
	var quoted []string
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			quoted = append(quoted, regexp.QuoteMeta(k))
		}
	}
	if len(quoted) == 0 {
		return &Masker{}
	}
	kw := "(?:" + strings.Join(quoted, "|") + ")"
	return &Masker{patterns: []*regexp.Regexp{
		// <password>value</password>, <ns:password a="b">value</ns:password>
		regexp.MustCompile(`(?i)(<(?:[\w.-]+:)?` + kw + `(?:\s[^>]*)?>)([^<]*)(</)`),
		// password="value"
		regexp.MustCompile(`(?i)(\s(?:[\w.-]+:)?` + kw + `\s*=\s*["'])([^"']*)(["'])`),
		// "password": "value"
		regexp.MustCompile(`(?i)("` + kw + `"\s*:\s*")((?:[^"\\]|\\.)*)(")`),
		// password=value
		regexp.MustCompile(`(?i)(\b` + kw + `\s*=\s*)([^\s,;&"'<>]+)()`),
	}}
}

// Mask returns s with sensitive values replaced by MaskValue.
func (m *Masker) Mask(s string) string {
	if m == nil {
		return s
	}
	for _, p := range m.patterns {
		s = p.ReplaceAllString(s, "${1}"+MaskValue+"${3}")
	}
	return s
}
