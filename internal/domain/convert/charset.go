package convert

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// charset pairs an encoding with its name. Encoding errors fall back to UTF-8.
type charset struct {
	name string
	enc  encoding.Encoding
}

func lookupCharset(name string) *charset {
	if name == "" || strings.EqualFold(name, "utf-8") || strings.EqualFold(name, "utf8") {
		return &charset{name: "utf-8", enc: unicode.UTF8}
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return &charset{name: "utf-8", enc: unicode.UTF8}
	}
	canonical, err := htmlindex.Name(enc)
	if err != nil {
		canonical = strings.ToLower(name)
	}
	return &charset{name: canonical, enc: enc}
}

func (c *charset) encode(s string) []byte {
	if c.enc == unicode.UTF8 {
		return []byte(s)
	}
	b, err := c.enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return []byte(s)
	}
	return b
}

func (c *charset) decode(b []byte) string {
	if c.enc == unicode.UTF8 {
		return string(b)
	}
	out, err := c.enc.NewDecoder().Bytes(b)
	if err != nil || !utf8.Valid(out) {
		return string(b)
	}
	return string(out)
}
