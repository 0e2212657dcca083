package message

import (
	"strings"
	"unicode/utf8"
)

// Type classifies message content.
type Type string

const (
	XML          Type = "XML"
	XHTML        Type = "XHTML"
	JSON         Type = "JSON"
	CSV          Type = "CSV"
	Plaintext    Type = "PLAINTEXT"
	Binary       Type = "BINARY"
	BinaryBase64 Type = "BINARY_BASE64"
	Gzip         Type = "GZIP"
	GzipBase64   Type = "GZIP_BASE64"
	Unspecified  Type = "UNSPECIFIED"
)

// ParseType maps a user supplied name to a Type. Names are case-insensitive;
// empty and "auto" map to Unspecified. Unknown names are kept (upper-cased)
// so custom validators can claim them.
func ParseType(s string) Type {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "auto") {
		return Unspecified
	}
	return Type(strings.ToUpper(s))
}

// Is reports whether t names the same type as other, ignoring case.
func (t Type) Is(other Type) bool {
	return strings.EqualFold(string(t), string(other))
}

// IsBinary reports whether t carries binary content.
func (t Type) IsBinary() bool {
	switch Type(strings.ToUpper(string(t))) {
	case Binary, BinaryBase64, Gzip, GzipBase64:
		return true
	}
	return false
}

func (t Type) String() string { return string(t) }

// Sniff infers the type of textual content from its shape: a leading '<' is
// XML, a leading '{' or '[' is JSON, blank content is Unspecified and
// anything else is plain text.
func Sniff(content string) Type {
	trimmed := strings.TrimSpace(content)
	switch {
	case trimmed == "":
		return Unspecified
	case strings.HasPrefix(trimmed, "<"):
		return XML
	case strings.HasPrefix(trimmed, "{"), strings.HasPrefix(trimmed, "["):
		return JSON
	default:
		return Plaintext
	}
}

// InferType infers the type of an arbitrary payload.
func InferType(payload any) Type {
	switch p := payload.(type) {
	case nil:
		return Unspecified
	case string:
		return Sniff(p)
	case []byte:
		if len(p) > 0 && utf8.Valid(p) && Sniff(string(p)) != Plaintext {
			return Sniff(string(p))
		}
		if len(p) == 0 {
			return Unspecified
		}
		return Binary
	case interface{ String() string }:
		return Sniff(p.String())
	default:
		return Plaintext
	}
}
