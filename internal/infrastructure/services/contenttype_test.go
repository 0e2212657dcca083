package services_test

import (
	"testing"

	"github.com/sophialabs/agenix/internal/domain/message"
	"github.com/sophialabs/agenix/internal/infrastructure/services"
)

func TestContentTypeFor(t *testing.T) {
	tests := []struct {
		name     string
		typ      message.Type
		payload  []byte
		expected string
	}{
		{"json", message.JSON, nil, "application/json"},
		{"xml", message.XML, nil, "application/xml"},
		{"xhtml", message.XHTML, nil, "application/xhtml+xml"},
		{"csv", message.CSV, nil, "text/csv"},
		{"plaintext", message.Plaintext, nil, "text/plain; charset=utf-8"},
		{"binary", message.Binary, []byte("x"), "application/octet-stream"},
		{"gzip base64 is binary", message.GzipBase64, nil, "application/octet-stream"},
		{"unspecified sniffs html", message.Unspecified, []byte("<html><body>hi</body></html>"), "text/html; charset=utf-8"},
		{"unspecified empty", message.Unspecified, nil, "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := services.ContentTypeFor(tt.typ, tt.payload); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestTypeFromContentType(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		expected    message.Type
	}{
		{"json", "application/json; charset=utf-8", "", message.JSON},
		{"json suffix", "application/problem+json", "", message.JSON},
		{"xml", "application/xml", "", message.XML},
		{"text xml", "text/xml", "", message.XML},
		{"soap suffix", "application/soap+xml", "", message.XML},
		{"xhtml", "application/xhtml+xml", "", message.XHTML},
		{"csv", "text/csv", "", message.CSV},
		{"plain", "text/plain", "{}", message.Plaintext},
		{"octet stream", "application/octet-stream", "abc", message.Binary},
		{"sniff json", "", `{"a":1}`, message.JSON},
		{"sniff xml", "", "<a/>", message.XML},
		{"sniff text", "", "hello", message.Plaintext},
		{"invalid media type sniffs", "///", "<a/>", message.XML},
		{"binary body", "", "\xff\xfe\x00", message.Binary},
		{"empty", "", "", message.Unspecified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := services.TypeFromContentType(tt.contentType, []byte(tt.body)); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
