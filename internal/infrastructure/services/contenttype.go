package services

import (
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/sophialabs/agenix/internal/domain/message"
)

// ContentTypeFor returns the HTTP content type used when a message of type
// t leaves the queue bridge. Unknown types are sniffed from payload.
func ContentTypeFor(t message.Type, payload []byte) string {
	switch {
	case t.Is(message.JSON):
		return "application/json"
	case t.Is(message.XML):
		return "application/xml"
	case t.Is(message.XHTML):
		return "application/xhtml+xml"
	case t.Is(message.CSV):
		return "text/csv"
	case t.Is(message.Plaintext):
		return "text/plain; charset=utf-8"
	case t.IsBinary():
		return "application/octet-stream"
	}

	if len(payload) > 0 {
		return http.DetectContentType(payload)
	}
	return "application/octet-stream"
}

// TypeFromContentType determines the message type of a published body from
// its content type, falling back to the shape of the body.
func TypeFromContentType(contentType string, body []byte) message.Type {
	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err == nil {
			switch {
			case mediaType == "application/json", strings.HasSuffix(mediaType, "+json"):
				return message.JSON
			case mediaType == "application/xhtml+xml":
				return message.XHTML
			case mediaType == "application/xml", mediaType == "text/xml", strings.HasSuffix(mediaType, "+xml"):
				return message.XML
			case mediaType == "text/csv":
				return message.CSV
			case mediaType == "application/octet-stream":
				return message.Binary
			case strings.HasPrefix(mediaType, "text/"):
				return message.Plaintext
			}
		}
	}

	if len(body) == 0 {
		return message.Unspecified
	}
	if !utf8.Valid(body) {
		return message.Binary
	}
	return message.Sniff(string(body))
}
