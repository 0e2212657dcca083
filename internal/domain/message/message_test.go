package message_test

import (
	"strings"
	"testing"
	"time"

	"github.com/sophialabs/agenix/internal/domain/message"
)

func TestNew_GeneratesIdentity(t *testing.T) {
	a := message.New("a")
	b := message.New("b")
	if a.ID() == "" || a.ID() == b.ID() {
		t.Fatalf("expected distinct generated ids, got %q and %q", a.ID(), b.ID())
	}
	if v, ok := a.Header(message.HeaderID); !ok || v != a.ID() {
		t.Errorf("expected id header, got %v", v)
	}
	if _, ok := a.Header(message.HeaderTimestamp); !ok {
		t.Error("expected timestamp header")
	}
}

func TestHeader_RoundTrip(t *testing.T) {
	m := message.New("payload")
	values := []any{"text", 42, int64(7), true, 1.5, []string{"a", "b"}}
	for _, v := range values {
		if err := m.SetHeader("h", v); err != nil {
			t.Fatalf("SetHeader failed: %v", err)
		}
		got, ok := m.Header("h")
		if !ok {
			t.Fatalf("header not found after set")
		}
		if s, isSlice := v.([]string); isSlice {
			if gs := got.([]string); len(gs) != len(s) || gs[0] != s[0] {
				t.Errorf("expected %v, got %v", v, got)
			}
			continue
		}
		if got != v {
			t.Errorf("expected %v, got %v", v, got)
		}
	}
}

func TestReservedHeaders(t *testing.T) {
	m := message.New("payload", message.WithID("fixed"))
	if err := m.RemoveHeader(message.HeaderID); err == nil {
		t.Error("expected error removing reserved id header")
	}
	if err := m.SetHeader(message.HeaderTimestamp, 0); err == nil {
		t.Error("expected error overwriting reserved timestamp header")
	}
	m.ForceHeader(message.HeaderID, "forced")
	if v, _ := m.Header(message.HeaderID); v != "forced" {
		t.Errorf("expected forced header, got %v", v)
	}
	if m.ID() != "fixed" {
		t.Errorf("identity must not change, got %s", m.ID())
	}
}

func TestWithHeaders_IgnoresReserved(t *testing.T) {
	m := message.New("p", message.WithHeaders(map[string]any{
		message.HeaderID: "spoofed",
		"operation":      "sayHello",
	}))
	if v, _ := m.Header(message.HeaderID); v == "spoofed" {
		t.Error("reserved header must not be copied")
	}
	if v, _ := m.Header("operation"); v != "sayHello" {
		t.Errorf("expected operation header, got %v", v)
	}
}

func TestType_Inference(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		want    message.Type
	}{
		{"xml", "  <Hello/>", message.XML},
		{"json object", `{"a":1}`, message.JSON},
		{"json array", `[1,2]`, message.JSON},
		{"text", "hello", message.Plaintext},
		{"blank", "   ", message.Unspecified},
		{"nil", nil, message.Unspecified},
		{"binary", []byte{0xff, 0x00}, message.Binary},
		{"json bytes", []byte(`{"a":1}`), message.JSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := message.New(tt.payload).Type(); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestType_ExplicitWins(t *testing.T) {
	m := message.New(`{"a":1}`, message.WithType(message.Plaintext))
	if m.Type() != message.Plaintext {
		t.Errorf("expected explicit type, got %s", m.Type())
	}
	m.SetType(message.Unspecified)
	if m.Type() != message.JSON {
		t.Errorf("expected inferred type after reset, got %s", m.Type())
	}
}

func TestParseType(t *testing.T) {
	if message.ParseType("json") != message.JSON {
		t.Error("expected JSON")
	}
	if message.ParseType("auto") != message.Unspecified {
		t.Error("expected Unspecified for auto")
	}
	if !message.ParseType("gzip_base64").IsBinary() {
		t.Error("expected binary type")
	}
}

func TestCopy_KeepsIdentity(t *testing.T) {
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := message.New("p", message.WithTimestamp(ts), message.WithName("greeting"))
	_ = m.SetHeader("a", "1")
	m.AddHeaderData("<soap:Header/>")

	c := message.Copy(m)
	if c.ID() != m.ID() || !c.Timestamp().Equal(ts) || c.Name() != "greeting" {
		t.Errorf("identity not preserved: %s %v %s", c.ID(), c.Timestamp(), c.Name())
	}
	_ = c.SetHeader("a", "2")
	if v, _ := m.Header("a"); v != "1" {
		t.Error("copy must not share headers")
	}
	if len(c.HeaderData()) != 1 {
		t.Errorf("expected header data to be copied")
	}
}

func TestFindHeader_IgnoreCase(t *testing.T) {
	m := message.New("p", message.WithHeaders(map[string]any{"operation": "sayHello"}))
	if _, _, ok := message.FindHeader(m, "Operation", false); ok {
		t.Error("expected case-sensitive lookup to miss")
	}
	name, v, ok := message.FindHeader(m, "Operation", true)
	if !ok || name != "operation" || v != "sayHello" {
		t.Errorf("unexpected lookup result: %s %v %v", name, v, ok)
	}
}

func TestParseTypedHeader(t *testing.T) {
	tests := []struct {
		raw  string
		want any
	}{
		{"{int}42", 42},
		{"{long}9000000000", int64(9000000000)},
		{"{boolean}true", true},
		{"{double}1.25", 1.25},
		{"{string}{x}", "{x}"},
		{"plain", "plain"},
		{`{"a":1}`, `{"a":1}`},
		{"{}", "{}"},
		{"{x}", "{x}"},
		{"{uuid}abc", "{uuid}abc"},
		{"{int", "{int"},
	}
	for _, tt := range tests {
		got, err := message.ParseTypedHeader(tt.raw)
		if err != nil {
			t.Fatalf("ParseTypedHeader(%q) failed: %v", tt.raw, err)
		}
		if got != tt.want {
			t.Errorf("ParseTypedHeader(%q) = %v (%T), want %v (%T)", tt.raw, got, got, tt.want, tt.want)
		}
	}

	if _, err := message.ParseTypedHeader("{int}abc"); err == nil {
		t.Error("expected error for invalid int")
	}
}

func TestPrint_MasksContent(t *testing.T) {
	m := message.New("secret-payload", message.WithHeaders(map[string]any{"token": "abc"}))
	out := message.Print(m, func(s string) string { return strings.ReplaceAll(s, "secret", "****") })
	if strings.Contains(out, "secret-payload") {
		t.Errorf("expected masked payload: %s", out)
	}
	if !strings.Contains(out, "token=abc") {
		t.Errorf("expected header in output: %s", out)
	}
}
