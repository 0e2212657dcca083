package logging_test

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/sophialabs/agenix/internal/infrastructure/outbound/logging"
	"github.com/sophialabs/agenix/internal/testutil"
)

func TestSlogLogger_AllLevels(t *testing.T) {
	tests := []struct {
		name  string
		call  func(l *logging.SlogLogger)
		level string
	}{
		{"Info", func(l *logging.SlogLogger) { l.Info("info message", "key", "val") }, "INFO"},
		{"Warn", func(l *logging.SlogLogger) { l.Warn("warn message", "key", "val") }, "WARN"},
		{"Error", func(l *logging.SlogLogger) { l.Error("error message", "key", "val") }, "ERROR"},
		{"Debug", func(l *logging.SlogLogger) { l.Debug("debug message", "key", "val") }, "DEBUG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := logging.NewText(&buf, "debug")

			tt.call(logger)

			output := buf.String()
			if !strings.Contains(output, tt.level) {
				t.Errorf("expected output to contain %q, got: %s", tt.level, output)
			}
			if !strings.Contains(output, "key=val") {
				t.Errorf("expected output to contain key=val, got: %s", output)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := logging.ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMasker(t *testing.T) {
	m := logging.NewMasker(logging.DefaultMaskKeywords)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"xml element", "<login><password>hunter2</password></login>", "<login><password>****</password></login>"},
		{"xml element with namespace", `<ns:secretKey id="1">abc</ns:secretKey>`, `<ns:secretKey id="1">****</ns:secretKey>`},
		{"xml attribute", `<user password="hunter2" name="bob"/>`, `<user password="****" name="bob"/>`},
		{"json member", `{"user":"bob","password":"hun\"ter2"}`, `{"user":"bob","password":"****"}`},
		{"key value", "user=bob password=hunter2 secret=x1", "user=bob password=**** secret=****"},
		{"case insensitive", "<Password>hunter2</Password>", "<Password>****</Password>"},
		{"untouched", "<user>bob</user>", "<user>bob</user>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Mask(tt.in); got != tt.want {
				t.Errorf("Mask(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMasker_NoKeywords(t *testing.T) {
	in := "password=hunter2"
	if got := logging.NewMasker(nil).Mask(in); got != in {
		t.Errorf("Mask = %q, want input unchanged", got)
	}
	var m *logging.Masker
	if got := m.Mask(in); got != in {
		t.Errorf("nil Mask = %q, want input unchanged", got)
	}
}

func TestMaskingLogger(t *testing.T) {
	rec := &testutil.RecordingLogger{}
	l := logging.NewMaskingLogger(rec, logging.NewMasker([]string{"password"}))

	l.Info("payload password=hunter2", "body", `{"password":"hunter2"}`, "count", 3)
	l.Error("failed", "error", errors.New("password=hunter2"))

	entries := rec.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Msg != "payload password=****" {
		t.Errorf("msg = %q", entries[0].Msg)
	}
	if entries[0].Args[1] != `{"password":"****"}` {
		t.Errorf("body arg = %v", entries[0].Args[1])
	}
	if entries[0].Args[3] != 3 {
		t.Errorf("non-string arg changed: %v", entries[0].Args[3])
	}
	if entries[1].Args[1] != "password=****" {
		t.Errorf("error arg = %v", entries[1].Args[1])
	}
}
