package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/sophialabs/agenix/internal/infrastructure/ports"
)

var _ ports.Logger = (*SlogLogger)(nil)

// SlogLogger wraps slog to implement ports.Logger.
type SlogLogger struct {
	logger *slog.Logger
}

// New creates a new SlogLogger from an slog.Logger.
func New(logger *slog.Logger) *SlogLogger {
	return &SlogLogger{logger: logger}
}

// NewText creates a text logger writing to w at the named level.
func NewText(w io.Writer, level string) *SlogLogger {
	return New(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})))
}

func (l *SlogLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *SlogLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *SlogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }
func (l *SlogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }

// ParseLevel maps debug, info, warn and error to slog levels. Anything else
// is treated as info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var _ ports.Logger = (*MaskingLogger)(nil)

// MaskingLogger masks the message and every string argument before
// delegating.
type MaskingLogger struct {
	next   ports.Logger
	masker *Masker
}

func NewMaskingLogger(next ports.Logger, m *Masker) *MaskingLogger {
	return &MaskingLogger{next: next, masker: m}
}

func (l *MaskingLogger) Info(msg string, args ...any) {
	l.next.Info(l.masker.Mask(msg), l.maskArgs(args)...)
}

func (l *MaskingLogger) Warn(msg string, args ...any) {
	l.next.Warn(l.masker.Mask(msg), l.maskArgs(args)...)
}

func (l *MaskingLogger) Error(msg string, args ...any) {
	l.next.Error(l.masker.Mask(msg), l.maskArgs(args)...)
}

func (l *MaskingLogger) Debug(msg string, args ...any) {
	l.next.Debug(l.masker.Mask(msg), l.maskArgs(args)...)
}

func (l *MaskingLogger) maskArgs(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case string:
			out[i] = l.masker.Mask(v)
		case error:
			out[i] = l.masker.Mask(v.Error())
		default:
			out[i] = a
		}
	}
	return out
}
