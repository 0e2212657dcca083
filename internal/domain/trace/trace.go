// Package trace records the messages exchanged with endpoints so that a
// running test suite can be inspected.
package trace

import (
	"time"

	"github.com/sophialabs/agenix/internal/domain/convert"
	"github.com/sophialabs/agenix/internal/domain/message"
)

// Direction tells which way a message travelled.
type Direction string

const (
	Sent     Direction = "sent"
	Received Direction = "received"
	Purged   Direction = "purged"
)

// Entry is one recorded message exchange.
type Entry struct {
	Timestamp time.Time         `json:"timestamp"`
	Direction Direction         `json:"direction"`
	Endpoint  string            `json:"endpoint"`
	MessageID string            `json:"message_id"`
	Type      string            `json:"type"`
	Headers   map[string]string `json:"headers,omitempty"`
	Payload   string            `json:"payload"`
}

// Listener is notified about message exchanges.
type Listener interface {
	OnMessage(dir Direction, endpoint string, msg message.Message)
}

// Recorder turns exchanges into entries of a bounded Log. Payload and
// header values pass through mask before they are stored.
type Recorder struct {
	log  *Log
	mask func(string) string
	now  func() time.Time
	conv *convert.Engine
}

var _ Listener = (*Recorder)(nil)

// NewRecorder creates a Recorder writing to log. mask may be nil.
func NewRecorder(log *Log, mask func(string) string, now func() time.Time) *Recorder {
	if mask == nil {
		mask = func(s string) string { return s }
	}
	if now == nil {
		now = time.Now
	}
	return &Recorder{log: log, mask: mask, now: now, conv: convert.New()}
}

func (r *Recorder) OnMessage(dir Direction, endpoint string, msg message.Message) {
	headers := make(map[string]string)
	for k, v := range message.UserHeaders(msg) {
		headers[k] = r.mask(r.conv.ToString(v))
	}
	r.log.Add(Entry{
		Timestamp: r.now(),
		Direction: dir,
		Endpoint:  endpoint,
		MessageID: msg.ID(),
		Type:      string(msg.Type()),
		Headers:   headers,
		Payload:   r.mask(message.PayloadString(msg, r.conv)),
	})
}
