package queue

import (
	"context"
	"time"

	"github.com/sophialabs/agenix/internal/domain/action"
	"github.com/sophialabs/agenix/internal/domain/failure"
	"github.com/sophialabs/agenix/internal/domain/message"
	"github.com/sophialabs/agenix/internal/domain/selector"
	"github.com/sophialabs/agenix/internal/domain/trace"
)

var (
	_ action.Endpoint = (*DirectEndpoint)(nil)
	_ action.Purger   = (*DirectEndpoint)(nil)
)

// DirectEndpoint sends to and receives from a MessageQueue in process.
type DirectEndpoint struct {
	queue    *MessageQueue
	listener trace.Listener
}

// NewDirectEndpoint creates an endpoint on q. listener may be nil.
func NewDirectEndpoint(q *MessageQueue, listener trace.Listener) *DirectEndpoint {
	return &DirectEndpoint{queue: q, listener: listener}
}

func (e *DirectEndpoint) Name() string { return e.queue.Name() }

func (e *DirectEndpoint) Send(ctx context.Context, msg message.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.queue.Send(msg)
	e.notify(trace.Sent, msg)
	return nil
}

func (e *DirectEndpoint) Receive(ctx context.Context, sel selector.Selector, timeout time.Duration) (message.Message, error) {
	msg, err := e.queue.ReceiveWithin(ctx, sel, timeout)
	if err != nil || msg == nil {
		return nil, err
	}
	e.notify(trace.Received, msg)
	return msg, nil
}

func (e *DirectEndpoint) Purge(sel selector.Selector) int {
	purged := e.queue.PurgeMessages(sel)
	for _, m := range purged {
		e.notify(trace.Purged, m)
	}
	return len(purged)
}

func (e *DirectEndpoint) notify(dir trace.Direction, msg message.Message) {
	if e.listener != nil {
		e.listener.OnMessage(dir, e.Name(), msg)
	}
}

// Endpoints hands out direct endpoints on the queues of a registry.
type Endpoints struct {
	registry *Registry
	listener trace.Listener
}

// NewEndpoints creates a factory whose endpoints report to listener.
func NewEndpoints(r *Registry, listener trace.Listener) *Endpoints {
	return &Endpoints{registry: r, listener: listener}
}

// Endpoint returns a direct endpoint on the queue called name, creating
// the queue on first use.
func (e *Endpoints) Endpoint(name string) (action.Endpoint, error) {
	if name == "" {
		return nil, failure.System(failure.ErrUnknownEndpoint, "endpoint name must not be empty")
	}
	return NewDirectEndpoint(e.registry.Queue(name), e.listener), nil
}
