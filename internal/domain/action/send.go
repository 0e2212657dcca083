package action

import (
	"context"
	"fmt"

	"github.com/sophialabs/agenix/internal/domain/testcontext"
)

// SendAction builds a message and sends it to an endpoint.
type SendAction struct {
	endpoint Endpoint
	message  *MessageBuilder
}

var _ Action = (*SendAction)(nil)

// SendBuilder assembles a SendAction.
type SendBuilder struct {
	action SendAction
}

// Send starts a send action on endpoint.
func Send(endpoint Endpoint) *SendBuilder {
	return &SendBuilder{action: SendAction{endpoint: endpoint, message: NewMessage()}}
}

func (b *SendBuilder) Message(m *MessageBuilder) *SendBuilder {
	b.action.message = m
	return b
}

func (b *SendBuilder) Build() *SendAction {
	a := b.action
	return &a
}

func (a *SendAction) Name() string { return "send" }

func (a *SendAction) Execute(ctx context.Context, tctx *testcontext.Context) error {
	msg, err := a.message.Build(tctx)
	if err != nil {
		return fmt.Errorf("build message for endpoint %s: %w", a.endpoint.Name(), err)
	}
	if err := a.endpoint.Send(ctx, msg); err != nil {
		return fmt.Errorf("send to endpoint %s: %w", a.endpoint.Name(), err)
	}
	return nil
}
