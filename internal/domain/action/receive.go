package action

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/sophialabs/agenix/internal/domain/extract"
	"github.com/sophialabs/agenix/internal/domain/failure"
	"github.com/sophialabs/agenix/internal/domain/message"
	"github.com/sophialabs/agenix/internal/domain/pathexpr"
	"github.com/sophialabs/agenix/internal/domain/selector"
	"github.com/sophialabs/agenix/internal/domain/testcontext"
	"github.com/sophialabs/agenix/internal/domain/validation"
)

// DefaultReceiveTimeout applies when a receive action sets no timeout.
const DefaultReceiveTimeout = 5 * time.Second

// ReceiveAction waits for a message, validates it against the control
// message and extracts variables from it.
type ReceiveAction struct {
	endpoint    Endpoint
	message     *MessageBuilder
	sel         selector.Selector
	selectorMap map[string]string
	timeout     time.Duration
	messageType message.Type
	contexts    []validation.Context
	validators  []validation.Validator
	extractors  []extract.Extractor
	evaluators  *pathexpr.Registry
	mustFind    bool
}

var _ Action = (*ReceiveAction)(nil)

// ReceiveBuilder assembles a ReceiveAction.
type ReceiveBuilder struct {
	action ReceiveAction
}

// Receive starts a receive action on endpoint.
func Receive(endpoint Endpoint) *ReceiveBuilder {
	return &ReceiveBuilder{action: ReceiveAction{
		endpoint: endpoint,
		message:  NewMessage(),
		timeout:  DefaultReceiveTimeout,
	}}
}

// Message sets the control message.
func (b *ReceiveBuilder) Message(m *MessageBuilder) *ReceiveBuilder {
	b.action.message = m
	return b
}

// Selector sets a fixed message selector.
func (b *ReceiveBuilder) Selector(s selector.Selector) *ReceiveBuilder {
	b.action.sel = s
	return b
}

// SelectorMap sets a key/value selector whose values are resolved when the
// action runs.
func (b *ReceiveBuilder) SelectorMap(m map[string]string) *ReceiveBuilder {
	b.action.selectorMap = maps.Clone(m)
	return b
}

// SelectorString parses a selector in "key = 'value' AND ..." syntax.
func (b *ReceiveBuilder) SelectorString(s string) (*ReceiveBuilder, error) {
	m, err := selector.Parse(s)
	if err != nil {
		return b, err
	}
	return b.SelectorMap(m), nil
}

func (b *ReceiveBuilder) Timeout(d time.Duration) *ReceiveBuilder {
	b.action.timeout = d
	return b
}

// Type declares the message type used to look up validators.
func (b *ReceiveBuilder) Type(t message.Type) *ReceiveBuilder {
	b.action.messageType = t
	return b
}

// Validate attaches validation contexts.
func (b *ReceiveBuilder) Validate(contexts ...validation.Context) *ReceiveBuilder {
	b.action.contexts = append(b.action.contexts, contexts...)
	return b
}

// Validator sets explicit validators, bypassing the registry lookup.
func (b *ReceiveBuilder) Validator(v ...validation.Validator) *ReceiveBuilder {
	b.action.validators = append(b.action.validators, v...)
	return b
}

func (b *ReceiveBuilder) Extract(e ...extract.Extractor) *ReceiveBuilder {
	b.action.extractors = append(b.action.extractors, e...)
	return b
}

// Evaluators sets the path expression evaluators used by map selectors.
func (b *ReceiveBuilder) Evaluators(r *pathexpr.Registry) *ReceiveBuilder {
	b.action.evaluators = r
	return b
}

// MustFindValidator makes the validator lookup strict.
func (b *ReceiveBuilder) MustFindValidator(v bool) *ReceiveBuilder {
	b.action.mustFind = v
	return b
}

func (b *ReceiveBuilder) Build() *ReceiveAction {
	a := b.action
	a.contexts = append([]validation.Context(nil), a.contexts...)
	a.validators = append([]validation.Validator(nil), a.validators...)
	a.extractors = append([]extract.Extractor(nil), a.extractors...)
	return &a
}

func (a *ReceiveAction) Name() string { return "receive" }

func (a *ReceiveAction) Execute(ctx context.Context, tctx *testcontext.Context) error {
	sel, err := a.selector(tctx)
	if err != nil {
		return err
	}

	received, err := a.endpoint.Receive(ctx, sel, a.timeout)
	if err != nil {
		return fmt.Errorf("receive from endpoint %s: %w", a.endpoint.Name(), err)
	}
	if received == nil {
		return failure.System(failure.ErrMessageTimeout,
			"action timeout after %s while receiving messages from endpoint '%s'", a.timeout, a.endpoint.Name())
	}

	control, err := a.message.Build(tctx)
	if err != nil {
		return fmt.Errorf("build control message: %w", err)
	}

	validators, err := a.resolveValidators(tctx, received, control)
	if err != nil {
		return err
	}
	for _, v := range validators {
		if err := v.ValidateMessage(received, control, tctx, a.contexts); err != nil {
			return err
		}
	}

	for _, e := range a.extractors {
		if err := e.ExtractVariables(received, tctx); err != nil {
			return err
		}
	}
	return nil
}

func (a *ReceiveAction) selector(tctx *testcontext.Context) (selector.Selector, error) {
	if a.sel != nil {
		return a.sel, nil
	}
	return mapSelector(tctx, a.selectorMap, a.evaluators)
}

// mapSelector resolves dynamic content in the keys and values of m and
// builds a map selector from the result. An empty map selects everything.
func mapSelector(tctx *testcontext.Context, m map[string]string, evaluators *pathexpr.Registry) (selector.Selector, error) {
	if len(m) == 0 {
		return selector.All(), nil
	}
	resolved := make(map[string]string, len(m))
	for k, v := range m {
		key, err := tctx.ResolveDynamicContent(k)
		if err != nil {
			return nil, err
		}
		value, err := tctx.ResolveDynamicContent(v)
		if err != nil {
			return nil, err
		}
		resolved[key] = value
	}
	return selector.FromMap(tctx, resolved, evaluators), nil
}

// resolveValidators returns the explicit validators, or asks the registry
// bound in tctx. The lookup type is the declared type, then the control
// message type, then the received message type.
func (a *ReceiveAction) resolveValidators(tctx *testcontext.Context, received, control message.Message) ([]validation.Validator, error) {
	if len(a.validators) > 0 {
		return a.validators, nil
	}
	reg := validation.RegistryFrom(tctx)
	if reg == nil {
		reg = validation.NewRegistry()
	}

	t := a.messageType
	if t == "" {
		t = a.message.DeclaredType()
	}
	if t == "" {
		t = received.Type()
	}
	return reg.FindMessageValidators(t, received, a.mustFind)
}
