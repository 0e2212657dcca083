package action

import (
	"fmt"
	"maps"
	"sort"

	"github.com/sophialabs/agenix/internal/domain/message"
	"github.com/sophialabs/agenix/internal/domain/testcontext"
)

// MessageBuilder describes a message whose content is resolved against
// the test context when the action runs.
type MessageBuilder struct {
	payload    any
	template   string
	renderer   TemplateRenderer
	headers    map[string]any
	headerData []string
	msgType    message.Type
	name       string
}

// NewMessage starts an empty message description.
func NewMessage() *MessageBuilder {
	return &MessageBuilder{headers: make(map[string]any)}
}

// Payload sets a literal payload. String payloads are resolved for
// variables and functions.
func (b *MessageBuilder) Payload(p any) *MessageBuilder {
	b.payload = p
	return b
}

// Template renders source with r before dynamic content is resolved.
func (b *MessageBuilder) Template(r TemplateRenderer, source string) *MessageBuilder {
	b.renderer = r
	b.template = source
	return b
}

// Header adds a header. String values may carry a "{type}" hint.
func (b *MessageBuilder) Header(name string, value any) *MessageBuilder {
	b.headers[name] = value
	return b
}

func (b *MessageBuilder) Headers(h map[string]any) *MessageBuilder {
	maps.Copy(b.headers, h)
	return b
}

func (b *MessageBuilder) HeaderData(data string) *MessageBuilder {
	b.headerData = append(b.headerData, data)
	return b
}

func (b *MessageBuilder) Type(t message.Type) *MessageBuilder {
	b.msgType = t
	return b
}

func (b *MessageBuilder) Name(name string) *MessageBuilder {
	b.name = name
	return b
}

// DeclaredType returns the explicitly set type, or "".
func (b *MessageBuilder) DeclaredType() message.Type { return b.msgType }

// Build resolves the description into a message.
func (b *MessageBuilder) Build(tctx *testcontext.Context) (*message.DefaultMessage, error) {
	payload, err := b.buildPayload(tctx)
	if err != nil {
		return nil, err
	}

	var opts []message.Option
	if b.msgType != "" {
		opts = append(opts, message.WithType(b.msgType))
	}
	if b.name != "" {
		opts = append(opts, message.WithName(b.name))
	}
	msg := message.New(payload, opts...)

	names := make([]string, 0, len(b.headers))
	for k := range b.headers {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, raw := range names {
		name, err := tctx.ResolveDynamicContent(raw)
		if err != nil {
			return nil, err
		}
		value := b.headers[raw]
		if s, ok := value.(string); ok {
			resolved, err := tctx.ResolveDynamicContent(s)
			if err != nil {
				return nil, err
			}
			if value, err = message.ParseTypedHeader(resolved); err != nil {
				return nil, fmt.Errorf("header %q: %w", name, err)
			}
		}
		if err := msg.SetHeader(name, value); err != nil {
			return nil, err
		}
	}

	for _, data := range b.headerData {
		resolved, err := tctx.ResolveDynamicContent(data)
		if err != nil {
			return nil, err
		}
		msg.AddHeaderData(resolved)
	}
	return msg, nil
}

func (b *MessageBuilder) buildPayload(tctx *testcontext.Context) (any, error) {
	if b.renderer != nil {
		rendered, err := b.renderer.Render(b.template, tctx.Variables())
		if err != nil {
			return nil, fmt.Errorf("render payload template: %w", err)
		}
		return tctx.ResolveDynamicContent(rendered)
	}
	if s, ok := b.payload.(string); ok {
		return tctx.ResolveDynamicContent(s)
	}
	return b.payload, nil
}
