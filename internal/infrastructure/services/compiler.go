package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sophialabs/agenix/internal/domain/action"
	"github.com/sophialabs/agenix/internal/domain/extract"
	"github.com/sophialabs/agenix/internal/domain/message"
	"github.com/sophialabs/agenix/internal/domain/pathexpr"
	"github.com/sophialabs/agenix/internal/domain/selector"
	"github.com/sophialabs/agenix/internal/domain/testcase"
	"github.com/sophialabs/agenix/internal/domain/validation"
	"github.com/sophialabs/agenix/internal/infrastructure/outbound/template"
)

// ExprSelectorPrefix marks a selector string as an expr-lang expression
// over the message instead of "key = 'value'" pairs.
const ExprSelectorPrefix = "expr:"

// EndpointResolver looks up message endpoints by name.
type EndpointResolver interface {
	Endpoint(name string) (action.Endpoint, error)
}

// TemplateEngines provides payload template renderers by engine name.
type TemplateEngines interface {
	Engine(engine string, cacheSize int) (*template.EngineRenderer, error)
}

// CompilerOption configures a Compiler.
type CompilerOption func(*Compiler)

// WithTemplates enables message templates. Without it, definitions using
// template fail to compile.
func WithTemplates(t TemplateEngines, cacheSize int) CompilerOption {
	return func(c *Compiler) {
		c.templates = t
		c.templateCacheSize = cacheSize
	}
}

// WithLogger sets the logger used by echo and purge actions.
func WithLogger(l action.Logger) CompilerOption {
	return func(c *Compiler) { c.logger = l }
}

// WithSleeper sets the sleeper used by sleep actions.
func WithSleeper(s action.Sleeper) CompilerOption {
	return func(c *Compiler) { c.sleeper = s }
}

// WithDefaultMessageType sets the type of the first validator lookup for
// receive actions whose control message declares none. When no validator
// supports that type for the payload, the lookup retries with the type
// sniffed from the payload. Unspecified keeps XML.
func WithDefaultMessageType(t message.Type) CompilerOption {
	return func(c *Compiler) {
		if t != "" && t != message.Unspecified {
			c.defaultType = t
		}
	}
}

// WithReceiveTimeout sets the timeout of receive actions that declare none.
// Non-positive values keep the default.
func WithReceiveTimeout(d time.Duration) CompilerOption {
	return func(c *Compiler) {
		if d > 0 {
			c.receiveTimeout = d
		}
	}
}

// WithMustFindValidator makes receive actions fail when no validator
// supports the message type instead of falling back to text comparison.
func WithMustFindValidator(v bool) CompilerOption {
	return func(c *Compiler) { c.mustFindValidator = v }
}

// WithHeaderNameIgnoreCase compares and extracts header names
// case-insensitively.
func WithHeaderNameIgnoreCase(v bool) CompilerOption {
	return func(c *Compiler) { c.headerIgnoreCase = v }
}

// Compiler turns test definitions into runnable test cases.
type Compiler struct {
	endpoints  EndpointResolver
	evaluators *pathexpr.Registry

	templates         TemplateEngines
	templateCacheSize int
	logger            action.Logger
	sleeper           action.Sleeper
	defaultType       message.Type
	receiveTimeout    time.Duration
	mustFindValidator bool
	headerIgnoreCase  bool
}

// NewCompiler creates a compiler that binds endpoint names through
// endpoints and path expressions through evaluators.
func NewCompiler(endpoints EndpointResolver, evaluators *pathexpr.Registry, opts ...CompilerOption) *Compiler {
	c := &Compiler{
		endpoints:      endpoints,
		evaluators:     evaluators,
		defaultType:    message.XML,
		receiveTimeout: action.DefaultReceiveTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile validates d and builds its actions.
func (c *Compiler) Compile(d *testcase.Definition) (*testcase.TestCase, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	actions, err := c.compileActions("actions", d.Actions)
	if err != nil {
		return nil, fmt.Errorf("failed to compile test %q: %w", d.Name, err)
	}
	return &testcase.TestCase{
		Name:        d.Name,
		Description: d.Description,
		Variables:   d.Variables,
		Actions:     actions,
	}, nil
}

func (c *Compiler) compileActions(path string, defs []testcase.ActionDef) ([]action.Action, error) {
	out := make([]action.Action, 0, len(defs))
	for i, def := range defs {
		a, err := c.compileAction(def)
		if err != nil {
			return nil, fmt.Errorf("%s[%d] (%s): %w", path, i, def.Kind(), err)
		}
		out = append(out, a)
	}
	return out, nil
}

func (c *Compiler) compileAction(def testcase.ActionDef) (action.Action, error) {
	switch {
	case def.Send != nil:
		return c.compileSend(def.Send)
	case def.Receive != nil:
		return c.compileReceive(def.Receive)
	case def.CreateVariables != nil:
		return &action.CreateVariablesAction{Variables: def.CreateVariables}, nil
	case def.Echo != nil:
		return &action.EchoAction{Message: *def.Echo, Logger: c.logger}, nil
	case def.Sleep != nil:
		if c.sleeper == nil {
			return nil, errors.New("no sleeper configured")
		}
		return &action.SleepAction{Duration: def.Sleep.Duration, Sleeper: c.sleeper}, nil
	case def.Conditional != nil:
		nested, err := c.compileActions("conditional.actions", def.Conditional.Actions)
		if err != nil {
			return nil, err
		}
		return &action.ConditionalAction{Condition: def.Conditional.When, Actions: nested}, nil
	case def.Purge != nil:
		return c.compilePurge(def.Purge)
	default:
		return nil, errors.New("empty action")
	}
}

func (c *Compiler) compileSend(def *testcase.SendDef) (action.Action, error) {
	ep, err := c.endpoints.Endpoint(def.Endpoint)
	if err != nil {
		return nil, err
	}
	mb, err := c.compileMessage(def.Message)
	if err != nil {
		return nil, err
	}
	return action.Send(ep).Message(mb).Build(), nil
}

func (c *Compiler) compileReceive(def *testcase.ReceiveDef) (action.Action, error) {
	ep, err := c.endpoints.Endpoint(def.Endpoint)
	if err != nil {
		return nil, err
	}
	mb, err := c.compileMessage(def.Message)
	if err != nil {
		return nil, err
	}

	timeout := def.Timeout
	if timeout <= 0 {
		timeout = c.receiveTimeout
	}
	rb := action.Receive(ep).
		Message(mb).
		Timeout(timeout).
		Evaluators(c.evaluators).
		MustFindValidator(c.mustFindValidator)

	if t := message.ParseType(def.Message.Type); t != message.Unspecified {
		rb.Type(t)
	} else if c.defaultType != "" {
		rb.Type(c.defaultType)
	}

	sel, selMap, err := c.compileSelector(def.Selector, def.SelectorExpr)
	if err != nil {
		return nil, err
	}
	if sel != nil {
		rb.Selector(sel)
	} else if len(selMap) > 0 {
		rb.SelectorMap(selMap)
	}

	if v := def.Validate; v != nil {
		rb.Validate(c.validationContexts(v)...)
	}
	if e := def.Extract; e != nil {
		rb.Extract(c.extractors(e)...)
	}
	return rb.Build(), nil
}

func (c *Compiler) compilePurge(def *testcase.PurgeDef) (action.Action, error) {
	ep, err := c.endpoints.Endpoint(def.Endpoint)
	if err != nil {
		return nil, err
	}
	sel, selMap, err := c.compileSelector(def.Selector, def.SelectorExpr)
	if err != nil {
		return nil, err
	}
	return &action.PurgeAction{
		Endpoint:    ep,
		Selector:    sel,
		SelectorMap: selMap,
		Evaluators:  c.evaluators,
		Logger:      c.logger,
	}, nil
}

func (c *Compiler) compileSelector(m map[string]string, expr string) (selector.Selector, map[string]string, error) {
	if expr == "" {
		return nil, m, nil
	}
	if len(m) > 0 {
		return nil, nil, errors.New("selector must be either a map or a string")
	}
	return ParseSelector(expr)
}

// ParseSelector reads a selector string. Strings carrying
// ExprSelectorPrefix compile to a fixed expr-lang selector; all others are
// "key = 'value'" pairs returned as a map, so callers can resolve dynamic
// content in them before matching.
func ParseSelector(expr string) (selector.Selector, map[string]string, error) {
	if code, ok := strings.CutPrefix(strings.TrimSpace(expr), ExprSelectorPrefix); ok {
		sel, err := selector.Expression(strings.TrimSpace(code))
		return sel, nil, err
	}
	parsed, err := selector.Parse(expr)
	return nil, parsed, err
}

func (c *Compiler) compileMessage(def testcase.MessageDef) (*action.MessageBuilder, error) {
	b := action.NewMessage()
	if def.Name != "" {
		b.Name(def.Name)
	}
	if t := message.ParseType(def.Type); t != message.Unspecified {
		b.Type(t)
	}

	switch {
	case def.Template != "" && def.Payload != "":
		return nil, errors.New("message payload and template are mutually exclusive")
	case def.Template != "":
		if c.templates == nil {
			return nil, errors.New("message templates are not enabled")
		}
		engine := def.Engine
		if engine == "" {
			engine = template.DefaultEngine
		}
		r, err := c.templates.Engine(engine, c.templateCacheSize)
		if err != nil {
			return nil, err
		}
		b.Template(r, def.Template)
	case def.Engine != "":
		return nil, fmt.Errorf("engine %q requires a message template", def.Engine)
	default:
		b.Payload(def.Payload)
	}

	for name, value := range def.Headers {
		b.Header(name, value)
	}
	for _, data := range def.HeaderData {
		b.HeaderData(data)
	}
	return b, nil
}

func (c *Compiler) validationContexts(def *testcase.ValidateDef) []validation.Context {
	var contexts []validation.Context

	if len(def.Expressions) > 0 {
		pb := validation.NewPathExpressionContext()
		for expr, expected := range def.Expressions {
			pb.Expression(expr, expected)
		}
		contexts = append(contexts, pb.Build())
	}

	var jsonIgnore, xmlIgnore []string
	for _, expr := range def.Ignore {
		if pathexpr.IsJSONPath(expr) {
			jsonIgnore = append(jsonIgnore, expr)
		} else {
			xmlIgnore = append(xmlIgnore, expr)
		}
	}
	strict := true
	if def.Strict != nil {
		strict = *def.Strict
	}
	contexts = append(contexts, validation.NewJSONContext().Strict(strict).Ignore(jsonIgnore...).Build())
	if len(xmlIgnore) > 0 {
		contexts = append(contexts, validation.NewXMLContext().Ignore(xmlIgnore...).Build())
	}

	if def.HeaderIgnoreCase || len(def.HeaderValidators) > 0 {
		contexts = append(contexts, validation.NewHeaderContext().
			IgnoreCase(c.headerIgnoreCase || def.HeaderIgnoreCase).
			ValidatorName(def.HeaderValidators...).
			Build())
	}
	return contexts
}

func (c *Compiler) extractors(def *testcase.ExtractDef) []extract.Extractor {
	var out []extract.Extractor
	if len(def.Headers) > 0 {
		out = append(out, &extract.HeaderExtractor{Headers: def.Headers, IgnoreCase: c.headerIgnoreCase})
	}
	if len(def.Body) > 0 {
		out = append(out, &extract.PathExtractor{Expressions: def.Body, Evaluators: c.evaluators})
	}
	if def.Payload != "" {
		out = append(out, &extract.PayloadExtractor{Variable: def.Payload})
	}
	return out
}
