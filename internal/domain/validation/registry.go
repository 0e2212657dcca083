package validation

import (
	"sort"
	"strings"
	"sync"

	"github.com/sophialabs/agenix/internal/domain/failure"
	"github.com/sophialabs/agenix/internal/domain/message"
	"github.com/sophialabs/agenix/internal/domain/pathexpr"
	"github.com/sophialabs/agenix/internal/domain/testcontext"
)

// RegistryReference is the reference name under which a Registry is bound
// in a test context.
const RegistryReference = "validation:registry"

// Logger receives registry warnings.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

type namedValidator struct {
	name      string
	validator Validator
}

// Registry resolves the validators that apply to a received message.
//
// The header, empty-message and text-equals validators are defaults: they
// are always available but never count as a match when resolving the
// validators for a message type.
type Registry struct {
	mu               sync.RWMutex
	validators       []namedValidator
	headerValidators map[string]HeaderValueValidator
	valueMatchers    []ValueMatcher

	header     Validator
	empty      Validator
	textEquals Validator
	logger     Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used for fallback warnings.
func WithLogger(l Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// WithHeaderValidator replaces the default message header validator.
func WithHeaderValidator(v Validator) RegistryOption {
	return func(r *Registry) { r.header = v }
}

// NewRegistry creates a registry holding only the default validators.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		headerValidators: make(map[string]HeaderValueValidator),
		header:           &HeaderValidator{},
		empty:            EmptyMessageValidator{},
		textEquals:       TextEqualsValidator{},
		logger:           noopLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewDefaultRegistry creates a registry with the JSON, XML and path
// expression validators registered.
func NewDefaultRegistry(evaluators *pathexpr.Registry, opts ...RegistryOption) *Registry {
	r := NewRegistry(opts...)
	r.Register("json", JSONValidator{})
	r.Register("xml", XMLValidator{})
	r.Register("pathExpression", &PathExpressionValidator{Evaluators: evaluators})
	return r
}

// Register adds a named message validator. Registering a name again
// replaces the validator but keeps its position.
func (r *Registry) Register(name string, v Validator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.validators {
		if r.validators[i].name == name {
			r.validators[i].validator = v
			return
		}
	}
	r.validators = append(r.validators, namedValidator{name: name, validator: v})
}

// Validator returns the message validator registered under name.
func (r *Registry) Validator(name string) (Validator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, nv := range r.validators {
		if nv.name == name {
			return nv.validator, nil
		}
	}
	return nil, failure.System(failure.ErrNoValidatorFound, "no message validator registered under name '%s'", name)
}

// RegisterHeaderValidator adds a named header value validator.
func (r *Registry) RegisterHeaderValidator(name string, v HeaderValueValidator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.headerValidators[name] = v
}

// HeaderValidator returns the header value validator registered under name.
func (r *Registry) HeaderValidator(name string) (HeaderValueValidator, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.headerValidators[name]
	return v, ok
}

// HeaderValidators returns all registered header value validators sorted
// by name.
func (r *Registry) HeaderValidators() []HeaderValueValidator {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.headerValidators))
	for name := range r.headerValidators {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]HeaderValueValidator, len(names))
	for i, name := range names {
		out[i] = r.headerValidators[name]
	}
	return out
}

// RegisterValueMatcher adds a value matcher.
func (r *Registry) RegisterValueMatcher(m ValueMatcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.valueMatchers = append(r.valueMatchers, m)
}

// ValueMatchers returns the registered value matchers in registration order.
func (r *Registry) ValueMatchers() []ValueMatcher {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]ValueMatcher(nil), r.valueMatchers...)
}

// FindMessageValidators returns the validators for msg declared with
// messageType. The header validator always comes first. Resolution tries
// the declared type, then the type sniffed from the payload, then the
// empty-message validator for blank payloads. When nothing matched, a strict
// lookup fails with ErrNoValidatorFound and a lenient one falls back to the
// text-equals validator with a warning.
func (r *Registry) FindMessageValidators(messageType message.Type, msg message.Message, mustFind bool) ([]Validator, error) {
	found := r.supporting(messageType, msg)

	payload := strings.TrimSpace(payloadText(msg))
	if len(found) == 0 && payload != "" {
		if sniffed := message.Sniff(payload); !sniffed.Is(messageType) {
			found = r.supporting(sniffed, msg)
		}
	}

	if len(found) == 0 && payload == "" {
		found = []Validator{r.empty}
	}

	if len(found) == 0 {
		if mustFind {
			return nil, failure.System(failure.ErrNoValidatorFound,
				"unable to find proper message validator for message type '%s', set a validator explicitly or relax the validator lookup", messageType)
		}
		r.logger.Warn("unable to find proper message validator, falling back to plain text comparison",
			"message_type", string(messageType), "message_id", msg.ID())
		found = []Validator{r.textEquals}
	}

	return append([]Validator{r.header}, found...), nil
}

func (r *Registry) supporting(t message.Type, msg message.Message) []Validator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Validator
	for _, nv := range r.validators {
		if nv.validator.SupportsMessageType(t, msg) {
			out = append(out, nv.validator)
		}
	}
	return out
}

// Bind makes r reachable from tctx through RegistryFrom.
func (r *Registry) Bind(tctx *testcontext.Context) {
	tctx.Bind(RegistryReference, r)
}

// RegistryFrom returns the registry bound in tctx, or nil.
func RegistryFrom(tctx *testcontext.Context) *Registry {
	if tctx == nil {
		return nil
	}
	r, _ := testcontext.ReferenceAs[*Registry](tctx, RegistryReference)
	return r
}
