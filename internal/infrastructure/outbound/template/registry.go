package template

import (
	"fmt"
	"sync"

	"github.com/golang/groupcache/lru"

	"github.com/sophialabs/agenix/internal/domain/action"
)

// Renderer renders a compiled template with the test variables.
type Renderer interface {
	Render(vars map[string]any) (string, error)
}

// EngineCompiler compiles a template source string into a Renderer.
type EngineCompiler interface {
	Compile(name, source string) (Renderer, error)
}

// DefaultEngine is used when a test names no engine.
const DefaultEngine = "jinja2"

// Registry maps engine names to their compilers.
type Registry struct {
	engines map[string]EngineCompiler
	now     func() string
}

// NewRegistry creates a registry with the built-in engines (expr, jinja2).
// now feeds the now/nowFormat helpers; nil uses the system clock.
func NewRegistry(now func() string) *Registry {
	if now == nil {
		now = systemNow
	}
	return &Registry{
		engines: map[string]EngineCompiler{
			"expr":   &ExprCompiler{now: now},
			"jinja2": &Jinja2Compiler{now: now},
		},
		now: now,
	}
}

// Compile resolves the engine by name and compiles the source.
func (r *Registry) Compile(engine, name, source string) (Renderer, error) {
	ec, ok := r.engines[engine]
	if !ok {
		return nil, fmt.Errorf("unknown template engine: %q (supported: expr, jinja2)", engine)
	}
	return ec.Compile(name, source)
}

// Engine returns an action.TemplateRenderer for the named engine. Compiled
// templates are cached by source.
func (r *Registry) Engine(engine string, cacheSize int) (*EngineRenderer, error) {
	if engine == "" {
		engine = DefaultEngine
	}
	if _, ok := r.engines[engine]; !ok {
		return nil, fmt.Errorf("unknown template engine: %q (supported: expr, jinja2)", engine)
	}
	return &EngineRenderer{registry: r, engine: engine, cache: lru.New(cacheSize)}, nil
}

var _ action.TemplateRenderer = (*EngineRenderer)(nil)

// EngineRenderer compiles and renders payload templates of one engine.
type EngineRenderer struct {
	registry *Registry
	engine   string

	mu    sync.Mutex
	cache *lru.Cache
}

func (e *EngineRenderer) Render(source string, vars map[string]any) (string, error) {
	tpl, err := e.compiled(source)
	if err != nil {
		return "", err
	}
	return tpl.Render(vars)
}

func (e *EngineRenderer) compiled(source string) (Renderer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if v, ok := e.cache.Get(source); ok {
		return v.(Renderer), nil
	}
	tpl, err := e.registry.Compile(e.engine, "payload", source)
	if err != nil {
		return nil, err
	}
	e.cache.Add(source, tpl)
	return tpl, nil
}
