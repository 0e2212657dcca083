package template

import (
	"fmt"
	"regexp"

	"github.com/flosch/pongo2/v6"
)

// identifier matches the context keys pongo2 accepts.
var identifier = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Jinja2Compiler compiles payload templates using Pongo2 (Django/Jinja2-style).
type Jinja2Compiler struct {
	now func() string
}

// Compile parses the source as a Pongo2 template.
func (c *Jinja2Compiler) Compile(name, source string) (Renderer, error) {
	tpl, err := pongo2.FromString(source)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jinja2 template %q: %w", name, err)
	}
	return &jinja2Renderer{tpl: tpl, now: c.now}, nil
}

type jinja2Renderer struct {
	tpl *pongo2.Template
	now func() string
}

// Render exposes the variables as "vars" and, when the name is a plain
// identifier, at top level next to the helper functions. Helpers win over
// variables of the same name.
func (r *jinja2Renderer) Render(vars map[string]any) (string, error) {
	pongoCtx := pongo2.Context{"vars": vars}
	for k, v := range vars {
		if identifier.MatchString(k) {
			pongoCtx[k] = v
		}
	}
	for k, v := range helpers(r.now) {
		pongoCtx[k] = v
	}

	result, err := r.tpl.Execute(pongoCtx)
	if err != nil {
		return "", fmt.Errorf("jinja2 template render failed: %w", err)
	}
	return result, nil
}
