package template

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ExprCompiler compiles payload templates using the Expr language with
// ${ } interpolation. Expressions see the test variables and the helper
// functions, so ${user} renders the variable user.
type ExprCompiler struct {
	now func() string
}

// Compile parses the source for ${ } delimiters and compiles each expression.
func (c *ExprCompiler) Compile(name, source string) (Renderer, error) {
	segments, err := parseExprSegments(source, helpers(c.now))
	if err != nil {
		return nil, fmt.Errorf("failed to parse expr template %q: %w", name, err)
	}

	for _, seg := range segments {
		if seg.program != nil {
			return &exprRenderer{segments: segments, now: c.now}, nil
		}
	}
	return staticRenderer(source), nil
}

type exprSegment struct {
	static  string
	program *vm.Program
}

// parseExprSegments compiles every expression against helperEnv, so helper
// calls type check and shadow builtins such as now and toJSON. Test variables
// are unknown at compile time and resolve at render.
func parseExprSegments(source string, helperEnv map[string]any) ([]exprSegment, error) {
	var segments []exprSegment
	remaining := source

	for {
		idx := strings.Index(remaining, "${")
		if idx < 0 {
			if remaining != "" {
				segments = append(segments, exprSegment{static: remaining})
			}
			break
		}
		if idx > 0 {
			segments = append(segments, exprSegment{static: remaining[:idx]})
		}

		rest := remaining[idx+2:]
		closeIdx := findClosingBrace(rest)
		if closeIdx < 0 {
			return nil, fmt.Errorf("unclosed ${ at position %d", idx)
		}

		expression := rest[:closeIdx]
		program, err := expr.Compile(expression,
			expr.Env(helperEnv),
			expr.AllowUndefinedVariables(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to compile expression %q: %w", expression, err)
		}
		segments = append(segments, exprSegment{program: program})
		remaining = rest[closeIdx+1:]
	}

	return segments, nil
}

// findClosingBrace finds the matching } accounting for nested braces and
// quoted strings.
func findClosingBrace(s string) int {
	depth := 0
	inString := false
	var stringChar byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			if ch == '\\' && i+1 < len(s) {
				i++
				continue
			}
			if ch == stringChar {
				inString = false
			}
			continue
		}
		switch ch {
		case '\'', '"':
			inString = true
			stringChar = ch
		case '{':
			depth++
		case '}':
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return -1
}

type exprRenderer struct {
	segments []exprSegment
	now      func() string
}

func (r *exprRenderer) Render(vars map[string]any) (string, error) {
	env := make(map[string]any, len(vars)+12)
	for k, v := range vars {
		env[k] = v
	}
	for k, v := range helpers(r.now) {
		env[k] = v
	}

	var buf strings.Builder
	for _, seg := range r.segments {
		if seg.program == nil {
			buf.WriteString(seg.static)
			continue
		}
		result, err := expr.Run(seg.program, env)
		if err != nil {
			return "", fmt.Errorf("expression evaluation failed: %w", err)
		}
		if result != nil {
			fmt.Fprintf(&buf, "%v", result)
		}
	}
	return buf.String(), nil
}

// staticRenderer returns a fixed payload.
type staticRenderer string

func (r staticRenderer) Render(map[string]any) (string, error) {
	return string(r), nil
}
