package testcontext

import (
	"strings"

	"github.com/sophialabs/agenix/internal/domain/failure"
)

// maxResolvePasses bounds repeated substitution when resolved values
// themselves contain variable or function syntax.
const maxResolvePasses = 10

// ResolveDynamicContent replaces ${name} variable references and
// prefix:Function(args) calls in s until no further substitution happens.
func (c *Context) ResolveDynamicContent(s string) (string, error) {
	current := s
	for range maxResolvePasses {
		next, err := c.ReplaceVariables(current)
		if err != nil {
			return "", err
		}
		next, err = c.ReplaceFunctions(next)
		if err != nil {
			return "", err
		}
		if next == current {
			return next, nil
		}
		current = next
	}
	return current, nil
}

// ResolveDynamicValue resolves s like ResolveDynamicContent, except that a
// string consisting of exactly one ${name} reference yields the raw variable
// object instead of its string form.
func (c *Context) ResolveDynamicValue(s string) (any, error) {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "${") && strings.HasSuffix(trimmed, "}") {
		if end := closingBrace(trimmed, 2); end == len(trimmed)-1 {
			name, err := c.ReplaceVariables(trimmed[2:end])
			if err != nil {
				return nil, err
			}
			return c.Variable(name)
		}
	}
	return c.ResolveDynamicContent(s)
}

// ResolveMap resolves keys and string values of m.
func (c *Context) ResolveMap(m map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		key, err := c.ResolveDynamicContent(k)
		if err != nil {
			return nil, err
		}
		if s, ok := v.(string); ok {
			resolved, err := c.ResolveDynamicValue(s)
			if err != nil {
				return nil, err
			}
			out[key] = resolved
			continue
		}
		out[key] = v
	}
	return out, nil
}

// ResolveSlice resolves every element of values.
func (c *Context) ResolveSlice(values []string) ([]string, error) {
	out := make([]string, len(values))
	for i, v := range values {
		resolved, err := c.ResolveDynamicContent(v)
		if err != nil {
			return nil, err
		}
		out[i] = resolved
	}
	return out, nil
}

// ReplaceVariables replaces every ${name} in s. Variable names may
// themselves contain variable references.
func (c *Context) ReplaceVariables(s string) (string, error) {
	if !strings.Contains(s, "${") {
		return s, nil
	}

	var b strings.Builder
	i := 0
	for {
		start := strings.Index(s[i:], "${")
		if start < 0 {
			b.WriteString(s[i:])
			return b.String(), nil
		}
		start += i
		end := closingBrace(s, start+2)
		if end < 0 {
			return "", failure.System(failure.ErrInvalidExpression,
				"variable expression not closed in '%s'", s)
		}

		name, err := c.ReplaceVariables(s[start+2 : end])
		if err != nil {
			return "", err
		}
		value, err := c.VariableString(strings.TrimSpace(name))
		if err != nil {
			return "", err
		}

		b.WriteString(s[i:start])
		b.WriteString(value)
		i = end + 1
	}
}

// ReplaceFunctions evaluates every prefix:Function(args) call in s for all
// registered libraries.
func (c *Context) ReplaceFunctions(s string) (string, error) {
	out := s
	for _, lib := range c.functions {
		if !strings.Contains(out, lib.Prefix) {
			continue
		}
		replaced, err := c.replaceLibraryCalls(out, lib)
		if err != nil {
			return "", err
		}
		out = replaced
	}
	return out, nil
}

func (c *Context) replaceLibraryCalls(s string, lib *FunctionLibrary) (string, error) {
	var b strings.Builder
	i := 0
	for {
		start := strings.Index(s[i:], lib.Prefix)
		if start < 0 {
			b.WriteString(s[i:])
			return b.String(), nil
		}
		start += i

		nameStart := start + len(lib.Prefix)
		nameEnd := nameStart
		for nameEnd < len(s) && isNameChar(s[nameEnd]) {
			nameEnd++
		}
		if nameEnd == nameStart || nameEnd >= len(s) || s[nameEnd] != '(' {
			return "", failure.System(failure.ErrInvalidFunctionUsage,
				"unable to resolve function call at '%s'", s[start:])
		}
		closeIdx := closingParen(s, nameEnd+1)
		if closeIdx < 0 {
			return "", failure.System(failure.ErrInvalidFunctionUsage,
				"function call not closed in '%s'", s[start:])
		}

		value, err := c.callFunction(lib, s[nameStart:nameEnd], s[nameEnd+1:closeIdx])
		if err != nil {
			return "", err
		}

		b.WriteString(s[i:start])
		b.WriteString(value)
		i = closeIdx + 1
	}
}

// ResolveFunction evaluates a single "prefix:Name(args)" call expression.
func (c *Context) ResolveFunction(expr string) (string, error) {
	expr = strings.TrimSpace(expr)
	colon := strings.Index(expr, ":")
	open := strings.Index(expr, "(")
	if colon < 0 || open < colon || !strings.HasSuffix(expr, ")") {
		return "", failure.System(failure.ErrInvalidFunctionUsage, "unable to resolve function '%s'", expr)
	}
	lib, err := c.FunctionLibrary(expr[:colon+1])
	if err != nil {
		return "", err
	}
	return c.callFunction(lib, expr[colon+1:open], expr[open+1:len(expr)-1])
}

func (c *Context) callFunction(lib *FunctionLibrary, name, rawArgs string) (string, error) {
	fn, err := lib.Function(name)
	if err != nil {
		return "", err
	}

	tokens := SplitArguments(rawArgs)
	args := make([]string, len(tokens))
	for i, tok := range tokens {
		resolved, err := c.ReplaceVariables(tok)
		if err != nil {
			return "", err
		}
		resolved, err = c.ReplaceFunctions(resolved)
		if err != nil {
			return "", err
		}
		args[i] = Unquote(resolved)
	}
	return fn.Call(c, args)
}

// SplitArguments splits a function parameter string on top-level commas.
// Commas inside single quotes or nested parentheses do not split. Tokens are
// trimmed but keep their quotes.
func SplitArguments(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	var (
		args    []string
		depth   int
		inQuote bool
		start   int
	)
	for i := 0; i < len(s); i++ {
		switch ch := s[i]; {
		case ch == '\'':
			inQuote = !inQuote
		case inQuote:
		case ch == '(':
			depth++
		case ch == ')':
			if depth > 0 {
				depth--
			}
		case ch == ',' && depth == 0:
			args = append(args, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	return append(args, strings.TrimSpace(s[start:]))
}

// Unquote strips one pair of surrounding single quotes.
func Unquote(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return s[1 : len(s)-1]
	}
	return s
}

func isNameChar(ch byte) bool {
	return ch == '_' || ch == '-' || ch == '.' ||
		(ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}

// closingBrace finds the '}' closing a "${" whose content starts at from.
func closingBrace(s string, from int) int {
	depth := 0
	for i := from; i < len(s); i++ {
		switch s[i] {
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

// closingParen finds the ')' matching an opening parenthesis just before
// from, skipping quoted sections.
func closingParen(s string, from int) int {
	depth := 0
	inQuote := false
	for i := from; i < len(s); i++ {
		switch ch := s[i]; {
		case ch == '\'':
			inQuote = !inQuote
		case inQuote:
		case ch == '(':
			depth++
		case ch == ')':
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return -1
}
