// Package expression evaluates the boolean condition language used by
// conditional actions and selectors.
//
// The evaluator is a single pass shift-reduce over two stacks. Operators of
// one nesting level are reduced strictly in encounter order when a closing
// parenthesis or the end of input is reached; there is no precedence beyond
// explicit parentheses.
package expression

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/sophialabs/agenix/internal/domain/failure"
)

const openParen = "("

var operators = map[string]func(left, right string) (string, error){
	"=":   compareInts(func(l, r int64) bool { return l == r }),
	"lt":  compareInts(func(l, r int64) bool { return l < r }),
	"<":   compareInts(func(l, r int64) bool { return l < r }),
	"lt=": compareInts(func(l, r int64) bool { return l <= r }),
	"<=":  compareInts(func(l, r int64) bool { return l <= r }),
	"gt":  compareInts(func(l, r int64) bool { return l > r }),
	">":   compareInts(func(l, r int64) bool { return l > r }),
	"gt=": compareInts(func(l, r int64) bool { return l >= r }),
	">=":  compareInts(func(l, r int64) bool { return l >= r }),
	"and": combineBools(func(l, r bool) bool { return l && r }),
	"or":  combineBools(func(l, r bool) bool { return l || r }),
}

// stack is a LIFO of tokens. pop on an empty stack reports ok=false.
type stack []string

func (s *stack) push(v string) { *s = append(*s, v) }

func (s *stack) pop() (string, bool) {
	if len(*s) == 0 {
		return "", false
	}
	v := (*s)[len(*s)-1]
	*s = (*s)[:len(*s)-1]
	return v, true
}

// errIncomplete marks a stack underflow during reduction.
var errIncomplete = errors.New("stack is empty")

// parser holds the operator and value stacks. marks records the value stack
// height at every open parenthesis so a group reduces only its own operands.
type parser struct {
	ops    stack
	values stack
	marks  []int
}

// EvaluateBoolean evaluates expr, e.g. "(1 = 1) and (2 lt 3)".
func EvaluateBoolean(expr string) (bool, error) {
	p := &parser{}

	i := 0
	for i < len(expr) {
		ch := rune(expr[i])
		switch {
		case ch == '(':
			p.ops.push(openParen)
			p.marks = append(p.marks, len(p.values))
			i++
		case ch == ')':
			if err := p.reduce(true); err != nil {
				return false, incomplete(expr, err)
			}
			i++
		case unicode.IsSpace(ch):
			i++
		case unicode.IsDigit(ch):
			token := scan(expr, i, func(c rune) bool { return unicode.IsDigit(c) })
			p.values.push(token)
			i += len(token)
		default:
			token := scan(expr, i, func(c rune) bool {
				return !unicode.IsDigit(c) && !unicode.IsSpace(c) && c != '(' && c != ')'
			})
			i += len(token)
			switch lower := strings.ToLower(token); lower {
			case "true":
				p.values.push("1")
			case "false":
				p.values.push("0")
			default:
				if _, ok := operators[lower]; !ok {
					return false, failure.System(failure.ErrInvalidExpression,
						"unknown operator '%s' in boolean expression '%s'", token, expr)
				}
				p.ops.push(lower)
			}
		}
	}

	if err := p.reduce(false); err != nil {
		return false, incomplete(expr, err)
	}
	result, _ := p.values.pop()
	b, err := asBool(result)
	if err != nil {
		return false, failure.Wrap(failure.ErrInvalidExpression, err,
			"boolean expression '%s' does not evaluate to a boolean", expr)
	}
	return b, nil
}

// reduce folds the operators of the innermost level left to right. With
// group=true the level must be closed by an open parenthesis; otherwise it
// is the top level and no open parenthesis may remain.
func (p *parser) reduce(group bool) error {
	mark := 0
	var levelOps []string
	for {
		op, ok := p.ops.pop()
		if !ok {
			if group {
				return errIncomplete
			}
			break
		}
		if op == openParen {
			if !group {
				return errors.New("unbalanced parenthesis")
			}
			mark = p.marks[len(p.marks)-1]
			p.marks = p.marks[:len(p.marks)-1]
			break
		}
		levelOps = append(levelOps, op)
	}

	operands := p.values[mark:]
	if len(operands) != len(levelOps)+1 {
		return errIncomplete
	}

	acc := operands[0]
	for i, j := len(levelOps)-1, 1; i >= 0; i, j = i-1, j+1 {
		var err error
		acc, err = operators[levelOps[i]](acc, operands[j])
		if err != nil {
			return err
		}
	}
	p.values = append(p.values[:mark], acc)
	return nil
}

func compareInts(cmp func(l, r int64) bool) func(string, string) (string, error) {
	return func(left, right string) (string, error) {
		l, err := asInt(left)
		if err != nil {
			return "", err
		}
		r, err := asInt(right)
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(cmp(l, r)), nil
	}
}

func combineBools(combine func(l, r bool) bool) func(string, string) (string, error) {
	return func(left, right string) (string, error) {
		l, err := asBool(left)
		if err != nil {
			return "", err
		}
		r, err := asBool(right)
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(combine(l, r)), nil
	}
}

// asInt maps boolean results back onto 1/0 so comparisons can reuse them.
func asInt(v string) (int64, error) {
	switch v {
	case "true":
		return 1, nil
	case "false":
		return 0, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func asBool(v string) (bool, error) {
	switch v {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("'%s' is not a boolean value", v)
}

func scan(s string, start int, accept func(rune) bool) string {
	end := start
	for end < len(s) && accept(rune(s[end])) {
		end++
	}
	if end == start {
		end++
	}
	return s[start:end]
}

func incomplete(expr string, err error) error {
	return failure.Wrap(failure.ErrInvalidExpression, err,
		"unable to parse boolean expression '%s', maybe expression is incomplete", expr)
}
