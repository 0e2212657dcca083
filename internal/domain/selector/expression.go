package selector

import (
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/sophialabs/agenix/internal/domain/convert"
	"github.com/sophialabs/agenix/internal/domain/failure"
	"github.com/sophialabs/agenix/internal/domain/message"
)

// exprEnv is the environment visible to selector expressions.
type exprEnv struct {
	ID      string         `expr:"id"`
	Name    string         `expr:"name"`
	Type    string         `expr:"type"`
	Payload string         `expr:"payload"`
	Headers map[string]any `expr:"headers"`
}

// Expression compiles an expr-lang boolean expression such as
// `headers.operation == "greet" && payload contains "Agenix"`.
func Expression(code string) (Selector, error) {
	program, err := expr.Compile(code, expr.Env(exprEnv{}), expr.AsBool())
	if err != nil {
		return nil, failure.Wrap(failure.ErrInvalidExpression, err, "failed to compile selector expression '%s'", code)
	}
	return &exprSelector{program: program, conv: convert.New()}, nil
}

type exprSelector struct {
	program *vm.Program
	conv    *convert.Engine
}

func (s *exprSelector) Accept(msg message.Message) bool {
	env := exprEnv{
		ID:      msg.ID(),
		Name:    msg.Name(),
		Type:    string(msg.Type()),
		Payload: message.PayloadString(msg, s.conv),
		Headers: msg.Headers(),
	}
	out, err := expr.Run(s.program, env)
	if err != nil {
		return false
	}
	ok, _ := out.(bool)
	return ok
}
