package pathexpr

import (
	"maps"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/sophialabs/agenix/internal/domain/failure"
	domain "github.com/sophialabs/agenix/internal/domain/pathexpr"
)

var _ domain.Evaluator = (*XPathEvaluator)(nil)

// XPathEvaluator evaluates XPath expressions. Node sets yield the string
// value of their single node, or a slice of values when several nodes
// match; count(), string() and boolean expressions yield scalars.
type XPathEvaluator struct {
	namespaces  map[string]string
	expressions *compileCache[*xpath.Expr]
}

// NewXPathEvaluator creates an evaluator. namespaces maps prefixes used in
// expressions to namespace URIs.
func NewXPathEvaluator(cacheSize int, namespaces map[string]string) *XPathEvaluator {
	return &XPathEvaluator{
		namespaces:  maps.Clone(namespaces),
		expressions: newCompileCache[*xpath.Expr](cacheSize),
	}
}

func (e *XPathEvaluator) Kind() domain.Kind { return domain.XPath }

func (e *XPathEvaluator) Evaluate(payload, expr string) (any, bool, error) {
	compiled, err := e.expressions.get(domain.Strip(expr), func(s string) (*xpath.Expr, error) {
		if len(e.namespaces) > 0 {
			return xpath.CompileWithNS(s, e.namespaces)
		}
		return xpath.Compile(s)
	})
	if err != nil {
		return nil, false, failure.Wrap(failure.ErrInvalidExpression, err, "invalid XPath expression '%s'", expr)
	}

	doc, err := xmlquery.Parse(strings.NewReader(payload))
	if err != nil {
		return nil, false, failure.Validation(expr, "payload is not valid XML: %v", err)
	}

	switch v := compiled.Evaluate(xmlquery.CreateXPathNavigator(doc)).(type) {
	case *xpath.NodeIterator:
		var values []string
		for v.MoveNext() {
			values = append(values, v.Current().Value())
		}
		switch len(values) {
		case 0:
			return nil, false, nil
		case 1:
			return values[0], true, nil
		default:
			return values, true, nil
		}
	case nil:
		return nil, false, nil
	default:
		return v, true, nil
	}
}
