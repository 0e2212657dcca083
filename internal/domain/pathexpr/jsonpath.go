package pathexpr

import (
	"strconv"
	"strings"

	"github.com/PaesslerAG/gval"
	"github.com/PaesslerAG/jsonpath"
)

var jsonPathLanguage = gval.Full(jsonpath.Language())

// CompileJSONPath compiles expr with the full gval operator set available in
// filters. String literals may be single quoted, as in
// $.items[?(@.kind == 'ts')].
func CompileJSONPath(expr string) (gval.Evaluable, error) {
	return jsonPathLanguage.NewEvaluable(doubleQuoted(strings.TrimSpace(expr)))
}

// doubleQuoted rewrites single quoted string literals as Go double quoted
// strings, which is the only multi-character form gval parses.
func doubleQuoted(expr string) string {
	if !strings.Contains(expr, "'") {
		return expr
	}
	var b strings.Builder
	for i := 0; i < len(expr); i++ {
		ch := expr[i]
		switch ch {
		case '"':
			j := i + 1
			for j < len(expr) && expr[j] != '"' {
				if expr[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(expr) {
				b.WriteString(expr[i:])
				return b.String()
			}
			b.WriteString(expr[i : j+1])
			i = j
		case '\'':
			var lit strings.Builder
			j := i + 1
			for ; j < len(expr) && expr[j] != '\''; j++ {
				if expr[j] == '\\' && j+1 < len(expr) {
					j++
				}
				lit.WriteByte(expr[j])
			}
			if j >= len(expr) {
				b.WriteString(expr[i:])
				return b.String()
			}
			b.WriteString(strconv.Quote(lit.String()))
			i = j
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}
