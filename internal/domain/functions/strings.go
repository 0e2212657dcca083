package functions

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sophialabs/agenix/internal/domain/failure"
	"github.com/sophialabs/agenix/internal/domain/testcontext"
)

var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "\"", "&quot;", "'", "&apos;")

func stringFunctions() []testcontext.Function {
	return []testcontext.Function{
		ranged("Concat", 1, testcontext.Unbounded, func(_ *testcontext.Context, args []string) (string, error) {
			return strings.Join(args, ""), nil
		}),
		fixed("UpperCase", 1, func(_ *testcontext.Context, args []string) (string, error) {
			return cases.Upper(language.Und).String(args[0]), nil
		}),
		fixed("LowerCase", 1, func(_ *testcontext.Context, args []string) (string, error) {
			return cases.Lower(language.Und).String(args[0]), nil
		}),
		fixed("StringLength", 1, func(_ *testcontext.Context, args []string) (string, error) {
			return strconv.Itoa(len([]rune(args[0]))), nil
		}),
		ranged("Substring", 2, 3, substring),
		fixed("Translate", 3, func(_ *testcontext.Context, args []string) (string, error) {
			re, err := regexp.Compile(args[1])
			if err != nil {
				return "", usage("Translate", "invalid regular expression %q: %v", args[1], err)
			}
			return re.ReplaceAllString(args[0], args[2]), nil
		}),
		fixed("Trim", 1, func(_ *testcontext.Context, args []string) (string, error) {
			return strings.TrimSpace(args[0]), nil
		}),
		fixed("EscapeXml", 1, func(_ *testcontext.Context, args []string) (string, error) {
			return xmlEscaper.Replace(args[0]), nil
		}),
		fixed("CdataSection", 1, func(_ *testcontext.Context, args []string) (string, error) {
			return "<![CDATA[" + args[0] + "]]>", nil
		}),
		ranged("EnvironmentVariable", 1, 2, func(_ *testcontext.Context, args []string) (string, error) {
			if v, ok := os.LookupEnv(args[0]); ok {
				return v, nil
			}
			if len(args) == 2 {
				return args[1], nil
			}
			return "", usage("EnvironmentVariable", "environment variable %q is not set", args[0])
		}),
	}
}

func substring(_ *testcontext.Context, args []string) (string, error) {
	runes := []rune(args[0])
	begin, err := strconv.Atoi(args[1])
	if err != nil || begin < 0 || begin > len(runes) {
		return "", usage("Substring", "invalid begin index %q", args[1])
	}
	end := len(runes)
	if len(args) == 3 {
		end, err = strconv.Atoi(args[2])
		if err != nil || end < begin || end > len(runes) {
			return "", usage("Substring", "invalid end index %q", args[2])
		}
	}
	return string(runes[begin:end]), nil
}

func usage(fn, format string, args ...any) error {
	return failure.System(failure.ErrInvalidFunctionUsage, "%s: %s", fn, fmt.Sprintf(format, args...))
}
