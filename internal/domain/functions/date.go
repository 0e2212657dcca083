package functions

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sophialabs/agenix/internal/domain/testcontext"
)

const defaultDatePattern = "dd.MM.yyyy"

// datePatternTokens maps date pattern letters onto Go reference layout parts.
// Longer tokens come first so that "yyyy" wins over "yy".
var datePatternTokens = []struct{ token, layout string }{
	{"yyyy", "2006"}, {"yy", "06"},
	{"MMMM", "January"}, {"MMM", "Jan"}, {"MM", "01"},
	{"dd", "02"}, {"HH", "15"}, {"hh", "03"},
	{"mm", "04"}, {"ss", "05"}, {"SSS", "000"},
	{"a", "PM"}, {"XXX", "Z07:00"}, {"Z", "-0700"},
	{"EEEE", "Monday"}, {"EEE", "Mon"},
}

var offsetPattern = regexp.MustCompile(`^([+-])(\d+)([yMdhms])$`)

func dateFunctions(now func() time.Time) []testcontext.Function {
	return []testcontext.Function{
		ranged("CurrentDate", 0, 2, func(_ *testcontext.Context, args []string) (string, error) {
			pattern := defaultDatePattern
			if len(args) > 0 && args[0] != "" {
				pattern = args[0]
			}
			t := now()
			if len(args) == 2 {
				var err error
				if t, err = applyOffset(t, args[1]); err != nil {
					return "", err
				}
			}
			return t.Format(DateLayout(pattern)), nil
		}),
		ranged("ChangeDate", 2, 3, func(_ *testcontext.Context, args []string) (string, error) {
			pattern := defaultDatePattern
			if len(args) == 3 {
				pattern = args[2]
			}
			layout := DateLayout(pattern)
			t, err := time.Parse(layout, args[0])
			if err != nil {
				return "", usage("ChangeDate", "date %q does not match pattern %q", args[0], pattern)
			}
			if t, err = applyOffset(t, args[1]); err != nil {
				return "", err
			}
			return t.Format(layout), nil
		}),
		fixed("UnixTimestamp", 0, func(_ *testcontext.Context, _ []string) (string, error) {
			return strconv.FormatInt(now().Unix(), 10), nil
		}),
	}
}

// DateLayout converts a date pattern such as "yyyy-MM-dd'T'HH:mm:ss" into a
// Go time layout. Text in single quotes is copied literally.
func DateLayout(pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); {
		if pattern[i] == '\'' {
			end := strings.IndexByte(pattern[i+1:], '\'')
			if end < 0 {
				b.WriteString(pattern[i+1:])
				break
			}
			b.WriteString(pattern[i+1 : i+1+end])
			i += end + 2
			continue
		}
		matched := false
		for _, tok := range datePatternTokens {
			if strings.HasPrefix(pattern[i:], tok.token) {
				b.WriteString(tok.layout)
				i += len(tok.token)
				matched = true
				break
			}
		}
		if !matched {
			b.WriteByte(pattern[i])
			i++
		}
	}
	return b.String()
}

// applyOffset shifts t by an offset such as "+1d", "-2h" or "+3M".
func applyOffset(t time.Time, offset string) (time.Time, error) {
	m := offsetPattern.FindStringSubmatch(strings.TrimSpace(offset))
	if m == nil {
		return t, usage("date", "invalid date offset %q", offset)
	}
	n, _ := strconv.Atoi(m[2])
	if m[1] == "-" {
		n = -n
	}
	switch m[3] {
	case "y":
		return t.AddDate(n, 0, 0), nil
	case "M":
		return t.AddDate(0, n, 0), nil
	case "d":
		return t.AddDate(0, 0, n), nil
	case "h":
		return t.Add(time.Duration(n) * time.Hour), nil
	case "m":
		return t.Add(time.Duration(n) * time.Minute), nil
	default:
		return t.Add(time.Duration(n) * time.Second), nil
	}
}
