package template

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/google/uuid"
)

func systemNow() string { return time.Now().UTC().Format(time.RFC3339) }

// helpers are the functions available to both engines.
func helpers(now func() string) map[string]any {
	return map[string]any{
		"uuid": uuid.NewString,
		"now":  now,
		"nowFormat": func(layout string) string {
			t, err := time.Parse(time.RFC3339, now())
			if err != nil {
				return now()
			}
			return t.Format(layout)
		},
		"randomInt": func(min, max int) int {
			if min >= max {
				return min
			}
			return min + rand.IntN(max-min+1)
		},
		"seq":      seqInts,
		"toJSON":   toJSONString,
		"jsonPath": extractJSONPath,
		"upper":    strings.ToUpper,
		"lower":    strings.ToLower,
	}
}

func seqInts(start, end int) []int {
	if end < start {
		return nil
	}
	s := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		s = append(s, i)
	}
	return s
}

func toJSONString(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// extractJSONPath evaluates expression against the JSON document doc.
// Errors yield an empty string.
func extractJSONPath(doc string, expression string) string {
	var data any
	if err := json.Unmarshal([]byte(doc), &data); err != nil {
		return ""
	}
	result, err := jsonpath.Get(expression, data)
	if err != nil {
		return ""
	}
	if s, ok := result.(string); ok {
		return s
	}
	return toJSONString(result)
}
