package message

import (
	"fmt"
	"sort"
	"strings"
)

// Print renders m for log output. mask, when non-nil, is applied to the
// payload and header values.
func Print(m Message, mask func(string) string) string {
	if mask == nil {
		mask = func(s string) string { return s }
	}

	headers := m.Headers()
	names := make([]string, 0, len(headers))
	for k := range headers {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "MESSAGE [id: %s, type: %s]\n", m.ID(), m.Type())
	b.WriteString("HEADERS [")
	for i, k := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%s", k, mask(fmt.Sprint(headers[k])))
	}
	b.WriteString("]\n")
	if data := m.HeaderData(); len(data) > 0 {
		fmt.Fprintf(&b, "HEADER_DATA %s\n", mask(strings.Join(data, "\n")))
	}
	payload := m.Payload()
	if p, ok := payload.([]byte); ok && m.Type().IsBinary() {
		fmt.Fprintf(&b, "PAYLOAD <%d bytes>", len(p))
	} else {
		fmt.Fprintf(&b, "PAYLOAD %s", mask(payloadText(payload)))
	}
	return b.String()
}

func payloadText(p any) string {
	switch v := p.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}
