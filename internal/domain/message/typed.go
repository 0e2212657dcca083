package message

import (
	"fmt"
	"strconv"
	"strings"
)

var headerTypes = map[string]bool{
	"string": true, "int": true, "integer": true, "long": true, "short": true,
	"byte": true, "float": true, "double": true, "boolean": true, "bool": true,
}

// ParseTypedHeader interprets the "{type}value" header notation, e.g.
// "{int}42" or "{boolean}true". Values that do not start with one of the
// known type names, such as JSON text, are returned unchanged.
func ParseTypedHeader(raw string) (any, error) {
	if !strings.HasPrefix(raw, "{") {
		return raw, nil
	}
	end := strings.Index(raw, "}")
	if end < 0 {
		return raw, nil
	}
	typeName := strings.ToLower(raw[1:end])
	if !headerTypes[typeName] {
		return raw, nil
	}
	value := raw[end+1:]

	var (
		out any
		err error
	)
	switch typeName {
	case "string":
		out = value
	case "int", "integer":
		var n int64
		n, err = strconv.ParseInt(value, 10, 32)
		out = int(n)
	case "long":
		out, err = strconv.ParseInt(value, 10, 64)
	case "short":
		var n int64
		n, err = strconv.ParseInt(value, 10, 16)
		out = int16(n)
	case "byte":
		var n int64
		n, err = strconv.ParseInt(value, 10, 8)
		out = int8(n)
	case "float":
		var f float64
		f, err = strconv.ParseFloat(value, 32)
		out = float32(f)
	case "double":
		out, err = strconv.ParseFloat(value, 64)
	case "boolean", "bool":
		out, err = strconv.ParseBool(value)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid %s header value %q: %w", typeName, value, err)
	}
	return out, nil
}
