package filesystem

import (
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// yamlTest is the YAML deserialization target for test files.
type yamlTest struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Variables   map[string]any `yaml:"variables,omitempty"`
	Actions     []yamlAction   `yaml:"actions"`
}

type yamlAction struct {
	Send            *yamlSend        `yaml:"send,omitempty"`
	Receive         *yamlReceive     `yaml:"receive,omitempty"`
	CreateVariables map[string]any   `yaml:"createVariables,omitempty"`
	Echo            *string          `yaml:"echo,omitempty"`
	Sleep           *yamlDuration    `yaml:"sleep,omitempty"`
	Conditional     *yamlConditional `yaml:"conditional,omitempty"`
	Purge           *yamlPurge       `yaml:"purge,omitempty"`
}

type yamlMessage struct {
	Name       string            `yaml:"name,omitempty"`
	Type       string            `yaml:"type,omitempty"`
	Payload    string            `yaml:"payload,omitempty"`
	Template   string            `yaml:"template,omitempty"`
	Engine     string            `yaml:"engine,omitempty"`
	Headers    map[string]string `yaml:"headers,omitempty"`
	HeaderData []string          `yaml:"headerData,omitempty"`
}

type yamlSend struct {
	Endpoint string      `yaml:"endpoint"`
	Message  yamlMessage `yaml:"message"`
}

type yamlReceive struct {
	Endpoint string        `yaml:"endpoint"`
	Message  yamlMessage   `yaml:"message"`
	Selector yamlSelector  `yaml:"selector,omitempty"`
	Timeout  yamlDuration  `yaml:"timeout,omitempty"`
	Validate *yamlValidate `yaml:"validate,omitempty"`
	Extract  *yamlExtract  `yaml:"extract,omitempty"`
}

type yamlValidate struct {
	Expressions      map[string]string `yaml:"expressions,omitempty"`
	Ignore           []string          `yaml:"ignore,omitempty"`
	Strict           *bool             `yaml:"strict,omitempty"`
	HeaderIgnoreCase bool              `yaml:"headerIgnoreCase,omitempty"`
	HeaderValidators []string          `yaml:"headerValidators,omitempty"`
}

type yamlExtract struct {
	Headers map[string]string `yaml:"headers,omitempty"`
	Body    map[string]string `yaml:"body,omitempty"`
	Payload string            `yaml:"payload,omitempty"`
}

type yamlConditional struct {
	When    string       `yaml:"when"`
	Actions []yamlAction `yaml:"actions"`
}

type yamlPurge struct {
	Endpoint string       `yaml:"endpoint"`
	Selector yamlSelector `yaml:"selector,omitempty"`
}

// yamlSelector accepts either a key/value map or a
// "key = 'value' AND ..." string.
type yamlSelector struct {
	Map  map[string]string
	Expr string
}

func (s *yamlSelector) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		s.Expr = node.Value
		return nil
	case yaml.MappingNode:
		return node.Decode(&s.Map)
	default:
		return fmt.Errorf("line %d: selector must be a string or a map", node.Line)
	}
}

// yamlDuration accepts Go duration strings ("1.5s") and plain integers,
// which are read as milliseconds.
type yamlDuration time.Duration

func (d *yamlDuration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	if ms, err := strconv.ParseInt(node.Value, 10, 64); err == nil {
		*d = yamlDuration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q", node.Line, node.Value)
	}
	*d = yamlDuration(parsed)
	return nil
}
