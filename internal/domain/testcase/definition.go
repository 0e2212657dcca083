package testcase

import (
	"fmt"
	"time"
)

// Definition is a test case as authored in a YAML test file.
type Definition struct {
	Name        string
	Description string
	Variables   map[string]any
	Actions     []ActionDef

	// SourceFile and SourceIndex locate the definition on disk.
	SourceFile  string
	SourceIndex int
}

// ActionDef holds exactly one action.
type ActionDef struct {
	Send            *SendDef
	Receive         *ReceiveDef
	CreateVariables map[string]any
	Echo            *string
	Sleep           *SleepDef
	Conditional     *ConditionalDef
	Purge           *PurgeDef
}

// MessageDef describes a message to send or the control message of a
// receive.
type MessageDef struct {
	Name    string
	Type    string
	Payload string
	// Template is rendered by Engine before dynamic content is resolved.
	Template   string
	Engine     string
	Headers    map[string]string
	HeaderData []string
}

type SendDef struct {
	Endpoint string
	Message  MessageDef
}

type ReceiveDef struct {
	Endpoint string
	Message  MessageDef
	// Selector is either a key/value map or, when SelectorExpr is set, a
	// "key = 'value' AND ..." string.
	Selector     map[string]string
	SelectorExpr string
	Timeout      time.Duration
	Validate     *ValidateDef
	Extract      *ExtractDef
}

// ValidateDef configures the validation contexts of a receive.
type ValidateDef struct {
	// Expressions maps JSONPath or XPath expressions to control values.
	Expressions      map[string]string
	Ignore           []string
	Strict           *bool
	HeaderIgnoreCase bool
	HeaderValidators []string
}

// ExtractDef maps message content to variable names.
type ExtractDef struct {
	Headers map[string]string
	Body    map[string]string
	Payload string
}

type SleepDef struct {
	Duration time.Duration
}

type ConditionalDef struct {
	When    string
	Actions []ActionDef
}

type PurgeDef struct {
	Endpoint     string
	Selector     map[string]string
	SelectorExpr string
}

// Kind names the action held by a.
func (a ActionDef) Kind() string {
	switch {
	case a.Send != nil:
		return "send"
	case a.Receive != nil:
		return "receive"
	case a.CreateVariables != nil:
		return "createVariables"
	case a.Echo != nil:
		return "echo"
	case a.Sleep != nil:
		return "sleep"
	case a.Conditional != nil:
		return "conditional"
	case a.Purge != nil:
		return "purge"
	default:
		return ""
	}
}

func (a ActionDef) count() int {
	n := 0
	for _, set := range []bool{
		a.Send != nil, a.Receive != nil, a.CreateVariables != nil, a.Echo != nil,
		a.Sleep != nil, a.Conditional != nil, a.Purge != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

// Validate checks the structure of d. Endpoint names are checked when the
// definition is compiled.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("test in %s[%d]: name is required", d.SourceFile, d.SourceIndex)
	}
	return validateActions(d.Name, "actions", d.Actions)
}

func validateActions(test, path string, actions []ActionDef) error {
	for i, a := range actions {
		at := fmt.Sprintf("%s[%d]", path, i)
		switch a.count() {
		case 0:
			return fmt.Errorf("test %s: %s: empty action", test, at)
		case 1:
		default:
			return fmt.Errorf("test %s: %s: exactly one action per entry is allowed", test, at)
		}
		switch {
		case a.Send != nil && a.Send.Endpoint == "":
			return fmt.Errorf("test %s: %s.send: endpoint is required", test, at)
		case a.Receive != nil && a.Receive.Endpoint == "":
			return fmt.Errorf("test %s: %s.receive: endpoint is required", test, at)
		case a.Purge != nil && a.Purge.Endpoint == "":
			return fmt.Errorf("test %s: %s.purge: endpoint is required", test, at)
		case a.Receive != nil && a.Receive.Timeout < 0:
			return fmt.Errorf("test %s: %s.receive: negative timeout", test, at)
		case a.Sleep != nil && a.Sleep.Duration < 0:
			return fmt.Errorf("test %s: %s.sleep: negative duration", test, at)
		case a.Conditional != nil:
			if a.Conditional.When == "" {
				return fmt.Errorf("test %s: %s.conditional: when is required", test, at)
			}
			if err := validateActions(test, at+".conditional.actions", a.Conditional.Actions); err != nil {
				return err
			}
		}
	}
	return nil
}
