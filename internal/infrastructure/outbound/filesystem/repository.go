package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sophialabs/agenix/internal/domain/testcase"
)

var _ testcase.Repository = (*YAMLRepository)(nil)

// YAMLRepository loads test definitions from YAML files in a directory tree.
type YAMLRepository struct {
	rootDir  string
	resolver *IncludeResolver
	exclude  []string
}

// NewYAMLRepository creates a repository rooted at rootDir. Files listed in
// exclude (e.g. the settings file) are skipped.
func NewYAMLRepository(rootDir string, exclude ...string) (*YAMLRepository, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root directory: %w", err)
	}
	var abs []string
	for _, e := range exclude {
		if e == "" {
			continue
		}
		p, err := filepath.Abs(e)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve excluded file: %w", err)
		}
		abs = append(abs, p)
	}
	return &YAMLRepository{
		rootDir:  absRoot,
		resolver: NewIncludeResolver(absRoot),
		exclude:  abs,
	}, nil
}

// LoadAll walks the root directory for YAML test files. Definitions are
// returned in file path order, then in file order.
func (r *YAMLRepository) LoadAll(ctx context.Context) ([]*testcase.Definition, error) {
	var defs []*testcase.Definition

	err := filepath.WalkDir(r.rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != r.rootDir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !isYAMLFile(path) || slices.Contains(r.exclude, path) {
			return nil
		}

		loaded, err := r.loadFile(path)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
		defs = append(defs, loaded...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk test directory: %w", err)
	}

	return defs, nil
}

// LoadByName loads a single test definition by name.
func (r *YAMLRepository) LoadByName(ctx context.Context, name string) (*testcase.Definition, error) {
	all, err := r.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tests: %w", err)
	}
	for _, d := range all {
		if d.Name == name {
			return d, nil
		}
	}
	return nil, testcase.ErrNotFound
}

func (r *YAMLRepository) loadFile(path string) ([]*testcase.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	// Parse into yaml.Node tree to handle !include tags.
	var rootNode yaml.Node
	if err := yaml.Unmarshal(data, &rootNode); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if rootNode.Kind != yaml.DocumentNode || len(rootNode.Content) == 0 {
		// Empty file.
		return nil, nil
	}

	if err := r.resolver.ResolveIncludes(&rootNode, filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("failed to resolve includes: %w", err)
	}

	content := rootNode.Content[0]
	if content.Kind != yaml.SequenceNode {
		d, err := decodeTestNode(content)
		if err != nil {
			return nil, err
		}
		d.SourceFile = path
		d.SourceIndex = -1
		return []*testcase.Definition{d}, nil
	}

	defs := make([]*testcase.Definition, 0, len(content.Content))
	for i, item := range content.Content {
		d, err := decodeTestNode(item)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		d.SourceFile = path
		d.SourceIndex = i
		defs = append(defs, d)
	}
	return defs, nil
}

func decodeTestNode(node *yaml.Node) (*testcase.Definition, error) {
	var yt yamlTest
	if err := node.Decode(&yt); err != nil {
		return nil, fmt.Errorf("failed to decode test: %w", err)
	}
	return &testcase.Definition{
		Name:        yt.Name,
		Description: yt.Description,
		Variables:   yt.Variables,
		Actions:     toActions(yt.Actions),
	}, nil
}

func toActions(ys []yamlAction) []testcase.ActionDef {
	if len(ys) == 0 {
		return nil
	}
	out := make([]testcase.ActionDef, len(ys))
	for i, ya := range ys {
		out[i] = toAction(ya)
	}
	return out
}

func toAction(ya yamlAction) testcase.ActionDef {
	a := testcase.ActionDef{
		CreateVariables: ya.CreateVariables,
		Echo:            ya.Echo,
	}
	if ya.Send != nil {
		a.Send = &testcase.SendDef{
			Endpoint: ya.Send.Endpoint,
			Message:  toMessage(ya.Send.Message),
		}
	}
	if ya.Receive != nil {
		a.Receive = toReceive(ya.Receive)
	}
	if ya.Sleep != nil {
		a.Sleep = &testcase.SleepDef{Duration: time.Duration(*ya.Sleep)}
	}
	if ya.Conditional != nil {
		a.Conditional = &testcase.ConditionalDef{
			When:    ya.Conditional.When,
			Actions: toActions(ya.Conditional.Actions),
		}
	}
	if ya.Purge != nil {
		a.Purge = &testcase.PurgeDef{
			Endpoint:     ya.Purge.Endpoint,
			Selector:     ya.Purge.Selector.Map,
			SelectorExpr: ya.Purge.Selector.Expr,
		}
	}
	return a
}

func toMessage(ym yamlMessage) testcase.MessageDef {
	return testcase.MessageDef{
		Name:       ym.Name,
		Type:       ym.Type,
		Payload:    ym.Payload,
		Template:   ym.Template,
		Engine:     ym.Engine,
		Headers:    ym.Headers,
		HeaderData: ym.HeaderData,
	}
}

func toReceive(yr *yamlReceive) *testcase.ReceiveDef {
	r := &testcase.ReceiveDef{
		Endpoint:     yr.Endpoint,
		Message:      toMessage(yr.Message),
		Selector:     yr.Selector.Map,
		SelectorExpr: yr.Selector.Expr,
		Timeout:      time.Duration(yr.Timeout),
	}
	if yv := yr.Validate; yv != nil {
		r.Validate = &testcase.ValidateDef{
			Expressions:      yv.Expressions,
			Ignore:           yv.Ignore,
			Strict:           yv.Strict,
			HeaderIgnoreCase: yv.HeaderIgnoreCase,
			HeaderValidators: yv.HeaderValidators,
		}
	}
	if ye := yr.Extract; ye != nil {
		r.Extract = &testcase.ExtractDef{
			Headers: ye.Headers,
			Body:    ye.Body,
			Payload: ye.Payload,
		}
	}
	return r
}
