package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// IncludeTag marks a YAML node whose value is the path of a file to splice
// in. YAML files are spliced as nodes; any other file (an XML or JSON
// payload, say) becomes a string scalar.
const IncludeTag = "!include"

const maxIncludeDepth = 10

// IncludeResolver resolves !include tags in YAML node trees. Paths are
// relative to the including file, or to the root with an "@root/" prefix,
// and must stay inside the root.
type IncludeResolver struct {
	rootDir string
}

// NewIncludeResolver creates a resolver bound to rootDir for @root references.
func NewIncludeResolver(rootDir string) *IncludeResolver {
	return &IncludeResolver{rootDir: rootDir}
}

// ResolveIncludes replaces the !include nodes below node.
func (r *IncludeResolver) ResolveIncludes(node *yaml.Node, currentDir string) error {
	return r.walk(node, currentDir, nil)
}

func (r *IncludeResolver) walk(node *yaml.Node, currentDir string, chain []string) error {
	if node == nil {
		return nil
	}
	if node.Tag == IncludeTag {
		return r.include(node, currentDir, chain)
	}
	for _, child := range node.Content {
		if err := r.walk(child, currentDir, chain); err != nil {
			return err
		}
	}
	return nil
}

func (r *IncludeResolver) include(node *yaml.Node, currentDir string, chain []string) error {
	ref := strings.TrimSpace(node.Value)
	if ref == "" {
		return fmt.Errorf("line %d: %s tag has empty value", node.Line, IncludeTag)
	}
	if len(chain) >= maxIncludeDepth {
		return fmt.Errorf("%s depth exceeds maximum of %d", IncludeTag, maxIncludeDepth)
	}

	resolved, err := r.resolvePath(ref, currentDir)
	if err != nil {
		return fmt.Errorf("line %d: %s %q: %w", node.Line, IncludeTag, ref, err)
	}
	if slices.Contains(chain, resolved) {
		return fmt.Errorf("%s cycle: %s -> %s", IncludeTag, strings.Join(chain, " -> "), resolved)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return fmt.Errorf("failed to read included file %q: %w", resolved, err)
	}

	if !isYAMLFile(resolved) {
		node.Tag = "!!str"
		node.Kind = yaml.ScalarNode
		node.Style = yaml.LiteralStyle
		node.Value = string(data)
		node.Content = nil
		return nil
	}

	var included yaml.Node
	if err := yaml.Unmarshal(data, &included); err != nil {
		return fmt.Errorf("failed to parse included YAML %q: %w", resolved, err)
	}
	if err := r.walk(&included, filepath.Dir(resolved), append(chain, resolved)); err != nil {
		return err
	}
	if included.Kind == yaml.DocumentNode && len(included.Content) > 0 {
		*node = *included.Content[0]
	}
	return nil
}

// resolvePath returns the absolute path for ref. The result must be inside
// the root directory once symlinks are evaluated.
func (r *IncludeResolver) resolvePath(ref, currentDir string) (string, error) {
	var p string
	switch {
	case strings.HasPrefix(ref, "@root/"):
		p = filepath.Join(r.rootDir, strings.TrimPrefix(ref, "@root/"))
	case filepath.IsAbs(ref):
		return "", fmt.Errorf("absolute paths are not allowed")
	default:
		p = filepath.Join(currentDir, ref)
	}

	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		abs = real
	}
	root := r.rootDir
	if real, err := filepath.EvalSymlinks(root); err == nil {
		root = real
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes root directory")
	}
	return abs, nil
}

func isYAMLFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
