package services

import (
	"fmt"
	"sort"

	"github.com/sophialabs/agenix/internal/domain/testcase"
)

// TestIndex keeps compiled test cases in load order and by name.
type TestIndex struct {
	ordered []*testcase.TestCase
	byName  map[string]*testcase.TestCase
	sources map[string]string
}

// NewTestIndex creates an empty index.
func NewTestIndex() *TestIndex {
	return &TestIndex{
		byName:  make(map[string]*testcase.TestCase),
		sources: make(map[string]string),
	}
}

// Add inserts a test case. source names where it was defined and is used
// in the duplicate name error.
func (idx *TestIndex) Add(tc *testcase.TestCase, source string) error {
	if prev, ok := idx.sources[tc.Name]; ok {
		return fmt.Errorf("duplicate test name %q in %s (first defined in %s)", tc.Name, source, prev)
	}
	idx.ordered = append(idx.ordered, tc)
	idx.byName[tc.Name] = tc
	idx.sources[tc.Name] = source
	return nil
}

// Lookup returns the test case called name.
func (idx *TestIndex) Lookup(name string) (*testcase.TestCase, bool) {
	tc, ok := idx.byName[name]
	return tc, ok
}

// All returns the test cases in the order they were added.
func (idx *TestIndex) All() []*testcase.TestCase {
	return idx.ordered
}

// Names returns all test names in sorted order.
func (idx *TestIndex) Names() []string {
	names := make([]string, 0, len(idx.byName))
	for n := range idx.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of indexed test cases.
func (idx *TestIndex) Len() int { return len(idx.ordered) }
