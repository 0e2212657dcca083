// Package pathexpr evaluates JSONPath and XPath expressions against message
// payloads. Compiled expressions are kept in a bounded LRU cache.
package pathexpr

import (
	"sync"

	"github.com/golang/groupcache/lru"
)

// DefaultCacheSize bounds the compiled expressions kept per evaluator.
const DefaultCacheSize = 256

// compileCache memoizes compile results by expression. lru.Cache is not
// safe for concurrent use, hence the mutex.
type compileCache[T any] struct {
	mu    sync.Mutex
	cache *lru.Cache
}

func newCompileCache[T any](size int) *compileCache[T] {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &compileCache[T]{cache: lru.New(size)}
}

func (c *compileCache[T]) get(expr string, compile func(string) (T, error)) (T, error) {
	c.mu.Lock()
	if v, ok := c.cache.Get(expr); ok {
		c.mu.Unlock()
		return v.(T), nil
	}
	c.mu.Unlock()

	compiled, err := compile(expr)
	if err != nil {
		return compiled, err
	}

	c.mu.Lock()
	c.cache.Add(expr, compiled)
	c.mu.Unlock()
	return compiled, nil
}

func (c *compileCache[T]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Len()
}
