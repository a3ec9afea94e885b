package navigator

import (
	"regexp"
	"sync"
)

// RegexCache is a monotone key→compiled-regex map: writers are
// idempotent (the same source always yields the same *regexp.Regexp),
// and entries are never evicted. Concrete Navigator implementations
// embed one and call GetOrCompile from CompileRegex; it is not itself
// part of the Navigator interface.
type RegexCache struct {
	mu    sync.RWMutex
	cache map[string]*regexp.Regexp
}

// NewRegexCache returns an empty cache.
func NewRegexCache() *RegexCache {
	return &RegexCache{cache: make(map[string]*regexp.Regexp)}
}

// GetOrCompile returns the cached *regexp.Regexp for src, compiling and
// storing it on first use.
func (c *RegexCache) GetOrCompile(src string) (*regexp.Regexp, error) {
	c.mu.RLock()
	if re, ok := c.cache[src]; ok {
		c.mu.RUnlock()
		return re, nil
	}
	c.mu.RUnlock()

	re, err := regexp.Compile(src)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.cache[src]; ok {
		// Another goroutine won the race; idempotent, same source -> same value.
		return existing, nil
	}
	c.cache[src] = re
	return re, nil
}

// Len reports how many distinct sources have been compiled so far.
func (c *RegexCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}
