package rules

import "sync"

// MemoryCache is an unbounded ProgramCache. Share one per evaluator.
type MemoryCache struct {
	programs sync.Map
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

func (c *MemoryCache) Get(key string) (any, bool) {
	return c.programs.Load(key)
}

func (c *MemoryCache) Set(key string, value any) {
	c.programs.Store(key, value)
}
