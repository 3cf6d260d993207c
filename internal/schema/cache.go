package schema

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// SummaryCache memoises summaries of registry schemas. Registry schemas never
// change after start-up, so entries are keyed by schema name and options only.
type SummaryCache struct {
	entries *lru.Cache[string, string]
}

// NewSummaryCache creates a cache holding at most size summaries.
func NewSummaryCache(size int) (*SummaryCache, error) {
	if size <= 0 {
		size = 128
	}
	c, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("create summary cache: %w", err)
	}
	return &SummaryCache{entries: c}, nil
}

// Summarise returns the cached summary for name, computing it on a miss.
// A nil cache always computes.
func (c *SummaryCache) Summarise(name string, s *Schema, opts SummaryOptions) string {
	if c == nil {
		return Summarise(s, opts)
	}
	key := name + "|" + opts.cacheKey()
	if v, ok := c.entries.Get(key); ok {
		return v
	}
	v := Summarise(s, opts)
	c.entries.Add(key, v)
	return v
}

// Len reports how many summaries are cached.
func (c *SummaryCache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}
