package corpus

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/WessleyAI/termscape/pkg/fn"
)

// DefaultCacheSize is the number of token sequences kept by NewCache when
// size <= 0.
const DefaultCacheSize = 16

// Cache memoizes the token sequence of each fetched corpus by URL. Failed
// fetches are not cached.
type Cache struct {
	src   TextSource
	cache *lru.Cache[string, []string]
	mu    sync.Mutex // serializes misses so one URL is fetched once
}

// NewCache wraps src with an LRU of the given size.
func NewCache(src TextSource, size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, []string](size)
	if err != nil {
		return nil, fmt.Errorf("corpus: new cache: %w", err)
	}
	return &Cache{src: src, cache: c}, nil
}

// Tokens returns the tokenized corpus at rawURL, fetching it on a miss.
// Callers must not modify the returned slice.
func (c *Cache) Tokens(ctx context.Context, rawURL string) fn.Result[[]string] {
	if tokens, ok := c.cache.Get(rawURL); ok {
		return fn.Ok(tokens)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if tokens, ok := c.cache.Get(rawURL); ok {
		return fn.Ok(tokens)
	}
	r := fn.MapResult(c.src.Fetch(ctx, rawURL), Tokenize)
	if tokens, err := r.Unwrap(); err == nil {
		c.cache.Add(rawURL, tokens)
	}
	return r
}

// Invalidate drops rawURL from the cache.
func (c *Cache) Invalidate(rawURL string) { c.cache.Remove(rawURL) }

// Len returns the number of cached corpora.
func (c *Cache) Len() int { return c.cache.Len() }
