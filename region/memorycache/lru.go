package memorycache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// NewLRU returns a cache that holds at most capacity entries, evicting the
// least-recently-used entry when full.
//
// It panics if capacity is not positive.
func NewLRU(capacity int) Cache {
	c, err := lru.New[string, any](capacity)
	if err != nil {
		panic(err)
	}

	return lruCache{c}
}

// lruCache is an implementation of Cache that uses an LRU eviction policy.
type lruCache struct {
	cache *lru.Cache[string, any]
}

func (c lruCache) Get(key string) (any, bool) {
	return c.cache.Get(key)
}

func (c lruCache) Set(key string, v any) {
	c.cache.Add(key, v)
}

func (c lruCache) Remove(key string) {
	c.cache.Remove(key)
}

func (c lruCache) Clear() {
	c.cache.Purge()
}
