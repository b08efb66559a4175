package memorycache

import (
	"github.com/dgraph-io/ristretto"
)

// LFUConfig is the configuration for a cache produced by NewLFU().
type LFUConfig struct {
	// MaxEntries is the maximum number of entries the cache holds. Each
	// entry has a unit cost; the admission policy may reject new entries
	// until it has gathered enough frequency information about them.
	MaxEntries int64
}

// NewLFU returns a cache that holds approximately cfg.MaxEntries entries,
// admitting and evicting entries based on an approximation of their access
// frequency.
//
// It panics if cfg.MaxEntries is not positive.
func NewLFU(cfg LFUConfig) Cache {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        cfg.MaxEntries * 10,
		MaxCost:            cfg.MaxEntries,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		panic(err)
	}

	return lfuCache{c}
}

// lfuCache is an implementation of Cache that uses ristretto's TinyLFU
// admission policy.
type lfuCache struct {
	cache *ristretto.Cache
}

func (c lfuCache) Get(key string) (any, bool) {
	return c.cache.Get(key)
}

func (c lfuCache) Set(key string, v any) {
	c.cache.Set(key, v, 1)

	// Sets are buffered; wait until this one is applied so that the entry is
	// visible to subsequent gets.
	c.cache.Wait()
}

func (c lfuCache) Remove(key string) {
	c.cache.Del(key)
}

func (c lfuCache) Clear() {
	c.cache.Clear()
}
