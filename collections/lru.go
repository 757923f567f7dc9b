package collections

import lru "github.com/hashicorp/golang-lru/v2"

// LruCache wraps the LRU dependency so callers only see the few operations
// they use.
type LruCache[K comparable, V any] struct {
	underlyingCache *lru.Cache[K, V]
}

func NewLruCache[K comparable, V any](maxSize int) (*LruCache[K, V], error) {
	underlyingCache, err := lru.New[K, V](maxSize)
	if err != nil {
		return nil, err
	}
	return &LruCache[K, V]{underlyingCache}, nil
}

func (lruCache *LruCache[K, V]) Put(key K, value V) {
	lruCache.underlyingCache.Add(key, value)
}

func (lruCache *LruCache[K, V]) Get(key K) (V, bool) {
	return lruCache.underlyingCache.Get(key)
}

func (lruCache *LruCache[K, V]) Len() int {
	return lruCache.underlyingCache.Len()
}
