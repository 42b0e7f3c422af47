package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// LRUCache is a size-bounded Least Recently Used cache, safe for concurrent use
type LRUCache[K comparable, V any] struct {
	cache *lru.Cache[K, V]
}

// NewLRUCache creates a cache holding at most maxSize entries. onEvict, if
// non-nil, is called for every entry pushed out or removed.
func NewLRUCache[K comparable, V any](maxSize int, onEvict func(K, V)) (*LRUCache[K, V], error) {
	if maxSize <= 0 {
		maxSize = 1
	}
	var (
		c   *lru.Cache[K, V]
		err error
	)
	if onEvict != nil {
		c, err = lru.NewWithEvict(maxSize, onEvict)
	} else {
		c, err = lru.New[K, V](maxSize)
	}
	if err != nil {
		return nil, err
	}
	return &LRUCache[K, V]{cache: c}, nil
}

// Set adds or updates a key-value pair in the cache
func (l *LRUCache[K, V]) Set(key K, value V) {
	l.cache.Add(key, value)
}

// Get retrieves a value from the cache by key
func (l *LRUCache[K, V]) Get(key K) (V, bool) {
	return l.cache.Get(key)
}

// Remove drops key, reporting whether it was present
func (l *LRUCache[K, V]) Remove(key K) bool {
	return l.cache.Remove(key)
}

func (l *LRUCache[K, V]) Len() int {
	return l.cache.Len()
}

// Purge empties the cache
func (l *LRUCache[K, V]) Purge() {
	l.cache.Purge()
}
