package cache

import (
	"container/list"
	"sync"
)

// LRU is a thread-safe least-recently-used cache bounded by entry count.
// The eviction callback runs outside the lock.
type LRU[K comparable, V any] struct {
	capacity int
	items    map[K]*list.Element
	order    *list.List
	onEvict  func(K, V)
	mu       sync.Mutex
}

type entry[K comparable, V any] struct {
	key   K
	value V
}

// NewLRU creates a cache holding at most capacity entries. onEvict may be nil.
func NewLRU[K comparable, V any](capacity int, onEvict func(K, V)) *LRU[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &LRU[K, V]{
		capacity: capacity,
		items:    make(map[K]*list.Element),
		order:    list.New(),
		onEvict:  onEvict,
	}
}

// Get retrieves an item and marks it as recently used
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		return elem.Value.(*entry[K, V]).value, true
	}
	var zero V
	return zero, false
}

// Set adds or updates an item, evicting the oldest entries when full
func (c *LRU[K, V]) Set(key K, value V) {
	var evicted []*entry[K, V]

	c.mu.Lock()
	if elem, ok := c.items[key]; ok {
		elem.Value.(*entry[K, V]).value = value
		c.order.MoveToFront(elem)
		c.mu.Unlock()
		return
	}

	for c.order.Len() >= c.capacity {
		evicted = append(evicted, c.removeElement(c.order.Back()))
	}

	c.items[key] = c.order.PushFront(&entry[K, V]{key: key, value: value})
	c.mu.Unlock()

	c.notify(evicted)
}

// Remove deletes an item without calling the eviction callback
func (c *LRU[K, V]) Remove(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		return c.removeElement(elem).value, true
	}
	var zero V
	return zero, false
}

// EvictIf evicts every item matching fn, oldest first
func (c *LRU[K, V]) EvictIf(fn func(K, V) bool) int {
	var evicted []*entry[K, V]

	c.mu.Lock()
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		e := elem.Value.(*entry[K, V])
		if fn(e.key, e.value) {
			evicted = append(evicted, c.removeElement(elem))
		}
		elem = prev
	}
	c.mu.Unlock()

	c.notify(evicted)
	return len(evicted)
}

// Purge evicts all items
func (c *LRU[K, V]) Purge() {
	c.EvictIf(func(K, V) bool { return true })
}

// Len returns the number of items in the cache
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *LRU[K, V]) removeElement(elem *list.Element) *entry[K, V] {
	e := elem.Value.(*entry[K, V])
	c.order.Remove(elem)
	delete(c.items, e.key)
	return e
}

func (c *LRU[K, V]) notify(evicted []*entry[K, V]) {
	if c.onEvict == nil {
		return
	}
	for _, e := range evicted {
		c.onEvict(e.key, e.value)
	}
}
