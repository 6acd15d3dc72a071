package containers

// LRU is a tiny fixed-capacity least-recently-used cache. Capacity is
// expected to be single digits (per-swapchain-image state); lookup is a
// linear scan.
type LRU[K comparable, V any] struct {
	capacity int
	keys     []K
	values   []V
}

func NewLRU[K comparable, V any](capacity int) *LRU[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &LRU[K, V]{capacity: capacity}
}

// Get returns the cached value and moves it to the front.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	for i, k := range c.keys {
		if k == key {
			c.touch(i)
			return c.values[0], true
		}
	}
	var zero V
	return zero, false
}

// Put inserts or refreshes key, evicting the least recently used entry
// when full.
func (c *LRU[K, V]) Put(key K, value V) {
	for i, k := range c.keys {
		if k == key {
			c.values[i] = value
			c.touch(i)
			return
		}
	}
	if len(c.keys) == c.capacity {
		c.keys = c.keys[:c.capacity-1]
		c.values = c.values[:c.capacity-1]
	}
	c.keys = append([]K{key}, c.keys...)
	c.values = append([]V{value}, c.values...)
}

func (c *LRU[K, V]) Len() int {
	return len(c.keys)
}

// Clear drops every entry.
func (c *LRU[K, V]) Clear() {
	c.keys = c.keys[:0]
	c.values = c.values[:0]
}

func (c *LRU[K, V]) touch(i int) {
	k, v := c.keys[i], c.values[i]
	copy(c.keys[1:i+1], c.keys[:i])
	copy(c.values[1:i+1], c.values[:i])
	c.keys[0], c.values[0] = k, v
}
