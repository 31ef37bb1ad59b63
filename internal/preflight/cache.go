package preflight

import "sync"

// Cache memoises exclusion lists keyed by resolved workspace root. It is
// bounded: when full, the oldest entry is evicted. A nil Cache disables
// memoisation entirely.
type Cache struct {
	mu      sync.Mutex
	max     int
	entries map[string][]string
	order   []string
}

// DefaultCacheSize bounds the cache used by the CLI; release runs touch a
// handful of workspaces at most.
const DefaultCacheSize = 8

// NewCache returns a cache holding at most max entries. A max below one is
// raised to one.
func NewCache(max int) *Cache {
	if max < 1 {
		max = 1
	}

	return &Cache{max: max, entries: make(map[string][]string)}
}

func (c *Cache) get(key string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	excludes, ok := c.entries[key]

	return excludes, ok
}

func (c *Cache) put(key string, excludes []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		c.entries[key] = excludes

		return
	}

	if len(c.order) >= c.max {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = excludes
	c.order = append(c.order, key)
}

// Invalidate drops the entry for root, if any, so the next lookup re-reads
// the configuration file.
func (c *Cache) Invalidate(root string) {
	key := resolveRoot(root)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		return
	}

	delete(c.entries, key)

	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)

			break
		}
	}
}

// Len reports the number of cached workspaces.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
