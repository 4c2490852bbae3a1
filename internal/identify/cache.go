package identify

import (
	"slices"
	"sync"

	"github.com/Veraticus/woodsnap/internal/model"
)

// DefaultCacheCapacity bounds the number of cached fingerprints.
const DefaultCacheCapacity = 50

// Cache is a bounded, thread-safe map from image fingerprint to matches.
// When full, the oldest inserted entry is evicted.
type Cache struct {
	entries  map[string][]model.Match
	order    []string
	capacity int
	mu       sync.RWMutex
}

// NewCache creates a cache holding at most capacity entries. A non-positive
// capacity selects DefaultCacheCapacity.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &Cache{
		entries:  make(map[string][]model.Match, capacity),
		order:    make([]string, 0, capacity),
		capacity: capacity,
	}
}

// Get returns a copy of the matches cached for fingerprint.
func (c *Cache) Get(fingerprint string) ([]model.Match, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	matches, ok := c.entries[fingerprint]
	if !ok {
		return nil, false
	}
	return slices.Clone(matches), true
}

// Put stores matches for fingerprint. Re-putting a key refreshes its position.
func (c *Cache) Put(fingerprint string, matches []model.Match) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[fingerprint]; exists {
		c.order = slices.DeleteFunc(c.order, func(k string) bool { return k == fingerprint })
	}

	for len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[fingerprint] = slices.Clone(matches)
	c.order = append(c.order, fingerprint)
}
