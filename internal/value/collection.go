package value

import (
	"strings"
	"sync"
)

// Coll is the backing store for a Collection value: an insertion-order
// preserving mapping from Value to Value. It is reference-shared
// across Value copies (spec.md §3), so mutation through one alias is
// visible through every other. Reached-via-property collections are
// additionally guarded by the Runtime's property mutex; Coll's own
// mutex only protects concurrent access to the same handle from
// multiple Scripts that happen to share it directly (e.g. passed as a
// function argument across goroutine-driven hosts).
type Coll struct {
	mu    sync.Mutex
	order []interface{}
	keys  map[interface{}]Value
	vals  map[interface{}]Value
}

// NewColl returns an empty collection.
func NewColl() *Coll {
	return &Coll{
		keys: make(map[interface{}]Value),
		vals: make(map[interface{}]Value),
	}
}

// Set inserts or updates key -> val, preserving the original insertion
// position on update.
func (c *Coll) Set(key, val Value) error {
	hk, err := HashKey(key)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.vals[hk]; !exists {
		c.order = append(c.order, hk)
		c.keys[hk] = key
	}
	c.vals[hk] = val
	return nil
}

// Get looks up a key, returning (value, found).
func (c *Coll) Get(key Value) (Value, bool, error) {
	hk, err := HashKey(key)
	if err != nil {
		return Value{}, false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.vals[hk]
	return v, ok, nil
}

// Delete removes a key, if present.
func (c *Coll) Delete(key Value) error {
	hk, err := HashKey(key)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.vals[hk]; !exists {
		return nil
	}
	delete(c.vals, hk)
	delete(c.keys, hk)
	for i, k := range c.order {
		if k == hk {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len reports the number of entries.
func (c *Coll) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// Entry is a single key/value pair returned by Entries, in insertion order.
type Entry struct {
	Key   Value
	Value Value
}

// Entries returns every entry in insertion order. The slice is a
// snapshot; mutating the collection afterward does not affect it.
func (c *Coll) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, 0, len(c.order))
	for _, hk := range c.order {
		out = append(out, Entry{Key: c.keys[hk], Value: c.vals[hk]})
	}
	return out
}

// Clear empties the collection in place. Used by Runtime shutdown to
// break reference cycles rooted at properties (spec.md §5, §9).
func (c *Coll) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = nil
	c.keys = make(map[interface{}]Value)
	c.vals = make(map[interface{}]Value)
}

// String renders the collection for diagnostics as `[k: v, k: v]`.
func (c *Coll) String() string {
	entries := c.Entries()
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = e.Key.String() + ": " + e.Value.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
