package pipeline

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Artifacts maps artifact names to values.
type Artifacts map[string]interface{}

// Get returns the named artifact as a T.
func Get[T any](a Artifacts, name string) (T, error) {
	var zero T
	v, ok := a[name]
	if !ok {
		return zero, errors.Wrap(ErrMissingInput, name)
	}
	t, ok := v.(T)
	if !ok {
		return zero, errors.Errorf("artifact %q is %T, expected %T", name, v, zero)
	}
	return t, nil
}

// Catalog holds the artifacts of a run. Values are treated as immutable once saved.
type Catalog struct {
	mu    sync.RWMutex
	items Artifacts
}

func NewCatalog() *Catalog {
	return &Catalog{items: make(Artifacts)}
}

// Save stores value under name, replacing any previous value.
func (c *Catalog) Save(name string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[name] = value
}

func (c *Catalog) Load(name string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[name]
	return v, ok
}

// Names returns the stored artifact names, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.items))
	for name := range c.items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Catalog) pick(names []string) (Artifacts, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(Artifacts, len(names))
	for _, name := range names {
		v, ok := c.items[name]
		if !ok {
			return nil, errors.Wrap(ErrMissingInput, name)
		}
		out[name] = v
	}
	return out, nil
}
