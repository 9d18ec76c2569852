package registry

import (
	"sort"
	"sync"
)

// Registry is a thread-safe map of values indexed by key.
// Keys pass through an optional normalization function before every
// lookup and write, so callers can register "Product" and look up "product".
type Registry[K comparable, V any] struct {
	mu        sync.RWMutex
	entries   map[K]V
	normalize func(K) K
}

// Option configures a Registry.
type Option[K comparable, V any] func(*Registry[K, V])

// WithNormalizer sets the key normalization function.
func WithNormalizer[K comparable, V any](fn func(K) K) Option[K, V] {
	return func(r *Registry[K, V]) {
		r.normalize = fn
	}
}

// New creates a new empty registry.
func New[K comparable, V any](opts ...Option[K, V]) *Registry[K, V] {
	r := &Registry[K, V]{
		entries: make(map[K]V),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry[K, V]) key(k K) K {
	if r.normalize == nil {
		return k
	}
	return r.normalize(k)
}

// Register adds or replaces the value for key.
// It returns the previous value and whether one existed.
func (r *Registry[K, V]) Register(key K, value V) (V, bool) {
	k := r.key(key)

	r.mu.Lock()
	defer r.mu.Unlock()
	prev, existed := r.entries[k]
	r.entries[k] = value
	return prev, existed
}

// Get returns the value for a key and whether it exists.
func (r *Registry[K, V]) Get(key K) (V, bool) {
	k := r.key(key)

	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[k]
	return v, ok
}

// Has returns true if the key exists in the registry.
func (r *Registry[K, V]) Has(key K) bool {
	_, ok := r.Get(key)
	return ok
}

// Delete removes a key from the registry. Deleting a missing key is a no-op.
func (r *Registry[K, V]) Delete(key K) {
	k := r.key(key)

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, k)
}

// Len returns the number of entries in the registry.
func (r *Registry[K, V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Range calls fn for each entry of a snapshot taken under the read lock.
// Iteration stops when fn returns false. Register and Delete may be
// called from fn.
func (r *Registry[K, V]) Range(fn func(K, V) bool) {
	r.mu.RLock()
	snapshot := make(map[K]V, len(r.entries))
	for k, v := range r.entries {
		snapshot[k] = v
	}
	r.mu.RUnlock()

	for k, v := range snapshot {
		if !fn(k, v) {
			return
		}
	}
}

// SortedKeys returns the normalized keys ordered by less.
func SortedKeys[K comparable, V any](r *Registry[K, V], less func(a, b K) bool) []K {
	r.mu.RLock()
	keys := make([]K, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	r.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		return less(keys[i], keys[j])
	})
	return keys
}
