// Package registry provides a generic thread-safe registry for values indexed by key.
//
// Registry is built for read-heavy workloads using sync.RWMutex. The route
// package uses it to map dispatch segments to handlers.
//
// # Basic Usage
//
//	r := registry.New[string, int]()
//	r.Register("one", 1)
//
//	value, ok := r.Get("one")
//
// # Key Normalization
//
// A normalizer is applied to every key on the way in, which makes lookups
// insensitive to whatever the normalizer discards:
//
//	r := registry.New[string, Handler](
//	    registry.WithNormalizer[string, Handler](strings.ToLower),
//	)
//	r.Register("Product", h)
//	r.Has("product") // true
//
// # Replacement
//
// Register always replaces. It reports the previous value so callers can
// log or count overrides:
//
//	if _, replaced := r.Register("product", h2); replaced {
//	    logger.Debug("handler replaced")
//	}
//
// # Thread Safety
//
// All methods are safe for concurrent use. Range iterates over a snapshot,
// so it never observes a partially applied write.
package registry
