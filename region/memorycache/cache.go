// Package memorycache provides region handlers backed by in-process caches.
package memorycache

// Cache is the minimal cache surface required by a Handler.
//
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the value stored against the given key.
	//
	// ok is false if there is no such entry.
	Get(key string) (v any, ok bool)

	// Set stores a value against the given key.
	Set(key string, v any)

	// Remove removes the entry with the given key, if any.
	Remove(key string)

	// Clear removes all entries.
	Clear()
}
