package redispersistence

import (
	"sync"

	"github.com/dogmatiq/herald/persistence"
	"github.com/redis/go-redis/v9"
)

// keys contains the Redis keys used to store a single application's data.
//
// The application key is wrapped in curly braces so that it serves as a
// hash-tag, guaranteeing that all of an application's keys reside in the same
// slot when the server is a cluster. The append and prune scripts rely on
// this to operate on multiple keys atomically.
type keys struct {
	// id is a string key containing the last allocated instruction ID. It is
	// incremented to allocate an ID and is never deleted, so instruction IDs
	// remain monotonic even after the log is pruned.
	id string

	// log is a sorted-set key containing the instruction log. Each member is
	// a JSON-encoded instruction, scored by its instruction ID.
	log string

	// reg is a hash key containing the server registry. Each field is a
	// server ID, and each value a JSON-encoded registration.
	reg string

	// touch is a sorted-set key that indexes registrations by the time they
	// were last touched. Each member is a server ID, scored by the touch time
	// in nanoseconds since the Unix epoch.
	touch string
}

// keysForApp returns the keys used to store the data of the application with
// the key k.
func keysForApp(k string) keys {
	p := "herald:{" + k + "}:"

	return keys{
		id:    p + "id",
		log:   p + "log",
		reg:   p + "reg",
		touch: p + "touch",
	}
}

// dataStore is an implementation of persistence.DataStore for Redis.
type dataStore struct {
	client redis.UniversalClient
	keys   keys

	m       sync.RWMutex
	release func() error
}

// newDataStore returns a new data-store.
func newDataStore(
	c redis.UniversalClient,
	k string,
	r func() error,
) *dataStore {
	return &dataStore{
		client:  c,
		keys:    keysForApp(k),
		release: r,
	}
}

// guard returns persistence.ErrDataStoreClosed if the data-store handle has
// been closed.
//
// It must be called while holding a read-lock on ds.m.
func (ds *dataStore) guard() error {
	if ds.release == nil {
		return persistence.ErrDataStoreClosed
	}

	return nil
}

// Close closes the data store.
//
// Closing a data-store causes any further operations to return
// ErrDataStoreClosed. It does not affect other data-stores opened via the
// same provider.
func (ds *dataStore) Close() error {
	ds.m.Lock()
	defer ds.m.Unlock()

	if ds.release == nil {
		return persistence.ErrDataStoreClosed
	}

	r := ds.release
	ds.client = nil
	ds.release = nil

	return r()
}
