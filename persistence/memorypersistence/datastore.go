package memorypersistence

import (
	"sync"

	"github.com/dogmatiq/herald/persistence"
)

// dataStore is an implementation of persistence.DataStore that stores data in
// memory.
type dataStore struct {
	db *database

	m      sync.RWMutex
	closed bool
}

// guard returns persistence.ErrDataStoreClosed if the data-store handle has
// been closed.
//
// It must be called while holding a read-lock on ds.m.
func (ds *dataStore) guard() error {
	if ds.closed {
		return persistence.ErrDataStoreClosed
	}

	return nil
}

// Close closes the data store.
func (ds *dataStore) Close() error {
	ds.m.Lock()
	defer ds.m.Unlock()

	if ds.closed {
		return persistence.ErrDataStoreClosed
	}

	ds.closed = true

	return nil
}
