package boltpersistence

import (
	"sync"

	"github.com/dogmatiq/herald/persistence"
	"go.etcd.io/bbolt"
)

// dataStore is an implementation of persistence.DataStore for BoltDB.
type dataStore struct {
	db     *bbolt.DB
	appKey []byte

	m       sync.RWMutex
	release func() error
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
	ds.db = nil
	ds.release = nil

	return r()
}
