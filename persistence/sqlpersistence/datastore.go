package sqlpersistence

import (
	"database/sql"
	"sync"

	"github.com/dogmatiq/herald/persistence"
)

// dataStore is an implementation of persistence.DataStore for SQL databases.
type dataStore struct {
	db     *sql.DB
	driver Driver
	appKey string

	m       sync.RWMutex
	release func() error
}

// newDataStore returns a new data-store.
func newDataStore(
	db *sql.DB,
	d Driver,
	k string,
	r func() error,
) *dataStore {
	return &dataStore{
		db:      db,
		driver:  d,
		appKey:  k,
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
	ds.db = nil
	ds.driver = nil
	ds.release = nil

	return r()
}
