package memorypersistence

import (
	"context"
	"sync"

	"github.com/dogmatiq/configkit"
	"github.com/dogmatiq/herald/persistence"
)

// Provider is an implementation of persistence.Provider that stores
// application data in memory.
type Provider struct {
	m         sync.Mutex
	databases map[string]*database
}

// Open returns the data-store for a specific application.
//
// Each call returns a new handle onto the same underlying database, so
// multiple servers within a process can share a single provider.
func (p *Provider) Open(
	_ context.Context,
	app configkit.Identity,
) (persistence.DataStore, error) {
	p.m.Lock()
	defer p.m.Unlock()

	if p.databases == nil {
		p.databases = map[string]*database{}
	}

	db, ok := p.databases[app.Key]
	if !ok {
		db = &database{}
		p.databases[app.Key] = db
	}

	return &dataStore{db: db}, nil
}
