package redispersistence

import (
	"context"
	"sync"

	"github.com/dogmatiq/configkit"
	"github.com/dogmatiq/herald/persistence"
	"github.com/redis/go-redis/v9"
)

// Provider is an implementation of persistence.Provider for Redis that uses
// an existing client.
type Provider struct {
	provider

	// Client is the Redis client to use.
	Client redis.UniversalClient
}

// Open returns the data-store for a specific application.
//
// Any number of servers may open the same application's data-store
// concurrently, from this or any other process that shares the Redis server.
func (p *Provider) Open(ctx context.Context, app configkit.Identity) (persistence.DataStore, error) {
	return p.open(
		ctx,
		app.Key,
		func(ctx context.Context) (redis.UniversalClient, error) {
			return p.Client, nil
		},
		func(c redis.UniversalClient) error {
			// Don't actually close the client, since we didn't open it.
			return nil
		},
	)
}

// OptionsProvider is an implementation of persistence.Provider for Redis that
// connects a new client using a set of client options.
type OptionsProvider struct {
	provider

	// Options is the client configuration to be passed to redis.NewClient().
	Options *redis.Options
}

// Open returns the data-store for a specific application.
//
// Any number of servers may open the same application's data-store
// concurrently, from this or any other process that shares the Redis server.
func (p *OptionsProvider) Open(ctx context.Context, app configkit.Identity) (persistence.DataStore, error) {
	return p.open(
		ctx,
		app.Key,
		p.connect,
		redis.UniversalClient.Close,
	)
}

// connect connects a new client and verifies that the server is reachable.
func (p *OptionsProvider) connect(ctx context.Context) (redis.UniversalClient, error) {
	c := redis.NewClient(p.Options)

	if err := c.Ping(ctx).Err(); err != nil {
		// Ignore error from Close() and instead report the causal error.
		c.Close() // nolint:errcheck
		return nil, err
	}

	return c, nil
}

// provider is the common implementation of Provider and OptionsProvider.
type provider struct {
	m      sync.Mutex
	client redis.UniversalClient
	refs   int
	close  func(c redis.UniversalClient) error
}

// open returns a data-store for a specific application.
func (p *provider) open(
	ctx context.Context,
	k string,
	open func(ctx context.Context) (redis.UniversalClient, error),
	close func(c redis.UniversalClient) error,
) (persistence.DataStore, error) {
	p.m.Lock()
	defer p.m.Unlock()

	if p.client == nil {
		c, err := open(ctx)
		if err != nil {
			return nil, err
		}

		p.client = c
		p.close = close
	}

	p.refs++

	return newDataStore(
		p.client,
		k,
		p.release,
	), nil
}

// release releases a reference to the client.
func (p *provider) release() error {
	p.m.Lock()
	defer p.m.Unlock()

	p.refs--

	if p.refs > 0 {
		return nil
	}

	c := p.client
	p.client = nil

	return p.close(c)
}
