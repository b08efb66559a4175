package persistence

import (
	"context"

	"github.com/dogmatiq/configkit"
)

// Provider is an interface used by the messenger to open the data-store for a
// specific application.
type Provider interface {
	// Open returns the data-store for a specific application.
	//
	// app is the identity of the application. Stores that serve multiple
	// applications partition their data by the application's identity key.
	Open(ctx context.Context, app configkit.Identity) (DataStore, error)
}
