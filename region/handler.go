package region

import (
	"context"

	"github.com/dogmatiq/herald/instruction"
)

// Handler applies instruction items to a single cache region.
//
// The messenger delivers items at least once, so implementations must be
// idempotent. Implementations must be safe for concurrent use.
type Handler interface {
	// Apply applies a single item to the region.
	Apply(ctx context.Context, item instruction.Item) error
}

// HandlerFunc is an adaptor to allow the use of a regular function as a
// Handler.
type HandlerFunc func(ctx context.Context, item instruction.Item) error

// Apply applies a single item to the region by calling fn(ctx, item).
func (fn HandlerFunc) Apply(ctx context.Context, item instruction.Item) error {
	return fn(ctx, item)
}
