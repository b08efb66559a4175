package fixtures

import (
	"context"

	"github.com/dogmatiq/herald/instruction"
	"github.com/dogmatiq/herald/region"
)

// HandlerStub is a test implementation of the region.Handler interface.
type HandlerStub struct {
	region.Handler

	ApplyFunc func(context.Context, instruction.Item) error
}

// Apply applies a single item to the region.
func (h *HandlerStub) Apply(ctx context.Context, item instruction.Item) error {
	if h.ApplyFunc != nil {
		return h.ApplyFunc(ctx, item)
	}

	if h.Handler != nil {
		return h.Handler.Apply(ctx, item)
	}

	return nil
}
