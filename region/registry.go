package region

import (
	"context"
	"sync"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/herald/instruction"
	"github.com/puzpuzpuz/xsync/v3"
)

// Registry is a concurrency-safe collection of handlers, keyed by the cache
// region they serve.
//
// A zero-value Registry is ready for use.
type Registry struct {
	// Logger is the target for messages about dispatched items.
	// If it is nil, logging.DefaultLogger is used.
	Logger logging.Logger

	once     sync.Once
	handlers *xsync.MapOf[string, Handler]
}

// Register adds a handler for the region with the given name, replacing any
// handler already registered for that region.
//
// It panics if name is empty or h is nil.
func (r *Registry) Register(name string, h Handler) {
	if name == "" {
		panic("region name must not be empty")
	}
	if h == nil {
		panic("handler must not be nil")
	}

	r.init()
	r.handlers.Store(name, h)
}

// Deregister removes the handler for the region with the given name, if any.
func (r *Registry) Deregister(name string) {
	r.init()
	r.handlers.Delete(name)
}

// Get returns the handler for the region with the given name.
//
// ok is false if no handler is registered for that region.
func (r *Registry) Get(name string) (Handler, bool) {
	r.init()
	return r.handlers.Load(name)
}

// Names returns the names of the regions that have a registered handler, in
// no particular order.
func (r *Registry) Names() []string {
	r.init()

	var names []string

	r.handlers.Range(
		func(name string, _ Handler) bool {
			names = append(names, name)
			return true
		},
	)

	return names
}

// Apply dispatches a single item to the handler registered for the item's
// region.
//
// An item addressed to a region with no registered handler is skipped, so
// that new regions can be rolled out to a server farm incrementally.
func (r *Registry) Apply(ctx context.Context, item instruction.Item) error {
	h, ok := r.Get(item.Region)
	if !ok {
		logging.Debug(
			r.Logger,
			"no handler is registered for the '%s' region, skipping %s",
			item.Region,
			item.Op,
		)

		return nil
	}

	return h.Apply(ctx, item)
}

func (r *Registry) init() {
	r.once.Do(func() {
		r.handlers = xsync.NewMapOf[string, Handler]()
	})
}
