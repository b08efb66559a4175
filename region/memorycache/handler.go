package memorycache

import (
	"context"

	"github.com/dogmatiq/herald/instruction"
)

// Handler is an implementation of region.Handler that applies invalidation
// items to an in-process cache.
type Handler struct {
	// Cache is the cache the handler maintains.
	Cache Cache

	// Loader, if non-nil, is used to repopulate an entry after it has been
	// refreshed by ID. The value it returns is stored against the target ID.
	//
	// If it is nil, a refreshed entry simply remains absent until it is next
	// requested.
	Loader func(ctx context.Context, id string) (any, error)
}

// Apply applies a single item to the cache.
//
// Refreshing or removing an entry that is not in the cache is a no-op, so
// applying the same item twice is safe.
func (h *Handler) Apply(ctx context.Context, item instruction.Item) error {
	switch item.Op {
	case instruction.RefreshByID:
		h.Cache.Remove(item.TargetID)
		return h.load(ctx, item.TargetID)

	case instruction.RemoveByID:
		h.Cache.Remove(item.TargetID)

	case instruction.RefreshByType, instruction.RefreshAll:
		// Entries are not indexed by type, so a type refresh clears the
		// entire region.
		h.Cache.Clear()
	}

	return nil
}

// load repopulates the entry with the given ID, if a loader is configured.
func (h *Handler) load(ctx context.Context, id string) error {
	if h.Loader == nil {
		return nil
	}

	v, err := h.Loader(ctx, id)
	if err != nil {
		return err
	}

	h.Cache.Set(id, v)

	return nil
}
