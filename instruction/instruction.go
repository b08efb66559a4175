package instruction

import (
	"errors"
	"fmt"
	"time"
)

// Op is an enumeration of the invalidation operations that can be applied to
// a cache region.
type Op int

const (
	// RefreshByID instructs a region to invalidate the entry for a single
	// target ID, reloading it if the region supports reloading.
	RefreshByID Op = iota + 1

	// RefreshByType instructs a region to invalidate all entries that hold
	// values of a specific type.
	RefreshByType

	// RefreshAll instructs a region to invalidate all of its entries.
	RefreshAll

	// RemoveByID instructs a region to remove the entry for a single target
	// ID without reloading it.
	RemoveByID
)

// Validate returns an error if o is not a recognized operation.
func (o Op) Validate() error {
	if o < RefreshByID || o > RemoveByID {
		return fmt.Errorf("invalid operation (%d)", int(o))
	}

	return nil
}

// String returns the stable name of the operation, as used in flags and log
// messages.
func (o Op) String() string {
	switch o {
	case RefreshByID:
		return "refresh-by-id"
	case RefreshByType:
		return "refresh-by-type"
	case RefreshAll:
		return "refresh-all"
	case RemoveByID:
		return "remove-by-id"
	default:
		return fmt.Sprintf("<invalid operation %d>", int(o))
	}
}

// ParseOp returns the operation with the given name, as rendered by
// Op.String().
func ParseOp(name string) (Op, error) {
	for o := RefreshByID; o <= RemoveByID; o++ {
		if o.String() == name {
			return o, nil
		}
	}

	return 0, fmt.Errorf("unrecognized operation (%s)", name)
}

// MarshalText returns the name of the operation.
func (o Op) MarshalText() ([]byte, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}

	return []byte(o.String()), nil
}

// UnmarshalText sets o to the operation with the name in text.
func (o *Op) UnmarshalText(text []byte) error {
	op, err := ParseOp(string(text))
	if err != nil {
		return err
	}

	*o = op

	return nil
}

// Item is a single invalidation directive addressed to one cache region.
type Item struct {
	// Region is the name of the cache region the directive applies to.
	Region string `json:"region"`

	// Op is the operation to apply to the region.
	Op Op `json:"op"`

	// TargetID identifies the entry that the operation applies to. It is
	// required by the RefreshByID and RemoveByID operations, and must be
	// empty otherwise.
	TargetID string `json:"target_id,omitempty"`

	// TargetType is the name of the value type that the operation applies
	// to. It is required by the RefreshByType operation, and must be empty
	// otherwise.
	TargetType string `json:"target_type,omitempty"`
}

// Validate returns an error if the item is malformed.
func (i Item) Validate() error {
	if i.Region == "" {
		return errors.New("item must have a region")
	}

	if err := i.Op.Validate(); err != nil {
		return err
	}

	switch i.Op {
	case RefreshByID, RemoveByID:
		if i.TargetID == "" {
			return fmt.Errorf("%s item for the %q region must have a target ID", i.Op, i.Region)
		}
		if i.TargetType != "" {
			return fmt.Errorf("%s item for the %q region must not have a target type", i.Op, i.Region)
		}
	case RefreshByType:
		if i.TargetType == "" {
			return fmt.Errorf("%s item for the %q region must have a target type", i.Op, i.Region)
		}
		if i.TargetID != "" {
			return fmt.Errorf("%s item for the %q region must not have a target ID", i.Op, i.Region)
		}
	case RefreshAll:
		if i.TargetID != "" || i.TargetType != "" {
			return fmt.Errorf("%s item for the %q region must not have a target", i.Op, i.Region)
		}
	}

	return nil
}

// Instruction is a batch of invalidation items appended to the instruction
// log as a single record.
type Instruction struct {
	// ID is the identifier assigned to the instruction by the log. IDs are
	// strictly increasing and contiguous. It is zero until the instruction
	// has been appended.
	ID uint64 `json:"id"`

	// MessageID is a unique identifier assigned by the producing server when
	// the instruction is flushed.
	MessageID string `json:"message_id"`

	// Origin is the ID of the server that produced the instruction. It is
	// diagnostic information only; every server applies every instruction,
	// including those it produced itself.
	Origin string `json:"origin"`

	// CreatedAt is the time at which the instruction was appended to the
	// log, in UTC. It is the zero-value until the instruction has been
	// appended.
	CreatedAt time.Time `json:"created_at"`

	// Items are the invalidation directives carried by the instruction, in
	// the order they were enqueued.
	Items []Item `json:"items"`
}

// Validate returns an error if the instruction is not fit to be appended to
// the instruction log.
func (i Instruction) Validate() error {
	if i.MessageID == "" {
		return errors.New("instruction must have a message ID")
	}

	if i.Origin == "" {
		return errors.New("instruction must have an origin server ID")
	}

	if len(i.Items) == 0 {
		return errors.New("instruction must contain at least one item")
	}

	for _, item := range i.Items {
		if err := item.Validate(); err != nil {
			return err
		}
	}

	return nil
}
