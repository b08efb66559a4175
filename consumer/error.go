package consumer

import (
	"fmt"

	"github.com/dogmatiq/herald/instruction"
)

// ApplyError indicates that an item within an instruction could not be
// applied to its cache region.
//
// The checkpoint is not advanced past the instruction, so the instruction is
// re-applied in its entirety on the next attempt.
type ApplyError struct {
	// Instruction is the instruction that could not be applied.
	Instruction instruction.Instruction

	// Item is the specific item within the instruction that failed.
	Item instruction.Item

	// Cause is the error returned by the region's handler.
	Cause error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf(
		"unable to apply instruction #%d (%s of the %q region): %s",
		e.Instruction.ID,
		e.Item.Op,
		e.Item.Region,
		e.Cause,
	)
}

// Unwrap returns the error returned by the region's handler.
func (e *ApplyError) Unwrap() error {
	return e.Cause
}
