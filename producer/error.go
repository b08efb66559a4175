package producer

import (
	"fmt"

	"github.com/dogmatiq/herald/instruction"
)

// FlushError indicates that a batch of items could not be appended to the
// instruction log.
type FlushError struct {
	// Instruction is the instruction that could not be appended. Its ID and
	// CreatedAt fields are unpopulated.
	Instruction instruction.Instruction

	// Cause is the error that caused the flush to fail.
	Cause error
}

func (e *FlushError) Error() string {
	return fmt.Sprintf(
		"unable to flush %d item(s): %s",
		len(e.Instruction.Items),
		e.Cause,
	)
}

// Unwrap returns the error that caused the flush to fail.
func (e *FlushError) Unwrap() error {
	return e.Cause
}
