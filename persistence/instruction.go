package persistence

import (
	"context"

	"github.com/dogmatiq/herald/instruction"
)

// InstructionRepository is the subset of the DataStore interface concerned
// with the instruction log.
type InstructionRepository interface {
	// AppendInstruction atomically assigns the next instruction ID and
	// appends the instruction to the log.
	//
	// IDs are assigned contiguously, starting at 1, in commit order; an
	// instruction only becomes visible to readers once every instruction
	// with a lower ID is also visible. The instruction's CreatedAt time is
	// recorded as part of the same append.
	//
	// It returns the instruction as stored, with its ID and CreatedAt
	// populated.
	AppendInstruction(
		ctx context.Context,
		inst instruction.Instruction,
	) (instruction.Instruction, error)

	// SelectInstructions returns instructions with IDs greater than the
	// given ID, in ascending order by ID.
	//
	// It returns at most limit instructions. A short (or empty) result means
	// there were no further instructions visible when the selection was
	// made.
	SelectInstructions(
		ctx context.Context,
		after uint64,
		limit int,
	) ([]instruction.Instruction, error)

	// MaxInstructionID returns the highest instruction ID that has been
	// assigned, or zero if the log is empty.
	//
	// The highest assigned ID is retained even after the log is pruned.
	MaxInstructionID(ctx context.Context) (uint64, error)

	// PruneInstructions removes instructions with IDs up to and including
	// the given watermark.
	//
	// It returns the number of instructions removed.
	PruneInstructions(
		ctx context.Context,
		watermark uint64,
	) (int, error)
}
