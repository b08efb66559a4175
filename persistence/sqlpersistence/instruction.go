package sqlpersistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/dogmatiq/herald/instruction"
)

// InstructionDriver is the subset of the Driver interface that is concerned
// with the instruction log.
type InstructionDriver interface {
	// UpdateLastInstructionID increments the last allocated instruction ID
	// and returns the new value.
	//
	// The allocation row remains locked until tx commits, which serializes
	// appends so that instructions become visible in ID order. The row is
	// never deleted, so the IDs produced remain monotonic even after the
	// log is pruned.
	UpdateLastInstructionID(
		ctx context.Context,
		tx *sql.Tx,
		ak string,
	) (uint64, error)

	// InsertInstruction saves an instruction with a specific instruction ID.
	InsertInstruction(
		ctx context.Context,
		tx *sql.Tx,
		ak string,
		inst instruction.Instruction,
	) error

	// SelectInstructions selects instructions with IDs greater than the
	// given ID, in ascending order by ID.
	//
	// It selects at most limit instructions.
	SelectInstructions(
		ctx context.Context,
		db *sql.DB,
		ak string,
		after uint64,
		limit int,
	) (*sql.Rows, error)

	// ScanInstruction scans the next instruction from a row-set returned by
	// SelectInstructions().
	ScanInstruction(
		rows *sql.Rows,
		inst *instruction.Instruction,
	) error

	// SelectLastInstructionID selects the last allocated instruction ID, or
	// zero if no IDs have been allocated.
	SelectLastInstructionID(
		ctx context.Context,
		db *sql.DB,
		ak string,
	) (uint64, error)

	// DeleteInstructions deletes instructions with IDs up to and including
	// the given watermark.
	//
	// It returns the number of instructions deleted.
	DeleteInstructions(
		ctx context.Context,
		db *sql.DB,
		ak string,
		watermark uint64,
	) (int64, error)
}

// AppendInstruction atomically assigns the next instruction ID and appends
// the instruction to the log.
func (ds *dataStore) AppendInstruction(
	ctx context.Context,
	inst instruction.Instruction,
) (instruction.Instruction, error) {
	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.guard(); err != nil {
		return instruction.Instruction{}, err
	}

	tx, err := ds.driver.Begin(ctx, ds.db)
	if err != nil {
		return instruction.Instruction{}, err
	}
	defer tx.Rollback() // nolint:errcheck

	id, err := ds.driver.UpdateLastInstructionID(ctx, tx, ds.appKey)
	if err != nil {
		return instruction.Instruction{}, err
	}

	inst.ID = id
	inst.CreatedAt = time.Now().UTC()

	if err := ds.driver.InsertInstruction(ctx, tx, ds.appKey, inst); err != nil {
		return instruction.Instruction{}, err
	}

	return inst, tx.Commit()
}

// SelectInstructions returns instructions with IDs greater than the given ID,
// in ascending order by ID.
func (ds *dataStore) SelectInstructions(
	ctx context.Context,
	after uint64,
	limit int,
) ([]instruction.Instruction, error) {
	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.guard(); err != nil {
		return nil, err
	}

	rows, err := ds.driver.SelectInstructions(ctx, ds.db, ds.appKey, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close() // nolint:errcheck

	var result []instruction.Instruction

	for rows.Next() {
		var inst instruction.Instruction
		if err := ds.driver.ScanInstruction(rows, &inst); err != nil {
			return nil, err
		}

		result = append(result, inst)
	}

	return result, rows.Err()
}

// MaxInstructionID returns the highest instruction ID that has been assigned,
// or zero if the log is empty.
func (ds *dataStore) MaxInstructionID(ctx context.Context) (uint64, error) {
	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.guard(); err != nil {
		return 0, err
	}

	return ds.driver.SelectLastInstructionID(ctx, ds.db, ds.appKey)
}

// PruneInstructions removes instructions with IDs up to and including the
// given watermark.
func (ds *dataStore) PruneInstructions(
	ctx context.Context,
	watermark uint64,
) (int, error) {
	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.guard(); err != nil {
		return 0, err
	}

	n, err := ds.driver.DeleteInstructions(ctx, ds.db, ds.appKey, watermark)
	return int(n), err
}
