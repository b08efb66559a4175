package memorypersistence

import (
	"context"
	"time"

	"github.com/dogmatiq/herald/instruction"
)

// AppendInstruction atomically assigns the next instruction ID and appends the
// instruction to the log.
func (ds *dataStore) AppendInstruction(
	_ context.Context,
	inst instruction.Instruction,
) (instruction.Instruction, error) {
	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.guard(); err != nil {
		return instruction.Instruction{}, err
	}

	ds.db.mutex.Lock()
	defer ds.db.mutex.Unlock()

	db := &ds.db.instruction

	db.lastID++
	inst.ID = db.lastID
	inst.CreatedAt = time.Now().UTC()
	inst.Items = append([]instruction.Item(nil), inst.Items...)

	db.instructions = append(db.instructions, inst)

	return inst, nil
}

// SelectInstructions returns instructions with IDs greater than the given ID,
// in ascending order by ID.
func (ds *dataStore) SelectInstructions(
	_ context.Context,
	after uint64,
	limit int,
) ([]instruction.Instruction, error) {
	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.guard(); err != nil {
		return nil, err
	}

	ds.db.mutex.RLock()
	defer ds.db.mutex.RUnlock()

	insts := ds.db.instruction.instructions
	if len(insts) == 0 {
		return nil, nil
	}

	// IDs within the log are contiguous, even after pruning, so the first
	// instruction with an ID greater than "after" can be located by index.
	begin := 0
	if first := insts[0].ID; after >= first {
		begin = int(after - first + 1)
	}

	if begin >= len(insts) {
		return nil, nil
	}

	end := len(insts)
	if limit > 0 && begin+limit < end {
		end = begin + limit
	}

	result := make([]instruction.Instruction, end-begin)
	for i, inst := range insts[begin:end] {
		inst.Items = append([]instruction.Item(nil), inst.Items...)
		result[i] = inst
	}

	return result, nil
}

// MaxInstructionID returns the highest instruction ID that has been assigned,
// or zero if the log is empty.
func (ds *dataStore) MaxInstructionID(_ context.Context) (uint64, error) {
	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.guard(); err != nil {
		return 0, err
	}

	ds.db.mutex.RLock()
	defer ds.db.mutex.RUnlock()

	return ds.db.instruction.lastID, nil
}

// PruneInstructions removes instructions with IDs up to and including the
// given watermark.
func (ds *dataStore) PruneInstructions(
	_ context.Context,
	watermark uint64,
) (int, error) {
	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.guard(); err != nil {
		return 0, err
	}

	ds.db.mutex.Lock()
	defer ds.db.mutex.Unlock()

	db := &ds.db.instruction

	n := 0
	for n < len(db.instructions) && db.instructions[n].ID <= watermark {
		n++
	}

	if n == 0 {
		return 0, nil
	}

	db.instructions = append(
		[]instruction.Instruction(nil),
		db.instructions[n:]...,
	)

	return n, nil
}

// instructionDatabase contains instruction log related data.
type instructionDatabase struct {
	// lastID is the ID of the most recently appended instruction. It is
	// never reset, even when the log is pruned.
	lastID uint64

	// instructions is the log itself, ordered by ID.
	instructions []instruction.Instruction
}
