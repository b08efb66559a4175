// Package checkpoint provides a process-wide record of the newest instruction
// that has been applied by this server.
package checkpoint

import "sync/atomic"

// Checkpoint tracks the ID of the most recently processed instruction.
//
// It is safe for concurrent use. The zero-value is a checkpoint that has not
// processed any instructions.
type Checkpoint struct {
	id atomic.Uint64
}

// Advance records that the instruction with the given ID has been processed.
//
// The checkpoint never regresses. If id is not greater than the current value
// the call has no effect.
func (c *Checkpoint) Advance(id uint64) {
	for {
		cur := c.id.Load()
		if id <= cur || c.id.CompareAndSwap(cur, id) {
			return
		}
	}
}

// Current returns the ID of the most recently processed instruction, or zero
// if no instruction has been processed.
func (c *Checkpoint) Current() uint64 {
	return c.id.Load()
}
