package producer

import (
	"context"

	"github.com/VictoriaMetrics/metrics"
	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/herald/instruction"
	"github.com/dogmatiq/herald/internal/mlog"
	"github.com/google/uuid"
)

// producedCount counts the instructions this process has appended to the
// instruction log.
var producedCount = metrics.GetOrCreateCounter("herald_instructions_produced_total")

// Appender is the subset of the persistence.DataStore interface used by the
// recorder to publish instructions.
type Appender interface {
	// AppendInstruction atomically assigns the next instruction ID and
	// appends the instruction to the log.
	AppendInstruction(
		ctx context.Context,
		inst instruction.Instruction,
	) (instruction.Instruction, error)
}

// Recorder accumulates the invalidation items produced by a single unit of
// work, and flushes them to the instruction log as one instruction.
//
// The recorder is not safe for concurrent use; each unit of work owns its
// own.
type Recorder struct {
	// Appender is the target for flushed instructions.
	Appender Appender

	// Origin is the ID of the server that is producing the instructions.
	Origin string

	// GenerateID returns the message ID for the next flushed instruction.
	// If it is nil, a random UUID is used.
	GenerateID func() string

	// Dormant, if non-nil, reports whether the messenger is dormant. A
	// dormant messenger discards flushed batches instead of appending them.
	Dormant func() bool

	// Logger is the target for messages about flushed instructions.
	// If it is nil, logging.DefaultLogger is used.
	Logger logging.Logger

	items []instruction.Item
}

// Enqueue adds items to the batch.
//
// If any of the items is invalid it returns an error without mutating the
// batch.
func (r *Recorder) Enqueue(items ...instruction.Item) error {
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
	}

	r.items = append(r.items, items...)

	return nil
}

// RefreshByID enqueues a refresh of the entry with the given ID within a
// region.
func (r *Recorder) RefreshByID(region, id string) error {
	return r.Enqueue(
		instruction.Item{
			Region:   region,
			Op:       instruction.RefreshByID,
			TargetID: id,
		},
	)
}

// RefreshByType enqueues a refresh of the entries of a named type within a
// region.
func (r *Recorder) RefreshByType(region, typeName string) error {
	return r.Enqueue(
		instruction.Item{
			Region:     region,
			Op:         instruction.RefreshByType,
			TargetType: typeName,
		},
	)
}

// RefreshAll enqueues a refresh of all entries within a region.
func (r *Recorder) RefreshAll(region string) error {
	return r.Enqueue(
		instruction.Item{
			Region: region,
			Op:     instruction.RefreshAll,
		},
	)
}

// RemoveByID enqueues removal of the entry with the given ID within a
// region.
func (r *Recorder) RemoveByID(region, id string) error {
	return r.Enqueue(
		instruction.Item{
			Region:   region,
			Op:       instruction.RemoveByID,
			TargetID: id,
		},
	)
}

// Len returns the number of items in the batch.
func (r *Recorder) Len() int {
	return len(r.items)
}

// Reset discards the batch without flushing it.
func (r *Recorder) Reset() {
	r.items = nil
}

// Flush appends the batched items to the instruction log as a single
// instruction, and empties the batch. It is a no-op if the batch is empty.
//
// If the messenger is dormant the batch is discarded without being appended;
// the local mutation has already been served, there is simply no farm to
// notify.
//
// The batch is emptied whether or not the append succeeds. A failed append
// is reported as a *FlushError and the items are lost; the affected regions
// on other servers remain stale until they are refreshed by some other
// means.
func (r *Recorder) Flush(ctx context.Context) error {
	if len(r.items) == 0 {
		return nil
	}

	inst := instruction.Instruction{
		MessageID: r.generateID(),
		Origin:    r.Origin,
		Items:     r.items,
	}
	r.items = nil

	if r.Dormant != nil && r.Dormant() {
		logging.Debug(
			r.Logger,
			"discarding %d item(s) produced while the messenger is dormant",
			len(inst.Items),
		)

		return nil
	}

	stored, err := r.Appender.AppendInstruction(ctx, inst)
	if err != nil {
		mlog.LogFlushFailure(r.Logger, inst, err)

		return &FlushError{
			Instruction: inst,
			Cause:       err,
		}
	}

	producedCount.Inc()
	mlog.LogProduce(r.Logger, stored)

	return nil
}

// generateID returns the message ID for the next flushed instruction.
func (r *Recorder) generateID() string {
	if r.GenerateID != nil {
		return r.GenerateID()
	}

	return uuid.NewString()
}
