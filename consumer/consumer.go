// Package consumer provides the background loop that polls the instruction
// log and applies new instructions to the local cache regions.
package consumer

import (
	"context"
	"errors"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/herald/checkpoint"
	"github.com/dogmatiq/herald/instruction"
	"github.com/dogmatiq/herald/internal/mlog"
	"github.com/dogmatiq/herald/region"
	"github.com/dogmatiq/linger"
	"github.com/dogmatiq/linger/backoff"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultPollInterval is the default interval at which the consumer polls
	// the instruction log for new instructions.
	//
	// It is overridden by the Consumer.PollInterval field.
	DefaultPollInterval = 5 * time.Second

	// DefaultFetchLimit is the default maximum number of instructions to
	// fetch from the instruction log in a single selection.
	//
	// It is overridden by the Consumer.FetchLimit field.
	DefaultFetchLimit = 100
)

var (
	// appliedCount counts the instructions this process has applied to its
	// local cache regions.
	appliedCount = metrics.GetOrCreateCounter("herald_instructions_applied_total")

	// itemCount counts the individual items this process has applied to its
	// local cache regions.
	itemCount = metrics.GetOrCreateCounter("herald_items_applied_total")

	// failureCount counts the instructions that failed to apply. A single
	// instruction can fail repeatedly, and is counted once per attempt.
	failureCount = metrics.GetOrCreateCounter("herald_apply_failures_total")
)

// DataStore is the subset of the persistence.DataStore interface used by the
// consumer.
type DataStore interface {
	// SelectInstructions returns instructions with IDs greater than the
	// given ID, in ascending order by ID.
	SelectInstructions(
		ctx context.Context,
		after uint64,
		limit int,
	) ([]instruction.Instruction, error)

	// AdvanceCheckpoint sets a server's checkpoint to the given instruction
	// ID and updates the registration's last-touched time.
	AdvanceCheckpoint(
		ctx context.Context,
		serverID string,
		id uint64,
		t time.Time,
	) error
}

// Consumer polls the instruction log and applies new instructions, in ID
// order, to the cache regions registered on this server.
type Consumer struct {
	// DataStore is the data-store containing the instruction log.
	DataStore DataStore

	// Registry is the set of cache regions that instructions are applied to.
	Registry *region.Registry

	// ServerID is the ID of the server the consumer is running on.
	ServerID string

	// Checkpoint records the newest instruction this server has applied. It
	// must be primed by the sync engine before the consumer runs.
	Checkpoint *checkpoint.Checkpoint

	// PollInterval is the interval at which the instruction log is polled.
	// If it is non-positive, DefaultPollInterval is used.
	PollInterval time.Duration

	// FetchLimit is the maximum number of instructions fetched per
	// selection. If it is non-positive, DefaultFetchLimit is used.
	FetchLimit int

	// Semaphore, if non-nil, is used to limit the number of instruction
	// batches being applied concurrently across the process.
	Semaphore *semaphore.Weighted

	// BackoffStrategy is the strategy used to delay the next poll after a
	// failure. If it is nil, backoff.DefaultStrategy is used.
	BackoffStrategy backoff.Strategy

	// Now returns the current time. If it is nil, time.Now() is used.
	Now func() time.Time

	// Logger is the target for log messages from the consumer.
	// If it is nil, logging.DefaultLogger is used.
	Logger logging.Logger

	backoff  backoff.Counter
	failures uint
}

// Run polls the instruction log and applies instructions until ctx is
// canceled.
//
// A failed tick is logged and retried after a backoff delay; the checkpoint
// is never advanced past a failed instruction, so the failed instruction is
// re-applied on the next attempt.
func (c *Consumer) Run(ctx context.Context) error {
	c.backoff = backoff.Counter{
		Strategy: c.BackoffStrategy,
	}

	for {
		err := c.tick(ctx)
		if err == nil {
			c.failures = 0
			c.backoff.Reset()

			if err := linger.Sleep(
				ctx,
				linger.MustCoalesce(c.PollInterval, DefaultPollInterval),
			); err != nil {
				return err
			}

			continue
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.failures++
		delay := c.backoff.Fail(err)

		var aerr *ApplyError
		if errors.As(err, &aerr) {
			mlog.LogApplyFailure(c.Logger, aerr.Instruction, aerr.Cause, delay)
		} else {
			logging.Log(
				c.Logger,
				"unable to consume instructions, retrying in %s: %s",
				delay,
				err,
			)
		}

		if err := linger.Sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// tick pages through the instructions that arrived since the checkpoint and
// applies them.
//
// The persisted checkpoint is advanced once per page; the in-memory
// checkpoint is advanced per instruction, so a mid-page failure never causes
// an already-applied instruction to be re-fetched within this process.
func (c *Consumer) tick(ctx context.Context) error {
	if c.Semaphore != nil {
		if err := c.Semaphore.Acquire(ctx, 1); err != nil {
			return err
		}
		defer c.Semaphore.Release(1)
	}

	limit := c.FetchLimit
	if limit <= 0 {
		limit = DefaultFetchLimit
	}

	for {
		instructions, err := c.DataStore.SelectInstructions(
			ctx,
			c.Checkpoint.Current(),
			limit,
		)
		if err != nil {
			return err
		}

		if len(instructions) == 0 {
			return nil
		}

		for _, inst := range instructions {
			if err := c.apply(ctx, inst); err != nil {
				// Persist whatever progress was made through the page before
				// the failure, so a restarted server does not re-apply it.
				if cp := c.Checkpoint.Current(); cp > 0 {
					_ = c.DataStore.AdvanceCheckpoint(ctx, c.ServerID, cp, c.now())
				}

				return err
			}
		}

		if err := c.DataStore.AdvanceCheckpoint(
			ctx,
			c.ServerID,
			c.Checkpoint.Current(),
			c.now(),
		); err != nil {
			return err
		}

		if len(instructions) < limit {
			return nil
		}
	}
}

// apply applies every item in a single instruction to the registered cache
// regions, in stored order.
func (c *Consumer) apply(ctx context.Context, inst instruction.Instruction) error {
	mlog.LogConsume(c.Logger, inst, c.failures)

	for _, item := range inst.Items {
		if err := c.Registry.Apply(ctx, item); err != nil {
			failureCount.Inc()

			return &ApplyError{
				Instruction: inst,
				Item:        item,
				Cause:       err,
			}
		}

		itemCount.Inc()
	}

	appliedCount.Inc()
	c.Checkpoint.Advance(inst.ID)

	return nil
}

func (c *Consumer) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}

	return time.Now()
}
