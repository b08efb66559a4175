// Package pruner provides the background loop that removes stale server
// registrations and the instructions that every live server has already
// applied.
package pruner

import (
	"context"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/herald/persistence"
	"github.com/dogmatiq/linger"
	"github.com/dogmatiq/linger/backoff"
)

const (
	// DefaultInterval is the default interval at which pruning occurs.
	//
	// It is overridden by the Pruner.Interval field.
	DefaultInterval = 15 * time.Minute

	// DefaultStaleTimeout is the default duration after which a server that
	// has not touched its registration is treated as gone.
	//
	// It is overridden by the Pruner.StaleTimeout field.
	DefaultStaleTimeout = 5 * time.Minute
)

var (
	// instructionCount counts the instructions removed from the log by this
	// process.
	instructionCount = metrics.GetOrCreateCounter("herald_instructions_pruned_total")

	// registrationCount counts the stale registrations removed by this
	// process.
	registrationCount = metrics.GetOrCreateCounter("herald_registrations_pruned_total")
)

// DataStore is the subset of the persistence.DataStore interface used by the
// pruner.
type DataStore interface {
	// DeleteRegistrationsTouchedBefore removes registrations whose
	// last-touched time is earlier than the given cutoff.
	DeleteRegistrationsTouchedBefore(
		ctx context.Context,
		cutoff time.Time,
	) (int, error)

	// ListRegistrations returns all registrations, ordered by server ID.
	ListRegistrations(ctx context.Context) ([]persistence.Registration, error)

	// PruneInstructions removes instructions with IDs up to and including
	// the given watermark.
	PruneInstructions(
		ctx context.Context,
		watermark uint64,
	) (int, error)
}

// Pruner periodically removes stale registrations from the server registry,
// then removes the instructions that every remaining server has applied.
//
// Every server in the farm runs a pruner; the operations are safe to run
// concurrently.
type Pruner struct {
	// DataStore is the data-store containing the instruction log and server
	// registry.
	DataStore DataStore

	// StaleTimeout is the duration after which a server that has not touched
	// its registration is treated as gone. If it is non-positive,
	// DefaultStaleTimeout is used.
	StaleTimeout time.Duration

	// Interval is the interval at which pruning occurs.
	// If it is non-positive, DefaultInterval is used.
	Interval time.Duration

	// BackoffStrategy is the strategy used to delay the next pass after a
	// failure. If it is nil, backoff.DefaultStrategy is used.
	BackoffStrategy backoff.Strategy

	// Now returns the current time. If it is nil, time.Now() is used.
	Now func() time.Time

	// Logger is the target for log messages from the pruner.
	// If it is nil, logging.DefaultLogger is used.
	Logger logging.Logger

	backoff backoff.Counter
}

// Run prunes at a fixed interval until ctx is canceled.
//
// A failed pass is logged and retried after a backoff delay.
func (p *Pruner) Run(ctx context.Context) error {
	p.backoff = backoff.Counter{
		Strategy: p.BackoffStrategy,
	}

	for {
		delay := linger.MustCoalesce(p.Interval, DefaultInterval)

		if err := p.prune(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			delay = p.backoff.Fail(err)

			logging.Log(
				p.Logger,
				"unable to prune, retrying in %s: %s",
				delay,
				err,
			)
		} else {
			p.backoff.Reset()
		}

		if err := linger.Sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// prune performs a single pruning pass.
func (p *Pruner) prune(ctx context.Context) error {
	now := time.Now()
	if p.Now != nil {
		now = p.Now()
	}

	cutoff := now.Add(
		-linger.MustCoalesce(p.StaleTimeout, DefaultStaleTimeout),
	)

	n, err := p.DataStore.DeleteRegistrationsTouchedBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	if n > 0 {
		registrationCount.Add(n)

		logging.Log(
			p.Logger,
			"removed %d stale server registration(s), untouched since %s",
			n,
			cutoff.Format(time.RFC3339),
		)
	}

	watermark, ok, err := p.watermark(ctx)
	if err != nil {
		return err
	}

	if !ok {
		// Nobody is registered. Some of the log's history may belong to
		// servers that have not yet registered (or re-registered), so it is
		// never safe to prune.
		logging.Debug(
			p.Logger,
			"no live servers are registered, skipping instruction pruning",
		)

		return nil
	}

	if watermark == 0 {
		return nil
	}

	n, err = p.DataStore.PruneInstructions(ctx, watermark)
	if err != nil {
		return err
	}

	if n > 0 {
		instructionCount.Add(n)

		logging.Log(
			p.Logger,
			"pruned %d instruction(s) up to #%d",
			n,
			watermark,
		)
	}

	return nil
}

// watermark returns the minimum checkpoint across the registered servers.
//
// ok is false if there are no registered servers.
func (p *Pruner) watermark(ctx context.Context) (uint64, bool, error) {
	registrations, err := p.DataStore.ListRegistrations(ctx)
	if err != nil {
		return 0, false, err
	}

	if len(registrations) == 0 {
		return 0, false, nil
	}

	watermark := registrations[0].Checkpoint
	for _, reg := range registrations[1:] {
		if reg.Checkpoint < watermark {
			watermark = reg.Checkpoint
		}
	}

	return watermark, true, nil
}
