package herald

import (
	"context"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/herald/consumer"
	"github.com/dogmatiq/herald/heartbeat"
	"github.com/dogmatiq/herald/internal/x/loggingx"
	"github.com/dogmatiq/herald/persistence"
	"github.com/dogmatiq/herald/pruner"
	"golang.org/x/sync/errgroup"
)

// Run exchanges instructions with the rest of the farm until ctx is
// canceled.
//
// It probes connectivity once, synchronizes this server's checkpoint with
// the instruction log, then runs the processing, heartbeat and pruning loops
// until ctx is canceled.
//
// If the store is unreachable at startup the messenger goes dormant instead
// of failing: cache propagation for this process is disabled, a warning is
// logged, and Run() blocks until ctx is canceled. A propagation failure must
// degrade cache freshness, never application availability.
func (m *Messenger) Run(ctx context.Context) error {
	ds, reg, ok, err := m.connect(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		m.dormant.Store(true)

		logging.Log(
			m.opts.Logger,
			"distributed cache invalidation is disabled: %s",
			&ConnectivityError{Cause: err},
		)

		<-ctx.Done()

		return nil
	}
	defer ds.Close()

	m.setDataStore(ds)
	defer m.setDataStore(nil)

	if err := m.sync(ctx, ds, reg, ok); err != nil {
		return err
	}

	parent := ctx
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		c := &consumer.Consumer{
			DataStore:       ds,
			Registry:        m.opts.Registry,
			ServerID:        m.opts.ServerID,
			Checkpoint:      &m.checkpoint,
			PollInterval:    m.opts.PollInterval,
			FetchLimit:      m.opts.FetchLimit,
			BackoffStrategy: m.opts.MessageBackoff,
			Logger:          loggingx.WithPrefix(m.opts.Logger, "consumer: "),
		}

		return c.Run(ctx)
	})

	g.Go(func() error {
		h := &heartbeat.Monitor{
			DataStore:       ds,
			ServerID:        m.opts.ServerID,
			AdvertiseURL:    m.advertiseURL,
			Checkpoint:      &m.checkpoint,
			Interval:        m.opts.HeartbeatInterval,
			BackoffStrategy: m.opts.MessageBackoff,
			Logger:          loggingx.WithPrefix(m.opts.Logger, "heartbeat: "),
		}

		return h.Run(ctx)
	})

	g.Go(func() error {
		p := &pruner.Pruner{
			DataStore:       ds,
			StaleTimeout:    m.opts.StaleTimeout,
			Interval:        m.opts.PruneInterval,
			BackoffStrategy: m.opts.MessageBackoff,
			Logger:          loggingx.WithPrefix(m.opts.Logger, "pruner: "),
		}

		return p.Run(ctx)
	})

	err = g.Wait()

	if parent.Err() != nil {
		return parent.Err()
	}

	return err
}

// connect opens the data-store and probes it by loading this server's
// registration.
//
// ok is false if the server has no registration.
func (m *Messenger) connect(ctx context.Context) (
	_ persistence.DataStore,
	_ persistence.Registration,
	ok bool,
	err error,
) {
	ds, err := m.provider.Open(ctx, m.opts.Application)
	if err != nil {
		return nil, persistence.Registration{}, false, err
	}

	reg, ok, err := ds.LoadRegistration(ctx, m.opts.ServerID)
	if err != nil {
		ds.Close()
		return nil, persistence.Registration{}, false, err
	}

	return ds, reg, ok, nil
}

// sync primes this server's checkpoint from its registration.
//
// A server with no registration has never participated in the farm; the
// existing contents of the log predate it and are meaningless to its empty
// caches, so it fast-forwards past them ("cold start"). A server with a
// registration resumes from its stored checkpoint and replays everything
// that arrived while it was down ("warm start").
func (m *Messenger) sync(
	ctx context.Context,
	ds persistence.DataStore,
	reg persistence.Registration,
	registered bool,
) error {
	cold := !registered
	if m.opts.ColdStart != nil {
		cold = *m.opts.ColdStart
	}

	if !cold {
		m.checkpoint.Advance(reg.Checkpoint)

		logging.Log(
			m.opts.Logger,
			"warm start: resuming after instruction #%d",
			reg.Checkpoint,
		)

		return nil
	}

	id, err := ds.MaxInstructionID(ctx)
	if err != nil {
		return err
	}

	m.checkpoint.Advance(id)

	if err := ds.SaveRegistration(
		ctx,
		persistence.Registration{
			ServerID:      m.opts.ServerID,
			AdvertiseURL:  m.advertiseURL(),
			Checkpoint:    id,
			LastTouchedAt: time.Now().UTC(),
		},
	); err != nil {
		return err
	}

	logging.Log(
		m.opts.Logger,
		"cold start: joined the farm at instruction #%d",
		id,
	)

	return nil
}
