// Package heartbeat provides the background loop that keeps this server's
// registration alive in the server registry.
package heartbeat

import (
	"context"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/herald/checkpoint"
	"github.com/dogmatiq/linger"
	"github.com/dogmatiq/linger/backoff"
)

// DefaultInterval is the default interval at which the monitor touches this
// server's registration.
//
// It is overridden by the Monitor.Interval field.
const DefaultInterval = 1 * time.Minute

// DataStore is the subset of the persistence.DataStore interface used by the
// monitor.
type DataStore interface {
	// TouchRegistration updates the last-touched time of a server's
	// registration, creating it at the given checkpoint if it does not
	// exist.
	TouchRegistration(
		ctx context.Context,
		serverID string,
		advertiseURL string,
		cp uint64,
		t time.Time,
	) error
}

// Monitor periodically touches this server's registration so that the other
// servers in the farm treat it as alive.
//
// A server that stops touching its registration is eventually removed from
// the registry, at which point its checkpoint no longer prevents the
// instruction log from being pruned.
type Monitor struct {
	// DataStore is the data-store containing the server registry.
	DataStore DataStore

	// ServerID is the ID of the server the monitor is running on.
	ServerID string

	// AdvertiseURL, if non-nil, returns the URL the server advertises, or an
	// empty string if it is not yet known.
	AdvertiseURL func() string

	// Checkpoint records the newest instruction this server has applied. It
	// is used to recreate the registration if another server's pruner has
	// removed it.
	Checkpoint *checkpoint.Checkpoint

	// Interval is the interval at which the registration is touched.
	// If it is non-positive, DefaultInterval is used.
	Interval time.Duration

	// BackoffStrategy is the strategy used to delay the next touch after a
	// failure. If it is nil, backoff.DefaultStrategy is used.
	BackoffStrategy backoff.Strategy

	// Now returns the current time. If it is nil, time.Now() is used.
	Now func() time.Time

	// Logger is the target for log messages from the monitor.
	// If it is nil, logging.DefaultLogger is used.
	Logger logging.Logger

	backoff backoff.Counter
}

// Run touches the registration at a fixed interval until ctx is canceled.
//
// A failed touch is logged and retried after a backoff delay. The monitor
// only ever touches its own registration; removal of stale registrations is
// left to the pruner.
func (m *Monitor) Run(ctx context.Context) error {
	m.backoff = backoff.Counter{
		Strategy: m.BackoffStrategy,
	}

	for {
		delay := linger.MustCoalesce(m.Interval, DefaultInterval)

		if err := m.touch(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			delay = m.backoff.Fail(err)

			logging.Log(
				m.Logger,
				"unable to touch the server registration, retrying in %s: %s",
				delay,
				err,
			)
		} else {
			m.backoff.Reset()
		}

		if err := linger.Sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// touch updates the registration's last-touched time.
func (m *Monitor) touch(ctx context.Context) error {
	var u string
	if m.AdvertiseURL != nil {
		u = m.AdvertiseURL()
	}

	now := time.Now()
	if m.Now != nil {
		now = m.Now()
	}

	if err := m.DataStore.TouchRegistration(
		ctx,
		m.ServerID,
		u,
		m.Checkpoint.Current(),
		now,
	); err != nil {
		return err
	}

	logging.Debug(
		m.Logger,
		"touched the registration for %s at instruction #%d",
		m.ServerID,
		m.Checkpoint.Current(),
	)

	return nil
}
