package sqlpersistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/dogmatiq/herald/persistence"
)

// RegistrationDriver is the subset of the Driver interface that is concerned
// with the server registry.
type RegistrationDriver interface {
	// UpsertRegistration creates or replaces a server's registration.
	UpsertRegistration(
		ctx context.Context,
		db *sql.DB,
		ak string,
		reg persistence.Registration,
	) error

	// SelectRegistration selects a server's registration. It returns false
	// as a second return value if the server has no registration.
	SelectRegistration(
		ctx context.Context,
		db *sql.DB,
		ak, serverID string,
	) (persistence.Registration, bool, error)

	// TouchRegistration updates the last-touched time of a server's
	// registration, and its advertise URL if advertiseURL is non-empty.
	//
	// If there is no registration it inserts one with the given checkpoint.
	// An existing registration's checkpoint is left as-is.
	TouchRegistration(
		ctx context.Context,
		db *sql.DB,
		ak, serverID, advertiseURL string,
		cp uint64,
		t time.Time,
	) error

	// AdvanceCheckpoint sets a server's checkpoint to the given instruction
	// ID, unless the stored checkpoint is already greater, and updates the
	// registration's last-touched time.
	//
	// If there is no registration it inserts one.
	AdvanceCheckpoint(
		ctx context.Context,
		db *sql.DB,
		ak, serverID string,
		id uint64,
		t time.Time,
	) error

	// SelectRegistrations selects all registrations for the given
	// application, ordered by server ID.
	SelectRegistrations(
		ctx context.Context,
		db *sql.DB,
		ak string,
	) (*sql.Rows, error)

	// ScanRegistration scans the next registration from a row-set returned
	// by SelectRegistrations().
	ScanRegistration(
		rows *sql.Rows,
		reg *persistence.Registration,
	) error

	// DeleteRegistrationsTouchedBefore deletes registrations whose
	// last-touched time is earlier than the given cutoff.
	//
	// It returns the number of registrations deleted.
	DeleteRegistrationsTouchedBefore(
		ctx context.Context,
		db *sql.DB,
		ak string,
		cutoff time.Time,
	) (int64, error)
}

// SaveRegistration creates or replaces a server's registration.
func (ds *dataStore) SaveRegistration(
	ctx context.Context,
	reg persistence.Registration,
) error {
	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.guard(); err != nil {
		return err
	}

	return ds.driver.UpsertRegistration(ctx, ds.db, ds.appKey, reg)
}

// LoadRegistration returns a server's registration.
func (ds *dataStore) LoadRegistration(
	ctx context.Context,
	serverID string,
) (persistence.Registration, bool, error) {
	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.guard(); err != nil {
		return persistence.Registration{}, false, err
	}

	return ds.driver.SelectRegistration(ctx, ds.db, ds.appKey, serverID)
}

// TouchRegistration updates the last-touched time of a server's registration,
// and its advertise URL if advertiseURL is non-empty.
func (ds *dataStore) TouchRegistration(
	ctx context.Context,
	serverID string,
	advertiseURL string,
	cp uint64,
	t time.Time,
) error {
	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.guard(); err != nil {
		return err
	}

	return ds.driver.TouchRegistration(ctx, ds.db, ds.appKey, serverID, advertiseURL, cp, t)
}

// AdvanceCheckpoint sets a server's checkpoint to the given instruction ID
// and updates the registration's last-touched time.
func (ds *dataStore) AdvanceCheckpoint(
	ctx context.Context,
	serverID string,
	id uint64,
	t time.Time,
) error {
	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.guard(); err != nil {
		return err
	}

	return ds.driver.AdvanceCheckpoint(ctx, ds.db, ds.appKey, serverID, id, t)
}

// ListRegistrations returns all registrations, ordered by server ID.
func (ds *dataStore) ListRegistrations(
	ctx context.Context,
) ([]persistence.Registration, error) {
	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.guard(); err != nil {
		return nil, err
	}

	rows, err := ds.driver.SelectRegistrations(ctx, ds.db, ds.appKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close() // nolint:errcheck

	var result []persistence.Registration

	for rows.Next() {
		var reg persistence.Registration
		if err := ds.driver.ScanRegistration(rows, &reg); err != nil {
			return nil, err
		}

		result = append(result, reg)
	}

	return result, rows.Err()
}

// DeleteRegistrationsTouchedBefore removes registrations whose last-touched
// time is earlier than the given cutoff.
func (ds *dataStore) DeleteRegistrationsTouchedBefore(
	ctx context.Context,
	cutoff time.Time,
) (int, error) {
	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.guard(); err != nil {
		return 0, err
	}

	n, err := ds.driver.DeleteRegistrationsTouchedBefore(ctx, ds.db, ds.appKey, cutoff)
	return int(n), err
}
