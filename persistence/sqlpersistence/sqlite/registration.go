package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/dogmatiq/herald/internal/x/sqlx"
	"github.com/dogmatiq/herald/persistence"
)

// UpsertRegistration creates or replaces a server's registration.
func (driver) UpsertRegistration(
	ctx context.Context,
	db *sql.DB,
	ak string,
	reg persistence.Registration,
) (err error) {
	defer sqlx.Recover(&err)

	sqlx.Exec(
		ctx,
		db,
		`INSERT INTO herald_registration (
			app_key,
			server_id,
			advertise_url,
			checkpoint,
			last_touched_at
		) VALUES (
			$1, $2, $3, $4, $5
		) ON CONFLICT (app_key, server_id) DO UPDATE SET
			advertise_url = excluded.advertise_url,
			checkpoint = excluded.checkpoint,
			last_touched_at = excluded.last_touched_at`,
		ak,
		reg.ServerID,
		reg.AdvertiseURL,
		reg.Checkpoint,
		reg.LastTouchedAt.UnixNano(),
	)

	return nil
}

// SelectRegistration selects a server's registration.
func (driver) SelectRegistration(
	ctx context.Context,
	db *sql.DB,
	ak, serverID string,
) (persistence.Registration, bool, error) {
	row := db.QueryRowContext(
		ctx,
		`SELECT
			advertise_url,
			checkpoint,
			last_touched_at
		FROM herald_registration
		WHERE app_key = $1
		AND server_id = $2`,
		ak,
		serverID,
	)

	reg := persistence.Registration{
		ServerID: serverID,
	}

	var touched int64
	err := row.Scan(
		&reg.AdvertiseURL,
		&reg.Checkpoint,
		&touched,
	)
	if err == sql.ErrNoRows {
		return persistence.Registration{}, false, nil
	}
	if err != nil {
		return persistence.Registration{}, false, err
	}

	reg.LastTouchedAt = time.Unix(0, touched).UTC()

	return reg, true, nil
}

// TouchRegistration updates the last-touched time of a server's registration,
// and its advertise URL if advertiseURL is non-empty.
//
// The checkpoint is only used if there is no existing registration.
func (driver) TouchRegistration(
	ctx context.Context,
	db *sql.DB,
	ak, serverID, advertiseURL string,
	cp uint64,
	t time.Time,
) (err error) {
	defer sqlx.Recover(&err)

	sqlx.Exec(
		ctx,
		db,
		`INSERT INTO herald_registration (
			app_key,
			server_id,
			advertise_url,
			checkpoint,
			last_touched_at
		) VALUES (
			$1, $2, $3, $4, $5
		) ON CONFLICT (app_key, server_id) DO UPDATE SET
			advertise_url = CASE
				WHEN excluded.advertise_url != '' THEN excluded.advertise_url
				ELSE advertise_url
			END,
			last_touched_at = excluded.last_touched_at`,
		ak,
		serverID,
		advertiseURL,
		cp,
		t.UnixNano(),
	)

	return nil
}

// AdvanceCheckpoint sets a server's checkpoint to the given instruction ID,
// unless the stored checkpoint is already greater, and updates the
// registration's last-touched time.
func (driver) AdvanceCheckpoint(
	ctx context.Context,
	db *sql.DB,
	ak, serverID string,
	id uint64,
	t time.Time,
) (err error) {
	defer sqlx.Recover(&err)

	sqlx.Exec(
		ctx,
		db,
		`INSERT INTO herald_registration (
			app_key,
			server_id,
			advertise_url,
			checkpoint,
			last_touched_at
		) VALUES (
			$1, $2, '', $3, $4
		) ON CONFLICT (app_key, server_id) DO UPDATE SET
			checkpoint = MAX(checkpoint, excluded.checkpoint),
			last_touched_at = excluded.last_touched_at`,
		ak,
		serverID,
		id,
		t.UnixNano(),
	)

	return nil
}

// SelectRegistrations selects all registrations for the given application,
// ordered by server ID.
func (driver) SelectRegistrations(
	ctx context.Context,
	db *sql.DB,
	ak string,
) (*sql.Rows, error) {
	return db.QueryContext(
		ctx,
		`SELECT
			server_id,
			advertise_url,
			checkpoint,
			last_touched_at
		FROM herald_registration
		WHERE app_key = $1
		ORDER BY server_id`,
		ak,
	)
}

// ScanRegistration scans the next registration from a row-set returned by
// SelectRegistrations().
func (driver) ScanRegistration(
	rows *sql.Rows,
	reg *persistence.Registration,
) error {
	var touched int64

	if err := rows.Scan(
		&reg.ServerID,
		&reg.AdvertiseURL,
		&reg.Checkpoint,
		&touched,
	); err != nil {
		return err
	}

	reg.LastTouchedAt = time.Unix(0, touched).UTC()

	return nil
}

// DeleteRegistrationsTouchedBefore deletes registrations whose last-touched
// time is earlier than the given cutoff.
func (driver) DeleteRegistrationsTouchedBefore(
	ctx context.Context,
	db *sql.DB,
	ak string,
	cutoff time.Time,
) (_ int64, err error) {
	defer sqlx.Recover(&err)

	return sqlx.ExecRows(
		ctx,
		db,
		`DELETE FROM herald_registration
		WHERE app_key = $1
		AND last_touched_at < $2`,
		ak,
		cutoff.UnixNano(),
	), nil
}

// createRegistrationSchema creates the schema elements for the server
// registry.
func createRegistrationSchema(ctx context.Context, db sqlx.DB) {
	sqlx.Exec(
		ctx,
		db,
		`CREATE TABLE IF NOT EXISTS herald_registration (
			app_key         TEXT NOT NULL,
			server_id       TEXT NOT NULL,
			advertise_url   TEXT NOT NULL,
			checkpoint      INTEGER NOT NULL,
			last_touched_at INTEGER NOT NULL,

			PRIMARY KEY (app_key, server_id)
		)`,
	)
}

// dropRegistrationSchema drops the schema elements for the server registry.
func dropRegistrationSchema(ctx context.Context, db sqlx.DB) {
	sqlx.Exec(ctx, db, `DROP TABLE IF EXISTS herald_registration`)
}
