package postgres

import (
	"context"
	"database/sql"

	"github.com/dogmatiq/herald/instruction"
	"github.com/dogmatiq/herald/internal/x/sqlx"
)

// UpdateLastInstructionID increments the last allocated instruction ID and
// returns the new value.
func (driver) UpdateLastInstructionID(
	ctx context.Context,
	tx *sql.Tx,
	ak string,
) (_ uint64, err error) {
	defer sqlx.Recover(&err)

	id := sqlx.QueryInt64(
		ctx,
		tx,
		`INSERT INTO herald.instruction_id AS o (
			app_key
		) VALUES (
			$1
		) ON CONFLICT (app_key) DO UPDATE SET
			last_id = o.last_id + 1
		RETURNING last_id`,
		ak,
	)

	return uint64(id), nil
}

// InsertInstruction saves an instruction with a specific instruction ID.
func (driver) InsertInstruction(
	ctx context.Context,
	tx *sql.Tx,
	ak string,
	inst instruction.Instruction,
) (err error) {
	defer sqlx.Recover(&err)

	items, err := instruction.MarshalItems(inst.Items)
	sqlx.Must(err)

	sqlx.Exec(
		ctx,
		tx,
		`INSERT INTO herald.instruction (
			app_key,
			id,
			message_id,
			origin,
			created_at,
			items
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)`,
		ak,
		inst.ID,
		inst.MessageID,
		inst.Origin,
		sqlx.MarshalTime(inst.CreatedAt),
		items,
	)

	return nil
}

// SelectInstructions selects instructions with IDs greater than the given ID,
// in ascending order by ID.
func (driver) SelectInstructions(
	ctx context.Context,
	db *sql.DB,
	ak string,
	after uint64,
	limit int,
) (*sql.Rows, error) {
	return db.QueryContext(
		ctx,
		`SELECT
			id,
			message_id,
			origin,
			created_at,
			items
		FROM herald.instruction
		WHERE app_key = $1
		AND id > $2
		ORDER BY id
		LIMIT $3`,
		ak,
		after,
		limit,
	)
}

// ScanInstruction scans the next instruction from a row-set returned by
// SelectInstructions().
func (driver) ScanInstruction(
	rows *sql.Rows,
	inst *instruction.Instruction,
) (err error) {
	defer sqlx.Recover(&err)

	var createdAt, items []byte

	sqlx.Must(rows.Scan(
		&inst.ID,
		&inst.MessageID,
		&inst.Origin,
		&createdAt,
		&items,
	))

	inst.CreatedAt = sqlx.UnmarshalTime(createdAt)

	inst.Items, err = instruction.UnmarshalItems(items)
	return err
}

// SelectLastInstructionID selects the last allocated instruction ID, or zero
// if no IDs have been allocated.
func (driver) SelectLastInstructionID(
	ctx context.Context,
	db *sql.DB,
	ak string,
) (_ uint64, err error) {
	defer sqlx.Recover(&err)

	var id uint64
	sqlx.TryQueryInto(
		ctx,
		db,
		&id,
		`SELECT last_id FROM herald.instruction_id WHERE app_key = $1`,
		ak,
	)

	return id, nil
}

// DeleteInstructions deletes instructions with IDs up to and including the
// given watermark.
func (driver) DeleteInstructions(
	ctx context.Context,
	db *sql.DB,
	ak string,
	watermark uint64,
) (_ int64, err error) {
	defer sqlx.Recover(&err)

	return sqlx.ExecRows(
		ctx,
		db,
		`DELETE FROM herald.instruction
		WHERE app_key = $1
		AND id <= $2`,
		ak,
		watermark,
	), nil
}

// createInstructionSchema creates the schema elements for the instruction
// log.
func createInstructionSchema(ctx context.Context, db sqlx.DB) {
	sqlx.Exec(
		ctx,
		db,
		`CREATE TABLE IF NOT EXISTS herald.instruction_id (
			app_key TEXT NOT NULL PRIMARY KEY,
			last_id BIGINT NOT NULL DEFAULT 1
		)`,
	)

	sqlx.Exec(
		ctx,
		db,
		`CREATE TABLE IF NOT EXISTS herald.instruction (
			app_key    TEXT NOT NULL,
			id         BIGINT NOT NULL,
			message_id TEXT NOT NULL,
			origin     TEXT NOT NULL,
			created_at TEXT NOT NULL,
			items      BYTEA NOT NULL,

			PRIMARY KEY (app_key, id)
		)`,
	)
}
