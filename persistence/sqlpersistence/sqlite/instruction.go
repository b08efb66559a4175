package sqlite

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

	sqlx.Exec(
		ctx,
		tx,
		`INSERT INTO herald_instruction_id (
			app_key
		) VALUES (
			$1
		) ON CONFLICT (app_key) DO UPDATE SET
			last_id = last_id + 1`,
		ak,
	)

	return sqlx.QueryUint64(
		ctx,
		tx,
		`SELECT last_id FROM herald_instruction_id WHERE app_key = $1`,
		ak,
	), nil
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
		`INSERT INTO herald_instruction (
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
		FROM herald_instruction
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
		`SELECT last_id FROM herald_instruction_id WHERE app_key = $1`,
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
		`DELETE FROM herald_instruction
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
		`CREATE TABLE IF NOT EXISTS herald_instruction_id (
			app_key TEXT NOT NULL PRIMARY KEY,
			last_id INTEGER NOT NULL DEFAULT 1
		)`,
	)

	sqlx.Exec(
		ctx,
		db,
		`CREATE TABLE IF NOT EXISTS herald_instruction (
			app_key    TEXT NOT NULL,
			id         INTEGER NOT NULL,
			message_id TEXT NOT NULL,
			origin     TEXT NOT NULL,
			created_at TEXT NOT NULL,
			items      BLOB NOT NULL,

			PRIMARY KEY (app_key, id)
		)`,
	)
}

// dropInstructionSchema drops the schema elements for the instruction log.
func dropInstructionSchema(ctx context.Context, db sqlx.DB) {
	sqlx.Exec(ctx, db, `DROP TABLE IF EXISTS herald_instruction_id`)
	sqlx.Exec(ctx, db, `DROP TABLE IF EXISTS herald_instruction`)
}
