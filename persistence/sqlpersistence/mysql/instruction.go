package mysql

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
		`INSERT INTO herald_instruction_id SET
			app_key = ?
		ON DUPLICATE KEY UPDATE
			last_id = last_id + 1`,
		ak,
	)

	return sqlx.QueryUint64(
		ctx,
		tx,
		`SELECT last_id FROM herald_instruction_id WHERE app_key = ?`,
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
		`INSERT INTO herald_instruction SET
			app_key = ?,
			id = ?,
			message_id = ?,
			origin = ?,
			created_at = ?,
			items = ?`,
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
		WHERE app_key = ?
		AND id > ?
		ORDER BY id
		LIMIT ?`,
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
		`SELECT last_id FROM herald_instruction_id WHERE app_key = ?`,
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
		WHERE app_key = ?
		AND id <= ?`,
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
			app_key VARBINARY(255) NOT NULL,
			last_id BIGINT UNSIGNED NOT NULL DEFAULT 1,

			PRIMARY KEY (app_key)
		) ENGINE=InnoDB`,
	)

	sqlx.Exec(
		ctx,
		db,
		`CREATE TABLE IF NOT EXISTS herald_instruction (
			app_key    VARBINARY(255) NOT NULL,
			id         BIGINT UNSIGNED NOT NULL,
			message_id VARBINARY(255) NOT NULL,
			origin     VARBINARY(255) NOT NULL,
			created_at VARBINARY(255) NOT NULL,
			items      LONGBLOB NOT NULL,

			PRIMARY KEY (app_key, id)
		) ENGINE=InnoDB`,
	)
}

// dropInstructionSchema drops the schema elements for the instruction log.
func dropInstructionSchema(ctx context.Context, db sqlx.DB) {
	sqlx.Exec(ctx, db, `DROP TABLE IF EXISTS herald_instruction_id`)
	sqlx.Exec(ctx, db, `DROP TABLE IF EXISTS herald_instruction`)
}
