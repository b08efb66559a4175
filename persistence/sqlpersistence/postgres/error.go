package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/dogmatiq/herald/instruction"
	"github.com/dogmatiq/herald/persistence"
)

// convertContextErrors converts PostgreSQL "query_canceled" errors into a
// context.Canceled or DeadlineExceeeded error.
//
// The "pq" postgres driver appears to prefer returning its own error if the
// context is canceled after a query is already started.
//
// See https://github.com/lib/pq/blob/master/go18_test.go#L90
func convertContextErrors(ctx context.Context, err error) error {
	if err != nil && ctx.Err() != nil {
		if strings.Contains(err.Error(), "canceling statement due to user request") {
			return ctx.Err()
		}
	}

	return err
}

// errorConverter decorates the PostgreSQL driver in order to convert native
// "query_canceled" errors into regular context.Canceled / DeadlineExceeded
// errors.
//
// The error conversion is implemented this way so that conversions don't get
// missed when new methods are added to the driver interface.
type errorConverter struct {
	d driver
}

func (d errorConverter) IsCompatibleWith(ctx context.Context, db *sql.DB) error {
	err := d.d.IsCompatibleWith(ctx, db)
	return convertContextErrors(ctx, err)
}

func (d errorConverter) Begin(ctx context.Context, db *sql.DB) (*sql.Tx, error) {
	tx, err := d.d.Begin(ctx, db)
	return tx, convertContextErrors(ctx, err)
}

func (d errorConverter) CreateSchema(ctx context.Context, db *sql.DB) error {
	err := d.d.CreateSchema(ctx, db)
	return convertContextErrors(ctx, err)
}

func (d errorConverter) DropSchema(ctx context.Context, db *sql.DB) error {
	err := d.d.DropSchema(ctx, db)
	return convertContextErrors(ctx, err)
}

//
// instruction
//

func (d errorConverter) UpdateLastInstructionID(
	ctx context.Context,
	tx *sql.Tx,
	ak string,
) (uint64, error) {
	id, err := d.d.UpdateLastInstructionID(ctx, tx, ak)
	return id, convertContextErrors(ctx, err)
}

func (d errorConverter) InsertInstruction(
	ctx context.Context,
	tx *sql.Tx,
	ak string,
	inst instruction.Instruction,
) error {
	err := d.d.InsertInstruction(ctx, tx, ak, inst)
	return convertContextErrors(ctx, err)
}

func (d errorConverter) SelectInstructions(
	ctx context.Context,
	db *sql.DB,
	ak string,
	after uint64,
	limit int,
) (*sql.Rows, error) {
	rows, err := d.d.SelectInstructions(ctx, db, ak, after, limit)
	return rows, convertContextErrors(ctx, err)
}

func (d errorConverter) ScanInstruction(
	rows *sql.Rows,
	inst *instruction.Instruction,
) error {
	return d.d.ScanInstruction(rows, inst)
}

func (d errorConverter) SelectLastInstructionID(
	ctx context.Context,
	db *sql.DB,
	ak string,
) (uint64, error) {
	id, err := d.d.SelectLastInstructionID(ctx, db, ak)
	return id, convertContextErrors(ctx, err)
}

func (d errorConverter) DeleteInstructions(
	ctx context.Context,
	db *sql.DB,
	ak string,
	watermark uint64,
) (int64, error) {
	n, err := d.d.DeleteInstructions(ctx, db, ak, watermark)
	return n, convertContextErrors(ctx, err)
}

//
// registration
//

func (d errorConverter) UpsertRegistration(
	ctx context.Context,
	db *sql.DB,
	ak string,
	reg persistence.Registration,
) error {
	err := d.d.UpsertRegistration(ctx, db, ak, reg)
	return convertContextErrors(ctx, err)
}

func (d errorConverter) SelectRegistration(
	ctx context.Context,
	db *sql.DB,
	ak, serverID string,
) (persistence.Registration, bool, error) {
	reg, ok, err := d.d.SelectRegistration(ctx, db, ak, serverID)
	return reg, ok, convertContextErrors(ctx, err)
}

func (d errorConverter) TouchRegistration(
	ctx context.Context,
	db *sql.DB,
	ak, serverID, advertiseURL string,
	cp uint64,
	t time.Time,
) error {
	err := d.d.TouchRegistration(ctx, db, ak, serverID, advertiseURL, cp, t)
	return convertContextErrors(ctx, err)
}

func (d errorConverter) AdvanceCheckpoint(
	ctx context.Context,
	db *sql.DB,
	ak, serverID string,
	id uint64,
	t time.Time,
) error {
	err := d.d.AdvanceCheckpoint(ctx, db, ak, serverID, id, t)
	return convertContextErrors(ctx, err)
}

func (d errorConverter) SelectRegistrations(
	ctx context.Context,
	db *sql.DB,
	ak string,
) (*sql.Rows, error) {
	rows, err := d.d.SelectRegistrations(ctx, db, ak)
	return rows, convertContextErrors(ctx, err)
}

func (d errorConverter) ScanRegistration(
	rows *sql.Rows,
	reg *persistence.Registration,
) error {
	return d.d.ScanRegistration(rows, reg)
}

func (d errorConverter) DeleteRegistrationsTouchedBefore(
	ctx context.Context,
	db *sql.DB,
	ak string,
	cutoff time.Time,
) (int64, error) {
	n, err := d.d.DeleteRegistrationsTouchedBefore(ctx, db, ak, cutoff)
	return n, convertContextErrors(ctx, err)
}
