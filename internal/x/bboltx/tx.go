package bboltx

import (
	"go.etcd.io/bbolt"
)

// View executes a read-only operation against the database.
func View(db *bbolt.DB, fn func(tx *bbolt.Tx)) {
	Must(db.View(
		func(tx *bbolt.Tx) error {
			fn(tx)
			return nil
		},
	))
}

// Update executes a read/write operation against the database.
func Update(db *bbolt.DB, fn func(tx *bbolt.Tx)) {
	Must(db.Update(
		func(tx *bbolt.Tx) error {
			fn(tx)
			return nil
		},
	))
}
