package persistence

import "errors"

// ErrDataStoreClosed is returned when performing any persistence operation on
// a closed data-store.
var ErrDataStoreClosed = errors.New("data store is closed")

// DataStore is an interface used by the messenger to read and write the
// instruction log and server registry of a specific application.
//
// Data-stores are shared by every server in the farm. They provide no
// exclusivity; it is the instruction log's ID assignment and each server's
// checkpoint that keep the farm consistent.
type DataStore interface {
	InstructionRepository
	RegistrationRepository

	// Close closes the data store.
	//
	// Closing a data-store prevents any further reads or writes, which
	// instead return ErrDataStoreClosed.
	Close() error
}
