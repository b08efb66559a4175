package persistence

import (
	"context"
	"time"
)

// Registration describes one server's row in the server registry.
type Registration struct {
	// ServerID uniquely identifies the server within the farm.
	ServerID string `json:"server_id"`

	// AdvertiseURL is the URL the server has advertised, if any. It is
	// diagnostic information only; no part of the messenger protocol depends
	// on it.
	AdvertiseURL string `json:"advertise_url,omitempty"`

	// Checkpoint is the ID of the newest instruction the server has
	// processed, or zero if it has not processed any.
	Checkpoint uint64 `json:"checkpoint"`

	// LastTouchedAt is the last time the server heartbeat its registration,
	// in UTC.
	LastTouchedAt time.Time `json:"last_touched_at"`
}

// RegistrationRepository is the subset of the DataStore interface concerned
// with the server registry.
type RegistrationRepository interface {
	// SaveRegistration creates or replaces a server's registration.
	SaveRegistration(ctx context.Context, reg Registration) error

	// LoadRegistration returns a server's registration.
	//
	// ok is false if the server has no registration.
	LoadRegistration(
		ctx context.Context,
		serverID string,
	) (reg Registration, ok bool, err error)

	// TouchRegistration updates the last-touched time of a server's
	// registration, and its advertise URL if advertiseURL is non-empty.
	//
	// If the registration does not exist it is created with the given
	// checkpoint. An existing registration's checkpoint is never modified by
	// a touch.
	TouchRegistration(
		ctx context.Context,
		serverID string,
		advertiseURL string,
		cp uint64,
		t time.Time,
	) error

	// AdvanceCheckpoint sets a server's checkpoint to the given instruction
	// ID and updates the registration's last-touched time.
	//
	// The checkpoint never regresses; if id is not greater than the stored
	// checkpoint, only the last-touched time is updated. If the registration
	// does not exist it is created, restoring a row removed by another
	// server's pruner.
	AdvanceCheckpoint(
		ctx context.Context,
		serverID string,
		id uint64,
		t time.Time,
	) error

	// ListRegistrations returns all registrations, ordered by server ID.
	ListRegistrations(ctx context.Context) ([]Registration, error)

	// DeleteRegistrationsTouchedBefore removes registrations whose
	// last-touched time is earlier than the given cutoff.
	//
	// It returns the number of registrations removed.
	DeleteRegistrationsTouchedBefore(
		ctx context.Context,
		cutoff time.Time,
	) (int, error)
}
