package boltpersistence

import (
	"context"
	"time"

	"github.com/dogmatiq/herald/internal/x/bboltx"
	"github.com/dogmatiq/herald/persistence"
	"go.etcd.io/bbolt"
)

var (
	// registrationBucketKey is the key for the bucket that contains server
	// registrations.
	//
	// The keys are the server IDs. The values are registrations marshaled as
	// JSON.
	registrationBucketKey = []byte("registration")
)

// SaveRegistration creates or replaces a server's registration.
func (ds *dataStore) SaveRegistration(
	_ context.Context,
	reg persistence.Registration,
) (err error) {
	defer bboltx.Recover(&err)

	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.guard(); err != nil {
		return err
	}

	reg.LastTouchedAt = reg.LastTouchedAt.UTC()

	bboltx.Update(
		ds.db,
		func(tx *bbolt.Tx) {
			bboltx.PutPath(
				tx,
				marshalRegistration(reg),
				ds.appKey,
				registrationBucketKey,
				[]byte(reg.ServerID),
			)
		},
	)

	return nil
}

// LoadRegistration returns a server's registration.
func (ds *dataStore) LoadRegistration(
	_ context.Context,
	serverID string,
) (reg persistence.Registration, ok bool, err error) {
	defer bboltx.Recover(&err)

	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.guard(); err != nil {
		return persistence.Registration{}, false, err
	}

	bboltx.View(
		ds.db,
		func(tx *bbolt.Tx) {
			data := bboltx.GetPath(
				tx,
				ds.appKey,
				registrationBucketKey,
				[]byte(serverID),
			)
			if data == nil {
				return
			}

			reg = unmarshalRegistration(data)
			ok = true
		},
	)

	return reg, ok, nil
}

// TouchRegistration updates the last-touched time of a server's registration,
// and its advertise URL if advertiseURL is non-empty.
func (ds *dataStore) TouchRegistration(
	_ context.Context,
	serverID string,
	advertiseURL string,
	cp uint64,
	t time.Time,
) (err error) {
	defer bboltx.Recover(&err)

	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.guard(); err != nil {
		return err
	}

	bboltx.Update(
		ds.db,
		func(tx *bbolt.Tx) {
			reg := persistence.Registration{
				ServerID:   serverID,
				Checkpoint: cp,
			}

			if data := bboltx.GetPath(
				tx,
				ds.appKey,
				registrationBucketKey,
				[]byte(serverID),
			); data != nil {
				reg = unmarshalRegistration(data)
			}

			if advertiseURL != "" {
				reg.AdvertiseURL = advertiseURL
			}

			reg.LastTouchedAt = t.UTC()

			bboltx.PutPath(
				tx,
				marshalRegistration(reg),
				ds.appKey,
				registrationBucketKey,
				[]byte(serverID),
			)
		},
	)

	return nil
}

// AdvanceCheckpoint sets a server's checkpoint to the given instruction ID
// and updates the registration's last-touched time.
func (ds *dataStore) AdvanceCheckpoint(
	_ context.Context,
	serverID string,
	id uint64,
	t time.Time,
) (err error) {
	defer bboltx.Recover(&err)

	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.guard(); err != nil {
		return err
	}

	bboltx.Update(
		ds.db,
		func(tx *bbolt.Tx) {
			reg := persistence.Registration{
				ServerID: serverID,
			}

			if data := bboltx.GetPath(
				tx,
				ds.appKey,
				registrationBucketKey,
				[]byte(serverID),
			); data != nil {
				reg = unmarshalRegistration(data)
			}

			if id > reg.Checkpoint {
				reg.Checkpoint = id
			}

			reg.LastTouchedAt = t.UTC()

			bboltx.PutPath(
				tx,
				marshalRegistration(reg),
				ds.appKey,
				registrationBucketKey,
				[]byte(serverID),
			)
		},
	)

	return nil
}

// ListRegistrations returns all registrations, ordered by server ID.
func (ds *dataStore) ListRegistrations(
	_ context.Context,
) (regs []persistence.Registration, err error) {
	defer bboltx.Recover(&err)

	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.guard(); err != nil {
		return nil, err
	}

	bboltx.View(
		ds.db,
		func(tx *bbolt.Tx) {
			b := bboltx.Bucket(
				tx,
				ds.appKey,
				registrationBucketKey,
			)
			if b == nil {
				return
			}

			// Registrations are keyed by server ID, so a scan in key order
			// yields them sorted.
			c := b.Cursor()
			for k, v := c.First(); k != nil; k, v = c.Next() {
				regs = append(regs, unmarshalRegistration(v))
			}
		},
	)

	return regs, nil
}

// DeleteRegistrationsTouchedBefore removes registrations whose last-touched
// time is earlier than the given cutoff.
func (ds *dataStore) DeleteRegistrationsTouchedBefore(
	_ context.Context,
	cutoff time.Time,
) (n int, err error) {
	defer bboltx.Recover(&err)

	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.guard(); err != nil {
		return 0, err
	}

	bboltx.Update(
		ds.db,
		func(tx *bbolt.Tx) {
			b := bboltx.Bucket(
				tx,
				ds.appKey,
				registrationBucketKey,
			)
			if b == nil {
				return
			}

			var stale [][]byte

			c := b.Cursor()
			for k, v := c.First(); k != nil; k, v = c.Next() {
				if unmarshalRegistration(v).LastTouchedAt.Before(cutoff) {
					stale = append(stale, k)
				}
			}

			for _, k := range stale {
				bboltx.Must(b.Delete(k))
				n++
			}
		},
	)

	return n, nil
}
