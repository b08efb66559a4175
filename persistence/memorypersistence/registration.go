package memorypersistence

import (
	"context"
	"sort"
	"time"

	"github.com/dogmatiq/herald/persistence"
)

// SaveRegistration creates or replaces a server's registration.
func (ds *dataStore) SaveRegistration(
	_ context.Context,
	reg persistence.Registration,
) error {
	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.guard(); err != nil {
		return err
	}

	ds.db.mutex.Lock()
	defer ds.db.mutex.Unlock()

	ds.db.registration.save(reg)

	return nil
}

// LoadRegistration returns a server's registration.
func (ds *dataStore) LoadRegistration(
	_ context.Context,
	serverID string,
) (persistence.Registration, bool, error) {
	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.guard(); err != nil {
		return persistence.Registration{}, false, err
	}

	ds.db.mutex.RLock()
	defer ds.db.mutex.RUnlock()

	reg, ok := ds.db.registration.registrations[serverID]

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
) error {
	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.guard(); err != nil {
		return err
	}

	ds.db.mutex.Lock()
	defer ds.db.mutex.Unlock()

	db := &ds.db.registration

	reg, ok := db.registrations[serverID]
	if !ok {
		reg = persistence.Registration{
			ServerID:   serverID,
			Checkpoint: cp,
		}
	}

	if advertiseURL != "" {
		reg.AdvertiseURL = advertiseURL
	}

	reg.LastTouchedAt = t

	db.save(reg)

	return nil
}

// AdvanceCheckpoint sets a server's checkpoint to the given instruction ID and
// updates the registration's last-touched time.
func (ds *dataStore) AdvanceCheckpoint(
	_ context.Context,
	serverID string,
	id uint64,
	t time.Time,
) error {
	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.guard(); err != nil {
		return err
	}

	ds.db.mutex.Lock()
	defer ds.db.mutex.Unlock()

	db := &ds.db.registration

	reg := db.registrations[serverID]
	reg.ServerID = serverID

	if id > reg.Checkpoint {
		reg.Checkpoint = id
	}

	reg.LastTouchedAt = t

	db.save(reg)

	return nil
}

// ListRegistrations returns all registrations, ordered by server ID.
func (ds *dataStore) ListRegistrations(
	_ context.Context,
) ([]persistence.Registration, error) {
	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.guard(); err != nil {
		return nil, err
	}

	ds.db.mutex.RLock()
	defer ds.db.mutex.RUnlock()

	regs := make(
		[]persistence.Registration,
		0,
		len(ds.db.registration.registrations),
	)

	for _, reg := range ds.db.registration.registrations {
		regs = append(regs, reg)
	}

	sort.Slice(
		regs,
		func(i, j int) bool {
			return regs[i].ServerID < regs[j].ServerID
		},
	)

	return regs, nil
}

// DeleteRegistrationsTouchedBefore removes registrations whose last-touched
// time is earlier than the given cutoff.
func (ds *dataStore) DeleteRegistrationsTouchedBefore(
	_ context.Context,
	cutoff time.Time,
) (int, error) {
	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.guard(); err != nil {
		return 0, err
	}

	ds.db.mutex.Lock()
	defer ds.db.mutex.Unlock()

	db := &ds.db.registration

	n := 0
	for id, reg := range db.registrations {
		if reg.LastTouchedAt.Before(cutoff) {
			delete(db.registrations, id)
			n++
		}
	}

	return n, nil
}

// registrationDatabase contains server registry related data.
type registrationDatabase struct {
	registrations map[string]persistence.Registration
}

// save stores reg in the database, keyed by its server ID. The last-touched
// time is normalized to UTC.
func (db *registrationDatabase) save(reg persistence.Registration) {
	if db.registrations == nil {
		db.registrations = map[string]persistence.Registration{}
	}

	reg.LastTouchedAt = reg.LastTouchedAt.UTC()

	db.registrations[reg.ServerID] = reg
}
