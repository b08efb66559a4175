package fixtures

import (
	"context"
	"time"

	"github.com/dogmatiq/configkit"
	"github.com/dogmatiq/herald/instruction"
	"github.com/dogmatiq/herald/persistence"
	"github.com/dogmatiq/herald/persistence/memorypersistence"
)

// ProviderStub is a test implementation of the persistence.Provider interface.
type ProviderStub struct {
	persistence.Provider

	OpenFunc func(context.Context, configkit.Identity) (persistence.DataStore, error)
}

// Open returns the data-store for a specific application.
func (p *ProviderStub) Open(
	ctx context.Context,
	app configkit.Identity,
) (persistence.DataStore, error) {
	if p.OpenFunc != nil {
		return p.OpenFunc(ctx, app)
	}

	if p.Provider != nil {
		ds, err := p.Provider.Open(ctx, app)
		if ds != nil {
			ds = &DataStoreStub{DataStore: ds}
		}
		return ds, err
	}

	return nil, nil
}

// DataStoreStub is a test implementation of the persistence.DataStore
// interface.
type DataStoreStub struct {
	persistence.DataStore

	AppendInstructionFunc                func(context.Context, instruction.Instruction) (instruction.Instruction, error)
	SelectInstructionsFunc               func(context.Context, uint64, int) ([]instruction.Instruction, error)
	MaxInstructionIDFunc                 func(context.Context) (uint64, error)
	PruneInstructionsFunc                func(context.Context, uint64) (int, error)
	SaveRegistrationFunc                 func(context.Context, persistence.Registration) error
	LoadRegistrationFunc                 func(context.Context, string) (persistence.Registration, bool, error)
	TouchRegistrationFunc                func(context.Context, string, string, uint64, time.Time) error
	AdvanceCheckpointFunc                func(context.Context, string, uint64, time.Time) error
	ListRegistrationsFunc                func(context.Context) ([]persistence.Registration, error)
	DeleteRegistrationsTouchedBeforeFunc func(context.Context, time.Time) (int, error)
	CloseFunc                            func() error
}

// NewDataStoreStub returns a new data-store stub that uses an in-memory
// persistence provider.
func NewDataStoreStub() *DataStoreStub {
	p := &ProviderStub{
		Provider: &memorypersistence.Provider{},
	}

	ds, err := p.Open(context.Background(), DefaultApp)
	if err != nil {
		panic(err)
	}

	return ds.(*DataStoreStub)
}

// AppendInstruction atomically assigns the next instruction ID and appends
// the instruction to the log.
func (ds *DataStoreStub) AppendInstruction(
	ctx context.Context,
	inst instruction.Instruction,
) (instruction.Instruction, error) {
	if ds.AppendInstructionFunc != nil {
		return ds.AppendInstructionFunc(ctx, inst)
	}

	if ds.DataStore != nil {
		return ds.DataStore.AppendInstruction(ctx, inst)
	}

	return instruction.Instruction{}, nil
}

// SelectInstructions returns instructions with IDs greater than the given ID,
// in ascending order by ID.
func (ds *DataStoreStub) SelectInstructions(
	ctx context.Context,
	after uint64,
	limit int,
) ([]instruction.Instruction, error) {
	if ds.SelectInstructionsFunc != nil {
		return ds.SelectInstructionsFunc(ctx, after, limit)
	}

	if ds.DataStore != nil {
		return ds.DataStore.SelectInstructions(ctx, after, limit)
	}

	return nil, nil
}

// MaxInstructionID returns the highest instruction ID that has been assigned.
func (ds *DataStoreStub) MaxInstructionID(ctx context.Context) (uint64, error) {
	if ds.MaxInstructionIDFunc != nil {
		return ds.MaxInstructionIDFunc(ctx)
	}

	if ds.DataStore != nil {
		return ds.DataStore.MaxInstructionID(ctx)
	}

	return 0, nil
}

// PruneInstructions removes instructions with IDs up to and including the
// given watermark.
func (ds *DataStoreStub) PruneInstructions(
	ctx context.Context,
	watermark uint64,
) (int, error) {
	if ds.PruneInstructionsFunc != nil {
		return ds.PruneInstructionsFunc(ctx, watermark)
	}

	if ds.DataStore != nil {
		return ds.DataStore.PruneInstructions(ctx, watermark)
	}

	return 0, nil
}

// SaveRegistration creates or replaces a server's registration.
func (ds *DataStoreStub) SaveRegistration(
	ctx context.Context,
	reg persistence.Registration,
) error {
	if ds.SaveRegistrationFunc != nil {
		return ds.SaveRegistrationFunc(ctx, reg)
	}

	if ds.DataStore != nil {
		return ds.DataStore.SaveRegistration(ctx, reg)
	}

	return nil
}

// LoadRegistration returns a server's registration.
func (ds *DataStoreStub) LoadRegistration(
	ctx context.Context,
	serverID string,
) (persistence.Registration, bool, error) {
	if ds.LoadRegistrationFunc != nil {
		return ds.LoadRegistrationFunc(ctx, serverID)
	}

	if ds.DataStore != nil {
		return ds.DataStore.LoadRegistration(ctx, serverID)
	}

	return persistence.Registration{}, false, nil
}

// TouchRegistration updates the last-touched time of a server's registration.
func (ds *DataStoreStub) TouchRegistration(
	ctx context.Context,
	serverID string,
	advertiseURL string,
	cp uint64,
	t time.Time,
) error {
	if ds.TouchRegistrationFunc != nil {
		return ds.TouchRegistrationFunc(ctx, serverID, advertiseURL, cp, t)
	}

	if ds.DataStore != nil {
		return ds.DataStore.TouchRegistration(ctx, serverID, advertiseURL, cp, t)
	}

	return nil
}

// AdvanceCheckpoint sets a server's checkpoint to the given instruction ID.
func (ds *DataStoreStub) AdvanceCheckpoint(
	ctx context.Context,
	serverID string,
	id uint64,
	t time.Time,
) error {
	if ds.AdvanceCheckpointFunc != nil {
		return ds.AdvanceCheckpointFunc(ctx, serverID, id, t)
	}

	if ds.DataStore != nil {
		return ds.DataStore.AdvanceCheckpoint(ctx, serverID, id, t)
	}

	return nil
}

// ListRegistrations returns all registrations, ordered by server ID.
func (ds *DataStoreStub) ListRegistrations(
	ctx context.Context,
) ([]persistence.Registration, error) {
	if ds.ListRegistrationsFunc != nil {
		return ds.ListRegistrationsFunc(ctx)
	}

	if ds.DataStore != nil {
		return ds.DataStore.ListRegistrations(ctx)
	}

	return nil, nil
}

// DeleteRegistrationsTouchedBefore removes registrations whose last-touched
// time is earlier than the given cutoff.
func (ds *DataStoreStub) DeleteRegistrationsTouchedBefore(
	ctx context.Context,
	cutoff time.Time,
) (int, error) {
	if ds.DeleteRegistrationsTouchedBeforeFunc != nil {
		return ds.DeleteRegistrationsTouchedBeforeFunc(ctx, cutoff)
	}

	if ds.DataStore != nil {
		return ds.DataStore.DeleteRegistrationsTouchedBefore(ctx, cutoff)
	}

	return 0, nil
}

// Close closes the data store.
func (ds *DataStoreStub) Close() error {
	if ds.CloseFunc != nil {
		return ds.CloseFunc()
	}

	if ds.DataStore != nil {
		return ds.DataStore.Close()
	}

	return nil
}
