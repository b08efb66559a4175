// Package herald propagates cache-invalidation instructions across a farm of
// servers that share a database, using the database itself as the transport.
//
// Each server appends batches of invalidation instructions to a shared,
// totally-ordered instruction log, and polls the log to apply the
// instructions produced by its peers to its own in-memory cache regions.
// Delivery is at-least-once; region handlers must be idempotent.
package herald

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dogmatiq/herald/checkpoint"
	"github.com/dogmatiq/herald/instruction"
	"github.com/dogmatiq/herald/persistence"
	"github.com/dogmatiq/herald/producer"
	"github.com/dogmatiq/herald/region"
)

// Messenger exchanges cache-invalidation instructions with the other servers
// in the farm.
//
// One messenger runs per server process. It is not active until Run() is
// called.
type Messenger struct {
	provider   persistence.Provider
	opts       *messengerOptions
	checkpoint checkpoint.Checkpoint
	dormant    atomic.Bool
	advertise  atomic.Pointer[string]

	m         sync.Mutex
	dataStore persistence.DataStore
}

// New returns a new messenger that uses the given provider to access the
// instruction log and server registry.
func New(p persistence.Provider, options ...MessengerOption) *Messenger {
	if p == nil {
		panic("provider must not be nil")
	}

	return &Messenger{
		provider: p,
		opts:     resolveMessengerOptions(options...),
	}
}

// ServerID returns the ID that identifies this server within the farm.
func (m *Messenger) ServerID() string {
	return m.opts.ServerID
}

// Registry returns the registry of cache regions that instructions are
// applied to.
//
// Handlers may be registered at any time; an instruction item addressed to a
// region with no registered handler is skipped.
func (m *Messenger) Registry() *region.Registry {
	return m.opts.Registry
}

// NewRecorder returns a recorder that appends to this messenger's
// instruction log.
//
// A recorder accumulates the items produced by a single unit of work, such
// as one inbound request; it is flushed once, at the end of that unit. Each
// unit of work must use its own recorder.
func (m *Messenger) NewRecorder() *producer.Recorder {
	return &producer.Recorder{
		Appender: m,
		Origin:   m.opts.ServerID,
		Dormant:  m.IsDormant,
		Logger:   m.opts.Logger,
	}
}

// AppendInstruction atomically assigns the next instruction ID and appends
// the instruction to the log.
//
// It implements the producer.Appender interface on behalf of the recorders
// returned by NewRecorder().
func (m *Messenger) AppendInstruction(
	ctx context.Context,
	inst instruction.Instruction,
) (instruction.Instruction, error) {
	m.m.Lock()
	ds := m.dataStore
	m.m.Unlock()

	if ds == nil {
		return instruction.Instruction{}, errors.New("the messenger is not running")
	}

	return ds.AppendInstruction(ctx, inst)
}

// IsDormant returns true if the messenger failed its connectivity probe and
// is not propagating instructions.
//
// A dormant messenger discards flushed batches; the local application keeps
// working, it simply neither notifies nor hears from the rest of the farm.
func (m *Messenger) IsDormant() bool {
	return m.dormant.Load()
}

// CaptureAdvertiseURL records the URL that this server is reachable at, if
// it is not already known.
//
// The URL is often only discoverable from within an inbound request, so the
// host application captures it opportunistically; the first non-empty
// capture wins. It is persisted with the server's registration as diagnostic
// information, and no part of the messenger protocol depends on it ever
// being captured.
func (m *Messenger) CaptureAdvertiseURL(u string) {
	if u == "" {
		return
	}

	m.advertise.CompareAndSwap(nil, &u)
}

// AdvertiseURL returns the URL that this server has advertised.
//
// ok is false if no URL has been captured.
func (m *Messenger) AdvertiseURL() (_ string, ok bool) {
	if u := m.advertise.Load(); u != nil {
		return *u, true
	}

	return "", false
}

// advertiseURL returns the advertised URL, or an empty string if it is not
// yet known.
func (m *Messenger) advertiseURL() string {
	u, _ := m.AdvertiseURL()
	return u
}

// setDataStore publishes the data store used by recorders, or withdraws it
// if ds is nil.
func (m *Messenger) setDataStore(ds persistence.DataStore) {
	m.m.Lock()
	defer m.m.Unlock()
	m.dataStore = ds
}
