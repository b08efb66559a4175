package redispersistence

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/dogmatiq/herald/persistence"
	"github.com/redis/go-redis/v9"
)

// saveScript stores a registration and updates the touch index.
//
// KEYS[1] is the registry key and KEYS[2] is the touch index key. ARGV[1] is
// the server ID, ARGV[2] the JSON-encoded registration, and ARGV[3] the
// last-touched time in nanoseconds since the Unix epoch.
var saveScript = redis.NewScript(`
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
redis.call('ZADD', KEYS[2], ARGV[3], ARGV[1])

return redis.status_reply('OK')
`)

// touchScript updates the last-touched time of a registration, and its
// advertise URL if one is given. The checkpoint of an existing registration
// is left as-is.
//
// KEYS[1] is the registry key and KEYS[2] is the touch index key. ARGV[1] is
// the server ID, ARGV[2] the advertise URL, ARGV[3] the last-touched time as
// an RFC 3339 string, ARGV[4] the same time in nanoseconds since the Unix
// epoch, and ARGV[5] the JSON-encoded registration to store if none exists.
var touchScript = redis.NewScript(`
local reg = redis.call('HGET', KEYS[1], ARGV[1])

if reg then
	local r = cjson.decode(reg)

	if ARGV[2] ~= '' then
		r['advertise_url'] = ARGV[2]
	end
	r['last_touched_at'] = ARGV[3]

	redis.call('HSET', KEYS[1], ARGV[1], cjson.encode(r))
else
	redis.call('HSET', KEYS[1], ARGV[1], ARGV[5])
end

redis.call('ZADD', KEYS[2], ARGV[4], ARGV[1])

return redis.status_reply('OK')
`)

// advanceScript advances the checkpoint of a registration and updates its
// last-touched time. The checkpoint is never regressed.
//
// KEYS[1] is the registry key and KEYS[2] is the touch index key. ARGV[1] is
// the server ID, ARGV[2] the instruction ID, ARGV[3] the last-touched time as
// an RFC 3339 string, ARGV[4] the same time in nanoseconds since the Unix
// epoch, and ARGV[5] the JSON-encoded registration to store if none exists.
var advanceScript = redis.NewScript(`
local reg = redis.call('HGET', KEYS[1], ARGV[1])
local id = tonumber(ARGV[2])

if reg then
	local r = cjson.decode(reg)

	if id > (tonumber(r['checkpoint']) or 0) then
		r['checkpoint'] = id
	end
	r['last_touched_at'] = ARGV[3]

	redis.call('HSET', KEYS[1], ARGV[1], cjson.encode(r))
else
	redis.call('HSET', KEYS[1], ARGV[1], ARGV[5])
end

redis.call('ZADD', KEYS[2], ARGV[4], ARGV[1])

return redis.status_reply('OK')
`)

// deleteScript removes the registrations that were last touched before a
// cutoff time, and returns the number removed.
//
// KEYS[1] is the registry key and KEYS[2] is the touch index key. ARGV[1] is
// the cutoff time in nanoseconds since the Unix epoch.
var deleteScript = redis.NewScript(`
local stale = redis.call('ZRANGEBYSCORE', KEYS[2], '-inf', '(' .. ARGV[1])
local n = 0

for _, id in ipairs(stale) do
	n = n + redis.call('HDEL', KEYS[1], id)
	redis.call('ZREM', KEYS[2], id)
end

return n
`)

func (ds *dataStore) SaveRegistration(
	ctx context.Context,
	reg persistence.Registration,
) error {
	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.guard(); err != nil {
		return err
	}

	data, err := json.Marshal(reg)
	if err != nil {
		return err
	}

	return saveScript.Run(
		ctx,
		ds.client,
		[]string{ds.keys.reg, ds.keys.touch},
		reg.ServerID,
		data,
		reg.LastTouchedAt.UnixNano(),
	).Err()
}

func (ds *dataStore) LoadRegistration(
	ctx context.Context,
	serverID string,
) (persistence.Registration, bool, error) {
	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.guard(); err != nil {
		return persistence.Registration{}, false, err
	}

	data, err := ds.client.HGet(ctx, ds.keys.reg, serverID).Bytes()
	if err == redis.Nil {
		return persistence.Registration{}, false, nil
	}
	if err != nil {
		return persistence.Registration{}, false, err
	}

	var reg persistence.Registration
	if err := json.Unmarshal(data, &reg); err != nil {
		return persistence.Registration{}, false, err
	}

	return reg, true, nil
}

func (ds *dataStore) TouchRegistration(
	ctx context.Context,
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

	ins, err := json.Marshal(
		persistence.Registration{
			ServerID:      serverID,
			AdvertiseURL:  advertiseURL,
			Checkpoint:    cp,
			LastTouchedAt: t.UTC(),
		},
	)
	if err != nil {
		return err
	}

	return touchScript.Run(
		ctx,
		ds.client,
		[]string{ds.keys.reg, ds.keys.touch},
		serverID,
		advertiseURL,
		marshalTime(t),
		t.UnixNano(),
		ins,
	).Err()
}

func (ds *dataStore) AdvanceCheckpoint(
	ctx context.Context,
	serverID string,
	id uint64,
	t time.Time,
) error {
	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.guard(); err != nil {
		return err
	}

	ins, err := json.Marshal(
		persistence.Registration{
			ServerID:      serverID,
			Checkpoint:    id,
			LastTouchedAt: t.UTC(),
		},
	)
	if err != nil {
		return err
	}

	return advanceScript.Run(
		ctx,
		ds.client,
		[]string{ds.keys.reg, ds.keys.touch},
		serverID,
		id,
		marshalTime(t),
		t.UnixNano(),
		ins,
	).Err()
}

func (ds *dataStore) ListRegistrations(
	ctx context.Context,
) ([]persistence.Registration, error) {
	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.guard(); err != nil {
		return nil, err
	}

	values, err := ds.client.HGetAll(ctx, ds.keys.reg).Result()
	if err != nil {
		return nil, err
	}

	regs := make([]persistence.Registration, 0, len(values))

	for _, data := range values {
		var reg persistence.Registration
		if err := json.Unmarshal([]byte(data), &reg); err != nil {
			return nil, err
		}

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

func (ds *dataStore) DeleteRegistrationsTouchedBefore(
	ctx context.Context,
	cutoff time.Time,
) (int, error) {
	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.guard(); err != nil {
		return 0, err
	}

	n, err := deleteScript.Run(
		ctx,
		ds.client,
		[]string{ds.keys.reg, ds.keys.touch},
		cutoff.UnixNano(),
	).Int()

	return n, err
}

// marshalTime marshals a time to the representation used inside a
// JSON-encoded registration.
func marshalTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
