package redispersistence

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/dogmatiq/herald/instruction"
	"github.com/redis/go-redis/v9"
)

// appendScript atomically allocates the next instruction ID and adds the
// instruction to the log.
//
// KEYS[1] is the ID allocation key and KEYS[2] is the log key. ARGV[1] is
// the JSON-encoded instruction; its ID is replaced with the allocated ID
// before it is stored.
//
// The allocation key is incremented and never deleted, so the IDs produced
// remain monotonic even after the log is pruned. Because allocation and
// storage occur in a single atomic step, an instruction is visible to
// readers as soon as its ID is assigned and the log can not contain gaps.
var appendScript = redis.NewScript(`
local id = redis.call('INCR', KEYS[1])

local inst = cjson.decode(ARGV[1])
inst['id'] = id

redis.call('ZADD', KEYS[2], id, cjson.encode(inst))

return id
`)

func (ds *dataStore) AppendInstruction(
	ctx context.Context,
	inst instruction.Instruction,
) (instruction.Instruction, error) {
	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.guard(); err != nil {
		return instruction.Instruction{}, err
	}

	inst.CreatedAt = time.Now().UTC()

	data, err := json.Marshal(inst)
	if err != nil {
		return instruction.Instruction{}, err
	}

	id, err := appendScript.Run(
		ctx,
		ds.client,
		[]string{ds.keys.id, ds.keys.log},
		data,
	).Uint64()
	if err != nil {
		return instruction.Instruction{}, err
	}

	inst.ID = id

	return inst, nil
}

func (ds *dataStore) SelectInstructions(
	ctx context.Context,
	after uint64,
	limit int,
) ([]instruction.Instruction, error) {
	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.guard(); err != nil {
		return nil, err
	}

	if limit <= 0 {
		return nil, nil
	}

	members, err := ds.client.ZRangeByScore(
		ctx,
		ds.keys.log,
		&redis.ZRangeBy{
			Min:   "(" + strconv.FormatUint(after, 10),
			Max:   "+inf",
			Count: int64(limit),
		},
	).Result()
	if err != nil {
		return nil, err
	}

	result := make([]instruction.Instruction, 0, len(members))

	for _, m := range members {
		var inst instruction.Instruction
		if err := json.Unmarshal([]byte(m), &inst); err != nil {
			return nil, err
		}

		result = append(result, inst)
	}

	return result, nil
}

func (ds *dataStore) MaxInstructionID(ctx context.Context) (uint64, error) {
	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.guard(); err != nil {
		return 0, err
	}

	id, err := ds.client.Get(ctx, ds.keys.id).Uint64()
	if err == redis.Nil {
		return 0, nil
	}

	return id, err
}

func (ds *dataStore) PruneInstructions(
	ctx context.Context,
	watermark uint64,
) (int, error) {
	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.guard(); err != nil {
		return 0, err
	}

	n, err := ds.client.ZRemRangeByScore(
		ctx,
		ds.keys.log,
		"-inf",
		strconv.FormatUint(watermark, 10),
	).Result()

	return int(n), err
}
