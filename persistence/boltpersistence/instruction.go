package boltpersistence

import (
	"context"
	"time"

	"github.com/dogmatiq/herald/instruction"
	"github.com/dogmatiq/herald/internal/x/bboltx"
	"go.etcd.io/bbolt"
)

var (
	// instructionBucketKey is the key for the root bucket for the
	// instruction log.
	instructionBucketKey = []byte("instruction")

	// instructionRecordsBucketKey is the key for a child bucket that
	// contains the instructions themselves.
	//
	// The keys are the instruction IDs encoded as 8-byte big-endian packets.
	// The values are instructions marshaled as JSON.
	instructionRecordsBucketKey = []byte("records")

	// instructionLastIDKey is the key of a value within the root bucket that
	// contains the most recently assigned instruction ID, encoded as an
	// 8-byte big-endian packet. It is never reset, even when the log is
	// pruned.
	instructionLastIDKey = []byte("id")
)

// AppendInstruction atomically assigns the next instruction ID and appends
// the instruction to the log.
func (ds *dataStore) AppendInstruction(
	_ context.Context,
	inst instruction.Instruction,
) (_ instruction.Instruction, err error) {
	defer bboltx.Recover(&err)

	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.guard(); err != nil {
		return instruction.Instruction{}, err
	}

	bboltx.Update(
		ds.db,
		func(tx *bbolt.Tx) {
			root := bboltx.CreateBucketIfNotExists(tx, ds.appKey)

			inst.ID = incrementLastInstructionID(root)
			inst.CreatedAt = time.Now().UTC()

			bboltx.PutPath(
				root,
				marshalInstruction(inst),
				instructionBucketKey,
				instructionRecordsBucketKey,
				marshalUint64(inst.ID),
			)
		},
	)

	return inst, nil
}

// SelectInstructions returns instructions with IDs greater than the given ID,
// in ascending order by ID.
func (ds *dataStore) SelectInstructions(
	ctx context.Context,
	after uint64,
	limit int,
) (result []instruction.Instruction, err error) {
	defer bboltx.Recover(&err)

	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.guard(); err != nil {
		return nil, err
	}

	bboltx.View(
		ds.db,
		func(tx *bbolt.Tx) {
			records := bboltx.Bucket(
				tx,
				ds.appKey,
				instructionBucketKey,
				instructionRecordsBucketKey,
			)
			if records == nil {
				return
			}

			c := records.Cursor()
			k, v := c.Seek(marshalUint64(after + 1))

			for k != nil && len(result) < limit {
				bboltx.Must(ctx.Err())

				result = append(result, unmarshalInstruction(v))
				k, v = c.Next()
			}
		},
	)

	return result, nil
}

// MaxInstructionID returns the highest instruction ID that has been assigned,
// or zero if the log is empty.
func (ds *dataStore) MaxInstructionID(
	_ context.Context,
) (_ uint64, err error) {
	defer bboltx.Recover(&err)

	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.guard(); err != nil {
		return 0, err
	}

	var max uint64

	bboltx.View(
		ds.db,
		func(tx *bbolt.Tx) {
			max = unmarshalUint64(
				bboltx.GetPath(
					tx,
					ds.appKey,
					instructionBucketKey,
					instructionLastIDKey,
				),
			)
		},
	)

	return max, nil
}

// PruneInstructions removes instructions with IDs up to and including the
// given watermark.
func (ds *dataStore) PruneInstructions(
	_ context.Context,
	watermark uint64,
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
			records := bboltx.Bucket(
				tx,
				ds.appKey,
				instructionBucketKey,
				instructionRecordsBucketKey,
			)
			if records == nil {
				return
			}

			c := records.Cursor()

			for {
				k, _ := c.First()
				if k == nil || unmarshalUint64(k) > watermark {
					return
				}

				bboltx.Must(records.Delete(k))
				n++
			}
		},
	)

	return n, nil
}

// incrementLastInstructionID increments the most recently assigned
// instruction ID, returning the newly assigned ID.
func incrementLastInstructionID(root *bbolt.Bucket) uint64 {
	id := unmarshalUint64(
		bboltx.GetPath(
			root,
			instructionBucketKey,
			instructionLastIDKey,
		),
	) + 1

	bboltx.PutPath(
		root,
		marshalUint64(id),
		instructionBucketKey,
		instructionLastIDKey,
	)

	return id
}
