package boltpersistence

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/dogmatiq/herald/instruction"
	"github.com/dogmatiq/herald/internal/x/bboltx"
	"github.com/dogmatiq/herald/persistence"
)

// marshalUint64 marshals a uint64 to an 8-byte big-endian packet.
func marshalUint64(v uint64) []byte {
	data := make([]byte, 8)
	binary.BigEndian.PutUint64(data, v)

	return data
}

// unmarshalUint64 unmarshals a uint64 from an 8-byte big-endian packet.
//
// A nil or empty byte-slice is treated as zero.
func unmarshalUint64(data []byte) uint64 {
	n := len(data)

	if n == 0 {
		return 0
	}

	if n != 8 {
		bboltx.Must(fmt.Errorf("data is corrupt, expected 8 bytes, got %d", n))
	}

	return binary.BigEndian.Uint64(data)
}

// marshalInstruction marshals an instruction to its JSON representation.
func marshalInstruction(inst instruction.Instruction) []byte {
	data, err := json.Marshal(inst)
	bboltx.Must(err)

	return data
}

// unmarshalInstruction unmarshals an instruction from its JSON
// representation.
func unmarshalInstruction(data []byte) instruction.Instruction {
	var inst instruction.Instruction
	bboltx.Must(json.Unmarshal(data, &inst))

	return inst
}

// marshalRegistration marshals a registration to its JSON representation.
func marshalRegistration(reg persistence.Registration) []byte {
	data, err := json.Marshal(reg)
	bboltx.Must(err)

	return data
}

// unmarshalRegistration unmarshals a registration from its JSON
// representation.
func unmarshalRegistration(data []byte) persistence.Registration {
	var reg persistence.Registration
	bboltx.Must(json.Unmarshal(data, &reg))

	return reg
}
