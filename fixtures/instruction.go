package fixtures

import (
	"github.com/dogmatiq/herald/instruction"
	"github.com/google/uuid"
)

// NewItem returns a refresh-by-ID item for a target within the "<region>"
// region.
func NewItem(target string) instruction.Item {
	return instruction.Item{
		Region:   "<region>",
		Op:       instruction.RefreshByID,
		TargetID: target,
	}
}

// NewInstruction returns a new unappended instruction originating from
// DefaultServerID, containing a refresh-by-ID item for each of the given
// targets.
//
// If id is empty, a new UUID is generated for the message ID. If no targets
// are given the instruction contains a single refresh-all item.
func NewInstruction(id string, targets ...string) instruction.Instruction {
	if id == "" {
		id = uuid.NewString()
	}

	inst := instruction.Instruction{
		MessageID: id,
		Origin:    DefaultServerID,
	}

	for _, t := range targets {
		inst.Items = append(inst.Items, NewItem(t))
	}

	if len(inst.Items) == 0 {
		inst.Items = append(
			inst.Items,
			instruction.Item{
				Region: "<region>",
				Op:     instruction.RefreshAll,
			},
		)
	}

	return inst
}
