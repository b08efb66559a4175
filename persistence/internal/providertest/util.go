package providertest

import (
	"context"

	"github.com/dogmatiq/herald/instruction"
	"github.com/dogmatiq/herald/persistence"
	"github.com/onsi/gomega"
)

// appendInstruction appends an instruction to the log and asserts that there
// was no failure.
func appendInstruction(
	ctx context.Context,
	r persistence.InstructionRepository,
	inst instruction.Instruction,
) instruction.Instruction {
	stored, err := r.AppendInstruction(ctx, inst)
	gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

	return stored
}

// selectInstructions selects instructions from the log and asserts that there
// was no failure.
func selectInstructions(
	ctx context.Context,
	r persistence.InstructionRepository,
	after uint64,
	limit int,
) []instruction.Instruction {
	insts, err := r.SelectInstructions(ctx, after, limit)
	gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

	return insts
}

// instructionIDs returns the IDs of the given instructions, in order.
func instructionIDs(insts []instruction.Instruction) []uint64 {
	ids := make([]uint64, len(insts))
	for i, inst := range insts {
		ids[i] = inst.ID
	}

	return ids
}

// saveRegistration saves a registration and asserts that there was no
// failure.
func saveRegistration(
	ctx context.Context,
	r persistence.RegistrationRepository,
	reg persistence.Registration,
) {
	err := r.SaveRegistration(ctx, reg)
	gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
}

// loadRegistration loads a server's registration and asserts that it exists.
func loadRegistration(
	ctx context.Context,
	r persistence.RegistrationRepository,
	serverID string,
) persistence.Registration {
	reg, ok, err := r.LoadRegistration(ctx, serverID)
	gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
	gomega.Expect(ok).To(gomega.BeTrue())

	return reg
}
