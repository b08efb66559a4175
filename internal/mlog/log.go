package mlog

import (
	"fmt"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/herald/instruction"
)

// LogConsume logs a message indicating that an instruction is being applied
// to the local cache regions.
func LogConsume(
	log logging.Logger,
	inst instruction.Instruction,
	fc uint,
) {
	logging.LogString(
		log,
		String(
			[]IconWithLabel{
				InstructionIDIcon.WithLabel("%d", inst.ID),
				MessageIDIcon.WithID(inst.MessageID),
				OriginIcon.WithID(inst.Origin),
			},
			[]Icon{
				ConsumeIcon,
				retryIcon(fc),
			},
			Describe(inst),
		),
	)
}

// LogProduce logs a message indicating that an instruction has been appended
// to the instruction log.
func LogProduce(
	log logging.Logger,
	inst instruction.Instruction,
) {
	logging.LogString(
		log,
		String(
			[]IconWithLabel{
				InstructionIDIcon.WithLabel("%d", inst.ID),
				MessageIDIcon.WithID(inst.MessageID),
				OriginIcon.WithID(inst.Origin),
			},
			[]Icon{
				ProduceIcon,
				"",
			},
			Describe(inst),
		),
	)
}

// LogApplyFailure logs a message indicating that an instruction could not be
// applied to the local cache regions.
func LogApplyFailure(
	log logging.Logger,
	inst instruction.Instruction,
	cause error,
	delay time.Duration,
) {
	logging.LogString(
		log,
		String(
			[]IconWithLabel{
				InstructionIDIcon.WithLabel("%d", inst.ID),
				MessageIDIcon.WithID(inst.MessageID),
				OriginIcon.WithID(inst.Origin),
			},
			[]Icon{
				ConsumeErrorIcon,
				ErrorIcon,
			},
			Describe(inst),
			cause.Error(),
			fmt.Sprintf("next attempt in %s", delay),
		),
	)
}

// LogFlushFailure logs a message indicating that a batch of items could not
// be appended to the instruction log.
func LogFlushFailure(
	log logging.Logger,
	inst instruction.Instruction,
	cause error,
) {
	logging.LogString(
		log,
		String(
			[]IconWithLabel{
				MessageIDIcon.WithID(inst.MessageID),
				OriginIcon.WithID(inst.Origin),
			},
			[]Icon{
				ProduceErrorIcon,
				ErrorIcon,
			},
			Describe(inst),
			cause.Error(),
		),
	)
}

// Describe returns a human-readable description of an instruction's items.
func Describe(inst instruction.Instruction) string {
	if len(inst.Items) == 0 {
		return "empty instruction"
	}

	desc := DescribeItem(inst.Items[0])

	if n := len(inst.Items) - 1; n > 0 {
		desc += fmt.Sprintf(" (+%d more)", n)
	}

	return desc
}

// DescribeItem returns a human-readable description of a single item.
func DescribeItem(item instruction.Item) string {
	switch item.Op {
	case instruction.RefreshByID, instruction.RemoveByID:
		return fmt.Sprintf("%s %s/%s", item.Op, item.Region, item.TargetID)
	case instruction.RefreshByType:
		return fmt.Sprintf("%s %s/%s", item.Op, item.Region, item.TargetType)
	default:
		return fmt.Sprintf("%s %s", item.Op, item.Region)
	}
}

func retryIcon(n uint) Icon {
	if n == 0 {
		return ""
	}

	return RetryIcon
}
