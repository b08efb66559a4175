package mlog_test

import (
	"errors"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/herald/instruction"
	"github.com/dogmatiq/herald/internal/mlog"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var inst = instruction.Instruction{
	ID:        42,
	MessageID: "79f63c0e-6d7c-409e-ada2-8f2a3dce71ab",
	Origin:    "<server>",
	Items: []instruction.Item{
		{
			Region:   "<region>",
			Op:       instruction.RefreshByID,
			TargetID: "<target>",
		},
	},
}

var _ = Describe("func mlog.LogConsume()", func() {
	It("logs in the correct format", func() {
		logger := &logging.BufferedLogger{}

		mlog.LogConsume(logger, inst, 0)

		Expect(logger.Messages()).To(ContainElement(
			logging.BufferedLogMessage{
				Message: "# 42  = 79f63c0e  ∵ <server>  ▼    refresh-by-id <region>/<target>",
			},
		))
	})

	It("shows a retry icon if the failure count is non-zero", func() {
		logger := &logging.BufferedLogger{}

		mlog.LogConsume(logger, inst, 1)

		Expect(logger.Messages()).To(ContainElement(
			logging.BufferedLogMessage{
				Message: "# 42  = 79f63c0e  ∵ <server>  ▼ ↻  refresh-by-id <region>/<target>",
			},
		))
	})
})

var _ = Describe("func mlog.LogProduce()", func() {
	It("logs in the correct format", func() {
		logger := &logging.BufferedLogger{}

		mlog.LogProduce(logger, inst)

		Expect(logger.Messages()).To(ContainElement(
			logging.BufferedLogMessage{
				Message: "# 42  = 79f63c0e  ∵ <server>  ▲    refresh-by-id <region>/<target>",
			},
		))
	})
})

var _ = Describe("func mlog.LogApplyFailure()", func() {
	It("logs in the correct format", func() {
		logger := &logging.BufferedLogger{}

		mlog.LogApplyFailure(
			logger,
			inst,
			errors.New("<error>"),
			5*time.Second,
		)

		Expect(logger.Messages()).To(ContainElement(
			logging.BufferedLogMessage{
				Message: "# 42  = 79f63c0e  ∵ <server>  ▽ ✖  refresh-by-id <region>/<target> ● <error> ● next attempt in 5s",
			},
		))
	})
})

var _ = Describe("func mlog.LogFlushFailure()", func() {
	It("logs in the correct format", func() {
		logger := &logging.BufferedLogger{}

		mlog.LogFlushFailure(
			logger,
			inst,
			errors.New("<error>"),
		)

		Expect(logger.Messages()).To(ContainElement(
			logging.BufferedLogMessage{
				Message: "= 79f63c0e  ∵ <server>  △ ✖  refresh-by-id <region>/<target> ● <error>",
			},
		))
	})
})

var _ = Describe("func Describe()", func() {
	It("describes a single-item instruction", func() {
		Expect(mlog.Describe(inst)).To(Equal("refresh-by-id <region>/<target>"))
	})

	It("summarizes additional items", func() {
		multi := inst
		multi.Items = append(
			multi.Items[:1:1],
			instruction.Item{
				Region:     "<region>",
				Op:         instruction.RefreshByType,
				TargetType: "<type>",
			},
			instruction.Item{
				Region: "<region>",
				Op:     instruction.RefreshAll,
			},
		)

		Expect(mlog.Describe(multi)).To(Equal("refresh-by-id <region>/<target> (+2 more)"))
	})
})

var _ = Describe("func DescribeItem()", func() {
	It("describes each operation", func() {
		Expect(mlog.DescribeItem(instruction.Item{
			Region:   "<region>",
			Op:       instruction.RemoveByID,
			TargetID: "<target>",
		})).To(Equal("remove-by-id <region>/<target>"))

		Expect(mlog.DescribeItem(instruction.Item{
			Region:     "<region>",
			Op:         instruction.RefreshByType,
			TargetType: "<type>",
		})).To(Equal("refresh-by-type <region>/<type>"))

		Expect(mlog.DescribeItem(instruction.Item{
			Region: "<region>",
			Op:     instruction.RefreshAll,
		})).To(Equal("refresh-all <region>"))
	})
})
