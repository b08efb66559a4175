package mlog_test

import (
	"github.com/dogmatiq/herald/internal/mlog"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type Icon", func() {
	Describe("func String()", func() {
		It("returns the icon string", func() {
			Expect(
				mlog.ConsumeIcon.String(),
			).To(Equal("▼"))
		})
	})

	Describe("func WithLabel()", func() {
		It("returns the icon and label", func() {
			Expect(
				mlog.InstructionIDIcon.WithLabel("<foo>").String(),
			).To(Equal("# <foo>"))
		})

		It("renders a hyphen in place of an empty label", func() {
			Expect(
				mlog.InstructionIDIcon.WithLabel("").String(),
			).To(Equal("# -"))
		})
	})

	Describe("func WithID()", func() {
		It("returns the icon and abbreviated ID", func() {
			Expect(
				mlog.MessageIDIcon.WithID("47d10297-8192-40c4-aa77-ad63e7d4a8cb").String(),
			).To(Equal("= 47d10297"))
		})
	})
})
