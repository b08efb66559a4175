package instruction_test

import (
	. "github.com/dogmatiq/herald/instruction"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type Op", func() {
	Describe("func Validate()", func() {
		It("does not return an error for recognized operations", func() {
			for _, op := range []Op{
				RefreshByID,
				RefreshByType,
				RefreshAll,
				RemoveByID,
			} {
				Expect(op.Validate()).ShouldNot(HaveOccurred())
			}
		})

		It("returns an error for the zero-value", func() {
			var op Op
			Expect(op.Validate()).To(MatchError("invalid operation (0)"))
		})

		It("returns an error for out-of-range values", func() {
			op := RemoveByID + 1
			Expect(op.Validate()).Should(HaveOccurred())
		})
	})

	Describe("func String()", func() {
		It("returns the stable name of the operation", func() {
			Expect(RefreshByID.String()).To(Equal("refresh-by-id"))
			Expect(RefreshByType.String()).To(Equal("refresh-by-type"))
			Expect(RefreshAll.String()).To(Equal("refresh-all"))
			Expect(RemoveByID.String()).To(Equal("remove-by-id"))
		})

		It("renders unrecognized operations distinctly", func() {
			var op Op
			Expect(op.String()).To(Equal("<invalid operation 0>"))
		})
	})

	Describe("func ParseOp()", func() {
		It("round-trips every operation name", func() {
			for _, op := range []Op{
				RefreshByID,
				RefreshByType,
				RefreshAll,
				RemoveByID,
			} {
				parsed, err := ParseOp(op.String())
				Expect(err).ShouldNot(HaveOccurred())
				Expect(parsed).To(Equal(op))
			}
		})

		It("returns an error for unrecognized names", func() {
			_, err := ParseOp("<unknown>")
			Expect(err).To(MatchError("unrecognized operation (<unknown>)"))
		})
	})

	Describe("func MarshalText()", func() {
		It("returns the name of the operation", func() {
			text, err := RefreshAll.MarshalText()
			Expect(err).ShouldNot(HaveOccurred())
			Expect(string(text)).To(Equal("refresh-all"))
		})

		It("returns an error if the operation is invalid", func() {
			var op Op
			_, err := op.MarshalText()
			Expect(err).Should(HaveOccurred())
		})
	})

	Describe("func UnmarshalText()", func() {
		It("sets the operation with the given name", func() {
			var op Op
			err := op.UnmarshalText([]byte("remove-by-id"))
			Expect(err).ShouldNot(HaveOccurred())
			Expect(op).To(Equal(RemoveByID))
		})

		It("returns an error for unrecognized names", func() {
			var op Op
			err := op.UnmarshalText([]byte("<unknown>"))
			Expect(err).Should(HaveOccurred())
		})
	})
})

var _ = Describe("type Item", func() {
	Describe("func Validate()", func() {
		var item Item

		BeforeEach(func() {
			item = Item{
				Region:   "<region>",
				Op:       RefreshByID,
				TargetID: "<target>",
			}
		})

		It("does not return an error if the item is well-formed", func() {
			Expect(item.Validate()).ShouldNot(HaveOccurred())
		})

		It("returns an error if the region is empty", func() {
			item.Region = ""

			Expect(item.Validate()).To(MatchError("item must have a region"))
		})

		It("returns an error if the operation is invalid", func() {
			item.Op = 0

			Expect(item.Validate()).To(MatchError("invalid operation (0)"))
		})

		It("returns an error if a refresh-by-id item has no target ID", func() {
			item.TargetID = ""

			Expect(item.Validate()).To(MatchError(
				`refresh-by-id item for the "<region>" region must have a target ID`,
			))
		})

		It("returns an error if a remove-by-id item has no target ID", func() {
			item.Op = RemoveByID
			item.TargetID = ""

			Expect(item.Validate()).To(MatchError(
				`remove-by-id item for the "<region>" region must have a target ID`,
			))
		})

		It("returns an error if an id-targeted item has a target type", func() {
			item.TargetType = "<type>"

			Expect(item.Validate()).To(MatchError(
				`refresh-by-id item for the "<region>" region must not have a target type`,
			))
		})

		It("returns an error if a refresh-by-type item has no target type", func() {
			item.Op = RefreshByType
			item.TargetID = ""

			Expect(item.Validate()).To(MatchError(
				`refresh-by-type item for the "<region>" region must have a target type`,
			))
		})

		It("returns an error if a refresh-by-type item has a target ID", func() {
			item.Op = RefreshByType
			item.TargetType = "<type>"

			Expect(item.Validate()).To(MatchError(
				`refresh-by-type item for the "<region>" region must not have a target ID`,
			))
		})

		It("returns an error if a refresh-all item has any target", func() {
			item.Op = RefreshAll

			Expect(item.Validate()).To(MatchError(
				`refresh-all item for the "<region>" region must not have a target`,
			))
		})
	})
})

var _ = Describe("type Instruction", func() {
	Describe("func Validate()", func() {
		var inst Instruction

		BeforeEach(func() {
			inst = Instruction{
				MessageID: "<message>",
				Origin:    "<server>",
				Items: []Item{
					{
						Region: "<region>",
						Op:     RefreshAll,
					},
				},
			}
		})

		It("does not return an error if the instruction is well-formed", func() {
			Expect(inst.Validate()).ShouldNot(HaveOccurred())
		})

		It("returns an error if the message ID is empty", func() {
			inst.MessageID = ""

			Expect(inst.Validate()).To(MatchError("instruction must have a message ID"))
		})

		It("returns an error if the origin is empty", func() {
			inst.Origin = ""

			Expect(inst.Validate()).To(MatchError("instruction must have an origin server ID"))
		})

		It("returns an error if there are no items", func() {
			inst.Items = nil

			Expect(inst.Validate()).To(MatchError("instruction must contain at least one item"))
		})

		It("returns an error if any item is malformed", func() {
			inst.Items = append(inst.Items, Item{})

			Expect(inst.Validate()).Should(HaveOccurred())
		})
	})
})
