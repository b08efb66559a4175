package producer_test

import (
	"context"
	"errors"

	. "github.com/dogmatiq/herald/fixtures"
	"github.com/dogmatiq/herald/instruction"
	. "github.com/dogmatiq/herald/producer"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type Recorder", func() {
	var (
		dataStore *DataStoreStub
		recorder  *Recorder
	)

	BeforeEach(func() {
		dataStore = NewDataStoreStub()

		recorder = &Recorder{
			Appender: dataStore,
			Origin:   DefaultServerID,
			GenerateID: func() string {
				return "<message-id>"
			},
		}
	})

	AfterEach(func() {
		dataStore.Close()
	})

	// flushedItems flushes the batch and returns the items of the single
	// instruction that results.
	flushedItems := func() []instruction.Item {
		err := recorder.Flush(context.Background())
		Expect(err).ShouldNot(HaveOccurred())

		insts, err := dataStore.SelectInstructions(context.Background(), 0, 10)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(insts).To(HaveLen(1))

		return insts[0].Items
	}

	Describe("func Enqueue()", func() {
		It("adds items to the batch", func() {
			err := recorder.Enqueue(
				NewItem("<target-a>"),
				NewItem("<target-b>"),
			)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(recorder.Len()).To(Equal(2))
		})

		It("does not mutate the batch if any item is invalid", func() {
			err := recorder.Enqueue(
				NewItem("<target>"),
				instruction.Item{
					Op: instruction.RefreshAll, // note: no region
				},
			)
			Expect(err).Should(HaveOccurred())
			Expect(recorder.Len()).To(BeZero())
		})
	})

	Describe("func RefreshByID()", func() {
		It("enqueues a refresh of a single entry", func() {
			err := recorder.RefreshByID("<region>", "<target>")
			Expect(err).ShouldNot(HaveOccurred())

			Expect(flushedItems()).To(Equal(
				[]instruction.Item{
					{
						Region:   "<region>",
						Op:       instruction.RefreshByID,
						TargetID: "<target>",
					},
				},
			))
		})

		It("returns an error if the item is invalid", func() {
			err := recorder.RefreshByID("<region>", "")
			Expect(err).Should(HaveOccurred())
		})
	})

	Describe("func RefreshByType()", func() {
		It("enqueues a refresh of a named type", func() {
			err := recorder.RefreshByType("<region>", "<type>")
			Expect(err).ShouldNot(HaveOccurred())

			Expect(flushedItems()).To(Equal(
				[]instruction.Item{
					{
						Region:     "<region>",
						Op:         instruction.RefreshByType,
						TargetType: "<type>",
					},
				},
			))
		})
	})

	Describe("func RefreshAll()", func() {
		It("enqueues a refresh of an entire region", func() {
			err := recorder.RefreshAll("<region>")
			Expect(err).ShouldNot(HaveOccurred())

			Expect(flushedItems()).To(Equal(
				[]instruction.Item{
					{
						Region: "<region>",
						Op:     instruction.RefreshAll,
					},
				},
			))
		})
	})

	Describe("func RemoveByID()", func() {
		It("enqueues removal of a single entry", func() {
			err := recorder.RemoveByID("<region>", "<target>")
			Expect(err).ShouldNot(HaveOccurred())

			Expect(flushedItems()).To(Equal(
				[]instruction.Item{
					{
						Region:   "<region>",
						Op:       instruction.RemoveByID,
						TargetID: "<target>",
					},
				},
			))
		})
	})

	Describe("func Flush()", func() {
		It("appends one instruction containing the batched items in order", func() {
			recorder.RefreshByID("<region>", "<target-a>")
			recorder.RemoveByID("<region>", "<target-b>")

			err := recorder.Flush(context.Background())
			Expect(err).ShouldNot(HaveOccurred())

			insts, err := dataStore.SelectInstructions(context.Background(), 0, 10)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(insts).To(HaveLen(1))

			Expect(insts[0].ID).To(BeNumerically("==", 1))
			Expect(insts[0].MessageID).To(Equal("<message-id>"))
			Expect(insts[0].Origin).To(Equal(DefaultServerID))
			Expect(insts[0].Items).To(Equal(
				[]instruction.Item{
					{
						Region:   "<region>",
						Op:       instruction.RefreshByID,
						TargetID: "<target-a>",
					},
					{
						Region:   "<region>",
						Op:       instruction.RemoveByID,
						TargetID: "<target-b>",
					},
				},
			))
		})

		It("empties the batch", func() {
			recorder.RefreshAll("<region>")

			err := recorder.Flush(context.Background())
			Expect(err).ShouldNot(HaveOccurred())
			Expect(recorder.Len()).To(BeZero())
		})

		It("does nothing if the batch is empty", func() {
			dataStore.AppendInstructionFunc = func(
				context.Context,
				instruction.Instruction,
			) (instruction.Instruction, error) {
				Fail("unexpected append")
				return instruction.Instruction{}, nil
			}

			err := recorder.Flush(context.Background())
			Expect(err).ShouldNot(HaveOccurred())
		})

		It("generates a random message ID if none is configured", func() {
			recorder.GenerateID = nil
			recorder.RefreshAll("<region>")

			err := recorder.Flush(context.Background())
			Expect(err).ShouldNot(HaveOccurred())

			insts, err := dataStore.SelectInstructions(context.Background(), 0, 10)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(insts[0].MessageID).NotTo(BeEmpty())
		})

		When("the messenger is dormant", func() {
			BeforeEach(func() {
				recorder.Dormant = func() bool {
					return true
				}
			})

			It("discards the batch without appending", func() {
				recorder.RefreshAll("<region>")

				err := recorder.Flush(context.Background())
				Expect(err).ShouldNot(HaveOccurred())
				Expect(recorder.Len()).To(BeZero())

				insts, err := dataStore.SelectInstructions(context.Background(), 0, 10)
				Expect(err).ShouldNot(HaveOccurred())
				Expect(insts).To(BeEmpty())
			})
		})

		When("the append fails", func() {
			BeforeEach(func() {
				dataStore.AppendInstructionFunc = func(
					context.Context,
					instruction.Instruction,
				) (instruction.Instruction, error) {
					return instruction.Instruction{}, errors.New("<error>")
				}
			})

			It("returns a FlushError", func() {
				recorder.RefreshAll("<region>")

				err := recorder.Flush(context.Background())

				var ferr *FlushError
				Expect(errors.As(err, &ferr)).To(BeTrue())
				Expect(ferr.Cause).To(MatchError("<error>"))
				Expect(ferr.Instruction.MessageID).To(Equal("<message-id>"))
				Expect(ferr.Instruction.Items).To(HaveLen(1))
			})

			It("drops the batch", func() {
				recorder.RefreshAll("<region>")

				recorder.Flush(context.Background())
				Expect(recorder.Len()).To(BeZero())

				// A subsequent flush must not retry the dropped items.
				dataStore.AppendInstructionFunc = nil

				err := recorder.Flush(context.Background())
				Expect(err).ShouldNot(HaveOccurred())

				insts, err := dataStore.SelectInstructions(context.Background(), 0, 10)
				Expect(err).ShouldNot(HaveOccurred())
				Expect(insts).To(BeEmpty())
			})
		})
	})

	Describe("func Reset()", func() {
		It("discards the batch", func() {
			recorder.RefreshAll("<region>")
			recorder.Reset()

			Expect(recorder.Len()).To(BeZero())

			err := recorder.Flush(context.Background())
			Expect(err).ShouldNot(HaveOccurred())

			insts, err := dataStore.SelectInstructions(context.Background(), 0, 10)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(insts).To(BeEmpty())
		})
	})
})
