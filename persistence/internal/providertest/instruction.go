package providertest

import (
	"sync"
	"time"

	"github.com/dogmatiq/herald/fixtures"
	"github.com/dogmatiq/herald/instruction"
	"github.com/dogmatiq/herald/internal/x/gomegax"
	"github.com/dogmatiq/herald/persistence"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/sync/errgroup"
)

// declareInstructionRepositoryTests declares a functional test-suite for a
// specific persistence.InstructionRepository implementation.
func declareInstructionRepositoryTests(tc *TestContext) {
	ginkgo.Describe("type persistence.InstructionRepository", func() {
		var dataStore persistence.DataStore

		ginkgo.BeforeEach(func() {
			var tearDown func()
			dataStore, tearDown = tc.SetupDataStore()
			ginkgo.DeferCleanup(tearDown)
		})

		ginkgo.Describe("func AppendInstruction()", func() {
			ginkgo.It("assigns contiguous IDs starting at one", func() {
				for i := uint64(1); i <= 3; i++ {
					stored := appendInstruction(
						tc.Context,
						dataStore,
						fixtures.NewInstruction("", "<target>"),
					)
					gomega.Expect(stored.ID).To(gomega.Equal(i))
				}
			})

			ginkgo.It("records the creation time in UTC", func() {
				stored := appendInstruction(
					tc.Context,
					dataStore,
					fixtures.NewInstruction("<id>", "<target>"),
				)

				gomega.Expect(stored.CreatedAt.IsZero()).To(gomega.BeFalse())
				gomega.Expect(stored.CreatedAt.Location()).To(gomega.Equal(time.UTC))
			})

			ginkgo.It("stores the instruction faithfully", func() {
				inst := fixtures.NewInstruction("<id>", "<target-1>", "<target-2>")
				inst.Items = append(
					inst.Items,
					instruction.Item{
						Region:     "<other-region>",
						Op:         instruction.RefreshByType,
						TargetType: "<type>",
					},
				)

				stored := appendInstruction(tc.Context, dataStore, inst)

				insts := selectInstructions(tc.Context, dataStore, 0, 10)
				gomega.Expect(insts).To(gomegax.EqualX(
					[]instruction.Instruction{stored},
				))
			})

			ginkgo.It("continues the ID sequence after the log is pruned", func() {
				appendInstruction(tc.Context, dataStore, fixtures.NewInstruction("<id-1>"))
				appendInstruction(tc.Context, dataStore, fixtures.NewInstruction("<id-2>"))

				n, err := dataStore.PruneInstructions(tc.Context, 2)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(n).To(gomega.Equal(2))

				stored := appendInstruction(
					tc.Context,
					dataStore,
					fixtures.NewInstruction("<id-3>"),
				)
				gomega.Expect(stored.ID).To(gomega.BeEquivalentTo(3))
			})

			ginkgo.It("assigns unique IDs under concurrent appends", func() {
				const (
					writers = 5
					appends = 10
				)

				var (
					m   sync.Mutex
					ids = map[uint64]struct{}{}
				)

				g, ctx := errgroup.WithContext(tc.Context)

				for n := 0; n < writers; n++ {
					g.Go(func() error {
						for i := 0; i < appends; i++ {
							stored, err := dataStore.AppendInstruction(
								ctx,
								fixtures.NewInstruction("", "<target>"),
							)
							if err != nil {
								return err
							}

							m.Lock()
							ids[stored.ID] = struct{}{}
							m.Unlock()
						}

						return nil
					})
				}

				err := g.Wait()
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(ids).To(gomega.HaveLen(writers * appends))

				max, err := dataStore.MaxInstructionID(tc.Context)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(max).To(gomega.BeEquivalentTo(writers * appends))
			})
		})

		ginkgo.Describe("func SelectInstructions()", func() {
			ginkgo.It("returns an empty result if the log is empty", func() {
				insts := selectInstructions(tc.Context, dataStore, 0, 10)
				gomega.Expect(insts).To(gomega.BeEmpty())
			})

			ginkgo.When("the log is not empty", func() {
				ginkgo.BeforeEach(func() {
					for i := 0; i < 5; i++ {
						appendInstruction(
							tc.Context,
							dataStore,
							fixtures.NewInstruction("", "<target>"),
						)
					}
				})

				ginkgo.It("returns only instructions with IDs greater than the given ID", func() {
					insts := selectInstructions(tc.Context, dataStore, 2, 10)
					gomega.Expect(instructionIDs(insts)).To(gomega.Equal(
						[]uint64{3, 4, 5},
					))
				})

				ginkgo.It("limits the number of instructions returned", func() {
					insts := selectInstructions(tc.Context, dataStore, 0, 2)
					gomega.Expect(instructionIDs(insts)).To(gomega.Equal(
						[]uint64{1, 2},
					))
				})

				ginkgo.It("returns an empty result if the given ID is at the end of the log", func() {
					insts := selectInstructions(tc.Context, dataStore, 5, 10)
					gomega.Expect(insts).To(gomega.BeEmpty())

					insts = selectInstructions(tc.Context, dataStore, 99, 10)
					gomega.Expect(insts).To(gomega.BeEmpty())
				})

				ginkgo.It("does not return pruned instructions", func() {
					_, err := dataStore.PruneInstructions(tc.Context, 3)
					gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

					insts := selectInstructions(tc.Context, dataStore, 0, 10)
					gomega.Expect(instructionIDs(insts)).To(gomega.Equal(
						[]uint64{4, 5},
					))
				})
			})
		})

		ginkgo.Describe("func MaxInstructionID()", func() {
			ginkgo.It("returns zero if nothing has been appended", func() {
				max, err := dataStore.MaxInstructionID(tc.Context)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(max).To(gomega.BeZero())
			})

			ginkgo.It("returns the ID of the most recently appended instruction", func() {
				var stored instruction.Instruction
				for i := 0; i < 3; i++ {
					stored = appendInstruction(
						tc.Context,
						dataStore,
						fixtures.NewInstruction("", "<target>"),
					)
				}

				max, err := dataStore.MaxInstructionID(tc.Context)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(max).To(gomega.Equal(stored.ID))
			})

			ginkgo.It("retains the maximum after the log is pruned", func() {
				for i := 0; i < 3; i++ {
					appendInstruction(
						tc.Context,
						dataStore,
						fixtures.NewInstruction("", "<target>"),
					)
				}

				n, err := dataStore.PruneInstructions(tc.Context, 3)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(n).To(gomega.Equal(3))

				max, err := dataStore.MaxInstructionID(tc.Context)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(max).To(gomega.BeEquivalentTo(3))
			})
		})

		ginkgo.Describe("func PruneInstructions()", func() {
			ginkgo.It("removes instructions up to and including the watermark", func() {
				for i := 0; i < 5; i++ {
					appendInstruction(
						tc.Context,
						dataStore,
						fixtures.NewInstruction("", "<target>"),
					)
				}

				n, err := dataStore.PruneInstructions(tc.Context, 3)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(n).To(gomega.Equal(3))

				insts := selectInstructions(tc.Context, dataStore, 0, 10)
				gomega.Expect(instructionIDs(insts)).To(gomega.Equal(
					[]uint64{4, 5},
				))
			})

			ginkgo.It("returns zero if the watermark precedes the log", func() {
				appendInstruction(tc.Context, dataStore, fixtures.NewInstruction("<id>"))

				_, err := dataStore.PruneInstructions(tc.Context, 1)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				appendInstruction(tc.Context, dataStore, fixtures.NewInstruction("<id>"))

				n, err := dataStore.PruneInstructions(tc.Context, 1)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(n).To(gomega.BeZero())
			})

			ginkgo.It("returns zero if the log is empty", func() {
				n, err := dataStore.PruneInstructions(tc.Context, 10)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(n).To(gomega.BeZero())
			})

			ginkgo.It("tolerates a watermark beyond the end of the log", func() {
				appendInstruction(tc.Context, dataStore, fixtures.NewInstruction("<id>"))
				appendInstruction(tc.Context, dataStore, fixtures.NewInstruction("<id>"))

				n, err := dataStore.PruneInstructions(tc.Context, 10)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(n).To(gomega.Equal(2))

				insts := selectInstructions(tc.Context, dataStore, 0, 10)
				gomega.Expect(insts).To(gomega.BeEmpty())
			})
		})
	})
}
