package providertest

import (
	"github.com/dogmatiq/configkit"
	"github.com/dogmatiq/herald/fixtures"
	"github.com/dogmatiq/herald/instruction"
	"github.com/dogmatiq/herald/persistence"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

// declareProviderTests declares a functional test-suite for a specific
// persistence.Provider implementation.
func declareProviderTests(tc *TestContext) {
	ginkgo.Describe("type persistence.Provider", func() {
		var (
			provider persistence.Provider
			close    func()
		)

		ginkgo.BeforeEach(func() {
			provider, close = tc.Out.NewProvider()
			if close != nil {
				ginkgo.DeferCleanup(close)
			}
		})

		ginkgo.Describe("func Open()", func() {
			ginkgo.It("allows repeat calls for the same application", func() {
				ds1, err := provider.Open(tc.Context, fixtures.DefaultApp)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				defer ds1.Close()

				ds2, err := provider.Open(tc.Context, fixtures.DefaultApp)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				defer ds2.Close()
			})

			ginkgo.It("returns handles that observe each other's writes", func() {
				ds1, err := provider.Open(tc.Context, fixtures.DefaultApp)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				defer ds1.Close()

				ds2, err := provider.Open(tc.Context, fixtures.DefaultApp)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				defer ds2.Close()

				stored := appendInstruction(
					tc.Context,
					ds1,
					fixtures.NewInstruction("<id>", "<target>"),
				)

				insts := selectInstructions(tc.Context, ds2, 0, 10)
				gomega.Expect(insts).To(gomega.Equal(
					[]instruction.Instruction{stored},
				))
			})

			ginkgo.It("isolates data by application", func() {
				ds1, err := provider.Open(tc.Context, fixtures.DefaultApp)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				defer ds1.Close()

				ds2, err := provider.Open(
					tc.Context,
					configkit.MustNewIdentity("<other-app>", "b1e64ccf-6b13-43d1-93ea-46e3a0e22491"),
				)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				defer ds2.Close()

				appendInstruction(
					tc.Context,
					ds1,
					fixtures.NewInstruction("<id>", "<target>"),
				)

				insts := selectInstructions(tc.Context, ds2, 0, 10)
				gomega.Expect(insts).To(gomega.BeEmpty())

				max, err := ds2.MaxInstructionID(tc.Context)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(max).To(gomega.BeZero())
			})

			ginkgo.It("allows a new handle to be opened after another is closed", func() {
				ds1, err := provider.Open(tc.Context, fixtures.DefaultApp)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				err = ds1.Close()
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				ds2, err := provider.Open(tc.Context, fixtures.DefaultApp)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				defer ds2.Close()

				appendInstruction(
					tc.Context,
					ds2,
					fixtures.NewInstruction("<id>", "<target>"),
				)
			})

			ginkgo.When("the provider is shared", func() {
				ginkgo.BeforeEach(func() {
					if !tc.Out.IsShared {
						ginkgo.Skip("provider does not share data between instances")
					}
				})

				ginkgo.It("shares data with other provider instances", func() {
					other, closeOther := tc.Out.NewProvider()
					if closeOther != nil {
						ginkgo.DeferCleanup(closeOther)
					}

					ds1, err := provider.Open(tc.Context, fixtures.DefaultApp)
					gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
					defer ds1.Close()

					ds2, err := other.Open(tc.Context, fixtures.DefaultApp)
					gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
					defer ds2.Close()

					stored := appendInstruction(
						tc.Context,
						ds1,
						fixtures.NewInstruction("<id>", "<target>"),
					)

					insts := selectInstructions(tc.Context, ds2, 0, 10)
					gomega.Expect(insts).To(gomega.Equal(
						[]instruction.Instruction{stored},
					))
				})
			})
		})
	})
}
