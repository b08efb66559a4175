package providertest

import (
	"time"

	"github.com/dogmatiq/herald/fixtures"
	"github.com/dogmatiq/herald/persistence"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

// declareDataStoreTests declares a functional test-suite for a specific
// persistence.DataStore implementation.
func declareDataStoreTests(tc *TestContext) {
	ginkgo.Describe("type persistence.DataStore", func() {
		var (
			provider  persistence.Provider
			dataStore persistence.DataStore
		)

		ginkgo.BeforeEach(func() {
			var close func()
			provider, close = tc.Out.NewProvider()
			if close != nil {
				ginkgo.DeferCleanup(close)
			}

			var err error
			dataStore, err = provider.Open(tc.Context, fixtures.DefaultApp)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			ginkgo.DeferCleanup(func() {
				dataStore.Close()
			})
		})

		ginkgo.Describe("func Close()", func() {
			ginkgo.It("returns an error if the data-store is already closed", func() {
				err := dataStore.Close()
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				err = dataStore.Close()
				gomega.Expect(err).To(gomega.Equal(persistence.ErrDataStoreClosed))
			})

			ginkgo.It("prevents operations on the instruction log", func() {
				err := dataStore.Close()
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				_, err = dataStore.AppendInstruction(
					tc.Context,
					fixtures.NewInstruction("<id>", "<target>"),
				)
				gomega.Expect(err).To(gomega.Equal(persistence.ErrDataStoreClosed))

				_, err = dataStore.SelectInstructions(tc.Context, 0, 10)
				gomega.Expect(err).To(gomega.Equal(persistence.ErrDataStoreClosed))

				_, err = dataStore.MaxInstructionID(tc.Context)
				gomega.Expect(err).To(gomega.Equal(persistence.ErrDataStoreClosed))

				_, err = dataStore.PruneInstructions(tc.Context, 1)
				gomega.Expect(err).To(gomega.Equal(persistence.ErrDataStoreClosed))
			})

			ginkgo.It("prevents operations on the server registry", func() {
				err := dataStore.Close()
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				now := time.Now()

				err = dataStore.SaveRegistration(
					tc.Context,
					persistence.Registration{ServerID: "<server>"},
				)
				gomega.Expect(err).To(gomega.Equal(persistence.ErrDataStoreClosed))

				_, _, err = dataStore.LoadRegistration(tc.Context, "<server>")
				gomega.Expect(err).To(gomega.Equal(persistence.ErrDataStoreClosed))

				err = dataStore.TouchRegistration(tc.Context, "<server>", "", 0, now)
				gomega.Expect(err).To(gomega.Equal(persistence.ErrDataStoreClosed))

				err = dataStore.AdvanceCheckpoint(tc.Context, "<server>", 1, now)
				gomega.Expect(err).To(gomega.Equal(persistence.ErrDataStoreClosed))

				_, err = dataStore.ListRegistrations(tc.Context)
				gomega.Expect(err).To(gomega.Equal(persistence.ErrDataStoreClosed))

				_, err = dataStore.DeleteRegistrationsTouchedBefore(tc.Context, now)
				gomega.Expect(err).To(gomega.Equal(persistence.ErrDataStoreClosed))
			})

			ginkgo.It("does not affect other handles onto the same data", func() {
				other, err := provider.Open(tc.Context, fixtures.DefaultApp)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				defer other.Close()

				err = dataStore.Close()
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				appendInstruction(
					tc.Context,
					other,
					fixtures.NewInstruction("<id>", "<target>"),
				)
			})
		})
	})
}
