package providertest

import (
	"time"

	"github.com/dogmatiq/herald/internal/x/gomegax"
	"github.com/dogmatiq/herald/persistence"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

// declareRegistrationRepositoryTests declares a functional test-suite for a
// specific persistence.RegistrationRepository implementation.
func declareRegistrationRepositoryTests(tc *TestContext) {
	ginkgo.Describe("type persistence.RegistrationRepository", func() {
		var (
			dataStore persistence.DataStore

			t1 = time.Date(2025, time.March, 5, 9, 30, 0, 123456789, time.UTC)
			t2 = time.Date(2025, time.March, 5, 9, 31, 0, 0, time.UTC)
			t3 = time.Date(2025, time.March, 5, 9, 32, 0, 0, time.UTC)
		)

		ginkgo.BeforeEach(func() {
			var tearDown func()
			dataStore, tearDown = tc.SetupDataStore()
			ginkgo.DeferCleanup(tearDown)
		})

		ginkgo.Describe("func LoadRegistration()", func() {
			ginkgo.It("returns false if the server has no registration", func() {
				_, ok, err := dataStore.LoadRegistration(tc.Context, "<server>")
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(ok).To(gomega.BeFalse())
			})
		})

		ginkgo.Describe("func SaveRegistration()", func() {
			ginkgo.It("stores the registration faithfully", func() {
				expect := persistence.Registration{
					ServerID:      "<server>",
					AdvertiseURL:  "https://cache-1.example.com",
					Checkpoint:    42,
					LastTouchedAt: t1,
				}

				saveRegistration(tc.Context, dataStore, expect)

				reg := loadRegistration(tc.Context, dataStore, "<server>")
				gomega.Expect(reg).To(gomegax.EqualX(expect))
			})

			ginkgo.It("replaces an existing registration", func() {
				saveRegistration(
					tc.Context,
					dataStore,
					persistence.Registration{
						ServerID:      "<server>",
						AdvertiseURL:  "https://cache-1.example.com",
						Checkpoint:    42,
						LastTouchedAt: t1,
					},
				)

				expect := persistence.Registration{
					ServerID:      "<server>",
					AdvertiseURL:  "https://cache-2.example.com",
					Checkpoint:    7,
					LastTouchedAt: t2,
				}

				saveRegistration(tc.Context, dataStore, expect)

				reg := loadRegistration(tc.Context, dataStore, "<server>")
				gomega.Expect(reg).To(gomegax.EqualX(expect))
			})
		})

		ginkgo.Describe("func TouchRegistration()", func() {
			ginkgo.It("creates the registration if it does not exist", func() {
				err := dataStore.TouchRegistration(
					tc.Context,
					"<server>",
					"https://cache-1.example.com",
					42,
					t1,
				)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				reg := loadRegistration(tc.Context, dataStore, "<server>")
				gomega.Expect(reg).To(gomegax.EqualX(
					persistence.Registration{
						ServerID:      "<server>",
						AdvertiseURL:  "https://cache-1.example.com",
						Checkpoint:    42,
						LastTouchedAt: t1,
					},
				))
			})

			ginkgo.It("does not modify the checkpoint of an existing registration", func() {
				saveRegistration(
					tc.Context,
					dataStore,
					persistence.Registration{
						ServerID:      "<server>",
						Checkpoint:    42,
						LastTouchedAt: t1,
					},
				)

				err := dataStore.TouchRegistration(tc.Context, "<server>", "", 7, t2)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				reg := loadRegistration(tc.Context, dataStore, "<server>")
				gomega.Expect(reg.Checkpoint).To(gomega.BeEquivalentTo(42))
				gomega.Expect(reg.LastTouchedAt).To(gomegax.EqualX(t2))
			})

			ginkgo.It("leaves the advertise URL unchanged if the given URL is empty", func() {
				saveRegistration(
					tc.Context,
					dataStore,
					persistence.Registration{
						ServerID:      "<server>",
						AdvertiseURL:  "https://cache-1.example.com",
						LastTouchedAt: t1,
					},
				)

				err := dataStore.TouchRegistration(tc.Context, "<server>", "", 0, t2)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				reg := loadRegistration(tc.Context, dataStore, "<server>")
				gomega.Expect(reg.AdvertiseURL).To(gomega.Equal("https://cache-1.example.com"))
			})

			ginkgo.It("replaces the advertise URL if the given URL is non-empty", func() {
				saveRegistration(
					tc.Context,
					dataStore,
					persistence.Registration{
						ServerID:      "<server>",
						AdvertiseURL:  "https://cache-1.example.com",
						LastTouchedAt: t1,
					},
				)

				err := dataStore.TouchRegistration(
					tc.Context,
					"<server>",
					"https://cache-2.example.com",
					0,
					t2,
				)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				reg := loadRegistration(tc.Context, dataStore, "<server>")
				gomega.Expect(reg.AdvertiseURL).To(gomega.Equal("https://cache-2.example.com"))
			})
		})

		ginkgo.Describe("func AdvanceCheckpoint()", func() {
			ginkgo.It("advances the checkpoint and updates the last-touched time", func() {
				saveRegistration(
					tc.Context,
					dataStore,
					persistence.Registration{
						ServerID:      "<server>",
						Checkpoint:    3,
						LastTouchedAt: t1,
					},
				)

				err := dataStore.AdvanceCheckpoint(tc.Context, "<server>", 5, t2)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				reg := loadRegistration(tc.Context, dataStore, "<server>")
				gomega.Expect(reg.Checkpoint).To(gomega.BeEquivalentTo(5))
				gomega.Expect(reg.LastTouchedAt).To(gomegax.EqualX(t2))
			})

			ginkgo.It("does not regress the checkpoint", func() {
				saveRegistration(
					tc.Context,
					dataStore,
					persistence.Registration{
						ServerID:      "<server>",
						Checkpoint:    5,
						LastTouchedAt: t1,
					},
				)

				err := dataStore.AdvanceCheckpoint(tc.Context, "<server>", 3, t2)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				reg := loadRegistration(tc.Context, dataStore, "<server>")
				gomega.Expect(reg.Checkpoint).To(gomega.BeEquivalentTo(5))
				gomega.Expect(reg.LastTouchedAt).To(gomegax.EqualX(t2))
			})

			ginkgo.It("creates the registration if it does not exist", func() {
				err := dataStore.AdvanceCheckpoint(tc.Context, "<server>", 5, t1)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				reg := loadRegistration(tc.Context, dataStore, "<server>")
				gomega.Expect(reg).To(gomegax.EqualX(
					persistence.Registration{
						ServerID:      "<server>",
						Checkpoint:    5,
						LastTouchedAt: t1,
					},
				))
			})
		})

		ginkgo.Describe("func ListRegistrations()", func() {
			ginkgo.It("returns an empty result if there are no registrations", func() {
				regs, err := dataStore.ListRegistrations(tc.Context)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(regs).To(gomega.BeEmpty())
			})

			ginkgo.It("returns registrations ordered by server ID", func() {
				expect := []persistence.Registration{
					{ServerID: "<server-1>", Checkpoint: 1, LastTouchedAt: t1},
					{ServerID: "<server-2>", Checkpoint: 2, LastTouchedAt: t2},
					{ServerID: "<server-3>", Checkpoint: 3, LastTouchedAt: t3},
				}

				for _, reg := range []int{2, 0, 1} {
					saveRegistration(tc.Context, dataStore, expect[reg])
				}

				regs, err := dataStore.ListRegistrations(tc.Context)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(regs).To(gomegax.EqualX(expect))
			})
		})

		ginkgo.Describe("func DeleteRegistrationsTouchedBefore()", func() {
			ginkgo.It("removes only registrations last touched before the cutoff", func() {
				saveRegistration(
					tc.Context,
					dataStore,
					persistence.Registration{ServerID: "<server-1>", LastTouchedAt: t1},
				)
				saveRegistration(
					tc.Context,
					dataStore,
					persistence.Registration{ServerID: "<server-2>", LastTouchedAt: t2},
				)
				saveRegistration(
					tc.Context,
					dataStore,
					persistence.Registration{ServerID: "<server-3>", LastTouchedAt: t3},
				)

				n, err := dataStore.DeleteRegistrationsTouchedBefore(tc.Context, t2)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(n).To(gomega.Equal(1))

				regs, err := dataStore.ListRegistrations(tc.Context)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(regs).To(gomega.HaveLen(2))
				gomega.Expect(regs[0].ServerID).To(gomega.Equal("<server-2>"))
				gomega.Expect(regs[1].ServerID).To(gomega.Equal("<server-3>"))
			})

			ginkgo.It("returns zero if there are no stale registrations", func() {
				saveRegistration(
					tc.Context,
					dataStore,
					persistence.Registration{ServerID: "<server>", LastTouchedAt: t2},
				)

				n, err := dataStore.DeleteRegistrationsTouchedBefore(tc.Context, t1)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(n).To(gomega.BeZero())
			})
		})
	})
}
