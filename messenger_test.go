package herald_test

import (
	"context"
	"errors"
	"time"

	"github.com/dogmatiq/configkit"
	"github.com/dogmatiq/dodeca/logging"
	. "github.com/dogmatiq/herald"
	. "github.com/dogmatiq/herald/fixtures"
	"github.com/dogmatiq/herald/instruction"
	"github.com/dogmatiq/herald/persistence"
	"github.com/dogmatiq/herald/persistence/memorypersistence"
	"github.com/dogmatiq/herald/producer"
	"github.com/dogmatiq/linger/backoff"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type Messenger", func() {
	var (
		ctx       context.Context
		cancel    context.CancelFunc
		provider  *ProviderStub
		dataStore persistence.DataStore
		handler   *HandlerStub
		targets   chan string
		messenger *Messenger
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 3*time.Second)
		DeferCleanup(cancel)

		provider = &ProviderStub{
			Provider: &memorypersistence.Provider{},
		}

		var err error
		dataStore, err = provider.Open(context.Background(), DefaultApp)
		Expect(err).ShouldNot(HaveOccurred())
		DeferCleanup(func() {
			dataStore.Close()
		})

		targets = make(chan string, 100)
		handler = &HandlerStub{
			ApplyFunc: func(
				_ context.Context,
				item instruction.Item,
			) error {
				targets <- item.TargetID
				return nil
			},
		}

		messenger = New(
			provider,
			WithApplication(DefaultApp),
			WithServerID(DefaultServerID),
			WithRegion("<region>", handler),
			WithPollInterval(5*time.Millisecond),
			WithHeartbeatInterval(5*time.Millisecond),
			WithStaleTimeout(1*time.Minute),
			WithMessageBackoff(backoff.Constant(5*time.Millisecond)),
			WithLogger(logging.DiscardLogger{}),
		)
	})

	// start runs the messenger in the background and returns a channel that
	// receives the result of Run().
	start := func() <-chan error {
		done := make(chan error, 1)
		go func() {
			done <- messenger.Run(ctx)
		}()

		return done
	}

	// registration returns this server's registration row.
	registration := func() (persistence.Registration, bool) {
		reg, ok, err := dataStore.LoadRegistration(
			context.Background(),
			DefaultServerID,
		)
		Expect(err).ShouldNot(HaveOccurred())

		return reg, ok
	}

	// appendTargets writes an instruction containing a refresh-by-ID item
	// for each of the given targets.
	appendTargets := func(targets ...string) instruction.Instruction {
		inst, err := dataStore.AppendInstruction(
			context.Background(),
			NewInstruction("", targets...),
		)
		Expect(err).ShouldNot(HaveOccurred())

		return inst
	}

	Describe("func Run()", func() {
		It("cold starts past the existing contents of the log", func() {
			appendTargets("<historical>")
			last := appendTargets("<historical>")

			done := start()

			Eventually(func() bool {
				_, ok := registration()
				return ok
			}).Should(BeTrue(), "registration was never created")

			reg, _ := registration()
			Expect(reg.Checkpoint).To(Equal(last.ID))

			appendTargets("<live>")

			Eventually(targets).Should(Receive(Equal("<live>")))
			Consistently(targets).ShouldNot(Receive())

			cancel()
			Expect(<-done).To(Equal(context.Canceled))
		})

		It("warm starts from the stored checkpoint", func() {
			first := appendTargets("<before-checkpoint>")
			appendTargets("<missed-a>")
			appendTargets("<missed-b>")

			err := dataStore.SaveRegistration(
				context.Background(),
				persistence.Registration{
					ServerID:      DefaultServerID,
					Checkpoint:    first.ID,
					LastTouchedAt: time.Now(),
				},
			)
			Expect(err).ShouldNot(HaveOccurred())

			done := start()

			Eventually(targets).Should(Receive(Equal("<missed-a>")))
			Eventually(targets).Should(Receive(Equal("<missed-b>")))
			Consistently(targets).ShouldNot(Receive())

			cancel()
			Expect(<-done).To(Equal(context.Canceled))
		})

		It("touches the registration while running", func() {
			done := start()

			var touched time.Time
			Eventually(func() bool {
				reg, ok := registration()
				touched = reg.LastTouchedAt
				return ok
			}).Should(BeTrue())

			Eventually(func() time.Time {
				reg, _ := registration()
				return reg.LastTouchedAt
			}).Should(BeTemporally(">", touched))

			cancel()
			Expect(<-done).To(Equal(context.Canceled))
		})

		It("goes dormant if the store is unreachable", func() {
			provider.OpenFunc = func(
				context.Context,
				configkit.Identity,
			) (persistence.DataStore, error) {
				return nil, errors.New("<error>")
			}

			done := start()

			Eventually(messenger.IsDormant).Should(BeTrue())

			// A dormant messenger discards batches rather than reporting
			// errors to the application.
			rec := messenger.NewRecorder()
			err := rec.RefreshAll("<region>")
			Expect(err).ShouldNot(HaveOccurred())
			Expect(rec.Flush(context.Background())).ShouldNot(HaveOccurred())

			cancel()
			Expect(<-done).To(BeNil())
		})
	})

	Describe("func NewRecorder()", func() {
		It("returns a recorder that appends to the messenger's log", func() {
			done := start()

			Eventually(func() bool {
				_, ok := registration()
				return ok
			}).Should(BeTrue())

			rec := messenger.NewRecorder()
			Expect(rec.RefreshByID("<region>", "<target>")).ShouldNot(HaveOccurred())
			Expect(rec.Flush(ctx)).ShouldNot(HaveOccurred())

			Eventually(targets).Should(Receive(Equal("<target>")))

			cancel()
			Expect(<-done).To(Equal(context.Canceled))
		})

		It("returns a recorder that fails to flush before the messenger runs", func() {
			rec := messenger.NewRecorder()
			Expect(rec.RefreshAll("<region>")).ShouldNot(HaveOccurred())

			err := rec.Flush(context.Background())

			var ferr *producer.FlushError
			Expect(errors.As(err, &ferr)).To(BeTrue())
		})
	})

	Describe("func CaptureAdvertiseURL()", func() {
		It("reports that no URL is known initially", func() {
			_, ok := messenger.AdvertiseURL()
			Expect(ok).To(BeFalse())
		})

		It("captures the first non-empty URL", func() {
			messenger.CaptureAdvertiseURL("")
			messenger.CaptureAdvertiseURL("https://a.example.com")
			messenger.CaptureAdvertiseURL("https://b.example.com")

			u, ok := messenger.AdvertiseURL()
			Expect(ok).To(BeTrue())
			Expect(u).To(Equal("https://a.example.com"))
		})

		It("persists the URL with the registration", func() {
			messenger.CaptureAdvertiseURL("https://app.example.com")

			done := start()

			Eventually(func() string {
				reg, _ := registration()
				return reg.AdvertiseURL
			}).Should(Equal("https://app.example.com"))

			cancel()
			Expect(<-done).To(Equal(context.Canceled))
		})
	})

	Describe("func ServerID()", func() {
		It("returns the configured server ID", func() {
			Expect(messenger.ServerID()).To(Equal(DefaultServerID))
		})
	})

	Describe("func Registry()", func() {
		It("returns the registry holding the configured regions", func() {
			_, ok := messenger.Registry().Get("<region>")
			Expect(ok).To(BeTrue())
		})
	})
})
