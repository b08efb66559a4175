package heartbeat_test

import (
	"context"
	"errors"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/herald/checkpoint"
	. "github.com/dogmatiq/herald/fixtures"
	. "github.com/dogmatiq/herald/heartbeat"
	"github.com/dogmatiq/linger/backoff"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type Monitor", func() {
	var (
		ctx       context.Context
		cancel    context.CancelFunc
		dataStore *DataStoreStub
		now       time.Time
		monitor   *Monitor
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 1*time.Second)
		DeferCleanup(cancel)

		dataStore = NewDataStoreStub()
		DeferCleanup(func() {
			dataStore.Close()
		})

		now = time.Date(2024, 5, 4, 3, 2, 1, 0, time.UTC)

		monitor = &Monitor{
			DataStore:       dataStore,
			ServerID:        DefaultServerID,
			Checkpoint:      &checkpoint.Checkpoint{},
			Interval:        5 * time.Millisecond,
			BackoffStrategy: backoff.Constant(5 * time.Millisecond),
			Now: func() time.Time {
				return now
			},
			Logger: logging.DiscardLogger{},
		}
	})

	Describe("func Run()", func() {
		It("creates the registration on the first touch", func() {
			monitor.Checkpoint.Advance(3)

			dataStore.TouchRegistrationFunc = func(
				ctx context.Context,
				serverID string,
				advertiseURL string,
				cp uint64,
				t time.Time,
			) error {
				defer cancel()

				Expect(serverID).To(Equal(DefaultServerID))
				Expect(cp).To(BeNumerically("==", 3))
				Expect(t).To(BeTemporally("==", now))

				dataStore.TouchRegistrationFunc = nil
				return dataStore.TouchRegistration(ctx, serverID, advertiseURL, cp, t)
			}

			err := monitor.Run(ctx)
			Expect(err).To(Equal(context.Canceled))

			reg, ok, err := dataStore.LoadRegistration(
				context.Background(),
				DefaultServerID,
			)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(reg.LastTouchedAt).To(BeTemporally("==", now))
		})

		It("includes the advertise URL once it is known", func() {
			monitor.AdvertiseURL = func() string {
				return "https://app.example.com"
			}

			dataStore.TouchRegistrationFunc = func(
				ctx context.Context,
				serverID string,
				advertiseURL string,
				cp uint64,
				t time.Time,
			) error {
				defer cancel()

				Expect(advertiseURL).To(Equal("https://app.example.com"))

				dataStore.TouchRegistrationFunc = nil
				return dataStore.TouchRegistration(ctx, serverID, advertiseURL, cp, t)
			}

			err := monitor.Run(ctx)
			Expect(err).To(Equal(context.Canceled))
		})

		It("touches the registration repeatedly", func() {
			touches := 0
			dataStore.TouchRegistrationFunc = func(
				ctx context.Context,
				serverID string,
				advertiseURL string,
				cp uint64,
				t time.Time,
			) error {
				touches++

				if touches == 3 {
					cancel()
				}

				return dataStore.DataStore.TouchRegistration(ctx, serverID, advertiseURL, cp, t)
			}

			err := monitor.Run(ctx)
			Expect(err).To(Equal(context.Canceled))
			Expect(touches).To(Equal(3))
		})

		It("retries after a failed touch", func() {
			failed := false
			dataStore.TouchRegistrationFunc = func(
				ctx context.Context,
				serverID string,
				advertiseURL string,
				cp uint64,
				t time.Time,
			) error {
				if !failed {
					failed = true
					return errors.New("<error>")
				}

				cancel()
				return dataStore.DataStore.TouchRegistration(ctx, serverID, advertiseURL, cp, t)
			}

			err := monitor.Run(ctx)
			Expect(err).To(Equal(context.Canceled))
			Expect(failed).To(BeTrue())
		})

		It("returns an error if the context is canceled", func() {
			cancel()

			err := monitor.Run(ctx)
			Expect(err).To(Equal(context.Canceled))
		})
	})
})
