package herald

import (
	"time"

	"github.com/dogmatiq/configkit"
	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/herald/region"
	"github.com/dogmatiq/linger/backoff"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("func WithApplication()", func() {
	It("sets the application identity", func() {
		app := configkit.MustNewIdentity(
			"<app>",
			"28c19ec0-a32f-4ebb-8c3c-0d6b0e14635a",
		)

		opts := resolveMessengerOptions(
			WithApplication(app),
		)

		Expect(opts.Application).To(Equal(app))
	})

	It("uses the default if the option is omitted", func() {
		opts := resolveMessengerOptions()

		Expect(opts.Application).To(Equal(DefaultApplication))
	})

	It("panics if the identity is invalid", func() {
		Expect(func() {
			WithApplication(configkit.Identity{})
		}).To(Panic())
	})
})

var _ = Describe("func WithServerID()", func() {
	It("sets the server ID", func() {
		opts := resolveMessengerOptions(
			WithServerID("<server>"),
		)

		Expect(opts.ServerID).To(Equal("<server>"))
	})

	It("derives an ID from the environment if the option is omitted", func() {
		opts := resolveMessengerOptions()

		Expect(opts.ServerID).NotTo(BeEmpty())
		Expect(opts.ServerID).To(Equal(
			resolveMessengerOptions().ServerID,
		), "derived server ID is not stable")
	})

	It("panics if the ID is empty", func() {
		Expect(func() {
			WithServerID("")
		}).To(Panic())
	})
})

var _ = Describe("func WithRegistry()", func() {
	It("sets the region registry", func() {
		r := &region.Registry{}

		opts := resolveMessengerOptions(
			WithRegistry(r),
		)

		Expect(opts.Registry).To(BeIdenticalTo(r))
	})

	It("panics if the registry is nil", func() {
		Expect(func() {
			WithRegistry(nil)
		}).To(Panic())
	})
})

var _ = Describe("func WithRegion()", func() {
	It("registers the handler with the registry", func() {
		h := region.HandlerFunc(nil)

		opts := resolveMessengerOptions(
			WithRegion("<region>", h),
		)

		_, ok := opts.Registry.Get("<region>")
		Expect(ok).To(BeTrue())
	})

	It("panics if the region name is empty", func() {
		Expect(func() {
			WithRegion("", region.HandlerFunc(nil))
		}).To(Panic())
	})

	It("panics if the handler is nil", func() {
		Expect(func() {
			WithRegion("<region>", nil)
		}).To(Panic())
	})
})

var _ = Describe("func WithPollInterval()", func() {
	It("sets the poll interval", func() {
		opts := resolveMessengerOptions(
			WithPollInterval(10 * time.Second),
		)

		Expect(opts.PollInterval).To(Equal(10 * time.Second))
	})

	It("uses the default if the duration is zero", func() {
		opts := resolveMessengerOptions()

		Expect(opts.PollInterval).To(Equal(DefaultPollInterval))
	})

	It("panics if the duration is less than zero", func() {
		Expect(func() {
			WithPollInterval(-1)
		}).To(Panic())
	})
})

var _ = Describe("func WithHeartbeatInterval()", func() {
	It("sets the heartbeat interval", func() {
		opts := resolveMessengerOptions(
			WithHeartbeatInterval(10 * time.Second),
		)

		Expect(opts.HeartbeatInterval).To(Equal(10 * time.Second))
	})

	It("uses the default if the duration is zero", func() {
		opts := resolveMessengerOptions()

		Expect(opts.HeartbeatInterval).To(Equal(DefaultHeartbeatInterval))
	})

	It("panics if the duration is less than zero", func() {
		Expect(func() {
			WithHeartbeatInterval(-1)
		}).To(Panic())
	})
})

var _ = Describe("func WithPruneInterval()", func() {
	It("sets the prune interval", func() {
		opts := resolveMessengerOptions(
			WithPruneInterval(time.Hour),
		)

		Expect(opts.PruneInterval).To(Equal(time.Hour))
	})

	It("uses the default if the duration is zero", func() {
		opts := resolveMessengerOptions()

		Expect(opts.PruneInterval).To(Equal(DefaultPruneInterval))
	})
})

var _ = Describe("func WithStaleTimeout()", func() {
	It("sets the staleness timeout", func() {
		opts := resolveMessengerOptions(
			WithStaleTimeout(10 * time.Minute),
		)

		Expect(opts.StaleTimeout).To(Equal(10 * time.Minute))
	})

	It("uses the default if the duration is zero", func() {
		opts := resolveMessengerOptions()

		Expect(opts.StaleTimeout).To(Equal(DefaultStaleTimeout))
	})

	It("panics if the timeout does not exceed the heartbeat interval", func() {
		Expect(func() {
			resolveMessengerOptions(
				WithHeartbeatInterval(time.Minute),
				WithStaleTimeout(time.Minute),
			)
		}).To(Panic())
	})
})

var _ = Describe("func WithFetchLimit()", func() {
	It("sets the fetch limit", func() {
		opts := resolveMessengerOptions(
			WithFetchLimit(10),
		)

		Expect(opts.FetchLimit).To(Equal(10))
	})

	It("uses the default if the limit is zero", func() {
		opts := resolveMessengerOptions()

		Expect(opts.FetchLimit).To(Equal(DefaultFetchLimit))
	})

	It("panics if the limit is less than zero", func() {
		Expect(func() {
			WithFetchLimit(-1)
		}).To(Panic())
	})
})

var _ = Describe("func WithMessageBackoff()", func() {
	It("sets the backoff strategy", func() {
		s := backoff.Constant(time.Second)

		opts := resolveMessengerOptions(
			WithMessageBackoff(s),
		)

		Expect(opts.MessageBackoff).NotTo(BeNil())
	})

	It("uses the default if the strategy is nil", func() {
		opts := resolveMessengerOptions(
			WithMessageBackoff(nil),
		)

		Expect(opts.MessageBackoff).NotTo(BeNil())
	})
})

var _ = Describe("func WithColdStart()", func() {
	It("forces cold-start behavior", func() {
		opts := resolveMessengerOptions(
			WithColdStart(true),
		)

		Expect(opts.ColdStart).NotTo(BeNil())
		Expect(*opts.ColdStart).To(BeTrue())
	})

	It("leaves the behavior automatic if the option is omitted", func() {
		opts := resolveMessengerOptions()

		Expect(opts.ColdStart).To(BeNil())
	})
})

var _ = Describe("func WithLogger()", func() {
	It("sets the logger", func() {
		l := logging.DiscardLogger{}

		opts := resolveMessengerOptions(
			WithLogger(l),
		)

		Expect(opts.Logger).To(Equal(l))
	})

	It("uses the default if the logger is nil", func() {
		opts := resolveMessengerOptions(
			WithLogger(nil),
		)

		Expect(opts.Logger).To(Equal(DefaultLogger))
	})
})
