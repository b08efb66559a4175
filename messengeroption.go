package herald

import (
	"crypto/sha256"
	"fmt"
	"os"
	"time"

	"github.com/dogmatiq/configkit"
	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/herald/consumer"
	"github.com/dogmatiq/herald/heartbeat"
	"github.com/dogmatiq/herald/pruner"
	"github.com/dogmatiq/herald/region"
	"github.com/dogmatiq/linger"
	"github.com/dogmatiq/linger/backoff"
)

var (
	// DefaultApplication is the application identity under which instruction
	// logs and server registries are stored.
	//
	// It is overridden by the WithApplication() option. It only needs to be
	// overridden when several independent farms share one store.
	DefaultApplication = configkit.MustNewIdentity(
		"herald",
		"b79b08f6-23a7-4e2f-b144-ab5a76873517",
	)

	// DefaultPollInterval is the default interval at which the instruction
	// log is polled for new instructions.
	//
	// It is overridden by the WithPollInterval() option.
	DefaultPollInterval = consumer.DefaultPollInterval

	// DefaultHeartbeatInterval is the default interval at which this
	// server's registration is touched.
	//
	// It is overridden by the WithHeartbeatInterval() option.
	DefaultHeartbeatInterval = heartbeat.DefaultInterval

	// DefaultPruneInterval is the default interval at which stale
	// registrations and fully-applied instructions are pruned.
	//
	// It is overridden by the WithPruneInterval() option.
	DefaultPruneInterval = pruner.DefaultInterval

	// DefaultStaleTimeout is the default duration after which a server that
	// has not touched its registration is treated as gone.
	//
	// It is overridden by the WithStaleTimeout() option.
	DefaultStaleTimeout = pruner.DefaultStaleTimeout

	// DefaultFetchLimit is the default maximum number of instructions
	// fetched from the log in a single selection.
	//
	// It is overridden by the WithFetchLimit() option.
	DefaultFetchLimit = consumer.DefaultFetchLimit

	// DefaultMessageBackoff is the default backoff strategy used to delay
	// retries after a background loop failure.
	//
	// It is overridden by the WithMessageBackoff() option.
	DefaultMessageBackoff backoff.Strategy = backoff.WithTransforms(
		backoff.Exponential(100*time.Millisecond),
		linger.FullJitter,
		linger.Limiter(0, 1*time.Minute),
	)

	// DefaultLogger is the default target for log messages produced by the
	// messenger.
	//
	// It is overridden by the WithLogger() option.
	DefaultLogger = logging.DefaultLogger
)

// MessengerOption configures the behavior of a messenger.
type MessengerOption func(*messengerOptions)

// WithApplication returns a messenger option that sets the application
// identity under which the instruction log and server registry are stored.
//
// Farms that share one store under different application identities do not
// see each other's instructions.
//
// If this option is omitted, DefaultApplication is used.
func WithApplication(app configkit.Identity) MessengerOption {
	if err := app.Validate(); err != nil {
		panic(err)
	}

	return func(opts *messengerOptions) {
		opts.Application = app
	}
}

// WithServerID returns a messenger option that sets the ID that identifies
// this server within the farm.
//
// The ID must be stable across restarts of the same logical server,
// otherwise every restart is treated as a new server joining the farm.
//
// If this option is omitted, an ID derived from the hostname and the
// executable's path is used.
func WithServerID(id string) MessengerOption {
	if id == "" {
		panic("server ID must not be empty")
	}

	return func(opts *messengerOptions) {
		opts.ServerID = id
	}
}

// WithRegistry returns a messenger option that sets the registry of cache
// regions that instructions are applied to.
//
// If this option is omitted an empty registry is created; handlers added
// with WithRegion() are registered either way.
func WithRegistry(r *region.Registry) MessengerOption {
	if r == nil {
		panic("registry must not be nil")
	}

	return func(opts *messengerOptions) {
		opts.Registry = r
	}
}

// WithRegion returns a messenger option that registers a handler for the
// cache region with the given name.
//
// It panics if name is empty or h is nil.
func WithRegion(name string, h region.Handler) MessengerOption {
	if name == "" {
		panic("region name must not be empty")
	}
	if h == nil {
		panic("handler must not be nil")
	}

	return func(opts *messengerOptions) {
		opts.Regions = append(
			opts.Regions,
			namedHandler{name, h},
		)
	}
}

// WithPollInterval returns a messenger option that sets the interval at
// which the instruction log is polled for new instructions.
//
// If this option is omitted or d is zero, DefaultPollInterval is used.
func WithPollInterval(d time.Duration) MessengerOption {
	if d < 0 {
		panic("duration must not be negative")
	}

	return func(opts *messengerOptions) {
		opts.PollInterval = d
	}
}

// WithHeartbeatInterval returns a messenger option that sets the interval at
// which this server's registration is touched.
//
// The interval must be comfortably shorter than the staleness timeout,
// otherwise a healthy server risks being treated as gone whenever a
// heartbeat is slightly delayed.
//
// If this option is omitted or d is zero, DefaultHeartbeatInterval is used.
func WithHeartbeatInterval(d time.Duration) MessengerOption {
	if d < 0 {
		panic("duration must not be negative")
	}

	return func(opts *messengerOptions) {
		opts.HeartbeatInterval = d
	}
}

// WithPruneInterval returns a messenger option that sets the interval at
// which stale registrations and fully-applied instructions are pruned.
//
// If this option is omitted or d is zero, DefaultPruneInterval is used.
func WithPruneInterval(d time.Duration) MessengerOption {
	if d < 0 {
		panic("duration must not be negative")
	}

	return func(opts *messengerOptions) {
		opts.PruneInterval = d
	}
}

// WithStaleTimeout returns a messenger option that sets the duration after
// which a server that has not touched its registration is treated as gone.
//
// If this option is omitted or d is zero, DefaultStaleTimeout is used.
func WithStaleTimeout(d time.Duration) MessengerOption {
	if d < 0 {
		panic("duration must not be negative")
	}

	return func(opts *messengerOptions) {
		opts.StaleTimeout = d
	}
}

// WithFetchLimit returns a messenger option that sets the maximum number of
// instructions fetched from the log in a single selection.
//
// If this option is omitted or n is zero, DefaultFetchLimit is used.
func WithFetchLimit(n int) MessengerOption {
	if n < 0 {
		panic("limit must not be negative")
	}

	return func(opts *messengerOptions) {
		opts.FetchLimit = n
	}
}

// WithMessageBackoff returns a messenger option that sets the backoff
// strategy used to delay retries after a background loop failure.
//
// If this option is omitted or s is nil, DefaultMessageBackoff is used.
func WithMessageBackoff(s backoff.Strategy) MessengerOption {
	return func(opts *messengerOptions) {
		opts.MessageBackoff = s
	}
}

// WithColdStart returns a messenger option that forces (or suppresses) the
// cold-start behavior of the sync engine.
//
// A cold-starting server fast-forwards past the existing contents of the
// instruction log without applying them. If this option is omitted, the
// server cold-starts only when it has no existing registration.
//
// Suppressing cold start on a server with no registration causes the entire
// retained log to be replayed.
func WithColdStart(cold bool) MessengerOption {
	return func(opts *messengerOptions) {
		opts.ColdStart = &cold
	}
}

// WithLogger returns a messenger option that sets the target for log
// messages produced by the messenger.
//
// If this option is omitted or l is nil, DefaultLogger is used.
func WithLogger(l logging.Logger) MessengerOption {
	return func(opts *messengerOptions) {
		opts.Logger = l
	}
}

// namedHandler is a cache-region handler paired with the region name it is
// registered under.
type namedHandler struct {
	Name    string
	Handler region.Handler
}

// messengerOptions is a container for a fully-resolved set of messenger
// options.
type messengerOptions struct {
	Application       configkit.Identity
	ServerID          string
	Registry          *region.Registry
	Regions           []namedHandler
	PollInterval      time.Duration
	HeartbeatInterval time.Duration
	PruneInterval     time.Duration
	StaleTimeout      time.Duration
	FetchLimit        int
	MessageBackoff    backoff.Strategy
	ColdStart         *bool
	Logger            logging.Logger
}

// resolveMessengerOptions returns a fully-populated set of messenger options
// built from the given set of option functions.
func resolveMessengerOptions(options ...MessengerOption) *messengerOptions {
	opts := &messengerOptions{}

	for _, o := range options {
		o(opts)
	}

	if opts.Application == (configkit.Identity{}) {
		opts.Application = DefaultApplication
	}

	if opts.ServerID == "" {
		opts.ServerID = defaultServerID()
	}

	if opts.Registry == nil {
		opts.Registry = &region.Registry{}
	}

	for _, r := range opts.Regions {
		opts.Registry.Register(r.Name, r.Handler)
	}

	if opts.PollInterval == 0 {
		opts.PollInterval = DefaultPollInterval
	}

	if opts.HeartbeatInterval == 0 {
		opts.HeartbeatInterval = DefaultHeartbeatInterval
	}

	if opts.PruneInterval == 0 {
		opts.PruneInterval = DefaultPruneInterval
	}

	if opts.StaleTimeout == 0 {
		opts.StaleTimeout = DefaultStaleTimeout
	}

	if opts.StaleTimeout <= opts.HeartbeatInterval {
		panic(fmt.Sprintf(
			"stale timeout (%s) must be greater than the heartbeat interval (%s)",
			opts.StaleTimeout,
			opts.HeartbeatInterval,
		))
	}

	if opts.FetchLimit == 0 {
		opts.FetchLimit = DefaultFetchLimit
	}

	if opts.MessageBackoff == nil {
		opts.MessageBackoff = DefaultMessageBackoff
	}

	if opts.Logger == nil {
		opts.Logger = DefaultLogger
	}

	opts.Registry.Logger = opts.Logger

	return opts
}

// defaultServerID returns the server ID used when the WithServerID() option
// is omitted.
//
// The executable path disambiguates multiple applications sharing one
// machine; two processes of the same executable on the same machine are the
// same logical server.
func defaultServerID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}

	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}

	sum := sha256.Sum256([]byte(exe))

	return fmt.Sprintf("%s-%x", host, sum[:4])
}
