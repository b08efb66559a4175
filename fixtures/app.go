package fixtures

import "github.com/dogmatiq/configkit"

const (
	// DefaultAppKey is the default application key for test instructions.
	DefaultAppKey = "28c19ec0-a32f-4ebb-8c3c-0d6b0e14635a"

	// DefaultServerID is the default origin server ID for test instructions.
	DefaultServerID = "<server>"
)

// DefaultApp is the identity of the application used by tests that open a
// data-store.
var DefaultApp = configkit.MustNewIdentity("<app>", DefaultAppKey)
