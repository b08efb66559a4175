package memorypersistence

import "sync"

// database encapsulates a single application's data.
type database struct {
	mutex        sync.RWMutex
	instruction  instructionDatabase
	registration registrationDatabase
}
