package kvault

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The store calls them on hot paths.
type Hooks interface {
	// A due entry was removed.
	// source ∈ {"read", "sweep"}
	Expired(key, source string)

	// A record could not be turned back into a value.
	// reason ∈ {"corrupt", "cipher", "decode"}
	Unreadable(key, reason string)

	// The provider failed. op ∈ {"read", "write", "delete", "list"}.
	StorageFailure(op, key string, err error)

	// A sweep pass finished.
	SweepCompleted(scanned, removed int)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) Expired(string, string)               {}
func (NopHooks) Unreadable(string, string)            {}
func (NopHooks) StorageFailure(string, string, error) {}
func (NopHooks) SweepCompleted(int, int)              {}
