package kvault

import (
	"context"
	"time"

	"github.com/unkn0wn-root/kvault/cipher"
	"github.com/unkn0wn-root/kvault/codec"
	pr "github.com/unkn0wn-root/kvault/provider"
)

// Store is one isolated cache bound to one storage root.
// All methods are safe for concurrent use.
type Store interface {
	// Put stores v under key, replacing any previous entry. validSeconds < 0
	// never expires, 0 is due on the next read, > 0 expires that many seconds
	// after the write.
	Put(ctx context.Context, key string, v Value, validSeconds int64) error
	// PutPermanent stores v with no expiry, whatever happens to the clock.
	PutPermanent(ctx context.Context, key string, v Value) error

	// Get returns ok=false for missing and due keys. Due entries are removed.
	Get(ctx context.Context, key string) (v Value, ok bool, err error)
	GetInt(ctx context.Context, key string) (int64, bool, error)
	GetFloat(ctx context.Context, key string) (float64, bool, error)
	GetBool(ctx context.Context, key string) (bool, bool, error)
	GetString(ctx context.Context, key string) (string, bool, error)
	GetBytes(ctx context.Context, key string) ([]byte, bool, error)
	// GetObject decodes an object entry into dst (a non-nil pointer).
	GetObject(ctx context.Context, key string, dst any) (bool, error)

	// Stat returns the entry metadata without decrypting the payload.
	Stat(ctx context.Context, key string) (Entry, bool, error)
	// Contains applies the same expiry rule as Get.
	Contains(ctx context.Context, key string) (bool, error)

	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error

	// Keys lists keys whose entries are not due. Due entries found on the way are removed.
	Keys(ctx context.Context) ([]string, error)
	// Sweep removes every due entry and returns how many were removed.
	Sweep(ctx context.Context) (int, error)

	Close(ctx context.Context) error
}

// Options tune a Store. Only Provider is required.
type Options struct {
	// Required
	Provider pr.Provider

	Cipher          *cipher.Chain    // nil => passthrough
	Codec           codec.Codec      // objects; nil => codec.JSON
	Logger          Logger           // if nil, NopLogger is used
	Hooks           Hooks            // if nil, NopHooks is used
	Clock           func() time.Time // nil => time.Now
	SweepInterval   time.Duration    // 0 => no background sweep
	PurgeUnreadable bool             // delete records that fail to decode (after reporting the error)
	LockStripes     int              // 0 => 256
}

// New builds a Store. Prefer Registry.Resolve when several callers share a root.
func New(opts Options) (Store, error) {
	return newStore(opts)
}

// Load reads an object entry into a fresh V.
func Load[V any](ctx context.Context, s Store, key string) (V, bool, error) {
	var v V
	ok, err := s.GetObject(ctx, key, &v)
	if err != nil || !ok {
		var zero V
		return zero, false, err
	}
	return v, true, nil
}
