package kvault

import (
	"sync"

	"github.com/unkn0wn-root/kvault/internal/util"
)

const defaultLockStripes = 256

// keyLocks maps keys onto a fixed set of RW mutexes. Two keys may share a
// stripe; one key always maps to the same stripe.
type keyLocks struct {
	stripes []sync.RWMutex
}

func newKeyLocks(n int) keyLocks {
	return keyLocks{stripes: make([]sync.RWMutex, positive(n, defaultLockStripes))}
}

func (l keyLocks) of(key string) *sync.RWMutex {
	return &l.stripes[util.Stripe(key, len(l.stripes))]
}
