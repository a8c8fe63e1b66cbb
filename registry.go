package kvault

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/unkn0wn-root/kvault/internal/util"
)

// Identifier names one logical store: a storage root plus a name under it.
type Identifier struct {
	Root string
	Name string
}

// NewIdentifier normalizes root and trims name so equivalent spellings of
// the same store compare equal.
func NewIdentifier(root, name string) Identifier {
	return Identifier{Root: util.NormalizeRoot(root), Name: strings.TrimSpace(name)}
}

func (id Identifier) String() string { return id.Root + "#" + id.Name }

// key is an unambiguous encoding of id; String is for humans and may collide
// when Root or Name contain '#'.
func (id Identifier) key() string { return strconv.Quote(id.Root) + "/" + strconv.Quote(id.Name) }

// Location is the storage root a factory must build the store's backend on.
func (id Identifier) Location() string { return path.Join(id.Root, id.Name) }

func (id Identifier) valid() bool { return id.Root != "" && id.Name != "" }

// Factory builds the Options for a store the first time its identifier is resolved.
type Factory func(ctx context.Context, id Identifier) (Options, error)

type RegistryOption func(*Registry)

// WithLogger sets the logger used for registry lifecycle events.
func WithLogger(l Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// Registry owns the live stores of a process, one per identifier.
// It replaces package-level instance maps; create one and pass it around.
type Registry struct {
	factory Factory
	log     Logger

	mu        sync.RWMutex
	stores    map[Identifier]Store
	locations map[string]Identifier // reserved before the factory runs
	closed    bool

	sf singleflight.Group
}

func NewRegistry(factory Factory, opts ...RegistryOption) *Registry {
	r := &Registry{
		factory:   factory,
		log:       NopLogger{},
		stores:    make(map[Identifier]Store),
		locations: make(map[string]Identifier),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve returns the live store for id, building it on first use.
// Concurrent first resolves of one id build exactly one store.
func (r *Registry) Resolve(ctx context.Context, id Identifier) (Store, error) {
	if !id.valid() {
		return nil, ErrInvalidID
	}
	r.mu.RLock()
	s, ok := r.stores[id]
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if ok {
		return s, nil
	}

	v, err, _ := r.sf.Do(id.key(), func() (any, error) {
		return r.build(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(Store), nil
}

func (r *Registry) build(ctx context.Context, id Identifier) (Store, error) {
	loc := id.Location()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	if s, ok := r.stores[id]; ok {
		r.mu.Unlock()
		return s, nil
	}
	if owner, ok := r.locations[loc]; ok && owner != id {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s is used by %s", ErrLocationInUse, loc, owner)
	}
	r.locations[loc] = id
	r.mu.Unlock()

	release := func() {
		r.mu.Lock()
		if r.locations[loc] == id {
			delete(r.locations, loc)
		}
		r.mu.Unlock()
	}

	opts, err := r.factory(ctx, id)
	if err != nil {
		release()
		return nil, fmt.Errorf("kvault: build %s: %w", id, err)
	}
	opts.Logger = WithFields(coalesce[Logger](opts.Logger, r.log), Fields{"store": id.String()})
	s, err := newStore(opts)
	if err != nil {
		if opts.Provider != nil {
			_ = opts.Provider.Close(ctx)
		}
		release()
		return nil, fmt.Errorf("kvault: build %s: %w", id, err)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = s.Close(ctx)
		return nil, ErrClosed
	}
	r.stores[id] = s
	r.mu.Unlock()

	r.log.Info("store opened", Fields{"id": id.String(), "location": loc})
	return s, nil
}

// Lookup returns the live store for id without building one.
func (r *Registry) Lookup(id Identifier) (Store, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stores[id]
	return s, ok
}

// Evict closes the store for id and forgets it. A later Resolve builds a new one.
func (r *Registry) Evict(ctx context.Context, id Identifier) error {
	r.mu.Lock()
	s, ok := r.stores[id]
	if ok {
		delete(r.stores, id)
		delete(r.locations, id.Location())
	}
	r.mu.Unlock()
	if !ok {
		return nil
	}
	r.log.Info("store evicted", Fields{"id": id.String()})
	return s.Close(ctx)
}

// Close tears down every store. Resolve fails with ErrClosed afterwards.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	stores := r.stores
	r.stores = make(map[Identifier]Store)
	r.locations = make(map[string]Identifier)
	r.mu.Unlock()

	var errs []error
	for id, s := range stores {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", id, err))
		}
	}
	r.log.Info("registry closed", Fields{"stores": len(stores), "failed": len(errs)})
	return errors.Join(errs...)
}

// Len reports the number of live stores.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.stores)
}
