package kvault

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/unkn0wn-root/kvault/provider/fsys"
)

func memFactory(builds *atomic.Int32) Factory {
	return func(_ context.Context, _ Identifier) (Options, error) {
		if builds != nil {
			builds.Add(1)
		}
		return Options{Provider: newMemProvider()}, nil
	}
}

func TestIdentifierNormalization(t *testing.T) {
	a := NewIdentifier("/var/cache//app/", " main ")
	b := NewIdentifier("/var/cache/app/./", "main")
	if a != b {
		t.Fatalf("identifiers differ: %v vs %v", a, b)
	}
	if a.Location() != "/var/cache/app/main" {
		t.Fatalf("Location = %q", a.Location())
	}
}

func TestResolveSameInstance(t *testing.T) {
	ctx := context.Background()
	var builds atomic.Int32
	r := NewRegistry(memFactory(&builds))
	defer r.Close(ctx)

	a1, err := r.Resolve(ctx, NewIdentifier("/tmp/x", "A"))
	if err != nil {
		t.Fatalf("Resolve A: %v", err)
	}
	a2, _ := r.Resolve(ctx, NewIdentifier("/tmp/x/", "A"))
	b, _ := r.Resolve(ctx, NewIdentifier("/tmp/x", "B"))
	if a1 != a2 {
		t.Fatalf("same identifier resolved to two stores")
	}
	if a1 == b {
		t.Fatalf("distinct identifiers share a store")
	}
	if builds.Load() != 2 || r.Len() != 2 {
		t.Fatalf("builds=%d len=%d", builds.Load(), r.Len())
	}

	_ = a1.Put(ctx, "k", Int(1), -1)
	if ok, _ := b.Contains(ctx, "k"); ok {
		t.Fatalf("entry leaked across identifiers")
	}
}

func TestResolveConcurrentBuildsOnce(t *testing.T) {
	ctx := context.Background()
	var builds atomic.Int32
	r := NewRegistry(memFactory(&builds))
	defer r.Close(ctx)

	id := NewIdentifier("/tmp/x", "A")
	const n = 32
	got := make([]Store, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := r.Resolve(ctx, id)
			if err != nil {
				t.Errorf("Resolve: %v", err)
			}
			got[i] = s
		}(i)
	}
	wg.Wait()
	for i := 1; i < n; i++ {
		if got[i] != got[0] {
			t.Fatalf("resolve %d returned a different store", i)
		}
	}
	if builds.Load() != 1 {
		t.Fatalf("builds = %d", builds.Load())
	}
}

func TestResolveHashInNamesStaysDistinct(t *testing.T) {
	ctx := context.Background()
	var builds atomic.Int32
	gate := make(chan struct{})
	entered := make(chan struct{}, 2)
	r := NewRegistry(func(_ context.Context, _ Identifier) (Options, error) {
		builds.Add(1)
		entered <- struct{}{}
		<-gate
		return Options{Provider: newMemProvider()}, nil
	})
	defer r.Close(ctx)

	a := NewIdentifier("/data#x", "y")
	b := NewIdentifier("/data", "x#y")
	if a.String() != b.String() || a.Location() == b.Location() {
		t.Fatalf("fixture no longer exercises colliding display names")
	}

	var sa, sb Store
	var errA, errB error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); sa, errA = r.Resolve(ctx, a) }()
	<-entered // a's build holds the gate
	go func() { defer wg.Done(); sb, errB = r.Resolve(ctx, b) }()
	select {
	case <-entered: // b builds its own store
	case <-time.After(time.Second):
	}
	close(gate)
	wg.Wait()

	if errA != nil || errB != nil {
		t.Fatalf("Resolve: a=%v b=%v", errA, errB)
	}
	if sa == sb || builds.Load() != 2 {
		t.Fatalf("distinct identifiers share a store (builds=%d)", builds.Load())
	}
}

func TestResolveLocationCollision(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(memFactory(nil))
	defer r.Close(ctx)

	if _, err := r.Resolve(ctx, NewIdentifier("/a/b", "c")); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	_, err := r.Resolve(ctx, NewIdentifier("/a", "b/c"))
	if !errors.Is(err, ErrLocationInUse) {
		t.Fatalf("colliding Resolve: %v", err)
	}
}

func TestResolveInvalidIdentifier(t *testing.T) {
	r := NewRegistry(memFactory(nil))
	if _, err := r.Resolve(context.Background(), NewIdentifier("", "x")); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("Resolve empty root: %v", err)
	}
	if _, err := r.Resolve(context.Background(), NewIdentifier("/r", "  ")); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("Resolve blank name: %v", err)
	}
}

func TestResolveFactoryError(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("no disk")
	fail := true
	r := NewRegistry(func(ctx context.Context, id Identifier) (Options, error) {
		if fail {
			return Options{}, boom
		}
		return Options{Provider: newMemProvider()}, nil
	})
	defer r.Close(ctx)

	id := NewIdentifier("/r", "x")
	if _, err := r.Resolve(ctx, id); !errors.Is(err, boom) {
		t.Fatalf("Resolve: %v", err)
	}
	if r.Len() != 0 {
		t.Fatalf("failed build was registered")
	}
	// the location reservation was released
	fail = false
	if _, err := r.Resolve(ctx, id); err != nil {
		t.Fatalf("Resolve after recovery: %v", err)
	}
}

func TestEvictAndClose(t *testing.T) {
	ctx := context.Background()
	var builds atomic.Int32
	r := NewRegistry(memFactory(&builds))

	id := NewIdentifier("/r", "x")
	s1, _ := r.Resolve(ctx, id)
	if got, ok := r.Lookup(id); !ok || got != s1 {
		t.Fatalf("Lookup after Resolve: ok=%v", ok)
	}
	if err := r.Evict(ctx, id); err != nil {
		t.Fatalf("Evict: %v", err)
	}
	if _, ok := r.Lookup(id); ok {
		t.Fatalf("Lookup after Evict found a store")
	}
	if err := s1.Put(ctx, "k", Int(1), -1); !errors.Is(err, ErrClosed) {
		t.Fatalf("evicted store still open: %v", err)
	}
	s2, _ := r.Resolve(ctx, id)
	if s2 == s1 || builds.Load() != 2 {
		t.Fatalf("Resolve after Evict reused the closed store")
	}

	if err := r.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := r.Resolve(ctx, id); !errors.Is(err, ErrClosed) {
		t.Fatalf("Resolve after Close: %v", err)
	}
	if r.Len() != 0 {
		t.Fatalf("Len after Close = %d", r.Len())
	}
	if err := r.Close(ctx); err != nil {
		t.Fatalf("Close twice: %v", err)
	}
}

func TestRegistryOnDisk(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	factory := func(_ context.Context, id Identifier) (Options, error) {
		p, err := fsys.NewLocal(id.Location())
		if err != nil {
			return Options{}, err
		}
		return Options{Provider: p}, nil
	}

	r := NewRegistry(factory)
	s, err := r.Resolve(ctx, NewIdentifier(root, "users"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	_ = s.Put(ctx, "k", String("v"), -1)
	_ = r.Close(ctx)

	r2 := NewRegistry(factory)
	defer r2.Close(ctx)
	s2, err := r2.Resolve(ctx, NewIdentifier(root, "users"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if v, ok, err := s2.GetString(ctx, "k"); err != nil || !ok || v != "v" {
		t.Fatalf("GetString: v=%q ok=%v err=%v", v, ok, err)
	}
	other, _ := r2.Resolve(ctx, NewIdentifier(root, "orders"))
	if ok, _ := other.Contains(ctx, "k"); ok {
		t.Fatalf("sibling store sees the entry")
	}
}
