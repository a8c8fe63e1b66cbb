// Package asynchook moves kvault hook calls off the store's hot path.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    ExpiredEvery: 100, // sample: ~every 100th eviction
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	store, _ := kvault.New(kvault.Options{
//	    Provider: provider,
//	    Hooks:    hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/kvault"
)

// Hooks runs the inner hooks on a bounded worker queue. Events that arrive
// while the queue is full are dropped and counted.
type Hooks struct {
	inner   kvault.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex // guards q against send-after-close
	closed  bool
	dropped atomic.Uint64
}

var _ kvault.Hooks = (*Hooks)(nil)

func New(inner kvault.Hooks, workers, qlen int) *Hooks {
	if inner == nil {
		inner = kvault.NopHooks{}
	}
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Later events are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) Expired(k, src string)    { h.try(func() { h.inner.Expired(k, src) }) }
func (h *Hooks) Unreadable(k, why string) { h.try(func() { h.inner.Unreadable(k, why) }) }
func (h *Hooks) StorageFailure(op, k string, err error) {
	h.try(func() { h.inner.StorageFailure(op, k, err) })
}
func (h *Hooks) SweepCompleted(scanned, removed int) {
	h.try(func() { h.inner.SweepCompleted(scanned, removed) })
}
