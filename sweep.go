package kvault

import (
	"context"
	"errors"
	"time"
)

func (s *store) startSweeper(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	s.ticker = time.NewTicker(interval)
	s.stopSweep = cancel
	s.closeWg.Add(1)
	go s.sweepLoop(ctx)
}

func (s *store) sweepLoop(ctx context.Context) {
	defer s.closeWg.Done()
	for {
		select {
		case <-s.ticker.C:
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.log.Warn("background sweep failed", Fields{"err": err})
			}
		case <-ctx.Done():
			return
		}
	}
}

// Sweep lists keys without holding any lock, then evicts due entries one key
// at a time through the same path reads use.
func (s *store) Sweep(ctx context.Context) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	start := s.now()
	keys, err := s.provider.List(ctx)
	if err != nil {
		return 0, s.storageErr("list", "", err)
	}

	removed := 0
	var errs []error
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		ok, err := s.evictIfDue(ctx, k, "sweep")
		if err != nil {
			var de *DeserializationError
			if errors.As(err, &de) {
				// left in place; Get reports it to the caller
				continue
			}
			errs = append(errs, err)
			continue
		}
		if ok {
			removed++
		}
	}

	s.hooks.SweepCompleted(len(keys), removed)
	s.log.Debug("sweep finished", Fields{"scanned": len(keys), "removed": removed, "took": s.now().Sub(start)})
	return removed, errors.Join(errs...)
}
