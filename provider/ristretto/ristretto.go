// Package ristretto layers a dgraph-io/ristretto memory tier over another
// provider. Reads are served from memory when possible and filled from the
// backing provider on a miss; writes and deletes go to the backing provider
// first and then update the tier.
//
// The tier assumes it is the only writer of the backing root in this process,
// which holds when the provider is owned by a single kvault store.
package ristretto

import (
	"context"
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"

	pr "github.com/unkn0wn-root/kvault/provider"
)

type Provider struct {
	c       *rc.Cache
	backing pr.Provider
	ttl     time.Duration
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	NumCounters int64 // ~10x the number of hot records
	MaxCost     int64 // bytes held in memory
	BufferItems int64 // 64 is the ristretto recommendation
	Metrics     bool
	// TTL bounds how long a record may be served from memory; 0 => until evicted.
	TTL time.Duration
}

// New wraps backing with a memory tier. Closing the tier closes backing.
func New(backing pr.Provider, cfg Config) (*Provider, error) {
	if backing == nil {
		return nil, errors.New("ristretto: backing provider is required")
	}
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{c: c, backing: backing, ttl: cfg.TTL}, nil
}

func (p *Provider) Read(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok := p.c.Get(key); ok {
		if b, _ := v.([]byte); b != nil {
			return clone(b), true, nil
		}
		// self-heal: drop unexpected entry shape
		p.c.Del(key)
	}
	b, ok, err := p.backing.Read(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	p.c.SetWithTTL(key, clone(b), cost(b), p.ttl)
	return b, true, nil
}

func (p *Provider) Write(ctx context.Context, key string, value []byte) error {
	if err := p.backing.Write(ctx, key, value); err != nil {
		// the backing record is unknown now; do not serve the old one
		p.c.Del(key)
		p.c.Wait()
		return err
	}
	p.c.Del(key)
	p.c.SetWithTTL(key, clone(value), cost(value), p.ttl)
	p.c.Wait()
	return nil
}

func (p *Provider) Delete(ctx context.Context, key string) error {
	p.c.Del(key)
	err := p.backing.Delete(ctx, key)
	p.c.Wait()
	return err
}

func (p *Provider) List(ctx context.Context) ([]string, error) {
	return p.backing.List(ctx)
}

func (p *Provider) Close(ctx context.Context) error {
	p.c.Wait()
	p.c.Close()
	return p.backing.Close(ctx)
}

// Metrics exposes ristretto counters when Config.Metrics is set
// (not part of provider.Provider).
func (p *Provider) Metrics() *rc.Metrics { return p.c.Metrics }

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func cost(b []byte) int64 {
	if len(b) == 0 {
		return 1
	}
	return int64(len(b))
}
