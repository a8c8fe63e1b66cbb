// Package bigcache keeps records in process memory using allegro/bigcache.
// Records do not survive a restart; use it for scratch stores and tests.
package bigcache

import (
	"context"
	"errors"
	"time"

	bc "github.com/allegro/bigcache/v3"

	pr "github.com/unkn0wn-root/kvault/provider"
)

// defaultLifeWindow keeps entries far beyond any kvault validity window;
// expiry is decided by kvault, not by bigcache.
const defaultLifeWindow = 100 * 365 * 24 * time.Hour

// bigcache preallocates MaxEntriesInWindow*MaxEntrySize bytes; its own
// defaults (600k entries) are sized for a server, not a local cache.
const (
	defaultMaxEntries   = 4096
	defaultMaxEntrySize = 512
)

type Provider struct {
	c *bc.BigCache
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	LifeWindow         time.Duration // 0 => effectively forever
	Shards             int           // power of two; 0 => bigcache default (1024)
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(ctx context.Context, cfg Config) (*Provider, error) {
	life := cfg.LifeWindow
	if life <= 0 {
		life = defaultLifeWindow
	}
	conf := bc.DefaultConfig(life)
	conf.CleanWindow = 0 // never evict in the background
	conf.Verbose = false
	conf.MaxEntriesInWindow = defaultMaxEntries
	conf.MaxEntrySize = defaultMaxEntrySize
	if cfg.Shards > 0 {
		conf.Shards = cfg.Shards
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.New(ctx, conf)
	if err != nil {
		return nil, err
	}
	return &Provider{c: c}, nil
}

func (p *Provider) Read(_ context.Context, key string) ([]byte, bool, error) {
	b, err := p.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if b == nil {
		b = []byte{}
	}
	return b, true, nil
}

func (p *Provider) Write(_ context.Context, key string, value []byte) error {
	return p.c.Set(key, value)
}

func (p *Provider) Delete(_ context.Context, key string) error {
	err := p.c.Delete(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil
	}
	return err
}

func (p *Provider) List(_ context.Context) ([]string, error) {
	keys := make([]string, 0, p.c.Len())
	it := p.c.Iterator()
	for it.SetNext() {
		e, err := it.Value()
		if err != nil {
			// entry removed while iterating
			continue
		}
		keys = append(keys, e.Key())
	}
	return keys, nil
}

// Stats exposes bigcache hit/miss counters (not part of provider.Provider).
func (p *Provider) Stats() bc.Stats { return p.c.Stats() }

func (p *Provider) Close(_ context.Context) error {
	return p.c.Close()
}
