// Package fsys stores one file per key on a go-billy filesystem.
//
// Records live under <root>/records as <base64url(key)>.kv. Writes go to a
// temp file in the same directory and are renamed into place, so readers in
// this or another process see either the old or the new record.
package fsys

import (
	"context"
	"errors"
	"io"
	"os"
	"path"
	"sync"
	"sync/atomic"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/unkn0wn-root/kvault/internal/util"
	pr "github.com/unkn0wn-root/kvault/provider"
)

const (
	recordsDir = "records"
	tmpPrefix  = ".tmp-"
	dirPerm    = 0o755
)

// Provider is a filesystem-backed provider.Provider.
type Provider struct {
	bfs billy.Filesystem

	// memfs is not safe for concurrent use; osfs relies on the OS instead.
	serialize bool
	mu        sync.RWMutex

	closed atomic.Bool
}

var _ pr.Provider = (*Provider)(nil)

// NewLocal opens (creating if needed) a provider rooted at dir on the local disk.
func NewLocal(dir string) (*Provider, error) {
	if dir == "" {
		return nil, errors.New("fsys: root directory is required")
	}
	return New(osfs.New(dir), false)
}

// NewMemory returns a provider on an empty in-memory filesystem.
func NewMemory() *Provider {
	p, err := New(memfs.New(), true)
	if err != nil {
		// memfs MkdirAll does not fail on an empty filesystem
		panic(err)
	}
	return p
}

// New wraps an existing billy filesystem. Set serialize for filesystems that
// are not safe for concurrent use.
func New(bfs billy.Filesystem, serialize bool) (*Provider, error) {
	if err := bfs.MkdirAll(recordsDir, dirPerm); err != nil {
		return nil, err
	}
	return &Provider{bfs: bfs, serialize: serialize}, nil
}

// Unwrap returns the underlying billy.Filesystem.
func (p *Provider) Unwrap() billy.Filesystem { return p.bfs }

func (p *Provider) lock() func() {
	if !p.serialize {
		return func() {}
	}
	p.mu.Lock()
	return p.mu.Unlock
}

func (p *Provider) rlock() func() {
	if !p.serialize {
		return func() {}
	}
	p.mu.RLock()
	return p.mu.RUnlock
}

func recordPath(key string) (string, error) {
	name, err := util.FileName(key)
	if err != nil {
		return "", err
	}
	return path.Join(recordsDir, name), nil
}

func (p *Provider) Read(ctx context.Context, key string) ([]byte, bool, error) {
	if err := p.check(ctx); err != nil {
		return nil, false, err
	}
	rp, err := recordPath(key)
	if err != nil {
		return nil, false, err
	}
	defer p.rlock()()

	f, err := p.bfs.Open(rp)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (p *Provider) Write(ctx context.Context, key string, value []byte) error {
	if err := p.check(ctx); err != nil {
		return err
	}
	rp, err := recordPath(key)
	if err != nil {
		return err
	}
	defer p.lock()()

	f, err := p.bfs.TempFile(recordsDir, tmpPrefix)
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(value); err != nil {
		_ = f.Close()
		_ = p.bfs.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = p.bfs.Remove(tmp)
		return err
	}
	if err := p.bfs.Rename(tmp, rp); err != nil {
		_ = p.bfs.Remove(tmp)
		return err
	}
	return nil
}

func (p *Provider) Delete(ctx context.Context, key string) error {
	if err := p.check(ctx); err != nil {
		return err
	}
	rp, err := recordPath(key)
	if err != nil {
		return err
	}
	defer p.lock()()

	if err := p.bfs.Remove(rp); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (p *Provider) List(ctx context.Context) ([]string, error) {
	if err := p.check(ctx); err != nil {
		return nil, err
	}
	defer p.rlock()()

	infos, err := p.bfs.ReadDir(recordsDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(infos))
	for _, fi := range infos {
		if fi.IsDir() {
			continue
		}
		if k, ok := util.KeyFromFileName(fi.Name()); ok {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Close marks the provider closed. Files stay on disk.
func (p *Provider) Close(context.Context) error {
	p.closed.Store(true)
	return nil
}

func (p *Provider) check(ctx context.Context) error {
	if p.closed.Load() {
		return pr.ErrClosed
	}
	return ctx.Err()
}
