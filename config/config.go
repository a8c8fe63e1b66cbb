// Package config builds kvault stores from KVAULT_* environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/unkn0wn-root/kvault"
	"github.com/unkn0wn-root/kvault/cipher"
	"github.com/unkn0wn-root/kvault/codec"
	pr "github.com/unkn0wn-root/kvault/provider"
	"github.com/unkn0wn-root/kvault/provider/bigcache"
	"github.com/unkn0wn-root/kvault/provider/fsys"
	"github.com/unkn0wn-root/kvault/provider/ristretto"
	"github.com/unkn0wn-root/kvault/provider/sqlite"
)

const (
	BackendFS       = "fs"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
	BackendBigcache = "bigcache"
)

// Config selects the backend, cipher chain and codec of every store a
// Factory builds.
type Config struct {
	Root    string `env:"KVAULT_ROOT"    envDefault:"kvault-data"`
	Name    string `env:"KVAULT_NAME"    envDefault:"default"`
	Backend string `env:"KVAULT_BACKEND" envDefault:"fs"`

	// Encoding is the outer cipher stage: base64, base64url, base32, hex or none.
	Encoding string `env:"KVAULT_ENCODING" envDefault:"base64"`
	// Cipher is the inner stage: aesgcm, chacha20poly1305, xchacha20poly1305 or none.
	Cipher     string `env:"KVAULT_CIPHER"     envDefault:"none"`
	Passphrase string `env:"KVAULT_PASSPHRASE"`
	Salt       string `env:"KVAULT_SALT"       envDefault:"kvault"`

	Codec          string `env:"KVAULT_CODEC"            envDefault:"json"`
	MaxObjectBytes int    `env:"KVAULT_MAX_OBJECT_BYTES"`

	SweepInterval   time.Duration `env:"KVAULT_SWEEP_INTERVAL"`
	PurgeUnreadable bool          `env:"KVAULT_PURGE_UNREADABLE"`
	// HotCacheBytes > 0 fronts the backend with a ristretto tier of that size.
	HotCacheBytes int64 `env:"KVAULT_HOT_CACHE_BYTES"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	switch c.Backend {
	case BackendFS, BackendSQLite, BackendMemory, BackendBigcache:
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}
	if _, ok := codec.ByName(c.Codec); !ok {
		errs = append(errs, fmt.Errorf("unknown codec %q", c.Codec))
	}
	if _, err := c.Chain(); err != nil {
		errs = append(errs, err)
	}
	if c.SweepInterval < 0 || c.HotCacheBytes < 0 || c.MaxObjectBytes < 0 {
		errs = append(errs, errors.New("sizes and intervals must not be negative"))
	}
	return errors.Join(errs...)
}

// Identifier is the store named by KVAULT_ROOT and KVAULT_NAME.
func (c Config) Identifier() kvault.Identifier {
	return kvault.NewIdentifier(c.Root, c.Name)
}

// Chain builds the configured cipher chain.
func (c Config) Chain() (*cipher.Chain, error) {
	var enc *cipher.Encoding
	switch strings.ToLower(c.Encoding) {
	case "base64":
		enc = cipher.Base64()
	case "base64url":
		enc = cipher.Base64URL()
	case "base32":
		enc = cipher.Base32()
	case "hex":
		enc = cipher.Hex()
	case "none", "":
	default:
		return nil, fmt.Errorf("unknown encoding %q", c.Encoding)
	}

	var crypt *cipher.AEAD
	name := strings.ToLower(c.Cipher)
	if name != "none" && name != "" {
		if c.Passphrase == "" {
			return nil, fmt.Errorf("cipher %q needs KVAULT_PASSPHRASE", c.Cipher)
		}
		key := cipher.DeriveKey([]byte(c.Passphrase), []byte(c.Salt))
		var err error
		switch name {
		case "aesgcm":
			crypt, err = cipher.AESGCM(key)
		case "chacha20poly1305":
			crypt, err = cipher.ChaCha20Poly1305(key)
		case "xchacha20poly1305":
			crypt, err = cipher.XChaCha20Poly1305(key)
		default:
			return nil, fmt.Errorf("unknown cipher %q", c.Cipher)
		}
		if err != nil {
			return nil, err
		}
	}
	return cipher.Wrap(enc, crypt), nil
}

// Factory returns a registry factory. base carries the ambient options
// (Logger, Hooks, Clock); the factory fills in the rest per identifier.
func (c Config) Factory(base kvault.Options) kvault.Factory {
	return func(ctx context.Context, id kvault.Identifier) (kvault.Options, error) {
		chain, err := c.Chain()
		if err != nil {
			return kvault.Options{}, err
		}
		cd, ok := codec.ByName(c.Codec)
		if !ok {
			return kvault.Options{}, fmt.Errorf("unknown codec %q", c.Codec)
		}
		if c.MaxObjectBytes > 0 {
			cd = codec.Limit{Inner: cd, MaxDecode: c.MaxObjectBytes}
		}
		p, err := c.provider(ctx, id)
		if err != nil {
			return kvault.Options{}, err
		}

		opts := base
		opts.Provider = p
		opts.Cipher = chain
		opts.Codec = cd
		opts.SweepInterval = c.SweepInterval
		opts.PurgeUnreadable = c.PurgeUnreadable
		return opts, nil
	}
}

func (c Config) provider(ctx context.Context, id kvault.Identifier) (pr.Provider, error) {
	var (
		p   pr.Provider
		err error
	)
	switch c.Backend {
	case BackendFS:
		p, err = fsys.NewLocal(filepath.FromSlash(id.Location()))
	case BackendSQLite:
		// one database file per store, next to its siblings under Root
		db := filepath.FromSlash(path.Clean(id.Location()) + ".db")
		if err = os.MkdirAll(filepath.Dir(db), 0o755); err == nil {
			p, err = sqlite.Open(db)
		}
	case BackendMemory:
		p = fsys.NewMemory()
	case BackendBigcache:
		p, err = bigcache.New(ctx, bigcache.Config{})
	default:
		err = fmt.Errorf("unknown backend %q", c.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s backend for %s: %w", c.Backend, id, err)
	}
	if c.HotCacheBytes <= 0 {
		return p, nil
	}
	tier, err := ristretto.New(p, ristretto.Config{
		NumCounters: max(c.HotCacheBytes/100, 1000),
		MaxCost:     c.HotCacheBytes,
		BufferItems: 64,
	})
	if err != nil {
		_ = p.Close(ctx)
		return nil, err
	}
	return tier, nil
}
