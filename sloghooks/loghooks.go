// Package sloghooks implements kvault.Hooks by logging to log/slog.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/kvault"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	ExpiredEvery uint64
	SweepEvery   uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	expiredCtr atomic.Uint64
	sweepCtr   atomic.Uint64
}

var _ kvault.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Expired(key, source string) {
	if h.l == nil || !sample(h.opts.ExpiredEvery, &h.expiredCtr) {
		return
	}
	h.l.Debug("kvault.expired",
		"key", h.redact(key),
		"source", source)
}

func (h *Hooks) Unreadable(key, reason string) {
	if h.l == nil {
		return
	}
	h.l.Warn("kvault.unreadable",
		"key", h.redact(key),
		"reason", reason)
}

func (h *Hooks) StorageFailure(op, key string, err error) {
	if h.l == nil {
		return
	}
	args := []any{"op", op, "err", err}
	if key != "" {
		args = append(args, "key", h.redact(key))
	}
	h.l.Error("kvault.storage_failure", args...)
}

func (h *Hooks) SweepCompleted(scanned, removed int) {
	if h.l == nil || !sample(h.opts.SweepEvery, &h.sweepCtr) {
		return
	}
	h.l.Info("kvault.sweep_completed",
		"scanned", scanned,
		"removed", removed)
}
