package kvault

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/kvault/cipher"
	"github.com/unkn0wn-root/kvault/codec"
	"github.com/unkn0wn-root/kvault/internal/wire"
	pr "github.com/unkn0wn-root/kvault/provider"
)

type store struct {
	provider pr.Provider
	chain    *cipher.Chain
	codec    codec.Codec
	log      Logger
	hooks    Hooks
	now      func() time.Time
	purge    bool

	maxPayload int64 // largest sealed payload one record can frame

	locks keyLocks

	closed atomic.Bool

	// background sweep
	ticker    *time.Ticker
	stopSweep context.CancelFunc
	closeWg   sync.WaitGroup
	closeOnce sync.Once
}

// record is one framed entry as read from the provider.
type record struct {
	entry  Entry
	sealed []byte // post-cipher payload
	raw    []byte // full frame, used to re-validate before purging
}

func newStore(opts Options) (*store, error) {
	if opts.Provider == nil {
		return nil, errors.New("kvault: provider is required")
	}

	s := &store{
		provider: opts.Provider,
		chain:    opts.Cipher,
		purge:    opts.PurgeUnreadable,
		locks:    newKeyLocks(opts.LockStripes),
		now:      opts.Clock,

		maxPayload: wire.MaxPayload,
	}

	// defaults
	s.log = coalesce[Logger](opts.Logger, NopLogger{})
	s.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	s.codec = coalesce[codec.Codec](opts.Codec, codec.JSON{})
	if s.chain == nil {
		s.chain = cipher.Passthrough()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if n := len(s.codec.Name()); n == 0 || n > 255 {
		return nil, fmt.Errorf("kvault: codec name must be 1-255 bytes, got %d", n)
	}

	if opts.SweepInterval > 0 {
		s.startSweeper(opts.SweepInterval)
	}
	return s, nil
}

func (s *store) Put(ctx context.Context, key string, v Value, validSeconds int64) error {
	if validSeconds < 0 {
		validSeconds = NoExpiry
	}
	return s.put(ctx, key, v, validSeconds, false)
}

func (s *store) PutPermanent(ctx context.Context, key string, v Value) error {
	return s.put(ctx, key, v, NoExpiry, true)
}

func (s *store) put(ctx context.Context, key string, v Value, validSeconds int64, permanent bool) error {
	if err := s.check(key); err != nil {
		return err
	}
	if !v.kind.valid() {
		return &SerializationError{Key: key, Kind: v.kind, Err: errors.New("zero Value")}
	}
	payload, err := encodeValue(v, s.codec)
	if err != nil {
		return &SerializationError{Key: key, Kind: v.kind, Err: err}
	}
	sealed, err := s.chain.Encrypt(payload)
	if err != nil {
		return &CipherError{Key: key, Op: "encrypt", Err: err}
	}
	if sealed == nil {
		return &CipherError{Key: key, Op: "encrypt", Err: ErrNoCipherOutput}
	}
	if int64(len(sealed)) > s.maxPayload {
		return &SerializationError{Key: key, Kind: v.kind, Err: fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(sealed), s.maxPayload)}
	}

	e := Entry{
		Key:       key,
		Kind:      v.kind,
		Size:      len(sealed),
		ValidTime: validSeconds,
		Permanent: permanent,
	}
	if v.kind == KindObject {
		e.Codec = s.codec.Name()
	}

	mu := s.locks.of(key)
	mu.Lock()
	defer mu.Unlock()

	// stamped under the key lock so save order matches write order
	e.SaveTime = s.now().UnixMilli()
	if err := s.provider.Write(ctx, key, wire.EncodeRecord(e.meta(), sealed)); err != nil {
		return s.storageErr("write", key, err)
	}
	s.log.Debug("put", Fields{"key": key, "kind": e.Kind.String(), "size": e.Size, "valid": e.ValidTime, "permanent": e.Permanent})
	return nil
}

func (s *store) Get(ctx context.Context, key string) (Value, bool, error) {
	return s.get(ctx, key, KindInvalid)
}

func (s *store) GetInt(ctx context.Context, key string) (int64, bool, error) {
	v, ok, err := s.get(ctx, key, KindInt)
	return v.i, ok, err
}

func (s *store) GetFloat(ctx context.Context, key string) (float64, bool, error) {
	v, ok, err := s.get(ctx, key, KindFloat)
	return v.f, ok, err
}

func (s *store) GetBool(ctx context.Context, key string) (bool, bool, error) {
	v, ok, err := s.get(ctx, key, KindBool)
	return v.b, ok, err
}

func (s *store) GetString(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := s.get(ctx, key, KindString)
	return v.s, ok, err
}

func (s *store) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok, err := s.get(ctx, key, KindBytes)
	return v.raw, ok, err
}

func (s *store) GetObject(ctx context.Context, key string, dst any) (bool, error) {
	v, ok, err := s.get(ctx, key, KindObject)
	if err != nil || !ok {
		return false, err
	}
	if err := s.codec.Unmarshal(v.raw, dst); err != nil {
		return false, &DeserializationError{Key: key, Kind: KindObject, Want: KindObject, Err: err}
	}
	return true, nil
}

// get resolves key to a value. want == KindInvalid accepts any stored kind.
func (s *store) get(ctx context.Context, key string, want Kind) (Value, bool, error) {
	if err := s.check(key); err != nil {
		return Value{}, false, err
	}
	rec, ok, err := s.lookup(ctx, key)
	if err != nil || !ok {
		return Value{}, false, err
	}
	e := rec.entry
	if want != KindInvalid && e.Kind != want {
		return Value{}, false, &DeserializationError{Key: key, Kind: e.Kind, Want: want, Err: ErrKindMismatch}
	}

	payload, err := s.chain.Decrypt(rec.sealed)
	if err == nil && payload == nil {
		err = ErrNoCipherOutput
	}
	if err != nil {
		s.unreadable(ctx, rec, "cipher", err)
		return Value{}, false, &CipherError{Key: key, Op: "decrypt", Err: err}
	}

	if e.Kind == KindObject && e.Codec != s.codec.Name() {
		// a differently configured writer, not corruption: never purged
		return Value{}, false, &DeserializationError{
			Key: key, Kind: e.Kind, Want: want,
			Err: fmt.Errorf("%w: stored %q, store uses %q", ErrCodecMismatch, e.Codec, s.codec.Name()),
		}
	}
	v, err := decodeValue(e.Kind, payload, s.codec)
	if err != nil {
		s.unreadable(ctx, rec, "decode", err)
		return Value{}, false, &DeserializationError{Key: key, Kind: e.Kind, Want: want, Err: err}
	}
	return v, true, nil
}

func (s *store) Stat(ctx context.Context, key string) (Entry, bool, error) {
	if err := s.check(key); err != nil {
		return Entry{}, false, err
	}
	rec, ok, err := s.lookup(ctx, key)
	return rec.entry, ok, err
}

func (s *store) Contains(ctx context.Context, key string) (bool, error) {
	if err := s.check(key); err != nil {
		return false, err
	}
	_, ok, err := s.lookup(ctx, key)
	return ok, err
}

func (s *store) Remove(ctx context.Context, key string) error {
	if err := s.check(key); err != nil {
		return err
	}
	mu := s.locks.of(key)
	mu.Lock()
	defer mu.Unlock()

	if err := s.provider.Delete(ctx, key); err != nil {
		return s.storageErr("delete", key, err)
	}
	return nil
}

// Clear removes every entry one key at a time. It is not atomic as a whole;
// entries written concurrently may survive.
func (s *store) Clear(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	keys, err := s.provider.List(ctx)
	if err != nil {
		return s.storageErr("list", "", err)
	}
	var errs []error
	for _, k := range keys {
		if err := s.Remove(ctx, k); err != nil {
			errs = append(errs, err)
		}
	}
	s.log.Debug("cleared", Fields{"keys": len(keys), "failed": len(errs)})
	return errors.Join(errs...)
}

func (s *store) Keys(ctx context.Context) ([]string, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	keys, err := s.provider.List(ctx)
	if err != nil {
		return nil, s.storageErr("list", "", err)
	}
	live := keys[:0]
	for _, k := range keys {
		_, ok, err := s.lookup(ctx, k)
		var de *DeserializationError
		switch {
		case errors.As(err, &de):
			// stored but unreadable: still occupies the key unless purged
			if !s.purge {
				live = append(live, k)
			}
		case err != nil:
			return nil, err
		case ok:
			live = append(live, k)
		}
	}
	return live, nil
}

func (s *store) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		if s.stopSweep != nil {
			s.stopSweep()
			s.closeWg.Wait()
			s.ticker.Stop()
		}
		err = s.provider.Close(ctx)
	})
	return err
}

// lookup returns the record for key unless it is missing or due. A due
// record is removed before lookup returns.
func (s *store) lookup(ctx context.Context, key string) (record, bool, error) {
	mu := s.locks.of(key)
	mu.RLock()
	rec, ok, err := s.load(ctx, key)
	mu.RUnlock()
	if err != nil {
		var de *DeserializationError
		if errors.As(err, &de) {
			s.unreadable(ctx, rec, "corrupt", de.Err)
		}
		return record{}, false, err
	}
	if !ok {
		return record{}, false, nil
	}
	if !rec.entry.IsDue(s.now()) {
		return rec, true, nil
	}
	if _, err := s.evictIfDue(ctx, key, "read"); err != nil {
		return record{}, false, err
	}
	return record{}, false, nil
}

// load reads and unframes the record for key. Caller holds the key lock.
// A corrupt frame still returns the raw bytes alongside the error.
func (s *store) load(ctx context.Context, key string) (record, bool, error) {
	raw, ok, err := s.provider.Read(ctx, key)
	if err != nil {
		return record{}, false, s.storageErr("read", key, err)
	}
	if !ok {
		return record{}, false, nil
	}
	m, sealed, err := wire.DecodeRecord(raw)
	if err != nil {
		return record{entry: Entry{Key: key}, raw: raw}, false, &DeserializationError{Key: key, Err: err}
	}
	return record{entry: entryFromMeta(key, m, len(sealed)), sealed: sealed, raw: raw}, true, nil
}

// evictIfDue re-reads key under the exclusive lock and deletes it only if it
// is still due, so a concurrent fresh Put is never lost.
func (s *store) evictIfDue(ctx context.Context, key, source string) (bool, error) {
	mu := s.locks.of(key)
	mu.Lock()
	defer mu.Unlock()

	rec, ok, err := s.load(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if !rec.entry.IsDue(s.now()) {
		return false, nil
	}
	if err := s.provider.Delete(ctx, key); err != nil {
		return false, s.storageErr("delete", key, err)
	}
	s.hooks.Expired(key, source)
	s.log.Debug("evicted due entry", Fields{"key": key, "source": source})
	return true, nil
}

// unreadable reports a record that could not be turned back into a value
// and, with PurgeUnreadable, deletes it if it has not been rewritten since.
// Callers must not hold the key lock.
func (s *store) unreadable(ctx context.Context, rec record, reason string, err error) {
	s.hooks.Unreadable(rec.entry.Key, reason)
	s.log.Warn("unreadable record", Fields{"key": rec.entry.Key, "reason": reason, "err": err})
	if s.purge {
		s.purgeIfUnchanged(ctx, rec)
	}
}

func (s *store) purgeIfUnchanged(ctx context.Context, rec record) {
	key := rec.entry.Key
	mu := s.locks.of(key)
	mu.Lock()
	defer mu.Unlock()

	raw, ok, err := s.provider.Read(ctx, key)
	if err != nil || !ok || !bytes.Equal(raw, rec.raw) {
		return
	}
	if err := s.provider.Delete(ctx, key); err != nil {
		s.log.Warn("purge unreadable record failed", Fields{"key": key, "err": err})
		return
	}
	s.log.Debug("purged unreadable record", Fields{"key": key})
}

func (s *store) storageErr(op, key string, err error) error {
	s.hooks.StorageFailure(op, key, err)
	s.log.Error("storage "+op+" failed", Fields{"key": key, "err": err})
	return &StorageError{Op: op, Key: key, Err: err}
}

func (s *store) check(key string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if key == "" {
		return ErrInvalidKey
	}
	return nil
}
