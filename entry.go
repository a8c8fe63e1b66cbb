package kvault

import (
	"math"
	"time"

	"github.com/unkn0wn-root/kvault/internal/wire"
)

// NoExpiry is the ValidTime of entries stored without a validity window.
const NoExpiry int64 = -1

// Entry is the metadata persisted in front of every payload.
type Entry struct {
	Key       string
	Kind      Kind
	Codec     string // object codec name; empty for primitive kinds
	Size      int    // bytes of the post-cipher payload
	SaveTime  int64  // unix millis
	ValidTime int64  // seconds after SaveTime; negative => never expires
	Permanent bool
}

// IsDue reports whether the validity window has elapsed at now.
// Permanent entries and entries without a window are never due; a zero
// window is due immediately.
func (e Entry) IsDue(now time.Time) bool {
	due, ok := e.dueMillis()
	return ok && now.UnixMilli() >= due
}

// DueAt returns the instant the entry becomes due; ok is false when it never does.
func (e Entry) DueAt() (t time.Time, ok bool) {
	due, ok := e.dueMillis()
	if !ok {
		return time.Time{}, false
	}
	return time.UnixMilli(due), true
}

// dueMillis is SaveTime + ValidTime seconds. A window that would overflow
// int64 millis lies beyond any representable clock and never comes due.
func (e Entry) dueMillis() (int64, bool) {
	if e.Permanent || e.ValidTime < 0 {
		return 0, false
	}
	if e.ValidTime > (math.MaxInt64-max(e.SaveTime, 0))/1000 {
		return 0, false
	}
	return e.SaveTime + e.ValidTime*1000, true
}

// Saved returns SaveTime as a time.Time.
func (e Entry) Saved() time.Time { return time.UnixMilli(e.SaveTime) }

func (e Entry) meta() wire.Meta {
	return wire.Meta{
		Kind:      byte(e.Kind),
		Permanent: e.Permanent,
		SaveTime:  e.SaveTime,
		ValidTime: e.ValidTime,
		Codec:     e.Codec,
	}
}

func entryFromMeta(key string, m wire.Meta, size int) Entry {
	return Entry{
		Key:       key,
		Kind:      Kind(m.Kind),
		Codec:     m.Codec,
		Size:      size,
		SaveTime:  m.SaveTime,
		ValidTime: m.ValidTime,
		Permanent: m.Permanent,
	}
}
