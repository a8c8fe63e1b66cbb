package kvault

import (
	"errors"
	"fmt"
)

var (
	ErrClosed         = errors.New("kvault: closed")
	ErrInvalidKey     = errors.New("kvault: key must not be empty")
	ErrKindMismatch   = errors.New("kvault: stored kind does not match requested kind")
	ErrCodecMismatch  = errors.New("kvault: object written with a different codec")
	ErrNoCipherOutput = errors.New("kvault: cipher chain produced no output")
	ErrLocationInUse  = errors.New("kvault: storage location already bound to another identifier")
	ErrInvalidID      = errors.New("kvault: identifier needs a root and a name")
	ErrTooLarge       = errors.New("kvault: sealed payload too large for one record")
)

// CipherError reports a failed encrypt on Put or decrypt on Get.
// Nothing is persisted when Put fails this way.
type CipherError struct {
	Key string
	Op  string // "encrypt" or "decrypt"
	Err error
}

func (e *CipherError) Error() string {
	return fmt.Sprintf("kvault: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *CipherError) Unwrap() error { return e.Err }

// DeserializationError reports a record that decrypted cleanly (or failed
// framing) but cannot be turned into the requested value.
type DeserializationError struct {
	Key  string
	Kind Kind // stored kind; KindInvalid when the frame itself is corrupt
	Want Kind // requested kind; KindInvalid for untyped reads
	Err  error
}

func (e *DeserializationError) Error() string {
	if e.Want != KindInvalid && e.Want != e.Kind {
		return fmt.Sprintf("kvault: decode %q: stored %s, requested %s: %v", e.Key, e.Kind, e.Want, e.Err)
	}
	return fmt.Sprintf("kvault: decode %q (%s): %v", e.Key, e.Kind, e.Err)
}

func (e *DeserializationError) Unwrap() error { return e.Err }

// SerializationError reports a value the store could not encode on Put.
type SerializationError struct {
	Key  string
	Kind Kind
	Err  error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("kvault: encode %q (%s): %v", e.Key, e.Kind, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// StorageError wraps a provider failure. The store never retries; callers may.
type StorageError struct {
	Op  string // "read", "write", "delete" or "list"
	Key string // empty for list
	Err error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("kvault: storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("kvault: storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Retryable reports that the operation may succeed if repeated.
func (e *StorageError) Retryable() bool { return true }
