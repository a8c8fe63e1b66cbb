package cipher

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed reports input that a stage cannot decode or open.
	ErrMalformed = errors.New("cipher: malformed input")
	// ErrAuth reports an AEAD authentication failure (wrong key or tampered bytes).
	// It also matches ErrMalformed.
	ErrAuth = fmt.Errorf("%w: message authentication failed", ErrMalformed)
	// ErrKeySize reports a key of the wrong length for the chosen AEAD.
	ErrKeySize = errors.New("cipher: invalid key size")
)

// Error describes a failure in one stage of a chain.
type Error struct {
	Op    string // "encrypt" or "decrypt"
	Stage string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("cipher: %s %s: %v", e.Op, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
