// Package provider defines the storage abstraction used by kvault.
//
// A Provider stores named byte blobs under one root (a directory, a database
// file, a memory arena). The root is fixed when the provider is constructed;
// kvault never passes it per call.
//
// Implementations MUST be byte-for-byte transparent: Read must return exactly the
// same []byte that was previously passed to Write for a key (no prepended/appended
// metadata, no re-encoding, no mutation). If a store performs internal transforms
// (e.g., compression), they MUST be fully reversed.
package provider

import (
	"context"
	"errors"
)

// ErrClosed is returned by providers used after Close.
var ErrClosed = errors.New("provider: closed")

// Provider is a minimal blob store.
// Must be safe for concurrent use. Failures are reported, never retried:
// the caller decides whether to try again.
type Provider interface {
	// Read returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO error happens, return (nil, false, err).
	Read(ctx context.Context, key string) ([]byte, bool, error)

	// Write stores value under key, replacing any previous value. Readers
	// must observe either the old or the new value, never a partial one.
	Write(ctx context.Context, key string, value []byte) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns every stored key in unspecified order.
	List(ctx context.Context) ([]string, error)

	// Close releases resources.
	Close(ctx context.Context) error
}
