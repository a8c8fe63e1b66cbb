package util

import (
	"encoding/base64"
	"errors"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// RecordExt is the filename suffix of persisted records.
const RecordExt = ".kv"

// MaxNameLen is the longest filename most filesystems accept.
const MaxNameLen = 255

var ErrNameTooLong = errors.New("kvault: key too long for a filename")

var nameEnc = base64.RawURLEncoding

// FileName maps a key to a reversible, filesystem-safe file name.
func FileName(key string) (string, error) {
	name := nameEnc.EncodeToString([]byte(key)) + RecordExt
	if len(name) > MaxNameLen {
		return "", ErrNameTooLong
	}
	return name, nil
}

// KeyFromFileName reverses FileName. ok is false for names FileName never
// produces (temp files, foreign files).
func KeyFromFileName(name string) (string, bool) {
	stem, found := strings.CutSuffix(name, RecordExt)
	if !found || stem == "" {
		return "", false
	}
	b, err := nameEnc.DecodeString(stem)
	if err != nil {
		return "", false
	}
	return string(b), true
}

// Stripe returns the lock stripe in [0, n) for key. n must be > 0.
func Stripe(key string, n int) int {
	return int(xxhash.Sum64String(key) % uint64(n))
}

// NormalizeRoot cleans a storage root and uses forward slashes, so equivalent
// spellings of one directory compare equal.
func NormalizeRoot(root string) string {
	root = strings.TrimSpace(root)
	if root == "" {
		return ""
	}
	return filepath.ToSlash(filepath.Clean(root))
}
