package cipher

import (
	"crypto/aes"
	stdcipher "crypto/cipher"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the key length accepted by every AEAD constructor (256-bit).
const KeySize = 32

// AEAD is a keyed stage. Sealed output is nonce | ciphertext | tag, with a
// fresh random nonce for every call.
type AEAD struct {
	name string
	aead stdcipher.AEAD
}

var _ Stage = (*AEAD)(nil)

// AESGCM builds an AES-256-GCM stage.
func AESGCM(key []byte) (*AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: aes-gcm wants %d bytes, got %d", ErrKeySize, KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	a, err := stdcipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AEAD{name: "aes-gcm", aead: a}, nil
}

// ChaCha20Poly1305 builds a ChaCha20-Poly1305 stage (12-byte nonce).
func ChaCha20Poly1305(key []byte) (*AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: chacha20poly1305 wants %d bytes, got %d", ErrKeySize, KeySize, len(key))
	}
	a, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	return &AEAD{name: "chacha20poly1305", aead: a}, nil
}

// XChaCha20Poly1305 builds an XChaCha20-Poly1305 stage (24-byte nonce).
func XChaCha20Poly1305(key []byte) (*AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: xchacha20poly1305 wants %d bytes, got %d", ErrKeySize, KeySize, len(key))
	}
	a, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &AEAD{name: "xchacha20poly1305", aead: a}, nil
}

// Name returns the algorithm name, e.g. "aes-gcm".
func (a *AEAD) Name() string { return a.name }

func (a *AEAD) seal(b []byte) ([]byte, error) {
	ns := a.aead.NonceSize()
	out := make([]byte, ns, ns+len(b)+a.aead.Overhead())
	if _, err := rand.Read(out); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	return a.aead.Seal(out, out[:ns], b, nil), nil
}

func (a *AEAD) open(b []byte) ([]byte, error) {
	ns := a.aead.NonceSize()
	if len(b) < ns+a.aead.Overhead() {
		return nil, fmt.Errorf("%w: %d bytes is shorter than nonce and tag", ErrMalformed, len(b))
	}
	pt, err := a.aead.Open(nil, b[:ns], b[ns:], nil)
	if err != nil {
		return nil, ErrAuth
	}
	if pt == nil {
		pt = []byte{}
	}
	return pt, nil
}

func (*AEAD) keyed() bool { return true }
