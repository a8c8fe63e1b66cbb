package cipher

import "golang.org/x/crypto/argon2"

// argon2id parameters (RFC 9106 second recommended option).
const (
	kdfTime    = 3
	kdfMemory  = 64 * 1024
	kdfThreads = 4
)

// DeriveKey stretches a passphrase into a KeySize key with argon2id.
// The same passphrase and salt always yield the same key.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, kdfTime, kdfMemory, kdfThreads, KeySize)
}
