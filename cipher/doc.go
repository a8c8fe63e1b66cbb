// Package cipher implements the byte-transform pipeline applied to every
// stored payload.
//
// A Chain is an ordered list of stages. There are two kinds of stage:
//   - Encoding: keyless and reversible (base64, hex, base32).
//   - AEAD: keyed authenticated encryption (AES-GCM, ChaCha20-Poly1305).
//
// Index 0 is the innermost stage: Encrypt runs stages first to last and
// Decrypt runs them last to first. The usual layout is an AEAD wrapped by an
// encoding, so persisted bytes are text-safe while the crypto works on raw
// bytes:
//
//	key := cipher.DeriveKey([]byte(passphrase), salt)
//	aead, _ := cipher.ChaCha20Poly1305(key)
//	chain := cipher.Wrap(cipher.Base64(), aead)
package cipher
