package cipher

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

var testKey = bytes.Repeat([]byte{7}, KeySize)

func mustAEAD(t *testing.T, ctor func([]byte) (*AEAD, error)) *AEAD {
	t.Helper()
	a, err := ctor(testKey)
	require.NoError(t, err)
	return a
}

func allChains(t *testing.T) map[string]*Chain {
	t.Helper()
	gcm := mustAEAD(t, AESGCM)
	cc := mustAEAD(t, ChaCha20Poly1305)
	xc := mustAEAD(t, XChaCha20Poly1305)

	multi, err := New(cc, Hex(), Base64URL())
	require.NoError(t, err)

	return map[string]*Chain{
		"passthrough":   Passthrough(),
		"zero":          {},
		"base64":        Wrap(Base64(), nil),
		"base64url":     Wrap(Base64URL(), nil),
		"base32":        Wrap(Base32(), nil),
		"hex":           Wrap(Hex(), nil),
		"aes-gcm":       Wrap(nil, gcm),
		"chacha":        Wrap(nil, cc),
		"xchacha":       Wrap(nil, xc),
		"base64+gcm":    Wrap(Base64(), gcm),
		"hex+xchacha":   Wrap(Hex(), xc),
		"base32+chacha": Wrap(Base32(), cc),
		"multi":         multi,
	}
}

func TestChainRoundTrip(t *testing.T) {
	inputs := [][]byte{
		{},
		[]byte("x"),
		[]byte(`{"name":"persisted-test"}`),
		bytes.Repeat([]byte{0, 0xFF, 0x10}, 1000),
	}
	for name, c := range allChains(t) {
		for _, in := range inputs {
			enc, err := c.Encrypt(in)
			require.NoError(t, err, name)
			require.NotNil(t, enc, name)

			dec, err := c.Decrypt(enc)
			require.NoError(t, err, name)
			require.NotNil(t, dec, "%s: empty input must stay non-nil", name)
			require.True(t, bytes.Equal(in, dec), "%s: round trip mismatch", name)
		}
	}
}

func TestChainNilPropagates(t *testing.T) {
	for name, c := range allChains(t) {
		enc, err := c.Encrypt(nil)
		require.NoError(t, err, name)
		require.Nil(t, enc, name)

		dec, err := c.Decrypt(nil)
		require.NoError(t, err, name)
		require.Nil(t, dec, name)
	}

	var nilChain *Chain
	out, err := nilChain.Encrypt([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("a"), out)
}

func TestWrapEncodingIsOutermost(t *testing.T) {
	c := Wrap(Base64(), mustAEAD(t, ChaCha20Poly1305))
	require.Equal(t, "base64(chacha20poly1305)", c.String())

	enc, err := c.Encrypt([]byte("secret"))
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(string(enc))
	require.NoError(t, err, "persisted bytes must be valid base64")
	require.NotContains(t, string(raw), "secret")
}

func TestDecryptNeverEncodedFails(t *testing.T) {
	c := Wrap(Base64(), mustAEAD(t, AESGCM))

	_, err := c.Decrypt([]byte("this is not base64!"))
	require.Error(t, err)
	require.ErrorIs(t, err, ErrMalformed)

	var ce *Error
	require.True(t, errors.As(err, &ce))
	require.Equal(t, "decrypt", ce.Op)
	require.Equal(t, "base64", ce.Stage)

	// valid base64 whose content was never sealed
	_, err = c.Decrypt([]byte(base64.StdEncoding.EncodeToString(bytes.Repeat([]byte("a"), 64))))
	require.ErrorIs(t, err, ErrAuth)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestDecryptWrongKeyFails(t *testing.T) {
	other, err := ChaCha20Poly1305(bytes.Repeat([]byte{9}, KeySize))
	require.NoError(t, err)

	enc, err := Wrap(Hex(), mustAEAD(t, ChaCha20Poly1305)).Encrypt([]byte("v"))
	require.NoError(t, err)

	_, err = Wrap(Hex(), other).Decrypt(enc)
	require.ErrorIs(t, err, ErrAuth)
}

func TestDecryptTruncatedCiphertext(t *testing.T) {
	c := Wrap(nil, mustAEAD(t, XChaCha20Poly1305))
	_, err := c.Decrypt([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrMalformed)
}

func TestAEADNonceIsFresh(t *testing.T) {
	c := Wrap(nil, mustAEAD(t, AESGCM))
	a, err := c.Encrypt([]byte("same"))
	require.NoError(t, err)
	b, err := c.Encrypt([]byte("same"))
	require.NoError(t, err)
	require.False(t, bytes.Equal(a, b))
}

func TestKeySizeRejected(t *testing.T) {
	for _, ctor := range []func([]byte) (*AEAD, error){AESGCM, ChaCha20Poly1305, XChaCha20Poly1305} {
		_, err := ctor([]byte("short"))
		require.ErrorIs(t, err, ErrKeySize)
	}
}

func TestNewRejectsNilStage(t *testing.T) {
	_, err := New(Base64(), nil)
	require.Error(t, err)
}

func TestChainIntrospection(t *testing.T) {
	require.Equal(t, 0, Passthrough().Len())
	require.False(t, Passthrough().Keyed())
	require.Equal(t, "passthrough", Passthrough().String())

	c := Wrap(Hex(), mustAEAD(t, AESGCM))
	require.Equal(t, 2, c.Len())
	require.True(t, c.Keyed())
	require.False(t, Wrap(Hex(), nil).Keyed())
}

func TestDeriveKeyDeterministic(t *testing.T) {
	k1 := DeriveKey([]byte("hunter2"), []byte("salt-salt-salt-1"))
	k2 := DeriveKey([]byte("hunter2"), []byte("salt-salt-salt-1"))
	k3 := DeriveKey([]byte("hunter2"), []byte("salt-salt-salt-2"))
	require.Len(t, k1, KeySize)
	require.Equal(t, k1, k2)
	require.NotEqual(t, k1, k3)

	_, err := AESGCM(k1)
	require.NoError(t, err)
}
