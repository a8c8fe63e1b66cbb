package cipher

import (
	"encoding/base32"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// textCodec is satisfied by *base64.Encoding and *base32.Encoding.
type textCodec interface {
	EncodedLen(n int) int
	Encode(dst, src []byte)
	DecodedLen(n int) int
	Decode(dst, src []byte) (int, error)
}

type hexCodec struct{}

func (hexCodec) EncodedLen(n int) int                { return hex.EncodedLen(n) }
func (hexCodec) Encode(dst, src []byte)              { hex.Encode(dst, src) }
func (hexCodec) DecodedLen(n int) int                { return hex.DecodedLen(n) }
func (hexCodec) Decode(dst, src []byte) (int, error) { return hex.Decode(dst, src) }

// Encoding is a keyless, reversible stage.
// Its output is safe for the target text representation.
type Encoding struct {
	name string
	tc   textCodec
}

var _ Stage = (*Encoding)(nil)

// Base64 encodes with the standard padded alphabet.
func Base64() *Encoding { return &Encoding{name: "base64", tc: base64.StdEncoding} }

// Base64URL encodes with the URL and filename safe alphabet, unpadded.
func Base64URL() *Encoding { return &Encoding{name: "base64url", tc: base64.RawURLEncoding} }

// Base32 encodes with the standard padded alphabet.
func Base32() *Encoding { return &Encoding{name: "base32", tc: base32.StdEncoding} }

// Hex encodes as lowercase hexadecimal.
func Hex() *Encoding { return &Encoding{name: "hex", tc: hexCodec{}} }

// Name returns the encoding name, e.g. "base64".
func (e *Encoding) Name() string { return e.name }

func (e *Encoding) seal(b []byte) ([]byte, error) {
	out := make([]byte, e.tc.EncodedLen(len(b)))
	e.tc.Encode(out, b)
	return out, nil
}

func (e *Encoding) open(b []byte) ([]byte, error) {
	out := make([]byte, e.tc.DecodedLen(len(b)))
	n, err := e.tc.Decode(out, b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return out[:n], nil
}

func (*Encoding) keyed() bool { return false }
