package cipher

import (
	"errors"
	"strings"
)

// Stage is one reversible transform. The set of stages is closed:
// *Encoding and *AEAD are the only implementations.
type Stage interface {
	Name() string
	seal([]byte) ([]byte, error)
	open([]byte) ([]byte, error)
	keyed() bool
}

// Chain applies stages in list order on Encrypt and in reverse on Decrypt.
// A Chain is immutable; the zero value and a chain with no stages pass
// bytes through unchanged.
type Chain struct {
	stages []Stage
}

// New builds a chain from stages, innermost first.
func New(stages ...Stage) (*Chain, error) {
	out := make([]Stage, 0, len(stages))
	for _, s := range stages {
		if s == nil {
			return nil, errors.New("cipher: nil stage")
		}
		out = append(out, s)
	}
	return &Chain{stages: out}, nil
}

// Wrap builds the two-stage chain where enc is the outer layer around crypt.
// Either argument may be nil.
func Wrap(enc *Encoding, crypt *AEAD) *Chain {
	c := &Chain{}
	if crypt != nil {
		c.stages = append(c.stages, crypt)
	}
	if enc != nil {
		c.stages = append(c.stages, enc)
	}
	return c
}

// Passthrough returns a chain with no stages.
func Passthrough() *Chain { return &Chain{} }

// Encrypt runs every stage in order. Nil input yields nil output.
// If a stage produces no output the remaining stages are skipped and the
// chain yields nil.
func (c *Chain) Encrypt(data []byte) ([]byte, error) {
	if data == nil {
		return nil, nil
	}
	if c == nil {
		return data, nil
	}
	out := data
	for _, s := range c.stages {
		b, err := s.seal(out)
		if err != nil {
			return nil, &Error{Op: "encrypt", Stage: s.Name(), Err: err}
		}
		if b == nil {
			return nil, nil
		}
		out = b
	}
	return out, nil
}

// Decrypt runs every stage in reverse order. Nil input yields nil output.
// Any stage failure fails the whole chain.
func (c *Chain) Decrypt(data []byte) ([]byte, error) {
	if data == nil {
		return nil, nil
	}
	if c == nil {
		return data, nil
	}
	out := data
	for i := len(c.stages) - 1; i >= 0; i-- {
		s := c.stages[i]
		b, err := s.open(out)
		if err != nil {
			return nil, &Error{Op: "decrypt", Stage: s.Name(), Err: err}
		}
		if b == nil {
			return nil, nil
		}
		out = b
	}
	return out, nil
}

// Len returns the number of stages.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.stages)
}

// Keyed reports whether any stage needs a secret.
func (c *Chain) Keyed() bool {
	if c == nil {
		return false
	}
	for _, s := range c.stages {
		if s.keyed() {
			return true
		}
	}
	return false
}

// String lists stages outermost first, e.g. "base64(chacha20poly1305)".
func (c *Chain) String() string {
	if c.Len() == 0 {
		return "passthrough"
	}
	var b strings.Builder
	for i := len(c.stages) - 1; i >= 0; i-- {
		b.WriteString(c.stages[i].Name())
		if i > 0 {
			b.WriteByte('(')
		}
	}
	b.WriteString(strings.Repeat(")", len(c.stages)-1))
	return b.String()
}
