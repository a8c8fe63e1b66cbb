package kvault

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/unkn0wn-root/kvault/codec"
)

// Kind tags how a payload was serialized.
type Kind byte

const (
	KindInvalid Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString
	KindBytes
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", byte(k))
	}
}

func (k Kind) valid() bool { return k >= KindInt && k <= KindObject }

// Value is a closed union over the supported kinds. Build one with Int,
// Float, Bool, String, Bytes or Object; the zero Value is invalid.
type Value struct {
	kind Kind
	i    int64
	f    float64
	b    bool
	s    string
	raw  []byte // KindBytes payload, or encoded object read back from a store

	obj   any         // object to encode on Put
	codec codec.Codec // codec raw was written with (objects read back)
}

func Int(v int64) Value     { return Value{kind: KindInt, i: v} }
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }
func Bool(v bool) Value     { return Value{kind: KindBool, b: v} }
func String(v string) Value { return Value{kind: KindString, s: v} }

// Bytes stores a copy of v, so later changes to v do not leak into the value.
func Bytes(v []byte) Value {
	cp := make([]byte, len(v))
	copy(cp, v)
	return Value{kind: KindBytes, raw: cp}
}

// Object stores a structured value serialized by the store's codec.
func Object(v any) Value { return Value{kind: KindObject, obj: v} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) AsInt() (int64, bool)     { return v.i, v.kind == KindInt }
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }
func (v Value) AsBool() (bool, bool)     { return v.b, v.kind == KindBool }
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsBytes returns a copy of a bytes value.
func (v Value) AsBytes() ([]byte, bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	cp := make([]byte, len(v.raw))
	copy(cp, v.raw)
	return cp, true
}

// Decode unmarshals an object value into dst (a non-nil pointer). Values built
// with Object are round-tripped through JSON when they have no codec yet.
func (v Value) Decode(dst any) error {
	if v.kind != KindObject {
		return fmt.Errorf("kvault: decode %s value: %w", v.kind, ErrKindMismatch)
	}
	if v.codec != nil {
		return v.codec.Unmarshal(v.raw, dst)
	}
	c := codec.JSON{}
	b, err := c.Marshal(v.obj)
	if err != nil {
		return err
	}
	return c.Unmarshal(b, dst)
}

// encodeValue serializes v by its tag. The result is never nil.
func encodeValue(v Value, c codec.Codec) ([]byte, error) {
	switch v.kind {
	case KindInt:
		out := make([]byte, 8)
		binary.BigEndian.PutUint64(out, uint64(v.i))
		return out, nil
	case KindFloat:
		out := make([]byte, 8)
		binary.BigEndian.PutUint64(out, math.Float64bits(v.f))
		return out, nil
	case KindBool:
		if v.b {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case KindString:
		return append([]byte{}, v.s...), nil
	case KindBytes:
		return append([]byte{}, v.raw...), nil
	case KindObject:
		// a value read back with the same codec is re-stored as is
		if v.obj == nil && v.codec != nil && v.codec.Name() == c.Name() {
			return append([]byte{}, v.raw...), nil
		}
		if v.obj == nil && v.codec != nil {
			return nil, fmt.Errorf("object was written with codec %q, store uses %q", v.codec.Name(), c.Name())
		}
		b, err := c.Marshal(v.obj)
		if err != nil {
			return nil, err
		}
		if b == nil {
			b = []byte{}
		}
		return b, nil
	}
	return nil, fmt.Errorf("invalid value kind %s", v.kind)
}

// decodeValue is the inverse of encodeValue. Payloads that do not fit their
// tag are rejected.
func decodeValue(kind Kind, payload []byte, c codec.Codec) (Value, error) {
	switch kind {
	case KindInt:
		if len(payload) != 8 {
			return Value{}, fmt.Errorf("int payload is %d bytes, want 8", len(payload))
		}
		return Int(int64(binary.BigEndian.Uint64(payload))), nil
	case KindFloat:
		if len(payload) != 8 {
			return Value{}, fmt.Errorf("float payload is %d bytes, want 8", len(payload))
		}
		return Float(math.Float64frombits(binary.BigEndian.Uint64(payload))), nil
	case KindBool:
		if len(payload) != 1 || payload[0] > 1 {
			return Value{}, fmt.Errorf("malformed bool payload %x", payload)
		}
		return Bool(payload[0] == 1), nil
	case KindString:
		return String(string(payload)), nil
	case KindBytes:
		return Bytes(payload), nil
	case KindObject:
		return Value{kind: KindObject, raw: append([]byte{}, payload...), codec: c}, nil
	}
	return Value{}, fmt.Errorf("unknown kind tag %d", byte(kind))
}
