package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
)

const (
	version     byte = 1
	flagPerm    byte = 1 << 0
	maxCodecLen      = 0xFF

	// value kinds are tagged 1..maxKind (kvault.KindInt..kvault.KindObject)
	minKind byte = 1
	maxKind byte = 6
)

// MaxPayload is the largest payload the u32 length field can frame.
const MaxPayload int64 = math.MaxUint32

var (
	ErrCorrupt = errors.New("kvault: corrupt record")
	magic4     = [...]byte{'K', 'V', 'L', 'T'}
)

// Meta is the metadata block persisted in front of every payload.
type Meta struct {
	Kind      byte
	Permanent bool
	SaveTime  int64 // unix millis
	ValidTime int64 // seconds; negative => no expiry
	Codec     string
}

const hdrLen = 4 + 1 + 1 + 1 + 8 + 8 + 1 // through codecLen

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// EncodeRecord frames meta and payload:
//
//	magic(4) | ver(1) | kind(1) | flags(1) | saveTime(i64 be) | validTime(i64 be)
//	codecLen(u8) | codec(codecLen) | plen(u32 be) | payload(plen)
func EncodeRecord(m Meta, payload []byte) []byte {
	if len(m.Codec) > maxCodecLen {
		panic("kvault: codec name too long")
	}
	if int64(len(payload)) > MaxPayload {
		panic("kvault: payload too large to frame")
	}
	var buf bytes.Buffer
	buf.Grow(hdrLen + len(m.Codec) + 4 + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(m.Kind)
	var flags byte
	if m.Permanent {
		flags |= flagPerm
	}
	buf.WriteByte(flags)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], uint64(m.SaveTime))
	buf.Write(u8[:])
	binary.BigEndian.PutUint64(u8[:], uint64(m.ValidTime))
	buf.Write(u8[:])

	buf.WriteByte(byte(len(m.Codec)))
	buf.WriteString(m.Codec)

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

// DecodeRecord parses a framed record. The returned payload aliases b.
// Trailing bytes, unknown kinds or flags and truncated blocks are ErrCorrupt.
func DecodeRecord(b []byte) (Meta, []byte, error) {
	var m Meta
	if len(b) < hdrLen || !hasMagic(b) || b[4] != version {
		return m, nil, ErrCorrupt
	}
	off := 5

	m.Kind = b[off]
	off++
	if m.Kind < minKind || m.Kind > maxKind {
		return Meta{}, nil, ErrCorrupt
	}
	flags := b[off]
	off++
	if flags&^flagPerm != 0 {
		return m, nil, ErrCorrupt
	}
	m.Permanent = flags&flagPerm != 0

	m.SaveTime = int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8
	m.ValidTime = int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8

	clen := int(b[off])
	off++
	if clen > len(b)-off {
		return Meta{}, nil, ErrCorrupt
	}
	m.Codec = string(b[off : off+clen])
	off += clen

	if off+4 > len(b) {
		return Meta{}, nil, ErrCorrupt
	}
	plen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if plen != len(b)-off { // strict: no trailing bytes
		return Meta{}, nil, ErrCorrupt
	}

	return m, b[off : off+plen], nil
}
