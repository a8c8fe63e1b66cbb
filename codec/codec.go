// Package codec serializes structured (object) values for storage.
//
// Primitive kinds (int, float, bool, string, bytes) are framed by kvault
// itself; a Codec is only consulted for object values. The codec name is
// persisted with each object entry so a reader configured with a different
// codec fails loudly instead of decoding garbage.
package codec

// Codec encodes/decodes object values to []byte for storage.
type Codec interface {
	// Name identifies the wire format; it is persisted with every object entry.
	Name() string
	Marshal(v any) ([]byte, error)
	// Unmarshal decodes b into dst, which must be a non-nil pointer.
	Unmarshal(b []byte, dst any) error
}

// ByName returns a built-in codec by name: json, msgpack, cbor or protobuf.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json", "":
		return JSON{}, true
	case "msgpack":
		return Msgpack{}, true
	case "cbor":
		return MustCBOR(false), true
	case "protobuf":
		return Protobuf{}, true
	}
	return nil, false
}
