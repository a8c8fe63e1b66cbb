package codec

import (
	"fmt"

	"google.golang.org/protobuf/proto"
)

// Protobuf encodes proto.Message values. Both Marshal's argument and
// Unmarshal's destination must implement proto.Message.
type Protobuf struct{}

func (Protobuf) Name() string { return "protobuf" }

func (Protobuf) Marshal(v any) ([]byte, error) {
	m, ok := v.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("codec: protobuf: %T is not a proto.Message", v)
	}
	return proto.Marshal(m)
}

func (Protobuf) Unmarshal(b []byte, dst any) error {
	m, ok := dst.(proto.Message)
	if !ok {
		return fmt.Errorf("codec: protobuf: %T is not a proto.Message", dst)
	}
	return proto.Unmarshal(b, m)
}
