package codec

import "encoding/json"

// JSON is the default codec.
type JSON struct{}

func (JSON) Name() string                      { return "json" }
func (JSON) Marshal(v any) ([]byte, error)     { return json.Marshal(v) }
func (JSON) Unmarshal(b []byte, dst any) error { return json.Unmarshal(b, dst) }
