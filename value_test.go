package kvault

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/unkn0wn-root/kvault/codec"
)

func TestValuePrimitiveEncoding(t *testing.T) {
	c := codec.JSON{}
	cases := []Value{
		Int(0), Int(math.MinInt64), Int(math.MaxInt64),
		Float(-0.5), Float(math.Inf(1)),
		Bool(true), Bool(false),
		String(""), String("ünïcode"),
		Bytes(nil), Bytes([]byte{0xff, 0}),
	}
	for _, in := range cases {
		b, err := encodeValue(in, c)
		if err != nil {
			t.Fatalf("encode %s: %v", in.Kind(), err)
		}
		if b == nil {
			t.Fatalf("encode %s returned nil", in.Kind())
		}
		out, err := decodeValue(in.Kind(), b, c)
		if err != nil {
			t.Fatalf("decode %s: %v", in.Kind(), err)
		}
		if out.Kind() != in.Kind() || out.i != in.i || out.f != in.f || out.b != in.b ||
			out.s != in.s || string(out.raw) != string(in.raw) {
			t.Fatalf("round trip %s: in=%+v out=%+v", in.Kind(), in, out)
		}
	}
}

func TestValueDecodeRejectsMisfit(t *testing.T) {
	c := codec.JSON{}
	bad := []struct {
		k Kind
		b []byte
	}{
		{KindInt, []byte{1, 2, 3}},
		{KindFloat, nil},
		{KindBool, []byte{2}},
		{KindBool, []byte{0, 0}},
		{Kind(42), []byte{}},
	}
	for _, tc := range bad {
		if _, err := decodeValue(tc.k, tc.b, c); err == nil {
			t.Fatalf("decode %s %x: expected error", tc.k, tc.b)
		}
	}
}

func TestValueAccessors(t *testing.T) {
	if v, ok := Int(3).AsInt(); !ok || v != 3 {
		t.Fatalf("AsInt")
	}
	if _, ok := Int(3).AsString(); ok {
		t.Fatalf("AsString on int reported ok")
	}
	src := []byte("abc")
	v := Bytes(src)
	src[0] = 'x'
	got, _ := v.AsBytes()
	if string(got) != "abc" {
		t.Fatalf("Bytes aliases its input: %q", got)
	}
	got[1] = 'y'
	again, _ := v.AsBytes()
	if string(again) != "abc" {
		t.Fatalf("AsBytes aliases the value: %q", again)
	}
	if (Value{}).Kind().valid() {
		t.Fatalf("zero Value is valid")
	}
}

func TestValueDecodeObject(t *testing.T) {
	var p profile
	if err := Object(profile{Name: "n", Age: 1}).Decode(&p); err != nil || p.Name != "n" {
		t.Fatalf("Decode unstored object: %+v %v", p, err)
	}
	if err := Int(1).Decode(&p); !errors.Is(err, ErrKindMismatch) {
		t.Fatalf("Decode int: %v", err)
	}
}

func TestObjectReadBackRestores(t *testing.T) {
	m := codec.Msgpack{}
	b, _ := encodeValue(Object(profile{Name: "a"}), m)
	read, _ := decodeValue(KindObject, b, m)

	again, err := encodeValue(read, m)
	if err != nil || string(again) != string(b) {
		t.Fatalf("re-encode with same codec: %v", err)
	}
	if _, err := encodeValue(read, codec.JSON{}); err == nil {
		t.Fatalf("re-encode with other codec: expected error")
	}
}

func TestEntryIsDue(t *testing.T) {
	save := time.UnixMilli(10_000)
	cases := []struct {
		name string
		e    Entry
		at   time.Duration
		due  bool
	}{
		{"zero window", Entry{SaveTime: save.UnixMilli(), ValidTime: 0}, 0, true},
		{"inside window", Entry{SaveTime: save.UnixMilli(), ValidTime: 5}, 4999 * time.Millisecond, false},
		{"window edge", Entry{SaveTime: save.UnixMilli(), ValidTime: 5}, 5 * time.Second, true},
		{"no expiry", Entry{SaveTime: save.UnixMilli(), ValidTime: NoExpiry}, 1000 * time.Hour, false},
		{"permanent wins", Entry{SaveTime: save.UnixMilli(), ValidTime: 0, Permanent: true}, time.Hour, false},
		{"window past int64 millis", Entry{SaveTime: save.UnixMilli(), ValidTime: math.MaxInt64 / 2}, 200 * 365 * 24 * time.Hour, false},
		{"largest window that fits", Entry{SaveTime: 0, ValidTime: math.MaxInt64 / 1000}, 0, false},
	}
	for _, tc := range cases {
		if got := tc.e.IsDue(save.Add(tc.at)); got != tc.due {
			t.Fatalf("%s: IsDue=%v want %v", tc.name, got, tc.due)
		}
	}
	if _, ok := (Entry{ValidTime: NoExpiry}).DueAt(); ok {
		t.Fatalf("DueAt on no-expiry entry reported ok")
	}
	if _, ok := (Entry{SaveTime: save.UnixMilli(), ValidTime: math.MaxInt64 / 2}).DueAt(); ok {
		t.Fatalf("DueAt on overflowing window reported ok")
	}
}
