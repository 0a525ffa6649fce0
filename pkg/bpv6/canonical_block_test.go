package bpv6

import (
	"reflect"
	"testing"
)

func TestCanonicalBlockRoundTrip(t *testing.T) {
	cb := CanonicalBlock{TypeCode: 1, Flags: 0x02, Data: []byte("hello world!")}

	wire := MarshalBlock(cb)
	cb2, n, err := UnmarshalBlock(wire)
	if err != nil {
		t.Fatalf("UnmarshalBlock failed: %v", err)
	}
	if n != len(wire) {
		t.Fatalf("UnmarshalBlock consumed %d of %d bytes", n, len(wire))
	}
	if !reflect.DeepEqual(cb, cb2) {
		t.Fatalf("canonical block changed after round trip: %v != %v", cb, cb2)
	}
}

func TestCanonicalBlockEmptyData(t *testing.T) {
	cb := CanonicalBlock{TypeCode: 3, Flags: 0, Data: nil}

	wire := MarshalBlock(cb)
	cb2, _, err := UnmarshalBlock(wire)
	if err != nil {
		t.Fatalf("UnmarshalBlock failed: %v", err)
	}
	if len(cb2.Data) != 0 {
		t.Fatalf("expected empty data, got %v", cb2.Data)
	}
}

func TestUnmarshalBlocksSequence(t *testing.T) {
	blocks := []CanonicalBlock{
		{TypeCode: 2, Flags: 0, Data: []byte("a")},
		{TypeCode: 3, Flags: 0, Data: []byte("bb")},
		{TypeCode: 1, Flags: 0, Data: []byte("payload")},
	}

	var wire []byte
	for _, cb := range blocks {
		wire = append(wire, MarshalBlock(cb)...)
	}

	got, err := UnmarshalBlocks(wire)
	if err != nil {
		t.Fatalf("UnmarshalBlocks failed: %v", err)
	}
	if !reflect.DeepEqual(blocks, got) {
		t.Fatalf("blocks changed after round trip: %v != %v", blocks, got)
	}
}

func TestUnmarshalBlockRejectsTruncatedData(t *testing.T) {
	cb := CanonicalBlock{TypeCode: 1, Flags: 0, Data: []byte("hello")}
	wire := MarshalBlock(cb)

	if _, _, err := UnmarshalBlock(wire[:len(wire)-1]); err == nil {
		t.Fatal("expected an error for truncated block data")
	}
}
