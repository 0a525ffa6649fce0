package sdnv

import "testing"

func TestRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 127, 128, 16383, 16384, 1 << 32, ^uint64(0)}

	for _, v := range cases {
		buf := Encode(nil, v)
		got, n, err := Decode(buf)
		if err != nil {
			t.Fatalf("decode(%d): %v", v, err)
		}
		if n != len(buf) {
			t.Fatalf("decode(%d): consumed %d, want %d", v, n, len(buf))
		}
		if got != v {
			t.Fatalf("decode(%d): got %d", v, got)
		}
	}
}

func TestDecodeIncomplete(t *testing.T) {
	// 0x81, 0x81 are continuation bytes without a terminator.
	_, _, err := Decode([]byte{0x81, 0x81})
	if err != ErrIncomplete {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}
}

func TestDecodeByteAtATime(t *testing.T) {
	full := Encode(nil, 123456789)
	for i := 1; i < len(full); i++ {
		if _, _, err := Decode(full[:i]); err != ErrIncomplete {
			t.Fatalf("prefix %d: expected ErrIncomplete, got %v", i, err)
		}
	}
	v, n, err := Decode(full)
	if err != nil || n != len(full) || v != 123456789 {
		t.Fatalf("decode(full) = %d, %d, %v", v, n, err)
	}
}

func TestDecodeOverflow(t *testing.T) {
	buf := make([]byte, MaxLen+1)
	for i := range buf {
		buf[i] = 0x81
	}
	_, _, err := Decode(buf)
	if err != ErrOverflow {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}
