package bpv6

import (
	"fmt"

	"github.com/dtn7/dtnme-go/pkg/sdnv"
)

// CanonicalBlock is RFC 5050's non-primary bundle block: a one-byte type
// code, SDNV processing flags and an SDNV-length-prefixed body.
type CanonicalBlock struct {
	TypeCode uint64
	Flags    uint64
	Data     []byte
}

// MarshalBlock writes a single canonical block's wire form.
func MarshalBlock(cb CanonicalBlock) []byte {
	var out []byte
	out = sdnv.Encode(out, cb.TypeCode)
	out = sdnv.Encode(out, cb.Flags)
	out = sdnv.Encode(out, uint64(len(cb.Data)))
	out = append(out, cb.Data...)
	return out
}

// UnmarshalBlock reads one canonical block from the front of buf.
func UnmarshalBlock(buf []byte) (cb CanonicalBlock, n int, err error) {
	var off int
	readNext := func() (uint64, error) {
		v, ln, derr := sdnv.Decode(buf[off:])
		if derr != nil {
			return 0, derr
		}
		off += ln
		return v, nil
	}

	if cb.TypeCode, err = readNext(); err != nil {
		return CanonicalBlock{}, 0, err
	}
	if cb.Flags, err = readNext(); err != nil {
		return CanonicalBlock{}, 0, err
	}

	dataLen, err := readNext()
	if err != nil {
		return CanonicalBlock{}, 0, err
	}
	if off+int(dataLen) > len(buf) {
		return CanonicalBlock{}, 0, sdnv.ErrIncomplete
	}

	cb.Data = append([]byte(nil), buf[off:off+int(dataLen)]...)
	off += int(dataLen)

	return cb, off, nil
}

// UnmarshalBlocks reads every canonical block following a primary block out
// of buf until exhausted.
func UnmarshalBlocks(buf []byte) ([]CanonicalBlock, error) {
	var blocks []CanonicalBlock

	for len(buf) > 0 {
		cb, n, err := UnmarshalBlock(buf)
		if err != nil {
			return nil, fmt.Errorf("bpv6: decoding canonical block %d: %w", len(blocks), err)
		}
		blocks = append(blocks, cb)
		buf = buf[n:]
	}

	return blocks, nil
}
