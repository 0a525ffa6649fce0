package bpv6

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/howeyc/crc16"
)

// CRCType indicates which optional CRC, if any, trails a block's SDNV body.
// Unlike BPv7's mandatory primary-block CRC, RFC 5050 leaves block CRCs to
// an implementation's own extension conventions; this package exposes the
// same CRC16/CRC32 split as github.com/dtn7/dtnme-go/pkg/bpv7 so callers can
// opt a BPv6 block into a checksum where useful.
type CRCType uint64

const (
	// CRCNo means no CRC is appended.
	CRCNo CRCType = 0

	// CRC16 is a standard X-25 CRC-16.
	CRC16 CRCType = 1

	// CRC32 is a standard CRC32C (Castagnoli) CRC-32.
	CRC32 CRCType = 2
)

var (
	crc16table = crc16.MakeTable(crc16.CCITT)
	crc32table = crc32.MakeTable(crc32.Castagnoli)
)

// Checksum computes data's CRC under crcType, returning nil for CRCNo.
func Checksum(data []byte, crcType CRCType) ([]byte, error) {
	switch crcType {
	case CRCNo:
		return nil, nil

	case CRC16:
		out := make([]byte, 2)
		binary.BigEndian.PutUint16(out, crc16.Checksum(data, crc16table))
		return out, nil

	case CRC32:
		out := make([]byte, 4)
		binary.BigEndian.PutUint32(out, crc32.Checksum(data, crc32table))
		return out, nil

	default:
		return nil, fmt.Errorf("bpv6: unknown CRCType %d", crcType)
	}
}

// Verify reports whether data's trailing checksum under crcType matches.
func Verify(data []byte, crcType CRCType) (bool, error) {
	sum, err := Checksum(data, crcType)
	if err != nil {
		return false, err
	}
	if sum == nil {
		return true, nil
	}
	if len(data) < len(sum) {
		return false, nil
	}

	want, err := Checksum(data[:len(data)-len(sum)], crcType)
	if err != nil {
		return false, err
	}

	if len(want) != len(sum) {
		return false, nil
	}
	for i := range want {
		if want[i] != data[len(data)-len(sum)+i] {
			return false, nil
		}
	}
	return true, nil
}
