// Package bibe implements Bundle-in-Bundle Encapsulation custody extraction
// (spec §4.7), grounded in
// original_source/servlib/bundling/BIBEExtractor.cc. A BIBE payload wraps an
// encapsulated bundle inside a CBOR administrative record
// [admin_rec_type, [transmission_id, retransmission_time, encapsulated_bundle]];
// this package decodes that outer framing and hands the inner bundle's bytes
// to the regular block-consuming pipeline.
package bibe

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dtn7/cboring"
)

// AdminRecordTypeBundleInBundle is the administrative record type code for a
// BIBE-encapsulated bundle, grounded in
// original_source/servlib/bundling/BundleProtocol.h's
// ADMIN_BUNDLE_IN_BUNDLE_ENCAP nibble.
const AdminRecordTypeBundleInBundle uint64 = 3

// AdminRecordHeaderMaxLen bounds how many leading bytes BIBEExtractor reads
// before it has seen enough of the outer CBOR array to know where the
// encapsulated bundle's byte string begins, per BIBEExtractor.cc's
// admin_header_max_len (22 + 9 bytes of framing slack).
const AdminRecordHeaderMaxLen = 31

// Header is the decoded outer framing of a BIBE administrative record,
// everything except the encapsulated bundle's bytes themselves.
type Header struct {
	TransmissionID     uint64
	RetransmissionTime uint64

	// BytesConsumed is how many bytes of the input the header occupied
	// before the encapsulated bundle's byte-string payload starts.
	BytesConsumed int
}

// DecodeHeader parses the outer [3, [tx_id, retransmit_time, bstr]] record
// from the leading bytes of a BIBE payload, returning the header and the
// declared length of the encapsulated bundle's byte string. It only needs
// enough bytes to see past the byte-string's own CBOR length prefix; it does
// not require the entire encapsulated bundle to be present yet, mirroring
// BIBEExtractor.cc feeding the extractor at most admin_header_max_len bytes
// for this step before switching to streaming consumption of the bundle
// itself.
func DecodeHeader(data []byte) (Header, uint64, error) {
	r := bytes.NewReader(data)

	outerLen, err := cboring.ReadArrayLength(r)
	if err != nil {
		return Header{}, 0, fmt.Errorf("bibe: failed to read outer array length: %w", err)
	}
	if outerLen != 2 {
		return Header{}, 0, fmt.Errorf("bibe: outer array length is %d, want 2", outerLen)
	}

	recordType, err := cboring.ReadUInt(r)
	if err != nil {
		return Header{}, 0, fmt.Errorf("bibe: failed to read record type: %w", err)
	}
	if recordType != AdminRecordTypeBundleInBundle {
		return Header{}, 0, fmt.Errorf("bibe: record type %d is not BundleInBundle (%d)", recordType, AdminRecordTypeBundleInBundle)
	}

	innerLen, err := cboring.ReadArrayLength(r)
	if err != nil {
		return Header{}, 0, fmt.Errorf("bibe: failed to read inner array length: %w", err)
	}
	if innerLen != 3 {
		return Header{}, 0, fmt.Errorf("bibe: inner array length is %d, want 3", innerLen)
	}

	txID, err := cboring.ReadUInt(r)
	if err != nil {
		return Header{}, 0, fmt.Errorf("bibe: failed to read transmission id: %w", err)
	}

	retransmitTime, err := cboring.ReadUInt(r)
	if err != nil {
		return Header{}, 0, fmt.Errorf("bibe: failed to read retransmission time: %w", err)
	}

	bstrLen, _, err := peekByteStringLength(r)
	if err != nil {
		return Header{}, 0, fmt.Errorf("bibe: failed to read encapsulated bundle length: %w", err)
	}

	consumed := int(int64(len(data)) - int64(r.Len()))

	return Header{
		TransmissionID:     txID,
		RetransmissionTime: retransmitTime,
		BytesConsumed:      consumed,
	}, bstrLen, nil
}

// peekByteStringLength reads a CBOR byte-string's length prefix from r
// without consuming the string's body, returning the declared length and how
// many bytes the length prefix itself occupied.
func peekByteStringLength(r *bytes.Reader) (uint64, int, error) {
	before := r.Len()

	first, err := r.ReadByte()
	if err != nil {
		return 0, 0, err
	}

	majorType := first >> 5
	if majorType != 2 {
		return 0, 0, fmt.Errorf("bibe: expected a CBOR byte string (major type 2), got %d", majorType)
	}

	additional := first & 0x1f
	var length uint64

	switch {
	case additional < 24:
		length = uint64(additional)
	case additional == 24:
		b, err := r.ReadByte()
		if err != nil {
			return 0, 0, err
		}
		length = uint64(b)
	case additional == 25:
		var buf [2]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, 0, err
		}
		length = uint64(buf[0])<<8 | uint64(buf[1])
	case additional == 26:
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, 0, err
		}
		for _, bb := range buf {
			length = length<<8 | uint64(bb)
		}
	default:
		return 0, 0, fmt.Errorf("bibe: unsupported byte string length encoding, additional=%d", additional)
	}

	consumed := before - r.Len()
	return length, consumed, nil
}
