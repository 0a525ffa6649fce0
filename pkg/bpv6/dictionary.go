// Package bpv6 implements the SDNV-based on-the-wire bundle format of
// Bundle Protocol version 6 (RFC 5050), decoding into and encoding from the
// version-agnostic github.com/dtn7/dtnme-go/pkg/bundle data model.
//
// original_source carries no concrete BPv6 codec (only the BlockProcessor
// registration surface in BundleProtocolVersion6.h), so the field layout
// below follows RFC 5050 directly; the SDNV primitives come from this
// module's own pkg/sdnv.
package bpv6

import (
	"fmt"
	"strings"
)

// Dictionary is RFC 5050's null-terminated scheme/SSP string table, shared
// by every EndpointID reference in a primary block via byte offsets.
type Dictionary struct {
	raw     []byte
	offsets map[string]uint64
}

// NewDictionary builds an empty, appendable Dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{offsets: make(map[string]uint64)}
}

// Offset returns s's byte offset into the dictionary, appending it
// (including its trailing NUL) if not already present.
func (d *Dictionary) Offset(s string) uint64 {
	if off, ok := d.offsets[s]; ok {
		return off
	}

	off := uint64(len(d.raw))
	d.offsets[s] = off
	d.raw = append(d.raw, append([]byte(s), 0)...)
	return off
}

// Lookup returns the NUL-terminated string starting at off.
func (d *Dictionary) Lookup(off uint64) (string, error) {
	if off >= uint64(len(d.raw)) {
		return "", fmt.Errorf("bpv6: dictionary offset %d out of range", off)
	}

	end := strings.IndexByte(string(d.raw[off:]), 0)
	if end < 0 {
		return "", fmt.Errorf("bpv6: dictionary entry at offset %d is not NUL-terminated", off)
	}
	return string(d.raw[off : off+uint64(end)]), nil
}

// Bytes returns the dictionary's raw byte-string form, as written on the wire.
func (d *Dictionary) Bytes() []byte {
	return d.raw
}

// LoadDictionary wraps a complete, already-decoded dictionary byte string
// for lookup; used when reading a primary block off the wire.
func LoadDictionary(raw []byte) *Dictionary {
	return &Dictionary{raw: raw}
}

// endpointRef is a scheme/SSP offset pair into a Dictionary, RFC 5050's
// on-the-wire representation of an EndpointID.
type endpointRef struct {
	SchemeOffset uint64
	SSPOffset    uint64
}

func (d *Dictionary) resolve(ref endpointRef) (string, error) {
	scheme, err := d.Lookup(ref.SchemeOffset)
	if err != nil {
		return "", err
	}
	ssp, err := d.Lookup(ref.SSPOffset)
	if err != nil {
		return "", err
	}
	return scheme + ":" + ssp, nil
}

func (d *Dictionary) intern(uri string) endpointRef {
	scheme, ssp, found := strings.Cut(uri, ":")
	if !found {
		ssp = ""
	}
	return endpointRef{SchemeOffset: d.Offset(scheme), SSPOffset: d.Offset(ssp)}
}
