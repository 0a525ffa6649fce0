package bpv6

import (
	"fmt"

	"github.com/dtn7/dtnme-go/pkg/bundle"
	"github.com/dtn7/dtnme-go/pkg/sdnv"
)

// version is the single wire version byte this package understands.
const version = 6

// PrimaryBlock is RFC 5050's primary bundle block.
type PrimaryBlock struct {
	ProcFlags         bundle.ProcFlags
	Destination       bundle.EndpointID
	Source            bundle.EndpointID
	ReportTo          bundle.EndpointID
	Custodian         bundle.EndpointID
	CreationTimestamp uint64
	SequenceNumber    uint64
	Lifetime          uint64
	FragmentOffset    uint64
	TotalDataLength   uint64
}

// Marshal writes pb's SDNV-encoded primary block, version byte included.
func Marshal(pb PrimaryBlock) []byte {
	dict := NewDictionary()

	destRef := dict.intern(pb.Destination.String())
	srcRef := dict.intern(pb.Source.String())
	reportRef := dict.intern(pb.ReportTo.String())
	custRef := dict.intern(pb.Custodian.String())

	isFragment := pb.ProcFlags&bundle.IsFragment != 0

	var body []byte
	body = sdnv.Encode(body, uint64(pb.ProcFlags))
	body = sdnv.Encode(body, destRef.SchemeOffset)
	body = sdnv.Encode(body, destRef.SSPOffset)
	body = sdnv.Encode(body, srcRef.SchemeOffset)
	body = sdnv.Encode(body, srcRef.SSPOffset)
	body = sdnv.Encode(body, reportRef.SchemeOffset)
	body = sdnv.Encode(body, reportRef.SSPOffset)
	body = sdnv.Encode(body, custRef.SchemeOffset)
	body = sdnv.Encode(body, custRef.SSPOffset)
	body = sdnv.Encode(body, pb.CreationTimestamp)
	body = sdnv.Encode(body, pb.SequenceNumber)
	body = sdnv.Encode(body, pb.Lifetime)
	body = sdnv.Encode(body, uint64(len(dict.Bytes())))
	body = append(body, dict.Bytes()...)
	if isFragment {
		body = sdnv.Encode(body, pb.FragmentOffset)
		body = sdnv.Encode(body, pb.TotalDataLength)
	}

	out := []byte{version}
	out = sdnv.Encode(out, uint64(len(body)))
	out = append(out, body...)
	return out
}

// Unmarshal reads a primary block (version byte included) from the front of
// buf, returning the decoded block and the number of bytes consumed.
func Unmarshal(buf []byte) (pb PrimaryBlock, n int, err error) {
	if len(buf) < 1 {
		return PrimaryBlock{}, 0, sdnv.ErrIncomplete
	}
	if buf[0] != version {
		return PrimaryBlock{}, 0, fmt.Errorf("bpv6: unexpected version byte %d", buf[0])
	}
	pos := 1

	blockLen, ln, err := sdnv.Decode(buf[pos:])
	if err != nil {
		return PrimaryBlock{}, 0, err
	}
	pos += ln

	bodyStart := pos
	bodyEnd := bodyStart + int(blockLen)
	if bodyEnd > len(buf) {
		return PrimaryBlock{}, 0, sdnv.ErrIncomplete
	}
	body := buf[bodyStart:bodyEnd]

	var off int
	readNext := func() (uint64, error) {
		v, ln, derr := sdnv.Decode(body[off:])
		if derr != nil {
			return 0, derr
		}
		off += ln
		return v, nil
	}

	procFlags, err := readNext()
	if err != nil {
		return PrimaryBlock{}, 0, err
	}
	pb.ProcFlags = bundle.ProcFlags(procFlags)

	var destRef, srcRef, reportRef, custRef endpointRef
	for _, ref := range []*endpointRef{&destRef, &srcRef, &reportRef, &custRef} {
		if ref.SchemeOffset, err = readNext(); err != nil {
			return PrimaryBlock{}, 0, err
		}
		if ref.SSPOffset, err = readNext(); err != nil {
			return PrimaryBlock{}, 0, err
		}
	}

	if pb.CreationTimestamp, err = readNext(); err != nil {
		return PrimaryBlock{}, 0, err
	}
	if pb.SequenceNumber, err = readNext(); err != nil {
		return PrimaryBlock{}, 0, err
	}
	if pb.Lifetime, err = readNext(); err != nil {
		return PrimaryBlock{}, 0, err
	}

	dictLen, err := readNext()
	if err != nil {
		return PrimaryBlock{}, 0, err
	}
	if off+int(dictLen) > len(body) {
		return PrimaryBlock{}, 0, sdnv.ErrIncomplete
	}
	dict := LoadDictionary(body[off : off+int(dictLen)])
	off += int(dictLen)

	if pb.ProcFlags&bundle.IsFragment != 0 {
		if pb.FragmentOffset, err = readNext(); err != nil {
			return PrimaryBlock{}, 0, err
		}
		if pb.TotalDataLength, err = readNext(); err != nil {
			return PrimaryBlock{}, 0, err
		}
	}

	for _, resolved := range []struct {
		ref *endpointRef
		eid *bundle.EndpointID
	}{
		{&destRef, &pb.Destination},
		{&srcRef, &pb.Source},
		{&reportRef, &pb.ReportTo},
		{&custRef, &pb.Custodian},
	} {
		uri, rerr := dict.resolve(*resolved.ref)
		if rerr != nil {
			return PrimaryBlock{}, 0, rerr
		}
		eid, eerr := bundle.NewEndpointID(uri)
		if eerr != nil {
			return PrimaryBlock{}, 0, eerr
		}
		*resolved.eid = eid
	}

	return pb, bodyEnd, nil
}
