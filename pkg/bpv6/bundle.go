package bpv6

import (
	"fmt"

	"github.com/dtn7/dtnme-go/pkg/bundle"
)

// EncodeBundle serializes b as a complete RFC 5050 bundle: the primary
// block followed by its canonical blocks in Blocks order, the payload block
// appended last regardless of its position in Blocks (mirroring bpv7's
// canonicalBlockNumberSort rule that the payload always sorts/serializes
// last).
func EncodeBundle(b *bundle.Bundle) ([]byte, error) {
	pb := PrimaryBlock{
		ProcFlags:         b.ProcFlags,
		Destination:       b.Destination,
		Source:            b.Source,
		ReportTo:          b.ReportTo,
		Custodian:         b.Custodian,
		CreationTimestamp: b.CreationTimestamp,
		SequenceNumber:    b.SequenceNumber,
		Lifetime:          b.Lifetime,
		FragmentOffset:    b.FragmentOffset,
		TotalDataLength:   b.TotalDataLength,
	}

	out := Marshal(pb)

	var payload *bundle.Block
	for _, blk := range b.Blocks {
		if blk.TypeCode == 1 {
			payload = blk
			continue
		}
		out = append(out, MarshalBlock(blockToCanonical(blk))...)
	}
	if payload == nil {
		return nil, fmt.Errorf("bpv6: bundle has no payload block")
	}
	out = append(out, MarshalBlock(blockToCanonical(payload))...)

	return out, nil
}

// DecodeBundle parses a complete RFC 5050 bundle produced by EncodeBundle.
func DecodeBundle(data []byte) (*bundle.Bundle, error) {
	pb, n, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("bpv6: decoding primary block: %w", err)
	}

	cbs, err := UnmarshalBlocks(data[n:])
	if err != nil {
		return nil, err
	}

	out := &bundle.Bundle{
		Version:           6,
		ProcFlags:         pb.ProcFlags,
		Destination:       pb.Destination,
		Source:            pb.Source,
		ReportTo:          pb.ReportTo,
		Custodian:         pb.Custodian,
		CreationTimestamp: pb.CreationTimestamp,
		SequenceNumber:    pb.SequenceNumber,
		Lifetime:          pb.Lifetime,
		FragmentOffset:    pb.FragmentOffset,
		TotalDataLength:   pb.TotalDataLength,
	}

	for i, cb := range cbs {
		blk := &bundle.Block{
			TypeCode: cb.TypeCode,
			Number:   uint64(i + 1),
			Flags:    cb.Flags,
			Data:     cb.Data,
			Complete: true,
		}
		out.Blocks = append(out.Blocks, blk)
		if cb.TypeCode == 1 {
			out.Payload = bundle.NewPayloadMemory(cb.Data)
		}
	}
	if out.Payload == nil {
		return nil, fmt.Errorf("bpv6: decoded bundle has no payload block")
	}

	return out, nil
}

func blockToCanonical(blk *bundle.Block) CanonicalBlock {
	return CanonicalBlock{TypeCode: blk.TypeCode, Flags: blk.Flags, Data: blk.Data}
}
