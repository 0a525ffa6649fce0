package bpv7

import (
	"bytes"
	"fmt"

	"github.com/dtn7/dtnme-go/pkg/bundle"
)

// ToSharedBundle converts a wire-decoded BPv7 Bundle into the
// version-agnostic bundle.Bundle the routing, storage and forwarding
// layers operate on, the same model bpv6.DecodeBundle produces.
func ToSharedBundle(b Bundle) (*bundle.Bundle, error) {
	pb := b.PrimaryBlock

	dest, err := sharedEndpoint(pb.Destination)
	if err != nil {
		return nil, err
	}
	src, err := sharedEndpoint(pb.SourceNode)
	if err != nil {
		return nil, err
	}
	reportTo, err := sharedEndpoint(pb.ReportTo)
	if err != nil {
		return nil, err
	}

	out := &bundle.Bundle{
		Version:           7,
		ProcFlags:         bundle.ProcFlags(pb.BundleControlFlags),
		Destination:       dest,
		Source:            src,
		ReportTo:          reportTo,
		Custodian:         src,
		CreationTimestamp: uint64(pb.CreationTimestamp.DtnTime()),
		SequenceNumber:    pb.CreationTimestamp.SequenceNumber(),
		// BPv7 carries Lifetime in milliseconds (RFC 9171 §4.2.3); the shared
		// model counts seconds, matching bpv6's SDNV lifetime field.
		Lifetime:        pb.Lifetime / 1000,
		FragmentOffset:  pb.FragmentOffset,
		TotalDataLength: pb.TotalDataLength,
	}

	ebm := GetExtensionBlockManager()

	for _, cb := range b.CanonicalBlocks {
		var data bytes.Buffer
		if err := ebm.WriteBlock(cb.Value, &data); err != nil {
			return nil, fmt.Errorf("bpv7: converting block %d to shared form: %w", cb.BlockNumber, err)
		}

		out.Blocks = append(out.Blocks, &bundle.Block{
			TypeCode: cb.TypeCode(),
			Number:   cb.BlockNumber,
			Flags:    uint64(cb.BlockControlFlags),
			Data:     append([]byte(nil), data.Bytes()...),
			Complete: true,
		})

		switch v := cb.Value.(type) {
		case *PayloadBlock:
			out.Payload = bundle.NewPayloadMemory(v.Data())
		case *CustodyTransferEnhancementBlock:
			if custodian, cerr := sharedEndpoint(v.CustodianEID); cerr == nil {
				out.Custodian = custodian
			}
		}
	}
	if out.Payload == nil {
		return nil, fmt.Errorf("bpv7: bundle has no payload block")
	}

	return out, nil
}

// FromSharedBundle converts the version-agnostic bundle.Bundle back into
// this package's wire Bundle, ready for WriteBundle.
func FromSharedBundle(b *bundle.Bundle) (Bundle, error) {
	dest, err := NewEndpointID(b.Destination.String())
	if err != nil {
		return Bundle{}, err
	}
	src, err := NewEndpointID(b.Source.String())
	if err != nil {
		return Bundle{}, err
	}
	reportTo, err := NewEndpointID(b.ReportTo.String())
	if err != nil {
		return Bundle{}, err
	}

	primary := NewPrimaryBlock(
		BundleControlFlags(b.ProcFlags),
		dest, src,
		NewCreationTimestamp(DtnTime(b.CreationTimestamp), b.SequenceNumber),
		b.Lifetime*1000,
	)
	primary.ReportTo = reportTo
	primary.FragmentOffset = b.FragmentOffset
	primary.TotalDataLength = b.TotalDataLength

	ebm := GetExtensionBlockManager()

	var canonicals []CanonicalBlock
	for _, blk := range b.Blocks {
		if blk.TypeCode == 1 {
			continue // the payload block is appended separately, last
		}

		eb, err := ebm.ReadBlock(blk.TypeCode, bytes.NewReader(blk.Data))
		if err != nil {
			return Bundle{}, fmt.Errorf("bpv7: converting block %d from shared form: %w", blk.Number, err)
		}

		canonicals = append(canonicals, CanonicalBlock{
			BlockNumber:       blk.Number,
			BlockControlFlags: BlockControlFlags(blk.Flags),
			CRCType:           CRCNo,
			Value:             eb,
		})
	}
	if b.Payload == nil {
		return Bundle{}, fmt.Errorf("bpv7: bundle has no payload")
	}

	if b.ProcFlags.Has(bundle.CustodyRequested) && !b.Custodian.Equal(b.Source) {
		custodian, err := NewEndpointID(b.Custodian.String())
		if err != nil {
			return Bundle{}, err
		}
		canonicals = append(canonicals, NewCanonicalBlock(
			uint64(len(canonicals)+2), 0,
			NewCustodyTransferEnhancementBlock(b.SequenceNumber, custodian)))
	}

	canonicals = append(canonicals, NewCanonicalBlock(1, 0, NewPayloadBlock(b.Payload.Bytes())))

	return NewBundle(primary, canonicals)
}

// Encode serializes b into a complete CBOR-encoded BPv7 bundle.
func Encode(b *bundle.Bundle) ([]byte, error) {
	wire, err := FromSharedBundle(b)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := wire.WriteBundle(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a complete CBOR-encoded BPv7 bundle produced by Encode.
func Decode(data []byte) (*bundle.Bundle, error) {
	wire, err := ParseBundle(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return ToSharedBundle(wire)
}

func sharedEndpoint(eid EndpointID) (bundle.EndpointID, error) {
	return bundle.NewEndpointID(eid.String())
}
