package block

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/dtn7/dtnme-go/pkg/bpv6"
	"github.com/dtn7/dtnme-go/pkg/bpv7"
	"github.com/dtn7/dtnme-go/pkg/bundle"
	"github.com/dtn7/dtnme-go/pkg/sdnv"
)

// BundleProtocol drives the streaming consume/produce/total-length/validate
// entry points of spec §4.2.2-§4.2.5. A caller feeds wire bytes to Consume
// in whatever chunk sizes it has on hand -- including one byte at a time --
// and BundleProtocol buffers only as much as is needed to parse the next
// complete block on the BPv6 path (the BPv7 path buffers and re-parses the
// whole CBOR bundle), dispatching version byte 0x06 to the BPv6 SDNV codec and
// everything else to the BPv7 CBOR codec, per BundleProtocol::consume in
// original_source/servlib/bundling/BundleProtocol.cc.
type BundleProtocol struct {
	registry *Registry

	buf      []byte
	version  uint8
	started  bool
	complete bool

	b *bundle.Bundle
}

// NewBundleProtocol creates a BundleProtocol that validates newly-assembled
// bundles through registry once complete. registry may be nil to skip
// per-block dispatch and validation.
func NewBundleProtocol(registry *Registry) *BundleProtocol {
	return &BundleProtocol{registry: registry}
}

// Consume feeds the next chunk of wire bytes into the in-progress bundle.
// It returns the number of bytes actually consumed from data (ordinarily
// all of it; fewer only once the bundle completes with trailing bytes left
// over, per §4.2.2's "may be less than len" case), whether the bundle is
// now fully assembled, and a non-nil error only for wire bytes that are
// malformed beyond recovery -- a short buffer is never an error, Consume
// simply buffers and waits for more.
func (bp *BundleProtocol) Consume(data []byte) (consumed int, complete bool, err error) {
	if bp.complete {
		return 0, true, nil
	}
	if len(data) == 0 {
		return 0, false, nil
	}

	if !bp.started {
		bp.started = true
		if data[0] == 0x06 {
			bp.version = 6
		} else {
			bp.version = 7
		}
	}

	bp.buf = append(bp.buf, data...)

	var drainErr error
	if bp.version == 6 {
		drainErr = bp.drainBPv6()
	} else {
		drainErr = bp.drainBPv7()
	}
	if drainErr != nil {
		return -1, false, drainErr
	}

	if !bp.complete {
		return len(data), false, nil
	}

	leftover := len(bp.buf)
	if leftover > len(data) {
		leftover = len(data)
	}
	return len(data) - leftover, true, nil
}

// drainBPv6 parses as many complete blocks as bp.buf currently holds,
// trimming consumed bytes off the front as it goes and leaving a partial
// trailing block buffered for the next Consume call.
func (bp *BundleProtocol) drainBPv6() error {
	if bp.b == nil {
		pb, n, err := bpv6.Unmarshal(bp.buf)
		if err != nil {
			if errors.Is(err, sdnv.ErrIncomplete) {
				return nil
			}
			return fmt.Errorf("block: decoding primary block: %w", err)
		}
		bp.buf = bp.buf[n:]
		bp.b = &bundle.Bundle{
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
	}

	for {
		cb, n, err := bpv6.UnmarshalBlock(bp.buf)
		if err != nil {
			if errors.Is(err, sdnv.ErrIncomplete) {
				return nil
			}
			return fmt.Errorf("block: decoding canonical block %d: %w", len(bp.b.Blocks), err)
		}
		bp.buf = bp.buf[n:]

		blk := &bundle.Block{
			TypeCode: cb.TypeCode,
			Number:   uint64(len(bp.b.Blocks) + 1),
			Flags:    cb.Flags,
		}
		if proc, ok := bp.find(blk.TypeCode); ok {
			if _, cerr := proc.Consume(blk, cb.Data); cerr != nil {
				return fmt.Errorf("block: consuming type %d: %w", blk.TypeCode, cerr)
			}
		} else {
			blk.Data = cb.Data
			blk.Complete = true
		}
		bp.b.Blocks = append(bp.b.Blocks, blk)
		if blk.TypeCode == PayloadTypeCode {
			bp.b.Payload = bundle.NewPayloadMemory(blk.Data)
		}

		// The payload block always serializes last (bpv6.EncodeBundle's
		// "payload always sorts/serializes last" convention), so its
		// arrival -- not just an explicit LAST_BLOCK flag bpv6 does not
		// always set -- marks the bundle complete.
		if blk.TypeCode == PayloadTypeCode || blk.Flags&bundle.BlockLastBlock != 0 {
			bp.finish()
			return nil
		}
	}
}

// drainBPv7 re-attempts a full CBOR parse of bp.buf on every call, since
// the cboring reader this codec is built on has no resumable partial-read
// state to save across calls; io.EOF/io.ErrUnexpectedEOF are treated as
// "need more bytes" rather than a malformed-input error.
func (bp *BundleProtocol) drainBPv7() error {
	r := bytes.NewReader(bp.buf)
	wire, err := bpv7.ParseBundle(r)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
		return fmt.Errorf("block: decoding CBOR bundle: %w", err)
	}

	consumedN := len(bp.buf) - r.Len()
	out, err := bpv7.ToSharedBundle(wire)
	if err != nil {
		return fmt.Errorf("block: converting CBOR bundle: %w", err)
	}

	if bp.registry != nil {
		for _, blk := range out.Blocks {
			if proc, ok := bp.find(blk.TypeCode); ok {
				blk.Complete = true
				_, _ = proc.Consume(blk, nil)
			}
		}
	}

	bp.b = out
	bp.buf = bp.buf[consumedN:]
	bp.finish()
	return nil
}

func (bp *BundleProtocol) find(typeCode uint64) (Processor, bool) {
	if bp.registry == nil {
		return nil, false
	}
	return bp.registry.Find(typeCode)
}

func (bp *BundleProtocol) finish() {
	bp.complete = true
}

// Bundle returns the assembled bundle once Consume has reported complete;
// it returns nil beforehand.
func (bp *BundleProtocol) Bundle() *bundle.Bundle {
	if !bp.complete {
		return nil
	}
	return bp.b
}

// Validate runs registry.ValidateAll against the assembled bundle, per
// §4.2.5: only meaningful once Consume has reported complete.
func (bp *BundleProtocol) Validate() error {
	if !bp.complete {
		return fmt.Errorf("block: bundle is not yet complete")
	}
	if bp.registry == nil {
		return nil
	}
	return bp.registry.ValidateAll(bp.b)
}

// BundleProducer serves a complete bundle's wire bytes through the
// streaming produce/total-length contract of §4.2.3-§4.2.4. It encodes the
// bundle once (via the version-appropriate codec) and serves arbitrarily
// sized, arbitrarily offset slices of the result, so a caller feeding
// 1-byte chunks through Produce sees byte-for-byte the same stream as one
// call with the full length.
type BundleProducer struct {
	wire []byte
}

// NewBundleProducer encodes b with the codec matching b.Version.
func NewBundleProducer(b *bundle.Bundle) (*BundleProducer, error) {
	var (
		wire []byte
		err  error
	)
	switch b.Version {
	case 6:
		wire, err = bpv6.EncodeBundle(b)
	default:
		wire, err = bpv7.Encode(b)
	}
	if err != nil {
		return nil, err
	}
	return &BundleProducer{wire: wire}, nil
}

// TotalLength returns the bundle's full encoded byte length, per §4.2.4.
func (p *BundleProducer) TotalLength() int {
	return len(p.wire)
}

// Produce copies up to len(buf) bytes starting at offset into buf, per
// §4.2.3, returning the number of bytes written and whether offset+n has
// reached the total encoded length.
func (p *BundleProducer) Produce(buf []byte, offset int) (n int, complete bool, err error) {
	if offset < 0 || offset > len(p.wire) {
		return 0, false, fmt.Errorf("block: produce offset %d out of range [0, %d]", offset, len(p.wire))
	}
	n = copy(buf, p.wire[offset:])
	return n, offset+n >= len(p.wire), nil
}
