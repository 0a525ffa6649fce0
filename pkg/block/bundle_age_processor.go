package block

import (
	"encoding/binary"
	"fmt"

	"github.com/dtn7/dtnme-go/pkg/bundle"
)

// BundleAgeTypeCode is the canonical block type code for the bundle age
// block, shared with bpv7.ExtBlockTypeBundleAgeBlock.
const BundleAgeTypeCode uint64 = 7

// BundleAgeProcessor handles the bundle age block, grounded in
// original_source/servlib/bundling/BundleAgeBlockProcessor.cc: it tracks
// milliseconds of age accumulated in storage and at each hop, required on
// bundles whose source lacks an accurate clock (spec §3).
type BundleAgeProcessor struct{}

// Consume copies the block's wire bytes (an 8-byte big-endian millisecond
// count) verbatim into blk.Data.
func (BundleAgeProcessor) Consume(blk *bundle.Block, data []byte) (int, error) {
	blk.Data = append(blk.Data, data...)
	blk.Complete = true
	return len(data), nil
}

// Prepare is a no-op. The stored age value is carried forward unchanged;
// neither Prepare nor Generate adds elapsed time to it.
func (BundleAgeProcessor) Prepare(blk *bundle.Block, b *bundle.Bundle) error {
	return nil
}

// Generate re-encodes blk.Data as an 8-byte big-endian millisecond count,
// per BundleAgeBlockProcessor::generate.
func (BundleAgeProcessor) Generate(blk *bundle.Block, b *bundle.Bundle, last bool) ([]byte, error) {
	age := ageMillis(blk.Data)
	out := make([]byte, 8)
	binary.BigEndian.PutUint64(out, age)
	blk.Data = out

	if last {
		blk.Flags |= bundle.BlockLastBlock
	} else {
		blk.Flags &^= bundle.BlockLastBlock
	}
	return out, nil
}

// Validate enforces that at most one bundle age block is present.
func (BundleAgeProcessor) Validate(blk *bundle.Block, b *bundle.Bundle) error {
	count := 0
	for _, other := range b.Blocks {
		if other.TypeCode == BundleAgeTypeCode {
			count++
		}
	}
	if count > 1 {
		return fmt.Errorf("block: bundle must have at most one bundle age block, has %d", count)
	}
	if len(blk.Data) != 0 && len(blk.Data) != 8 {
		return fmt.Errorf("block: bundle age block must encode an 8-byte millisecond count, got %d bytes", len(blk.Data))
	}
	return nil
}

func ageMillis(data []byte) uint64 {
	if len(data) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(data)
}
