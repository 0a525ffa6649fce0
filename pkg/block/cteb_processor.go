package block

import (
	"fmt"

	"github.com/dtn7/dtnme-go/pkg/bundle"
)

// CTEBTypeCode is the canonical block type code for the custody-transfer
// enhancement block, shared with
// bpv7.ExtBlockTypeCustodyTransferEnhancementBlock.
const CTEBTypeCode uint64 = 200

// CTEBProcessor handles the custody-transfer enhancement block, grounded in
// original_source/servlib/bundling/CustodyTransferEnhancementBlockProcessor.cc:
// it carries the custody ID and custodian EID a CTEB-aware router uses to
// accept custody without an administrative acknowledgment round trip.
type CTEBProcessor struct{}

// Consume copies the block's wire bytes verbatim.
func (CTEBProcessor) Consume(blk *bundle.Block, data []byte) (int, error) {
	blk.Data = append(blk.Data, data...)
	blk.Complete = true
	return len(data), nil
}

// Prepare is a no-op: custody ID assignment is the custody-transfer
// machinery's job, not the block processor's.
func (CTEBProcessor) Prepare(blk *bundle.Block, b *bundle.Bundle) error {
	return nil
}

// Generate re-emits the block's stored bytes, updating the last-block flag.
func (CTEBProcessor) Generate(blk *bundle.Block, b *bundle.Bundle, last bool) ([]byte, error) {
	if last {
		blk.Flags |= bundle.BlockLastBlock
	} else {
		blk.Flags &^= bundle.BlockLastBlock
	}
	return blk.Data, nil
}

// Validate enforces that at most one CTEB is present and it carries the
// custodian EID reference a CTEB-aware router relies on.
func (CTEBProcessor) Validate(blk *bundle.Block, b *bundle.Bundle) error {
	count := 0
	for _, other := range b.Blocks {
		if other.TypeCode == CTEBTypeCode {
			count++
		}
	}
	if count > 1 {
		return fmt.Errorf("block: bundle must have at most one custody-transfer enhancement block, has %d", count)
	}
	if len(blk.EIDRefs) == 0 {
		return fmt.Errorf("block: custody-transfer enhancement block requires a custodian EID reference")
	}
	return nil
}
