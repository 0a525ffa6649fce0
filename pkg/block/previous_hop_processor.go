package block

import (
	"fmt"

	"github.com/dtn7/dtnme-go/pkg/bundle"
)

// PreviousHopTypeCode is the canonical block type code for the previous-hop
// block, shared with bpv7.ExtBlockTypePreviousNodeBlock.
const PreviousHopTypeCode uint64 = 6

// PreviousHopProcessor handles the previous-hop block, grounded in
// original_source/servlib/bundling/PreviousHopBlockProcessor.cc: it records
// which neighbor forwarded the bundle to this node, replacing any prior
// instance every hop rather than accumulating a chain of them.
type PreviousHopProcessor struct{}

// Consume copies the EID reference verbatim; the wire codec has already
// decoded the block's EID-reference list into blk.EIDRefs.
func (PreviousHopProcessor) Consume(blk *bundle.Block, data []byte) (int, error) {
	blk.Data = append(blk.Data, data...)
	blk.Complete = true
	return len(data), nil
}

// Prepare trims blk.EIDRefs to its first entry, per
// PreviousHopBlockProcessor::prepare's "keep at most one" rule. It does not
// write this node's own EID; blk must already carry at least one reference.
func (PreviousHopProcessor) Prepare(blk *bundle.Block, b *bundle.Bundle) error {
	if len(blk.EIDRefs) == 0 {
		return fmt.Errorf("block: previous-hop block requires an EID reference")
	}
	blk.EIDRefs = blk.EIDRefs[:1]
	return nil
}

// Generate emits no body bytes of its own: the previous-hop EID travels in
// blk.EIDRefs, which the wire codec serializes as part of the block's
// preamble rather than its data payload.
func (PreviousHopProcessor) Generate(blk *bundle.Block, b *bundle.Bundle, last bool) ([]byte, error) {
	if last {
		blk.Flags |= bundle.BlockLastBlock
	} else {
		blk.Flags &^= bundle.BlockLastBlock
	}
	return blk.Data, nil
}

// Validate enforces that at most one previous-hop block is present.
func (PreviousHopProcessor) Validate(blk *bundle.Block, b *bundle.Bundle) error {
	count := 0
	for _, other := range b.Blocks {
		if other.TypeCode == PreviousHopTypeCode {
			count++
		}
	}
	if count > 1 {
		return fmt.Errorf("block: bundle must have at most one previous-hop block, has %d", count)
	}
	return nil
}
