package block

import (
	"fmt"

	"github.com/dtn7/dtnme-go/pkg/bundle"
)

// PayloadTypeCode is the canonical block type code for the payload block,
// shared between BPv6 and BPv7 (spec §3).
const PayloadTypeCode uint64 = 1

// PayloadProcessor handles the mandatory payload block.
type PayloadProcessor struct{}

// Consume appends payload bytes straight into the block's Data. Callers may
// invoke it repeatedly with successive chunks; each call appends its chunk
// and sets Complete, since the processor has no declared length to wait for.
func (PayloadProcessor) Consume(blk *bundle.Block, data []byte) (int, error) {
	blk.Data = append(blk.Data, data...)
	blk.Complete = true
	return len(data), nil
}

// Prepare is a no-op: payload contents are set by the application agent, not
// by the block processor.
func (PayloadProcessor) Prepare(blk *bundle.Block, b *bundle.Bundle) error {
	return nil
}

// Generate marks the payload block last (it always is, per spec §3's
// "payload-block-once" invariant combined with block ordering) and emits its
// bytes verbatim.
func (PayloadProcessor) Generate(blk *bundle.Block, b *bundle.Bundle, last bool) ([]byte, error) {
	if !last {
		return nil, fmt.Errorf("block: payload block must be the last block")
	}
	blk.Flags |= bundle.BlockLastBlock
	return blk.Data, nil
}

// Validate enforces that exactly one payload block exists per bundle and
// that it is positioned last.
func (PayloadProcessor) Validate(blk *bundle.Block, b *bundle.Bundle) error {
	count := 0
	for _, other := range b.Blocks {
		if other.TypeCode == PayloadTypeCode {
			count++
		}
	}
	if count != 1 {
		return fmt.Errorf("block: bundle must have exactly one payload block, has %d", count)
	}
	if len(b.Blocks) > 0 && b.Blocks[len(b.Blocks)-1].TypeCode != PayloadTypeCode {
		return fmt.Errorf("block: payload block must be the last block")
	}
	return nil
}
