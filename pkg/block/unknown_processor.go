package block

import (
	"fmt"

	"github.com/dtn7/dtnme-go/pkg/bundle"
)

// UnknownProcessor is the fallback Processor for block type codes with no
// dedicated registration, grounded in
// original_source/servlib/bundling/UnknownBlockProcessor.cc: it consumes and
// re-emits the block's bytes verbatim, marks it forwarded-unprocessed, and
// lets the block's own flags decide whether an unintelligible block is fatal
// to the bundle.
type UnknownProcessor struct{}

// Consume copies data verbatim into the block; an unknown block type is
// never itself malformed, only unrecognized.
func (UnknownProcessor) Consume(blk *bundle.Block, data []byte) (int, error) {
	blk.Data = append(blk.Data, data...)
	blk.Complete = true
	return len(data), nil
}

// Prepare is a no-op: an unknown block is never locally originated.
func (UnknownProcessor) Prepare(blk *bundle.Block, b *bundle.Bundle) error {
	return nil
}

// Generate marks the block forwarded-unprocessed and re-emits its stored
// bytes, updating the last-block flag, per UnknownBlockProcessor::generate.
func (UnknownProcessor) Generate(blk *bundle.Block, b *bundle.Bundle, last bool) ([]byte, error) {
	blk.Flags |= bundle.BlockForwardedUnprocessed
	if last {
		blk.Flags |= bundle.BlockLastBlock
	} else {
		blk.Flags &^= bundle.BlockLastBlock
	}
	return blk.Data, nil
}

// Validate reports an error when the block is flagged to discard the whole
// bundle on an unintelligible block; a DiscardOnError-only block is left to
// the caller to quietly drop, per UnknownBlockProcessor::validate.
func (UnknownProcessor) Validate(blk *bundle.Block, b *bundle.Bundle) error {
	if blk.Flags&bundle.BlockDeleteBundleOnError != 0 {
		return fmt.Errorf("block: type %d is unintelligible and flagged to delete the bundle", blk.TypeCode)
	}
	return nil
}
