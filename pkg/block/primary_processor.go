package block

import (
	"fmt"

	"github.com/dtn7/dtnme-go/pkg/bundle"
)

// PrimaryTypeCode is the reserved block type code conventionally used for
// the primary block, per original_source/servlib/bundling/BlockInfo.h's
// type_t enumeration. Unlike every other registered type code the primary
// block never appears as an entry in Bundle.Blocks -- its fields live
// directly on Bundle -- so PrimaryProcessor is dispatched explicitly by
// Registry.ValidatePrimary rather than from the per-block loop in
// ValidateAll.
const PrimaryTypeCode uint64 = 0

// PrimaryProcessor enforces the primary-block-level invariants every bundle
// must satisfy regardless of wire version, grounded in
// original_source/servlib/bundling/BundleProtocol.cc's validate_bundle: a
// non-zero lifetime, a set source endpoint unless the bundle is
// administrative, and at least one canonical block. Expiry relative to the
// creation timestamp is not checked here.
type PrimaryProcessor struct{}

// Consume is unused: the primary block's wire bytes are parsed directly by
// the BPv6/BPv7 codecs into Bundle's own fields, never through the generic
// per-block Consume path.
func (PrimaryProcessor) Consume(blk *bundle.Block, data []byte) (int, error) {
	return 0, fmt.Errorf("block: primary block is not consumed through the generic block path")
}

// Prepare is unused for the same reason Consume is.
func (PrimaryProcessor) Prepare(blk *bundle.Block, b *bundle.Bundle) error {
	return nil
}

// Generate is unused for the same reason Consume is.
func (PrimaryProcessor) Generate(blk *bundle.Block, b *bundle.Bundle, last bool) ([]byte, error) {
	return nil, fmt.Errorf("block: primary block is not generated through the generic block path")
}

// Validate checks the bundle-level invariants carried by the primary block.
// blk is always nil here; the checks operate on b directly.
func (PrimaryProcessor) Validate(blk *bundle.Block, b *bundle.Bundle) error {
	if b.Lifetime == 0 {
		return fmt.Errorf("block: primary block lifetime must be non-zero")
	}
	if !b.ProcFlags.Has(bundle.IsAdministrative) && b.Source == (bundle.EndpointID{}) {
		return fmt.Errorf("block: primary block source endpoint must be set on a non-administrative bundle")
	}
	if len(b.Blocks) == 0 {
		return fmt.Errorf("block: bundle must carry at least a payload block")
	}
	return nil
}
