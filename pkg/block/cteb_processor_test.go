package block

import (
	"testing"

	"github.com/dtn7/dtnme-go/pkg/bundle"
)

func TestCTEBProcessorValidateRequiresCustodianEID(t *testing.T) {
	proc := CTEBProcessor{}
	blk := &bundle.Block{TypeCode: CTEBTypeCode}
	b := &bundle.Bundle{Blocks: []*bundle.Block{blk}}

	if err := proc.Validate(blk, b); err == nil {
		t.Fatal("expected an error for a CTEB with no custodian EID reference")
	}

	blk.EIDRefs = []bundle.EndpointID{bundle.MustNewEndpointID("dtn://custodian/")}
	if err := proc.Validate(blk, b); err != nil {
		t.Fatalf("expected no error once a custodian EID is set, got %v", err)
	}
}

func TestCTEBProcessorValidateAtMostOne(t *testing.T) {
	proc := CTEBProcessor{}
	eid := bundle.MustNewEndpointID("dtn://custodian/")
	b := &bundle.Bundle{
		Blocks: []*bundle.Block{
			{TypeCode: CTEBTypeCode, Number: 1, EIDRefs: []bundle.EndpointID{eid}},
			{TypeCode: CTEBTypeCode, Number: 2, EIDRefs: []bundle.EndpointID{eid}},
		},
	}

	if err := proc.Validate(b.Blocks[0], b); err == nil {
		t.Fatal("expected an error for two CTEBs")
	}
}
