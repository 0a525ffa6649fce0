package block

import (
	"encoding/binary"
	"testing"

	"github.com/dtn7/dtnme-go/pkg/bundle"
)

func TestBundleAgeProcessorGenerateEncodesMillis(t *testing.T) {
	proc := BundleAgeProcessor{}
	blk := &bundle.Block{TypeCode: BundleAgeTypeCode}
	blk.Data = make([]byte, 8)
	binary.BigEndian.PutUint64(blk.Data, 1500)

	out, err := proc.Generate(blk, &bundle.Bundle{}, true)
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	if got := binary.BigEndian.Uint64(out); got != 1500 {
		t.Errorf("Generate() encoded %d ms, want 1500", got)
	}
}

func TestBundleAgeProcessorValidateRejectsWrongLength(t *testing.T) {
	proc := BundleAgeProcessor{}
	blk := &bundle.Block{TypeCode: BundleAgeTypeCode, Data: []byte{1, 2, 3}}

	if err := proc.Validate(blk, &bundle.Bundle{Blocks: []*bundle.Block{blk}}); err == nil {
		t.Fatal("expected an error for a non-8-byte age value")
	}
}

func TestBundleAgeProcessorValidateAtMostOne(t *testing.T) {
	proc := BundleAgeProcessor{}
	b := &bundle.Bundle{
		Blocks: []*bundle.Block{
			{TypeCode: BundleAgeTypeCode, Number: 1, Data: make([]byte, 8)},
			{TypeCode: BundleAgeTypeCode, Number: 2, Data: make([]byte, 8)},
		},
	}

	if err := proc.Validate(b.Blocks[0], b); err == nil {
		t.Fatal("expected an error for two bundle age blocks")
	}
}
