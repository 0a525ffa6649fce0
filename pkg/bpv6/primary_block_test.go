package bpv6

import (
	"reflect"
	"testing"

	"github.com/dtn7/dtnme-go/pkg/bundle"
)

func setupPrimaryBlock() PrimaryBlock {
	dest := bundle.MustNewEndpointID("dtn:foobar")
	src := bundle.MustNewEndpointID("dtn:me")
	report := bundle.MustNewEndpointID("dtn:me")
	cust := bundle.MustNewEndpointID("dtn:none")

	return PrimaryBlock{
		ProcFlags:         bundle.CustodyRequested,
		Destination:       dest,
		Source:            src,
		ReportTo:          report,
		Custodian:         cust,
		CreationTimestamp: 700000000,
		SequenceNumber:    1,
		Lifetime:          10 * 60 * 1000,
	}
}

func TestPrimaryBlockRoundTrip(t *testing.T) {
	pb := setupPrimaryBlock()

	wire := Marshal(pb)
	pb2, n, err := Unmarshal(wire)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if n != len(wire) {
		t.Fatalf("Unmarshal consumed %d of %d bytes", n, len(wire))
	}

	if !reflect.DeepEqual(pb, pb2) {
		t.Fatalf("primary block changed after round trip: %v != %v", pb, pb2)
	}
}

func TestPrimaryBlockFragmentRoundTrip(t *testing.T) {
	pb := setupPrimaryBlock()
	pb.ProcFlags |= bundle.IsFragment
	pb.FragmentOffset = 128
	pb.TotalDataLength = 4096

	wire := Marshal(pb)
	pb2, _, err := Unmarshal(wire)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if !reflect.DeepEqual(pb, pb2) {
		t.Fatalf("fragmented primary block changed after round trip: %v != %v", pb, pb2)
	}
}

func TestPrimaryBlockSharesDictionaryEntries(t *testing.T) {
	eid := bundle.MustNewEndpointID("dtn:same")
	pb := PrimaryBlock{
		ProcFlags:   0,
		Destination: eid,
		Source:      eid,
		ReportTo:    eid,
		Custodian:   eid,
	}

	wire := Marshal(pb)
	pb2, _, err := Unmarshal(wire)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if pb2.Destination != pb2.Source || pb2.Source != pb2.ReportTo || pb2.ReportTo != pb2.Custodian {
		t.Fatalf("endpoints did not resolve identically: %v", pb2)
	}
}

func TestUnmarshalRejectsWrongVersion(t *testing.T) {
	wire := Marshal(setupPrimaryBlock())
	wire[0] = 5

	if _, _, err := Unmarshal(wire); err == nil {
		t.Fatal("expected an error for an unsupported version byte")
	}
}

func TestUnmarshalRejectsTruncatedBuffer(t *testing.T) {
	wire := Marshal(setupPrimaryBlock())

	if _, _, err := Unmarshal(wire[:len(wire)-1]); err == nil {
		t.Fatal("expected an error for a truncated primary block")
	}
}
