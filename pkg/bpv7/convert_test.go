package bpv7

import (
	"bytes"
	"testing"
)

func TestSharedBundleRoundTrip(t *testing.T) {
	wire := Builder().
		Source("dtn://src/").
		Destination("dtn://dest/").
		CreationTimestampNow().
		Lifetime("60m").
		HopCountBlock(10).
		PayloadBlock([]byte("hello world")).
		mustBuild()

	shared, err := ToSharedBundle(wire)
	if err != nil {
		t.Fatalf("ToSharedBundle failed: %v", err)
	}

	if shared.Source.String() != "dtn://src/" || shared.Destination.String() != "dtn://dest/" {
		t.Fatalf("endpoints changed: %+v", shared)
	}
	if shared.Payload == nil || !bytes.Equal(shared.Payload.Bytes(), []byte("hello world")) {
		t.Fatalf("payload changed: %+v", shared.Payload)
	}

	back, err := FromSharedBundle(shared)
	if err != nil {
		t.Fatalf("FromSharedBundle failed: %v", err)
	}

	if back.PrimaryBlock.Destination.String() != wire.PrimaryBlock.Destination.String() {
		t.Fatalf("destination changed after round trip: %v != %v",
			back.PrimaryBlock.Destination, wire.PrimaryBlock.Destination)
	}

	payloadBlock, err := back.PayloadBlock()
	if err != nil {
		t.Fatalf("PayloadBlock failed: %v", err)
	}
	if !bytes.Equal(payloadBlock.Value.(*PayloadBlock).Data(), []byte("hello world")) {
		t.Fatalf("payload changed after second round trip")
	}
}

func TestEncodeDecodeWireRoundTrip(t *testing.T) {
	b := Builder().
		Source("dtn://src/").
		Destination("dtn://dest/").
		CreationTimestampNow().
		Lifetime("60m").
		PayloadBlock([]byte("payload data")).
		mustBuild()

	shared, err := ToSharedBundle(b)
	if err != nil {
		t.Fatalf("ToSharedBundle failed: %v", err)
	}

	wireBytes, err := Encode(shared)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	got, err := Decode(wireBytes)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if got.Source != shared.Source || got.Destination != shared.Destination {
		t.Fatalf("endpoints changed after wire round trip: %+v", got)
	}
	if !bytes.Equal(got.Payload.Bytes(), []byte("payload data")) {
		t.Fatalf("payload changed after wire round trip")
	}
}
