package block

import (
	"testing"

	"github.com/dtn7/dtnme-go/pkg/bpv6"
	"github.com/dtn7/dtnme-go/pkg/bpv7"
	"github.com/dtn7/dtnme-go/pkg/bundle"
)

func testRegistry() *Registry {
	reg := NewRegistry()
	reg.Register(PrimaryTypeCode, PrimaryProcessor{})
	reg.Register(PayloadTypeCode, PayloadProcessor{})
	reg.SetUnknownProcessor(UnknownProcessor{})
	return reg
}

func TestBundleProtocolConsumeBPv6WholeBuffer(t *testing.T) {
	b := &bundle.Bundle{
		Version:           6,
		Destination:       bundle.MustNewEndpointID("dtn:dest"),
		Source:            bundle.MustNewEndpointID("dtn:src"),
		ReportTo:          bundle.MustNewEndpointID("dtn:none"),
		Custodian:         bundle.MustNewEndpointID("dtn:none"),
		CreationTimestamp: 1000,
		Lifetime:          3600,
		Blocks:            []*bundle.Block{{TypeCode: PayloadTypeCode, Data: []byte("hello world")}},
	}
	wire, err := bpv6.EncodeBundle(b)
	if err != nil {
		t.Fatalf("EncodeBundle failed: %v", err)
	}

	bp := NewBundleProtocol(testRegistry())
	n, complete, err := bp.Consume(wire)
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if !complete {
		t.Fatal("expected the bundle to be complete after one whole-buffer Consume")
	}
	if n != len(wire) {
		t.Errorf("Consume consumed %d bytes, want %d", n, len(wire))
	}

	got := bp.Bundle()
	if got == nil || got.Payload == nil || string(got.Payload.Bytes()) != "hello world" {
		t.Fatalf("unexpected assembled bundle: %+v", got)
	}
	if err := bp.Validate(); err != nil {
		t.Errorf("Validate failed on a well-formed bundle: %v", err)
	}
}

func TestBundleProtocolConsumeBPv6OneByteChunks(t *testing.T) {
	b := &bundle.Bundle{
		Version:           6,
		Destination:       bundle.MustNewEndpointID("dtn:dest"),
		Source:            bundle.MustNewEndpointID("dtn:src"),
		ReportTo:          bundle.MustNewEndpointID("dtn:none"),
		Custodian:         bundle.MustNewEndpointID("dtn:none"),
		CreationTimestamp: 1000,
		Lifetime:          3600,
		Blocks:            []*bundle.Block{{TypeCode: PayloadTypeCode, Data: []byte("hello world")}},
	}
	wire, err := bpv6.EncodeBundle(b)
	if err != nil {
		t.Fatalf("EncodeBundle failed: %v", err)
	}

	bp := NewBundleProtocol(testRegistry())
	var complete bool
	for i := 0; i < len(wire) && !complete; i++ {
		_, c, err := bp.Consume(wire[i : i+1])
		if err != nil {
			t.Fatalf("Consume byte %d failed: %v", i, err)
		}
		complete = c
	}
	if !complete {
		t.Fatal("expected the bundle to complete by the final byte")
	}

	got := bp.Bundle()
	if got == nil || got.Payload == nil || string(got.Payload.Bytes()) != "hello world" {
		t.Fatalf("1-byte-chunk consume produced a different bundle: %+v", got)
	}
}

func TestBundleProtocolConsumeBPv7WholeBuffer(t *testing.T) {
	b := &bundle.Bundle{
		Version:           7,
		Destination:       bundle.MustNewEndpointID("dtn://dest/"),
		Source:            bundle.MustNewEndpointID("dtn://src/"),
		ReportTo:          bundle.MustNewEndpointID("dtn://src/"),
		CreationTimestamp: 1000,
		Lifetime:          3600,
		Blocks:            []*bundle.Block{{TypeCode: PayloadTypeCode, Number: 1, Data: []byte("hi")}},
		Payload:           bundle.NewPayloadMemory([]byte("hi")),
	}
	wire, err := bpv7.Encode(b)
	if err != nil {
		t.Fatalf("bpv7.Encode failed: %v", err)
	}

	bp := NewBundleProtocol(testRegistry())
	_, complete, err := bp.Consume(wire)
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if !complete {
		t.Fatal("expected the CBOR bundle to be complete after one whole-buffer Consume")
	}
	if got := bp.Bundle(); got == nil || got.Payload == nil || string(got.Payload.Bytes()) != "hi" {
		t.Fatalf("unexpected assembled bundle: %+v", got)
	}
}

func TestBundleProducerProduceMatchesOneShot(t *testing.T) {
	b := &bundle.Bundle{
		Version:           6,
		Destination:       bundle.MustNewEndpointID("dtn:dest"),
		Source:            bundle.MustNewEndpointID("dtn:src"),
		ReportTo:          bundle.MustNewEndpointID("dtn:none"),
		Custodian:         bundle.MustNewEndpointID("dtn:none"),
		CreationTimestamp: 1000,
		Lifetime:          3600,
		Blocks:            []*bundle.Block{{TypeCode: PayloadTypeCode, Data: []byte("hello world")}},
	}
	wire, err := bpv6.EncodeBundle(b)
	if err != nil {
		t.Fatalf("EncodeBundle failed: %v", err)
	}

	producer, err := NewBundleProducer(b)
	if err != nil {
		t.Fatalf("NewBundleProducer failed: %v", err)
	}
	if got := producer.TotalLength(); got != len(wire) {
		t.Fatalf("TotalLength() = %d, want %d", got, len(wire))
	}

	var out []byte
	offset := 0
	complete := false
	for !complete {
		chunk := make([]byte, 1)
		n, c, err := producer.Produce(chunk, offset)
		if err != nil {
			t.Fatalf("Produce at offset %d failed: %v", offset, err)
		}
		out = append(out, chunk[:n]...)
		offset += n
		complete = c
	}

	if string(out) != string(wire) {
		t.Fatalf("1-byte-chunk Produce diverged from one-shot EncodeBundle output")
	}
}
