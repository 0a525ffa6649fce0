package bibe

import (
	"bytes"
	"testing"

	"github.com/dtn7/cboring"
)

func buildRecord(t *testing.T, txID, retransmitTime uint64, encapsulated []byte) []byte {
	t.Helper()

	buf := new(bytes.Buffer)
	if err := cboring.WriteArrayLength(2, buf); err != nil {
		t.Fatal(err)
	}
	if err := cboring.WriteUInt(AdminRecordTypeBundleInBundle, buf); err != nil {
		t.Fatal(err)
	}
	if err := cboring.WriteArrayLength(3, buf); err != nil {
		t.Fatal(err)
	}
	if err := cboring.WriteUInt(txID, buf); err != nil {
		t.Fatal(err)
	}
	if err := cboring.WriteUInt(retransmitTime, buf); err != nil {
		t.Fatal(err)
	}
	if err := cboring.WriteByteString(encapsulated, buf); err != nil {
		t.Fatal(err)
	}

	return buf.Bytes()
}

func TestDecodeHeaderRoundTrip(t *testing.T) {
	encapsulated := []byte("pretend this is a whole encapsulated bundle")
	data := buildRecord(t, 42, 1000, encapsulated)

	header, declaredLen, err := DecodeHeader(data)
	if err != nil {
		t.Fatalf("DecodeHeader failed: %v", err)
	}
	if header.TransmissionID != 42 {
		t.Errorf("TransmissionID = %d, want 42", header.TransmissionID)
	}
	if header.RetransmissionTime != 1000 {
		t.Errorf("RetransmissionTime = %d, want 1000", header.RetransmissionTime)
	}
	if declaredLen != uint64(len(encapsulated)) {
		t.Errorf("declared length = %d, want %d", declaredLen, len(encapsulated))
	}

	remainder := data[header.BytesConsumed:]
	if !bytes.Equal(remainder[:declaredLen], encapsulated) {
		t.Errorf("bytes after the header do not match the encapsulated bundle")
	}
}

func TestDecodeHeaderWrongRecordType(t *testing.T) {
	buf := new(bytes.Buffer)
	cboring.WriteArrayLength(2, buf)
	cboring.WriteUInt(1, buf) // status report, not BIBE
	cboring.WriteArrayLength(3, buf)
	cboring.WriteUInt(1, buf)
	cboring.WriteUInt(2, buf)
	cboring.WriteByteString([]byte("x"), buf)

	if _, _, err := DecodeHeader(buf.Bytes()); err == nil {
		t.Fatal("expected an error for a non-BIBE record type")
	}
}

func TestDecodeHeaderTruncated(t *testing.T) {
	data := buildRecord(t, 1, 2, []byte("x"))
	if _, _, err := DecodeHeader(data[:2]); err == nil {
		t.Fatal("expected an error for truncated input")
	}
}
