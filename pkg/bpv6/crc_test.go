package bpv6

import "testing"

func TestChecksumLengths(t *testing.T) {
	data := []byte("hello world!")

	for _, tt := range []struct {
		crcType CRCType
		want    int
	}{
		{CRCNo, 0},
		{CRC16, 2},
		{CRC32, 4},
	} {
		sum, err := Checksum(data, tt.crcType)
		if err != nil {
			t.Fatalf("Checksum(%v) failed: %v", tt.crcType, err)
		}
		if len(sum) != tt.want {
			t.Fatalf("Checksum(%v) returned %d bytes, want %d", tt.crcType, len(sum), tt.want)
		}
	}
}

func TestChecksumUnknownType(t *testing.T) {
	if _, err := Checksum([]byte("x"), CRCType(99)); err == nil {
		t.Fatal("expected an error for an unknown CRCType")
	}
}

func TestVerifyDetectsCorruption(t *testing.T) {
	data := []byte("hello world!")
	sum, err := Checksum(data, CRC32)
	if err != nil {
		t.Fatalf("Checksum failed: %v", err)
	}
	withSum := append(append([]byte(nil), data...), sum...)

	ok, err := Verify(withSum, CRC32)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !ok {
		t.Fatal("expected Verify to accept an untouched checksum")
	}

	withSum[0] ^= 0xFF
	ok, err = Verify(withSum, CRC32)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if ok {
		t.Fatal("expected Verify to reject corrupted data")
	}
}

func TestVerifyNoCRC(t *testing.T) {
	ok, err := Verify([]byte("anything"), CRCNo)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !ok {
		t.Fatal("CRCNo should always verify")
	}
}
