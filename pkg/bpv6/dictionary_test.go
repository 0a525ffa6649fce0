package bpv6

import "testing"

func TestDictionaryInternAndResolve(t *testing.T) {
	dict := NewDictionary()

	ref := dict.intern("dtn:foobar")
	uri, err := dict.resolve(ref)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if uri != "dtn:foobar" {
		t.Fatalf("resolve returned %q, want %q", uri, "dtn:foobar")
	}
}

func TestDictionaryInternDeduplicates(t *testing.T) {
	dict := NewDictionary()

	a := dict.intern("dtn:foobar")
	b := dict.intern("dtn:foobar")

	if a != b {
		t.Fatalf("interning the same URI twice produced different offsets: %v != %v", a, b)
	}
	if len(dict.Bytes()) != len("dtn")+1+len("foobar")+1 {
		t.Fatalf("dictionary grew on a duplicate intern: %d bytes", len(dict.Bytes()))
	}
}

func TestLoadDictionaryRoundTrip(t *testing.T) {
	dict := NewDictionary()
	ref := dict.intern("ipn:1.2")

	loaded := LoadDictionary(dict.Bytes())
	uri, err := loaded.resolve(ref)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if uri != "ipn:1.2" {
		t.Fatalf("resolve returned %q, want %q", uri, "ipn:1.2")
	}
}

func TestDictionaryLookupOutOfRange(t *testing.T) {
	dict := NewDictionary()
	dict.intern("dtn:x")

	if _, err := dict.Lookup(1000); err == nil {
		t.Fatal("expected an error for an out-of-range offset")
	}
}
