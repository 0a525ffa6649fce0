package bundle

import "testing"

func TestEndpointIDRoundTrip(t *testing.T) {
	tests := []struct {
		uri    string
		scheme string
		ssp    string
	}{
		{"dtn:none", "dtn", "none"},
		{"dtn://node1/incoming", "dtn", "//node1/incoming"},
		{"ipn:1.2", "ipn", "1.2"},
	}

	for _, test := range tests {
		eid, err := NewEndpointID(test.uri)
		if err != nil {
			t.Fatalf("NewEndpointID(%q) failed: %v", test.uri, err)
		}
		if eid.Scheme != test.scheme || eid.SSP != test.ssp {
			t.Errorf("NewEndpointID(%q) = %+v, want scheme=%q ssp=%q", test.uri, eid, test.scheme, test.ssp)
		}
		if eid.String() != test.uri {
			t.Errorf("String() = %q, want %q", eid.String(), test.uri)
		}
	}
}

func TestEndpointIDInvalid(t *testing.T) {
	for _, uri := range []string{"", "noscheme", ":noscheme"} {
		if _, err := NewEndpointID(uri); err == nil {
			t.Errorf("NewEndpointID(%q) should have failed", uri)
		}
	}
}

func TestEndpointIDEqual(t *testing.T) {
	a := MustNewEndpointID("dtn://node1/mail")
	b := MustNewEndpointID("dtn://node1/mail")
	c := MustNewEndpointID("dtn://node2/mail")

	if !a.Equal(b) {
		t.Errorf("%v should equal %v", a, b)
	}
	if a.Equal(c) {
		t.Errorf("%v should not equal %v", a, c)
	}
}

func TestEndpointIDPatternMatch(t *testing.T) {
	tests := []struct {
		pattern string
		eid     string
		want    bool
	}{
		{"dtn:*", "dtn://node1/mail", true},
		{"dtn://node1/*", "dtn://node1/mail", true},
		{"dtn://node1/*", "dtn://node2/mail", false},
		{"*:*", "ipn:1.2", true},
		{"ipn:*", "dtn://node1/mail", false},
	}

	for _, test := range tests {
		pat := MustNewEndpointIDPattern(test.pattern)
		eid := MustNewEndpointID(test.eid)
		if got := pat.Match(eid); got != test.want {
			t.Errorf("pattern %q matching %q = %v, want %v", test.pattern, test.eid, got, test.want)
		}
	}
}

func TestWildcardPatternMatchesEverything(t *testing.T) {
	pat := WildcardPattern()
	for _, uri := range []string{"dtn:none", "ipn:1.2", "dtn://far/node"} {
		if !pat.Match(MustNewEndpointID(uri)) {
			t.Errorf("wildcard pattern should match %q", uri)
		}
	}
}
