// Package bundle implements the version-agnostic bundle data model shared by
// the bpv6 and bpv7 wire codecs: endpoints, blocks, the forwarding log and
// custody timer specification (spec §3).
package bundle

import (
	"fmt"
	"regexp"
	"strings"
)

// EndpointID is a "scheme:ssp" DTN endpoint identifier, shared by both bundle
// protocol versions. Unlike the teacher's pluggable EndpointType registry
// (bpv7/endpoint_dtn.go, endpoint_ipn.go), this is a plain struct: the spec's
// endpoint model never needs scheme-specific typed SSPs, only comparison,
// wildcard matching and round-trip string formatting.
type EndpointID struct {
	Scheme string
	SSP    string
}

// NewEndpointID parses a "scheme:ssp" URI into an EndpointID.
func NewEndpointID(uri string) (EndpointID, error) {
	parts := strings.SplitN(uri, ":", 2)
	if len(parts) != 2 || parts[0] == "" {
		return EndpointID{}, fmt.Errorf("bundle: %q is not a valid endpoint URI", uri)
	}

	return EndpointID{Scheme: parts[0], SSP: parts[1]}, nil
}

// MustNewEndpointID is like NewEndpointID but panics on error. Intended for
// constants and tests.
func MustNewEndpointID(uri string) EndpointID {
	eid, err := NewEndpointID(uri)
	if err != nil {
		panic(err)
	}
	return eid
}

// DtnNone is the "null" endpoint, dtn:none, used as ReportTo or Custodian
// when no meaningful value applies.
func DtnNone() EndpointID {
	return EndpointID{Scheme: "dtn", SSP: "none"}
}

// WildcardEID is the "match everything" endpoint used by RouteTable's
// wildcard routes and ForwardingLog's suppression entry.
func WildcardEID() EndpointID {
	return EndpointID{Scheme: "dtn", SSP: "*"}
}

// IsNone reports whether this is the dtn:none endpoint.
func (e EndpointID) IsNone() bool {
	return e.Scheme == "dtn" && e.SSP == "none"
}

// IsWildcard reports whether this endpoint is the literal "*" wildcard.
func (e EndpointID) IsWildcard() bool {
	return e.SSP == "*"
}

// String formats the endpoint as "scheme:ssp".
func (e EndpointID) String() string {
	return e.Scheme + ":" + e.SSP
}

// Equal reports whether two EndpointIDs are identical.
func (e EndpointID) Equal(other EndpointID) bool {
	return e.Scheme == other.Scheme && e.SSP == other.SSP
}

// EndpointIDPattern is a glob-style pattern over an EndpointID's SSP, used by
// RouteTable entries to match a class of destinations (e.g. "dtn://relay/*").
// Grounded in RouteTable.cc's strstr(eid.uri(), "*") wildcard-dest handling.
type EndpointIDPattern struct {
	Scheme string
	SSP    string
}

// NewEndpointIDPattern parses a "scheme:ssp" pattern, where ssp may contain
// "*" glob wildcards.
func NewEndpointIDPattern(uri string) (EndpointIDPattern, error) {
	parts := strings.SplitN(uri, ":", 2)
	if len(parts) != 2 || parts[0] == "" {
		return EndpointIDPattern{}, fmt.Errorf("bundle: %q is not a valid endpoint pattern", uri)
	}

	return EndpointIDPattern{Scheme: parts[0], SSP: parts[1]}, nil
}

// MustNewEndpointIDPattern is like NewEndpointIDPattern but panics on error.
func MustNewEndpointIDPattern(uri string) EndpointIDPattern {
	pat, err := NewEndpointIDPattern(uri)
	if err != nil {
		panic(err)
	}
	return pat
}

// WildcardPattern matches any EndpointID whatsoever.
func WildcardPattern() EndpointIDPattern {
	return EndpointIDPattern{Scheme: "*", SSP: "*"}
}

// String formats the pattern as "scheme:ssp".
func (p EndpointIDPattern) String() string {
	return p.Scheme + ":" + p.SSP
}

// Equal reports whether two patterns are textually identical.
func (p EndpointIDPattern) Equal(other EndpointIDPattern) bool {
	return p.Scheme == other.Scheme && p.SSP == other.SSP
}

// Length returns a rough specificity measure: longer, less-wildcarded
// patterns sort before shorter ones when multiple route entries match the
// same destination (mirrors the teacher's priority-sort tie-break).
func (p EndpointIDPattern) Length() int {
	return len(p.Scheme) + len(p.SSP) - strings.Count(p.SSP, "*")
}

// Match reports whether eid satisfies this pattern. The "*" scheme matches
// any scheme; "*" anywhere in the SSP is a glob wildcard.
func (p EndpointIDPattern) Match(eid EndpointID) bool {
	if p.Scheme != "*" && p.Scheme != eid.Scheme {
		return false
	}
	if p.SSP == "*" {
		return true
	}

	re, err := globToRegexp(p.SSP)
	if err != nil {
		return false
	}
	return re.MatchString(eid.SSP)
}

// globToRegexp compiles a "*"-glob SSP pattern into an anchored regexp.
func globToRegexp(glob string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteByte('^')
	for _, part := range strings.Split(glob, "*") {
		b.WriteString(regexp.QuoteMeta(part))
		b.WriteString(".*")
	}
	pattern := strings.TrimSuffix(b.String(), ".*") + "$"
	return regexp.Compile(pattern)
}
