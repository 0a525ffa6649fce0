// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"fmt"
	"io"
	"strings"

	"github.com/dtn7/cboring"
)

// EndpointType describes a discrete EndpointID, e.g., a DtnEndpoint or an
// IpnEndpoint. Because of Go's type system, MarshalCbor must be a value
// receiver here while each concrete type's UnmarshalCbor is a pointer
// receiver dispatched directly in EndpointID.UnmarshalCbor instead of
// through this interface.
type EndpointType interface {
	// SchemeName returns the static URI scheme for this endpoint, e.g., "dtn".
	SchemeName() string

	// SchemeNo returns the static URI scheme number, e.g., 1 for "dtn".
	SchemeNo() uint64

	// Authority is the authority part of the Endpoint URI, e.g., "foo" for "dtn://foo/bar".
	Authority() string

	// Path is the path part of the Endpoint URI, e.g., "/bar" for "dtn://foo/bar".
	Path() string

	// IsSingleton reports whether this Endpoint represents a singleton.
	IsSingleton() bool

	MarshalCbor(io.Writer) error

	Valid
	fmt.Stringer
}

// EndpointID represents an Endpoint ID as defined in RFC 9171 section 4.2.5.
// Its concrete form is held by an EndpointType, e.g., DtnEndpoint or IpnEndpoint.
//
// This package supports a fixed set of schemes (dtn, ipn) directly instead
// of the reflect-based pluggable scheme registry of earlier designs; both
// schemes this engine ever sees are known at compile time.
type EndpointID struct {
	EndpointType EndpointType
}

// NewEndpointID parses an URI, e.g., "dtn://seven/" or "ipn:23.42".
func NewEndpointID(uri string) (EndpointID, error) {
	switch {
	case strings.HasPrefix(uri, dtnEndpointSchemeName+":"):
		et, err := NewDtnEndpoint(uri)
		if err != nil {
			return EndpointID{}, err
		}
		return EndpointID{et}, nil

	case strings.HasPrefix(uri, ipnEndpointSchemeName+":"):
		et, err := NewIpnEndpoint(uri)
		if err != nil {
			return EndpointID{}, err
		}
		return EndpointID{et}, nil

	default:
		return EndpointID{}, fmt.Errorf("unknown or missing URI scheme in %q", uri)
	}
}

// MustNewEndpointID parses an URI like NewEndpointID, but panics on error.
func MustNewEndpointID(uri string) EndpointID {
	ep, err := NewEndpointID(uri)
	if err != nil {
		panic(err)
	}
	return ep
}

// MarshalCbor writes the CBOR representation of this Endpoint ID.
func (eid *EndpointID) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(2, w); err != nil {
		return err
	}
	if err := cboring.WriteUInt(eid.EndpointType.SchemeNo(), w); err != nil {
		return err
	}
	return eid.EndpointType.MarshalCbor(w)
}

// UnmarshalCbor reads an Endpoint ID's CBOR representation.
func (eid *EndpointID) UnmarshalCbor(r io.Reader) error {
	if l, err := cboring.ReadArrayLength(r); err != nil {
		return err
	} else if l != 2 {
		return fmt.Errorf("EndpointID expects array of 2 elements, not %d", l)
	}

	scheme, err := cboring.ReadUInt(r)
	if err != nil {
		return err
	}

	switch scheme {
	case dtnEndpointSchemeNo:
		var e DtnEndpoint
		if err := e.UnmarshalCbor(r); err != nil {
			return err
		}
		eid.EndpointType = e

	case ipnEndpointSchemeNo:
		var e IpnEndpoint
		if err := e.UnmarshalCbor(r); err != nil {
			return err
		}
		eid.EndpointType = e

	default:
		return fmt.Errorf("no URI scheme registered for scheme number %d", scheme)
	}

	return nil
}

// Authority is the authority part of the Endpoint URI, e.g., "foo" for "dtn://foo/bar".
func (eid EndpointID) Authority() string {
	return eid.EndpointType.Authority()
}

// Path is the path part of the Endpoint URI, e.g., "/bar" for "dtn://foo/bar".
func (eid EndpointID) Path() string {
	return eid.EndpointType.Path()
}

// IsSingleton reports whether this Endpoint represents a singleton.
func (eid EndpointID) IsSingleton() bool {
	return eid.EndpointType.IsSingleton()
}

// schemeAuthority treats a nil EndpointType as equivalent to dtn:none for
// SameNode comparisons, matching ForwardingInfo's "no remote EID yet" state.
func schemeAuthority(eid EndpointID) (scheme, authority string) {
	if eid.EndpointType == nil {
		return dtnEndpointSchemeName, dtnEndpointDtnNoneSsp
	}
	return eid.EndpointType.SchemeName(), eid.EndpointType.Authority()
}

// SameNode checks if two Endpoints belong to the same node, based on the
// scheme and authority part.
func (eid EndpointID) SameNode(other EndpointID) bool {
	s1, a1 := schemeAuthority(eid)
	s2, a2 := schemeAuthority(other)
	return s1 == s2 && a1 == a2
}

// CheckValid returns an error for an incorrectly formed Endpoint ID.
func (eid EndpointID) CheckValid() error {
	if eid.EndpointType == nil {
		return fmt.Errorf("EndpointID has no EndpointType set")
	}
	return eid.EndpointType.CheckValid()
}

func (eid EndpointID) String() string {
	if eid.EndpointType == nil {
		return DtnNone().String()
	}
	return eid.EndpointType.String()
}
