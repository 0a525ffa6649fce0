// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"fmt"
	"io"
	"regexp"
	"strconv"

	"github.com/dtn7/cboring"
)

const (
	ipnEndpointSchemeName string = "ipn"
	ipnEndpointSchemeNo   uint64 = 2
)

var ipnEndpointUriRe = regexp.MustCompile(`^ipn:(\d+)\.(\d+)$`)

// IpnEndpoint describes the ipn URI scheme for EndpointIDs, as defined in
// RFC 6260: "ipn:<node-number>.<service-number>".
type IpnEndpoint struct {
	Node    uint64
	Service uint64
}

// NewIpnEndpoint parses an URI with the ipn scheme.
func NewIpnEndpoint(uri string) (EndpointType, error) {
	m := ipnEndpointUriRe.FindStringSubmatch(uri)
	if m == nil {
		return nil, fmt.Errorf("%q is not a valid ipn endpoint", uri)
	}

	node, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return nil, err
	}
	service, err := strconv.ParseUint(m[2], 10, 64)
	if err != nil {
		return nil, err
	}

	if node < 1 || service < 1 {
		return nil, fmt.Errorf("ipn endpoint's node and service number must both be >= 1")
	}

	return IpnEndpoint{Node: node, Service: service}, nil
}

// SchemeName is "ipn" for IpnEndpoints.
func (IpnEndpoint) SchemeName() string {
	return ipnEndpointSchemeName
}

// SchemeNo is 2 for IpnEndpoints.
func (IpnEndpoint) SchemeNo() uint64 {
	return ipnEndpointSchemeNo
}

// Authority is the node number part of the Endpoint URI.
func (e IpnEndpoint) Authority() string {
	return strconv.FormatUint(e.Node, 10)
}

// Path is the service number part of the Endpoint URI.
func (e IpnEndpoint) Path() string {
	return strconv.FormatUint(e.Service, 10)
}

// IsSingleton is always true for IpnEndpoints; ipn has no group notation.
func (IpnEndpoint) IsSingleton() bool {
	return true
}

// CheckValid returns an error unless both node and service number are >= 1.
func (e IpnEndpoint) CheckValid() error {
	if e.Node < 1 || e.Service < 1 {
		return fmt.Errorf("ipn endpoint's node and service number must both be >= 1")
	}
	return nil
}

func (e IpnEndpoint) String() string {
	return fmt.Sprintf("%s:%d.%d", ipnEndpointSchemeName, e.Node, e.Service)
}

// MarshalCbor writes this IpnEndpoint's CBOR representation, a two-element
// array of [node-number, service-number].
func (e IpnEndpoint) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(2, w); err != nil {
		return err
	}
	if err := cboring.WriteUInt(e.Node, w); err != nil {
		return err
	}
	return cboring.WriteUInt(e.Service, w)
}

// UnmarshalCbor reads a CBOR representation of an IpnEndpoint.
func (e *IpnEndpoint) UnmarshalCbor(r io.Reader) error {
	if l, err := cboring.ReadArrayLength(r); err != nil {
		return err
	} else if l != 2 {
		return fmt.Errorf("IpnEndpoint expects array of 2 elements, not %d", l)
	}

	node, err := cboring.ReadUInt(r)
	if err != nil {
		return err
	}
	service, err := cboring.ReadUInt(r)
	if err != nil {
		return err
	}

	e.Node = node
	e.Service = service
	return nil
}
