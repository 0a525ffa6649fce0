// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/dtn7/cboring"
)

const (
	dtnEndpointSchemeName string = "dtn"
	dtnEndpointSchemeNo   uint64 = 1
	dtnEndpointDtnNoneSsp string = "none"
)

var dtnEndpointUriRe = regexp.MustCompile(`^dtn://([A-Za-z0-9._-]+)/(.*)$`)

// DtnEndpoint describes the dtn URI scheme for EndpointIDs, as defined in
// RFC 9171 section 4.2.5.1.1: "dtn://<node-name>/<demux>".
type DtnEndpoint struct {
	NodeName  string
	Demux     string
	IsDtnNone bool
}

// NewDtnEndpoint parses an URI with the dtn scheme.
func NewDtnEndpoint(uri string) (EndpointType, error) {
	if uri == dtnEndpointSchemeName+":"+dtnEndpointDtnNoneSsp {
		return DtnEndpoint{IsDtnNone: true}, nil
	}

	m := dtnEndpointUriRe.FindStringSubmatch(uri)
	if m == nil {
		return nil, fmt.Errorf("%q is not a valid dtn endpoint", uri)
	}

	return DtnEndpoint{NodeName: m[1], Demux: m[2]}, nil
}

// SchemeName is "dtn" for DtnEndpoints.
func (DtnEndpoint) SchemeName() string {
	return dtnEndpointSchemeName
}

// SchemeNo is 1 for DtnEndpoints.
func (DtnEndpoint) SchemeNo() uint64 {
	return dtnEndpointSchemeNo
}

// Authority is the authority part of the Endpoint URI, e.g., "foo" for "dtn://foo/bar".
func (e DtnEndpoint) Authority() string {
	if e.IsDtnNone {
		return dtnEndpointDtnNoneSsp
	}
	return e.NodeName
}

// Path is the path part of the Endpoint URI, e.g., "/bar" for "dtn://foo/bar".
func (e DtnEndpoint) Path() string {
	if e.IsDtnNone {
		return "/"
	}
	return "/" + e.Demux
}

// IsSingleton reports whether this Endpoint represents a singleton. dtn:none
// and demultiplexing tokens starting with "~" denote a non-singleton group.
func (e DtnEndpoint) IsSingleton() bool {
	if e.IsDtnNone {
		return false
	}
	return !strings.HasPrefix(e.Demux, "~")
}

// CheckValid returns an error for an incorrectly formed DtnEndpoint. Field
// combinations are already constrained by NewDtnEndpoint and UnmarshalCbor.
func (DtnEndpoint) CheckValid() error {
	return nil
}

func (e DtnEndpoint) String() string {
	if e.IsDtnNone {
		return dtnEndpointSchemeName + ":" + dtnEndpointDtnNoneSsp
	}
	return fmt.Sprintf("%s://%s/%s", dtnEndpointSchemeName, e.NodeName, e.Demux)
}

// MarshalCbor writes this DtnEndpoint's CBOR representation, an unsigned
// integer zero for dtn:none or a text string "//<node-name>/<demux>" otherwise.
func (e DtnEndpoint) MarshalCbor(w io.Writer) error {
	if e.IsDtnNone {
		return cboring.WriteUInt(0, w)
	}
	return cboring.WriteTextString(fmt.Sprintf("//%s/%s", e.NodeName, e.Demux), w)
}

// UnmarshalCbor reads a CBOR representation of a DtnEndpoint.
func (e *DtnEndpoint) UnmarshalCbor(r io.Reader) error {
	m, n, err := cboring.ReadMajors(r)
	if err != nil {
		return err
	}

	switch m {
	case cboring.UInt:
		e.IsDtnNone = true
		e.NodeName = ""
		e.Demux = ""

	case cboring.TextString:
		raw, err := cboring.ReadRawBytes(n, r)
		if err != nil {
			return err
		}

		ssp := strings.TrimPrefix(string(raw), "//")
		parts := strings.SplitN(ssp, "/", 2)
		e.NodeName = parts[0]
		if len(parts) == 2 {
			e.Demux = parts[1]
		} else {
			e.Demux = ""
		}
		e.IsDtnNone = false

	default:
		return fmt.Errorf("DtnEndpoint: unexpected major type 0x%X for unmarshalling", m)
	}

	return nil
}

// DtnNone returns the null endpoint "dtn:none".
func DtnNone() EndpointID {
	return EndpointID{DtnEndpoint{IsDtnNone: true}}
}
