package udpdisc

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dtn7/cboring"

	"github.com/dtn7/dtnme-go/pkg/bundle"
)

// announcement is the datagram payload one node broadcasts to advertise
// itself, a reduced form of the teacher's discovery.Announcement: since this
// package only ever offers one convergence layer (a UDP socket), there is no
// CLA-type field to carry.
type announcement struct {
	Endpoint bundle.EndpointID
	Port     uint16
}

// marshalAnnouncement encodes a into a CBOR array of [endpoint, port].
func marshalAnnouncement(a announcement) ([]byte, error) {
	buff := new(bytes.Buffer)

	if err := cboring.WriteArrayLength(2, buff); err != nil {
		return nil, err
	}
	if err := cboring.WriteTextString(a.Endpoint.String(), buff); err != nil {
		return nil, err
	}
	if err := cboring.WriteUInt(uint64(a.Port), buff); err != nil {
		return nil, err
	}

	return buff.Bytes(), nil
}

// unmarshalAnnouncement decodes a datagram payload produced by marshalAnnouncement.
func unmarshalAnnouncement(data []byte) (a announcement, err error) {
	r := bytes.NewReader(data)

	l, err := cboring.ReadArrayLength(r)
	if err != nil {
		return announcement{}, err
	}
	if l != 2 {
		return announcement{}, fmt.Errorf("udpdisc: expected array of length 2, got %d", l)
	}

	uri, err := readTextString(r)
	if err != nil {
		return announcement{}, err
	}
	eid, err := bundle.NewEndpointID(uri)
	if err != nil {
		return announcement{}, fmt.Errorf("udpdisc: invalid endpoint in announcement: %w", err)
	}

	port, err := cboring.ReadUInt(r)
	if err != nil {
		return announcement{}, err
	}

	return announcement{Endpoint: eid, Port: uint16(port)}, nil
}

// readTextString reads a CBOR text string's content, cboring has no direct
// "read string" helper so the majors are inspected manually like
// bpv7/endpoint_dtn.go's UnmarshalCbor does for its own text-string form.
func readTextString(r io.Reader) (string, error) {
	m, n, err := cboring.ReadMajors(r)
	if err != nil {
		return "", err
	}
	if m != cboring.TextString {
		return "", fmt.Errorf("udpdisc: expected a CBOR text string, got major %d", m)
	}

	data, err := cboring.ReadRawBytes(n, r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
