package udpdisc

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/dtn7/dtnme-go/pkg/bundle"
	"github.com/dtn7/dtnme-go/pkg/routing"
)

type noopActions struct{}

func (noopActions) OpenLink(string) error { return nil }
func (noopActions) QueueBundle(*bundle.Bundle, routing.Link, bundle.Action, bundle.CustodyTimerSpec) error {
	return nil
}
func (noopActions) CancelBundle(*bundle.Bundle, routing.Link) error { return nil }

func newTestDaemon() *routing.Daemon {
	return routing.NewDaemon(noopActions{})
}

func getFreeUDPPort(t *testing.T) int {
	addr, err := net.ResolveUDPAddr("udp", "localhost:0")
	if err != nil {
		t.Fatal(err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()

	return conn.LocalAddr().(*net.UDPAddr).Port
}

func TestLinkSendDeliversFramedGob(t *testing.T) {
	port := getFreeUDPPort(t)

	laddr, err := net.ResolveUDPAddr("udp", "localhost:0")
	if err != nil {
		t.Fatal(err)
	}
	laddr.Port = port

	listener, err := net.ListenUDP("udp", laddr)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = listener.Close() }()

	daemon := newTestDaemon()
	defer func() { _ = daemon.Close() }()

	link, err := dialLink(daemon, laddr.String(), bundle.MustNewEndpointID("dtn://peer/"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = link.Close() }()

	bndl := &bundle.Bundle{
		Source:            bundle.MustNewEndpointID("dtn://src/"),
		Destination:       bundle.MustNewEndpointID("dtn://dest/"),
		CreationTimestamp: 1,
		Lifetime:          60,
	}

	if err := link.Send(bndl); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	buf := make([]byte, 65535)
	_ = listener.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := listener.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("reading datagram failed: %v", err)
	}

	if n < 4 {
		t.Fatalf("datagram too short: %d bytes", n)
	}
	frameLen := binary.BigEndian.Uint32(buf[:4])
	if int(frameLen) != n-4 {
		t.Fatalf("length prefix %d does not match payload %d", frameLen, n-4)
	}

	var got bundle.Bundle
	if err := gob.NewDecoder(bytes.NewReader(buf[4:n])).Decode(&got); err != nil {
		t.Fatalf("decoding gob payload failed: %v", err)
	}

	if got.Source != bndl.Source || got.Destination != bndl.Destination {
		t.Fatalf("decoded bundle differs: %v != %v", got, bndl)
	}
}

func TestLinkQueueHasSpace(t *testing.T) {
	port := getFreeUDPPort(t)

	daemon := newTestDaemon()
	defer func() { _ = daemon.Close() }()

	link, err := dialLink(daemon, net.JoinHostPort("localhost", strconv.Itoa(port)), bundle.MustNewEndpointID("dtn://peer/"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = link.Close() }()

	if !link.QueueHasSpace() {
		t.Fatal("freshly dialed link should have queue space")
	}
	if got := link.Type(); got != routing.LinkOpportunistic {
		t.Fatalf("Type() = %v, want LinkOpportunistic", got)
	}
}
