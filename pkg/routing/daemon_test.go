package routing

import (
	"testing"
	"time"

	"github.com/dtn7/dtnme-go/pkg/bundle"
)

func TestDaemonDeliversToLocalRegistration(t *testing.T) {
	d := NewDaemon(&fakeActions{})
	defer d.Close()

	delivered := make(chan *bundle.Bundle, 1)
	eid := bundle.MustNewEndpointID("dtn://node1/mail")

	if err := d.Register(Registration{ID: 1, EID: eid, Deliver: func(b *bundle.Bundle) { delivered <- b }}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	b := &bundle.Bundle{Destination: eid}
	d.Post(BundleReceivedEvent{Bundle: b})

	select {
	case got := <-delivered:
		if got != b {
			t.Error("delivered the wrong bundle")
		}
	case <-time.After(time.Second):
		t.Fatal("bundle was not delivered to the local registration in time")
	}
}

func TestDaemonRegisterDuplicateFails(t *testing.T) {
	d := NewDaemon(&fakeActions{})
	defer d.Close()

	eid := bundle.MustNewEndpointID("dtn://node1/mail")
	reg := Registration{ID: 1, EID: eid, Deliver: func(*bundle.Bundle) {}}

	if err := d.Register(reg); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	if err := d.Register(reg); err == nil {
		t.Fatal("expected duplicate registration id to fail")
	}
}

func TestDaemonLinkLifecycle(t *testing.T) {
	d := NewDaemon(&fakeActions{})
	defer d.Close()

	link := &fakeLink{name: "link1", state: LinkOpen, capacity: 5}
	d.RegisterLink(link)

	if got, ok := d.Link("link1"); !ok || got != link {
		t.Fatal("expected link1 to be registered")
	}

	d.RemoveLink("link1")
	time.Sleep(20 * time.Millisecond)

	if _, ok := d.Link("link1"); ok {
		t.Fatal("expected link1 to be removed")
	}
}
