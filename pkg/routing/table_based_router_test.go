package routing

import (
	"testing"

	"github.com/dtn7/dtnme-go/pkg/bundle"
)

type fakeLink struct {
	name     string
	remote   bundle.EndpointID
	state    LinkState
	typ      LinkType
	queue    int
	capacity int
}

func (l *fakeLink) Name() string                  { return l.name }
func (l *fakeLink) Remote() bundle.EndpointID      { return l.remote }
func (l *fakeLink) Type() LinkType                 { return l.typ }
func (l *fakeLink) State() LinkState               { return l.state }
func (l *fakeLink) Open() error                    { l.state = LinkOpen; return nil }
func (l *fakeLink) Close() error                   { l.state = LinkUnavailable; return nil }
func (l *fakeLink) QueueLen() int                  { return l.queue }
func (l *fakeLink) QueueHasSpace() bool            { return l.queue < l.capacity }
func (l *fakeLink) Send(b *bundle.Bundle) error    { l.queue++; return nil }
func (l *fakeLink) PotentialDowntime() uint32      { return 30 }

type fakeActions struct {
	opened  []string
	queued  []string
	cancelled []string
}

func (a *fakeActions) OpenLink(name string) error {
	a.opened = append(a.opened, name)
	return nil
}

func (a *fakeActions) QueueBundle(b *bundle.Bundle, link Link, action bundle.Action, custody bundle.CustodyTimerSpec) error {
	a.queued = append(a.queued, link.Name())
	b.ForwardingLog.AddEntry(link.Name(), action, bundle.StateQueued, custody, 0)
	return nil
}

func (a *fakeActions) CancelBundle(b *bundle.Bundle, link Link) error {
	a.cancelled = append(a.cancelled, link.Name())
	return nil
}

func TestRouteBundleQueuesOnOpenLink(t *testing.T) {
	table := NewRouteTable()
	table.AddEntry(RouteEntry{Dest: bundle.MustNewEndpointIDPattern("dtn://node1/*"), NextHop: "link1", Action: bundle.ForwardAction})

	link1 := &fakeLink{name: "link1", state: LinkOpen, capacity: 5}
	links := map[string]Link{"link1": link1}

	actions := &fakeActions{}
	router := NewTableBasedRouter(table, actions, func(n string) (Link, bool) { l, ok := links[n]; return l, ok })

	b := &bundle.Bundle{Destination: bundle.MustNewEndpointID("dtn://node1/mail")}
	queued := router.RouteBundle(b)

	if queued != 1 {
		t.Fatalf("RouteBundle queued %d bundles, want 1", queued)
	}
	if len(actions.queued) != 1 || actions.queued[0] != "link1" {
		t.Errorf("expected bundle queued on link1, got %+v", actions.queued)
	}
}

func TestRouteBundleOpensAvailableLink(t *testing.T) {
	table := NewRouteTable()
	table.AddEntry(RouteEntry{Dest: bundle.MustNewEndpointIDPattern("dtn://node1/*"), NextHop: "link1"})

	link1 := &fakeLink{name: "link1", state: LinkAvailable, capacity: 5}
	links := map[string]Link{"link1": link1}

	actions := &fakeActions{}
	router := NewTableBasedRouter(table, actions, func(n string) (Link, bool) { l, ok := links[n]; return l, ok })

	b := &bundle.Bundle{Destination: bundle.MustNewEndpointID("dtn://node1/mail")}
	queued := router.RouteBundle(b)

	if queued != 0 {
		t.Fatalf("an available-but-not-open link should not be queued on yet, got %d", queued)
	}
	if len(actions.opened) != 1 || actions.opened[0] != "link1" {
		t.Errorf("expected Open to be requested for link1, got %+v", actions.opened)
	}
}

func TestRouteBundleSkipsFullQueue(t *testing.T) {
	table := NewRouteTable()
	table.AddEntry(RouteEntry{Dest: bundle.MustNewEndpointIDPattern("dtn://node1/*"), NextHop: "link1"})

	link1 := &fakeLink{name: "link1", state: LinkOpen, queue: 5, capacity: 5}
	links := map[string]Link{"link1": link1}

	actions := &fakeActions{}
	router := NewTableBasedRouter(table, actions, func(n string) (Link, bool) { l, ok := links[n]; return l, ok })

	b := &bundle.Bundle{Destination: bundle.MustNewEndpointID("dtn://node1/mail")}
	if queued := router.RouteBundle(b); queued != 0 {
		t.Fatalf("a full queue should not accept more bundles, got %d queued", queued)
	}
}

func TestRouteBundleSkipsAlreadyTransmitted(t *testing.T) {
	table := NewRouteTable()
	table.AddEntry(RouteEntry{Dest: bundle.MustNewEndpointIDPattern("dtn://node1/*"), NextHop: "link1"})

	link1 := &fakeLink{name: "link1", state: LinkOpen, capacity: 5}
	links := map[string]Link{"link1": link1}

	actions := &fakeActions{}
	router := NewTableBasedRouter(table, actions, func(n string) (Link, bool) { l, ok := links[n]; return l, ok })

	b := &bundle.Bundle{Destination: bundle.MustNewEndpointID("dtn://node1/mail")}
	b.ForwardingLog.AddEntry("link1", bundle.ForwardAction, bundle.StateTransmitted, bundle.CustodyTimerSpec{}, 0)

	if queued := router.RouteBundle(b); queued != 0 {
		t.Fatalf("a bundle already transmitted on link1 should not be re-queued, got %d", queued)
	}
}

func TestRouteBundleSuppressed(t *testing.T) {
	table := NewRouteTable()
	table.AddEntry(RouteEntry{Dest: bundle.MustNewEndpointIDPattern("dtn://node1/*"), NextHop: "link1"})

	link1 := &fakeLink{name: "link1", state: LinkOpen, capacity: 5}
	links := map[string]Link{"link1": link1}

	actions := &fakeActions{}
	router := NewTableBasedRouter(table, actions, func(n string) (Link, bool) { l, ok := links[n]; return l, ok })

	b := &bundle.Bundle{Destination: bundle.MustNewEndpointID("dtn://node1/mail")}
	b.ForwardingLog.AddEIDEntry(bundle.WildcardEID(), bundle.ForwardAction, bundle.StateSuppressed, 0)

	if queued := router.RouteBundle(b); queued != 0 {
		t.Fatalf("a globally suppressed bundle should not be routed, got %d queued", queued)
	}
}

func TestCanDeleteBundle(t *testing.T) {
	router := NewTableBasedRouter(NewRouteTable(), &fakeActions{}, func(string) (Link, bool) { return nil, false })

	b := &bundle.Bundle{}
	if router.CanDeleteBundle(b) {
		t.Fatal("a bundle never transmitted should not be deletable")
	}

	b.ForwardingLog.AddEntry("link1", bundle.ForwardAction, bundle.StateTransmitted, bundle.CustodyTimerSpec{}, 0)
	if !router.CanDeleteBundle(b) {
		t.Fatal("a transmitted, non-custody bundle should be deletable")
	}

	b.LocalCustody = true
	if router.CanDeleteBundle(b) {
		t.Fatal("a bundle this node has custody of should never be deletable")
	}
}
