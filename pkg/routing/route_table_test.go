package routing

import (
	"testing"

	"github.com/dtn7/dtnme-go/pkg/bundle"
)

func TestRouteTableGetMatchingBasic(t *testing.T) {
	rt := NewRouteTable()
	rt.AddEntry(RouteEntry{
		Dest:     bundle.MustNewEndpointIDPattern("dtn://node1/*"),
		NextHop:  "link1",
		Priority: 1,
	})
	rt.AddEntry(RouteEntry{
		Dest:     bundle.MustNewEndpointIDPattern("dtn://node1/*"),
		NextHop:  "link2",
		Priority: 5,
	})

	matches, loop := rt.GetMatching(bundle.MustNewEndpointID("dtn://node1/mail"))
	if loop {
		t.Fatal("did not expect a loop")
	}
	if len(matches) != 2 {
		t.Fatalf("GetMatching returned %d entries, want 2", len(matches))
	}
	if matches[0].NextHop != "link2" {
		t.Errorf("highest priority entry should sort first, got %q", matches[0].NextHop)
	}
}

func TestRouteTableGetMatchingDedup(t *testing.T) {
	rt := NewRouteTable()
	rt.AddEntry(RouteEntry{Dest: bundle.MustNewEndpointIDPattern("dtn://node1/*"), NextHop: "link1"})
	rt.AddEntry(RouteEntry{Dest: bundle.MustNewEndpointIDPattern("dtn:*"), NextHop: "link1"})

	matches, _ := rt.GetMatching(bundle.MustNewEndpointID("dtn://node1/mail"))
	if len(matches) != 1 {
		t.Fatalf("expected de-duplication to a single link1 entry, got %d", len(matches))
	}
}

func TestRouteTableRouteToIndirection(t *testing.T) {
	rt := NewRouteTable()
	rt.AddEntry(RouteEntry{
		Dest:       bundle.MustNewEndpointIDPattern("dtn://node1/*"),
		HasRouteTo: true,
		RouteTo:    bundle.MustNewEndpointIDPattern("dtn://relay/*"),
		Priority:   3,
	})
	rt.AddEntry(RouteEntry{
		Dest:     bundle.MustNewEndpointIDPattern("dtn://relay/*"),
		NextHop:  "uplink",
		Priority: 1,
	})

	matches, loop := rt.GetMatching(bundle.MustNewEndpointID("dtn://node1/mail"))
	if loop {
		t.Fatal("did not expect a loop")
	}
	if len(matches) != 1 || matches[0].NextHop != "uplink" {
		t.Fatalf("expected resolution to uplink, got %+v", matches)
	}
	if matches[0].Priority != 3 {
		t.Errorf("resolved entry should keep the route_to entry's priority, got %d", matches[0].Priority)
	}
}

func TestRouteTableRouteToLoopGuard(t *testing.T) {
	rt := NewRouteTable()
	rt.AddEntry(RouteEntry{
		Dest:       bundle.MustNewEndpointIDPattern("dtn://a/*"),
		HasRouteTo: true,
		RouteTo:    bundle.MustNewEndpointIDPattern("dtn://b/*"),
	})
	rt.AddEntry(RouteEntry{
		Dest:       bundle.MustNewEndpointIDPattern("dtn://b/*"),
		HasRouteTo: true,
		RouteTo:    bundle.MustNewEndpointIDPattern("dtn://a/*"),
	})

	matches, loop := rt.GetMatching(bundle.MustNewEndpointID("dtn://a/mail"))
	if !loop {
		t.Fatal("expected a cyclic route_to chain to report loop=true")
	}
	if len(matches) != 0 {
		t.Fatalf("a looping entry should be dropped, not returned, got %+v", matches)
	}
}

func TestRouteTableDelEntries(t *testing.T) {
	rt := NewRouteTable()
	dest := bundle.MustNewEndpointIDPattern("dtn://node1/*")
	rt.AddEntry(RouteEntry{Dest: dest, NextHop: "link1"})
	rt.AddEntry(RouteEntry{Dest: bundle.MustNewEndpointIDPattern("dtn://node2/*"), NextHop: "link2"})

	rt.DelEntries(dest)

	if len(rt.Entries()) != 1 {
		t.Fatalf("expected one remaining entry, got %d", len(rt.Entries()))
	}
}

func TestRouteTableDelEntriesForNextHop(t *testing.T) {
	rt := NewRouteTable()
	rt.AddEntry(RouteEntry{Dest: bundle.MustNewEndpointIDPattern("dtn://node1/*"), NextHop: "link1"})
	rt.AddEntry(RouteEntry{Dest: bundle.MustNewEndpointIDPattern("dtn://node2/*"), NextHop: "link1"})
	rt.AddEntry(RouteEntry{Dest: bundle.MustNewEndpointIDPattern("dtn://node3/*"), NextHop: "link2"})

	rt.DelEntriesForNextHop("link1")

	if len(rt.Entries()) != 1 {
		t.Fatalf("expected only link2's entry to remain, got %d", len(rt.Entries()))
	}
}
