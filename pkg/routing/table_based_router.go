// Grounded in original_source/servlib/routing/TableBasedRouter.cc: a
// deterministic router driven entirely by the RouteTable, as opposed to the
// teacher's flooding-style epidemic/spray/prophet algorithms (replaced
// wholesale, see DESIGN.md) which have no notion of custody or static
// routes.
package routing

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/dtnme-go/pkg/bundle"
)

// Actions is the set of side effects TableBasedRouter asks its Daemon to
// perform, mirroring TableBasedRouter's BundleActions indirection
// (originally there so the router's decisions are unit-testable without a
// running daemon).
type Actions interface {
	OpenLink(name string) error
	QueueBundle(b *bundle.Bundle, link Link, action bundle.Action, custody bundle.CustodyTimerSpec) error
	CancelBundle(b *bundle.Bundle, link Link) error
}

// TableBasedRouter decides, for each received or re-queued bundle, which
// Links to forward it out, consulting a RouteTable and each bundle's
// ForwardingLog to avoid redundant or suppressed forwarding.
type TableBasedRouter struct {
	table   *RouteTable
	actions Actions
	links   func(name string) (Link, bool)

	preferAlwaysOn bool

	rerouteTimers map[string]*time.Timer
}

// NewTableBasedRouter creates a router backed by table, dispatching side
// effects through actions, and resolving Link names via links (typically
// Daemon.Link).
func NewTableBasedRouter(table *RouteTable, actions Actions, links func(string) (Link, bool)) *TableBasedRouter {
	return &TableBasedRouter{
		table:         table,
		actions:       actions,
		links:         links,
		rerouteTimers: make(map[string]*time.Timer),
	}
}

// PreferAlwaysOn configures whether route_bundle stops after the first
// always-on link it successfully queues on, matching
// static_router_prefer_always_on_.
func (r *TableBasedRouter) PreferAlwaysOn(v bool) { r.preferAlwaysOn = v }

// HandleBundleReceived routes a newly received bundle, unless it is destined
// for this node's own singleton endpoint (that case is local delivery,
// handled upstream), per TableBasedRouter::handle_bundle_received.
func (r *TableBasedRouter) HandleBundleReceived(ev BundleReceivedEvent) {
	r.RouteBundle(ev.Bundle)
}

// HandleBundleTransmitted retries routing on failure, per
// TableBasedRouter::handle_bundle_transmitted.
func (r *TableBasedRouter) HandleBundleTransmitted(ev BundleTransmittedEvent) {
	if !ev.Success {
		r.RouteBundle(ev.Bundle)
	}
}

// HandleBundleSendCancelled retries routing for a bundle still within its
// lifetime, per TableBasedRouter::handle_bundle_cancelled.
func (r *TableBasedRouter) HandleBundleSendCancelled(ev BundleSendCancelledEvent, expired bool) {
	if !expired {
		r.RouteBundle(ev.Bundle)
	}
}

// HandleContactUp cancels any pending RerouteTimer for the now-reachable
// link. It does not add a route entry for the link's remote endpoint.
func (r *TableBasedRouter) HandleContactUp(ev ContactUpEvent) {
	if timer, ok := r.rerouteTimers[ev.Link]; ok {
		timer.Stop()
		delete(r.rerouteTimers, ev.Link)
	}
}

// HandleContactDown schedules a RerouteTimer for a link that went down while
// bundles were still queued on it, per
// TableBasedRouter::handle_contact_down.
func (r *TableBasedRouter) HandleContactDown(ev ContactDownEvent, queueLen int, downtimeSec uint32, fire func()) {
	if queueLen == 0 {
		return
	}
	if _, exists := r.rerouteTimers[ev.Link]; exists {
		return
	}

	r.rerouteTimers[ev.Link] = time.AfterFunc(time.Duration(downtimeSec)*time.Second, func() {
		delete(r.rerouteTimers, ev.Link)
		fire()
	})
}

// RerouteBundles cancels every bundle still queued on an unavailable link,
// relying on the resulting BundleSendCancelledEvent handling to re-route
// each one, per TableBasedRouter::reroute_bundles.
func (r *TableBasedRouter) RerouteBundles(link Link, queued []*bundle.Bundle) {
	if link.State() != LinkUnavailable {
		return
	}
	for _, b := range queued {
		if err := r.actions.CancelBundle(b, link); err != nil {
			log.WithError(err).WithField("link", link.Name()).Warn("Failed to cancel queued bundle while rerouting")
		}
	}
}

// HandleLinkDeleted removes every route entry pointing at the deleted link.
func (r *TableBasedRouter) HandleLinkDeleted(ev LinkDeletedEvent) {
	r.table.DelEntriesForNextHop(ev.Link)
}

// CanDeleteBundle reports whether b may be purged from storage: never while
// this node holds (local or BIBE) custody, and never before at least one
// transmission or local delivery attempt has completed, per
// TableBasedRouter::can_delete_bundle.
func (r *TableBasedRouter) CanDeleteBundle(b *bundle.Bundle) bool {
	if b.LocalCustody || b.BibeCustody {
		return false
	}
	if b.ForwardingLog.GetCount(bundle.StateTransmitted|bundle.StateDelivered, bundle.AnyAction) == 0 {
		return false
	}
	return true
}

// RouteBundle is the router's core decision loop, per
// TableBasedRouter::route_bundle: honor a global suppression entry, look up
// matching routes, open/skip/queue each in priority order, optionally
// stopping early once an always-on link has been queued.
func (r *TableBasedRouter) RouteBundle(b *bundle.Bundle) int {
	if b.ForwardingLog.GetCountForEID(bundle.WildcardEID(), bundle.StateSuppressed, bundle.AnyAction) > 0 {
		return 0
	}

	matches, loop := r.table.GetMatching(b.Destination)
	if loop {
		log.WithField("destination", b.Destination).Warn("RouteTable route_to chain exceeded max depth")
	}

	queued := 0
	for _, route := range matches {
		link, ok := r.links(route.NextHop)
		if !ok {
			continue
		}

		if !r.shouldForward(b, link) {
			continue
		}

		switch link.State() {
		case LinkUnavailable:
			continue
		case LinkAvailable:
			if err := r.actions.OpenLink(link.Name()); err != nil {
				log.WithError(err).WithField("link", link.Name()).Warn("Failed to open link while routing")
				continue
			}
			continue
		case LinkOpening:
			continue
		}

		if !link.QueueHasSpace() {
			continue
		}

		if err := r.actions.QueueBundle(b, link, route.Action, route.Custody); err != nil {
			log.WithError(err).WithField("link", link.Name()).Warn("Failed to queue bundle")
			continue
		}
		queued++

		if r.preferAlwaysOn && link.Type() == LinkAlwaysOn {
			break
		}
	}

	return queued
}

// shouldForward reports whether b has not already been forwarded (and not
// since failed/cancelled/timed out) on link, per TableBasedRouter::should_fwd:
// a bundle already TRANSMITTED or PENDING_DELIVERY on a link should not be
// re-queued for it.
func (r *TableBasedRouter) shouldForward(b *bundle.Bundle, link Link) bool {
	entry, ok := b.ForwardingLog.GetLatestEntry(link.Name())
	if !ok {
		return true
	}
	return entry.State&(bundle.StateTransmitted|bundle.StatePendingDelivery|bundle.StateQueued) == 0
}
