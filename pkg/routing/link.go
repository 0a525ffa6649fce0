package routing

import "github.com/dtn7/dtnme-go/pkg/bundle"

// LinkState mirrors the convergence-layer link states DTNME's Link class
// tracks (original_source/servlib/contacts/Link.h): a link starts Unavailable,
// becomes Available once a peer is discovered, and is Open while a send
// channel to that peer is actually up.
type LinkState uint8

const (
	LinkUnavailable LinkState = iota
	LinkAvailable
	LinkOpening
	LinkOpen
)

func (s LinkState) String() string {
	switch s {
	case LinkUnavailable:
		return "unavailable"
	case LinkAvailable:
		return "available"
	case LinkOpening:
		return "opening"
	case LinkOpen:
		return "open"
	default:
		return "unknown"
	}
}

// LinkType distinguishes always-on links (e.g. a fixed convergence-layer
// peer) from opportunistic ones, per Link::link_type_t. TableBasedRouter
// prefers always-on links when static_router_prefer_always_on_ is set,
// grounded in TableBasedRouter.cc's route_bundle.
type LinkType uint8

const (
	LinkOpportunistic LinkType = iota
	LinkAlwaysOn
)

func (t LinkType) String() string {
	switch t {
	case LinkOpportunistic:
		return "opportunistic"
	case LinkAlwaysOn:
		return "always-on"
	default:
		return "unknown"
	}
}

// Link is the convergence-layer abstraction TableBasedRouter forwards
// bundles through. Generalizes the teacher's pkg/cla.Convergence interface
// (sender/closer-only) with the queue-depth and open/close lifecycle
// TableBasedRouter.cc needs to decide should_fwd/queue_has_space.
type Link interface {
	// Name uniquely identifies this link (matches storage and
	// ForwardingLog.LinkName entries).
	Name() string

	// Remote returns the endpoint this link carries traffic to.
	Remote() bundle.EndpointID

	// Type reports whether this is an always-on or opportunistic link.
	Type() LinkType

	// State reports the link's current lifecycle state.
	State() LinkState

	// Open attempts to bring the link up. Implementations should transition
	// through LinkOpening to LinkOpen asynchronously and are not required to
	// block until the link is fully open.
	Open() error

	// Close tears the link down.
	Close() error

	// QueueLen reports the number of bundles currently queued for
	// transmission on this link.
	QueueLen() int

	// QueueHasSpace reports whether another bundle may be queued.
	QueueHasSpace() bool

	// Send queues b for transmission. The Link reports completion
	// asynchronously via a BundleTransmittedEvent through the Daemon it was
	// registered with.
	Send(b *bundle.Bundle) error

	// PotentialDowntime is how long the router should wait for this link to
	// come back before giving up and rerouting its queue, mirroring
	// LinkParams::potential_downtime_.
	PotentialDowntime() uint32
}
