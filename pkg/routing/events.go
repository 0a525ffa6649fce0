package routing

import "github.com/dtn7/dtnme-go/pkg/bundle"

// Event is the common interface for everything TableBasedRouter reacts to,
// grounded in original_source/servlib/routing/BundleEvent.h's event
// hierarchy and dispatched through Daemon's handler loop instead of DTNME's
// central event queue.
type Event interface {
	eventName() string
}

// BundleReceivedEvent signals a new bundle has arrived, either from a peer
// over a Link or from a local application agent.
type BundleReceivedEvent struct {
	Bundle *bundle.Bundle
	Link   string // empty if locally originated
}

func (BundleReceivedEvent) eventName() string { return "BundleReceived" }

// BundleTransmittedEvent signals a Link finished sending (or failed to send)
// a bundle.
type BundleTransmittedEvent struct {
	Bundle  *bundle.Bundle
	Link    string
	Success bool
}

func (BundleTransmittedEvent) eventName() string { return "BundleTransmitted" }

// BundleSendCancelledEvent signals a queued send was cancelled, e.g. because
// its Link went down before transmission.
type BundleSendCancelledEvent struct {
	Bundle *bundle.Bundle
	Link   string
}

func (BundleSendCancelledEvent) eventName() string { return "BundleSendCancelled" }

// BundleDeliveredEvent signals a bundle reached its final, local destination.
type BundleDeliveredEvent struct {
	Bundle *bundle.Bundle
}

func (BundleDeliveredEvent) eventName() string { return "BundleDelivered" }

// BundleExpiredEvent signals a bundle's lifetime elapsed before delivery.
type BundleExpiredEvent struct {
	Bundle *bundle.Bundle
}

func (BundleExpiredEvent) eventName() string { return "BundleExpired" }

// ContactUpEvent signals a Link became reachable.
type ContactUpEvent struct {
	Link string
}

func (ContactUpEvent) eventName() string { return "ContactUp" }

// ContactDownEvent signals a Link became unreachable.
type ContactDownEvent struct {
	Link string
}

func (ContactDownEvent) eventName() string { return "ContactDown" }

// LinkCreatedEvent signals a new Link was registered with the router.
type LinkCreatedEvent struct {
	Link string
}

func (LinkCreatedEvent) eventName() string { return "LinkCreated" }

// LinkDeletedEvent signals a Link was removed; any bundles still queued for
// it must be rerouted.
type LinkDeletedEvent struct {
	Link string
}

func (LinkDeletedEvent) eventName() string { return "LinkDeleted" }

// CustodyTimeoutEvent signals a CustodyTimer fired without the transfer
// having completed, and the bundle should be retransmitted.
type CustodyTimeoutEvent struct {
	Bundle *bundle.Bundle
	Link   string
}

func (CustodyTimeoutEvent) eventName() string { return "CustodyTimeout" }

// CustodySignalEvent signals a custody-acceptance or custody-refusal
// administrative record arrived for a bundle this node is custodian of.
type CustodySignalEvent struct {
	Bundle  *bundle.Bundle
	Link    string
	Success bool
}

func (CustodySignalEvent) eventName() string { return "CustodySignal" }

// RerouteTimerEvent fires once a Link's potential-downtime grace period has
// elapsed, prompting the router to give up waiting and reroute its queue.
type RerouteTimerEvent struct {
	Link string
}

func (RerouteTimerEvent) eventName() string { return "RerouteTimer" }

// RegistrationAddedEvent signals a local application agent registered
// interest in an endpoint.
type RegistrationAddedEvent struct {
	RegID uint32
	EID   bundle.EndpointID
}

func (RegistrationAddedEvent) eventName() string { return "RegistrationAdded" }

// RegistrationRemovedEvent signals a local registration was torn down.
type RegistrationRemovedEvent struct {
	RegID uint32
}

func (RegistrationRemovedEvent) eventName() string { return "RegistrationRemoved" }
