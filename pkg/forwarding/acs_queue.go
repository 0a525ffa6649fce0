package forwarding

import (
	"sync"

	"github.com/dtn7/dtnme-go/pkg/bundle"
)

// ACSEntry is one pending disposition inside an Aggregate Custody Signal: a
// transmission ID the peer is waiting to hear about, and whether it
// succeeded. Grounded in BIBEExtractor.cc's
// add_bibe_bundle_to_acs(version, source, tx_id, success, reason), which the
// spec glossary names but never details the queue for.
type ACSEntry struct {
	TxID    uint64
	Success bool
	Reason  string
}

// acsKey groups entries by the custodian they will eventually be reported to.
type acsKey struct {
	destination string
}

// ACSQueue batches custody dispositions destined for the same custodian so
// they can later be flushed as a single Aggregate Custody Signal bundle,
// rather than one administrative record per transferred bundle.
type ACSQueue struct {
	mu      sync.Mutex
	pending map[acsKey][]ACSEntry
}

// NewACSQueue creates an empty queue.
func NewACSQueue() *ACSQueue {
	return &ACSQueue{pending: make(map[acsKey][]ACSEntry)}
}

// Add enqueues a disposition for txID addressed to destination. version is
// accepted to mirror BIBEExtractor's signature (the ACS wire format differs
// between BP versions) but is not otherwise interpreted by the queue itself.
func (q *ACSQueue) Add(version uint8, destination bundle.EndpointID, txID uint64, success bool, reason string) {
	_ = version

	q.mu.Lock()
	defer q.mu.Unlock()

	key := acsKey{destination: destination.String()}
	q.pending[key] = append(q.pending[key], ACSEntry{TxID: txID, Success: success, Reason: reason})
}

// Flush removes and returns every queued entry for destination, ready to be
// packed into one outbound ACS administrative record.
func (q *ACSQueue) Flush(destination bundle.EndpointID) []ACSEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	key := acsKey{destination: destination.String()}
	entries := q.pending[key]
	delete(q.pending, key)
	return entries
}

// Destinations returns every destination with at least one queued entry.
func (q *ACSQueue) Destinations() []bundle.EndpointID {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]bundle.EndpointID, 0, len(q.pending))
	for key := range q.pending {
		out = append(out, bundle.MustNewEndpointID(key.destination))
	}
	return out
}
