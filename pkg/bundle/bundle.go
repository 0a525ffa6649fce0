package bundle

import "sync"

// ProcFlags are the version-agnostic bundle processing control flags of
// spec §3. Both wire codecs copy the received flag word into ProcFlags
// unchanged. Bits 0-5 are RFC 5050's general flags; bits 0-2 and 5 carry the
// same meaning in BPv7. The Report* bits (8-13) are not the positions either
// wire format uses for its status report request flags.
type ProcFlags uint32

const (
	IsFragment           ProcFlags = 1 << 0
	IsAdministrative     ProcFlags = 1 << 1
	DoNotFragment        ProcFlags = 1 << 2
	CustodyRequested     ProcFlags = 1 << 3
	SingletonDestination ProcFlags = 1 << 4
	AppAckRequested      ProcFlags = 1 << 5

	// Status report request bits, matching DTNME's six independent
	// "request X status report" flags.
	ReportReception    ProcFlags = 1 << 8
	ReportCustodyAccept ProcFlags = 1 << 9
	ReportForwarding   ProcFlags = 1 << 10
	ReportDelivery     ProcFlags = 1 << 11
	ReportDeletion     ProcFlags = 1 << 12
	ReportAck          ProcFlags = 1 << 13
)

// Has reports whether all bits in mask are set.
func (f ProcFlags) Has(mask ProcFlags) bool { return f&mask == mask }

// Priority is the bundle's COS priority class.
type Priority uint8

const (
	PriorityBulk Priority = iota
	PriorityNormal
	PriorityExpedited
)

// Block is a single canonical block's version-agnostic representation: the
// wire codecs (bpv6, bpv7) translate their own preamble/CBOR-item framing
// into and out of this shape before handing it to a block.Processor.
type Block struct {
	TypeCode   uint64
	Number     uint64
	Flags      uint64
	EIDRefs    []EndpointID
	Data       []byte
	Complete   bool // true once the full Data has been consumed/produced
}

// BlockDiscardOnError reports whether the "discard this block if unable to
// process it" flag is set, per the shared block-processing-flags bit used by
// both BPv6 and BPv7.
const (
	BlockReplicateInFragment uint64 = 1 << 0
	BlockReportOnError       uint64 = 1 << 1
	BlockDeleteBundleOnError uint64 = 1 << 2
	BlockLastBlock           uint64 = 1 << 3
	BlockDiscardOnError      uint64 = 1 << 4
	BlockForwardedUnprocessed uint64 = 1 << 5
)

// Payload holds a bundle's payload bytes. Small payloads stay in-memory;
// FilePath is set instead when the payload has been spilled to the storage
// layer's file-backed area (spec §6.4), mirroring the teacher's Payload
// abstraction in pkg/storage.
type Payload struct {
	inMemory []byte
	FilePath string
}

// NewPayloadMemory wraps an in-memory payload.
func NewPayloadMemory(data []byte) *Payload {
	return &Payload{inMemory: data}
}

// NewPayloadFile wraps a file-backed payload by path.
func NewPayloadFile(path string) *Payload {
	return &Payload{FilePath: path}
}

// IsFileBacked reports whether this payload lives on disk rather than memory.
func (p *Payload) IsFileBacked() bool { return p.FilePath != "" }

// Bytes returns the in-memory payload bytes. It panics if the payload is
// file-backed; callers must check IsFileBacked first, matching the spec's
// explicit in-memory/file-backed split rather than an implicit read-through.
func (p *Payload) Bytes() []byte {
	if p.IsFileBacked() {
		panic("bundle: Payload.Bytes called on a file-backed payload")
	}
	return p.inMemory
}

// Len returns the in-memory payload length; file-backed payloads report 0
// here and must be sized via the storage layer.
func (p *Payload) Len() int { return len(p.inMemory) }

// Bundle is the version-agnostic in-memory bundle representation shared by
// the forwarding engine, router and BIBE extractor, per spec §3. The wire
// codecs populate one from a stream of Blocks and, conversely, serialize one
// back into BPv6 SDNV or BPv7 CBOR form.
type Bundle struct {
	mu sync.Mutex

	Version uint8 // 6 or 7

	Source      EndpointID
	Destination EndpointID
	ReportTo    EndpointID
	Custodian   EndpointID

	CreationTimestamp uint64
	SequenceNumber    uint64
	Lifetime          uint64 // seconds

	ProcFlags ProcFlags
	Priority  Priority

	FragmentOffset  uint64
	TotalDataLength uint64

	Blocks  []*Block
	Payload *Payload

	ForwardingLog ForwardingLog

	// LocalCustody is true while this node holds custody of the bundle.
	LocalCustody bool
	// BibeCustody is true while this node holds custody on behalf of a BIBE
	// tunnel endpoint (spec §4.7), keeping the bundle alive independent of
	// LocalCustody.
	BibeCustody bool
}

// Lock acquires the bundle's mutex. Per spec §5's lock-ordering hierarchy
// (bundle -> link -> route-table -> pending-map), a goroutine holding a
// Bundle lock must never attempt to acquire a link, route-table or
// pending-map lock it does not already hold, to avoid deadlock.
func (b *Bundle) Lock() { b.mu.Lock() }

// Unlock releases the bundle's mutex.
func (b *Bundle) Unlock() { b.mu.Unlock() }

// ID returns the tuple identifying this bundle for deduplication purposes:
// source, creation timestamp, sequence number and (for fragments) offset.
type ID struct {
	Source            EndpointID
	CreationTimestamp uint64
	SequenceNumber    uint64
	IsFragment        bool
	FragmentOffset    uint64
}

// ID computes this bundle's identity tuple.
func (b *Bundle) ID() ID {
	id := ID{
		Source:            b.Source,
		CreationTimestamp: b.CreationTimestamp,
		SequenceNumber:    b.SequenceNumber,
	}
	if b.ProcFlags.Has(IsFragment) {
		id.IsFragment = true
		id.FragmentOffset = b.FragmentOffset
	}
	return id
}

// PayloadBlock returns the bundle's single payload block (type code 1), and
// whether one was found. A bundle's invariant (spec §3) is that exactly one
// payload block exists.
func (b *Bundle) PayloadBlock() (*Block, bool) {
	for _, blk := range b.Blocks {
		if blk.TypeCode == 1 {
			return blk, true
		}
	}
	return nil, false
}
