package bibe

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/dtnme-go/pkg/block"
	"github.com/dtn7/dtnme-go/pkg/bundle"
	"github.com/dtn7/dtnme-go/pkg/forwarding"
)

// blockSize bounds how many bytes of the encapsulated bundle are fed to the
// inner consumer per chunk, mirroring BIBEExtractor.cc's 4 MiB block_size
// cap so a single oversized BIBE payload cannot stall the extractor with one
// giant allocation.
const blockSize = 4 * 1024 * 1024

// ReceivedFrom identifies the outer bundle's transport origin, looked up
// from its RECEIVED forwarding-log entry, used to attribute the extracted
// inner bundle to a peer and link for BundleReceivedEvent purposes.
type ReceivedFrom struct {
	Link      string
	RemoteEID bundle.EndpointID
}

// Disposition is the custody outcome to apply to the outer BIBE-carrier
// bundle once extraction completes, per
// BIBEExtractor::handle_custody_transfer.
type Disposition struct {
	TransmissionID uint64
	Success        bool
	Reason         string
}

// Extract decodes a BIBE administrative record's outer framing from
// payload, streams the encapsulated bundle's bytes through consume to
// produce the inner bundle, validates it with registry, and reports the
// custody disposition to apply to
// the outer bundle. It returns an error if the outer framing is malformed or
// the inner bundle fails validation, matching BIBEExtractor.cc's strict
// all-or-nothing extraction.
func Extract(payload []byte, registry *block.Registry, consume func(data []byte) (int, *bundle.Bundle, bool, error)) (*bundle.Bundle, Disposition, error) {
	header, declaredLen, err := DecodeHeader(payload)
	if err != nil {
		return nil, Disposition{}, err
	}

	innerBytes := payload[header.BytesConsumed:]
	if uint64(len(innerBytes)) < declaredLen {
		return nil, Disposition{}, fmt.Errorf("bibe: payload truncated, have %d bytes of encapsulated bundle, want %d", len(innerBytes), declaredLen)
	}
	innerBytes = innerBytes[:declaredLen]

	var inner *bundle.Bundle
	remaining := innerBytes
	for len(remaining) > 0 {
		chunk := remaining
		if len(chunk) > blockSize {
			chunk = chunk[:blockSize]
		}

		n, b, complete, cerr := consume(chunk)
		if cerr != nil {
			return nil, Disposition{}, fmt.Errorf("bibe: failed to consume encapsulated bundle: %w", cerr)
		}
		if n <= 0 {
			return nil, Disposition{}, fmt.Errorf("bibe: encapsulated bundle consumer made no progress")
		}

		remaining = remaining[n:]
		inner = b

		if complete {
			break
		}
	}

	if inner == nil {
		return nil, Disposition{}, fmt.Errorf("bibe: encapsulated bundle never completed")
	}

	if err := registry.ValidateAll(inner); err != nil {
		return nil, Disposition{
			TransmissionID: header.TransmissionID,
			Success:        false,
			Reason:         err.Error(),
		}, fmt.Errorf("bibe: encapsulated bundle failed validation: %w", err)
	}

	return inner, Disposition{
		TransmissionID: header.TransmissionID,
		Success:        true,
	}, nil
}

// HandleCustodyTransfer records the extraction's disposition into the ACS
// queue addressed to source, when the outer record carries a non-zero
// transmission id, per BIBEExtractor::handle_custody_transfer.
func HandleCustodyTransfer(acs *forwarding.ACSQueue, version uint8, source bundle.EndpointID, disp Disposition) {
	if disp.TransmissionID == 0 {
		return
	}

	acs.Add(version, source, disp.TransmissionID, disp.Success, disp.Reason)

	log.WithFields(log.Fields{
		"tx_id":   disp.TransmissionID,
		"source":  source,
		"success": disp.Success,
	}).Debug("BIBE custody disposition queued for ACS")
}

// Queue is a bounded single-consumer event queue for extraction requests,
// the idiomatic-Go replacement for BIBEExtractor::run's 100ms poll_multiple
// loop: a buffered channel drained by one goroutine, with a ticker standing
// in for the periodic should_stop check so shutdown stays responsive even
// while idle.
type Queue struct {
	in   chan []byte
	done chan struct{}
}

// NewQueue creates a Queue with the given buffer depth and starts its
// consumer goroutine, invoking handle for each payload until Close is
// called.
func NewQueue(depth int, handle func(payload []byte)) *Queue {
	q := &Queue{
		in:   make(chan []byte, depth),
		done: make(chan struct{}),
	}

	go q.run(handle)

	return q
}

func (q *Queue) run(handle func(payload []byte)) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-q.done:
			return
		case payload := <-q.in:
			handle(payload)
		case <-ticker.C:
			// idle tick, matching BIBEExtractor::run's periodic wakeup
		}
	}
}

// Submit enqueues a BIBE payload for extraction. It blocks if the queue is
// full, exerting backpressure on the caller rather than dropping payloads.
func (q *Queue) Submit(payload []byte) {
	q.in <- payload
}

// Close stops the Queue's consumer goroutine.
func (q *Queue) Close() {
	close(q.done)
}
