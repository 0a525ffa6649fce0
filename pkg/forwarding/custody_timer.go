// Package forwarding implements the custody-transfer retransmission timer and
// the aggregate custody signal queue (spec §4.6), grounded in
// original_source/servlib/bundling/CustodyTimer.h/.cc. DTNME schedules an OS
// timer per outstanding custody transfer and posts a CustodyTimeoutEvent when
// it fires unless the transfer has since completed; here a goroutine plus
// time.Timer plays that role, following the teacher's Cron goroutine-based
// scheduling idiom (pkg/routing/cron.go) rather than a raw OS timer wrapper.
package forwarding

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/dtnme-go/pkg/bundle"
)

// TimeoutHandler is invoked when a CustodyTimer fires without having been
// cancelled first. It is the Go analogue of posting a CustodyTimeoutEvent to
// DTNME's central event queue.
type TimeoutHandler func(b *bundle.Bundle, linkName string)

// CustodyTimer tracks one outstanding custody-transfer retransmission
// deadline for a bundle/link pair.
type CustodyTimer struct {
	mu        sync.Mutex
	timer     *time.Timer
	cancelled bool
}

// NewCustodyTimer schedules a CustodyTimer to fire after spec's calculated
// timeout (CustodyTimerSpec.CalculateTimeout) has elapsed since xmitTime,
// invoking handler unless Cancel is called first. Matches
// CustodyTimer::schedule, which computes the remaining delay as
// (xmit_time + timeout) - now rather than always waiting the full timeout
// from the moment of scheduling.
func NewCustodyTimer(spec bundle.CustodyTimerSpec, lifetimeSec uint64, xmitTime time.Time, b *bundle.Bundle, linkName string, handler TimeoutHandler) *CustodyTimer {
	timeoutSec := spec.CalculateTimeout(lifetimeSec)
	deadline := xmitTime.Add(time.Duration(timeoutSec) * time.Second)
	delay := time.Until(deadline)
	if delay < 0 {
		delay = 0
	}

	ct := &CustodyTimer{}
	ct.timer = time.AfterFunc(delay, func() {
		ct.mu.Lock()
		cancelled := ct.cancelled
		ct.mu.Unlock()

		if cancelled {
			return
		}

		log.WithFields(log.Fields{
			"link":    linkName,
			"timeout": timeoutSec,
		}).Debug("Custody timer fired")

		handler(b, linkName)
	})

	return ct
}

// Cancel stops the timer. It is idempotent and safe to call after the timer
// has already fired, matching CustodyTimer::cancel's "bundle has a new
// custodian/was delivered/has expired, ignore any pending firing" contract.
func (ct *CustodyTimer) Cancel() {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	if ct.cancelled {
		return
	}
	ct.cancelled = true
	ct.timer.Stop()
}
