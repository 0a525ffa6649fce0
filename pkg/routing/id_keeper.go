// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package routing

import (
	"sync"
	"time"

	"github.com/dtn7/dtnme-go/pkg/bundle"
)

// idTuple is a tuple struct for looking up a bundle's iD - based on it's
// source node and the creation timestamp's time part.
type idTuple struct {
	source bundle.EndpointID
	time   uint64
}

// newIdTuple creates an idTuple based on the given bundle.
func newIdTuple(b *bundle.Bundle) idTuple {
	return idTuple{
		source: b.Source,
		time:   b.CreationTimestamp,
	}
}

// IdKeeper keeps track of the creation timestamp's sequence number for
// outbounding bundles.
type IdKeeper struct {
	data      map[idTuple]uint64
	mutex     sync.Mutex
	autoClean bool
}

// NewIdKeeper creates a new, empty IdKeeper.
func NewIdKeeper() IdKeeper {
	return IdKeeper{
		data:      make(map[idTuple]uint64),
		autoClean: true,
	}
}

// update updates the IdKeeper's state regarding this bundle and sets this
// bundle's sequence number.
func (idk *IdKeeper) update(b *bundle.Bundle) {
	tpl := newIdTuple(b)

	idk.mutex.Lock()
	if state, ok := idk.data[tpl]; ok {
		idk.data[tpl] = state + 1
	} else {
		idk.data[tpl] = 0
	}

	b.SequenceNumber = idk.data[tpl]
	idk.mutex.Unlock()

	if idk.autoClean {
		idk.clean()
	}
}

// clean removes states which are older than a day and aren't the epoch time.
func (idk *IdKeeper) clean() {
	idk.mutex.Lock()

	threshold := uint64(time.Now().Unix()) - 60*60*24

	for tpl := range idk.data {
		if tpl.time < threshold && tpl.time != 0 {
			delete(idk.data, tpl)
		}
	}
	idk.mutex.Unlock()
}
