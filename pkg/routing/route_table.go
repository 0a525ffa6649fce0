// Grounded in original_source/servlib/routing/RouteTable.h/.cc: a flat vector
// of RouteEntry rows guarded by a single lock, with a recursive "route to
// another destination pattern" resolution step and a loop guard bounding how
// many times that recursion may chain.
package routing

import (
	"sync"

	"github.com/dtn7/dtnme-go/pkg/bundle"
)

// maxRouteToChain bounds RouteTable.resolve's recursion, mirroring
// RouteTable::max_route_to_chain_ (DTNME defaults this to 10).
const maxRouteToChain = 10

// RouteEntry is one static routing rule: bundles matching Dest should be
// forwarded out NextHop, unless HasRouteTo is set, in which case NextHop is
// empty and RouteTo is an EndpointIDPattern to resolve recursively against the table
// (RouteTable.cc's "route to" indirection, used to alias one destination
// pattern to another without duplicating entries).
type RouteEntry struct {
	Dest     bundle.EndpointIDPattern
	NextHop  string // a Link name; empty if RouteTo is set
	RouteTo  bundle.EndpointIDPattern
	HasRouteTo bool
	Priority int
	Action   bundle.Action
	Custody  bundle.CustodyTimerSpec
}

// RouteTable holds the static forwarding rules consulted by
// TableBasedRouter.route_bundle.
type RouteTable struct {
	mu      sync.Mutex
	entries []RouteEntry
}

// NewRouteTable creates an empty RouteTable.
func NewRouteTable() *RouteTable {
	return &RouteTable{}
}

// AddEntry appends a new routing rule.
func (rt *RouteTable) AddEntry(entry RouteEntry) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.entries = append(rt.entries, entry)
}

// DelEntry removes entries matching both dest and nextHop exactly, per
// RouteTable::del_entry.
func (rt *RouteTable) DelEntry(dest bundle.EndpointIDPattern, nextHop string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	kept := rt.entries[:0]
	for _, e := range rt.entries {
		if e.Dest.Equal(dest) && e.NextHop == nextHop {
			continue
		}
		kept = append(kept, e)
	}
	rt.entries = kept
}

// DelEntries removes every entry whose destination matches dest, per
// RouteTable::del_entries (predicate DestMatches).
func (rt *RouteTable) DelEntries(dest bundle.EndpointIDPattern) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	kept := rt.entries[:0]
	for _, e := range rt.entries {
		if e.Dest.Equal(dest) {
			continue
		}
		kept = append(kept, e)
	}
	rt.entries = kept
}

// DelEntriesForNextHop removes every entry whose NextHop equals the given
// link name, per RouteTable::del_entries_for_nexthop (predicate
// NextHopMatches). Used by LinkDeletedEvent handling.
func (rt *RouteTable) DelEntriesForNextHop(nextHop string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	kept := rt.entries[:0]
	for _, e := range rt.entries {
		if e.NextHop == nextHop {
			continue
		}
		kept = append(kept, e)
	}
	rt.entries = kept
}

// Clear removes every entry.
func (rt *RouteTable) Clear() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.entries = nil
}

// Entries returns a copy of every entry currently in the table.
func (rt *RouteTable) Entries() []RouteEntry {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	out := make([]RouteEntry, len(rt.entries))
	copy(out, rt.entries)
	return out
}

// GetMatching returns every route entry whose destination pattern matches
// eid, resolved through any RouteTo indirections, deduplicated by NextHop
// and sorted by descending Priority. If the indirection chain for some entry
// recurses past maxRouteToChain, that single entry is dropped (not the whole
// lookup) and loop is set true, mirroring RouteTable::get_matching_helper's
// "set *loop=true and continue" behavior rather than aborting the query.
func (rt *RouteTable) GetMatching(eid bundle.EndpointID) (matches []RouteEntry, loop bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	seen := map[string]bool{}

	for _, e := range rt.entries {
		if !e.Dest.Match(eid) {
			continue
		}

		resolved, ok, looped := rt.resolve(e, eid, 0)
		if looped {
			loop = true
		}
		if !ok {
			continue
		}
		if seen[resolved.NextHop] {
			continue
		}
		seen[resolved.NextHop] = true
		matches = append(matches, resolved)
	}

	sortRoutesByPriority(matches)
	return matches, loop
}

// resolve follows a RouteTo indirection chain until it reaches an entry with
// a concrete NextHop, bounded by maxRouteToChain. Caller must hold rt.mu.
func (rt *RouteTable) resolve(e RouteEntry, eid bundle.EndpointID, depth int) (RouteEntry, bool, bool) {
	if !e.HasRouteTo {
		return e, true, false
	}
	if depth >= maxRouteToChain {
		return RouteEntry{}, false, true
	}

	for _, candidate := range rt.entries {
		if !candidate.Dest.Match(bundle.EndpointID{Scheme: e.RouteTo.Scheme, SSP: e.RouteTo.SSP}) {
			continue
		}
		resolved, ok, looped := rt.resolve(candidate, eid, depth+1)
		if ok {
			resolved.Priority = e.Priority
			resolved.Action = e.Action
			resolved.Custody = e.Custody
			return resolved, true, looped
		}
		if looped {
			return RouteEntry{}, false, true
		}
	}

	return RouteEntry{}, false, false
}

// sortRoutesByPriority sorts matches by descending priority, matching
// TableBasedRouter.cc's sort_routes step. Ties keep their original relative
// order (a stable sort), matching the table's insertion-order tie-break.
func sortRoutesByPriority(matches []RouteEntry) {
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j-1].Priority < matches[j].Priority; j-- {
			matches[j-1], matches[j] = matches[j], matches[j-1]
		}
	}
}
