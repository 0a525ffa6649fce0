package bundle

// Grounded in original_source/servlib/bundling/ForwardingInfo.h and
// ForwardingLog.h/.cc: DTNME keeps one ForwardingLog per bundle, recording
// every link/registration a bundle has been queued for, transmitted on,
// failed on, or had custody time out for. The router consults it before
// re-forwarding; custody timers consult it to find the link a timeout fired
// against.

// Action is the bit-flag action a ForwardingLog entry records.
type Action uint32

const (
	InvalidAction Action = 0
	ForwardAction Action = 1 << 0
	CopyAction    Action = 1 << 1

	AnyAction Action = 0xffffffff
)

// State is the bit-flag state a ForwardingLog entry records. Bits mirror
// ForwardingInfo::state_t exactly so GetCount's bitmask semantics carry over
// unchanged.
type State uint32

const (
	StateNone            State = 0
	StateQueued          State = 1 << 0
	StateTransmitted     State = 1 << 1
	StateTransmitFailed  State = 1 << 2
	StateCancelled       State = 1 << 3
	StateCustodyTimeout  State = 1 << 4
	StatePendingDelivery State = 1 << 5
	StateDelivered       State = 1 << 6
	StateSuppressed      State = 1 << 7
	StateReceived        State = 1 << 10

	AnyState State = 0xffffffff
)

// NoRegistrationID marks a ForwardingInfo entry that has no registration,
// matching DTNME's default regid_ of 0xffffffff.
const NoRegistrationID uint32 = 0xffffffff

// CustodyTimerSpec configures how long a CustodyTimer waits before firing,
// per original_source/servlib/bundling/CustodyTimer.h. Zero-value Min/Max
// mean "no clamp", matching the C++ defaults of (30*60, 25, 0).
type CustodyTimerSpec struct {
	Min          uint32 // minimum timeout in seconds, 0 = no floor
	LifetimePct  uint32 // percentage of the bundle's lifetime to wait
	Max          uint32 // maximum timeout in seconds, 0 = no ceiling
}

// DefaultCustodyTimerSpec mirrors CustodyTimerSpec's C++ default constructor.
func DefaultCustodyTimerSpec() CustodyTimerSpec {
	return CustodyTimerSpec{Min: 30 * 60, LifetimePct: 25, Max: 0}
}

// CalculateTimeout computes the custody retransmission timeout in seconds
// for a bundle with the given lifetime in seconds, per CustodyTimer.cc's
// calculate_timeout: timeout = lifetime_pct * lifetime / 100, then clamped
// to [Min, Max] where either bound of zero disables that side of the clamp.
func (s CustodyTimerSpec) CalculateTimeout(lifetimeSec uint64) uint32 {
	timeout := uint64(s.LifetimePct) * lifetimeSec / 100

	if s.Min != 0 && timeout < uint64(s.Min) {
		timeout = uint64(s.Min)
	}
	if s.Max != 0 && timeout > uint64(s.Max) {
		timeout = uint64(s.Max)
	}
	return uint32(timeout)
}

// ForwardingInfo is one entry in a bundle's ForwardingLog: what happened,
// when, on which link or to which registration, with what custody timer
// settings in effect at the time. Exactly mirrors ForwardingInfo.h's fields.
type ForwardingInfo struct {
	State        State
	Action       Action
	LinkName     string
	RegID        uint32
	RemoteEID    EndpointID
	Timestamp    int64 // unix seconds
	CustodySpec  CustodyTimerSpec
}

// ForwardingLog is the append/update log of ForwardingInfo entries kept per
// bundle. Callers must hold the owning Bundle's lock; the log itself adds no
// locking of its own, matching ForwardingLog.cc's reliance on the bundle's
// lock_ rather than an internal one.
type ForwardingLog struct {
	entries []ForwardingInfo
}

// AddEntry appends a new ForwardingInfo for a link-based forwarding attempt.
func (l *ForwardingLog) AddEntry(linkName string, action Action, state State, spec CustodyTimerSpec, now int64) {
	l.entries = append(l.entries, ForwardingInfo{
		State:       state,
		Action:      action,
		LinkName:    linkName,
		RegID:       NoRegistrationID,
		Timestamp:   now,
		CustodySpec: spec,
	})
}

// AddRegistrationEntry appends a new ForwardingInfo for a local-delivery
// registration attempt.
func (l *ForwardingLog) AddRegistrationEntry(regID uint32, action Action, state State, now int64) {
	l.entries = append(l.entries, ForwardingInfo{
		State:     state,
		Action:    action,
		RegID:     regID,
		Timestamp: now,
	})
}

// AddEIDEntry appends a new ForwardingInfo carrying only a remote EID, used
// by the wildcard suppression entry ("*:*", StateSuppressed) and by BIBE's
// received-from-peer bookkeeping.
func (l *ForwardingLog) AddEIDEntry(remote EndpointID, action Action, state State, now int64) {
	l.entries = append(l.entries, ForwardingInfo{
		State:     state,
		Action:    action,
		RegID:     NoRegistrationID,
		RemoteEID: remote,
		Timestamp: now,
	})
}

// GetLatestEntry returns the most recent entry for the given link name, and
// whether one was found.
func (l *ForwardingLog) GetLatestEntry(linkName string) (ForwardingInfo, bool) {
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].LinkName == linkName {
			return l.entries[i], true
		}
	}
	return ForwardingInfo{}, false
}

// GetLatestEntryForRegistration returns the most recent entry for the given
// registration id, and whether one was found.
func (l *ForwardingLog) GetLatestEntryForRegistration(regID uint32) (ForwardingInfo, bool) {
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].RegID == regID {
			return l.entries[i], true
		}
	}
	return ForwardingInfo{}, false
}

// GetLatestEntryForState returns the most recent entry whose state is set in
// the given states mask, and whether one was found.
func (l *ForwardingLog) GetLatestEntryForState(states State) (ForwardingInfo, bool) {
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].State&states != 0 {
			return l.entries[i], true
		}
	}
	return ForwardingInfo{}, false
}

// Update rewrites the most recent entry for linkName in place, setting its
// state to newState and bumping its timestamp, per ForwardingLog::update. If
// no entry exists yet for linkName, one is recorded from scratch with
// ForwardAction and a zero custody spec, so Update never fails silently.
func (l *ForwardingLog) Update(linkName string, newState State, now int64) {
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].LinkName == linkName && l.entries[i].RegID == NoRegistrationID {
			l.entries[i].State = newState
			l.entries[i].Timestamp = now
			return
		}
	}
	l.AddEntry(linkName, ForwardAction, newState, CustodyTimerSpec{}, now)
}

// UpdateAll rewrites every entry currently in oldState to newState in place,
// per ForwardingLog::update_all. Afterwards GetCount(oldState, AnyAction) is
// always zero.
func (l *ForwardingLog) UpdateAll(oldState, newState State, now int64) {
	for i := range l.entries {
		if l.entries[i].State == oldState {
			l.entries[i].State = newState
			l.entries[i].Timestamp = now
		}
	}
}

// GetCount returns the number of entries whose state is in the states mask
// and whose action is in the actions mask, per
// ForwardingLog::get_count(states, actions).
func (l *ForwardingLog) GetCount(states State, actions Action) int {
	count := 0
	for _, e := range l.entries {
		if e.State&states != 0 && e.Action&actions != 0 {
			count++
		}
	}
	return count
}

// GetCountForEID is the EID-filtered variant of GetCount, matching entries
// recorded against remote EID in addition to the state/action masks.
func (l *ForwardingLog) GetCountForEID(eid EndpointID, states State, actions Action) int {
	count := 0
	for _, e := range l.entries {
		if e.RemoteEID.Equal(eid) && e.State&states != 0 && e.Action&actions != 0 {
			count++
		}
	}
	return count
}

// Clear removes all entries from the log.
func (l *ForwardingLog) Clear() {
	l.entries = nil
}

// Entries returns a copy of the log's entries in insertion order.
func (l *ForwardingLog) Entries() []ForwardingInfo {
	out := make([]ForwardingInfo, len(l.entries))
	copy(out, l.entries)
	return out
}
