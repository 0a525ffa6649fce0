package bundle

import "testing"

func TestCustodyTimerSpecCalculateTimeout(t *testing.T) {
	tests := []struct {
		name     string
		spec     CustodyTimerSpec
		lifetime uint64
		want     uint32
	}{
		{"default floor kicks in", DefaultCustodyTimerSpec(), 60, 30 * 60},
		{"default no floor needed", DefaultCustodyTimerSpec(), 1000 * 60 * 4, 60000 * 4 * 25 / 100},
		{"max clamp", CustodyTimerSpec{Min: 0, LifetimePct: 100, Max: 100}, 10000, 100},
		{"no clamps", CustodyTimerSpec{LifetimePct: 50}, 1000, 500},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := test.spec.CalculateTimeout(test.lifetime)
			if got != test.want {
				t.Errorf("CalculateTimeout(%d) = %d, want %d", test.lifetime, got, test.want)
			}
		})
	}
}

func TestForwardingLogAddAndGetLatest(t *testing.T) {
	var log ForwardingLog

	log.AddEntry("link1", ForwardAction, StateQueued, CustodyTimerSpec{}, 100)
	log.AddEntry("link1", ForwardAction, StateTransmitted, CustodyTimerSpec{}, 101)
	log.AddEntry("link2", ForwardAction, StateQueued, CustodyTimerSpec{}, 102)

	entry, ok := log.GetLatestEntry("link1")
	if !ok {
		t.Fatal("expected an entry for link1")
	}
	if entry.State != StateTransmitted {
		t.Errorf("GetLatestEntry(link1).State = %v, want StateTransmitted", entry.State)
	}

	if _, ok := log.GetLatestEntry("link3"); ok {
		t.Error("expected no entry for link3")
	}
}

func TestForwardingLogUpdate(t *testing.T) {
	var log ForwardingLog

	log.AddEntry("link1", ForwardAction, StateQueued, CustodyTimerSpec{}, 100)
	log.Update("link1", StateTransmitted, 200)

	entry, ok := log.GetLatestEntry("link1")
	if !ok || entry.State != StateTransmitted {
		t.Fatalf("Update did not rewrite the entry to StateTransmitted, got %+v, ok=%v", entry, ok)
	}
	if entry.Action != ForwardAction {
		t.Errorf("Update should preserve the prior action, got %v", entry.Action)
	}
	if entry.Timestamp != 200 {
		t.Errorf("Update should bump the timestamp, got %d", entry.Timestamp)
	}
	if got := len(log.Entries()); got != 1 {
		t.Fatalf("Update should rewrite in place, not append: got %d entries", got)
	}
	if got := log.GetCount(StateQueued, AnyAction); got != 0 {
		t.Errorf("no entry should remain in StateQueued after Update, got %d", got)
	}
}

func TestForwardingLogUpdateAllClearsOldState(t *testing.T) {
	var log ForwardingLog

	log.AddEntry("link1", ForwardAction, StateQueued, CustodyTimerSpec{}, 100)
	log.AddEntry("link2", ForwardAction, StateQueued, CustodyTimerSpec{}, 101)
	log.AddRegistrationEntry(1, ForwardAction, StateQueued, 102)
	log.AddEntry("link3", ForwardAction, StateTransmitted, CustodyTimerSpec{}, 103)

	log.UpdateAll(StateQueued, StateTransmitted, 200)

	if got := log.GetCount(StateQueued, AnyAction); got != 0 {
		t.Fatalf("invariant violated: GetCount(StateQueued) = %d, want 0 after UpdateAll", got)
	}
	if got := log.GetCount(StateTransmitted, AnyAction); got != 4 {
		t.Fatalf("GetCount(StateTransmitted) = %d, want 4 after UpdateAll", got)
	}
	if got := len(log.Entries()); got != 4 {
		t.Fatalf("UpdateAll should rewrite in place, not append: got %d entries", got)
	}
}

func TestForwardingLogGetCount(t *testing.T) {
	var log ForwardingLog

	log.AddEntry("link1", ForwardAction, StateQueued, CustodyTimerSpec{}, 100)
	log.AddEntry("link2", ForwardAction, StateTransmitted, CustodyTimerSpec{}, 101)
	log.AddEntry("link3", CopyAction, StateTransmitted, CustodyTimerSpec{}, 102)

	if got := log.GetCount(StateTransmitted, AnyAction); got != 2 {
		t.Errorf("GetCount(Transmitted, Any) = %d, want 2", got)
	}
	if got := log.GetCount(StateTransmitted, ForwardAction); got != 1 {
		t.Errorf("GetCount(Transmitted, Forward) = %d, want 1", got)
	}
	if got := log.GetCount(StateQueued|StateTransmitted, AnyAction); got != 3 {
		t.Errorf("GetCount(Queued|Transmitted, Any) = %d, want 3", got)
	}
}

func TestForwardingLogWildcardSuppression(t *testing.T) {
	var log ForwardingLog

	log.AddEIDEntry(WildcardEID(), ForwardAction, StateSuppressed, 100)

	if got := log.GetCountForEID(WildcardEID(), StateSuppressed, AnyAction); got != 1 {
		t.Errorf("expected one suppression entry, got %d", got)
	}
}

func TestForwardingLogClear(t *testing.T) {
	var log ForwardingLog
	log.AddEntry("link1", ForwardAction, StateQueued, CustodyTimerSpec{}, 100)
	log.Clear()

	if len(log.Entries()) != 0 {
		t.Errorf("Clear should empty the log, got %d entries", len(log.Entries()))
	}
}
