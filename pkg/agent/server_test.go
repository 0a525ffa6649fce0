package agent

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dtn7/dtnme-go/pkg/bundle"
	"github.com/dtn7/dtnme-go/pkg/routing"
	"github.com/dtn7/dtnme-go/pkg/storage"
)

type noopActions struct{}

func (noopActions) OpenLink(string) error { return nil }
func (noopActions) QueueBundle(*bundle.Bundle, routing.Link, bundle.Action, bundle.CustodyTimerSpec) error {
	return nil
}
func (noopActions) CancelBundle(*bundle.Bundle, routing.Link) error { return nil }

func newTestServer(t *testing.T) (*Server, *routing.Daemon, *storage.Store) {
	t.Helper()

	store, err := storage.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	daemon := routing.NewDaemon(noopActions{})
	t.Cleanup(func() { _ = daemon.Close() })

	return NewServer(daemon, store), daemon, store
}

func TestHandleRoutesListsEntries(t *testing.T) {
	s, daemon, _ := newTestServer(t)

	daemon.Table().AddEntry(routing.RouteEntry{
		Dest:     bundle.MustNewEndpointIDPattern("dtn://dest/*"),
		NextHop:  "link0",
		Priority: 5,
	})

	ts := httptest.NewServer(s.Router("/rest"))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/rest/routes")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()

	var views []routeEntryView
	if err := json.NewDecoder(resp.Body).Decode(&views); err != nil {
		t.Fatal(err)
	}
	if len(views) != 1 || views[0].NextHop != "link0" {
		t.Fatalf("unexpected routes response: %+v", views)
	}
}

func TestHandleLinksEmpty(t *testing.T) {
	s, _, _ := newTestServer(t)

	ts := httptest.NewServer(s.Router("/rest"))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/rest/links")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()

	var views []linkView
	if err := json.NewDecoder(resp.Body).Decode(&views); err != nil {
		t.Fatal(err)
	}
	if len(views) != 0 {
		t.Fatalf("expected no links, got %+v", views)
	}
}

func TestHandleRegistrations(t *testing.T) {
	s, daemon, _ := newTestServer(t)

	eid := bundle.MustNewEndpointID("dtn://local/")
	if err := daemon.Register(routing.Registration{ID: 1, EID: eid, Deliver: func(*bundle.Bundle) {}}); err != nil {
		t.Fatal(err)
	}

	ts := httptest.NewServer(s.Router("/rest"))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/rest/registrations")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()

	var views []registrationView
	if err := json.NewDecoder(resp.Body).Decode(&views); err != nil {
		t.Fatal(err)
	}
	if len(views) != 1 || views[0].EID != eid.String() {
		t.Fatalf("unexpected registrations response: %+v", views)
	}
}

func TestHandleEventsStreamsContactUp(t *testing.T) {
	s, daemon, _ := newTestServer(t)

	ts := httptest.NewServer(s.Router("/rest"))
	defer ts.Close()

	u, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	wsURL := url.URL{Scheme: "ws", Host: u.Host, Path: "/rest/events"}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()

	daemon.Post(routing.ContactUpEvent{Link: "link0"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading event failed: %v", err)
	}

	if !strings.Contains(string(data), "ContactUp") || !strings.Contains(string(data), "link0") {
		t.Fatalf("unexpected event payload: %s", data)
	}
}
