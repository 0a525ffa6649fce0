package agent

import (
	"fmt"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/gorilla/websocket"

	"github.com/dtn7/dtnme-go/pkg/routing"
)

var upgrader = websocket.Upgrader{}

type eventView struct {
	Name string      `json:"event"`
	Data interface{} `json:"data"`
}

// handleEvents upgrades to a WebSocket and streams every routing.Event the
// Daemon dispatches from that point on, one JSON object per message, until
// the client disconnects. Mirrors the teacher's WebSocketAgent.ServeHTTP
// upgrade step, but one-directional: this surface only observes, it never
// reads application data back off the socket.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("agent: upgrading event WebSocket failed")
		return
	}
	defer func() { _ = conn.Close() }()

	events, cancel := s.daemon.Observe()
	defer cancel()

	for ev := range events {
		if err := conn.WriteJSON(eventView{Name: eventNameOf(ev), Data: ev}); err != nil {
			return
		}
	}
}

// eventNameOf derives a short tag for ev from its Go type, since
// routing.Event's own eventName() is unexported (routing's dispatch logic
// has no need to expose it outside the package).
func eventNameOf(ev routing.Event) string {
	name := strings.TrimPrefix(fmt.Sprintf("%T", ev), "routing.")
	return strings.TrimSuffix(name, "Event")
}

