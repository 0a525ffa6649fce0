package agent

import (
	"encoding/json"
	"net/http"
)

type routeEntryView struct {
	Dest     string `json:"dest"`
	NextHop  string `json:"next_hop,omitempty"`
	RouteTo  string `json:"route_to,omitempty"`
	Priority int    `json:"priority"`
}

// handleRoutes lists every static routing rule currently in the Daemon's
// RouteTable.
func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	entries := s.daemon.Table().Entries()

	views := make([]routeEntryView, 0, len(entries))
	for _, e := range entries {
		v := routeEntryView{Dest: e.Dest.String(), Priority: e.Priority}
		if e.HasRouteTo {
			v.RouteTo = e.RouteTo.String()
		} else {
			v.NextHop = e.NextHop
		}
		views = append(views, v)
	}

	writeJSON(w, views)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
