package agent

import "net/http"

type registrationView struct {
	ID  uint32 `json:"id"`
	EID string `json:"eid"`
}

// handleRegistrations lists every local application-agent registration.
func (s *Server) handleRegistrations(w http.ResponseWriter, r *http.Request) {
	regs := s.daemon.Registrations()

	views := make([]registrationView, 0, len(regs))
	for _, reg := range regs {
		views = append(views, registrationView{ID: reg.ID, EID: reg.EID.String()})
	}

	writeJSON(w, views)
}
