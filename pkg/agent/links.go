package agent

import "net/http"

type linkView struct {
	Name     string `json:"name"`
	Remote   string `json:"remote"`
	Type     string `json:"type"`
	State    string `json:"state"`
	QueueLen int    `json:"queue_len"`
	HasSpace bool   `json:"has_space"`
}

// handleLinks lists every Link currently registered with the Daemon.
func (s *Server) handleLinks(w http.ResponseWriter, r *http.Request) {
	links := s.daemon.Links()

	views := make([]linkView, 0, len(links))
	for _, l := range links {
		views = append(views, linkView{
			Name:     l.Name(),
			Remote:   l.Remote().String(),
			Type:     l.Type().String(),
			State:    l.State().String(),
			QueueLen: l.QueueLen(),
			HasSpace: l.QueueHasSpace(),
		})
	}

	writeJSON(w, views)
}
