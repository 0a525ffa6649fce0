package agent

import (
	"github.com/gorilla/mux"

	"github.com/dtn7/dtnme-go/pkg/routing"
	"github.com/dtn7/dtnme-go/pkg/storage"
)

// Server binds the inspection surface's HTTP handlers to a Daemon and a
// Store. Its Router must be mounted on a http.Server by the caller, mirroring
// how the teacher's cmd/dtnd/configuration.go builds a mux.Router and wraps
// it in its own http.Server rather than Server owning the listener itself.
type Server struct {
	daemon *routing.Daemon
	store  *storage.Store
}

// NewServer creates a Server inspecting daemon and store.
func NewServer(daemon *routing.Daemon, store *storage.Store) *Server {
	return &Server{daemon: daemon, store: store}
}

// Router builds a mux.Router serving every inspection endpoint under
// prefix, e.g. "/rest" to match the teacher's RestAgent mount point.
func (s *Server) Router(prefix string) *mux.Router {
	r := mux.NewRouter()
	sub := r.PathPrefix(prefix).Subrouter()

	sub.HandleFunc("/routes", s.handleRoutes).Methods("GET")
	sub.HandleFunc("/links", s.handleLinks).Methods("GET")
	sub.HandleFunc("/registrations", s.handleRegistrations).Methods("GET")
	sub.HandleFunc("/bundles", s.handleBundles).Methods("GET")
	sub.HandleFunc("/events", s.handleEvents)

	return r
}
