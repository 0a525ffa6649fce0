package agent

import (
	"net/http"

	log "github.com/sirupsen/logrus"
)

type bundleView struct {
	Key               string `json:"key"`
	Source            string `json:"source"`
	CreationTimestamp uint64 `json:"creation_timestamp"`
	SequenceNumber    uint64 `json:"sequence_number"`
	IsFragment        bool   `json:"is_fragment,omitempty"`
	FragmentOffset    uint64 `json:"fragment_offset,omitempty"`
	Expires           string `json:"expires"`
}

// handleBundles lists every bundle currently pending in the Store.
func (s *Server) handleBundles(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.QueryPending()
	if err != nil {
		log.WithError(err).Warn("agent: querying pending bundles failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	views := make([]bundleView, 0, len(items))
	for _, it := range items {
		views = append(views, bundleView{
			Key:               it.Key,
			Source:            it.Source,
			CreationTimestamp: it.CreationTimestamp,
			SequenceNumber:    it.SequenceNumber,
			IsFragment:        it.IsFragment,
			FragmentOffset:    it.FragmentOffset,
			Expires:           it.Expires.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}

	writeJSON(w, views)
}
