package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleResolveStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"snapshots": s.store.Len(),
		"stats":     s.stats.Snapshot(),
	})
}
