package httpapi

import "net/http"

// handlePerfLatency reports the rolling per-stage turn latency window.
func (s *Server) handlePerfLatency(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"store_mode": s.storeMode,
		"turns":      s.metrics.SnapshotTurnStages(),
	})
}

func (s *Server) handlePerfLatencyReset(w http.ResponseWriter, _ *http.Request) {
	s.metrics.ResetTurnStages()
	w.WriteHeader(http.StatusNoContent)
}
