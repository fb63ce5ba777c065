package api

import (
	"net/http"
)

// handleSummary returns the dashboard snapshot: the freshest sample per
// metric for every device seen in the recent-readings scan window.
//
// Query parameters:
//   - limit: optional scan window size (default 400, ceiling 2000)
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimitParam(r.URL.Query().Get("limit"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	summary, err := s.queries.Summarize(r.Context(), limit)
	if err != nil {
		s.logger.Error("summary query failed", "error", err)
		writeInternalError(w, "failed to build summary")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
