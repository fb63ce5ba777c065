package api

import (
	"encoding/json"
	"net/http"

	"github.com/sablewood/terrarium-core/internal/alert"
)

// handleListAlerts returns all stored alert rules, ordered by metric.
func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	rules, err := s.alerts.List(r.Context())
	if err != nil {
		s.logger.Error("alert listing failed", "error", err)
		writeInternalError(w, "failed to list alerts")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"alerts": rules})
}

// handleCreateAlert stores a new alert rule.
//
// Rules are stored for configuration only; nothing in this core evaluates
// them against incoming readings. A malformed body is treated as an empty
// payload, so the validation error names the missing fields.
func (s *Server) handleCreateAlert(w http.ResponseWriter, r *http.Request) {
	var incoming alert.IncomingRule
	//nolint:errcheck // A malformed body falls through to field validation
	json.NewDecoder(r.Body).Decode(&incoming)

	rule, err := alert.NormalizeRule(incoming)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if err := s.alerts.Create(r.Context(), rule); err != nil {
		s.logger.Error("alert creation failed", "metric", rule.Metric, "error", err)
		writeInternalError(w, "failed to create alert")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"created": true, "id": rule.ID})
}
