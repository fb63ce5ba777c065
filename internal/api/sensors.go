package api

import (
	"net/http"
)

// handleListSensors returns every known device, ordered by display name.
//
// Devices appear here whether they were seeded or auto-provisioned by a
// reading batch; the dashboard uses this listing to label its panels.
func (s *Server) handleListSensors(w http.ResponseWriter, r *http.Request) {
	devices, err := s.devices.ListDevices(r.Context())
	if err != nil {
		s.logger.Error("sensor listing failed", "error", err)
		writeInternalError(w, "failed to list sensors")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"sensors": devices})
}
