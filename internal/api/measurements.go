package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/sablewood/terrarium-core/internal/telemetry"
)

// ingestRequest is the body of POST /api/measurements.
type ingestRequest struct {
	Readings []telemetry.IncomingReading `json:"readings"`
}

// handleQueryMeasurements returns readings for one device metric.
//
// Query parameters:
//   - device_key, metric: required filters
//   - start, end: optional inclusive ISO 8601 bounds
//   - limit: optional row cap (default 1440, ceiling 10000)
//   - order: "desc" for newest first, anything else is ascending
func (s *Server) handleQueryMeasurements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	deviceKey := q.Get("device_key")
	metric := q.Get("metric")
	if deviceKey == "" || metric == "" {
		writeBadRequest(w, telemetry.ErrRangeFieldsRequired.Error())
		return
	}

	start, err := parseTimeParam(q.Get("start"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	end, err := parseTimeParam(q.Get("end"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	limit, err := parseLimitParam(q.Get("limit"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	readings, err := s.queries.Range(r.Context(), telemetry.RangeFilter{
		DeviceKey:  deviceKey,
		Metric:     metric,
		Start:      start,
		End:        end,
		Limit:      limit,
		Descending: q.Get("order") == "desc",
	})
	if err != nil {
		s.logger.Error("measurement query failed", "device_key", deviceKey, "metric", metric, "error", err)
		writeInternalError(w, "failed to query measurements")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"measurements": readings})
}

// handleIngestMeasurements stores a batch of readings.
//
// The batch is all-or-nothing: the first invalid reading rejects the whole
// request and nothing is persisted. A malformed body is treated the same as
// an empty batch.
func (s *Server) handleIngestMeasurements(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, telemetry.ErrEmptyBatch.Error())
		return
	}

	count, err := s.ingestor.Ingest(r.Context(), req.Readings)
	if err != nil {
		if isIngestValidationError(err) {
			writeBadRequest(w, err.Error())
			return
		}
		s.logger.Error("reading ingest failed", "readings", len(req.Readings), "error", err)
		writeInternalError(w, "failed to store readings")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ingested": count})
}

// parseTimeParam parses an optional ISO 8601 query parameter.
func parseTimeParam(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := telemetry.ParseTimestamp(value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parseLimitParam parses an optional positive integer query parameter.
// Zero is returned when absent, letting the query layer apply its default.
func parseLimitParam(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.New("limit must be an integer")
	}
	return limit, nil
}

// isIngestValidationError reports whether an ingest failure was caused by
// the request payload rather than the server. Validation sentinel messages
// are surfaced verbatim in the 400 body.
func isIngestValidationError(err error) bool {
	return errors.Is(err, telemetry.ErrEmptyBatch) ||
		errors.Is(err, telemetry.ErrMissingFields) ||
		errors.Is(err, telemetry.ErrValueNotNumber) ||
		errors.Is(err, telemetry.ErrTimestampRequired) ||
		errors.Is(err, telemetry.ErrInvalidTimestamp)
}
