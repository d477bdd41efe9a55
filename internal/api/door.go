package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/nerrad567/gray-logic-doorsense/internal/door"
	"github.com/nerrad567/gray-logic-doorsense/internal/sensor"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// doorResponse is the diagnostics view of a single check.
type doorResponse struct {
	SensorID    string        `json:"sensor_id"`
	State       door.State    `json:"state"`
	StatusCode  int           `json:"status_code"`
	Roll        float64       `json:"roll"`
	Pitch       float64       `json:"pitch"`
	Sample      sensor.Sample `json:"sample"`
	Kickstarted bool          `json:"kickstarted"`
	Error       string        `json:"error,omitempty"`
	KickError   string        `json:"kickstart_error,omitempty"`
	Timestamp   string        `json:"timestamp"`
}

// historyResponse wraps transition history for one sensor.
type historyResponse struct {
	SensorID string            `json:"sensor_id"`
	Count    int               `json:"count"`
	Entries  []door.Transition `json:"entries"`
}

// handleGetDoor runs a fresh check and returns the full reading as JSON.
//
// Unlike /status this always answers 200; the failure is carried in the body.
func (s *Server) handleGetDoor(w http.ResponseWriter, r *http.Request) {
	reading := s.monitor.Check(r.Context())

	resp := doorResponse{
		SensorID:    reading.SensorID,
		State:       reading.State,
		StatusCode:  reading.State.HTTPStatus(),
		Roll:        reading.Orientation.Roll,
		Pitch:       reading.Orientation.Pitch,
		Sample:      reading.Sample,
		Kickstarted: reading.Kickstarted,
		Timestamp:   reading.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	if reading.Err != nil {
		resp.Error = reading.Err.Error()
	}
	if reading.KickstartErr != nil {
		resp.KickError = reading.KickstartErr.Error()
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleGetDoorHistory returns recorded transitions, newest first.
func (s *Server) handleGetDoorHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeServiceUnavailable(w, "transition history is not enabled")
		return
	}

	limit, err := parseHistoryLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	sensorID := s.monitor.SensorID()
	entries, err := s.history.GetHistory(r.Context(), sensorID, limit)
	if err != nil {
		s.logger.Error("failed to load door history", "sensor_id", sensorID, "error", err)
		writeInternalError(w, "failed to load door history")
		return
	}

	writeJSON(w, http.StatusOK, historyResponse{
		SensorID: sensorID,
		Count:    len(entries),
		Entries:  entries,
	})
}

// parseHistoryLimit parses the limit query parameter.
func parseHistoryLimit(raw string) (int, error) {
	if raw == "" {
		return defaultHistoryLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit")
	}
	if limit > maxHistoryLimit {
		return 0, fmt.Errorf("limit exceeds maximum")
	}

	return limit, nil
}
