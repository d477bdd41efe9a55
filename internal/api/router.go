package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(middleware.GetHead) // HEAD /status answers with the GET status code

	r.NotFound(s.handleNotFound)
	r.MethodNotAllowed(s.handleMethodNotAllowed)

	r.Get("/status", s.handleStatus)

	if s.cfg.Diagnostics {
		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/health", s.handleHealth)
			r.Get("/metrics", s.handleMetrics)

			r.Route("/door", func(r chi.Router) {
				r.Get("/", s.handleGetDoor)
				r.Get("/history", s.handleGetDoorHistory)
			})

			r.Get("/ws", s.handleWebSocket)
		})
	}

	return r
}

// handleStatus reports the door state as plain text.
//
// Every request performs a fresh check; the state decides both body and code.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	reading := s.monitor.Check(r.Context())

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(reading.State.HTTPStatus())
	//nolint:errcheck // Best-effort write to response; connection may be closed
	w.Write([]byte(reading.State.Body()))
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"status":    "ok",
		"version":   s.version,
		"sensor_id": s.monitor.SensorID(),
	}
	if s.mqtt != nil {
		resp["mqtt_connected"] = s.mqtt.IsConnected()
	}
	if latest, ok := s.monitor.Latest(); ok {
		resp["last_state"] = latest.State
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, codeNotFound, "route not found")
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
}
