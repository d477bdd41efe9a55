package api

import (
	"net/http"
	"runtime"
	"time"
)

const bytesPerMiB = 1 << 20

// metricsResponse is the /api/v1/metrics body. Optional components are
// omitted when they are not configured.
type metricsResponse struct {
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Go            goStats         `json:"go"`
	Door          doorStats       `json:"door"`
	StreamClients int             `json:"stream_clients"`
	MQTT          *mqttStats      `json:"mqtt,omitempty"`
	History       *historyDBStats `json:"history_db,omitempty"`
}

type goStats struct {
	Goroutines int     `json:"goroutines"`
	HeapMiB    float64 `json:"heap_mib"`
	GCCycles   uint32  `json:"gc_cycles"`
}

// doorStats describes the last check without reading the bus again.
type doorStats struct {
	SensorID    string   `json:"sensor_id"`
	State       string   `json:"state,omitempty"`
	Roll        *float64 `json:"roll,omitempty"`
	CheckedAt   string   `json:"checked_at,omitempty"`
	Kickstarted bool     `json:"kickstarted"`
}

type mqttStats struct {
	Connected bool `json:"connected"`
}

type historyDBStats struct {
	OpenConns int   `json:"open_conns"`
	InUse     int   `json:"in_use"`
	Waits     int64 `json:"waits"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	resp := metricsResponse{
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime) / time.Second),
		Go: goStats{
			Goroutines: runtime.NumGoroutine(),
			HeapMiB:    float64(mem.HeapAlloc) / bytesPerMiB,
			GCCycles:   mem.NumGC,
		},
		Door:          doorStats{SensorID: s.monitor.SensorID()},
		StreamClients: s.hub.ClientCount(),
	}

	if last, ok := s.monitor.Latest(); ok {
		roll := last.Orientation.Roll
		resp.Door.State = last.State.String()
		resp.Door.Roll = &roll
		resp.Door.CheckedAt = last.Timestamp.Format(time.RFC3339)
		resp.Door.Kickstarted = last.Kickstarted
	}
	if s.mqtt != nil {
		resp.MQTT = &mqttStats{Connected: s.mqtt.IsConnected()}
	}
	if s.db != nil {
		st := s.db.Stats()
		resp.History = &historyDBStats{OpenConns: st.OpenConnections, InUse: st.InUse, Waits: st.WaitCount}
	}

	writeJSON(w, http.StatusOK, resp)
}
