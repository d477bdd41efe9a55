package influxdb_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-doorsense/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-doorsense/internal/infrastructure/influxdb"
)

// fakeInflux answers /ping and records line protocol posted to /api/v2/write.
type fakeInflux struct {
	*httptest.Server

	mu         sync.Mutex
	lines      []string
	query      string
	writeCode  int
	pingStatus int
}

func newFakeInflux(t *testing.T) *fakeInflux {
	t.Helper()
	f := &fakeInflux{writeCode: http.StatusNoContent, pingStatus: http.StatusNoContent}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeInflux) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.URL.Path {
	case "/ping", "/health":
		w.WriteHeader(f.pingStatus)
	case "/api/v2/write":
		body, _ := io.ReadAll(r.Body) //nolint:errcheck // test server
		f.query = r.URL.RawQuery
		if f.writeCode != http.StatusNoContent {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.writeCode)
			io.WriteString(w, `{"code":"invalid","message":"bad point"}`) //nolint:errcheck // test server
			return
		}
		f.lines = append(f.lines, strings.Split(strings.TrimSpace(string(body)), "\n")...)
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeInflux) written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

func testConfig(url string) config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           url,
		Token:         "doorsense-test-token",
		Org:           "graylogic",
		Bucket:        "doors",
		BatchSize:     10,
		FlushInterval: 1,
	}
}

func TestConnect(t *testing.T) {
	srv := newFakeInflux(t)

	client, err := influxdb.Connect(context.Background(), testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // Test cleanup

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestConnect_Errors(t *testing.T) {
	unhealthy := newFakeInflux(t)
	unhealthy.pingStatus = http.StatusServiceUnavailable

	tests := []struct {
		name    string
		cfg     config.InfluxDBConfig
		wantErr error
	}{
		{
			name:    "disabled",
			cfg:     config.InfluxDBConfig{URL: "http://127.0.0.1:1"},
			wantErr: influxdb.ErrDisabled,
		},
		{
			name:    "nothing listening",
			cfg:     testConfig("http://127.0.0.1:1"),
			wantErr: influxdb.ErrConnectionFailed,
		},
		{
			name:    "unhealthy server",
			cfg:     testConfig(unhealthy.URL),
			wantErr: influxdb.ErrConnectionFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := influxdb.Connect(context.Background(), tt.cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Connect() error = %v, want %v", err, tt.wantErr)
			}
			if client != nil {
				t.Error("Connect() returned a client with an error")
			}
		})
	}
}

func TestWriteDoorTilt_Flush(t *testing.T) {
	srv := newFakeInflux(t)
	client, err := influxdb.Connect(context.Background(), testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // Test cleanup

	client.WriteDoorTilt(influxdb.TiltSample{
		SensorID:   "door-tilt-01",
		State:      "open",
		Roll:       2.5,
		StatusCode: 200,
		Time:       time.Unix(1700000000, 0),
	})
	client.Flush()

	lines := waitForLines(t, srv, 1)
	if !strings.HasPrefix(lines[0], "door_tilt,") || !strings.Contains(lines[0], "state=open") {
		t.Errorf("line = %q", lines[0])
	}
	srv.mu.Lock()
	query := srv.query
	srv.mu.Unlock()
	if !strings.Contains(query, "bucket=doors") || !strings.Contains(query, "org=graylogic") {
		t.Errorf("write query = %q, want org and bucket", query)
	}
}

func TestWriteDoorTilt_ErrorCallback(t *testing.T) {
	srv := newFakeInflux(t)
	srv.writeCode = http.StatusBadRequest

	client, err := influxdb.Connect(context.Background(), testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // Test cleanup

	got := make(chan error, 1)
	client.SetOnError(func(err error) {
		select {
		case got <- err:
		default:
		}
	})

	client.WriteDoorTilt(influxdb.TiltSample{SensorID: "door-tilt-01", State: "closed"})
	client.Flush()

	select {
	case err := <-got:
		if err == nil {
			t.Error("callback received nil error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("write error never reached the callback")
	}
}

func TestClose(t *testing.T) {
	srv := newFakeInflux(t)
	client, err := influxdb.Connect(context.Background(), testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	client.WriteDoorTilt(influxdb.TiltSample{SensorID: "door-tilt-01", State: "moving"})
	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if len(waitForLines(t, srv, 1)) != 1 {
		t.Error("queued point not flushed by Close()")
	}

	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() after Close() = %v, want ErrNotConnected", err)
	}

	// Writes, flushes and a second close after Close are no-ops.
	client.WriteDoorTilt(influxdb.TiltSample{SensorID: "door-tilt-01"})
	client.Flush()
	if err := client.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	var nilClient *influxdb.Client
	if err := nilClient.Close(); err != nil {
		t.Errorf("nil Close() error = %v", err)
	}
}

func waitForLines(t *testing.T, srv *fakeInflux, n int) []string {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if lines := srv.written(); len(lines) >= n {
			return lines
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server received %d lines, want %d", len(srv.written()), n)
	return nil
}
