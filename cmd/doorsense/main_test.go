package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-doorsense/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-doorsense/internal/infrastructure/logging"
)

// freePort returns a TCP port that was free a moment ago.
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// TestRun_InvalidConfig verifies run fails with an explicit config path that does not exist.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv(configEnvVar, "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_UnknownDriver verifies validation errors stop startup.
func TestRun_UnknownDriver(t *testing.T) {
	t.Setenv(configEnvVar, writeConfig(t, `
sensor:
  driver: "adxl345"
`))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with an unknown sensor driver")
	}
}

// TestRun_FakeSensorServesStatus starts the full service on the fake driver
// with history enabled and checks /status end to end.
func TestRun_FakeSensorServesStatus(t *testing.T) {
	port := freePort(t)
	dbPath := filepath.Join(t.TempDir(), "history.db")

	t.Setenv(configEnvVar, writeConfig(t, fmt.Sprintf(`
site:
  id: test-site
sensor:
  id: garage
  driver: fake
  fake:
    x: 0
    y: 9.81
    z: 0
api:
  host: "127.0.0.1"
  port: %d
  diagnostics: true
database:
  enabled: true
  path: %q
  history_retention_days: 30
logging:
  level: error
  format: text
  output: stdout
`, port, dbPath)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- run(ctx) }()

	url := fmt.Sprintf("http://127.0.0.1:%d/status", port)
	var (
		body   []byte
		status int
	)
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			body, _ = io.ReadAll(resp.Body)
			status = resp.StatusCode
			resp.Body.Close()
			break
		}
		select {
		case err := <-done:
			t.Fatalf("run() exited early: %v", err)
		case <-time.After(50 * time.Millisecond):
		}
	}

	if status != http.StatusOK || string(body) != "Closed\n" {
		t.Errorf("GET /status = %d %q, want 200 \"Closed\\n\"", status, body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run() error = %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("run() did not return after cancel")
	}

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("history database not created: %v", err)
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv(configEnvVar, "")

	path, explicit := getConfigPath()
	if path != defaultConfigPath || explicit {
		t.Errorf("getConfigPath() = %q, %v, want %q, false", path, explicit, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv(configEnvVar, expected)

	path, explicit := getConfigPath()
	if path != expected || !explicit {
		t.Errorf("getConfigPath() = %q, %v, want %q, true", path, explicit, expected)
	}
}

// TestOpenSensor_Fake verifies the fake driver reports the configured sample.
func TestOpenSensor_Fake(t *testing.T) {
	cfg := &config.Config{
		Sensor: config.SensorConfig{
			Driver: config.DriverFake,
			Fake:   config.FakeSampleConfig{X: 1, Y: 2, Z: 3},
		},
	}
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	accel, closeFn, err := openSensor(context.Background(), cfg, log)
	if err != nil {
		t.Fatalf("openSensor() error = %v", err)
	}
	defer closeFn() //nolint:errcheck // test cleanup

	s, err := accel.Acceleration(context.Background())
	if err != nil {
		t.Fatalf("Acceleration() error = %v", err)
	}
	if s.X != 1 || s.Y != 2 || s.Z != 3 {
		t.Errorf("sample = %+v, want {1 2 3}", s)
	}
}

// TestOpenSensor_UnknownDriver verifies unknown drivers are rejected.
func TestOpenSensor_UnknownDriver(t *testing.T) {
	cfg := &config.Config{Sensor: config.SensorConfig{Driver: "bmp280"}}
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	if _, _, err := openSensor(context.Background(), cfg, log); err == nil {
		t.Error("openSensor() expected error for unknown driver")
	}
}

// TestHealthCheck_AllDisabled verifies health check passes with every optional client nil.
func TestHealthCheck_AllDisabled(t *testing.T) {
	if err := healthCheck(context.Background(), nil, nil, nil); err != nil {
		t.Errorf("healthCheck() error = %v", err)
	}
}
