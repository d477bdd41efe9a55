package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"testing"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-doorsense/internal/infrastructure/config"
)

// testConfig points at a local Mosquitto on 127.0.0.1:1883.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "doorsense-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// connectOrSkip connects to the test broker. Without a broker the test is
// skipped, unless RUN_INTEGRATION is set.
func connectOrSkip(t *testing.T) *Client {
	t.Helper()
	client, err := Connect(testConfig())
	if err != nil {
		if os.Getenv("RUN_INTEGRATION") == "" {
			t.Skip("MQTT broker not available, skipping integration test")
		}
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() }) //nolint:errcheck // Test cleanup
	return client
}

// offlineClient has a real paho client that was never connected, so
// publishes fail fast with paho's own not-connected error.
func offlineClient() *Client {
	cfg := testConfig()
	return &Client{cfg: cfg, paho: pahomqtt.NewClient(newClientOptions(cfg))}
}

type captureLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *captureLogger) Info(string, ...any) {}
func (l *captureLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

func TestConnect_PublishRetained(t *testing.T) {
	client := connectOrSkip(t)

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}
	topic := Topics{}.DeviceState("mpu6050", "door-tilt-test")
	if err := client.PublishRetained(topic, []byte(`{"state":"closed"}`)); err != nil {
		t.Errorf("PublishRetained() error = %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
}

func TestClose_NotConnected(t *testing.T) {
	var nilClient *Client
	if err := nilClient.Close(); err != nil {
		t.Errorf("nil Close() error = %v", err)
	}
	if err := (&Client{}).Close(); err != nil {
		t.Errorf("zero Close() error = %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name    string
		ctx     context.Context
		wantErr error
	}{
		{"cancelled context", cancelled, context.Canceled},
		{"never connected", context.Background(), ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := (&Client{}).HealthCheck(tt.ctx); !errors.Is(err, tt.wantErr) {
				t.Errorf("HealthCheck() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPublish_Validation(t *testing.T) {
	c := offlineClient()

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{"empty topic", "", []byte("x"), 1, ErrInvalidTopic},
		{"qos 3", "graylogic/state/mpu6050/d", []byte("x"), 3, ErrInvalidQoS},
		{"oversized payload", "graylogic/state/mpu6050/d", make([]byte, maxPayloadSize+1), 1, ErrPublishFailed},
		{"offline", "graylogic/state/mpu6050/d", []byte("x"), 1, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Publish(tt.topic, tt.payload, tt.qos, true); !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if err := c.PublishRetained("graylogic/state/mpu6050/d", []byte("x")); !errors.Is(err, ErrNotConnected) {
		t.Errorf("PublishRetained() error = %v, want ErrNotConnected", err)
	}
}

func TestConnectionUp_RunsHooks(t *testing.T) {
	c := offlineClient()

	calls := 0
	c.OnConnect(func() { calls++ })
	c.OnConnect(func() { calls++ })

	c.connectionUp()
	if calls != 2 {
		t.Errorf("hooks ran %d times, want 2", calls)
	}
	if !c.connected.Load() {
		t.Error("connected flag not set by connectionUp")
	}

	c.connectionUp()
	if calls != 4 {
		t.Errorf("hooks ran %d times after reconnect, want 4", calls)
	}
}

func TestConnectionDown(t *testing.T) {
	c := offlineClient()
	log := &captureLogger{}
	c.SetLogger(log)
	c.connected.Store(true)

	c.connectionDown(errors.New("EOF"))

	if c.connected.Load() {
		t.Error("connected flag still set after connectionDown")
	}
	if len(log.warns) != 1 {
		t.Errorf("logged %d warnings, want 1", len(log.warns))
	}
}

func TestNewClientOptions(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*config.MQTTConfig)
		wantServer string
		wantTLS    bool
		wantUser   string
	}{
		{
			name:       "anonymous tcp",
			mutate:     func(*config.MQTTConfig) {},
			wantServer: "tcp://127.0.0.1:1883",
		},
		{
			name: "tls with credentials",
			mutate: func(c *config.MQTTConfig) {
				c.Broker.TLS = true
				c.Broker.Port = 8883
				c.Auth.Username = "door"
				c.Auth.Password = "secret"
			},
			wantServer: "ssl://127.0.0.1:8883",
			wantTLS:    true,
			wantUser:   "door",
		},
		{
			name:       "ipv6 broker",
			mutate:     func(c *config.MQTTConfig) { c.Broker.Host = "::1" },
			wantServer: "tcp://[::1]:1883",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			opts := newClientOptions(cfg)

			if len(opts.Servers) != 1 || opts.Servers[0].String() != tt.wantServer {
				t.Errorf("Servers = %v, want [%s]", opts.Servers, tt.wantServer)
			}
			if opts.Username != tt.wantUser {
				t.Errorf("Username = %q, want %q", opts.Username, tt.wantUser)
			}
			if (opts.TLSConfig != nil) != tt.wantTLS {
				t.Errorf("TLSConfig set = %v, want %v", opts.TLSConfig != nil, tt.wantTLS)
			}
			if !opts.CleanSession || !opts.AutoReconnect {
				t.Error("want clean session with auto-reconnect")
			}
		})
	}
}

func TestNewClientOptions_Will(t *testing.T) {
	opts := newClientOptions(testConfig())

	if !opts.WillEnabled || !opts.WillRetained {
		t.Fatalf("will enabled=%v retained=%v, want both", opts.WillEnabled, opts.WillRetained)
	}
	if opts.WillTopic != (Topics{}).SystemStatus() {
		t.Errorf("WillTopic = %q", opts.WillTopic)
	}

	var msg statusMessage
	if err := json.Unmarshal(opts.WillPayload, &msg); err != nil {
		t.Fatalf("will payload is not JSON: %v", err)
	}
	if msg.Status != "offline" || msg.Reason != reasonLWT || msg.ClientID != "doorsense-test" {
		t.Errorf("will = %+v", msg)
	}
}

func TestTopics(t *testing.T) {
	if got := (Topics{}).DeviceState("mpu6050", "door-tilt-01"); got != "graylogic/state/mpu6050/door-tilt-01" {
		t.Errorf("DeviceState() = %q", got)
	}
	if got := (Topics{}).SystemStatus(); got != "graylogic/system/status" {
		t.Errorf("SystemStatus() = %q", got)
	}
}
