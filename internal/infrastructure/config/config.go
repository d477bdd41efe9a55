package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Sensor driver names accepted in sensor.driver.
const (
	DriverMPU6050 = "mpu6050"
	DriverFake    = "fake"
)

// I2C 7-bit address range usable by devices (0x00-0x02 and 0x78-0x7F are reserved).
const (
	minI2CAddress = 0x03
	maxI2CAddress = 0x77
)

// Config mirrors configs/config.yaml. Load layers it as defaults, then the
// file, then DOORSENSE_* environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Sensor    SensorConfig    `yaml:"sensor"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Logging   LoggingConfig   `yaml:"logging"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Database  DatabaseConfig  `yaml:"database"`
}

// SiteConfig names the installation the door belongs to.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// SensorConfig selects and addresses the accelerometer.
type SensorConfig struct {
	// ID names this sensor in published state, telemetry and history.
	ID string `yaml:"id"`

	// Driver is "mpu6050" for real hardware or "fake" for a fixed sample.
	Driver string `yaml:"driver"`

	// Bus is the periph I2C bus name (e.g. "1" or "/dev/i2c-1").
	// Empty selects the first bus the host exposes.
	Bus string `yaml:"bus"`

	// Address is the 7-bit device address. MPU-6050 uses 0x68 (AD0 low) or 0x69.
	Address int `yaml:"address"`

	// Fake is the sample reported by the fake driver, in m/s².
	Fake FakeSampleConfig `yaml:"fake"`
}

// FakeSampleConfig is a fixed acceleration sample for the fake driver.
type FakeSampleConfig struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`

	// Diagnostics enables the JSON routes under /api/v1 alongside /status.
	Diagnostics bool `yaml:"diagnostics"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains WebSocket settings for the diagnostics stream.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// LoggingConfig selects level, format (json or text) and output (stdout, stderr or file).
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig sets lumberjack rotation for output: file. Sizes are MB, age is days.
// Sizes are in megabytes and ages in days.
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// DatabaseConfig contains SQLite settings for the transition history.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// HistoryRetentionDays bounds the transition history. 0 keeps everything.
	HistoryRetentionDays int `yaml:"history_retention_days"`
}

// Load builds the service configuration from path.
//
// Defaults come first, then the YAML file, then DOORSENSE_* environment
// variables such as DOORSENSE_API_PORT. The result is validated.
//
// Parameters:
//   - path: YAML file, usually configs/config.yaml
//   - allowMissing: Treat a missing file as empty instead of an error
//
// Returns:
//   - *Config: Validated configuration
//   - error: Read, parse, override or validation failure
func Load(path string, allowMissing bool) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case allowMissing && errors.Is(err, fs.ErrNotExist):
		// Defaults only
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig serves /status on 0.0.0.0:5001 from an MPU-6050 at 0x68,
// with MQTT, InfluxDB and the history database switched off.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "site-001",
			Name: "Gray Logic",
		},
		Sensor: SensorConfig{
			ID:      "door-tilt-01",
			Driver:  DriverMPU6050,
			Address: 0x68,
			Fake: FakeSampleConfig{
				X: 0,
				Y: 9.81,
				Z: 0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 5001,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			File: FileLoggingConfig{
				Path:       "./logs/doorsense.log",
				MaxSize:    10,
				MaxBackups: 5,
				MaxAge:     30,
			},
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-doorsense",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			URL:           "http://localhost:8086",
			Org:           "graylogic",
			Bucket:        "metrics",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Database: DatabaseConfig{
			Path:                 "./data/doorsense.db",
			WALMode:              true,
			BusyTimeout:          5,
			HistoryRetentionDays: 90,
		},
	}
}

// envOverrides maps DOORSENSE_* environment variables onto config fields.
// Secrets (MQTT password, InfluxDB token) are expected to arrive this way.
var envOverrides = []struct {
	name string
	set  func(c *Config, v string) error
}{
	{"DOORSENSE_API_HOST", func(c *Config, v string) error { c.API.Host = v; return nil }},
	{"DOORSENSE_API_PORT", func(c *Config, v string) (err error) { c.API.Port, err = strconv.Atoi(v); return err }},
	{"DOORSENSE_SENSOR_DRIVER", func(c *Config, v string) error { c.Sensor.Driver = v; return nil }},
	{"DOORSENSE_SENSOR_BUS", func(c *Config, v string) error { c.Sensor.Bus = v; return nil }},
	{"DOORSENSE_MQTT_HOST", func(c *Config, v string) error { c.MQTT.Broker.Host = v; return nil }},
	{"DOORSENSE_MQTT_USERNAME", func(c *Config, v string) error { c.MQTT.Auth.Username = v; return nil }},
	{"DOORSENSE_MQTT_PASSWORD", func(c *Config, v string) error { c.MQTT.Auth.Password = v; return nil }},
	{"DOORSENSE_INFLUXDB_TOKEN", func(c *Config, v string) error { c.InfluxDB.Token = v; return nil }},
	{"DOORSENSE_DATABASE_PATH", func(c *Config, v string) error { c.Database.Path = v; return nil }},
}

func applyEnvOverrides(cfg *Config) error {
	for _, o := range envOverrides {
		v, ok := os.LookupEnv(o.name)
		if !ok || v == "" {
			continue
		}
		if err := o.set(cfg, v); err != nil {
			return fmt.Errorf("%s: %w", o.name, err)
		}
	}
	return nil
}

// Validate reports every invalid setting at once, joined into one error.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Site.ID != "", "site.id is required")

	check(c.Sensor.ID != "", "sensor.id is required")
	check(c.Sensor.Driver == DriverMPU6050 || c.Sensor.Driver == DriverFake,
		"sensor.driver %q: want %q or %q", c.Sensor.Driver, DriverMPU6050, DriverFake)
	check(c.Sensor.Address >= minI2CAddress && c.Sensor.Address <= maxI2CAddress,
		"sensor.address %#x outside 0x03-0x77", c.Sensor.Address)

	check(c.API.Port >= 1 && c.API.Port <= 65535, "api.port %d outside 1-65535", c.API.Port)

	check(c.MQTT.QoS >= 0 && c.MQTT.QoS <= 2, "mqtt.qos %d: want 0, 1 or 2", c.MQTT.QoS)
	check(!c.MQTT.Enabled || c.MQTT.Broker.Host != "", "mqtt.broker.host is required when mqtt is enabled")

	check(!c.InfluxDB.Enabled || c.InfluxDB.URL != "", "influxdb.url is required when influxdb is enabled")

	check(!c.Database.Enabled || c.Database.Path != "", "database.path is required when database is enabled")
	check(c.Database.HistoryRetentionDays >= 0, "database.history_retention_days must not be negative")

	check(!strings.EqualFold(c.Logging.Output, "file") || c.Logging.File.Path != "",
		"logging.file.path is required when logging.output is file")

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// GetHistoryRetention returns the transition history retention as a time.Duration.
// Zero means history is never pruned.
func (c *Config) GetHistoryRetention() time.Duration {
	return time.Duration(c.Database.HistoryRetentionDays) * 24 * time.Hour
}

// ListenAddress returns the host:port the status server binds to.
func (a APIConfig) ListenAddress() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// ReadTimeout bounds reading a whole request, headers included.
func (t APITimeoutConfig) ReadTimeout() time.Duration {
	return time.Duration(t.Read) * time.Second
}

// WriteTimeout bounds writing a response. A /status reply includes a
// sensor read and possibly a kickstart.
func (t APITimeoutConfig) WriteTimeout() time.Duration {
	return time.Duration(t.Write) * time.Second
}

// IdleTimeout bounds how long a keep-alive connection may sit unused.
func (t APITimeoutConfig) IdleTimeout() time.Duration {
	return time.Duration(t.Idle) * time.Second
}
