// Gray Logic Door Sense - garage door tilt sensor service
//
// This is the main entry point for the door sensor. It reads an MPU-6050
// accelerometer mounted on the door over I2C, derives roll and pitch, and
// answers GET /status with Open, Moving, Closed or I/O Failure.
//
// State transitions are optionally published to MQTT, written to InfluxDB
// and recorded in a local SQLite history.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/gray-logic-doorsense/migrations"

	"github.com/nerrad567/gray-logic-doorsense/internal/api"
	"github.com/nerrad567/gray-logic-doorsense/internal/door"
	"github.com/nerrad567/gray-logic-doorsense/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-doorsense/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-doorsense/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-doorsense/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-doorsense/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-doorsense/internal/sensor"
	"github.com/nerrad567/gray-logic-doorsense/internal/sensor/fake"
	"github.com/nerrad567/gray-logic-doorsense/internal/sensor/i2cbus"
	"github.com/nerrad567/gray-logic-doorsense/internal/sensor/mpu6050"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// configEnvVar overrides the configuration file path.
const configEnvVar = "DOORSENSE_CONFIG"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear startup sequence of optional components
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Gray Logic Door Sense",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration. Only the default path may be absent.
	configPath, explicit := getConfigPath()
	cfg, err := config.Load(configPath, !explicit)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	defer log.Close() //nolint:errcheck // nothing left to log to
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open the accelerometer
	accel, closeSensor, err := openSensor(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("opening sensor: %w", err)
	}
	defer func() {
		log.Info("closing sensor")
		if closeErr := closeSensor(); closeErr != nil {
			log.Error("error closing sensor", "error", closeErr)
		}
	}()

	monitor, err := door.NewMonitor(door.MonitorOptions{
		SensorID: cfg.Sensor.ID,
		Sensor:   accel,
		Logger:   log,
	})
	if err != nil {
		return fmt.Errorf("creating door monitor: %w", err)
	}

	// Open transition history (optional)
	var (
		db      *database.DB
		history door.HistoryRepository
	)
	if cfg.Database.Enabled {
		db, err = database.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		log.Info("database connected", "path", cfg.Database.Path)

		if migrateErr := db.Migrate(ctx); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		log.Info("database migrations complete")

		repo := door.NewSQLiteHistoryRepository(db.DB)
		history = repo
		monitor.AddRecorder(door.NewHistoryRecorder(repo))

		if retention := cfg.GetHistoryRetention(); retention > 0 {
			retentionCtx, stopRetention := context.WithCancel(ctx)
			defer stopRetention()
			go door.RunRetention(retentionCtx, repo, retention, door.RetentionInterval, log)
		}
	} else {
		log.Info("transition history disabled")
	}

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		publisher := door.NewMQTTPublisher(mqttClient, cfg.Sensor.ID)
		mqttClient.OnConnect(publisher.MarkStale) // broker may have lost retained state
		monitor.AddRecorder(publisher)
		log.Info("publishing door state", "topic", publisher.Topic())
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		monitor.AddRecorder(door.NewInfluxRecorder(influxClient))
	} else {
		log.Info("InfluxDB disabled")
	}

	// Start API server
	deps := api.Deps{
		Config:  cfg.API,
		WS:      cfg.WebSocket,
		Logger:  log,
		Monitor: monitor,
		History: history,
		MQTT:    mqttClient,
		Version: version,
	}
	if db != nil {
		deps.DB = db.DB
	}
	server, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	monitor.AddRecorder(door.NewBroadcastRecorder(server.Hub()))

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal",
		"address", server.Addr(),
		"sensor_id", cfg.Sensor.ID,
	)

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// API server, InfluxDB, MQTT, database, sensor.

	log.Info("Gray Logic Door Sense stopped")
	return nil
}

// getConfigPath returns the configuration file path and whether it was set
// explicitly via DOORSENSE_CONFIG.
func getConfigPath() (string, bool) {
	if path := os.Getenv(configEnvVar); path != "" {
		return path, true
	}
	return defaultConfigPath, false
}

// openSensor builds the configured accelerometer.
//
// Parameters:
//   - ctx: Context for the wake-up write
//   - cfg: Application configuration
//   - log: Logger instance
//
// Returns:
//   - sensor.Accelerometer: Ready accelerometer
//   - func() error: Releases the device and its bus
//   - error: If the bus cannot be opened or the chip does not answer
func openSensor(ctx context.Context, cfg *config.Config, log *logging.Logger) (sensor.Accelerometer, func() error, error) {
	switch cfg.Sensor.Driver {
	case config.DriverFake:
		f := cfg.Sensor.Fake
		accel := fake.New(sensor.Sample{X: f.X, Y: f.Y, Z: f.Z})
		log.Warn("using fake accelerometer", "x", f.X, "y", f.Y, "z", f.Z)
		return accel, accel.Close, nil

	case config.DriverMPU6050:
		bus, err := i2cbus.Open(cfg.Sensor.Bus)
		if err != nil {
			return nil, nil, err
		}

		//nolint:gosec // address is validated to the 7-bit range
		addr := byte(cfg.Sensor.Address)
		dev, err := mpu6050.New(ctx, bus, addr, log)
		if err != nil {
			_ = bus.Close()
			return nil, nil, err
		}
		log.Info("MPU-6050 ready", "bus", bus.String(), "address", fmt.Sprintf("%#x", addr))

		closeFn := func() error {
			devErr := dev.Close()
			if busErr := bus.Close(); busErr != nil && devErr == nil {
				return busErr
			}
			return devErr
		}
		return dev, closeFn, nil

	default:
		return nil, nil, fmt.Errorf("unknown sensor driver %q", cfg.Sensor.Driver)
	}
}

// healthCheck verifies all enabled infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check (may be nil if disabled)
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if db != nil {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
