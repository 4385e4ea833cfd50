// Doorman Core - Door Access Controller
//
// This is the main entry point for the Doorman Core service. Doorman
// turns a small Linux board with a relay HAT into a networked door
// controller:
//   - Named actions bind a relay to a parameter payload
//   - Users trigger actions over HTTP, NFC tags trigger them over MQTT
//   - Every login and actuation lands in an append-only event log
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/doormanhub/doorman-core/migrations"

	"github.com/doormanhub/doorman-core/internal/action"
	"github.com/doormanhub/doorman-core/internal/api"
	"github.com/doormanhub/doorman-core/internal/audit"
	"github.com/doormanhub/doorman-core/internal/auth"
	"github.com/doormanhub/doorman-core/internal/hardware"
	"github.com/doormanhub/doorman-core/internal/infrastructure/config"
	"github.com/doormanhub/doorman-core/internal/infrastructure/database"
	"github.com/doormanhub/doorman-core/internal/infrastructure/influxdb"
	"github.com/doormanhub/doorman-core/internal/infrastructure/logging"
	"github.com/doormanhub/doorman-core/internal/infrastructure/mqtt"
	"github.com/doormanhub/doorman-core/internal/nfc"
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

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Doorman Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
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

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Connect to MQTT broker (optional: NFC scans and state publishing)
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
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional: actuation metrics)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// WebSocket hub doubles as the event log's live notifier, so it is
	// created before the recorder and handed to the API server.
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	events := audit.NewSQLiteRepository(db.DB)
	recorder := audit.NewRecorder(events, log, hub)

	// Discover hardware
	registry, pinBackend, err := discoverHardware(ctx, cfg, mqttClient, influxClient, log)
	if err != nil {
		return fmt.Errorf("discovering hardware: %w", err)
	}
	log.Info("hardware discovery complete",
		"devices", registry.Count(), "pin_backend", pinBackend)

	// Auth service; external login only when an issuer is configured
	users := auth.NewUserRepository(db.DB)
	sessions := auth.NewSessionRepository(db.DB)
	var verifier auth.TokenVerifier
	if cfg.Security.OAuth.Issuer != "" {
		verifier = auth.NewJWTVerifier(cfg.Security.OAuth.Issuer, cfg.Security.OAuth.Secret)
		log.Info("external login enabled", "issuer", cfg.Security.OAuth.Issuer)
	}
	authSvc := auth.NewService(users, sessions, verifier, cfg.SessionTTL(), log)

	// Action dispatch; metrics only when InfluxDB is up
	var metrics action.MetricsSink
	if influxClient != nil {
		metrics = influxClient
	}
	actionSvc := action.NewService(action.NewRepository(db.DB), registry, recorder, metrics, log)

	// NFC tags; scans arrive over MQTT when the broker is configured
	tagRepo := nfc.NewRepository(db.DB)
	nfcSvc := nfc.NewService(tagRepo, actionSvc, log)
	if mqttClient != nil {
		if err := nfcSvc.ListenScans(mqttClient, byte(cfg.MQTT.QoS)); err != nil {
			return fmt.Errorf("subscribing to NFC scans: %w", err)
		}
	}

	// API server
	server, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Logger:   log,
		Auth:     authSvc,
		Users:    users,
		Actions:  actionSvc,
		Tags:     tagRepo,
		NFC:      nfcSvc,
		Events:   events,
		Recorder: recorder,
		Registry: registry,
		Hub:      hub,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient, server); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	recorder.Info(ctx, audit.SystemUser, "", "doorman core started")
	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT (if enabled)
	// 4. Database

	log.Info("Doorman Core stopped")
	return nil
}

// discoverHardware builds the device registry. With the GPIO driver
// enabled the relays drive real pins through sysfs; otherwise an
// in-memory pin bank stands in, so development hosts still expose the
// full device surface. Actor state changes fan out to the configured
// sinks (MQTT retained topics, InfluxDB).
func discoverHardware(ctx context.Context, cfg *config.Config, mqttClient *mqtt.Client, influxClient *influxdb.Client, log *logging.Logger) (*hardware.Registry, string, error) {
	var sinks multiSink
	if mqttClient != nil {
		sinks = append(sinks, mqtt.NewStatePublisher(mqttClient, log))
	}
	if influxClient != nil {
		sinks = append(sinks, influxClient)
	}

	var pins hardware.PinIO
	backend := "memory"
	if cfg.Hardware.GPIO.Enabled {
		pins = hardware.NewSysfsPinIO()
		backend = "sysfs"
	} else {
		pins = hardware.NewMemoryPinIO()
	}

	driver := hardware.NewGPIORelayDriver(
		cfg.Hardware.GPIO.DeviceID,
		cfg.Hardware.GPIO.DeviceName,
		cfg.Hardware.GPIO.Pins,
		pins,
		sinks,
		log,
	)

	registry := hardware.NewRegistry()
	registry.SetLogger(log)
	if err := registry.Discover(ctx, driver); err != nil {
		return nil, "", err
	}
	return registry, backend, nil
}

// multiSink fans actor state changes out to several sinks.
type multiSink []hardware.StateSink

// ActorStateChanged implements hardware.StateSink.
func (m multiSink) ActorStateChanged(deviceID, actorID string, on bool) {
	for _, s := range m {
		s.ActorStateChanged(deviceID, actorID, on)
	}
}

// getConfigPath returns the configuration file path.
// Uses DOORMAN_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("DOORMAN_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// mqttClient and influxClient may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client, server *api.Server) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
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

	if err := server.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	return nil
}
