// syncbridge - Syncthing supervisor and API bridge
//
// syncbridge owns the syncthing process end to end: it launches the
// daemon with the supervised argument set, interprets its exit codes,
// restarts it when the daemon asks, and republishes its REST API,
// event feed, and log output over HTTP, WebSocket, and MQTT.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/syncbridge-core/migrations"

	"github.com/nerrad567/syncbridge-core/internal/api"
	"github.com/nerrad567/syncbridge-core/internal/audit"
	"github.com/nerrad567/syncbridge-core/internal/bridge"
	"github.com/nerrad567/syncbridge-core/internal/events"
	"github.com/nerrad567/syncbridge-core/internal/infrastructure/config"
	"github.com/nerrad567/syncbridge-core/internal/infrastructure/database"
	"github.com/nerrad567/syncbridge-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/syncbridge-core/internal/infrastructure/logging"
	"github.com/nerrad567/syncbridge-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/syncbridge-core/internal/stats"
	"github.com/nerrad567/syncbridge-core/internal/supervisor"
	"github.com/nerrad567/syncbridge-core/internal/syncthing"
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

// probeRetryInterval is the pause between daemon version probes while
// syncthing's REST API is still coming up.
const probeRetryInterval = 2 * time.Second

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
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting syncbridge",
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

	auditRepo := audit.NewSQLiteRepository(db.DB)

	// Connect to InfluxDB (optional)
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

	// Build the supervisor
	sup, err := supervisor.New(supervisor.Config{
		Binary:               cfg.Syncthing.Binary,
		APIKey:               cfg.Syncthing.APIKey,
		Address:              cfg.Syncthing.Address,
		HomeDir:              cfg.Syncthing.HomeDir,
		Environment:          cfg.Syncthing.Environment,
		DenyUpgrade:          cfg.Syncthing.DenyUpgrade,
		LowPriority:          cfg.Syncthing.LowPriority,
		HideDeviceIDs:        cfg.Syncthing.HideDeviceIDs,
		MaxImmediateRestarts: cfg.Syncthing.MaxImmediateRestarts,
		StabilityWindow:      cfg.Syncthing.StabilityWindow(),
	})
	if err != nil {
		return fmt.Errorf("creating supervisor: %w", err)
	}
	sup.SetLogger(log.With("component", "supervisor"))

	// Record lifecycle transitions in the audit trail and metrics
	wireLifecycleAudit(sup, auditRepo, influxClient, log)

	// WebSocket hub carries log lines and state transitions to API clients.
	// Created here rather than inside the API server so supervisor
	// subscriptions can feed it directly.
	hub := api.NewHub(cfg.WebSocket, log.With("component", "websocket"))
	go hub.Run(ctx)

	sup.OnMessage(func(line string) {
		hub.BroadcastLog(line)
	})
	sup.OnStopped(func(status supervisor.ExitStatus) {
		hub.BroadcastState("stopped", map[string]any{"status": status.String()})
	})
	sup.OnRestarted(func() {
		hub.BroadcastState("restarting", nil)
	})

	// Connect to MQTT broker and attach the bridge (optional)
	var mqttBridge *bridge.Bridge
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.With("component", "mqtt"))
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

		mqttBridge = bridge.New(mqttClient, byte(cfg.MQTT.QoS))
		mqttBridge.SetLogger(log.With("component", "bridge"))
		mqttBridge.Attach(sup)
		defer mqttBridge.Detach()

		if cmdErr := mqttBridge.SubscribeCommands(func(name string, _ []byte) {
			switch name {
			case "restart":
				log.Info("restart requested via mqtt")
				if startErr := sup.Start(); startErr != nil {
					log.Error("restart via mqtt failed", "error", startErr)
					return
				}
				mqttBridge.PublishRunning(sup.PID())
			case "stop":
				log.Info("stop requested via mqtt")
				if killErr := sup.Kill(); killErr != nil {
					log.Error("stop via mqtt failed", "error", killErr)
				}
			default:
				log.Debug("ignoring unknown mqtt command", "command", name)
			}
		}); cmdErr != nil {
			return fmt.Errorf("subscribing to command topics: %w", cmdErr)
		}
	} else {
		log.Info("MQTT disabled")
	}

	// Start the API server before syncthing so status is observable
	// even when the daemon fails to launch.
	apiServer, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      log.With("component", "api"),
		Supervisor:  sup,
		AuditRepo:   auditRepo,
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started",
		"address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		"tls", cfg.API.TLS.Enabled,
	)

	// Clear out orphaned daemons from a previous unclean shutdown, then
	// launch ours.
	if found, killed := sup.KillAllMatching(); found > 0 {
		log.Warn("killed orphaned syncthing processes", "found", found, "killed", killed)
	}
	if startErr := sup.Start(); startErr != nil {
		return fmt.Errorf("starting syncthing: %w", startErr)
	}
	log.Info("syncthing started", "pid", sup.PID())
	if mqttBridge != nil {
		mqttBridge.PublishRunning(sup.PID())
	}

	// Probe the daemon version in the background, then bring up the
	// version-dependent consumers once the REST API answers.
	go func() {
		client, probeErr := probeAndSelect(ctx, cfg, log)
		if probeErr != nil {
			if ctx.Err() == nil {
				log.Error("daemon version probe abandoned", "error", probeErr)
			}
			return
		}

		apiServer.SetSyncthing(client)

		if cfg.Events.Enabled {
			startEventConsumer(ctx, cfg, client, db, sup, mqttBridge, hub, log)
		} else {
			log.Info("event consumer disabled")
		}

		if influxClient != nil {
			startStatsSampler(ctx, cfg, client, influxClient, mqttBridge, log)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Stop syncthing before the deferred teardown of its observers.
	if killErr := sup.Kill(); killErr != nil {
		log.Error("error stopping syncthing", "error", killErr)
	}

	log.Info("syncbridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses SYNCBRIDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("SYNCBRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// wireLifecycleAudit records supervisor transitions in the audit trail
// and, when metrics are enabled, in InfluxDB. Audit writes happen on
// the supervisor's event goroutine; they are quick SQLite inserts.
// A background context is used because the final stop fires during
// shutdown, after the run context is already cancelled.
func wireLifecycleAudit(sup *supervisor.Supervisor, repo audit.Repository, influx *influxdb.Client, log *logging.Logger) {
	record := func(action string, details map[string]any) {
		entry := &audit.Entry{
			Action:     action,
			EntityType: audit.EntityProcess,
			EntityID:   "syncthing",
			Source:     "supervisor",
			Details:    details,
		}
		if err := repo.Create(context.Background(), entry); err != nil {
			log.Error("audit write failed", "action", action, "error", err)
		}
	}

	sup.OnStarting(func() {
		record(audit.ActionStarted, nil)
		if influx != nil {
			influx.WriteSupervisorEvent(audit.ActionStarted, "")
		}
	})
	sup.OnRestarted(func() {
		record(audit.ActionRestarted, nil)
		if influx != nil {
			influx.WriteSupervisorEvent(audit.ActionRestarted, "")
		}
	})
	sup.OnStopped(func(status supervisor.ExitStatus) {
		record(audit.ActionStopped, map[string]any{"status": status.String()})
		if influx != nil {
			influx.WriteSupervisorEvent(audit.ActionStopped, status.String())
		}
	})
}

// probeAndSelect asks the daemon for its version until it answers, then
// picks the matching API binding. Unavailability is expected while the
// freshly started daemon initialises.
func probeAndSelect(ctx context.Context, cfg *config.Config, log *logging.Logger) (syncthing.Client, error) {
	baseURL := "http://" + cfg.Syncthing.Address

	for {
		probeCtx, cancel := context.WithTimeout(ctx, probeRetryInterval)
		ver, err := syncthing.ProbeVersion(probeCtx, baseURL, cfg.Syncthing.APIKey)
		cancel()
		if err == nil {
			client, selErr := syncthing.SelectClient(ver.Version, baseURL, cfg.Syncthing.APIKey)
			if selErr != nil {
				return nil, fmt.Errorf("selecting api client for daemon %s: %w", ver.Version, selErr)
			}
			log.Info("daemon version probed", "version", ver.Version)
			return client, nil
		}

		log.Debug("daemon version probe failed, retrying", "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(probeRetryInterval):
		}
	}
}

// startEventConsumer brings up the long-poll event consumer. Events
// reach the MQTT bridge (when enabled) and the WebSocket hub, and the
// cursor survives restarts through the database.
func startEventConsumer(ctx context.Context, cfg *config.Config, client syncthing.Client, db *database.DB, sup *supervisor.Supervisor, mqttBridge *bridge.Bridge, hub *api.Hub, log *logging.Logger) {
	handler := func(_ context.Context, ev syncthing.Event) {
		if mqttBridge != nil {
			mqttBridge.PublishEvent(ev)
		}
		hub.Broadcast(api.ChannelEvents, ev)
	}

	consumer, err := events.NewConsumer(client, events.NewSQLiteCursorStore(db), events.Config{
		ConsumerID: cfg.Events.ConsumerID,
		BatchLimit: cfg.Events.BatchLimit,
	}, handler)
	if err != nil {
		log.Error("creating event consumer", "error", err)
		return
	}
	consumer.SetLogger(log.With("component", "events"))

	// The daemon the consumer attaches to was launched by this run, so
	// its event IDs begin again at 1: a cursor persisted by a previous
	// run is stale and must not be resumed from. The same applies on
	// every later relaunch.
	consumer.Reset()
	sup.OnRestarted(consumer.Reset)
	sup.OnStarting(consumer.Reset)

	go func() {
		if runErr := consumer.Run(ctx); runErr != nil && ctx.Err() == nil {
			log.Error("event consumer stopped", "error", runErr)
		}
	}()
}

// startStatsSampler periodically samples connection statistics into
// InfluxDB and republishes each snapshot over MQTT.
func startStatsSampler(ctx context.Context, cfg *config.Config, client syncthing.Client, influx *influxdb.Client, mqttBridge *bridge.Bridge, log *logging.Logger) {
	interval := time.Duration(cfg.InfluxDB.SampleInterval) * time.Second
	sampler, err := stats.NewSampler(client, influx, interval)
	if err != nil {
		log.Error("creating stats sampler", "error", err)
		return
	}
	sampler.SetLogger(log.With("component", "stats"))
	if mqttBridge != nil {
		sampler.SetOnSample(mqttBridge.PublishConnections)
	}

	go func() {
		if runErr := sampler.Run(ctx); runErr != nil && ctx.Err() == nil {
			log.Error("stats sampler stopped", "error", runErr)
		}
	}()
}
