// Paketbox Core - parcel box actuator control
//
// This is the main entry point of the parcel box controller. It drives the
// two flap motors and the delivery-door lock of a Raspberry Pi based parcel
// box, reports activity over MQTT and serves an operator API.
//
// Usage:
//
//	paketbox                  run the controller
//	paketbox hash-password    read a password on stdin, print its argon2id hash
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/paketbox-core/internal/api"
	"github.com/nerrad567/paketbox-core/internal/auth"
	"github.com/nerrad567/paketbox-core/internal/command"
	"github.com/nerrad567/paketbox-core/internal/controller"
	"github.com/nerrad567/paketbox-core/internal/hardware"
	"github.com/nerrad567/paketbox-core/internal/infrastructure/config"
	"github.com/nerrad567/paketbox-core/internal/infrastructure/database"
	"github.com/nerrad567/paketbox-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/paketbox-core/internal/infrastructure/logging"
	"github.com/nerrad567/paketbox-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/paketbox-core/internal/maintenance"
	"github.com/nerrad567/paketbox-core/internal/notify"
	"github.com/nerrad567/paketbox-core/internal/sensor"
	"github.com/nerrad567/paketbox-core/internal/telemetry"
	"github.com/nerrad567/paketbox-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		if err := hashPassword(os.Stdin, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // composition root
	log := logging.Default()
	log.Info("starting Paketbox Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open GPIO lines; outputs start at their rest level.
	lines, err := hardware.Open(cfg.GPIO)
	if err != nil {
		return fmt.Errorf("opening GPIO: %w", err)
	}
	defer func() {
		if closeErr := lines.Close(); closeErr != nil {
			log.Error("error closing GPIO", "error", closeErr)
		}
	}()
	log.Info("GPIO opened", "driver", cfg.GPIO.Driver)

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	mqttClient, err := mqtt.Connect(cfg.MQTT)
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

	mqttNotifier := notify.NewMQTTNotifier(mqttClient, mqttClient.Topics(), log)
	notifiers := notify.Fanout{mqttNotifier}

	var recorder *telemetry.Recorder
	if cfg.InfluxDB.Enabled {
		influxClient, connErr := influxdb.Connect(cfg.InfluxDB, cfg.Site.ID)
		if connErr != nil {
			// Telemetry is optional; the box runs without it.
			log.Warn("InfluxDB unavailable, telemetry disabled", "error", connErr)
		} else {
			defer func() {
				log.Info("closing InfluxDB connection")
				if closeErr := influxClient.Close(); closeErr != nil {
					log.Error("error closing InfluxDB", "error", closeErr)
				}
			}()
			influxClient.SetOnError(func(err error) {
				log.Error("InfluxDB write error", "error", err)
			})
			recorder = telemetry.NewRecorder(influxClient)
			notifiers = append(notifiers, recorder)
			log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
		}
	} else {
		log.Info("InfluxDB disabled")
	}

	ctrl := controller.New(cfg.Box, lines, notifiers, log)
	ctrl.AddStateListener(mqttNotifier)

	counters := maintenance.NewSQLiteRepository(db.DB)
	wear := maintenance.NewRecorder(counters, log)
	ctrl.AddCycleObserver(wear)
	ctrl.AddDeliveryObserver(wear)

	if recorder != nil {
		ctrl.AddCycleObserver(recorder)
		ctrl.SetEdgeObserver(recorder)
	} else {
		ctrl.SetEdgeObserver(edgeLogger{log})
	}

	commands := command.NewHandler(mqttClient, mqttClient.Topics(), ctrl, log)
	if err := commands.Start(); err != nil {
		return fmt.Errorf("starting command handler: %w", err)
	}
	defer func() {
		if stopErr := commands.Stop(); stopErr != nil {
			log.Error("error stopping command handler", "error", stopErr)
		}
	}()

	var server *api.Server
	if cfg.API.Enabled {
		server, err = api.New(api.Deps{
			Config:   cfg.API,
			WS:       cfg.WebSocket,
			Logger:   log,
			Auth:     auth.NewAuthenticator(cfg.Security),
			Box:      ctrl,
			Counters: counters,
			MQTT:     mqttClient,
			DB:       db,
			Version:  version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		ctrl.AddStateListener(server.Hub())
		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API disabled")
	}

	log.Info("initialisation complete", "site", cfg.Site.ID)

	// The notifier outlives the controller so the shutdown status and the
	// final state still reach the broker.
	notifyCtx, stopNotifier := context.WithCancel(context.Background())
	defer stopNotifier()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return mqttNotifier.Run(notifyCtx)
	})
	g.Go(func() error {
		defer stopNotifier()
		err := ctrl.Run(gctx)
		log.Info("shutdown signal received, cleaning up")
		mqttNotifier.PublishStatus("Paketbox stopped")
		return err
	})
	runErr := g.Wait()

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("controller: %w", runErr)
	}
	log.Info("Paketbox Core stopped")
	return nil
}

// getConfigPath returns the configuration file path from the environment
// or the default.
func getConfigPath() string {
	if path := os.Getenv("PAKETBOX_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// hashPassword reads one line from r and writes its argon2id PHC string to w.
func hashPassword(r io.Reader, w io.Writer) error {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return fmt.Errorf("password must not be empty")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, hash)
	return err
}

// edgeLogger logs confirmed input edges when no telemetry store is set up.
type edgeLogger struct {
	log *logging.Logger
}

func (e edgeLogger) InputChanged(in hardware.Input, active bool) {
	e.log.Debug("input changed", "input", in.String(), "active", active)
}

var _ sensor.EdgeObserver = edgeLogger{}
