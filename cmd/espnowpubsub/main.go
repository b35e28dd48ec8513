// ESP-NOW Pub/Sub Node
//
// This is the main entry point for the broadcast pub/sub node. The node
// joins a channel-wide broadcast mesh, subscribes to topic patterns with
// MQTT-style wildcards, runs configured rules against received messages,
// and optionally uplinks traffic to an MQTT broker.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/megageek/esphome-espnow-pubsub/internal/api"
	"github.com/megageek/esphome-espnow-pubsub/internal/automation"
	"github.com/megageek/esphome-espnow-pubsub/internal/bridges/mqttbridge"
	"github.com/megageek/esphome-espnow-pubsub/internal/diagnostics"
	"github.com/megageek/esphome-espnow-pubsub/internal/espnow"
	"github.com/megageek/esphome-espnow-pubsub/internal/infrastructure/config"
	"github.com/megageek/esphome-espnow-pubsub/internal/infrastructure/influxdb"
	"github.com/megageek/esphome-espnow-pubsub/internal/infrastructure/logging"
	"github.com/megageek/esphome-espnow-pubsub/internal/pubsub"
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

// reporterFlushInterval is how often diagnostics are pushed to the sinks
// independently of message traffic.
const reporterFlushInterval = 30 * time.Second

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
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting ESP-NOW pub/sub node",
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

	// Broadcast medium driver
	driver := espnow.NewUDPDriver(espnow.UDPDriverConfig{
		BindHost:      cfg.Transport.BindHost,
		BasePort:      cfg.Transport.BasePort,
		BroadcastAddr: cfg.Transport.BroadcastAddr,
	})

	// External network stack, only present in managed mode
	var stack espnow.NetworkStack
	if cfg.Transport.Mode == "managed" {
		stack = espnow.NewStaticStack(cfg.EffectiveManagedChannel())
	}

	link, err := espnow.NewLink(espnow.LinkConfig{
		Mode:    espnow.Mode(cfg.Transport.Mode),
		Channel: cfg.Node.Channel,
	}, driver, stack)
	if err != nil {
		return fmt.Errorf("creating link: %w", err)
	}
	link.SetLogger(log.With("component", "espnow"))
	defer func() {
		log.Info("closing broadcast link")
		if closeErr := link.Close(); closeErr != nil {
			log.Error("error closing link", "error", closeErr)
		}
	}()

	// Pub/sub core
	node := pubsub.NewNode(pubsub.Options{
		Name:       cfg.Node.Name,
		SendRepeat: cfg.Node.SendRepeat,
	}, link)
	node.SetLogger(log.With("component", "pubsub"))

	// Register the process-wide instance and wire the receive hook. The
	// hook resolves the active node at call time so the transport never
	// holds a stale reference across reinitialisations.
	pubsub.SetActive(node)
	defer pubsub.ClearActive()
	link.SetReceiveHook(func(rssi int, data []byte) {
		if n := pubsub.Active(); n != nil {
			n.OnReceive(rssi, data)
		}
	})

	// MQTT uplink bridge (optional)
	var bridge *mqttbridge.Bridge
	if cfg.Bridge.Enabled {
		bridge, err = mqttbridge.Connect(cfg.Bridge, cfg.Node.Name, node)
		if err != nil {
			return fmt.Errorf("connecting bridge: %w", err)
		}
		bridge.SetLogger(log.With("component", "bridge"))
		defer func() {
			log.Info("disconnecting bridge")
			bridge.Close()
		}()
		log.Info("bridge connected",
			"broker", fmt.Sprintf("%s:%d", cfg.Bridge.Broker.Host, cfg.Bridge.Broker.Port),
			"client_id", cfg.Bridge.Broker.ClientID,
			"prefix", cfg.Bridge.TopicPrefix,
		)
	} else {
		log.Info("bridge disabled")
	}

	// Rule engine and periodic publishers
	deps := automation.Deps{
		Publisher: node,
		Logger:    log.With("component", "rules"),
	}
	if bridge != nil {
		deps.Bridge = bridge
	}
	engine, err := automation.NewEngine(cfg.Rules, cfg.Publishers, deps)
	if err != nil {
		return fmt.Errorf("compiling rules: %w", err)
	}
	engine.Bind(func(pattern string, handler func(topic string, payload []byte)) {
		node.Subscribe(pattern, handler)
	})
	log.Info("rules compiled",
		"rules", engine.RuleCount(),
		"publishers", len(cfg.Publishers),
		"patterns", engine.Patterns(),
	)

	// Status journal (optional)
	var journal *diagnostics.Journal
	if cfg.Journal.Enabled {
		journal, err = diagnostics.OpenJournal(cfg.Journal)
		if err != nil {
			return fmt.Errorf("opening journal: %w", err)
		}
		defer func() {
			log.Info("closing journal")
			if closeErr := journal.Close(); closeErr != nil {
				log.Error("error closing journal", "error", closeErr)
			}
		}()
		log.Info("journal opened", "path", cfg.Journal.Path)
	} else {
		log.Info("journal disabled")
	}

	// InfluxDB metrics (optional)
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
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Diagnostics reporter ties the sinks together
	reporter := diagnostics.NewReporter(node, link, influxClient, journal,
		log.With("component", "diagnostics"))
	node.SetOnFlush(func() {
		reporter.Flush(context.Background())
	})
	link.SetOnStateChange(reporter.RecordLinkState)
	retention := time.Duration(cfg.Journal.RetentionDays) * 24 * time.Hour
	go reporter.Run(ctx, reporterFlushInterval, retention)

	// The receive callback is only installed when something subscribes;
	// a send-only node keeps the radio in power save instead.
	link.SetHasSubscribers(node.Registry().Len() > 0)

	// Bring the link up
	if err := link.Start(ctx); err != nil {
		return fmt.Errorf("starting link: %w", err)
	}
	log.Info("link started",
		"mode", cfg.Transport.Mode,
		"channel", cfg.Node.Channel,
		"state", link.State().String(),
	)

	// Diagnostics API (optional)
	if cfg.API.Enabled {
		server, apiErr := api.New(api.Deps{
			Config:  cfg.API,
			Logger:  log.With("component", "api"),
			Node:    node,
			Link:    link,
			Journal: journal,
			Metrics: influxClient,
			Bridge:  bridge,
			Version: version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API disabled")
	}

	// Dispatcher loop and periodic publishers
	go node.Run(ctx)
	engine.StartPublishers(ctx)
	defer engine.Wait()

	log.Info("initialisation complete, waiting for shutdown signal",
		"node", cfg.Node.Name,
		"subscriptions", node.Registry().Patterns(),
	)

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// API server, InfluxDB, journal, bridge, link.

	log.Info("ESP-NOW pub/sub node stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses ESPNOW_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("ESPNOW_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
