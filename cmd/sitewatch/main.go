// Sitewatch - Website Uptime Monitor
//
// This is the main entry point for the Sitewatch service.
// Sitewatch polls a roster of websites on a fixed interval, classifies each
// response (up, up but not operational, down), stores the full check history
// in an embedded SQLite database and publishes status, reports and transition
// events over MQTT. Check results can optionally be mirrored into InfluxDB
// for dashboarding.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/sitewatch/internal/infrastructure/config"
	"github.com/nerrad567/sitewatch/internal/infrastructure/database"
	"github.com/nerrad567/sitewatch/internal/infrastructure/influxdb"
	"github.com/nerrad567/sitewatch/internal/infrastructure/logging"
	"github.com/nerrad567/sitewatch/internal/infrastructure/mqtt"
	"github.com/nerrad567/sitewatch/internal/monitor"
)

// Build metadata, stamped via
// go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123".
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// defaultConfigPath is used when SITEWATCH_CONFIG is unset.
const defaultConfigPath = "configs/config.yaml"

func main() {
	// SIGINT/SIGTERM cancel the context, which unwinds the whole service.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run assembles the service and blocks until ctx is cancelled. main stays
// a thin shell so tests can drive the whole startup path through here.
func run(ctx context.Context) error {
	// Bootstrap logger, replaced once the config is in
	log := logging.Default()
	log.Info("starting Sitewatch",
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

	// Swap in the configured logger
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Resolve the site roster up front so a config mistake fails the
	// start, not the first check cycle.
	sites, err := buildSites(cfg)
	if err != nil {
		return fmt.Errorf("resolving site roster: %w", err)
	}

	db, err := database.Open(ctx, database.Config{
		Path:          cfg.Database.Path,
		WALMode:       cfg.Database.WALMode,
		BusyTimeout:   cfg.Database.BusyTimeout,
		RiskyKeywords: cfg.Database.RiskyKeywords,
	}, log)
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

	// Create the schema and sync the configured roster into it
	repo := monitor.NewRepository(db, log)
	if err := repo.Bootstrap(ctx); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	if err := repo.SaveSites(ctx, sites); err != nil {
		return fmt.Errorf("saving site roster: %w", err)
	}
	log.Info("site roster saved", "sites", len(sites))

	// Bring up the message bus
	mqttClient, err := mqtt.Connect(cfg.MQTT, log)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Surface connection churn in the logs
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// The time-series mirror is opt-in
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

		// Batched writes fail asynchronously; route those into the log
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Assemble the monitor
	checker := monitor.NewChecker(cfg.GetRequestTimeout(), log)
	notifier := &mqttNotifier{
		client: mqttClient,
		qos:    byte(cfg.MQTT.QoS),
	}

	// The mirror interface stays nil when InfluxDB is disabled so the
	// scheduler skips time-series writes entirely.
	var mirror monitor.Mirror
	if influxClient != nil {
		mirror = &influxMirror{client: influxClient}
	}

	sched := monitor.NewScheduler(checker, repo, notifier, mirror, monitor.SchedulerOptions{
		Sites:     sites,
		Interval:  cfg.GetCheckInterval(),
		Retention: cfg.GetHistoryRetention(),
	}, log)

	// A refresh command published to the command topic triggers an
	// immediate check cycle.
	topics := mqtt.Topics{}
	err = mqttClient.Subscribe(topics.CommandRefresh(), byte(cfg.MQTT.QoS), func(topic string, _ []byte) error {
		log.Info("refresh command received", "topic", topic)
		sched.Refresh()
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribing to refresh command: %w", err)
	}

	// One startup probe across every dependency before the loop begins
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, starting check loop")

	// Blocks until the shutdown signal cancels the context
	if err := sched.Run(ctx); err != nil {
		return fmt.Errorf("running scheduler: %w", err)
	}

	log.Info("shutdown signal received, cleaning up")

	// The deferred closes unwind in reverse: InfluxDB, then MQTT, then
	// the database.

	log.Info("Sitewatch stopped")
	return nil
}

// getConfigPath resolves the config file location, preferring the
// SITEWATCH_CONFIG environment variable.
func getConfigPath() string {
	if path := os.Getenv("SITEWATCH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// buildSites converts the configured site list into monitor sites.
//
// Dead-check responses are parsed here so a typo in the config fails the
// start instead of surfacing mid-cycle. Sites that omit expected_status get
// 200, matching the schema default. Dead-check rules inherit the site's
// case sensitivity.
func buildSites(cfg *config.Config) ([]monitor.Site, error) {
	sites := make([]monitor.Site, 0, len(cfg.Monitor.Sites))
	for _, sc := range cfg.Monitor.Sites {
		site := monitor.Site{
			Name:            sc.Name,
			URL:             sc.URL,
			Channel:         sc.Channel,
			ExpectedContent: sc.ExpectedContent,
			ExpectedStatus:  sc.ExpectedStatus,
			CaseSensitive:   sc.CaseSensitive,
			Output:          cfg.OutputFor(sc),
		}
		if site.ExpectedStatus == 0 {
			site.ExpectedStatus = http.StatusOK
		}
		for _, dc := range sc.DeadChecks {
			response, err := monitor.ParseStatus(dc.Response)
			if err != nil {
				return nil, fmt.Errorf("site %q dead check %q: %w", sc.Name, dc.Keyword, err)
			}
			site.DeadChecks = append(site.DeadChecks, monitor.DeadCheck{
				Keyword:       dc.Keyword,
				Response:      response,
				CaseSensitive: sc.CaseSensitive,
			})
		}
		sites = append(sites, site)
	}
	return sites, nil
}

// healthCheck probes every wired dependency and returns the first
// failure. influxClient is nil when the mirror is disabled.
func healthCheck(ctx context.Context, db *database.Store, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if !db.IsAlive(ctx) {
		return fmt.Errorf("database: connection not responding")
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// mqttNotifier adapts the infrastructure MQTT client to the monitor's
// Notifier interface. Status and report payloads are published retained so
// subscribers receive the last known state on connect; transitions are
// plain events.
type mqttNotifier struct {
	client *mqtt.Client
	qos    byte
	topics mqtt.Topics
}

// statusPayload is the JSON body published on the per-site status topic.
type statusPayload struct {
	Site      string `json:"site"`
	Status    string `json:"status"`
	Label     string `json:"label"`
	Timestamp string `json:"timestamp"`
}

// transitionPayload is the JSON body published on the per-site transition topic.
type transitionPayload struct {
	Site      string `json:"site"`
	From      string `json:"from"`
	To        string `json:"to"`
	Timestamp string `json:"timestamp"`
}

// PublishStatus implements monitor.Notifier.
func (n *mqttNotifier) PublishStatus(_ context.Context, site string, status monitor.Status) error {
	payload, err := json.Marshal(statusPayload{
		Site:      site,
		Status:    string(status),
		Label:     status.Label(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encoding status payload: %w", err)
	}
	return n.client.PublishRetained(n.topics.SiteStatus(site), payload)
}

// PublishReport implements monitor.Notifier. MQTT has no per-message
// reference to hand back, so the returned reference is always empty and the
// stored message reference stays unset.
func (n *mqttNotifier) PublishReport(_ context.Context, site string, msg monitor.Message) (string, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("encoding report payload: %w", err)
	}
	if err := n.client.PublishRetained(n.topics.SiteReport(site), payload); err != nil {
		return "", err
	}
	return "", nil
}

// PublishTransition implements monitor.Notifier.
func (n *mqttNotifier) PublishTransition(_ context.Context, site string, from, to monitor.Status) error {
	payload, err := json.Marshal(transitionPayload{
		Site:      site,
		From:      string(from),
		To:        string(to),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encoding transition payload: %w", err)
	}
	return n.client.Publish(n.topics.SiteTransition(site), payload, n.qos, false)
}

// influxMirror adapts the InfluxDB client to the monitor's Mirror
// interface. The underlying writes are batched and non-blocking, which is
// what the Mirror contract requires.
type influxMirror struct {
	client *influxdb.Client
}

// RecordCheck implements monitor.Mirror.
func (m *influxMirror) RecordCheck(site, channel string, status monitor.Status, httpStatus int, latency time.Duration) {
	m.client.WriteCheck(site, channel, string(status), httpStatus, latency)
}

// RecordUptime implements monitor.Mirror.
func (m *influxMirror) RecordUptime(site, window string, percent float64) {
	m.client.WriteUptime(site, window, percent)
}
