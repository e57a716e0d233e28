package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root of the Sitewatch configuration tree, populated from
// defaults, then the YAML file, then SITEWATCH_* environment overrides.
type Config struct {
	Monitor  MonitorConfig  `yaml:"monitor"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// MonitorConfig contains the polling loop settings and the site roster.
type MonitorConfig struct {
	IntervalSeconds       int          `yaml:"interval_seconds"`
	RequestTimeoutSeconds int          `yaml:"request_timeout_seconds"`
	HistoryRetentionDays  int          `yaml:"history_retention_days"`
	Output                string       `yaml:"output"`
	Sites                 []SiteConfig `yaml:"sites"`
}

// SiteConfig describes one monitored website.
type SiteConfig struct {
	Name            string            `yaml:"name"`
	URL             string            `yaml:"url"`
	Channel         string            `yaml:"channel"`
	ExpectedContent string            `yaml:"expected_content"`
	ExpectedStatus  int               `yaml:"expected_status"`
	CaseSensitive   bool              `yaml:"case_sensitive"`
	Output          string            `yaml:"output,omitempty"`
	DeadChecks      []DeadCheckConfig `yaml:"dead_checks"`
}

// DeadCheckConfig maps a page keyword to the status text reported when the
// keyword appears in an otherwise healthy response.
type DeadCheckConfig struct {
	Keyword  string `yaml:"keyword"`
	Response string `yaml:"response"`
}

// DatabaseConfig drives the embedded SQLite store.
type DatabaseConfig struct {
	Path          string   `yaml:"path"`
	WALMode       bool     `yaml:"wal_mode"`
	BusyTimeout   int      `yaml:"busy_timeout"`
	RiskyKeywords []string `yaml:"risky_keywords"`
}

// MQTTConfig groups everything the broker connection needs.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig locates and identifies against the broker.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig carries broker credentials. Prefer the environment
// overrides for the password on shared machines.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig bounds the reconnect backoff, in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig drives the optional time-series mirror.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig selects level, record format and destination. Output is
// "stdout", "stderr", or a file path opened append-only.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Report output modes accepted by monitor.output and sites[].output.
const (
	OutputRaw      = "raw"
	OutputMarkdown = "markdown"
	OutputEmbed    = "embed"
)

// Load reads the YAML file at path and returns the validated config.
//
// Values resolve in three layers: hardcoded defaults, then the file,
// then SITEWATCH_* environment variables, each overriding the one
// before. Validation runs on the final result, so an env override can
// both fix and break a config.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig is the baseline a file and environment overrides build
// on. It validates on its own, apart from the empty site roster.
func defaultConfig() *Config {
	return &Config{
		Monitor: MonitorConfig{
			IntervalSeconds:       60,
			RequestTimeoutSeconds: 5,
			HistoryRetentionDays:  365,
			Output:                OutputMarkdown,
		},
		Database: DatabaseConfig{
			Path:        "./data/sitewatch.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "sitewatch",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides layers SITEWATCH_* environment variables over cfg.
// Only the settings that make sense to inject at deploy time are
// overridable, credentials and paths foremost.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SITEWATCH_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("SITEWATCH_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("SITEWATCH_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("SITEWATCH_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("SITEWATCH_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("SITEWATCH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// validOutput reports whether mode names a known report output mode.
func validOutput(mode string) bool {
	switch mode {
	case OutputRaw, OutputMarkdown, OutputEmbed:
		return true
	}
	return false
}

// Validate checks the whole tree and reports every problem at once,
// joined into a single error.
func (c *Config) Validate() error {
	var errs []string

	if c.Monitor.IntervalSeconds < 1 {
		errs = append(errs, "monitor.interval_seconds must be positive")
	}
	if c.Monitor.RequestTimeoutSeconds < 1 {
		errs = append(errs, "monitor.request_timeout_seconds must be positive")
	}
	if c.Monitor.HistoryRetentionDays < 0 {
		errs = append(errs, "monitor.history_retention_days must not be negative")
	}
	if !validOutput(c.Monitor.Output) {
		errs = append(errs, "monitor.output must be raw, markdown, or embed")
	}

	// Site names key the persisted site records, so they must be present
	// and unique.
	seen := make(map[string]bool, len(c.Monitor.Sites))
	for i, site := range c.Monitor.Sites {
		if site.Name == "" {
			errs = append(errs, fmt.Sprintf("monitor.sites[%d].name is required", i))
			continue
		}
		if seen[site.Name] {
			errs = append(errs, fmt.Sprintf("monitor.sites[%d].name %q is duplicated", i, site.Name))
		}
		seen[site.Name] = true
		if site.URL == "" {
			errs = append(errs, fmt.Sprintf("monitor.sites[%d].url is required", i))
		}
		if site.Output != "" && !validOutput(site.Output) {
			errs = append(errs, fmt.Sprintf("monitor.sites[%d].output must be raw, markdown, or embed", i))
		}
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// The mirror settings only matter when it is switched on.
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Org == "" {
			errs = append(errs, "influxdb.org is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetCheckInterval returns the polling interval as a Duration.
func (c *Config) GetCheckInterval() time.Duration {
	return time.Duration(c.Monitor.IntervalSeconds) * time.Second
}

// GetRequestTimeout returns the per-site HTTP timeout as a Duration.
func (c *Config) GetRequestTimeout() time.Duration {
	return time.Duration(c.Monitor.RequestTimeoutSeconds) * time.Second
}

// GetHistoryRetention returns the history retention window as a Duration.
// A zero window means history is kept forever.
func (c *Config) GetHistoryRetention() time.Duration {
	return time.Duration(c.Monitor.HistoryRetentionDays) * 24 * time.Hour
}

// OutputFor resolves the report output mode for a site, falling back to
// the monitor-wide default when the site does not set one.
func (c *Config) OutputFor(site SiteConfig) string {
	if site.Output != "" {
		return site.Output
	}
	return c.Monitor.Output
}
