// Package config loads and validates the Sitewatch configuration.
//
// Settings live in one YAML file, resolved in three layers: hardcoded
// defaults, the file itself, then SITEWATCH_* environment variables for
// the deploy-time values (database path, broker host, credentials, log
// level). Everything is read once at startup; nothing here is consulted
// again while the service runs.
//
// Validation happens on the final merged result and reports every
// problem in one pass, so a broken config fails the start with the full
// list instead of one complaint per restart.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	interval := cfg.GetCheckInterval()
//
// Secrets in the file (broker password, InfluxDB token) are better
// injected through their environment overrides; if they are in the file,
// keep its permissions tight.
package config
