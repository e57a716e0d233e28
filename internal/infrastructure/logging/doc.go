// Package logging wires log/slog into Sitewatch.
//
// Every package logs through the Logger built here, so records share one
// shape: a level, a message, key-value attributes, plus the service name
// and build version stamped on everything. Format and level come from
// the logging section of config.yaml:
//
//	logging:
//	  level: "info"             # debug, info, warn, error
//	  format: "json"            # json for machines, text for humans
//	  output: "stdout"          # stdout, stderr, or a file path
//
// A file path as output is opened append-only and held for the life of
// the process; rotation is left to logrotate or the platform.
//
// Typical wiring:
//
//	log := logging.New(cfg.Logging, version)
//	log.Info("site checked", "site", "my-blog", "status", "down")
//
//	dbLog := log.With("component", "database")
//
// Keep secrets out of attributes: tokens and passwords never belong in a
// record, truncate where context is genuinely needed.
package logging
