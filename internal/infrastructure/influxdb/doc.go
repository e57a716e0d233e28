// Package influxdb mirrors Sitewatch check outcomes into time series.
//
// The mirror is optional: when the influxdb section of config.yaml is
// disabled the rest of the service runs unchanged, and Connect returns
// ErrDisabled so callers can skip the wiring. When enabled, every check
// lands in the site_checks measurement (status, HTTP code, latency) and
// every summary window in site_uptime (percent per day/week/month/year
// window), which is enough to graph latency, break down status by site
// and channel, and alert on uptime.
//
// # Write Path
//
// The package wraps the official influxdb-client-go v2 non-blocking
// write API. Points are buffered and flushed in batches sized by
// config.yaml (batch_size, flush_interval), so the check cycle never
// waits on InfluxDB. The price is asynchronous failure: batch errors
// arrive on a callback registered with SetOnError, not on the write
// call. Flush forces the buffer out, which the tests and the shutdown
// path use.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without the mirror
//	}
//	client.SetOnError(func(err error) {
//	    log.Error("InfluxDB write error", "error", err)
//	})
//	client.WriteCheck("my-blog", "ops", "down", 503, 120*time.Millisecond)
//
// All methods are safe for concurrent use. Writes on a closed or
// never-connected client are silently dropped.
package influxdb
