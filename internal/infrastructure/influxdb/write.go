package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names for the Sitewatch bucket.
const (
	measurementChecks = "site_checks"
	measurementUptime = "site_uptime"
)

// WriteCheck records the outcome of one website probe.
//
// The write is non-blocking; data is batched and sent asynchronously.
// Status is carried as a tag (three possible values), so dashboards can
// group and alert on it without regex gymnastics.
//
// Parameters:
//   - site: The configured site name
//   - channel: The reporting channel the site publishes to (may be empty)
//   - status: The classified status string
//   - httpStatus: The HTTP status code received (0 when unreachable)
//   - latency: Time from request start to response headers
//
// Example:
//
//	client.WriteCheck("my-blog", "ops", "down", 503, 120*time.Millisecond)
func (c *Client) WriteCheck(site, channel, status string, httpStatus int, latency time.Duration) {
	if !c.IsConnected() {
		return
	}

	tags := map[string]string{
		"site":   site,
		"status": status,
	}
	if channel != "" {
		tags["channel"] = channel
	}

	point := write.NewPoint(
		measurementChecks,
		tags,
		map[string]interface{}{
			"http_status": httpStatus,
			"latency_ms":  float64(latency) / float64(time.Millisecond),
		},
		time.Now(),
	)

	c.writer.WritePoint(point)
}

// WriteUptime records the aggregated uptime percentage for one summary
// window (day, week, month or year).
//
// Parameters:
//   - site: The configured site name
//   - window: The summary window name
//   - percent: Share of counted days fully up, 0-100
func (c *Client) WriteUptime(site, window string, percent float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		measurementUptime,
		map[string]string{
			"site":   site,
			"window": window,
		},
		map[string]interface{}{
			"percent": percent,
		},
		time.Now(),
	)

	c.writer.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "monitor-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writer.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., backfilled data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writer.WritePoint(point)
}
