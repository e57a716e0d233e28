package influxdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/sitewatch/internal/infrastructure/config"
)

const (
	// pingTimeout bounds the connectivity probes at connect time and in
	// HealthCheck.
	pingTimeout = 5 * time.Second

	// Batching fallbacks for configs that leave the tuning knobs unset.
	defaultBatchSize     = 100
	defaultFlushSeconds  = 10
	millisecondsInSecond = 1000
)

// Client mirrors check outcomes into InfluxDB.
//
// Writes go through the non-blocking batched write API, so a slow or
// unreachable InfluxDB never stalls a check cycle; failed batches are
// reported through the SetOnError callback instead. All methods are safe
// for concurrent use, and every write helper degrades to a no-op once
// the client is closed or was never connected.
type Client struct {
	conn   influxdb2.Client
	writer api.WriteAPI
	cfg    config.InfluxDBConfig

	mu        sync.Mutex
	connected bool
	onError   func(error)
}

// Connect builds a client for the configured InfluxDB and verifies it
// answers a ping before returning.
//
// A config with Enabled false yields ErrDisabled so the caller can treat
// the mirror as optional. Batch size and flush interval fall back to
// package defaults when unset.
func Connect(cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	flush := cfg.FlushInterval
	if flush <= 0 {
		flush = defaultFlushSeconds
	}

	// #nosec G115 -- batch and flush are clamped positive above.
	opts := influxdb2.DefaultOptions().
		SetBatchSize(uint(batch)).
		SetFlushInterval(uint(flush) * millisecondsInSecond)

	conn := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := pingServer(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c := &Client{
		conn:      conn,
		writer:    conn.WriteAPI(cfg.Org, cfg.Bucket),
		cfg:       cfg,
		connected: true,
	}

	// Async batch failures surface on this channel for the client's
	// lifetime; the drain goroutine exits when Close shuts the channel.
	go c.drainWriteErrors(c.writer.Errors())

	return c, nil
}

// pingServer resolves the two failure shapes of the driver ping, an
// error or a false health flag, into one error.
func pingServer(ctx context.Context, conn influxdb2.Client) error {
	ok, err := conn.Ping(ctx)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	if !ok {
		return fmt.Errorf("ping: server reports unhealthy")
	}
	return nil
}

// drainWriteErrors forwards async write failures to the registered
// callback, dropping them when none is set.
func (c *Client) drainWriteErrors(errs <-chan error) {
	for err := range errs {
		c.mu.Lock()
		report := c.onError
		c.mu.Unlock()

		if report != nil {
			report(err)
		}
	}
}

// SetOnError registers a callback for asynchronous write failures.
// Writes are batched and non-blocking, so this is the only place batch
// errors become visible.
func (c *Client) SetOnError(fn func(error)) {
	c.mu.Lock()
	c.onError = fn
	c.mu.Unlock()
}

// HealthCheck pings the server and reports the result. The ping is
// bounded by pingTimeout even when ctx carries no deadline.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	checkCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := pingServer(checkCtx, c.conn); err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	return nil
}

// IsConnected reports the last known connection state. It flips to false
// on Close and never flips back.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Flush pushes buffered points out immediately, blocking until the
// write API has drained. A closed or never-connected client is a no-op.
func (c *Client) Flush() {
	if c.writer == nil || !c.IsConnected() {
		return
	}
	c.writer.Flush()
}

// Close flushes pending points and releases the connection. Closing a
// zero-value client is a no-op; the driver's close cannot fail.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}

	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	c.writer.Flush()
	c.conn.Close()

	return nil
}
