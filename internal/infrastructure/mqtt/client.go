package mqtt

import (
	"context"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/sitewatch/internal/infrastructure/config"
	"github.com/nerrad567/sitewatch/internal/infrastructure/logging"
)

// MessageHandler receives messages delivered on a subscribed topic.
// The paho library invokes handlers on its own goroutines, so handlers
// must not block for long. A returned error is logged and otherwise
// ignored; it has no effect on message acknowledgement.
type MessageHandler func(topic string, payload []byte) error

// subscription is remembered so the topic can be subscribed again after
// a broker reconnect.
type subscription struct {
	qos     byte
	handler MessageHandler
}

// Client is the Sitewatch connection to the MQTT broker.
//
// A Client publishes the per-site status, report and transition payloads,
// listens on command topics, and announces service presence on the system
// status topic: a retained online payload on every connect, and a Last
// Will offline payload when the connection dies uncleanly. Reconnection
// is left to paho; confirmed subscriptions are tracked and replayed after
// each reconnect.
//
// All methods are safe for concurrent use.
type Client struct {
	paho pahomqtt.Client
	cfg  config.MQTTConfig
	log  *logging.Logger

	mu           sync.Mutex
	connected    bool
	subs         map[string]subscription
	onConnect    func()
	onDisconnect func(error)
}

// Connect dials the broker described by cfg and returns a ready client.
//
// The connection registers a Last Will so the broker flips the retained
// presence on sitewatch/system/status to offline if the client drops
// without a clean DISCONNECT. Auto-reconnect stays on for the life of the
// client, backing off between cfg.Reconnect.InitialDelay and
// cfg.Reconnect.MaxDelay seconds. A nil log falls back to the default
// logger.
//
// Returns ErrConnectionFailed when the broker cannot be reached within
// the connect timeout.
func Connect(cfg config.MQTTConfig, log *logging.Logger) (*Client, error) {
	if log == nil {
		log = logging.Default()
	}

	c := &Client{
		cfg:  cfg,
		log:  log,
		subs: make(map[string]subscription),
	}

	opts := brokerOptions(cfg)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.brokerUp() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.brokerDown(err) })
	opts.SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
		c.log.Warn("MQTT reconnecting",
			"broker", fmt.Sprintf("%s:%d", cfg.Broker.Host, cfg.Broker.Port),
		)
	})

	c.paho = pahomqtt.NewClient(opts)

	token := c.paho.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("%w: no response within %v", ErrConnectionFailed, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The paho on-connect handler runs on its own goroutine and may not
	// have fired yet. Mark the client connected here so publishes work
	// the moment Connect returns.
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()

	return c, nil
}

// brokerUp runs on every successful connect, including reconnects:
// replay tracked subscriptions, announce presence, then hand control to
// the user callback.
func (c *Client) brokerUp() {
	c.mu.Lock()
	c.connected = true
	replay := make(map[string]subscription, len(c.subs))
	for topic, sub := range c.subs {
		replay[topic] = sub
	}
	notify := c.onConnect
	c.mu.Unlock()

	for topic, sub := range replay {
		// A failed replay stays tracked, so the next reconnect tries again.
		c.paho.Subscribe(topic, sub.qos, c.dispatch(sub.handler))
	}

	c.announce(presenceOnline, "")

	if notify != nil {
		notify()
	}
}

// brokerDown records the lost connection and notifies the user callback
// with the transport's reason.
func (c *Client) brokerDown(err error) {
	c.mu.Lock()
	c.connected = false
	notify := c.onDisconnect
	c.mu.Unlock()

	if notify != nil {
		notify(err)
	}
}

// announce publishes a retained presence payload on the system status
// topic. reason is set only for offline payloads. The returned token lets
// Close wait for the broker ack; other callers ignore it.
func (c *Client) announce(status, reason string) pahomqtt.Token {
	payload := presenceJSON(c.cfg.Broker.ClientID, status, reason)
	return c.paho.Publish(Topics{}.SystemStatus(), byte(c.cfg.QoS), true, payload)
}

// Close announces a clean shutdown and disconnects from the broker.
//
// The retained offline payload published here carries the shutdown
// reason, which tells subscribers apart from the Last Will the broker
// fires on a dropped connection. Closing a client that never connected
// is a no-op.
func (c *Client) Close() error {
	if c.paho == nil {
		return nil
	}

	if c.IsConnected() {
		c.announce(presenceOffline, reasonShutdown).WaitTimeout(ackTimeout)
	}

	c.paho.Disconnect(disconnectQuiesceMs)

	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	return nil
}

// HealthCheck reports whether the broker connection is usable.
//
// The check is passive: paho already tracks liveness through its
// keepalive pings, so no extra traffic is generated. A cancelled context
// wins over the connection state.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports the last known connection state without touching
// the network.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected && c.paho != nil && c.paho.IsConnected()
}

// SetOnConnect registers a callback invoked after every successful
// connect, including reconnects.
func (c *Client) SetOnConnect(fn func()) {
	c.mu.Lock()
	c.onConnect = fn
	c.mu.Unlock()
}

// SetOnDisconnect registers a callback invoked when the connection
// drops. It receives the reason reported by the transport.
func (c *Client) SetOnDisconnect(fn func(error)) {
	c.mu.Lock()
	c.onDisconnect = fn
	c.mu.Unlock()
}

// dispatch adapts a MessageHandler to the paho callback signature.
// A panicking handler is recovered and logged so one bad subscriber
// cannot take down the delivery goroutine.
func (c *Client) dispatch(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		topic := msg.Topic()
		defer func() {
			if r := recover(); r != nil {
				c.log.Error("MQTT handler panicked", "topic", topic, "panic", r)
			}
		}()

		if err := handler(topic, msg.Payload()); err != nil {
			c.log.Warn("MQTT handler failed", "topic", topic, "error", err)
		}
	}
}

// checkTopicQoS validates caller-supplied topic and QoS before any
// network activity.
func checkTopicQoS(topic string, qos byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	return nil
}
