package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/sitewatch/internal/infrastructure/config"
)

// Transport limits and timeouts.
const (
	// connectTimeout bounds the initial broker handshake.
	connectTimeout = 10 * time.Second

	// ackTimeout bounds waiting for publish, subscribe and unsubscribe
	// acknowledgements.
	ackTimeout = 5 * time.Second

	// disconnectQuiesceMs is how long Disconnect waits for in-flight
	// messages, in milliseconds as paho expects.
	disconnectQuiesceMs = 1000

	// keepAliveInterval drives paho's PINGREQ cycle so half-open
	// connections get noticed.
	keepAliveInterval = 60 * time.Second

	// maxQoS is the highest QoS level MQTT defines.
	maxQoS = 2

	// maxPayloadSize caps outbound payloads at 1 MiB. Reports are a few
	// kilobytes; anything near the cap is a bug upstream.
	maxPayloadSize = 1 << 20
)

// Presence statuses published on the system status topic.
const (
	presenceOnline  = "online"
	presenceOffline = "offline"
)

// Offline reasons tell a clean shutdown apart from a dropped connection.
const (
	reasonShutdown   = "graceful_shutdown"
	reasonConnection = "unexpected_disconnect"
)

// presencePayload is the JSON body carried on sitewatch/system/status.
type presencePayload struct {
	Status    string `json:"status"`
	ClientID  string `json:"client_id"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

// presenceJSON renders a presence payload. Marshalling a flat struct of
// strings cannot fail, so the error is discarded.
func presenceJSON(clientID, status, reason string) []byte {
	body, _ := json.Marshal(presencePayload{
		Status:    status,
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return body
}

// brokerOptions translates the Sitewatch MQTT section into paho client
// options, including the Last Will registration.
//
// Sessions are clean: subscription state is replayed by the Client after
// reconnects rather than parked on the broker.
func brokerOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port)).
		SetClientID(cfg.Broker.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second).
		SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second).
		SetConnectTimeout(connectTimeout).
		SetKeepAlive(keepAliveInterval)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	// The will fires when the broker loses this client without a clean
	// DISCONNECT, flipping the retained presence to offline.
	will := presenceJSON(cfg.Broker.ClientID, presenceOffline, reasonConnection)
	opts.SetWill(Topics{}.SystemStatus(), string(will), 1, true)

	return opts
}
