// Package mqtt is the outbound message bus for Sitewatch.
//
// Every check cycle publishes per-site status, report and transition
// payloads through this package, and the service listens here for the
// refresh command. The broker decouples the monitor from whatever
// consumes its output: chat bots, dashboards, automations.
//
// # Topic Layout
//
// All traffic lives under the sitewatch/ prefix. Site names are slugged
// into topic segments by the Topics builders:
//
//	sitewatch/site/{site}/status      retained, bare classified status
//	sitewatch/site/{site}/report      retained, rendered uptime report
//	sitewatch/site/{site}/transition  event, fired on status change
//	sitewatch/system/status           retained, service presence
//	sitewatch/command/refresh         inbound, triggers a check cycle
//
// # Presence
//
// Connect registers a Last Will on the system status topic; if the
// connection dies without a clean DISCONNECT, the broker publishes the
// retained offline payload with reason unexpected_disconnect. A clean
// Close replaces it with the graceful_shutdown reason, and every
// (re)connect restores the retained online payload. Subscribers can
// therefore tell a crashed monitor from a stopped one from a quiet one.
//
// # Reconnection
//
// paho reconnects on its own with backoff between the configured delays.
// Confirmed subscriptions are tracked inside the Client and subscribed
// again after each reconnect, since clean sessions keep no state on the
// broker.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, log)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topics := mqtt.Topics{}
//	err = client.Subscribe(topics.CommandRefresh(), 1,
//	    func(topic string, payload []byte) error {
//	        scheduler.Refresh()
//	        return nil
//	    })
//
//	err = client.PublishRetained(topics.SiteStatus("my-blog"),
//	    []byte(`{"status":"down"}`))
//
// Credentials and TLS are driven by the mqtt section of config.yaml;
// payload bodies are JSON and are not encrypted beyond the transport.
package mqtt
