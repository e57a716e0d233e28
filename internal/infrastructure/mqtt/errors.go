package mqtt

import "errors"

// Sentinel errors for the MQTT transport. Callers match with errors.Is;
// wrapped values carry the underlying paho detail.
var (
	// ErrNotConnected is returned when an operation needs a live broker
	// connection and there is none.
	ErrNotConnected = errors.New("mqtt: not connected to broker")

	// ErrConnectionFailed is returned when the initial connect does not
	// complete within the handshake timeout.
	ErrConnectionFailed = errors.New("mqtt: broker connection failed")

	// ErrPublishFailed is returned when a publish is rejected, oversized
	// or not acknowledged in time.
	ErrPublishFailed = errors.New("mqtt: publish not delivered")

	// ErrSubscribeFailed is returned when a subscription is rejected by
	// the broker or given a nil handler.
	ErrSubscribeFailed = errors.New("mqtt: subscribe rejected")

	// ErrUnsubscribeFailed is returned when the broker does not confirm
	// an unsubscribe.
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe rejected")

	// ErrInvalidQoS is returned for QoS levels outside 0 to 2.
	ErrInvalidQoS = errors.New("mqtt: qos out of range")

	// ErrInvalidTopic is returned for an empty topic.
	ErrInvalidTopic = errors.New("mqtt: empty topic")
)
