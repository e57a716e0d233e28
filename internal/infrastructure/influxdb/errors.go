package influxdb

import "errors"

// Sentinel errors for the time-series mirror. Callers match with
// errors.Is.
var (
	// ErrNotConnected is returned when the client is closed or was never
	// connected.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed is returned when the server does not answer
	// the connect-time ping.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrDisabled is returned by Connect when the mirror is switched off
	// in configuration. Callers treat it as "run without the mirror".
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
