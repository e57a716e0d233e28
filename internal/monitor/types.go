package monitor

import (
	"fmt"
	"strings"
	"time"
)

// Status classifies the outcome of one website check.
type Status string

const (
	// StatusUp means the expected HTTP status arrived and the expected
	// content was present in the body.
	StatusUp Status = "up_and_operational"

	// StatusPartiallyUp means the expected HTTP status arrived but the
	// expected content was missing.
	StatusPartiallyUp Status = "up_but_not_operational"

	// StatusDown means the wrong HTTP status arrived or the request
	// failed outright.
	StatusDown Status = "down"
)

// Label returns the human-facing wording for a status.
func (s Status) Label() string {
	switch s {
	case StatusUp:
		return "UP and Operational"
	case StatusPartiallyUp:
		return "UP but NOT Operational"
	case StatusDown:
		return "DOWN"
	default:
		return fmt.Sprintf("UNHANDLED STATUS (%s)", string(s))
	}
}

// ParseStatus maps a configured status name onto a Status. Short aliases
// are accepted alongside the stored forms.
func ParseStatus(name string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "up_and_operational", "up":
		return StatusUp, nil
	case "up_but_not_operational", "partially_up", "partial":
		return StatusPartiallyUp, nil
	case "down":
		return StatusDown, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, name)
}

// DeadCheck overrides the computed status when its keyword appears in the
// response body. Rules are evaluated in order; the first match wins.
type DeadCheck struct {
	Keyword       string
	Response      Status
	CaseSensitive bool
}

// Site describes one monitored website.
type Site struct {
	Name            string
	URL             string
	Channel         string
	ExpectedContent string
	ExpectedStatus  int
	CaseSensitive   bool
	Output          string
	DeadChecks      []DeadCheck
}

// CheckResult captures the outcome of one probe of one site.
type CheckResult struct {
	Site       string
	Status     Status
	HTTPStatus int
	Latency    time.Duration
	CheckedAt  time.Time
}
