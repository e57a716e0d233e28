package monitor

import "errors"

var (
	// ErrUnknownStatus is returned when a configured status name does not
	// map onto a known Status.
	ErrUnknownStatus = errors.New("monitor: unknown status name")

	// ErrSiteNotFound is returned when a site has no row in the messages
	// table.
	ErrSiteNotFound = errors.New("monitor: site not found")

	// ErrNoSites is returned when the scheduler is started with an empty
	// site roster.
	ErrNoSites = errors.New("monitor: no sites to monitor")
)
