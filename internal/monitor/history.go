package monitor

import "time"

// HistoryEntry is one persisted check outcome.
type HistoryEntry struct {
	Status    Status
	CheckedAt time.Time
}

// Counter tallies day-level statuses inside one summary window. A day
// counts once, by its latest check.
type Counter struct {
	Up          int
	PartiallyUp int
	Down        int
	Unknown     int
}

func (c *Counter) add(status Status) {
	switch status {
	case StatusUp:
		c.Up++
	case StatusPartiallyUp:
		c.PartiallyUp++
	case StatusDown:
		c.Down++
	default:
		c.Unknown++
	}
}

// Total returns the number of days counted in the window.
func (c Counter) Total() int {
	return c.Up + c.PartiallyUp + c.Down + c.Unknown
}

// UpPercent returns the share of counted days that were fully up, or zero
// for an empty window.
func (c Counter) UpPercent() float64 {
	total := c.Total()
	if total == 0 {
		return 0
	}
	return float64(c.Up) / float64(total) * 100
}

// Window pairs a summary window name with its counter.
type Window struct {
	Name    string
	Counter Counter
}

// Summary holds the uptime counters for the four reporting windows.
type Summary struct {
	Day   Counter
	Week  Counter
	Month Counter
	Year  Counter
}

// Windows lists the counters in day, week, month, year order.
func (s Summary) Windows() []Window {
	return []Window{
		{"day", s.Day},
		{"week", s.Week},
		{"month", s.Month},
		{"year", s.Year},
	}
}

// Summarize buckets the latest check of each day into the four summary
// windows relative to now. Cutoffs sit one day, seven days, thirty days
// and 365 days back, compared at date granularity, so the day window
// spans yesterday and today.
func Summarize(entries []HistoryEntry, now time.Time) Summary {
	latest := latestPerDay(entries)
	cutoffs := Summary{}
	dayCut := dateOnly(now.AddDate(0, 0, -1))
	weekCut := dateOnly(now.AddDate(0, 0, -7))
	monthCut := dateOnly(now.AddDate(0, 0, -30))
	yearCut := dateOnly(now.AddDate(0, 0, -365))

	for day, entry := range latest {
		if !day.Before(dayCut) {
			cutoffs.Day.add(entry.Status)
		}
		if !day.Before(weekCut) {
			cutoffs.Week.add(entry.Status)
		}
		if !day.Before(monthCut) {
			cutoffs.Month.add(entry.Status)
		}
		if !day.Before(yearCut) {
			cutoffs.Year.add(entry.Status)
		}
	}
	return cutoffs
}

// latestPerDay keeps the entry with the greatest timestamp for each
// calendar day. Ties keep the later entry in slice order.
func latestPerDay(entries []HistoryEntry) map[time.Time]HistoryEntry {
	latest := make(map[time.Time]HistoryEntry)
	for _, entry := range entries {
		day := dateOnly(entry.CheckedAt)
		current, ok := latest[day]
		if !ok || !entry.CheckedAt.Before(current.CheckedAt) {
			latest[day] = entry
		}
	}
	return latest
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
