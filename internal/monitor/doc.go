// Package monitor implements the website checking engine for Sitewatch.
//
// A Scheduler drives the loop: on every tick it probes the configured
// sites concurrently, persists each outcome through the Repository,
// renders an uptime report and hands the results to a Notifier for
// publishing. Status transitions between cycles raise dedicated events.
//
// Architecture:
//
//	┌─────────────────────────────────────────────────────────┐
//	│               Scheduler (scheduler.go)                   │
//	│  Ticker loop with on-demand refresh                      │
//	│                                                          │
//	│  ┌───────────┐   ┌────────────┐   ┌─────────────────┐  │
//	│  │  Checker  │──▶│ Repository │──▶│ Render (report) │  │
//	│  │(checker.go)│  │(repository │   │   (report.go)   │  │
//	│  └───────────┘   │    .go)    │   └─────────────────┘  │
//	│       │          └────────────┘           │             │
//	│       ▼                 │                 ▼             │
//	│   HTTP GET          SQLite store      Notifier/Mirror   │
//	└─────────────────────────────────────────────────────────┘
//
// # Key Types
//
//   - Site: One monitored website with its expectations and dead checks
//   - CheckResult: Outcome of a single probe (status, latency, HTTP code)
//   - Status: Three-state health (up, partially up, down)
//   - DeadCheck: Page keyword that overrides the inferred status
//   - Repository: Persistence for sites, dead checks and status history
//   - Summary: Uptime counters aggregated over day/week/month/year windows
//   - Scheduler: The periodic check loop, wired to a Notifier and Mirror
//
// # Status Classification
//
// A site is up when the response carries the expected HTTP status and
// the expected content, partially up when the status matches but the
// content is missing, and down otherwise. Dead-check keywords found in
// the page body override the inferred status, which catches hosts that
// serve a pretty error page with a 200.
//
// # Thread Safety
//
// Checker and Repository are safe for concurrent use. A Scheduler
// expects a single driving goroutine: Run and RunOnce must not be
// called concurrently, while Refresh may be called from anywhere.
package monitor
