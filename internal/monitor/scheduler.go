package monitor

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/sitewatch/internal/infrastructure/logging"
)

// Notifier publishes check outcomes to the messaging transport.
type Notifier interface {
	// PublishStatus announces the bare status of a single site.
	PublishStatus(ctx context.Context, site string, status Status) error

	// PublishReport delivers a rendered report and returns the
	// transport's reference for the posted message, when it has one.
	PublishReport(ctx context.Context, site string, msg Message) (string, error)

	// PublishTransition announces a status change since the previous check.
	PublishTransition(ctx context.Context, site string, from, to Status) error
}

// Mirror receives a copy of every check outcome for time-series storage.
// Implementations must not block the check cycle.
type Mirror interface {
	RecordCheck(site, channel string, status Status, httpStatus int, latency time.Duration)
	RecordUptime(site, window string, percent float64)
}

// SchedulerOptions carries the site roster and loop tuning for a Scheduler.
type SchedulerOptions struct {
	// Sites is the roster to check each cycle. Must not be empty.
	Sites []Site

	// Interval is the delay between check cycles. Defaults to one minute.
	Interval time.Duration

	// Retention bounds how far back status history is kept. Zero keeps
	// history forever.
	Retention time.Duration
}

// Scheduler drives the periodic check cycle: probe every site
// concurrently, persist the outcomes, publish reports and emit
// transition events when a status changes between cycles.
//
// A Scheduler expects a single driving goroutine. Run and RunOnce must
// not be called concurrently with each other.
type Scheduler struct {
	checker  *Checker
	repo     *Repository
	notifier Notifier
	mirror   Mirror
	log      *logging.Logger

	sites     []Site
	interval  time.Duration
	retention time.Duration

	refresh chan struct{}
	now     func() time.Time

	siteIDs    map[string]int64
	lastStatus map[string]Status
}

// NewScheduler wires a Scheduler from its collaborators. The mirror may
// be nil when no time-series store is configured.
func NewScheduler(checker *Checker, repo *Repository, notifier Notifier, mirror Mirror, opts SchedulerOptions, log *logging.Logger) *Scheduler {
	interval := opts.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		checker:    checker,
		repo:       repo,
		notifier:   notifier,
		mirror:     mirror,
		log:        log.With("component", "scheduler"),
		sites:      opts.Sites,
		interval:   interval,
		retention:  opts.Retention,
		refresh:    make(chan struct{}, 1),
		now:        time.Now,
		siteIDs:    make(map[string]int64),
		lastStatus: make(map[string]Status),
	}
}

// Refresh requests an immediate check cycle. The request is dropped when
// one is already queued.
func (s *Scheduler) Refresh() {
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

// Run executes one cycle immediately, then repeats on the configured
// interval until the context is cancelled. Refresh requests trigger an
// extra cycle between ticks. Returns ErrNoSites when the roster is empty.
func (s *Scheduler) Run(ctx context.Context) error {
	if len(s.sites) == 0 {
		return ErrNoSites
	}

	s.log.Info("scheduler started",
		"sites", len(s.sites),
		"interval", s.interval.String(),
	)

	if err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
		s.log.Error("check cycle failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return nil
		case <-ticker.C:
		case <-s.refresh:
			s.log.Info("refresh requested, running early cycle")
		}

		if err := s.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				s.log.Info("scheduler stopped")
				return nil
			}
			s.log.Error("check cycle failed", "error", err)
		}
	}
}

// RunOnce performs a single check cycle across the whole roster. Sites
// whose persistence or publishing fails are logged and picked up again
// on the next cycle rather than aborting the run.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	started := s.now()
	results := make([]CheckResult, len(s.sites))

	g, gctx := errgroup.WithContext(ctx)
	for i, site := range s.sites {
		g.Go(func() error {
			results[i] = s.checker.Check(gctx, site)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, site := range s.sites {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.publish(ctx, site, results[i])
	}

	if s.retention > 0 {
		cutoff := s.now().Add(-s.retention)
		if err := s.repo.PruneHistory(ctx, cutoff); err != nil {
			s.log.Warn("pruning history failed", "error", err)
		}
	}

	s.log.Debug("check cycle complete",
		"sites", len(s.sites),
		"elapsed", time.Since(started).String(),
	)
	return nil
}

// publish persists one check outcome and pushes it to the notifier and
// mirror. Failures are logged; the site is retried on the next cycle.
func (s *Scheduler) publish(ctx context.Context, site Site, result CheckResult) {
	id, err := s.siteID(ctx, site.Name)
	if err != nil {
		s.log.Error("site lookup failed, skipping", "site", site.Name, "error", err)
		return
	}

	// The previous status must be read before the new check is recorded.
	prev, known, err := s.previousStatus(ctx, site.Name, id)
	if err != nil {
		s.log.Warn("previous status unavailable", "site", site.Name, "error", err)
	}

	if err := s.repo.RecordCheck(ctx, id, result.Status); err != nil {
		s.log.Error("recording check failed, skipping", "site", site.Name, "error", err)
		return
	}
	s.lastStatus[site.Name] = result.Status

	if known && prev != result.Status {
		s.log.Info("site status changed",
			"site", site.Name,
			"from", string(prev),
			"to", string(result.Status),
		)
		if err := s.notifier.PublishTransition(ctx, site.Name, prev, result.Status); err != nil {
			s.log.Warn("publishing transition failed", "site", site.Name, "error", err)
		}
	}

	if err := s.notifier.PublishStatus(ctx, site.Name, result.Status); err != nil {
		s.log.Warn("publishing status failed", "site", site.Name, "error", err)
	}

	entries, err := s.repo.History(ctx, id)
	if err != nil {
		s.log.Warn("history unavailable, reporting without summary", "site", site.Name, "error", err)
	}
	summary := Summarize(entries, s.now().UTC())

	msg := Render(site.Output, site, result, summary, s.now())
	ref, err := s.notifier.PublishReport(ctx, site.Name, msg)
	switch {
	case err != nil:
		s.log.Warn("publishing report failed", "site", site.Name, "error", err)
	case ref != "":
		if err := s.repo.SetMessageRef(ctx, id, ref); err != nil {
			s.log.Warn("storing message reference failed", "site", site.Name, "error", err)
		}
	}

	if s.mirror != nil {
		s.mirror.RecordCheck(site.Name, site.Channel, result.Status, result.HTTPStatus, result.Latency)
		for _, w := range summary.Windows() {
			s.mirror.RecordUptime(site.Name, w.Name, w.Counter.UpPercent())
		}
	}
}

// previousStatus resolves the status recorded for the site before this
// cycle, consulting the in-memory map first and the database after a
// restart.
func (s *Scheduler) previousStatus(ctx context.Context, name string, id int64) (Status, bool, error) {
	if prev, ok := s.lastStatus[name]; ok {
		return prev, true, nil
	}
	return s.repo.LatestStatus(ctx, id)
}

// siteID resolves and caches the database row id for a site name.
func (s *Scheduler) siteID(ctx context.Context, name string) (int64, error) {
	if id, ok := s.siteIDs[name]; ok {
		return id, nil
	}
	id, err := s.repo.SiteID(ctx, name)
	if err != nil {
		return 0, err
	}
	s.siteIDs[name] = id
	return id, nil
}
