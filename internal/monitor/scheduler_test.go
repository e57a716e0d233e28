package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nerrad567/sitewatch/internal/infrastructure/database"
)

type fakeNotifier struct {
	statuses    []string
	reports     []Message
	transitions []string
	ref         string
	reportErr   error
	reported    chan struct{}
}

func (f *fakeNotifier) PublishStatus(_ context.Context, site string, status Status) error {
	f.statuses = append(f.statuses, site+":"+string(status))
	return nil
}

func (f *fakeNotifier) PublishReport(_ context.Context, _ string, msg Message) (string, error) {
	f.reports = append(f.reports, msg)
	if f.reported != nil {
		f.reported <- struct{}{}
	}
	return f.ref, f.reportErr
}

func (f *fakeNotifier) PublishTransition(_ context.Context, site string, from, to Status) error {
	f.transitions = append(f.transitions, fmt.Sprintf("%s:%s>%s", site, from, to))
	return nil
}

type fakeMirror struct {
	checks  []string
	uptimes []string
}

func (f *fakeMirror) RecordCheck(site, _ string, status Status, httpStatus int, _ time.Duration) {
	f.checks = append(f.checks, fmt.Sprintf("%s:%s:%d", site, status, httpStatus))
}

func (f *fakeMirror) RecordUptime(site, window string, _ float64) {
	f.uptimes = append(f.uptimes, site+":"+window)
}

func schedulerSite(name, url string) Site {
	return Site{
		Name:            name,
		URL:             url,
		Channel:         "ops",
		ExpectedContent: "Welcome",
		ExpectedStatus:  http.StatusOK,
		Output:          "raw",
	}
}

func TestScheduler_RunOnce(t *testing.T) {
	repo, _ := testRepo(t)
	ctx := context.Background()

	srv := serveText(t, http.StatusOK, "Welcome to Alpha")
	site := schedulerSite("alpha", srv.URL)
	if err := repo.SaveSites(ctx, []Site{site}); err != nil {
		t.Fatalf("SaveSites() error = %v", err)
	}

	notifier := &fakeNotifier{ref: "msg-1"}
	mirror := &fakeMirror{}
	sched := NewScheduler(NewChecker(2*time.Second, testLogger()), repo, notifier, mirror,
		SchedulerOptions{Sites: []Site{site}, Interval: time.Hour}, testLogger())

	if err := sched.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	if len(notifier.statuses) != 1 || notifier.statuses[0] != "alpha:up_and_operational" {
		t.Errorf("statuses = %v, want one up announcement", notifier.statuses)
	}
	if len(notifier.transitions) != 0 {
		t.Errorf("transitions = %v, want none on the first observation", notifier.transitions)
	}
	if len(notifier.reports) != 1 {
		t.Fatalf("reports = %d, want 1", len(notifier.reports))
	}
	if notifier.reports[0].Status != StatusUp || notifier.reports[0].Body == "" {
		t.Errorf("report = %+v, want an up report with a body", notifier.reports[0])
	}

	id, err := repo.SiteID(ctx, "alpha")
	if err != nil {
		t.Fatalf("SiteID() error = %v", err)
	}
	entries, err := repo.History(ctx, id)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Status != StatusUp {
		t.Errorf("History() = %+v, want one up entry", entries)
	}

	ref, ok, err := repo.MessageRef(ctx, id)
	if err != nil {
		t.Fatalf("MessageRef() error = %v", err)
	}
	if !ok || ref != "msg-1" {
		t.Errorf("MessageRef() = %q, %v; want %q, true", ref, ok, "msg-1")
	}

	if len(mirror.checks) != 1 || mirror.checks[0] != "alpha:up_and_operational:200" {
		t.Errorf("mirror checks = %v, want one up record", mirror.checks)
	}
	wantUptimes := []string{"alpha:day", "alpha:week", "alpha:month", "alpha:year"}
	if len(mirror.uptimes) != len(wantUptimes) {
		t.Fatalf("mirror uptimes = %v, want %v", mirror.uptimes, wantUptimes)
	}
	for i, want := range wantUptimes {
		if mirror.uptimes[i] != want {
			t.Errorf("mirror uptimes[%d] = %q, want %q", i, mirror.uptimes[i], want)
		}
	}
}

func TestScheduler_RunOnce_EmitsTransition(t *testing.T) {
	repo, _ := testRepo(t)
	ctx := context.Background()

	var failing atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("Welcome to Alpha"))
	}))
	t.Cleanup(srv.Close)

	site := schedulerSite("alpha", srv.URL)
	if err := repo.SaveSites(ctx, []Site{site}); err != nil {
		t.Fatalf("SaveSites() error = %v", err)
	}

	notifier := &fakeNotifier{}
	sched := NewScheduler(NewChecker(2*time.Second, testLogger()), repo, notifier, nil,
		SchedulerOptions{Sites: []Site{site}, Interval: time.Hour}, testLogger())

	if err := sched.RunOnce(ctx); err != nil {
		t.Fatalf("first RunOnce() error = %v", err)
	}
	failing.Store(true)
	if err := sched.RunOnce(ctx); err != nil {
		t.Fatalf("second RunOnce() error = %v", err)
	}

	want := []string{"alpha:up_and_operational>down"}
	if len(notifier.transitions) != 1 || notifier.transitions[0] != want[0] {
		t.Errorf("transitions = %v, want %v", notifier.transitions, want)
	}
	if len(notifier.statuses) != 2 {
		t.Errorf("statuses = %v, want two announcements", notifier.statuses)
	}

	// A third cycle with no change stays quiet.
	if err := sched.RunOnce(ctx); err != nil {
		t.Fatalf("third RunOnce() error = %v", err)
	}
	if len(notifier.transitions) != 1 {
		t.Errorf("transitions = %v, want no new event for a steady status", notifier.transitions)
	}
}

func TestScheduler_RunOnce_SeesStatusFromBeforeRestart(t *testing.T) {
	repo, _ := testRepo(t)
	ctx := context.Background()

	srv := serveText(t, http.StatusOK, "Welcome to Alpha")
	site := schedulerSite("alpha", srv.URL)
	if err := repo.SaveSites(ctx, []Site{site}); err != nil {
		t.Fatalf("SaveSites() error = %v", err)
	}
	id, err := repo.SiteID(ctx, "alpha")
	if err != nil {
		t.Fatalf("SiteID() error = %v", err)
	}
	if err := repo.RecordCheck(ctx, id, StatusDown); err != nil {
		t.Fatalf("RecordCheck() error = %v", err)
	}

	notifier := &fakeNotifier{}
	sched := NewScheduler(NewChecker(2*time.Second, testLogger()), repo, notifier, nil,
		SchedulerOptions{Sites: []Site{site}, Interval: time.Hour}, testLogger())

	if err := sched.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	want := "alpha:down>up_and_operational"
	if len(notifier.transitions) != 1 || notifier.transitions[0] != want {
		t.Errorf("transitions = %v, want %q", notifier.transitions, want)
	}
}

func TestScheduler_RunOnce_SkipsUnknownSite(t *testing.T) {
	repo, _ := testRepo(t)
	ctx := context.Background()

	srv := serveText(t, http.StatusOK, "Welcome")
	ghost := schedulerSite("ghost", srv.URL)

	notifier := &fakeNotifier{}
	sched := NewScheduler(NewChecker(2*time.Second, testLogger()), repo, notifier, nil,
		SchedulerOptions{Sites: []Site{ghost}, Interval: time.Hour}, testLogger())

	if err := sched.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if len(notifier.statuses) != 0 || len(notifier.reports) != 0 {
		t.Errorf("statuses = %v, reports = %v; want none for an unsaved site",
			notifier.statuses, notifier.reports)
	}
}

func TestScheduler_RunOnce_PrunesOldHistory(t *testing.T) {
	repo, st := testRepo(t)
	ctx := context.Background()

	srv := serveText(t, http.StatusOK, "Welcome to Alpha")
	site := schedulerSite("alpha", srv.URL)
	if err := repo.SaveSites(ctx, []Site{site}); err != nil {
		t.Fatalf("SaveSites() error = %v", err)
	}
	id, err := repo.SiteID(ctx, "alpha")
	if err != nil {
		t.Fatalf("SiteID() error = %v", err)
	}

	old := []database.Row{{id, string(StatusDown), "2020-06-01 08:00:00"}}
	if err := st.Insert(ctx, statusHistoryTable, old,
		[]string{"message_id", "status", "checked_at"}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	sched := NewScheduler(NewChecker(2*time.Second, testLogger()), repo, &fakeNotifier{}, nil,
		SchedulerOptions{Sites: []Site{site}, Interval: time.Hour, Retention: 24 * time.Hour},
		testLogger())

	if err := sched.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	entries, err := repo.History(ctx, id)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Status != StatusUp {
		t.Errorf("History() after prune = %+v, want only the fresh check", entries)
	}
}

func TestScheduler_Run_EmptyRoster(t *testing.T) {
	repo, _ := testRepo(t)

	sched := NewScheduler(NewChecker(time.Second, testLogger()), repo, &fakeNotifier{}, nil,
		SchedulerOptions{}, testLogger())

	if err := sched.Run(context.Background()); !errors.Is(err, ErrNoSites) {
		t.Errorf("Run() error = %v, want ErrNoSites", err)
	}
}

func TestScheduler_RunAndRefresh(t *testing.T) {
	repo, _ := testRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := serveText(t, http.StatusOK, "Welcome to Alpha")
	site := schedulerSite("alpha", srv.URL)
	if err := repo.SaveSites(ctx, []Site{site}); err != nil {
		t.Fatalf("SaveSites() error = %v", err)
	}

	notifier := &fakeNotifier{reported: make(chan struct{}, 8)}
	sched := NewScheduler(NewChecker(2*time.Second, testLogger()), repo, notifier, nil,
		SchedulerOptions{Sites: []Site{site}, Interval: time.Hour}, testLogger())

	errCh := make(chan error, 1)
	go func() { errCh <- sched.Run(ctx) }()

	waitReport := func(phase string) {
		t.Helper()
		select {
		case <-notifier.reported:
		case <-time.After(5 * time.Second):
			t.Fatalf("no report published after %s", phase)
		}
	}

	// The first cycle runs immediately; the hour-long ticker never fires
	// inside this test, so the second cycle can only come from Refresh.
	waitReport("start")
	sched.Refresh()
	waitReport("refresh")

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not stop after cancellation")
	}

	if len(notifier.reports) < 2 {
		t.Errorf("reports = %d, want at least 2", len(notifier.reports))
	}
}
