package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/sitewatch/internal/infrastructure/database"
	"github.com/nerrad567/sitewatch/internal/infrastructure/logging"
)

const (
	messagesTable      = "messages"
	deadChecksTable    = "dead_checks"
	statusHistoryTable = "status_history"
	touchTriggerName   = "messages_touch_updated_at"
)

// touchTriggerBody refreshes updated_at whenever a roster row changes.
const touchTriggerBody = "AFTER UPDATE ON messages FOR EACH ROW " +
	"BEGIN UPDATE messages SET updated_at = CURRENT_TIMESTAMP WHERE id = NEW.id; END"

var schemaTables = []struct {
	name    string
	columns []database.ColumnDef
}{
	{messagesTable, []database.ColumnDef{
		{Name: "id", Type: "INTEGER PRIMARY KEY AUTOINCREMENT"},
		{Name: "name", Type: "TEXT NOT NULL UNIQUE"},
		{Name: "message_id", Type: "TEXT"},
		{Name: "url", Type: "TEXT NOT NULL"},
		{Name: "channel", Type: "TEXT"},
		{Name: "expected_content", Type: "TEXT"},
		{Name: "expected_status", Type: "INTEGER NOT NULL DEFAULT 200"},
		{Name: "created_at", Type: "TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP"},
		{Name: "updated_at", Type: "TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP"},
	}},
	{deadChecksTable, []database.ColumnDef{
		{Name: "id", Type: "INTEGER PRIMARY KEY AUTOINCREMENT"},
		{Name: "message_id", Type: "INTEGER NOT NULL REFERENCES messages(id) ON DELETE CASCADE"},
		{Name: "keyword", Type: "TEXT NOT NULL"},
		{Name: "response", Type: "TEXT NOT NULL"},
	}},
	{statusHistoryTable, []database.ColumnDef{
		{Name: "id", Type: "INTEGER PRIMARY KEY AUTOINCREMENT"},
		{Name: "message_id", Type: "INTEGER NOT NULL REFERENCES messages(id) ON DELETE CASCADE"},
		{Name: "status", Type: "TEXT NOT NULL"},
		{Name: "checked_at", Type: "TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP"},
	}},
}

// The column slices are rebuilt per call because upsert quotes risky
// identifiers in place.
func messageColumns() []string {
	return []string{"name", "message_id", "url", "channel", "expected_content", "expected_status"}
}

func deadCheckColumns() []string {
	return []string{"message_id", "keyword", "response"}
}

// Repository persists the site roster, dead-check rules and check history
// through the database facade.
type Repository struct {
	store *database.Store
	log   *logging.Logger
}

// NewRepository binds a Repository to an open store.
func NewRepository(store *database.Store, log *logging.Logger) *Repository {
	return &Repository{
		store: store,
		log:   log.With("component", "repository"),
	}
}

// Bootstrap creates the monitor schema when absent: the site roster, its
// dead-check rules, the append-only check history, and the trigger that
// refreshes messages.updated_at. All DDL is idempotent, so calling this on
// every start is safe.
func (r *Repository) Bootstrap(ctx context.Context) error {
	for _, table := range schemaTables {
		if err := r.store.CreateTable(ctx, table.name, table.columns); err != nil {
			return fmt.Errorf("creating table %s: %w", table.name, err)
		}
	}
	if err := r.store.CreateTrigger(ctx, touchTriggerName, touchTriggerBody); err != nil {
		return fmt.Errorf("creating trigger %s: %w", touchTriggerName, err)
	}
	return nil
}

// SaveSites writes the configured roster into the messages table, keyed by
// site name, and replaces each site's dead-check rules wholesale. The
// stored message reference is cleared on every save; the notifier posts a
// fresh message and the new reference is stored back after publishing.
func (r *Repository) SaveSites(ctx context.Context, sites []Site) error {
	for _, site := range sites {
		row := database.Row{
			site.Name, nil, site.URL, site.Channel,
			site.ExpectedContent, site.ExpectedStatus,
		}
		if err := r.store.Upsert(ctx, messagesTable, []database.Row{row}, messageColumns()); err != nil {
			return fmt.Errorf("saving site %q: %w", site.Name, err)
		}
		id, err := r.SiteID(ctx, site.Name)
		if err != nil {
			return err
		}
		if err := r.replaceDeadChecks(ctx, id, site.DeadChecks); err != nil {
			return fmt.Errorf("saving dead checks for %q: %w", site.Name, err)
		}
	}
	return nil
}

func (r *Repository) replaceDeadChecks(ctx context.Context, siteID int64, rules []DeadCheck) error {
	err := r.store.Delete(ctx, deadChecksTable,
		[]string{fmt.Sprintf("message_id='%d'", siteID)})
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		return nil
	}
	rows := make([]database.Row, 0, len(rules))
	for _, rule := range rules {
		rows = append(rows, database.Row{siteID, rule.Keyword, string(rule.Response)})
	}
	return r.store.Insert(ctx, deadChecksTable, rows, deadCheckColumns())
}

// DeadChecks loads the persisted rules for a site, in insertion order.
func (r *Repository) DeadChecks(ctx context.Context, siteID int64) ([]DeadCheck, error) {
	rows, err := r.store.Rows(ctx, deadChecksTable,
		[]string{"keyword", "response"},
		[]string{fmt.Sprintf("message_id='%d'", siteID)})
	if err != nil {
		return nil, fmt.Errorf("loading dead checks: %w", err)
	}
	rules := make([]DeadCheck, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		keyword, _ := row[0].(string)
		response, _ := row[1].(string)
		rules = append(rules, DeadCheck{Keyword: keyword, Response: Status(response)})
	}
	return rules, nil
}

// SiteID returns the messages row id for a site name.
func (r *Repository) SiteID(ctx context.Context, name string) (int64, error) {
	rows, err := r.store.Rows(ctx, messagesTable, []string{"id"}, []string{"name=" + name})
	if err != nil {
		return 0, fmt.Errorf("looking up site %q: %w", name, err)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, fmt.Errorf("%w: %q", ErrSiteNotFound, name)
	}
	id, ok := rows[0][0].(int64)
	if !ok {
		return 0, fmt.Errorf("%w: %q has a malformed id", ErrSiteNotFound, name)
	}
	return id, nil
}

// RecordCheck appends one history row for a check outcome. The timestamp
// comes from the table's CURRENT_TIMESTAMP default, keeping history
// uniformly UTC regardless of host timezone.
func (r *Repository) RecordCheck(ctx context.Context, siteID int64, status Status) error {
	row := database.Row{siteID, string(status)}
	return r.store.Insert(ctx, statusHistoryTable, []database.Row{row},
		[]string{"message_id", "status"})
}

// History loads every persisted check for a site. Rows whose timestamp
// fails to parse are logged and skipped rather than failing the load.
func (r *Repository) History(ctx context.Context, siteID int64) ([]HistoryEntry, error) {
	rows, err := r.store.Rows(ctx, statusHistoryTable,
		[]string{"status", "checked_at"},
		[]string{fmt.Sprintf("message_id='%d'", siteID)})
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	entries := make([]HistoryEntry, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		stamp, _ := row[1].(string)
		at, err := time.ParseInLocation(database.TimestampLayout, stamp, time.UTC)
		if err != nil {
			r.log.Warn("skipping history row with bad timestamp", "value", stamp, "error", err)
			continue
		}
		status, _ := row[0].(string)
		entries = append(entries, HistoryEntry{Status: Status(status), CheckedAt: at})
	}
	return entries, nil
}

// LatestStatus returns the most recent recorded status for a site, with
// false when no history exists yet.
func (r *Repository) LatestStatus(ctx context.Context, siteID int64) (Status, bool, error) {
	entries, err := r.History(ctx, siteID)
	if err != nil {
		return "", false, err
	}
	if len(entries) == 0 {
		return "", false, nil
	}
	latest := entries[0]
	for _, entry := range entries[1:] {
		if !entry.CheckedAt.Before(latest.CheckedAt) {
			latest = entry
		}
	}
	return latest.Status, true, nil
}

// PruneHistory deletes history rows recorded before the cutoff.
func (r *Repository) PruneHistory(ctx context.Context, cutoff time.Time) error {
	fragment := fmt.Sprintf("checked_at < '%s'",
		cutoff.UTC().Format(database.TimestampLayout))
	return r.store.Delete(ctx, statusHistoryTable, []string{fragment})
}

// SetMessageRef stores the notifier's message reference for a site so the
// next publish can address the same message.
func (r *Repository) SetMessageRef(ctx context.Context, siteID int64, ref string) error {
	return r.store.Update(ctx, messagesTable,
		database.Row{ref}, []string{"message_id"},
		[]string{fmt.Sprintf("id='%d'", siteID)})
}

// MessageRef fetches the stored message reference, with false when the
// site has none recorded.
func (r *Repository) MessageRef(ctx context.Context, siteID int64) (string, bool, error) {
	rows, err := r.store.Rows(ctx, messagesTable, []string{"message_id"},
		[]string{fmt.Sprintf("id='%d'", siteID)})
	if err != nil {
		return "", false, fmt.Errorf("loading message reference: %w", err)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return "", false, nil
	}
	switch v := rows[0][0].(type) {
	case nil:
		return "", false, nil
	case string:
		if v == "" {
			return "", false, nil
		}
		return v, true, nil
	default:
		return fmt.Sprint(v), true, nil
	}
}
