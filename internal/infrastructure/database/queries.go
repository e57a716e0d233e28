package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ColumnDef declares one column for CreateTable: the name plus its raw
// declared type and constraints ("INTEGER PRIMARY KEY AUTOINCREMENT"). The
// name is screened and quoted; the type text is trusted caller DDL.
type ColumnDef struct {
	Name string
	Type string
}

// Column is one reshaped descriptor from the engine catalog. The name
// always leads, whatever the engine's native ordering.
type Column struct {
	Name       string
	Type       string
	NotNull    bool
	Default    any
	PrimaryKey bool
}

// Schema is the ordered column layout of a table.
type Schema []Column

// Names returns the column names in declaration order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, col := range s {
		names[i] = col.Name
	}
	return names
}

// quoteIdent wraps an identifier in single quotes with embedded quotes
// doubled, the quoting style every DDL statement here uses.
func quoteIdent(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// firstCells extracts the first cell of every row as a string.
func firstCells(rows []Row) []string {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		out = append(out, fmt.Sprint(row[0]))
	}
	return out
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

// ListTables returns the names of all user tables, excluding the engine's
// internal sqlite_% bookkeeping.
func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	rows, err := s.fetchAll(ctx, "list tables",
		"SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%';")
	if err != nil {
		return nil, err
	}
	return firstCells(rows), nil
}

// ListTriggers returns the names of all installed triggers.
func (s *Store) ListTriggers(ctx context.Context) ([]string, error) {
	rows, err := s.fetchAll(ctx, "list triggers",
		"SELECT name FROM sqlite_master WHERE type='trigger' AND name NOT LIKE 'sqlite_%';")
	if err != nil {
		return nil, err
	}
	return firstCells(rows), nil
}

// GetTrigger returns the stored DDL of the named trigger. The name travels
// as a bound parameter; an absent trigger is ErrNotFound.
func (s *Store) GetTrigger(ctx context.Context, name string) (string, error) {
	rows, err := s.fetchAll(ctx, "get trigger",
		"SELECT sql FROM sqlite_master WHERE type='trigger' AND name = ?;", name)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return "", fmt.Errorf("%w: trigger %q", ErrNotFound, name)
	}
	body, _ := rows[0][0].(string)
	return body, nil
}

// DescribeTable returns the table schema, reshaped from PRAGMA table_info
// so the column name is always the first field. An unknown table is
// ErrNotFound.
func (s *Store) DescribeTable(ctx context.Context, table string) (Schema, error) {
	if s.guard.IsInjection(table) {
		return nil, fmt.Errorf("%w: table %q", ErrInjectionDetected, table)
	}
	rows, err := s.fetchAll(ctx, "describe table",
		fmt.Sprintf("PRAGMA table_info('%s');", table))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: table %q", ErrNotFound, table)
	}
	schema := make(Schema, 0, len(rows))
	for _, row := range rows {
		// table_info rows: cid, name, type, notnull, dflt_value, pk
		if len(row) < 6 {
			continue
		}
		schema = append(schema, Column{
			Name:       fmt.Sprint(row[1]),
			Type:       fmt.Sprint(row[2]),
			NotNull:    asInt64(row[3]) != 0,
			Default:    row[4],
			PrimaryKey: asInt64(row[5]) != 0,
		})
	}
	return schema, nil
}

// columnNames resolves the declared column names of a table, used whenever
// a caller leaves the column list empty.
func (s *Store) columnNames(ctx context.Context, table string) ([]string, error) {
	schema, err := s.DescribeTable(ctx, table)
	if err != nil {
		return nil, err
	}
	return schema.Names(), nil
}

// resolveColumns returns the caller's column list or, when empty, the
// introspected declaration order.
func (s *Store) resolveColumns(ctx context.Context, table string, columns []string) ([]string, error) {
	if len(columns) > 0 {
		return columns, nil
	}
	return s.columnNames(ctx, table)
}

// whereClause runs predicate fragments through predicate-mode sanitisation
// and joins them with AND.
func (s *Store) whereClause(where []string) string {
	if len(where) == 0 {
		return ""
	}
	return strings.Join(s.sanitize.QuoteRiskyPredicates(where), " AND ")
}

// CreateTable creates a table with the given column definitions, using IF
// NOT EXISTS so repeated creation is idempotent and does not alter an
// existing schema.
func (s *Store) CreateTable(ctx context.Context, table string, columns []ColumnDef) error {
	if s.guard.ScanCollection([]any{table}) {
		return fmt.Errorf("%w: table %q", ErrInjectionDetected, table)
	}
	if len(columns) == 0 {
		return fmt.Errorf("%w: no column definitions", ErrEmptyInput)
	}
	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = fmt.Sprintf("%s %s", quoteIdent(col.Name), col.Type)
	}
	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s);",
		quoteIdent(table), strings.Join(defs, ", "))
	return s.execCommit(ctx, "create table", query)
}

// DropTable removes a table if it exists. Dropping an absent table
// succeeds.
func (s *Store) DropTable(ctx context.Context, table string) error {
	if s.guard.ScanCollection([]any{table}) {
		return fmt.Errorf("%w: table %q", ErrInjectionDetected, table)
	}
	return s.execCommit(ctx, "drop table",
		fmt.Sprintf("DROP TABLE IF EXISTS %s;", quoteIdent(table)))
}

// CreateTrigger installs a trigger under the given name. The body is the
// raw DDL following the name ("AFTER UPDATE ON t FOR EACH ROW BEGIN ...
// END"). Only the spliced name is screened; the body is caller-owned DDL
// and legitimately full of SQL keywords.
func (s *Store) CreateTrigger(ctx context.Context, name, body string) error {
	if s.guard.ScanCollection([]any{name}) {
		return fmt.Errorf("%w: trigger %q", ErrInjectionDetected, name)
	}
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("%w: empty trigger body", ErrEmptyInput)
	}
	query := fmt.Sprintf("CREATE TRIGGER IF NOT EXISTS %s %s;", quoteIdent(name), body)
	return s.execCommit(ctx, "create trigger", query)
}

// DropTrigger removes a trigger if present. A missing trigger is not an
// error.
func (s *Store) DropTrigger(ctx context.Context, name string) error {
	if s.guard.ScanCollection([]any{name}) {
		return fmt.Errorf("%w: trigger %q", ErrInjectionDetected, name)
	}
	return s.execCommit(ctx, "drop trigger",
		fmt.Sprintf("DROP TRIGGER IF EXISTS %s;", quoteIdent(name)))
}

// ReplaceTrigger reinstalls a trigger: drop whatever is there, then create
// the new definition.
func (s *Store) ReplaceTrigger(ctx context.Context, name, body string) error {
	if err := s.DropTrigger(ctx, name); err != nil {
		return err
	}
	return s.CreateTrigger(ctx, name, body)
}

// Insert appends rows to a table as one multi-row statement with every
// value bound as a parameter. When columns is empty the declared column
// list is used. Rows longer than the column list are truncated to it; a
// shorter row is refused.
func (s *Store) Insert(ctx context.Context, table string, rows []Row, columns []string) error {
	if err := s.usable(); err != nil {
		return err
	}
	if s.guard.ScanCollection([]any{table, columns}) {
		return fmt.Errorf("%w: insert into %q", ErrInjectionDetected, table)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: no rows to insert", ErrEmptyInput)
	}
	var err error
	if columns, err = s.resolveColumns(ctx, table, columns); err != nil {
		return err
	}
	columns = s.sanitize.QuoteRiskyIdentifiers(columns)

	now := s.now()
	group := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"
	groups := make([]string, 0, len(rows))
	args := make([]any, 0, len(rows)*len(columns))
	for _, row := range rows {
		if len(row) < len(columns) {
			return fmt.Errorf("%w: row has %d cells, want %d",
				ErrEmptyInput, len(row), len(columns))
		}
		groups = append(groups, group)
		args = append(args, bindAll(row[:len(columns)], now)...)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s;",
		table, strings.Join(columns, ", "), strings.Join(groups, ", "))
	return s.execCommit(ctx, "insert", query, args...)
}

// Rows fetches raw positional rows. Columns must be named explicitly ("*"
// is legal); predicate fragments are joined with AND after risky-name
// quoting and value protection. An empty result is an empty slice, not an
// error.
func (s *Store) Rows(ctx context.Context, table string, columns []string, where []string) ([]Row, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}
	if s.guard.ScanCollection([]any{table, columns}) || s.guard.HasSymbolOrCommand(where) {
		return nil, fmt.Errorf("%w: select from %q", ErrInjectionDetected, table)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: no columns selected", ErrEmptyInput)
	}
	columns = s.sanitize.QuoteRiskyIdentifiers(columns)
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(columns, ", "), table)
	if clause := s.whereClause(where); clause != "" {
		query += " WHERE " + clause
	}
	return s.fetchAll(ctx, "select", query+";")
}

// Records fetches rows reshaped into name-keyed maps using the table's
// declared column order. Unlike Rows, an empty result set is an error, an
// asymmetry carried by ReshapeRows. Selecting fewer columns than the table
// declares reshapes best effort with a warning per row.
func (s *Store) Records(ctx context.Context, table string, columns []string, where []string) ([]Record, error) {
	rows, err := s.Rows(ctx, table, columns, where)
	if err != nil {
		return nil, err
	}
	schema, err := s.DescribeTable(ctx, table)
	if err != nil {
		return nil, err
	}
	return s.sanitize.ReshapeRows(schema.Names(), rows)
}

// Count returns the number of rows matching the predicate. The column
// argument is spliced into COUNT() after screening; "*" counts rows.
func (s *Store) Count(ctx context.Context, table, column string, where []string) (int64, error) {
	if err := s.usable(); err != nil {
		return 0, err
	}
	if s.guard.ScanCollection([]any{table, column}) || s.guard.HasSymbolOrCommand(where) {
		return 0, fmt.Errorf("%w: count on %q", ErrInjectionDetected, table)
	}
	if column == "" {
		return 0, fmt.Errorf("%w: no count column", ErrEmptyInput)
	}
	query := fmt.Sprintf("SELECT COUNT(%s) FROM %s", column, table)
	if clause := s.whereClause(where); clause != "" {
		query += " WHERE " + clause
	}
	rows, err := s.fetchAll(ctx, "count", query+";")
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, fmt.Errorf("%w: count returned no rows", ErrEmptyInput)
	}
	return asInt64(rows[0][0]), nil
}

// Update rewrites columns of the rows matching the predicate. Values bind
// as parameters in column order; when columns is empty the declared list is
// used. An empty predicate updates every row.
func (s *Store) Update(ctx context.Context, table string, values Row, columns []string, where []string) error {
	if err := s.usable(); err != nil {
		return err
	}
	if s.guard.ScanCollection([]any{table, columns}) || s.guard.HasSymbolOrCommand(where) {
		return fmt.Errorf("%w: update on %q", ErrInjectionDetected, table)
	}
	var err error
	if columns, err = s.resolveColumns(ctx, table, columns); err != nil {
		return err
	}
	columns = s.sanitize.QuoteRiskyIdentifiers(columns)
	if len(values) < len(columns) {
		return fmt.Errorf("%w: %d values for %d columns",
			ErrEmptyInput, len(values), len(columns))
	}
	assignments := make([]string, len(columns))
	for i, col := range columns {
		assignments[i] = col + " = ?"
	}
	query := fmt.Sprintf("UPDATE %s SET %s", table, strings.Join(assignments, ", "))
	if clause := s.whereClause(where); clause != "" {
		query += " WHERE " + clause
	}
	return s.execCommit(ctx, "update", query+";", bindAll(values[:len(columns)], s.now())...)
}

// Delete removes the rows matching the predicate, or every row when it is
// empty. Fragments join with AND verbatim; unlike Rows and Update no value
// protection is applied, so callers quote their own literals.
func (s *Store) Delete(ctx context.Context, table string, where []string) error {
	if s.guard.IsInjection(table) || s.guard.HasSymbolOrCommand(where) {
		return fmt.Errorf("%w: delete from %q", ErrInjectionDetected, table)
	}
	query := fmt.Sprintf("DELETE FROM %s", table)
	if clause := strings.Join(where, " AND "); clause != "" {
		query += " WHERE " + clause
	}
	return s.execCommit(ctx, "delete", query+";")
}

// Upsert inserts rows whose identity key is new and updates rows whose key
// matches an existing row. The first column of the resolved column list is
// the identity key by convention; callers order columns accordingly, and
// keys compare by their string form.
//
// The current table contents are fetched once up front. A batch builds a
// lookup keyed by the stringified identity cell of each existing row; a
// single row scans the fetched rows linearly instead. Every insert and
// update commits on its own, so a failure mid-batch leaves the earlier rows
// applied; the returned error joins the per-row failures.
func (s *Store) Upsert(ctx context.Context, table string, rows []Row, columns []string) error {
	if err := s.usable(); err != nil {
		return err
	}
	if s.guard.ScanCollection([]any{table, columns}) {
		return fmt.Errorf("%w: upsert into %q", ErrInjectionDetected, table)
	}
	var err error
	if columns, err = s.resolveColumns(ctx, table, columns); err != nil {
		return err
	}

	existing, err := s.Rows(ctx, table, columns, nil)
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		s.log.Warn("empty upsert batch", "table", table)
		return nil
	}

	if len(rows) == 1 {
		row := rows[0]
		if len(row) == 0 {
			s.log.Warn("skipping empty upsert row", "table", table)
			return nil
		}
		key := fmt.Sprint(row[0])
		for _, current := range existing {
			if len(current) > 0 && fmt.Sprint(current[0]) == key {
				return s.Update(ctx, table, row, columns,
					[]string{fmt.Sprintf("%s=%s", columns[0], key)})
			}
		}
		return s.Insert(ctx, table, []Row{row}, columns)
	}

	byKey := make(map[string]Row, len(existing))
	for _, current := range existing {
		if len(current) > 0 {
			byKey[fmt.Sprint(current[0])] = current
		}
	}
	var errs []error
	for _, row := range rows {
		if len(row) == 0 {
			s.log.Warn("skipping empty upsert row", "table", table)
			continue
		}
		key := fmt.Sprint(row[0])
		if _, ok := byKey[key]; ok {
			if err := s.Update(ctx, table, row, columns,
				[]string{fmt.Sprintf("%s=%s", columns[0], key)}); err != nil {
				errs = append(errs, fmt.Errorf("updating key %q: %w", key, err))
			}
		} else {
			if err := s.Insert(ctx, table, []Row{row}, columns); err != nil {
				errs = append(errs, fmt.Errorf("inserting key %q: %w", key, err))
			}
		}
	}
	return errors.Join(errs...)
}
