// Package database provides the single-writer SQLite data layer for Sitewatch.
//
// This package manages:
//   - One owned engine connection, serialised behind an exclusive lock
//   - Heuristic injection screening for identifiers and predicate text
//   - Identifier/value sanitisation and positional-to-named row reshaping
//   - Query boilerplate: introspection, idempotent DDL, parameterised DML,
//     and first-column-keyed upsert
//
// Security Considerations:
//   - Statement values are always bound as parameters, never concatenated;
//     the injection Guard screens only identifiers and predicate fragments
//     that must be spliced into SQL text
//   - The risky-identifier keyword set is configurable per Store
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Concurrency Model:
//   - Any number of goroutines may call a Store concurrently; every
//     engine-touching section holds the Store's mutex, so writers are
//     serialised at operation granularity
//   - Multi-row operations commit per statement; a batch upsert interrupted
//     mid-way leaves the already-committed rows committed
//
// Usage:
//
//	store, err := database.Open(ctx, database.Config{Path: "./data/sitewatch.db"}, log)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	err = store.CreateTable(ctx, "widgets", []database.ColumnDef{
//	    {Name: "id", Type: "INTEGER PRIMARY KEY AUTOINCREMENT"},
//	    {Name: "name", Type: "TEXT"},
//	})
//
// The schema itself belongs to the calling layer: tables and triggers are
// created through this API, not hard-coded here.
package database
