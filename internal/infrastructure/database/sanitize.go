package database

import (
	"fmt"
	"strings"

	"github.com/nerrad567/sitewatch/internal/infrastructure/logging"
)

// DefaultRiskyKeywords lists SQL reserved words that are nevertheless legal
// column names. Identifiers matching an entry (case-insensitive) are wrapped
// in backticks before being spliced into a statement. The set can be
// replaced per store through Config.RiskyKeywords.
var DefaultRiskyKeywords = []string{
	"add", "all", "alter", "and", "as", "asc", "between", "by", "case",
	"check", "column", "create", "database", "default", "delete", "desc",
	"distinct", "drop", "exists", "foreign", "from", "group", "having",
	"in", "index", "insert", "into", "is", "join", "key", "like", "limit",
	"not", "null", "or", "order", "primary", "references", "select", "set",
	"table", "to", "union", "unique", "update", "values", "where",
}

// logicGates are the boolean connectives a predicate may legitimately
// contain. In predicate mode they are exempt from quoting so that
// "status=down", "and", "name=store" stays a valid WHERE chain.
var logicGates = []string{"and", "or", "not"}

// Sanitizer rewrites identifier fragments so that reserved words survive
// being spliced into SQL text. It never rewrites bound values; its scope is
// the column-name and predicate text that placeholders cannot carry.
type Sanitizer struct {
	log   *logging.Logger
	risky map[string]struct{}
	gates map[string]struct{}
}

// NewSanitizer builds a Sanitizer around the given risky-keyword set.
// An empty set selects DefaultRiskyKeywords.
func NewSanitizer(riskyKeywords []string, log *logging.Logger) *Sanitizer {
	if len(riskyKeywords) == 0 {
		riskyKeywords = DefaultRiskyKeywords
	}
	s := &Sanitizer{
		log:   log,
		risky: make(map[string]struct{}, len(riskyKeywords)),
		gates: make(map[string]struct{}, len(logicGates)),
	}
	for _, kw := range riskyKeywords {
		s.risky[strings.ToLower(kw)] = struct{}{}
	}
	for _, gate := range logicGates {
		s.gates[gate] = struct{}{}
	}
	return s
}

func (s *Sanitizer) isRisky(word string) bool {
	_, ok := s.risky[strings.ToLower(word)]
	return ok
}

func (s *Sanitizer) isGate(word string) bool {
	_, ok := s.gates[strings.ToLower(word)]
	return ok
}

// QuoteRiskyIdentifiers backtick-quotes identifiers that collide with the
// risky-keyword set. Items of the form "key=value" have only the key half
// inspected; the value half passes through untouched. The slice is rewritten
// in place and returned.
func (s *Sanitizer) QuoteRiskyIdentifiers(items []string) []string {
	for i, item := range items {
		if key, value, found := strings.Cut(item, "="); found {
			if s.isRisky(key) {
				s.log.Warn("quoting risky column name", "column", key)
				items[i] = fmt.Sprintf("`%s`=%s", key, value)
			}
		} else if s.isRisky(item) {
			s.log.Warn("quoting risky column name", "column", item)
			items[i] = fmt.Sprintf("`%s`", item)
		}
	}
	return items
}

// QuoteRiskyPredicates prepares WHERE-clause fragments. Every "key=value"
// item has its value half single-quote protected, whether or not the key is
// risky; risky keys are additionally backtick-quoted unless they double as a
// logic gate. A bare item that is risky and not a gate is rewritten as a
// quoted literal. Logic gates and ordinary words pass through unchanged.
// The slice is rewritten in place and returned.
func (s *Sanitizer) QuoteRiskyPredicates(items []string) []string {
	for i, item := range items {
		if key, value, found := strings.Cut(item, "="); found {
			protected := s.ProtectValue(value)
			if !s.isGate(key) && s.isRisky(key) {
				s.log.Warn("quoting risky column name", "column", key)
				items[i] = fmt.Sprintf("`%s`=%s", key, protected)
			} else {
				items[i] = fmt.Sprintf("%s=%s", key, protected)
			}
		} else if !s.isGate(item) && s.isRisky(item) {
			s.log.Warn("quoting risky predicate term", "term", item)
			items[i] = s.ProtectValue(item)
		}
	}
	return items
}

// ProtectValue wraps a raw value for direct inclusion in SQL text.
//
// nil becomes the NULL literal and the empty string a pair of quotes. A
// value already wrapped in backticks is trusted as a quoted identifier and
// passes through. Otherwise one leading and one trailing single quote are
// stripped, interior quotes are doubled, and the result is re-wrapped in
// single quotes.
func (s *Sanitizer) ProtectValue(value any) string {
	if value == nil {
		return "NULL"
	}
	v, ok := value.(string)
	if !ok {
		v = fmt.Sprint(value)
	}
	if v == "" {
		return "''"
	}
	if strings.HasPrefix(v, "`") && strings.HasSuffix(v, "`") {
		return v
	}
	v = strings.TrimPrefix(v, "'")
	v = strings.TrimSuffix(v, "'")
	v = strings.ReplaceAll(v, "'", "''")
	return "'" + v + "'"
}

// ReshapeRows pairs raw result rows with their column names, producing one
// map per row. A row shorter than the column list yields a partial map and
// a logged warning; surplus cells beyond the column list are dropped.
// Empty column lists and empty result sets are both errors.
func (s *Sanitizer) ReshapeRows(columns []string, rows [][]any) ([]map[string]any, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: no column names", ErrEmptyInput)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrEmptyInput)
	}
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		if len(row) != len(columns) {
			s.log.Warn("row length does not match column count",
				"columns", len(columns), "cells", len(row))
		}
		m := make(map[string]any, len(columns))
		for i, name := range columns {
			if i == len(row) {
				break
			}
			m[name] = row[i]
		}
		out = append(out, m)
	}
	return out, nil
}
