package database

import (
	"encoding/base64"
	"strings"
)

// Pattern sets for the heuristic screen. Keyword matching is deliberately
// case-sensitive: identifiers in this codebase are lower case, SQL verbs in
// a smuggled fragment are conventionally upper case.
var (
	guardSymbols  = []string{";", "--", "/*", "*/"}
	guardCommands = []string{
		"SELECT", "INSERT", "UPDATE", "DELETE",
		"DROP", "CREATE", "ALTER", "TABLE", "UNION", "JOIN", "WHERE",
	}
	guardLogicGates = []string{"OR", "AND", "NOT"}
)

// Guard is a conservative, non-parsing injection screen for identifiers and
// predicate text that must be spliced into SQL. It never sees bound
// parameter values; those are protected by binding, and the Guard exists as
// a second layer in front of the text that binding cannot cover.
//
// Every predicate accepts a single string or an arbitrarily nested
// collection ([]string, []any) and recurses. Numeric, bool and nil leaves
// are never dangerous; a leaf of any other type fails closed.
type Guard struct{}

// HasSymbolPattern reports whether input contains a statement separator or
// comment marker (";", "--", "/*", "*/").
//
// A string containing ";base64" is routed to a whole-string base64 validity
// test instead of the symbol scan, so data-URI style payloads
// ("...;base64,AAAA") pass the screen.
func (Guard) HasSymbolPattern(input any) bool {
	return guardScan(input, containsGuardSymbol)
}

// HasCommandKeyword reports whether input contains one of the DML/DDL verbs
// (SELECT, INSERT, UPDATE, DELETE, DROP, CREATE, ALTER, TABLE, UNION, JOIN,
// WHERE) as a case-sensitive substring.
func (Guard) HasCommandKeyword(input any) bool {
	return guardScan(input, containsGuardCommand)
}

// HasLogicOperator reports whether input contains OR, AND or NOT.
func (Guard) HasLogicOperator(input any) bool {
	return guardScan(input, containsGuardLogic)
}

// HasSymbolOrCommand combines the symbol and command screens.
func (g Guard) HasSymbolOrCommand(input any) bool {
	return g.HasSymbolPattern(input) || g.HasCommandKeyword(input)
}

// HasSymbolOrLogic combines the symbol and logic-operator screens.
func (g Guard) HasSymbolOrLogic(input any) bool {
	return g.HasSymbolPattern(input) || g.HasLogicOperator(input)
}

// HasCommandOrLogic combines the command and logic-operator screens.
func (g Guard) HasCommandOrLogic(input any) bool {
	return g.HasCommandKeyword(input) || g.HasLogicOperator(input)
}

// IsInjection runs all three screens and reports whether any of them
// considers input dangerous.
func (Guard) IsInjection(input any) bool {
	return guardScan(input, func(s string) bool {
		return containsGuardSymbol(s) || containsGuardCommand(s) || containsGuardLogic(s)
	})
}

// ScanCollection screens a mixed bag of identifiers: it walks arbitrarily
// nested collections and applies the combined screen to every string leaf.
// Non-string, non-numeric leaves are treated as dangerous.
func (g Guard) ScanCollection(input any) bool {
	return g.IsInjection(input)
}

// guardScan walks input, applying match to every string leaf.
func guardScan(input any, match func(string) bool) bool {
	switch v := input.(type) {
	case nil:
		return false
	case string:
		return match(v)
	case []string:
		for _, s := range v {
			if match(s) {
				return true
			}
		}
		return false
	case []any:
		for _, item := range v {
			if guardScan(item, match) {
				return true
			}
		}
		return false
	case bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return false
	default:
		// Unknown leaf type, fail closed.
		return true
	}
}

func containsGuardSymbol(s string) bool {
	if strings.Contains(s, ";base64") {
		return isBase64(s)
	}
	for _, sym := range guardSymbols {
		if strings.Contains(s, sym) {
			return true
		}
	}
	return false
}

func containsGuardCommand(s string) bool {
	for _, kw := range guardCommands {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func containsGuardLogic(s string) bool {
	for _, op := range guardLogicGates {
		if strings.Contains(s, op) {
			return true
		}
	}
	return false
}

// isBase64 reports whether s decodes as canonical base64.
func isBase64(s string) bool {
	_, err := base64.StdEncoding.DecodeString(s)
	return err == nil
}
