package database

import (
	"fmt"
	"strings"
	"time"
)

// Literal layouts for the resolved time markers. UTC, matching the text
// shape SQLite's CURRENT_TIMESTAMP stores.
const (
	TimestampLayout = "2006-01-02 15:04:05"
	DateLayout      = "2006-01-02"
)

// CellKind discriminates the variants of a Cell.
type CellKind int

// Cell variants.
const (
	CellNull CellKind = iota
	CellString
	CellInt
	CellFloat
	CellTimestamp
	CellDate
)

// Cell is the tagged union of scalar values this layer binds into a
// statement: string, integer, float, null, or one of the two time markers.
// The marker variants resolve to formatted clock values when the statement
// is bound, never as engine-side expressions.
type Cell struct {
	Kind  CellKind
	Str   string
	Int   int64
	Float float64
}

// NormalizeCell maps a raw caller value onto a Cell.
//
// nil becomes the null variant and numeric types keep their value. The
// case-insensitive tokens "now"/"now()" and "current_date"/"current_date()"
// become the timestamp and date markers. Anything else is carried as its
// string form.
func NormalizeCell(v any) Cell {
	switch val := v.(type) {
	case nil:
		return Cell{Kind: CellNull}
	case Cell:
		return val
	case string:
		switch strings.ToLower(val) {
		case "now", "now()":
			return Cell{Kind: CellTimestamp}
		case "current_date", "current_date()":
			return Cell{Kind: CellDate}
		}
		return Cell{Kind: CellString, Str: val}
	case []byte:
		return NormalizeCell(string(val))
	case bool:
		if val {
			return Cell{Kind: CellInt, Int: 1}
		}
		return Cell{Kind: CellInt, Int: 0}
	case int:
		return Cell{Kind: CellInt, Int: int64(val)}
	case int8:
		return Cell{Kind: CellInt, Int: int64(val)}
	case int16:
		return Cell{Kind: CellInt, Int: int64(val)}
	case int32:
		return Cell{Kind: CellInt, Int: int64(val)}
	case int64:
		return Cell{Kind: CellInt, Int: val}
	case uint:
		return Cell{Kind: CellInt, Int: int64(val)}
	case uint8:
		return Cell{Kind: CellInt, Int: int64(val)}
	case uint16:
		return Cell{Kind: CellInt, Int: int64(val)}
	case uint32:
		return Cell{Kind: CellInt, Int: int64(val)}
	case uint64:
		return Cell{Kind: CellInt, Int: int64(val)} //nolint:gosec // values above MaxInt64 are not produced by this layer's callers
	case float32:
		return Cell{Kind: CellFloat, Float: float64(val)}
	case float64:
		return Cell{Kind: CellFloat, Float: val}
	case time.Time:
		return Cell{Kind: CellString, Str: val.UTC().Format(TimestampLayout)}
	default:
		return Cell{Kind: CellString, Str: fmt.Sprint(val)}
	}
}

// Bind resolves the cell to the driver-level value, stamping marker
// variants with now.
func (c Cell) Bind(now time.Time) any {
	switch c.Kind {
	case CellNull:
		return nil
	case CellInt:
		return c.Int
	case CellFloat:
		return c.Float
	case CellTimestamp:
		return now.Format(TimestampLayout)
	case CellDate:
		return now.Format(DateLayout)
	default:
		return c.Str
	}
}

// bindAll normalizes and resolves a row of raw values in one pass, sharing
// a single clock reading so markers within one statement agree.
func bindAll(values []any, now time.Time) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = NormalizeCell(v).Bind(now)
	}
	return args
}
