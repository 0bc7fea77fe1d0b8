// Package laps models the dynamically-shaped lap tables returned by the
// telemetry provider. The set of columns varies by event and session type,
// so a table is an ordered column list plus rows of tagged cells rather than
// a fixed struct.
package laps

import (
	"fmt"
	"math"
)

// CellType tags the kind of value a column holds.
type CellType int

const (
	TypeNumber CellType = iota
	TypeString
	TypeDuration
	TypeBool
)

// ParseCellType maps a provider column type token to a CellType.
func ParseCellType(s string) (CellType, error) {
	switch s {
	case "number":
		return TypeNumber, nil
	case "string":
		return TypeString, nil
	case "duration":
		return TypeDuration, nil
	case "bool":
		return TypeBool, nil
	}
	return 0, fmt.Errorf("unknown column type %q", s)
}

// Cell is a single value in a lap table. A missing cell records the column
// type but no value, so "missing" stays distinguishable from falsy values
// like 0 or false.
type Cell struct {
	typ     CellType
	missing bool
	num     float64
	str     string
	boolean bool
}

// NumberCell returns a numeric cell.
func NumberCell(v float64) Cell {
	return Cell{typ: TypeNumber, num: v}
}

// StringCell returns a string cell.
func StringCell(v string) Cell {
	return Cell{typ: TypeString, str: v}
}

// DurationCell returns a duration cell holding total seconds.
func DurationCell(seconds float64) Cell {
	return Cell{typ: TypeDuration, num: seconds}
}

// BoolCell returns a boolean cell.
func BoolCell(v bool) Cell {
	return Cell{typ: TypeBool, boolean: v}
}

// MissingCell returns a cell with no value for a column of the given type.
func MissingCell(t CellType) Cell {
	return Cell{typ: t, missing: true}
}

// Missing reports whether the cell has no value.
func (c Cell) Missing() bool {
	return c.missing
}

// value renders the cell for a serialized record. Durations become rounded
// integer milliseconds; every missing cell becomes nil.
func (c Cell) value() any {
	if c.missing {
		return nil
	}
	switch c.typ {
	case TypeNumber:
		return c.num
	case TypeString:
		return c.str
	case TypeDuration:
		return int64(math.Round(c.num * 1000))
	case TypeBool:
		return c.boolean
	}
	return nil
}

// Column describes one table column.
type Column struct {
	Name string
	Type CellType
}

// DriverColumn is the column the per-driver filter matches against.
const DriverColumn = "Driver"

// RecordColumns is the fixed set of columns exposed in lap records.
// Columns outside this list are never serialized; columns in this list that
// the provider did not return for a given session are omitted, not nulled.
var RecordColumns = []string{
	"Driver",
	"LapNumber",
	"Stint",
	"Compound",
	"TyreLife",
	"LapTime",
	"Sector1Time",
	"Sector2Time",
	"Sector3Time",
	"SpeedI1",
	"SpeedI2",
	"SpeedFL",
	"SpeedST",
	"IsPersonalBest",
	"Deleted",
	"TrackStatus",
}

// Record is one serialized lap row.
type Record map[string]any

// Table is an immutable-once-built lap table.
type Table struct {
	cols []Column
	rows [][]Cell
}

// NewTable creates an empty table with the given columns.
func NewTable(cols []Column) *Table {
	return &Table{cols: cols}
}

// AppendRow adds a row to the table. The row must have one cell per column.
func (t *Table) AppendRow(cells []Cell) error {
	if len(cells) != len(t.cols) {
		return fmt.Errorf("row has %d cells, table has %d columns", len(cells), len(t.cols))
	}
	t.rows = append(t.rows, cells)
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Columns returns the table's column descriptors.
func (t *Table) Columns() []Column {
	return t.cols
}

// HasColumn reports whether the table has a column with the given name.
func (t *Table) HasColumn(name string) bool {
	return t.columnIndex(name) >= 0
}

func (t *Table) columnIndex(name string) int {
	for i, col := range t.cols {
		if col.Name == name {
			return i
		}
	}
	return -1
}

// FilterDriver returns a table containing only rows whose driver identifier
// matches. An identifier matching no rows, or a table without a driver
// column, yields an empty table rather than an error.
func (t *Table) FilterDriver(driver string) *Table {
	filtered := NewTable(t.cols)
	idx := t.columnIndex(DriverColumn)
	if idx < 0 {
		return filtered
	}
	for _, row := range t.rows {
		cell := row[idx]
		if !cell.missing && cell.typ == TypeString && cell.str == driver {
			filtered.rows = append(filtered.rows, row)
		}
	}
	return filtered
}

// Project returns a table restricted to the named columns, in the given
// order. Names not present in the table are dropped silently, never
// synthesized.
func (t *Table) Project(names []string) *Table {
	var indices []int
	var cols []Column
	for _, name := range names {
		if idx := t.columnIndex(name); idx >= 0 {
			indices = append(indices, idx)
			cols = append(cols, t.cols[idx])
		}
	}

	projected := NewTable(cols)
	for _, row := range t.rows {
		cells := make([]Cell, len(indices))
		for i, idx := range indices {
			cells[i] = row[idx]
		}
		projected.rows = append(projected.rows, cells)
	}
	return projected
}

// Records serializes the table into one map per row. Duration cells become
// rounded integer milliseconds; missing cells of any type become explicit
// nulls.
func (t *Table) Records() []Record {
	records := make([]Record, 0, len(t.rows))
	for _, row := range t.rows {
		rec := make(Record, len(t.cols))
		for i, col := range t.cols {
			rec[col.Name] = row[i].value()
		}
		records = append(records, rec)
	}
	return records
}
