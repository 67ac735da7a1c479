package models

import "time"

// RawTable is an uploaded tabular batch before schema normalization.
// Column names are unknown in advance; cell values arrive as strings.
type RawTable struct {
	BatchID string     `json:"batch_id"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// FloatColumn is an optional numeric column with per-row validity.
// Present reports whether the column existed in the source table at all;
// Valid[i] reports whether row i holds a usable value.
type FloatColumn struct {
	Present bool
	Values  []float64
	Valid   []bool
}

// At returns the value at row i and whether it is non-null.
func (c FloatColumn) At(i int) (float64, bool) {
	if !c.Present || i >= len(c.Values) || !c.Valid[i] {
		return 0, false
	}
	return c.Values[i], true
}

// Dataset is the normalized, analysis-ready schema. All slices share the
// same length; Vehicle, Date and Volume are always populated (rows that
// could not satisfy them are dropped during normalization, and Volume > 0
// holds for every row).
type Dataset struct {
	Vehicle  []string
	Date     []time.Time
	Volume   []float64
	Distance FloatColumn
	Cost     FloatColumn
	Unit     []string
	FuelType []string

	// Derived during normalization.
	Efficiency FloatColumn // distance per volume unit
	CostPerKm  FloatColumn
	Weekday    []time.Weekday
	Month      []time.Month
	Weekend    []bool

	// Unrecognized source columns, passed through untouched for reporting.
	Extra map[string][]string
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.Vehicle)
}

// Vehicles returns the distinct vehicle identifiers in first-seen order.
func (d *Dataset) Vehicles() []string {
	seen := make(map[string]bool, len(d.Vehicle))
	var out []string
	for _, v := range d.Vehicle {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
