// Package ingest maps heterogeneous tabular fuel records onto the
// canonical analysis schema.
package ingest

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"fuelwatch/internal/models"
)

// Canonical field names.
const (
	fieldVehicle  = "vehicle"
	fieldDate     = "date"
	fieldVolume   = "volume"
	fieldDistance = "distance"
	fieldCost     = "cost"
	fieldUnit     = "unit"
	fieldFuelType = "fuel_type"
)

// Sanity ceilings for derived values. A derived value above its ceiling is
// almost certainly a data-entry error (odometer reset, currency typo) and
// would collapse the quantile-based detectors, so it is nulled instead.
const (
	maxEfficiency = 100.0
	maxCostPerKm  = 100.0
)

// columnSynonyms maps lower-cased source column names onto canonical
// fields. Spanish names come from the municipal source exports.
var columnSynonyms = map[string]string{
	"vehicle":       fieldVehicle,
	"placa":         fieldVehicle,
	"nombre_placa":  fieldVehicle,
	"plate":         fieldVehicle,
	"vehiculo":      fieldVehicle,
	"vehicle_id":    fieldVehicle,
	"date":          fieldDate,
	"fecha":         fieldDate,
	"fecha_ingreso_vale": fieldDate,
	"fuel_date":     fieldDate,
	"volume":        fieldVolume,
	"galones":       fieldVolume,
	"cantidad_galones":   fieldVolume,
	"gallons":       fieldVolume,
	"liters":        fieldVolume,
	"fuel_volume":   fieldVolume,
	"distance":      fieldDistance,
	"kilometraje":   fieldDistance,
	"km_recorrido":  fieldDistance,
	"km":            fieldDistance,
	"mileage":       fieldDistance,
	"cost":          fieldCost,
	"costo":         fieldCost,
	"costo_total":   fieldCost,
	"total_consumo": fieldCost,
	"total_cost":    fieldCost,
	"unit":          fieldUnit,
	"unidad":        fieldUnit,
	"unidad_organica": fieldUnit,
	"department":    fieldUnit,
	"fuel_type":     fieldFuelType,
	"combustible":   fieldFuelType,
	"tipo_combustible": fieldFuelType,
}

// SchemaError reports required canonical fields that could not be resolved
// from the source columns. It aborts the pipeline before any detector runs.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("required fields unresolved after column mapping: %s",
		strings.Join(e.Missing, ", "))
}

// dateLayouts accepted for the date field, tried in order.
var dateLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// excelEpoch is the origin of spreadsheet serial dates.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// Normalize maps a raw table onto the canonical schema, coerces cell
// values, drops unusable rows and computes the derived columns. It is a
// pure transform: the input table is not modified.
//
// Rows are dropped when the vehicle is empty, the date cannot be parsed,
// or the volume is null or non-positive; downstream detectors assume
// volume > 0 for every retained row. Numeric coercion failures in optional
// columns become nulls, never errors.
func Normalize(raw models.RawTable) (*models.Dataset, error) {
	canonical := make(map[string]int) // canonical field -> column index
	var extraCols []int
	for i, col := range raw.Columns {
		key := strings.ToLower(strings.TrimSpace(col))
		if field, ok := columnSynonyms[key]; ok {
			if _, dup := canonical[field]; !dup {
				canonical[field] = i
				continue
			}
		}
		extraCols = append(extraCols, i)
	}

	var missing []string
	for _, req := range []string{fieldVehicle, fieldDate, fieldVolume} {
		if _, ok := canonical[req]; !ok {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &SchemaError{Missing: missing}
	}

	ds := &models.Dataset{
		Distance:   models.FloatColumn{},
		Cost:       models.FloatColumn{},
		Efficiency: models.FloatColumn{},
		CostPerKm:  models.FloatColumn{},
		Extra:      make(map[string][]string),
	}
	_, hasDistance := canonical[fieldDistance]
	_, hasCost := canonical[fieldCost]
	_, hasUnit := canonical[fieldUnit]
	_, hasFuelType := canonical[fieldFuelType]
	ds.Distance.Present = hasDistance
	ds.Cost.Present = hasCost
	ds.Efficiency.Present = hasDistance
	ds.CostPerKm.Present = hasDistance && hasCost

	cell := func(row []string, field string) string {
		idx := canonical[field]
		if idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	for _, row := range raw.Rows {
		vehicle := cell(row, fieldVehicle)
		if vehicle == "" {
			continue
		}
		date, ok := parseDate(cell(row, fieldDate))
		if !ok {
			continue
		}
		volume, ok := parseFloat(cell(row, fieldVolume))
		if !ok || volume <= 0 {
			continue
		}

		ds.Vehicle = append(ds.Vehicle, vehicle)
		ds.Date = append(ds.Date, date)
		ds.Volume = append(ds.Volume, volume)

		distance, distOK := 0.0, false
		if hasDistance {
			distance, distOK = parseFloat(cell(row, fieldDistance))
			if distOK && distance < 0 {
				distOK = false
			}
			appendFloat(&ds.Distance, distance, distOK)
		}
		cost, costOK := 0.0, false
		if hasCost {
			cost, costOK = parseFloat(cell(row, fieldCost))
			if costOK && cost < 0 {
				costOK = false
			}
			appendFloat(&ds.Cost, cost, costOK)
		}
		if hasUnit {
			ds.Unit = append(ds.Unit, cell(row, fieldUnit))
		}
		if hasFuelType {
			ds.FuelType = append(ds.FuelType, cell(row, fieldFuelType))
		}

		// Derived fields with explicit zero-division protection: a null
		// or degenerate denominator yields null, never Inf or NaN.
		eff, effOK := 0.0, false
		if distOK && distance > 0 {
			eff = distance / volume
			effOK = eff <= maxEfficiency && !math.IsInf(eff, 0) && !math.IsNaN(eff)
		}
		if ds.Efficiency.Present {
			appendFloat(&ds.Efficiency, eff, effOK)
		}
		cpk, cpkOK := 0.0, false
		if costOK && distOK && distance > 0 {
			cpk = cost / distance
			cpkOK = cpk <= maxCostPerKm && !math.IsInf(cpk, 0) && !math.IsNaN(cpk)
		}
		if ds.CostPerKm.Present {
			appendFloat(&ds.CostPerKm, cpk, cpkOK)
		}

		wd := date.Weekday()
		ds.Weekday = append(ds.Weekday, wd)
		ds.Month = append(ds.Month, date.Month())
		ds.Weekend = append(ds.Weekend, wd == time.Saturday || wd == time.Sunday)

		for _, idx := range extraCols {
			name := raw.Columns[idx]
			val := ""
			if idx < len(row) {
				val = row[idx]
			}
			ds.Extra[name] = append(ds.Extra[name], val)
		}
	}

	return ds, nil
}

func appendFloat(col *models.FloatColumn, v float64, ok bool) {
	if !ok {
		v = 0
	}
	col.Values = append(col.Values, v)
	col.Valid = append(col.Valid, ok)
}

// parseFloat coerces a cell to a number, accepting a comma decimal
// separator as the source exports use.
func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// parseDate accepts day-first and ISO layouts plus spreadsheet serial
// numbers (days since the Excel epoch).
func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 && serial < 200000 {
		days := int(serial)
		frac := serial - float64(days)
		t := excelEpoch.AddDate(0, 0, days).
			Add(time.Duration(frac * 24 * float64(time.Hour)))
		return t, true
	}
	return time.Time{}, false
}

// FilterMonthUnit returns the sub-dataset restricted to a calendar month
// and organizational unit. A zero month or empty unit leaves that
// dimension unfiltered.
func FilterMonthUnit(ds *models.Dataset, month time.Month, unit string) *models.Dataset {
	keep := make([]int, 0, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		if month != 0 && ds.Month[i] != month {
			continue
		}
		if unit != "" {
			if len(ds.Unit) == 0 || ds.Unit[i] != unit {
				continue
			}
		}
		keep = append(keep, i)
	}
	return subset(ds, keep)
}

func subset(ds *models.Dataset, idx []int) *models.Dataset {
	out := &models.Dataset{
		Distance:   models.FloatColumn{Present: ds.Distance.Present},
		Cost:       models.FloatColumn{Present: ds.Cost.Present},
		Efficiency: models.FloatColumn{Present: ds.Efficiency.Present},
		CostPerKm:  models.FloatColumn{Present: ds.CostPerKm.Present},
		Extra:      make(map[string][]string),
	}
	for _, i := range idx {
		out.Vehicle = append(out.Vehicle, ds.Vehicle[i])
		out.Date = append(out.Date, ds.Date[i])
		out.Volume = append(out.Volume, ds.Volume[i])
		if ds.Distance.Present {
			out.Distance.Values = append(out.Distance.Values, ds.Distance.Values[i])
			out.Distance.Valid = append(out.Distance.Valid, ds.Distance.Valid[i])
		}
		if ds.Cost.Present {
			out.Cost.Values = append(out.Cost.Values, ds.Cost.Values[i])
			out.Cost.Valid = append(out.Cost.Valid, ds.Cost.Valid[i])
		}
		if ds.Efficiency.Present {
			out.Efficiency.Values = append(out.Efficiency.Values, ds.Efficiency.Values[i])
			out.Efficiency.Valid = append(out.Efficiency.Valid, ds.Efficiency.Valid[i])
		}
		if ds.CostPerKm.Present {
			out.CostPerKm.Values = append(out.CostPerKm.Values, ds.CostPerKm.Values[i])
			out.CostPerKm.Valid = append(out.CostPerKm.Valid, ds.CostPerKm.Valid[i])
		}
		if len(ds.Unit) > 0 {
			out.Unit = append(out.Unit, ds.Unit[i])
		}
		if len(ds.FuelType) > 0 {
			out.FuelType = append(out.FuelType, ds.FuelType[i])
		}
		out.Weekday = append(out.Weekday, ds.Weekday[i])
		out.Month = append(out.Month, ds.Month[i])
		out.Weekend = append(out.Weekend, ds.Weekend[i])
	}
	for name, col := range ds.Extra {
		for _, i := range idx {
			out.Extra[name] = append(out.Extra[name], col[i])
		}
	}
	return out
}
