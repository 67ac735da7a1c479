package analysis

import (
	"sort"

	"fuelwatch/internal/models"
)

// minForecastEvents is the fewest refuels a vehicle needs before a trend
// line means anything.
const minForecastEvents = 3

// VehicleForecast is a per-vehicle consumption trend: a least-squares fit
// of refuel volume over days since the vehicle's first event.
type VehicleForecast struct {
	Vehicle    string
	Events     int
	Slope      float64 // volume units per day
	Intercept  float64
	R2         float64
	NextVolume float64 // projected volume one mean gap after the last event
}

// ForecastConsumption fits a trend per vehicle, in first-seen vehicle
// order. Vehicles with fewer than three events, or whose dates are
// degenerate, are skipped.
func ForecastConsumption(ds *models.Dataset) []VehicleForecast {
	byVehicle := make(map[string][]int)
	for i, v := range ds.Vehicle {
		byVehicle[v] = append(byVehicle[v], i)
	}

	var out []VehicleForecast
	for _, vehicle := range ds.Vehicles() {
		idx := byVehicle[vehicle]
		if len(idx) < minForecastEvents {
			continue
		}
		sort.Slice(idx, func(a, b int) bool {
			return ds.Date[idx[a]].Before(ds.Date[idx[b]])
		})
		first := ds.Date[idx[0]]
		x := make([]float64, len(idx))
		y := make([]float64, len(idx))
		for k, i := range idx {
			x[k] = ds.Date[i].Sub(first).Hours() / 24
			y[k] = ds.Volume[i]
		}
		slope, intercept, r2, ok := LinearRegression(x, y)
		if !ok {
			continue
		}
		meanGap := x[len(x)-1] / float64(len(x)-1)
		next := slope*(x[len(x)-1]+meanGap) + intercept
		out = append(out, VehicleForecast{
			Vehicle:    vehicle,
			Events:     len(idx),
			Slope:      slope,
			Intercept:  intercept,
			R2:         r2,
			NextVolume: next,
		})
	}
	return out
}
