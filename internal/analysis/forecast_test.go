package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuelwatch/internal/models"
)

func TestForecastConsumptionLinearTrend(t *testing.T) {
	ds := &models.Dataset{
		Vehicle: []string{"A", "A", "A", "A", "B", "B"},
		Date: []time.Time{
			day(0), day(7), day(14), day(21), // A: weekly, +1 per week
			day(0), day(7), // B: two events only
		},
		Volume: []float64{10, 11, 12, 13, 5, 6},
	}

	forecasts := ForecastConsumption(ds)
	require.Len(t, forecasts, 1, "two-event vehicle skipped")

	f := forecasts[0]
	assert.Equal(t, "A", f.Vehicle)
	assert.Equal(t, 4, f.Events)
	assert.InDelta(t, 1.0/7.0, f.Slope, 1e-9)
	assert.InDelta(t, 10.0, f.Intercept, 1e-9)
	assert.InDelta(t, 1.0, f.R2, 1e-9)
	// one mean gap (7 days) past the last event: volume 14
	assert.InDelta(t, 14.0, f.NextVolume, 1e-9)
}

func TestForecastConsumptionSameDayEvents(t *testing.T) {
	ds := &models.Dataset{
		Vehicle: []string{"A", "A", "A"},
		Date:    []time.Time{day(3), day(3), day(3)},
		Volume:  []float64{10, 11, 12},
	}
	assert.Empty(t, ForecastConsumption(ds))
}
