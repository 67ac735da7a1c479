package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuelwatch/internal/models"
)

func day(n int) time.Time {
	return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestDetectExcessiveConsumption(t *testing.T) {
	ds := &models.Dataset{
		Vehicle: []string{"A", "A", "A", "A", "A", "A", "A", "B"},
		Volume:  []float64{10, 11, 9, 10, 12, 11, 10, 60},
	}
	for i := range ds.Vehicle {
		ds.Date = append(ds.Date, day(i))
	}

	out := DetectExcessiveConsumption(ds)
	require.Len(t, out.Flags, 8)
	for i := 0; i < 7; i++ {
		assert.False(t, out.Flags[i], "row %d", i)
		assert.Equal(t, 0.0, out.Scores[i])
	}
	assert.True(t, out.Flags[7])
	assert.Greater(t, out.Scores[7], 0.0)
}

func TestDetectExcessiveConsumptionUniformBatch(t *testing.T) {
	ds := &models.Dataset{
		Vehicle: []string{"A", "A", "A", "A", "A"},
		Volume:  []float64{10, 10, 10, 10, 10},
	}
	out := DetectExcessiveConsumption(ds)
	for i := range out.Flags {
		assert.False(t, out.Flags[i])
	}
}

func TestDetectExcessiveConsumptionScaleInvariant(t *testing.T) {
	volumes := []float64{10, 11, 9, 10, 12, 11, 10, 60}
	base := &models.Dataset{Vehicle: make([]string, len(volumes)), Volume: volumes}
	scaled := &models.Dataset{Vehicle: make([]string, len(volumes)), Volume: make([]float64, len(volumes))}
	for i, v := range volumes {
		scaled.Volume[i] = v * 3.5
	}
	assert.Equal(t, DetectExcessiveConsumption(base).Flags, DetectExcessiveConsumption(scaled).Flags)
}

func TestDetectRefuelingFrequency(t *testing.T) {
	// Ten vehicles with a 10-day mean gap, one refueling daily. The
	// fast vehicle sits below the fleet's 10th-percentile gap.
	ds := &models.Dataset{}
	for v := 0; v < 10; v++ {
		name := string(rune('A' + v))
		for e := 0; e < 3; e++ {
			ds.Vehicle = append(ds.Vehicle, name)
			ds.Date = append(ds.Date, day(e*10))
			ds.Volume = append(ds.Volume, 10)
		}
	}
	for e := 0; e < 3; e++ {
		ds.Vehicle = append(ds.Vehicle, "FAST")
		ds.Date = append(ds.Date, day(e))
		ds.Volume = append(ds.Volume, 10)
	}

	out := DetectRefuelingFrequency(ds)
	for i, vehicle := range ds.Vehicle {
		if vehicle == "FAST" {
			assert.True(t, out.Flags[i], "row %d", i)
			assert.Greater(t, out.Scores[i], 0.0)
		} else {
			assert.False(t, out.Flags[i], "row %d", i)
		}
	}
}

func TestDetectRefuelingFrequencySingleEventVehicle(t *testing.T) {
	ds := &models.Dataset{
		Vehicle: []string{"A", "B", "B"},
		Date:    []time.Time{day(0), day(0), day(5)},
		Volume:  []float64{10, 10, 10},
	}
	out := DetectRefuelingFrequency(ds)
	// one gap in the whole fleet: nothing can sit below the threshold
	for i := range out.Flags {
		assert.False(t, out.Flags[i])
	}
}

func TestDetectEfficiencyOutliers(t *testing.T) {
	values := []float64{10, 10.5, 11, 10.2, 9.8, 10.1, 10.4, 50, 1}
	valid := make([]bool, len(values))
	for i := range valid {
		valid[i] = true
	}
	ds := &models.Dataset{
		Vehicle:    make([]string, len(values)),
		Volume:     make([]float64, len(values)),
		Efficiency: models.FloatColumn{Present: true, Values: values, Valid: valid},
	}

	out := DetectEfficiencyOutliers(ds)
	assert.True(t, out.Flags[7], "high outlier")
	assert.True(t, out.Flags[8], "low outlier")
	assert.Greater(t, out.Scores[7], 0.0)
	assert.Greater(t, out.Scores[8], 0.0)
	for i := 0; i < 7; i++ {
		assert.False(t, out.Flags[i], "row %d", i)
	}
}

func TestDetectEfficiencyOutliersSkipsNulls(t *testing.T) {
	ds := &models.Dataset{
		Vehicle: make([]string, 4),
		Volume:  make([]float64, 4),
		Efficiency: models.FloatColumn{
			Present: true,
			Values:  []float64{10, 0, 10, 10},
			Valid:   []bool{true, false, true, true},
		},
	}
	out := DetectEfficiencyOutliers(ds)
	assert.False(t, out.Flags[1])

	absent := &models.Dataset{Vehicle: make([]string, 2), Volume: make([]float64, 2)}
	out = DetectEfficiencyOutliers(absent)
	require.Len(t, out.Flags, 2)
	assert.False(t, out.Flags[0])
}
