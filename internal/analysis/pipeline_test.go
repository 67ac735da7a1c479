package analysis

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuelwatch/internal/models"
)

func TestAnalyzeConsolidatesFlags(t *testing.T) {
	ds := clusterDataset(40)
	res, err := Analyze(ds, "batch-1", DefaultForestConfig())
	require.NoError(t, err)
	require.True(t, res.EnsembleRan)
	require.NotEmpty(t, res.ModelBlob)

	v := res.Verdicts
	require.Equal(t, 40, v.Len())
	for i := 0; i < v.Len(); i++ {
		expected := v.Consumption[i] || v.Frequency[i] || v.Efficiency[i] || v.Ensemble[i]
		assert.Equal(t, expected, v.IsAnomaly[i], "row %d", i)
		if !v.IsAnomaly[i] {
			assert.Equal(t, 0.0, v.Score[i], "row %d", i)
			assert.Equal(t, models.TierLow, v.Tier[i], "row %d", i)
			assert.Equal(t, NormalLabel, v.Label[i], "row %d", i)
		} else {
			assert.NotEqual(t, NormalLabel, v.Label[i], "row %d", i)
		}
	}

	// the extreme row is anomalous by both volume fence and ensemble
	assert.True(t, v.IsAnomaly[39])
	assert.Contains(t, v.Label[39], NameConsumption)
}

func TestAnalyzeIdempotent(t *testing.T) {
	ds := clusterDataset(40)
	a, err := Analyze(ds, "batch-1", DefaultForestConfig())
	require.NoError(t, err)
	b, err := Analyze(ds, "batch-1", DefaultForestConfig())
	require.NoError(t, err)
	assert.Equal(t, a.Verdicts, b.Verdicts)
	assert.Equal(t, a.Summary, b.Summary)
}

func TestAnalyzeUniformBatchIsQuiet(t *testing.T) {
	ds := &models.Dataset{}
	for i := 0; i < 5; i++ {
		ds.Vehicle = append(ds.Vehicle, "A")
		ds.Date = append(ds.Date, day(i*7))
		ds.Volume = append(ds.Volume, 10)
	}
	res, err := Analyze(ds, "batch-2", DefaultForestConfig())
	require.NoError(t, err)
	assert.False(t, res.EnsembleRan)
	assert.ErrorIs(t, res.EnsembleErr, ErrInsufficientData)
	assert.Nil(t, res.ModelBlob)
	for i := range res.Verdicts.IsAnomaly {
		assert.False(t, res.Verdicts.IsAnomaly[i], "row %d", i)
		assert.Equal(t, NormalLabel, res.Verdicts.Label[i])
	}
	assert.Equal(t, 0, res.Summary.Anomalies)
}

func TestConsolidateAllFlagCombinations(t *testing.T) {
	// one row per combination of the four component flags
	const n = 16
	outputs := make([]DetectorOutput, 4)
	names := []string{NameConsumption, NameFrequency, NameEfficiency, NameEnsemble}
	for d := range outputs {
		outputs[d] = newOutput(names[d], n)
		for i := 0; i < n; i++ {
			outputs[d].Flags[i] = i&(1<<d) != 0
			if outputs[d].Flags[i] {
				outputs[d].Scores[i] = 0.5
			}
		}
	}

	v := consolidate(n, outputs[0], outputs[1], outputs[2], outputs[3], true)
	for i := 0; i < n; i++ {
		assert.Equal(t, i != 0, v.IsAnomaly[i], "combination %04b", i)
		if i == 0 {
			assert.Equal(t, NormalLabel, v.Label[i])
			assert.Equal(t, 0.0, v.Score[i])
		} else {
			assert.InDelta(t, 0.5, v.Score[i], 1e-9, "combination %04b", i)
		}
		for d := range outputs {
			assert.Equal(t, outputs[d].Flags[i],
				strings.Contains(v.Label[i], names[d]), "combination %04b detector %d", i, d)
		}
	}
}

func TestTierForScore(t *testing.T) {
	assert.Equal(t, models.TierLow, TierForScore(0))
	assert.Equal(t, models.TierLow, TierForScore(0.3))
	assert.Equal(t, models.TierModerate, TierForScore(0.31))
	assert.Equal(t, models.TierModerate, TierForScore(0.6))
	assert.Equal(t, models.TierHigh, TierForScore(0.61))
	assert.Equal(t, models.TierHigh, TierForScore(0.9))
	assert.Equal(t, models.TierCritical, TierForScore(0.91))
	assert.Equal(t, models.TierCritical, TierForScore(3.5))
}

func TestSummarize(t *testing.T) {
	ds := &models.Dataset{
		Vehicle: []string{"A", "B", "A"},
		Date:    []time.Time{day(5), day(1), day(9)},
		Volume:  []float64{10, 20, 30},
		Cost: models.FloatColumn{
			Present: true,
			Values:  []float64{100, 0, 300},
			Valid:   []bool{true, false, true},
		},
	}
	v := models.Verdicts{
		IsAnomaly: []bool{false, true, false},
		Tier:      []models.RiskTier{models.TierLow, models.TierHigh, models.TierLow},
	}
	s := Summarize(ds, v, "batch-3")
	assert.Equal(t, "batch-3", s.BatchID)
	assert.Equal(t, 3, s.TotalRows)
	assert.Equal(t, 2, s.Vehicles)
	assert.Equal(t, 1, s.Anomalies)
	assert.Equal(t, 2, s.TierCounts[models.TierLow])
	assert.Equal(t, 1, s.TierCounts[models.TierHigh])
	assert.InDelta(t, 60.0, s.TotalVolume, 1e-9)
	assert.InDelta(t, 20.0, s.AvgVolume, 1e-9)
	assert.InDelta(t, 400.0, s.TotalCost, 1e-9)
	assert.Equal(t, day(1), s.DateFrom)
	assert.Equal(t, day(9), s.DateTo)
}
