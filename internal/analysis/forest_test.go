package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuelwatch/internal/models"
)

func clusterDataset(n int) *models.Dataset {
	ds := &models.Dataset{}
	for i := 0; i < n; i++ {
		ds.Vehicle = append(ds.Vehicle, "A")
		ds.Date = append(ds.Date, day(i))
		ds.Volume = append(ds.Volume, 10+float64(i%3))
	}
	// one point far from the cluster
	ds.Volume[n-1] = 500
	ds.Distance = models.FloatColumn{Present: true}
	for i := 0; i < n; i++ {
		ds.Distance.Values = append(ds.Distance.Values, 100+float64(i%5))
		ds.Distance.Valid = append(ds.Distance.Valid, true)
	}
	ds.Distance.Values[n-1] = 5000
	return ds
}

func TestDetectMultivariateFlagsOutlier(t *testing.T) {
	ds := clusterDataset(40)
	out, forest, err := DetectMultivariate(ds, DefaultForestConfig())
	require.NoError(t, err)
	require.NotNil(t, forest)
	assert.True(t, out.Flags[39], "isolated point should be flagged")
	assert.Greater(t, out.Scores[39], forest.Threshold)

	flagged := 0
	for _, f := range out.Flags {
		if f {
			flagged++
		}
	}
	// contamination 0.10 caps the flagged share of a 40-row batch
	assert.LessOrEqual(t, flagged, 4)
}

func TestDetectMultivariateDeterministic(t *testing.T) {
	ds := clusterDataset(40)
	a, _, err := DetectMultivariate(ds, DefaultForestConfig())
	require.NoError(t, err)
	b, _, err := DetectMultivariate(ds, DefaultForestConfig())
	require.NoError(t, err)
	assert.Equal(t, a.Flags, b.Flags)
	assert.Equal(t, a.Scores, b.Scores)
}

func TestDetectMultivariateSmallBatch(t *testing.T) {
	ds := clusterDataset(40)
	small := &models.Dataset{
		Vehicle: ds.Vehicle[:5],
		Date:    ds.Date[:5],
		Volume:  ds.Volume[:5],
	}
	out, forest, err := DetectMultivariate(small, DefaultForestConfig())
	assert.ErrorIs(t, err, ErrInsufficientData)
	assert.Nil(t, forest)
	require.Len(t, out.Flags, 5)
	for i := range out.Flags {
		assert.False(t, out.Flags[i])
		assert.Equal(t, 0.0, out.Scores[i])
	}
}

func TestDetectMultivariateSkipsNullRows(t *testing.T) {
	ds := clusterDataset(40)
	ds.Distance.Valid[39] = false // the outlier loses its distance

	out, _, err := DetectMultivariate(ds, DefaultForestConfig())
	require.NoError(t, err)
	assert.False(t, out.Flags[39])
	assert.Equal(t, 0.0, out.Scores[39])
}

func TestForestSaveLoadRoundTrip(t *testing.T) {
	ds := clusterDataset(40)
	_, forest, err := DetectMultivariate(ds, DefaultForestConfig())
	require.NoError(t, err)

	blob, err := forest.Save()
	require.NoError(t, err)
	restored, err := LoadForest(blob)
	require.NoError(t, err)

	X, _, _ := featureMatrix(ds)
	assert.Equal(t, forest.Scores(X), restored.Scores(X))
	assert.Equal(t, forest.Threshold, restored.Threshold)
	assert.Equal(t, forest.Features, restored.Features)
}
