package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeanAndStdDev(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, 5.0, Mean(values), 1e-9)
	// sample standard deviation (n-1)
	assert.InDelta(t, 2.13809, StdDev(values), 1e-4)

	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 0.0, StdDev([]float64{3}))
}

func TestQuantileInterpolates(t *testing.T) {
	values := []float64{4, 1, 3, 2}
	assert.InDelta(t, 1.0, Quantile(values, 0), 1e-9)
	assert.InDelta(t, 4.0, Quantile(values, 1), 1e-9)
	assert.InDelta(t, 2.5, Quantile(values, 0.5), 1e-9)
	assert.InDelta(t, 1.75, Quantile(values, 0.25), 1e-9)
	// input slice must not be reordered
	assert.Equal(t, []float64{4, 1, 3, 2}, values)
}

func TestMedian(t *testing.T) {
	assert.InDelta(t, 3.0, Median([]float64{5, 1, 3}), 1e-9)
	assert.InDelta(t, 2.5, Median([]float64{4, 1, 2, 3}), 1e-9)
}

func TestTukeyFences(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	lower, upper, iqr := TukeyFences(values)
	assert.InDelta(t, 5.5, iqr, 1e-9)
	assert.InDelta(t, 3.75-1.5*5.5, lower, 1e-9)
	assert.InDelta(t, 9.25+1.5*5.5, upper, 1e-9)
}

func TestLinearRegression(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4}
	y := []float64{1, 3, 5, 7, 9}
	slope, intercept, r2, ok := LinearRegression(x, y)
	require.True(t, ok)
	assert.InDelta(t, 2.0, slope, 1e-9)
	assert.InDelta(t, 1.0, intercept, 1e-9)
	assert.InDelta(t, 1.0, r2, 1e-9)

	_, _, _, ok = LinearRegression([]float64{1, 1, 1}, []float64{1, 2, 3})
	assert.False(t, ok)
}
