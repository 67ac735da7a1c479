// Package analysis runs the per-batch anomaly detectors and consolidates
// their verdicts into record-level risk classifications.
package analysis

import (
	"math"
	"sort"
)

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the sample standard deviation, 0 for fewer than two values.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	sum := 0.0
	for _, v := range values {
		diff := v - mean
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

// Quantile returns the q-quantile (0 <= q <= 1) using linear interpolation
// between order statistics. Returns 0 for an empty slice.
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	frac := pos - float64(lo)
	if lo+1 >= len(sorted) {
		return sorted[lo]
	}
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// Median is the 0.5 quantile.
func Median(values []float64) float64 {
	return Quantile(values, 0.5)
}

// TukeyFences returns the lower and upper outlier fences
// (Q1 - 1.5*IQR, Q3 + 1.5*IQR) together with the interquartile range.
func TukeyFences(values []float64) (lower, upper, iqr float64) {
	q1 := Quantile(values, 0.25)
	q3 := Quantile(values, 0.75)
	iqr = q3 - q1
	return q1 - 1.5*iqr, q3 + 1.5*iqr, iqr
}

// LinearRegression fits y = slope*x + intercept by least squares and
// reports the coefficient of determination. ok is false when fewer than
// two points are given or x is degenerate.
func LinearRegression(x, y []float64) (slope, intercept, r2 float64, ok bool) {
	if len(x) != len(y) || len(x) < 2 {
		return 0, 0, 0, false
	}
	n := float64(len(x))
	var sumX, sumY, sumXY, sumX2 float64
	for i := range x {
		sumX += x[i]
		sumY += y[i]
		sumXY += x[i] * y[i]
		sumX2 += x[i] * x[i]
	}
	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return 0, 0, 0, false
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	meanY := sumY / n
	var ssTot, ssRes float64
	for i := range x {
		est := slope*x[i] + intercept
		d := y[i] - meanY
		ssTot += d * d
		r := y[i] - est
		ssRes += r * r
	}
	if ssTot == 0 {
		return slope, intercept, 1, true
	}
	return slope, intercept, 1 - ssRes/ssTot, true
}
