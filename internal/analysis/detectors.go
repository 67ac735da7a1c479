package analysis

import (
	"sort"

	"fuelwatch/internal/models"
)

// Detector display names, concatenated into the per-record type label.
const (
	NameConsumption = "Excessive Consumption"
	NameFrequency   = "High Refueling Frequency"
	NameEfficiency  = "Abnormal Efficiency"
	NameEnsemble    = "Multivariate Outlier"
)

// frequencyQuantile is the fleet percentile of per-vehicle mean refuel
// gaps below which a vehicle is considered to refuel abnormally often.
const frequencyQuantile = 0.10

// DetectorOutput is one detector's verdict over a whole batch: a flag and
// a non-negative score per row. Rows the detector could not evaluate stay
// false with score 0.
type DetectorOutput struct {
	Name   string
	Flags  []bool
	Scores []float64
}

func newOutput(name string, n int) DetectorOutput {
	return DetectorOutput{Name: name, Flags: make([]bool, n), Scores: make([]float64, n)}
}

// DetectExcessiveConsumption flags rows whose volume exceeds the Tukey
// upper fence of the batch volume distribution. The score is the relative
// excess over the fence, clipped at 0.
func DetectExcessiveConsumption(ds *models.Dataset) DetectorOutput {
	out := newOutput(NameConsumption, ds.Len())
	if ds.Len() == 0 {
		return out
	}
	_, upper, _ := TukeyFences(ds.Volume)
	for i, v := range ds.Volume {
		if v > upper {
			out.Flags[i] = true
			if upper > 0 {
				out.Scores[i] = (v - upper) / upper
			}
		}
	}
	return out
}

// DetectRefuelingFrequency flags every record of a vehicle whose mean
// inter-refuel gap falls below the fleet's 10th-percentile gap. Vehicles
// with fewer than two events have no defined gap and are never flagged.
func DetectRefuelingFrequency(ds *models.Dataset) DetectorOutput {
	out := newOutput(NameFrequency, ds.Len())
	gaps := MeanGapDays(ds)
	if len(gaps) == 0 {
		return out
	}

	means := make([]float64, 0, len(gaps))
	for _, v := range sortedKeys(gaps) {
		means = append(means, gaps[v])
	}
	threshold := Quantile(means, frequencyQuantile)
	if threshold <= 0 {
		return out
	}
	for i, vehicle := range ds.Vehicle {
		gap, ok := gaps[vehicle]
		if ok && gap < threshold {
			out.Flags[i] = true
			out.Scores[i] = (threshold - gap) / threshold
		}
	}
	return out
}

// DetectEfficiencyOutliers applies a two-sided Tukey-fence test to the
// non-null efficiency values: both unusually low and unusually high
// efficiency are anomalous. Rows with null efficiency never receive the
// flag but remain in the batch.
func DetectEfficiencyOutliers(ds *models.Dataset) DetectorOutput {
	out := newOutput(NameEfficiency, ds.Len())
	if !ds.Efficiency.Present {
		return out
	}
	var valid []float64
	for i := range ds.Efficiency.Values {
		if ds.Efficiency.Valid[i] {
			valid = append(valid, ds.Efficiency.Values[i])
		}
	}
	if len(valid) == 0 {
		return out
	}
	lower, upper, iqr := TukeyFences(valid)
	for i := range ds.Efficiency.Values {
		if !ds.Efficiency.Valid[i] {
			continue
		}
		v := ds.Efficiency.Values[i]
		if v < lower || v > upper {
			out.Flags[i] = true
			if iqr > 0 {
				if v < lower {
					out.Scores[i] = (lower - v) / iqr
				} else {
					out.Scores[i] = (v - upper) / iqr
				}
			}
		}
	}
	return out
}

// MeanGapDays computes each vehicle's mean gap in days between
// consecutive refuels, for vehicles with at least two events.
func MeanGapDays(ds *models.Dataset) map[string]float64 {
	byVehicle := make(map[string][]int)
	for i, v := range ds.Vehicle {
		byVehicle[v] = append(byVehicle[v], i)
	}
	gaps := make(map[string]float64)
	for vehicle, idx := range byVehicle {
		if len(idx) < 2 {
			continue
		}
		dates := make([]int, len(idx))
		copy(dates, idx)
		sort.Slice(dates, func(a, b int) bool {
			return ds.Date[dates[a]].Before(ds.Date[dates[b]])
		})
		sum := 0.0
		for i := 1; i < len(dates); i++ {
			sum += ds.Date[dates[i]].Sub(ds.Date[dates[i-1]]).Hours() / 24
		}
		gaps[vehicle] = sum / float64(len(dates)-1)
	}
	return gaps
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
