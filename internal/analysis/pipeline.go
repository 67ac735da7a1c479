package analysis

import (
	"fmt"
	"strings"
	"sync"

	"fuelwatch/internal/models"
)

// NormalLabel marks rows no detector flagged.
const NormalLabel = "Normal"

// Result bundles everything a batch analysis produces: the verdict
// columns, the batch summary, and the serialized ensemble model (nil
// when the ensemble could not run). EnsembleErr records why the
// ensemble did not run; the statistical verdicts are still valid.
type Result struct {
	Verdicts    models.Verdicts
	Summary     models.Summary
	ModelBlob   []byte
	EnsembleRan bool
	EnsembleErr error
}

// Analyze runs all detectors over the batch and consolidates their
// verdicts. The statistical detectors and the ensemble operate on
// disjoint output columns, so they run concurrently and join at a
// barrier before consolidation.
func Analyze(ds *models.Dataset, batchID string, cfg ForestConfig) (*Result, error) {
	var (
		wg          sync.WaitGroup
		consumption DetectorOutput
		frequency   DetectorOutput
		efficiency  DetectorOutput
		ensemble    DetectorOutput
		forest      *Forest
		ensembleErr error
	)

	wg.Add(4)
	go func() {
		defer wg.Done()
		consumption = DetectExcessiveConsumption(ds)
	}()
	go func() {
		defer wg.Done()
		frequency = DetectRefuelingFrequency(ds)
	}()
	go func() {
		defer wg.Done()
		efficiency = DetectEfficiencyOutliers(ds)
	}()
	go func() {
		defer wg.Done()
		ensemble, forest, ensembleErr = DetectMultivariate(ds, cfg)
	}()
	wg.Wait()

	// a failing ensemble degrades to a neutral verdict; the statistical
	// detectors still classify the batch
	ensembleRan := ensembleErr == nil

	verdicts := consolidate(ds.Len(), consumption, frequency, efficiency, ensemble, ensembleRan)

	res := &Result{
		Verdicts:    verdicts,
		Summary:     Summarize(ds, verdicts, batchID),
		EnsembleRan: ensembleRan,
		EnsembleErr: ensembleErr,
	}
	if forest != nil {
		blob, err := forest.Save()
		if err != nil {
			return nil, err
		}
		res.ModelBlob = blob
	}
	return res, nil
}

func consolidate(n int, consumption, frequency, efficiency, ensemble DetectorOutput, ensembleRan bool) models.Verdicts {
	v := models.Verdicts{
		Consumption:   consumption.Flags,
		Frequency:     frequency.Flags,
		Efficiency:    efficiency.Flags,
		Ensemble:      ensemble.Flags,
		EnsembleScore: ensemble.Scores,
		Score:         make([]float64, n),
		IsAnomaly:     make([]bool, n),
		Tier:          make([]models.RiskTier, n),
		Label:         make([]string, n),
	}
	for i := 0; i < n; i++ {
		v.IsAnomaly[i] = consumption.Flags[i] || frequency.Flags[i] || efficiency.Flags[i] || ensemble.Flags[i]
		if v.IsAnomaly[i] {
			score := 0.0
			if ensembleRan {
				score = ensemble.Scores[i]
			}
			for _, s := range []float64{consumption.Scores[i], frequency.Scores[i], efficiency.Scores[i]} {
				if s > score {
					score = s
				}
			}
			v.Score[i] = score
		}
		v.Tier[i] = TierForScore(v.Score[i])

		var names []string
		for _, out := range []DetectorOutput{consumption, frequency, efficiency, ensemble} {
			if out.Flags[i] {
				names = append(names, out.Name)
			}
		}
		switch {
		case len(names) > 0:
			v.Label[i] = strings.Join(names, "; ")
		case v.IsAnomaly[i]:
			// an anomaly with no contributing detector means a detector
			// was added without a name; fail loudly
			panic(fmt.Sprintf("anomalous row %d has no contributing detector", i))
		default:
			v.Label[i] = NormalLabel
		}
	}
	return v
}

// TierForScore maps a consolidated score onto the fixed risk bins.
func TierForScore(score float64) models.RiskTier {
	switch {
	case score <= 0.3:
		return models.TierLow
	case score <= 0.6:
		return models.TierModerate
	case score <= 0.9:
		return models.TierHigh
	default:
		return models.TierCritical
	}
}

// Summarize computes the batch-level statistics record.
func Summarize(ds *models.Dataset, v models.Verdicts, batchID string) models.Summary {
	s := models.Summary{
		BatchID:    batchID,
		TotalRows:  ds.Len(),
		Vehicles:   len(ds.Vehicles()),
		TierCounts: make(map[models.RiskTier]int),
	}
	for _, flagged := range v.IsAnomaly {
		if flagged {
			s.Anomalies++
		}
	}
	for _, tier := range v.Tier {
		s.TierCounts[tier]++
	}
	s.TotalVolume = sum(ds.Volume)
	s.AvgVolume = Mean(ds.Volume)
	if ds.Cost.Present {
		for i := range ds.Cost.Values {
			if ds.Cost.Valid[i] {
				s.TotalCost += ds.Cost.Values[i]
			}
		}
	}
	for i, d := range ds.Date {
		if i == 0 || d.Before(s.DateFrom) {
			s.DateFrom = d
		}
		if i == 0 || d.After(s.DateTo) {
			s.DateTo = d
		}
	}
	return s
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}
