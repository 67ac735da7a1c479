package alerts

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"fuelwatch/internal/analysis"
	"fuelwatch/internal/models"
)

// Engine evaluates a snapshot of alert rules against one analyzed batch.
// It holds no state between batches; rules referencing columns the batch
// does not carry are skipped.
type Engine struct {
	log logger
}

type logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

func NewEngine(log logger) *Engine {
	return &Engine{log: log}
}

// Evaluate runs every active rule over the batch and returns the emitted
// events. Inactive rules are ignored; a rule whose vehicle scope matches
// nothing in the batch emits nothing.
func (e *Engine) Evaluate(ds *models.Dataset, verdicts models.Verdicts, rules []models.AlertRule, batchID string, now time.Time) []models.AlertEvent {
	var events []models.AlertEvent
	evaluated := 0
	for _, rule := range rules {
		if !rule.Active {
			continue
		}
		evaluated++
		emitted, skipped := e.evaluateRule(ds, verdicts, rule, batchID, now)
		if skipped {
			e.log.Warnf("rule %q (%s) skipped: batch lacks the required column", rule.Name, rule.Type)
			continue
		}
		events = append(events, emitted...)
	}
	e.log.Infof("batch %s: %d rule(s) evaluated, %d alert event(s) emitted", batchID, evaluated, len(events))
	return events
}

func (e *Engine) evaluateRule(ds *models.Dataset, verdicts models.Verdicts, rule models.AlertRule, batchID string, now time.Time) (events []models.AlertEvent, skipped bool) {
	switch rule.Type {
	case models.RuleExcessiveConsumption:
		perVehicle := meanPerVehicle(ds, func(i int) (float64, bool) { return ds.Volume[i], true })
		events = e.perVehicleEvents(rule, perVehicle, batchID, now, above,
			"vehicle %s averaged %.2f volume units per refuel (threshold %.2f)")

	case models.RuleHighFrequency:
		events = e.perVehicleEvents(rule, analysis.MeanGapDays(ds), batchID, now, below,
			"vehicle %s refuels every %.1f days on average (threshold %.1f)")

	case models.RuleLowEfficiency:
		if !ds.Efficiency.Present {
			return nil, true
		}
		perVehicle := meanPerVehicle(ds, ds.Efficiency.At)
		events = e.perVehicleEvents(rule, perVehicle, batchID, now, below,
			"vehicle %s averages %.2f efficiency (threshold %.2f)")

	case models.RuleMaintenanceKM:
		if !ds.Distance.Present {
			return nil, true
		}
		totals := make(map[string]float64)
		for i, vehicle := range ds.Vehicle {
			if v, ok := ds.Distance.At(i); ok {
				totals[vehicle] += v
			}
		}
		events = e.perVehicleEvents(rule, totals, batchID, now, atOrAbove,
			"vehicle %s accumulated %.0f km (maintenance due at %.0f)")

	case models.RuleWeekendShare:
		var total, weekend float64
		for i, v := range ds.Volume {
			total += v
			if ds.Weekend[i] {
				weekend += v
			}
		}
		if total == 0 {
			return nil, false
		}
		share := weekend / total
		if share > rule.Threshold {
			events = append(events, e.newEvent(rule, models.FleetWide, share, batchID, now,
				fmt.Sprintf("weekend refuels account for %.0f%% of fleet volume (threshold %.0f%%)",
					share*100, rule.Threshold*100)))
		}

	case models.RuleAnomalyRate:
		counts := make(map[string]int)
		anomalous := make(map[string]int)
		for i, vehicle := range ds.Vehicle {
			counts[vehicle]++
			if verdicts.IsAnomaly[i] {
				anomalous[vehicle]++
			}
		}
		rates := make(map[string]float64, len(counts))
		for vehicle, n := range counts {
			rates[vehicle] = float64(anomalous[vehicle]) / float64(n)
		}
		events = e.perVehicleEvents(rule, rates, batchID, now, above,
			"vehicle %s has %.0f%% anomalous records (threshold %.0f%%)")

	default:
		e.log.Warnf("unknown rule type %q on rule %q", rule.Type, rule.Name)
	}
	return events, false
}

type direction int

const (
	above direction = iota
	below
	atOrAbove
)

func (d direction) crossed(observed, threshold float64) bool {
	switch d {
	case above:
		return observed > threshold
	case below:
		return observed < threshold
	default:
		return observed >= threshold
	}
}

func (e *Engine) perVehicleEvents(rule models.AlertRule, perVehicle map[string]float64, batchID string, now time.Time, dir direction, format string) []models.AlertEvent {
	var events []models.AlertEvent
	for vehicle, observed := range perVehicle {
		if !rule.InScope(vehicle) {
			continue
		}
		if !dir.crossed(observed, rule.Threshold) {
			continue
		}
		var msg string
		if rule.Type == models.RuleAnomalyRate {
			msg = fmt.Sprintf(format, vehicle, observed*100, rule.Threshold*100)
		} else {
			msg = fmt.Sprintf(format, vehicle, observed, rule.Threshold)
		}
		events = append(events, e.newEvent(rule, vehicle, observed, batchID, now, msg))
	}
	return events
}

func (e *Engine) newEvent(rule models.AlertRule, vehicle string, observed float64, batchID string, now time.Time, message string) models.AlertEvent {
	return models.AlertEvent{
		ID:         uuid.New(),
		RuleID:     rule.ID,
		RuleType:   rule.Type,
		Vehicle:    vehicle,
		Severity:   rule.Severity,
		Message:    message,
		Observed:   observed,
		Threshold:  rule.Threshold,
		BatchID:    batchID,
		DetectedAt: now,
	}
}

// meanPerVehicle averages a per-row value over each vehicle's rows,
// counting only rows where the accessor reports a value.
func meanPerVehicle(ds *models.Dataset, at func(i int) (float64, bool)) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for i, vehicle := range ds.Vehicle {
		if v, ok := at(i); ok {
			sums[vehicle] += v
			counts[vehicle]++
		}
	}
	out := make(map[string]float64, len(counts))
	for vehicle, n := range counts {
		out[vehicle] = sums[vehicle] / float64(n)
	}
	return out
}
