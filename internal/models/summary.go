package models

import "time"

// Summary is the batch-level statistics record returned alongside the
// classified dataset.
type Summary struct {
	BatchID     string           `json:"batch_id"`
	TotalRows   int              `json:"total_rows"`
	Vehicles    int              `json:"vehicles"`
	Anomalies   int              `json:"anomalies"`
	TierCounts  map[RiskTier]int `json:"tier_counts"`
	TotalVolume float64          `json:"total_volume"`
	AvgVolume   float64          `json:"avg_volume"`
	TotalCost   float64          `json:"total_cost"`
	DateFrom    time.Time        `json:"date_from"`
	DateTo      time.Time        `json:"date_to"`
}
