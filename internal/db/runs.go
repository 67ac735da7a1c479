package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fuelwatch/internal/models"
)

// AnalysisRun is one processed batch: the summary statistics and the
// serialized ensemble model trained on it (nil when the batch was too
// small for the ensemble).
type AnalysisRun struct {
	BatchID    string
	Summary    models.Summary
	ModelBlob  []byte
	EventCount int
	CreatedAt  time.Time
}

func (d *DB) CreateAnalysisRun(ctx context.Context, run AnalysisRun) error {
	summary, err := json.Marshal(run.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal run summary: %w", err)
	}
	query := `
        INSERT INTO analysis_runs (batch_id, summary, model_blob, event_count, created_at)
        VALUES ($1, $2, $3, $4, $5)`
	_, err = d.Pool.Exec(ctx, query, run.BatchID, summary, run.ModelBlob, run.EventCount, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert analysis run: %w", err)
	}
	return nil
}

// GetAnalysisRun fetches the stored summary and model blob for a batch.
func (d *DB) GetAnalysisRun(ctx context.Context, batchID string) (AnalysisRun, error) {
	var run AnalysisRun
	var summary []byte
	query := `
        SELECT batch_id, summary, model_blob, event_count, created_at
        FROM analysis_runs
        WHERE batch_id = $1`
	err := d.Pool.QueryRow(ctx, query, batchID).Scan(
		&run.BatchID, &summary, &run.ModelBlob, &run.EventCount, &run.CreatedAt)
	if err != nil {
		return AnalysisRun{}, fmt.Errorf("failed to get analysis run %s: %w", batchID, err)
	}
	if err := json.Unmarshal(summary, &run.Summary); err != nil {
		return AnalysisRun{}, fmt.Errorf("failed to unmarshal run summary: %w", err)
	}
	return run, nil
}
