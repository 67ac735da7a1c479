package db

import (
	"context"
	"fmt"

	"fuelwatch/internal/models"
)

// CreateAlertEvent inserts one emitted alert event. Events are never
// updated after insertion.
func (d *DB) CreateAlertEvent(ctx context.Context, event models.AlertEvent) error {
	query := `
        INSERT INTO alert_events (
            id, rule_id, rule_type, vehicle, severity, message,
            observed, threshold, batch_id, detected_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := d.Pool.Exec(ctx, query,
		event.ID, event.RuleID, event.RuleType, event.Vehicle, event.Severity,
		event.Message, event.Observed, event.Threshold, event.BatchID, event.DetectedAt)
	if err != nil {
		return fmt.Errorf("failed to insert alert event: %w", err)
	}
	return nil
}

// ListAlertEvents returns events for a batch (all batches when batchID is
// empty), newest first, with the total count for pagination.
func (d *DB) ListAlertEvents(ctx context.Context, batchID string, limit, offset int) ([]models.AlertEvent, int, error) {
	countQ := `SELECT COUNT(*) FROM alert_events`
	countArgs := []interface{}{}
	if batchID != "" {
		countQ += ` WHERE batch_id = $1`
		countArgs = append(countArgs, batchID)
	}
	var total int
	if err := d.Pool.QueryRow(ctx, countQ, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count alert events: %w", err)
	}

	query := `
        SELECT id, rule_id, rule_type, vehicle, severity, message,
               observed, threshold, batch_id, detected_at
        FROM alert_events`
	args := []interface{}{}
	if batchID != "" {
		query += ` WHERE batch_id = $1 ORDER BY detected_at DESC LIMIT $2 OFFSET $3`
		args = append(args, batchID, limit, offset)
	} else {
		query += ` ORDER BY detected_at DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	rows, err := d.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get alert events: %w", err)
	}
	defer rows.Close()

	var events []models.AlertEvent
	for rows.Next() {
		var event models.AlertEvent
		if err := rows.Scan(&event.ID, &event.RuleID, &event.RuleType, &event.Vehicle,
			&event.Severity, &event.Message, &event.Observed, &event.Threshold,
			&event.BatchID, &event.DetectedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan alert event: %w", err)
		}
		events = append(events, event)
	}
	return events, total, rows.Err()
}
