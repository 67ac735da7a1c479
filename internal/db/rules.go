package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fuelwatch/internal/models"
)

// Rule vehicle scopes are stored as a text[] column so identifiers may
// contain any character; an empty array means fleet-wide.

func (d *DB) CreateRule(ctx context.Context, rule models.AlertRule) (uuid.UUID, error) {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	query := `
        INSERT INTO alert_rules (id, name, type, severity, threshold, vehicles, active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`
	_, err := d.Pool.Exec(ctx, query,
		rule.ID, rule.Name, rule.Type, rule.Severity, rule.Threshold,
		rule.Vehicles, rule.Active, time.Now())
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert rule: %w", err)
	}
	return rule.ID, nil
}

// GetActiveRules returns the rules the engine evaluates on the next
// batch, as a snapshot ordered by creation time.
func (d *DB) GetActiveRules(ctx context.Context) ([]models.AlertRule, error) {
	query := `
        SELECT id, name, type, severity, threshold, vehicles, active, created_at, updated_at
        FROM alert_rules
        WHERE active = true
        ORDER BY created_at`
	rows, err := d.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get active rules: %w", err)
	}
	defer rows.Close()

	var rules []models.AlertRule
	for rows.Next() {
		var rule models.AlertRule
		if err := rows.Scan(&rule.ID, &rule.Name, &rule.Type, &rule.Severity,
			&rule.Threshold, &rule.Vehicles, &rule.Active, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (d *DB) UpdateRule(ctx context.Context, rule models.AlertRule) error {
	query := `
        UPDATE alert_rules
        SET name = $2, type = $3, severity = $4, threshold = $5, vehicles = $6, active = $7, updated_at = $8
        WHERE id = $1`
	result, err := d.Pool.Exec(ctx, query,
		rule.ID, rule.Name, rule.Type, rule.Severity, rule.Threshold,
		rule.Vehicles, rule.Active, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("no rule found with id %s", rule.ID)
	}
	return nil
}

func (d *DB) DeactivateRule(ctx context.Context, id uuid.UUID) error {
	result, err := d.Pool.Exec(ctx,
		`UPDATE alert_rules SET active = false, updated_at = $2 WHERE id = $1`, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to deactivate rule: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("no rule found with id %s", id)
	}
	return nil
}
