package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fuelwatch/internal/models"
)

func (d *DB) CreateContactPoint(ctx context.Context, cp models.ContactPoint) (models.ContactPoint, error) {
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	query := `
        INSERT INTO contact_points (id, name, type, configuration, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
        RETURNING created_at, updated_at`
	err := d.Pool.QueryRow(ctx, query,
		cp.ID, cp.Name, cp.Type, cp.Configuration, cp.Status,
	).Scan(&cp.CreatedAt, &cp.UpdatedAt)
	if err != nil {
		return models.ContactPoint{}, fmt.Errorf("failed to create contact point: %w", err)
	}
	return cp, nil
}

// GetActiveContactPoints returns every contact point still accepting
// deliveries.
func (d *DB) GetActiveContactPoints(ctx context.Context) ([]models.ContactPoint, error) {
	query := `
        SELECT id, name, type, configuration, status, created_at, updated_at
        FROM contact_points
        WHERE status = 'active'`
	rows, err := d.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get contact points: %w", err)
	}
	defer rows.Close()

	var cps []models.ContactPoint
	for rows.Next() {
		var cp models.ContactPoint
		if err := rows.Scan(&cp.ID, &cp.Name, &cp.Type, &cp.Configuration,
			&cp.Status, &cp.CreatedAt, &cp.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contact point: %w", err)
		}
		cps = append(cps, cp)
	}
	return cps, rows.Err()
}

// DisableContactPoint soft-deletes a channel; its routing policies stop
// matching on the next dispatch.
func (d *DB) DisableContactPoint(ctx context.Context, id uuid.UUID) error {
	result, err := d.Pool.Exec(ctx,
		`UPDATE contact_points SET status = 'disabled', updated_at = $2 WHERE id = $1`, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to disable contact point: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("no contact point found with id %s", id)
	}
	return nil
}
