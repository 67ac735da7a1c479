package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"fuelwatch/internal/models"
)

func (d *DB) CreateRoutingPolicy(ctx context.Context, p models.RoutingPolicy) (models.RoutingPolicy, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	query := `
        INSERT INTO routing_policies (id, contact_point_id, condition, severity, status, created_at)
        VALUES ($1, $2, $3, $4, $5, NOW())
        RETURNING created_at`
	err := d.Pool.QueryRow(ctx, query,
		p.ID, p.ContactPointID, p.Condition, p.Severity, p.Status,
	).Scan(&p.CreatedAt)
	if err != nil {
		return models.RoutingPolicy{}, fmt.Errorf("failed to create routing policy: %w", err)
	}
	return p, nil
}

// GetActivePolicies returns the active routing policies with their
// contact point joined in; policies whose contact point is gone or
// disabled come back with a nil ContactPoint and are not dispatchable.
func (d *DB) GetActivePolicies(ctx context.Context) ([]models.RoutingPolicy, error) {
	query := `
        SELECT
            p.id, p.contact_point_id, p.condition, p.severity, p.status, p.created_at,
            cp.id, cp.name, cp.type, cp.configuration, cp.status, cp.created_at, cp.updated_at
        FROM routing_policies p
        LEFT JOIN contact_points cp
          ON p.contact_point_id = cp.id AND cp.status = 'active'
        WHERE p.status = 'active'`
	rows, err := d.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get routing policies: %w", err)
	}
	defer rows.Close()

	var policies []models.RoutingPolicy
	for rows.Next() {
		var p models.RoutingPolicy
		var cpID pgtype.UUID
		var cpName, cpType, cpStatus sql.NullString
		var cpConfig map[string]interface{}
		var cpCreated, cpUpdated sql.NullTime

		if err := rows.Scan(
			&p.ID, &p.ContactPointID, &p.Condition, &p.Severity, &p.Status, &p.CreatedAt,
			&cpID, &cpName, &cpType, &cpConfig, &cpStatus, &cpCreated, &cpUpdated,
		); err != nil {
			return nil, fmt.Errorf("failed to scan routing policy: %w", err)
		}
		if cpID.Valid {
			p.ContactPoint = &models.ContactPoint{
				ID:            cpID.Bytes,
				Name:          cpName.String,
				Type:          cpType.String,
				Configuration: cpConfig,
				Status:        cpStatus.String,
				CreatedAt:     cpCreated.Time,
				UpdatedAt:     cpUpdated.Time,
			}
		}
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

func (d *DB) DisableRoutingPolicy(ctx context.Context, id uuid.UUID) error {
	result, err := d.Pool.Exec(ctx,
		`UPDATE routing_policies SET status = 'disabled' WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to disable routing policy: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("no routing policy found with id %s", id)
	}
	return nil
}
