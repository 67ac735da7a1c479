package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fuelwatch/internal/models"
)

func (d *DB) CreateNotification(ctx context.Context, n models.Notification) error {
	query := `
        INSERT INTO notifications (
            id, event_id, policy_id, channel, subject, body, status, last_error, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := d.Pool.Exec(ctx, query,
		n.ID, n.EventID, n.PolicyID, n.Channel, n.Subject, n.Body,
		n.Status, n.LastError, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (d *DB) UpdateNotificationStatus(ctx context.Context, id uuid.UUID, status, lastError string) error {
	query := `
        UPDATE notifications
        SET status = $2, last_error = $3,
            sent_at = CASE WHEN $2 = 'sent' THEN $4 ELSE sent_at END
        WHERE id = $1`
	result, err := d.Pool.Exec(ctx, query, id, status, lastError, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update notification status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("no notification found with id %s", id)
	}
	return nil
}

// ListNotificationsByEvent returns every dispatch attempt recorded for an
// alert event, newest first.
func (d *DB) ListNotificationsByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Notification, error) {
	query := `
        SELECT id, event_id, policy_id, channel, subject, body, status, last_error, created_at, sent_at
        FROM notifications
        WHERE event_id = $1
        ORDER BY created_at DESC`
	rows, err := d.Pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications for event %s: %w", eventID, err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.EventID, &n.PolicyID, &n.Channel, &n.Subject,
			&n.Body, &n.Status, &n.LastError, &n.CreatedAt, &n.SentAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}
