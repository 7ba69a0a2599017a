package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"pushnotify/internal/model"
)

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// CreateBatch inserts one notification row per target user id.
// All inserts run in one transaction: a failure mid-loop rolls back the
// entire batch so a broadcast is all-or-nothing.
func (r *notificationRepository) CreateBatch(ctx context.Context, userIDs []int64, title, message string) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin notification batch: %w", err)
	}
	defer tx.Rollback() // no-op after commit

	query := `
		INSERT INTO internal_notifications (user_id, title, message)
		VALUES ($1, $2, $3)
	`
	for _, userID := range userIDs {
		if _, err := tx.ExecContext(ctx, query, userID, title, message); err != nil {
			return 0, fmt.Errorf("insert notification for user %d: %w", userID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit notification batch: %w", err)
	}

	return len(userIDs), nil
}

// ListByUser returns all notifications for a user, newest first.
func (r *notificationRepository) ListByUser(ctx context.Context, userID int64) ([]model.InternalNotification, error) {
	query := `
		SELECT id, user_id, title, message, is_read, created_at
		FROM internal_notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	var notifications []model.InternalNotification
	err := r.db.SelectContext(ctx, &notifications, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead flips is_read on exactly one row matched by (id, user_id).
// Matching on the owning user means a notification that exists but belongs
// to someone else surfaces the same ErrNotificationNotFound as a missing id.
func (r *notificationRepository) MarkRead(ctx context.Context, notificationID, userID int64) error {
	query := `
		UPDATE internal_notifications
		SET is_read = true
		WHERE id = $1 AND user_id = $2
	`
	result, err := r.db.ExecContext(ctx, query, notificationID, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark notification read: rows affected: %w", err)
	}
	if affected == 0 {
		return model.ErrNotificationNotFound
	}

	return nil
}

// GetUnreadCount returns the count of unread notifications.
func (r *notificationRepository) GetUnreadCount(ctx context.Context, userID int64) (int, error) {
	query := `
		SELECT COUNT(*) FROM internal_notifications
		WHERE user_id = $1 AND is_read = false
	`
	var count int
	err := r.db.GetContext(ctx, &count, query, userID)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("get unread count: %w", err)
	}
	return count, nil
}
