package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"pushnotify/internal/model"
)

type deviceRepository struct {
	db *sqlx.DB
}

func NewDeviceRepository(db *sqlx.DB) DeviceRepository {
	return &deviceRepository{db: db}
}

// Upsert creates or updates a device registration.
// The (user_id, device_id) pair identifies the row; registering the same
// device again overwrites its FCM token (token rotation by the client).
func (r *deviceRepository) Upsert(ctx context.Context, userID int64, deviceID, fcmToken string) error {
	query := `
		INSERT INTO devices (user_id, device_id, fcm_token, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, device_id) DO UPDATE SET
			fcm_token = EXCLUDED.fcm_token,
			updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query, userID, deviceID, fcmToken)
	if err != nil {
		return fmt.Errorf("upsert device: %w", err)
	}
	return nil
}

// ListByUser returns the user's registered devices, most recently updated first.
func (r *deviceRepository) ListByUser(ctx context.Context, userID int64) ([]model.Device, error) {
	query := `
		SELECT id, user_id, device_id, fcm_token, created_at, updated_at
		FROM devices
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`
	var devices []model.Device
	err := r.db.SelectContext(ctx, &devices, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return devices, nil
}

// GetTokensByUserID returns all FCM tokens owned by a user id.
func (r *deviceRepository) GetTokensByUserID(ctx context.Context, userID int64) ([]string, error) {
	query := `
		SELECT fcm_token
		FROM devices
		WHERE user_id = $1
	`
	var tokens []string
	err := r.db.SelectContext(ctx, &tokens, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get tokens by user id: %w", err)
	}
	return tokens, nil
}

// GetTokensByUsername returns all FCM tokens owned by the named user.
func (r *deviceRepository) GetTokensByUsername(ctx context.Context, username string) ([]string, error) {
	query := `
		SELECT d.fcm_token
		FROM devices d
		JOIN users u ON d.user_id = u.id
		WHERE u.username = $1
	`
	var tokens []string
	err := r.db.SelectContext(ctx, &tokens, query, username)
	if err != nil {
		return nil, fmt.Errorf("get tokens by username: %w", err)
	}
	return tokens, nil
}

// GetAllTokens returns every FCM token in the system.
func (r *deviceRepository) GetAllTokens(ctx context.Context) ([]string, error) {
	query := `SELECT fcm_token FROM devices`

	var tokens []string
	err := r.db.SelectContext(ctx, &tokens, query)
	if err != nil {
		return nil, fmt.Errorf("get all tokens: %w", err)
	}
	return tokens, nil
}
