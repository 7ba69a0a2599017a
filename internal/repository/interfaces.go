package repository

import (
	"context"
	"time"

	"pushnotify/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	// GetAllIDs returns every user id in the system, used for broadcast
	// internal notifications.
	GetAllIDs(ctx context.Context) ([]int64, error)
}

type RefreshTokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	Revoke(ctx context.Context, id string, replacedBy *string) error
	RevokeAllForUser(ctx context.Context, userID int64) error
	DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}

type DeviceRepository interface {
	// Upsert creates or updates a device keyed by (user_id, device_id);
	// an existing row gets the new FCM token and a fresh updated_at.
	Upsert(ctx context.Context, userID int64, deviceID, fcmToken string) error
	// ListByUser returns the user's registered devices, most recently
	// updated first.
	ListByUser(ctx context.Context, userID int64) ([]model.Device, error)
	// GetTokensByUserID returns the FCM tokens of every device owned by the user.
	GetTokensByUserID(ctx context.Context, userID int64) ([]string, error)
	// GetTokensByUsername joins devices to users and returns the matching tokens.
	GetTokensByUsername(ctx context.Context, username string) ([]string, error)
	// GetAllTokens returns every FCM token in the system (broadcast).
	GetAllTokens(ctx context.Context) ([]string, error)
}

type NotificationRepository interface {
	// CreateBatch inserts one notification row per user id inside a single
	// transaction; a failure on any insert rolls back the whole batch.
	CreateBatch(ctx context.Context, userIDs []int64, title, message string) (int, error)
	// ListByUser returns all notifications for a user, newest first.
	ListByUser(ctx context.Context, userID int64) ([]model.InternalNotification, error)
	// MarkRead flips is_read on the row matched by (id, user_id). Zero rows
	// matched is reported as model.ErrNotificationNotFound.
	MarkRead(ctx context.Context, notificationID, userID int64) error
	// GetUnreadCount returns the count of unread notifications for a user.
	GetUnreadCount(ctx context.Context, userID int64) (int, error)
}
