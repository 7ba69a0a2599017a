package model

import (
	"errors"
	"time"
)

// InternalNotification is a single in-app notification row. A broadcast
// creates one row per target user, not one shared row.
type InternalNotification struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"-"`
	Title     string    `db:"title" json:"title"`
	Message   string    `db:"message" json:"message"`
	IsRead    bool      `db:"is_read" json:"is_read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// PushRequest targets a push notification. At most one of UserID/Username is
// set; with neither, the notification is broadcast to every device token.
type PushRequest struct {
	Title    string  `json:"title"`
	Body     string  `json:"body"`
	UserID   *int64  `json:"user_id,omitempty"`
	Username *string `json:"username,omitempty"`
}

// InternalNotificationRequest targets an in-app notification with the same
// precedence rules as PushRequest.
type InternalNotificationRequest struct {
	Title    string  `json:"title"`
	Message  string  `json:"message"`
	UserID   *int64  `json:"user_id,omitempty"`
	Username *string `json:"username,omitempty"`
}

// PushResult summarizes one dispatch: every resolved token was attempted
// exactly once, so SuccessCount+FailureCount == TokensUsed.
type PushResult struct {
	Message      string   `json:"message"`
	SuccessCount int      `json:"success_count"`
	FailureCount int      `json:"failure_count"`
	TokensUsed   int      `json:"tokens_used"`
	Errors       []string `json:"errors,omitempty"`
}

// InternalNotificationResult reports how many users received a row.
type InternalNotificationResult struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// NotificationListResponse is the in-app notification list for one user,
// newest first, with a derived unread count for badge display.
type NotificationListResponse struct {
	Notifications []InternalNotification `json:"notifications"`
	UnreadCount   int                    `json:"unread_count"`
}

var (
	// ErrNoUsers is returned when internal-notification target resolution
	// yields zero user ids.
	ErrNoUsers = errors.New("no users found")

	// ErrNotificationNotFound covers both "does not exist" and "belongs to
	// another user"; the two cases are intentionally indistinguishable.
	ErrNotificationNotFound = errors.New("notification not found")
)
