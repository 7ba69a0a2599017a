package model

import (
	"errors"
	"time"
)

// Device represents a user's registered device for push notifications.
// A user may have multiple devices; the (user_id, device_id) pair is the
// upsert identity. The FCM token rotates over a device's lifetime and the
// latest write wins.
type Device struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"-"`
	DeviceID  string    `db:"device_id" json:"device_id"`
	FCMToken  string    `db:"fcm_token" json:"-"` // never exposed in responses
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// RegisterDeviceRequest is the request body for registering a device.
type RegisterDeviceRequest struct {
	DeviceID string `json:"device_id"`
	FCMToken string `json:"fcm_token"`
}

// DeviceListResponse is the caller's registered devices, newest activity first.
type DeviceListResponse struct {
	Devices []Device `json:"devices"`
}

// ErrNoDevices is returned when push target resolution yields zero tokens.
var ErrNoDevices = errors.New("no devices found")
