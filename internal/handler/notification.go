package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"pushnotify/internal/httputil"
	"pushnotify/internal/model"
	"pushnotify/internal/service"
	"pushnotify/internal/transport/http/middleware"
)

// NotificationHandler exposes push dispatch, internal notifications, and
// device registration.
type NotificationHandler struct {
	pushService  *service.PushService
	notifService *service.NotificationService
}

func NewNotificationHandler(pushService *service.PushService, notifService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		pushService:  pushService,
		notifService: notifService,
	}
}

// RegisterDevice handles POST /devices
// Upserts the caller's device keyed by (user, device_id).
func (h *NotificationHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req model.RegisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	if req.DeviceID == "" {
		httputil.WriteBadRequest(w, "device_id is required")
		return
	}
	if req.FCMToken == "" {
		httputil.WriteBadRequest(w, "fcm_token is required")
		return
	}

	if err := h.pushService.RegisterDevice(r.Context(), userID, &req); err != nil {
		log.Printf("[ERROR] Register device: user=%d err=%v", userID, err)
		httputil.WriteInternalError(w, "Device registration failed")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Device registered successfully",
	})
}

// ListDevices handles GET /devices
// Returns the caller's registered devices, most recently updated first.
func (h *NotificationHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	devices, err := h.pushService.ListDevices(r.Context(), userID)
	if err != nil {
		log.Printf("[ERROR] List devices: user=%d err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to list devices")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.DeviceListResponse{Devices: devices})
}

// SendPush handles POST /notifications/push
// Dispatches a push to the resolved target (user id, username, or broadcast).
func (h *NotificationHandler) SendPush(w http.ResponseWriter, r *http.Request) {
	var req model.PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	if req.Title == "" {
		httputil.WriteBadRequest(w, "title is required")
		return
	}
	if req.Body == "" {
		httputil.WriteBadRequest(w, "body is required")
		return
	}

	result, err := h.pushService.Send(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrNoDevices):
			httputil.WriteNotFound(w, "No devices found")
		case errors.Is(err, service.ErrPushNotConfigured):
			log.Printf("[ERROR] Send push: %v", err)
			httputil.WriteInternalError(w, "Push provider not configured")
		default:
			log.Printf("[ERROR] Send push: %v", err)
			httputil.WriteInternalError(w, "Failed to send notification")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// SendInternal handles POST /notifications/internal
// Writes one in-app notification row per resolved target user.
func (h *NotificationHandler) SendInternal(w http.ResponseWriter, r *http.Request) {
	var req model.InternalNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	if req.Title == "" {
		httputil.WriteBadRequest(w, "title is required")
		return
	}
	if req.Message == "" {
		httputil.WriteBadRequest(w, "message is required")
		return
	}

	result, err := h.notifService.SendInternal(r.Context(), &req)
	if err != nil {
		if errors.Is(err, model.ErrNoUsers) {
			httputil.WriteNotFound(w, "No users found")
			return
		}
		log.Printf("[ERROR] Send internal notification: %v", err)
		httputil.WriteInternalError(w, "Failed to send internal notification")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// List handles GET /notifications
// Returns the caller's notifications newest-first with a derived unread count.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	response, err := h.notifService.List(r.Context(), userID)
	if err != nil {
		log.Printf("[ERROR] List notifications: user=%d err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to get notifications")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, response)
}

// MarkRead handles PUT /notifications/{id}/read
// Marks one notification owned by the caller as read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	notificationID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid notification id")
		return
	}

	if err := h.notifService.MarkRead(r.Context(), notificationID, userID); err != nil {
		if errors.Is(err, model.ErrNotificationNotFound) {
			httputil.WriteNotFound(w, "Notification not found")
			return
		}
		log.Printf("[ERROR] Mark notification read: user=%d id=%d err=%v", userID, notificationID, err)
		httputil.WriteInternalError(w, "Failed to mark notification as read")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Notification marked as read",
	})
}

// GetUnreadCount handles GET /notifications/unread-count
// Returns the count of unread notifications (for badge display).
func (h *NotificationHandler) GetUnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	count, err := h.notifService.GetUnreadCount(r.Context(), userID)
	if err != nil {
		log.Printf("[ERROR] Get unread count: user=%d err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to get unread count")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]int{
		"unread_count": count,
	})
}
