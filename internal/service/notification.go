package service

import (
	"context"
	"fmt"
	"log"

	"pushnotify/internal/cache"
	"pushnotify/internal/model"
	"pushnotify/internal/repository"
)

// NotificationService handles in-app (internal) notifications: targeted and
// broadcast creation, listing with unread counts, and read-state updates.
type NotificationService struct {
	notifRepo   repository.NotificationRepository
	userRepo    repository.UserRepository
	unreadCache cache.UnreadCache // can be nil if Redis is not configured
}

func NewNotificationService(
	notifRepo repository.NotificationRepository,
	userRepo repository.UserRepository,
	unreadCache cache.UnreadCache,
) *NotificationService {
	return &NotificationService{
		notifRepo:   notifRepo,
		userRepo:    userRepo,
		unreadCache: unreadCache,
	}
}

// SendInternal resolves the target into user ids and writes one notification
// row per user, all inside a single transaction. Zero resolved users is
// reported as ErrNoUsers with no rows written.
func (s *NotificationService) SendInternal(ctx context.Context, req *model.InternalNotificationRequest) (*model.InternalNotificationResult, error) {
	userIDs, err := s.resolveUserIDs(ctx, req.UserID, req.Username)
	if err != nil {
		return nil, err
	}
	if len(userIDs) == 0 {
		return nil, model.ErrNoUsers
	}

	count, err := s.notifRepo.CreateBatch(ctx, userIDs, req.Title, req.Message)
	if err != nil {
		return nil, err
	}

	log.Printf("[Notification] Created %d internal notifications", count)
	s.invalidateUnread(ctx, userIDs...)

	return &model.InternalNotificationResult{
		Message: "Internal notifications sent",
		Count:   count,
	}, nil
}

// resolveUserIDs applies the targeting precedence: explicit id, then
// username lookup (zero or one match), then all users.
func (s *NotificationService) resolveUserIDs(ctx context.Context, userID *int64, username *string) ([]int64, error) {
	switch {
	case userID != nil:
		return []int64{*userID}, nil
	case username != nil:
		user, err := s.userRepo.GetByUsername(ctx, *username)
		if err != nil {
			if err == model.ErrUserNotFound {
				return nil, nil
			}
			return nil, fmt.Errorf("resolve user by username: %w", err)
		}
		return []int64{user.ID}, nil
	default:
		ids, err := s.userRepo.GetAllIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve all users: %w", err)
		}
		return ids, nil
	}
}

// List returns the user's notifications newest-first along with the unread
// count, which is derived from the fetched rows (no extra query).
func (s *NotificationService) List(ctx context.Context, userID int64) (*model.NotificationListResponse, error) {
	notifications, err := s.notifRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	unread := 0
	for _, n := range notifications {
		if !n.IsRead {
			unread++
		}
	}

	if s.unreadCache != nil {
		if err := s.unreadCache.Set(ctx, userID, unread); err != nil {
			log.Printf("[Notification] Unread cache set failed: user=%d err=%v", userID, err)
		}
	}

	if notifications == nil {
		notifications = []model.InternalNotification{}
	}

	return &model.NotificationListResponse{
		Notifications: notifications,
		UnreadCount:   unread,
	}, nil
}

// MarkRead flips is_read on one notification owned by the caller. A row that
// is missing or owned by another user surfaces identically as
// ErrNotificationNotFound.
func (s *NotificationService) MarkRead(ctx context.Context, notificationID, userID int64) error {
	if err := s.notifRepo.MarkRead(ctx, notificationID, userID); err != nil {
		return err
	}
	s.invalidateUnread(ctx, userID)
	return nil
}

// GetUnreadCount serves the badge count, preferring the Redis cache and
// falling back to a COUNT query on miss or cache error.
func (s *NotificationService) GetUnreadCount(ctx context.Context, userID int64) (int, error) {
	if s.unreadCache != nil {
		count, found, err := s.unreadCache.Get(ctx, userID)
		if err != nil {
			log.Printf("[Notification] Unread cache get failed: user=%d err=%v", userID, err)
		} else if found {
			return count, nil
		}
	}

	count, err := s.notifRepo.GetUnreadCount(ctx, userID)
	if err != nil {
		return 0, err
	}

	if s.unreadCache != nil {
		if err := s.unreadCache.Set(ctx, userID, count); err != nil {
			log.Printf("[Notification] Unread cache set failed: user=%d err=%v", userID, err)
		}
	}

	return count, nil
}

// invalidateUnread drops stale cached counts after a write. Cache errors are
// logged, never surfaced: the TTL bounds staleness.
func (s *NotificationService) invalidateUnread(ctx context.Context, userIDs ...int64) {
	if s.unreadCache == nil {
		return
	}
	if err := s.unreadCache.Invalidate(ctx, userIDs...); err != nil {
		log.Printf("[Notification] Unread cache invalidate failed: err=%v", err)
	}
}
