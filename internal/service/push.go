package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"pushnotify/internal/model"
	"pushnotify/internal/repository"
)

// Fixed metadata attached to every push so the mobile client can route the
// tap. Values match what the Flutter client listens for.
const (
	pushClickAction = "FLUTTER_NOTIFICATION_CLICK"
	pushType        = "push_notification"
)

// ErrPushNotConfigured is returned when a push is requested but no FCM
// credentials were supplied at startup.
var ErrPushNotConfigured = errors.New("push provider not configured")

// PushService resolves push targets to device tokens and dispatches one
// message per token through the provider.
type PushService struct {
	deviceRepo repository.DeviceRepository
	sender     PushSender // nil when FCM credentials are absent
}

func NewPushService(deviceRepo repository.DeviceRepository, sender PushSender) *PushService {
	return &PushService{
		deviceRepo: deviceRepo,
		sender:     sender,
	}
}

// Send resolves the request's target into device tokens and attempts delivery
// to each token independently and sequentially. A failure on one token never
// prevents attempts on the remaining tokens; outcomes are folded into the
// aggregate result. The only error that escapes resolution is ErrNoDevices
// (zero recipients), which callers report as not found.
func (s *PushService) Send(ctx context.Context, req *model.PushRequest) (*model.PushResult, error) {
	if s.sender == nil {
		return nil, ErrPushNotConfigured
	}

	tokens, err := s.resolveTokens(ctx, req.UserID, req.Username)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, model.ErrNoDevices
	}

	log.Printf("[Push] Dispatching to %d tokens", len(tokens))

	data := map[string]string{
		"click_action": pushClickAction,
		"type":         pushType,
	}

	result := &model.PushResult{
		Message:    "Push notification sent",
		TokensUsed: len(tokens),
	}

	for i, token := range tokens {
		msgID, err := s.sender.Send(ctx, token, req.Title, req.Body, data)
		if err != nil {
			log.Printf("[Push] Token %d/%d failed: %v", i+1, len(tokens), err)
			result.FailureCount++
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		log.Printf("[Push] Token %d/%d sent: %s", i+1, len(tokens), msgID)
		result.SuccessCount++
	}

	log.Printf("[Push] Summary: success=%d failure=%d tokens=%d",
		result.SuccessCount, result.FailureCount, result.TokensUsed)

	return result, nil
}

// resolveTokens turns the targeting fields into a concrete token list.
// Precedence: explicit user id, then username, then broadcast to every
// token in the system. The result may be empty.
func (s *PushService) resolveTokens(ctx context.Context, userID *int64, username *string) ([]string, error) {
	switch {
	case userID != nil:
		tokens, err := s.deviceRepo.GetTokensByUserID(ctx, *userID)
		if err != nil {
			return nil, fmt.Errorf("resolve tokens by user id: %w", err)
		}
		return tokens, nil
	case username != nil:
		tokens, err := s.deviceRepo.GetTokensByUsername(ctx, *username)
		if err != nil {
			return nil, fmt.Errorf("resolve tokens by username: %w", err)
		}
		return tokens, nil
	default:
		tokens, err := s.deviceRepo.GetAllTokens(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve all tokens: %w", err)
		}
		return tokens, nil
	}
}

// RegisterDevice stores or updates a device's FCM token, keyed by
// (user, device_id). Called on login and whenever the client rotates
// its token.
func (s *PushService) RegisterDevice(ctx context.Context, userID int64, req *model.RegisterDeviceRequest) error {
	return s.deviceRepo.Upsert(ctx, userID, req.DeviceID, req.FCMToken)
}

// ListDevices returns the caller's registered devices.
func (s *PushService) ListDevices(ctx context.Context, userID int64) ([]model.Device, error) {
	devices, err := s.deviceRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if devices == nil {
		devices = []model.Device{}
	}
	return devices, nil
}
