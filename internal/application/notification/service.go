package notification

import (
	"context"
	"fmt"

	"github.com/homehive/homehive-api/internal/domain"
)

type Service interface {
	ListUnread(ctx context.Context, userID string) ([]domain.Notification, error)
	MarkAsRead(ctx context.Context, userID, notificationID string) (*domain.Notification, error)
}

type notificationStore interface {
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	ListUnread(ctx context.Context, userID string) ([]domain.Notification, error)
	MarkAsRead(ctx context.Context, notificationID string) (*domain.Notification, error)
}

type service struct {
	notifications notificationStore
}

func NewService(notifications notificationStore) Service {
	return &service{notifications: notifications}
}

func (s *service) ListUnread(ctx context.Context, userID string) ([]domain.Notification, error) {
	return s.notifications.ListUnread(ctx, userID)
}

// MarkAsRead flips the read flag after checking the notification belongs to
// the caller.
func (s *service) MarkAsRead(ctx context.Context, userID, notificationID string) (*domain.Notification, error) {
	n, err := s.notifications.Get(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, fmt.Errorf("notification %s belongs to another user: %w", notificationID, domain.ErrForbidden)
	}
	return s.notifications.MarkAsRead(ctx, notificationID)
}
