package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/mtlprog/kindroute/internal/config"
	"github.com/mtlprog/kindroute/internal/domain"
)

// NotificationStore reads the notification outbox.
// Implemented by repository.OutboxRepository and memstore.Store.
type NotificationStore interface {
	ListNotifications(ctx context.Context, recipient domain.EntityRef, limit int) ([]*domain.Notification, error)
}

// NotificationService exposes a recipient's notification feed.
type NotificationService struct {
	store NotificationStore
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(store NotificationStore) *NotificationService {
	return &NotificationService{store: store}
}

// List returns up to limit of the recipient's notifications, newest first,
// whatever their delivery status. A non-positive limit selects the default;
// larger limits are capped.
func (s *NotificationService) List(ctx context.Context, recipient domain.EntityRef, limit int) ([]*domain.Notification, error) {
	if !recipient.Kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidEntityKind, recipient.Kind)
	}
	if strings.TrimSpace(recipient.ID) == "" {
		return nil, fmt.Errorf("%w: entity id", domain.ErrMissingField)
	}

	switch {
	case limit <= 0:
		limit = config.DefaultNotificationLimit
	case limit > config.MaxNotificationLimit:
		limit = config.MaxNotificationLimit
	}

	list, err := s.store.ListNotifications(ctx, recipient, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications for %s: %w", recipient, err)
	}
	if list == nil {
		list = []*domain.Notification{}
	}
	return list, nil
}
