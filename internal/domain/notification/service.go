package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Writer is the append-only surface other domains use to log notifications.
type Writer interface {
	Append(ctx context.Context, userID uuid.UUID, appointmentID *uuid.UUID, notifType, message string) error
}

type Service struct {
	notifications Repository
	logger        zerolog.Logger
}

func NewService(notifications Repository, logger zerolog.Logger) *Service {
	return &Service{notifications: notifications, logger: logger}
}

// Append writes one notification record. It is the Writer implementation used
// by the queue engine as a side effect of queue mutations.
func (s *Service) Append(ctx context.Context, userID uuid.UUID, appointmentID *uuid.UUID, notifType, message string) error {
	if userID == uuid.Nil {
		return fmt.Errorf("user_id is required")
	}
	if !ValidType(notifType) {
		return fmt.Errorf("invalid notification type: %s", notifType)
	}
	if message == "" {
		return fmt.Errorf("message is required")
	}
	n := &Notification{
		UserID:        userID,
		AppointmentID: appointmentID,
		Type:          notifType,
		Message:       message,
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		return fmt.Errorf("appending notification: %w", err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Notification, error) {
	return s.notifications.GetByID(ctx, id)
}

func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Notification, int, error) {
	return s.notifications.ListByUser(ctx, userID, limit, offset)
}

func (s *Service) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.notifications.CountUnread(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, id uuid.UUID) error {
	return s.notifications.MarkRead(ctx, id)
}

func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.notifications.MarkAllRead(ctx, userID)
}

// Purge removes notifications older than the retention window.
func (s *Service) Purge(ctx context.Context, days int) error {
	if days <= 0 {
		return fmt.Errorf("retention days must be positive")
	}
	removed, err := s.notifications.DeleteOlderThan(ctx, days)
	if err != nil {
		return err
	}
	if removed > 0 {
		s.logger.Info().Int64("removed", removed).Int("days", days).Msg("purged old notifications")
	}
	return nil
}
