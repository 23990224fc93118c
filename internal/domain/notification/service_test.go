package notification

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type mockRepo struct {
	notifications map[uuid.UUID]*Notification
}

func newMockRepo() *mockRepo {
	return &mockRepo{notifications: make(map[uuid.UUID]*Notification)}
}

func (m *mockRepo) Create(_ context.Context, n *Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	n.CreatedAt = time.Now()
	m.notifications[n.ID] = n
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Notification, error) {
	n, ok := m.notifications[id]
	if !ok {
		return nil, fmt.Errorf("notification not found")
	}
	return n, nil
}

func (m *mockRepo) ListByUser(_ context.Context, userID uuid.UUID, _, _ int) ([]*Notification, int, error) {
	var items []*Notification
	for _, n := range m.notifications {
		if n.UserID == userID {
			items = append(items, n)
		}
	}
	return items, len(items), nil
}

func (m *mockRepo) CountUnread(_ context.Context, userID uuid.UUID) (int, error) {
	count := 0
	for _, n := range m.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (m *mockRepo) MarkRead(_ context.Context, id uuid.UUID) error {
	n, ok := m.notifications[id]
	if !ok {
		return fmt.Errorf("notification not found")
	}
	n.Read = true
	return nil
}

func (m *mockRepo) MarkAllRead(_ context.Context, userID uuid.UUID) error {
	for _, n := range m.notifications {
		if n.UserID == userID {
			n.Read = true
		}
	}
	return nil
}

func (m *mockRepo) DeleteOlderThan(_ context.Context, _ int) (int64, error) {
	return 0, nil
}

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	return NewService(repo, zerolog.Nop()), repo
}

func TestAppendValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	if err := svc.Append(ctx, uuid.Nil, nil, TypeTurnNow, "your turn"); err == nil {
		t.Error("expected error for missing user_id")
	}
	if err := svc.Append(ctx, userID, nil, "bogus-type", "hello"); err == nil {
		t.Error("expected error for invalid type")
	}
	if err := svc.Append(ctx, userID, nil, TypeTurnNow, ""); err == nil {
		t.Error("expected error for empty message")
	}
	if err := svc.Append(ctx, userID, nil, TypeTurnNow, "your turn"); err != nil {
		t.Fatalf("valid notification should be appended: %v", err)
	}
}

func TestUnreadLifecycle(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	userID := uuid.New()
	apptID := uuid.New()

	for i := 0; i < 3; i++ {
		if err := svc.Append(ctx, userID, &apptID, TypeTurnApproaching, "almost there"); err != nil {
			t.Fatalf("appending notification: %v", err)
		}
	}

	count, err := svc.CountUnread(ctx, userID)
	if err != nil {
		t.Fatalf("counting unread: %v", err)
	}
	if count != 3 {
		t.Errorf("unread = %d, want 3", count)
	}

	if err := svc.MarkAllRead(ctx, userID); err != nil {
		t.Fatalf("marking all read: %v", err)
	}
	count, _ = svc.CountUnread(ctx, userID)
	if count != 0 {
		t.Errorf("unread after mark-all-read = %d, want 0", count)
	}

	for _, n := range repo.notifications {
		if !n.Read {
			t.Error("expected all notifications marked read")
		}
	}
}

func TestValidType(t *testing.T) {
	for _, typ := range []string{TypeBookingConfirmation, TypeTurnApproaching, TypeTurnNow, TypeAppointmentCancelled, TypeSystemAlert} {
		if !ValidType(typ) {
			t.Errorf("%s should be valid", typ)
		}
	}
	if ValidType("email") {
		t.Error("unknown type should be invalid")
	}
}
