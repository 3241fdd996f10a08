// Package events records domain events and fans them out to analytics and metrics.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quizgenius/backend/internal/database"
	"github.com/quizgenius/backend/internal/workers"
	"gorm.io/gorm"
)

// EventService is the service for triggering events.
type EventService struct {
	db *gorm.DB

	handlers []EventHandler
}

// NewEventService creates a new EventService dispatching to handlers in order.
func NewEventService(db *gorm.DB, handlers ...EventHandler) *EventService {
	return &EventService{
		db:       db,
		handlers: handlers,
	}
}

// Event is the event to be triggered.
type Event struct {
	Type    EventType
	Payload map[string]any
	UserID  int
}

// EventHandler is called for every persisted event.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *database.Event) error
}

// TriggerEvent persists and dispatches an event in the background.
//
// The request context may be done before the worker runs, so only its values are kept.
// A nil EventService drops the event.
func (s *EventService) TriggerEvent(ctx context.Context, event Event) {
	if s == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	workers.Global.Go(func() {
		if err := s.triggerEvent(ctx, event); err != nil {
			slog.Error("failed to trigger event", "error", err, "event_type", event.Type, "user_id", event.UserID)
		}
	})
}

func (s *EventService) triggerEvent(ctx context.Context, event Event) error {
	record := &database.Event{
		Type:        string(event.Type),
		UserID:      event.UserID,
		Payload:     event.Payload,
		TriggeredAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("save event: %w", err)
	}

	for _, handler := range s.handlers {
		if err := handler.HandleEvent(ctx, record); err != nil {
			return fmt.Errorf("handle event: %w", err)
		}
	}

	return nil
}
