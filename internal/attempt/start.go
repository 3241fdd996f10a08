package attempt

import (
	"context"
	"fmt"

	"github.com/quizgenius/backend/internal/database"
	"github.com/quizgenius/backend/internal/events"
	"github.com/quizgenius/backend/internal/metrics"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Start begins an attempt of the student at a published test.
// An attempt already in progress is returned as is; created reports whether a new one was made.
func (s *Service) Start(ctx context.Context, studentID, testID int) (attempt *database.Attempt, created bool, err error) {
	ctx, span := tracer.Start(ctx, "Start",
		trace.WithAttributes(
			attribute.Int("user.id", studentID),
			attribute.Int("test.id", testID),
		))
	defer span.End()

	now := s.now()
	var closedStale, limitReached bool

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// the row lock serializes starts at the same test on postgres; sqlite has a single writer
		var test database.Test
		if err := tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
			Where("id = ? AND published = ?", testID, true).
			First(&test).Error; err != nil {
			if database.IsNotFound(err) {
				return ErrTestNotFound
			}
			return err
		}

		var open database.Attempt
		err := tx.Where("test_id = ? AND student_id = ? AND status = ?", testID, studentID, database.AttemptStatusInProgress).
			Order("id DESC").
			First(&open).Error
		switch {
		case err == nil && !expired(&open, now):
			attempt = &open
			return nil
		case err == nil:
			closed, err := finalize(tx, &open, nil, database.AttemptStatusExpired, now)
			if err != nil {
				return err
			}
			closedStale = closed
		case !database.IsNotFound(err):
			return err
		}

		if test.MaxAttempts > 0 {
			var count int64
			if err := tx.Model(&database.Attempt{}).Where("test_id = ? AND student_id = ?", testID, studentID).Count(&count).Error; err != nil {
				return err
			}
			if count >= int64(test.MaxAttempts) {
				// commit so that a stale attempt closed above stays closed
				limitReached = true
				return nil
			}
		}

		attempt = &database.Attempt{
			TestID:    testID,
			StudentID: studentID,
			Status:    database.AttemptStatusInProgress,
			StartedAt: now,
		}
		if limit := test.TimeLimit(); limit > 0 {
			deadline := now.Add(limit)
			attempt.Deadline = &deadline
		}
		created = true

		return tx.Create(attempt).Error
	})
	if err == nil && closedStale {
		metrics.RecordAttemptClosed(string(database.AttemptStatusExpired))
	}
	if err == nil && limitReached {
		err = ErrAttemptLimit
	}
	if err != nil {
		span.SetStatus(otelcodes.Error, "Failed to start attempt")
		if isDomainError(err) {
			return nil, false, err
		}
		span.RecordError(err)
		return nil, false, fmt.Errorf("start attempt: %w", err)
	}

	if created {
		s.eventService.TriggerEvent(ctx, events.Event{
			Type:   events.EventTypeAttemptStarted,
			UserID: studentID,
			Payload: map[string]any{
				"test_id":    testID,
				"attempt_id": attempt.ID,
			},
		})
	}

	span.SetAttributes(attribute.Int("attempt.id", attempt.ID), attribute.Bool("attempt.created", created))
	span.SetStatus(otelcodes.Ok, "Attempt started")
	return attempt, created, nil
}
