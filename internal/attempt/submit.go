package attempt

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quizgenius/backend/internal/database"
	"github.com/quizgenius/backend/internal/events"
	"github.com/quizgenius/backend/internal/metrics"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// Submit grades and closes an attempt of the student.
//
// answers, keyed by question ID, are merged over the saved answers. When the
// deadline has passed they are ignored and the attempt is graded with what was
// saved in time. Only one of several concurrent submissions succeeds; the others
// get ErrAttemptClosed.
func (s *Service) Submit(ctx context.Context, studentID, attemptID int, answers map[int]*int) (*database.Attempt, error) {
	ctx, span := tracer.Start(ctx, "Submit",
		trace.WithAttributes(
			attribute.Int("user.id", studentID),
			attribute.Int("attempt.id", attemptID),
		))
	defer span.End()

	now := s.now()
	var attempt *database.Attempt

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		attempt, err = findAttempt(tx, studentID, attemptID)
		if err != nil {
			return err
		}
		if attempt.Closed() {
			return ErrAttemptClosed
		}

		if expired(attempt, now) {
			answers = nil
		} else if len(answers) > 0 {
			questions, err := questionsByID(tx, attempt.TestID)
			if err != nil {
				return err
			}
			for questionID, choice := range answers {
				if err := checkChoice(questions, questionID, choice); err != nil {
					return fmt.Errorf("question %d: %w", questionID, err)
				}
			}
		}

		closed, err := finalize(tx, attempt, answers, database.AttemptStatusSubmitted, now)
		if err != nil {
			return err
		}
		if !closed {
			return ErrAttemptClosed
		}
		return nil
	})
	if err != nil {
		span.SetStatus(otelcodes.Error, "Failed to submit attempt")
		if isDomainError(err) {
			return nil, err
		}
		span.RecordError(err)
		return nil, fmt.Errorf("submit attempt: %w", err)
	}

	metrics.RecordAttemptClosed(string(attempt.Status))
	s.eventService.TriggerEvent(ctx, events.Event{
		Type:   events.EventTypeAttemptSubmitted,
		UserID: studentID,
		Payload: map[string]any{
			"test_id":    attempt.TestID,
			"attempt_id": attempt.ID,
			"score":      attempt.Score,
			"timed_out":  attempt.TimedOut,
		},
	})

	span.SetAttributes(attribute.Float64("attempt.score", attempt.Score))
	span.SetStatus(otelcodes.Ok, "Attempt submitted")
	return attempt, nil
}

// FinalizeExpired closes every attempt in progress whose deadline passed before now,
// grading the answers saved in time. It returns how many attempts it closed.
func (s *Service) FinalizeExpired(ctx context.Context, now time.Time) (int, error) {
	ctx, span := tracer.Start(ctx, "FinalizeExpired")
	defer span.End()

	now = now.UTC()

	var candidates []database.Attempt
	err := s.db.WithContext(ctx).
		Where("status = ? AND deadline IS NOT NULL AND deadline < ?", database.AttemptStatusInProgress, now.Add(-SubmitGrace)).
		Find(&candidates).Error
	if err != nil {
		span.SetStatus(otelcodes.Error, "Failed to list expired attempts")
		span.RecordError(err)
		return 0, fmt.Errorf("list expired attempts: %w", err)
	}

	closedCount := 0
	for i := range candidates {
		attempt := &candidates[i]

		var closed bool
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			closed, err = finalize(tx, attempt, nil, database.AttemptStatusExpired, now)
			return err
		})
		if err != nil {
			slog.Error("failed to finalize expired attempt", "error", err, "attempt_id", attempt.ID)
			span.RecordError(err)
			continue
		}
		if !closed {
			continue
		}

		closedCount++
		metrics.RecordAttemptClosed(string(database.AttemptStatusExpired))
		s.eventService.TriggerEvent(ctx, events.Event{
			Type:   events.EventTypeAttemptExpired,
			UserID: attempt.StudentID,
			Payload: map[string]any{
				"test_id":    attempt.TestID,
				"attempt_id": attempt.ID,
				"score":      attempt.Score,
			},
		})
	}

	span.SetAttributes(attribute.Int("attempts.closed", closedCount))
	span.SetStatus(otelcodes.Ok, "Expired attempts finalized")
	return closedCount, nil
}

// RunExpiryLoop finalizes expired attempts every interval until ctx is done.
func (s *Service) RunExpiryLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			closed, err := s.FinalizeExpired(ctx, s.now())
			if err != nil {
				slog.Error("failed to finalize expired attempts", "error", err)
				continue
			}
			if closed > 0 {
				slog.Info("finalized expired attempts", "count", closed)
			}
		}
	}
}
