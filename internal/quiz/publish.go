package quiz

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/quizgenius/backend/internal/database"
	"github.com/quizgenius/backend/internal/events"
	"github.com/quizgenius/backend/internal/generation"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

var errNoQuestions = errors.New("test has no questions")

// checkPublishable returns every reason the questions cannot be published.
func checkPublishable(questions []database.Question) error {
	if len(questions) == 0 {
		return errNoQuestions
	}

	var result *multierror.Error
	for _, question := range questions {
		if err := generation.ValidateQuestion(question.Type, question.Text, question.Options, question.CorrectIndex); err != nil {
			result = multierror.Append(result, fmt.Errorf("question %d: %w", question.Position, err))
		}
		if question.Points < 1 {
			result = multierror.Append(result, fmt.Errorf("question %d: %w", question.Position, ErrInvalidPoints))
		}
	}

	return result.ErrorOrNil()
}

// Publish makes a test visible in the catalog. Publishing a published test is a no-op.
func (s *Service) Publish(ctx context.Context, ownerID, testID int) (*database.Test, error) {
	ctx, span := tracer.Start(ctx, "Publish",
		trace.WithAttributes(attribute.Int("test.id", testID)))
	defer span.End()

	var (
		test      *database.Test
		published bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		test, err = findTest(tx, ownerID, testID)
		if err != nil {
			return err
		}

		test.Questions, err = loadQuestions(tx, testID)
		if err != nil {
			return err
		}
		if test.Published {
			return nil
		}

		if err := checkPublishable(test.Questions); err != nil {
			return fmt.Errorf("%w: %w", ErrNotPublishable, err)
		}

		now := tx.NowFunc()
		test.Published = true
		test.PublishedAt = &now
		published = true

		return tx.Model(test).Select("published", "published_at").Updates(test).Error
	})
	if err != nil {
		span.SetStatus(otelcodes.Error, "Failed to publish test")
		if isDomainError(err) {
			return nil, err
		}
		span.RecordError(err)
		return nil, fmt.Errorf("publish test: %w", err)
	}

	if published {
		s.eventService.TriggerEvent(ctx, events.Event{
			Type:   events.EventTypeTestPublished,
			UserID: ownerID,
			Payload: map[string]any{
				"test_id":   testID,
				"questions": len(test.Questions),
			},
		})
	}

	span.SetStatus(otelcodes.Ok, "Test published")
	return test, nil
}

// Unpublish hides a test from the catalog. Attempts in progress can still be submitted.
func (s *Service) Unpublish(ctx context.Context, ownerID, testID int) (*database.Test, error) {
	ctx, span := tracer.Start(ctx, "Unpublish",
		trace.WithAttributes(attribute.Int("test.id", testID)))
	defer span.End()

	db := s.db.WithContext(ctx)

	test, err := findTest(db, ownerID, testID)
	if err == nil && test.Published {
		test.Published = false
		err = db.Model(test).Select("published").Updates(test).Error
	}
	if err != nil {
		span.SetStatus(otelcodes.Error, "Failed to unpublish test")
		if isDomainError(err) {
			return nil, err
		}
		span.RecordError(err)
		return nil, fmt.Errorf("unpublish test: %w", err)
	}

	span.SetStatus(otelcodes.Ok, "Test unpublished")
	return test, nil
}
