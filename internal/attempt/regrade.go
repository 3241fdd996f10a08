package attempt

import (
	"context"
	"fmt"

	"github.com/quizgenius/backend/internal/database"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

type RegradeResult struct {
	AttemptID int
	Before    float64
	After     float64
}

func (r RegradeResult) Changed() bool {
	return r.Before != r.After
}

// ClosedAttemptIDs lists the closed attempts, of one test or of all tests when testID is 0.
func (s *Service) ClosedAttemptIDs(ctx context.Context, testID int) ([]int, error) {
	query := s.db.WithContext(ctx).Model(&database.Attempt{}).
		Where("status <> ?", database.AttemptStatusInProgress)
	if testID > 0 {
		query = query.Where("test_id = ?", testID)
	}

	var ids []int
	if err := query.Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list closed attempts: %w", err)
	}

	return ids, nil
}

// Regrade grades a closed attempt again with its stored responses, for example after
// a correct answer was fixed. With dryRun the new grade is computed but not saved.
func (s *Service) Regrade(ctx context.Context, attemptID int, dryRun bool) (RegradeResult, error) {
	ctx, span := tracer.Start(ctx, "Regrade",
		trace.WithAttributes(
			attribute.Int("attempt.id", attemptID),
			attribute.Bool("dry_run", dryRun),
		))
	defer span.End()

	result := RegradeResult{AttemptID: attemptID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var attempt database.Attempt
		if err := tx.First(&attempt, attemptID).Error; err != nil {
			if database.IsNotFound(err) {
				return ErrAttemptNotFound
			}
			return err
		}
		if !attempt.Closed() {
			return ErrAttemptOpen
		}

		outcome, stored, err := grade(tx, &attempt, nil)
		if err != nil {
			return err
		}
		result.Before = attempt.Score
		result.After = outcome.Score

		if dryRun {
			return nil
		}

		applyOutcome(&attempt, outcome)
		err = tx.Model(&attempt).
			Select("earned_points", "total_points", "correct_count", "question_count", "score").
			Updates(&attempt).Error
		if err != nil {
			return err
		}

		for _, item := range outcome.Items {
			response, ok := stored[item.QuestionID]
			if !ok || response.Correct == item.Correct {
				continue
			}
			if err := tx.Model(&response).Update("correct", item.Correct).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.SetStatus(otelcodes.Error, "Failed to regrade attempt")
		if isDomainError(err) {
			return RegradeResult{}, err
		}
		span.RecordError(err)
		return RegradeResult{}, fmt.Errorf("regrade attempt: %w", err)
	}

	span.SetAttributes(attribute.Float64("attempt.score_before", result.Before), attribute.Float64("attempt.score_after", result.After))
	span.SetStatus(otelcodes.Ok, "Attempt regraded")
	return result, nil
}

// RegradeTest regrades every closed attempt of a test and returns the results in attempt order.
func (s *Service) RegradeTest(ctx context.Context, testID int) ([]RegradeResult, error) {
	ctx, span := tracer.Start(ctx, "RegradeTest",
		trace.WithAttributes(attribute.Int("test.id", testID)))
	defer span.End()

	ids, err := s.ClosedAttemptIDs(ctx, testID)
	if err != nil {
		span.SetStatus(otelcodes.Error, "Failed to list attempts")
		span.RecordError(err)
		return nil, err
	}

	results := make([]RegradeResult, 0, len(ids))
	for _, id := range ids {
		result, err := s.Regrade(ctx, id, false)
		if err != nil {
			span.SetStatus(otelcodes.Error, "Failed to regrade attempt")
			return results, err
		}
		results = append(results, result)
	}

	span.SetAttributes(attribute.Int("attempts.regraded", len(results)))
	span.SetStatus(otelcodes.Ok, "Test regraded")
	return results, nil
}
