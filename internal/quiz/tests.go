package quiz

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/quizgenius/backend/internal/database"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

type TestInput struct {
	Title            string
	Description      string
	TimeLimitMinutes int
	// MaxAttempts defaults to DefaultMaxAttempts when nil. 0 is unlimited.
	MaxAttempts *int
}

// TestPatch updates the fields that are not nil.
type TestPatch struct {
	Title            *string
	Description      *string
	TimeLimitMinutes *int
	MaxAttempts      *int
}

func validateTest(test *database.Test) error {
	test.Title = strings.TrimSpace(test.Title)
	test.Description = strings.TrimSpace(test.Description)

	switch {
	case test.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidTest)
	case utf8.RuneCountInString(test.Title) > MaxTitleLength:
		return fmt.Errorf("%w: title is longer than %d characters", ErrInvalidTest, MaxTitleLength)
	case test.TimeLimitMinutes < 0 || test.TimeLimitMinutes > MaxTimeLimitMinutes:
		return fmt.Errorf("%w: time limit must be between 0 and %d minutes", ErrInvalidTest, MaxTimeLimitMinutes)
	case test.MaxAttempts < 0 || test.MaxAttempts > MaxAttemptsLimit:
		return fmt.Errorf("%w: max attempts must be between 0 and %d", ErrInvalidTest, MaxAttemptsLimit)
	}

	return nil
}

func (s *Service) CreateTest(ctx context.Context, ownerID int, input TestInput) (*database.Test, error) {
	ctx, span := tracer.Start(ctx, "CreateTest",
		trace.WithAttributes(attribute.Int("user.id", ownerID)))
	defer span.End()

	test := &database.Test{
		OwnerID:          ownerID,
		Title:            input.Title,
		Description:      input.Description,
		TimeLimitMinutes: input.TimeLimitMinutes,
		MaxAttempts:      DefaultMaxAttempts,
	}
	if input.MaxAttempts != nil {
		test.MaxAttempts = *input.MaxAttempts
	}

	if err := validateTest(test); err != nil {
		span.SetStatus(otelcodes.Error, "Invalid test")
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(test).Error; err != nil {
		span.SetStatus(otelcodes.Error, "Failed to create test")
		span.RecordError(err)
		return nil, fmt.Errorf("create test: %w", err)
	}

	span.SetAttributes(attribute.Int("test.id", test.ID))
	span.SetStatus(otelcodes.Ok, "Test created")
	return test, nil
}

func (s *Service) UpdateTest(ctx context.Context, ownerID, testID int, patch TestPatch) (*database.Test, error) {
	ctx, span := tracer.Start(ctx, "UpdateTest",
		trace.WithAttributes(attribute.Int("test.id", testID)))
	defer span.End()

	var test *database.Test
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		test, err = findEditableTest(tx, ownerID, testID)
		if err != nil {
			return err
		}

		if patch.Title != nil {
			test.Title = *patch.Title
		}
		if patch.Description != nil {
			test.Description = *patch.Description
		}
		if patch.TimeLimitMinutes != nil {
			test.TimeLimitMinutes = *patch.TimeLimitMinutes
		}
		if patch.MaxAttempts != nil {
			test.MaxAttempts = *patch.MaxAttempts
		}

		if err := validateTest(test); err != nil {
			return err
		}

		return tx.Model(test).Select("title", "description", "time_limit_minutes", "max_attempts").Updates(test).Error
	})
	if err != nil {
		span.SetStatus(otelcodes.Error, "Failed to update test")
		if isDomainError(err) {
			return nil, err
		}
		span.RecordError(err)
		return nil, fmt.Errorf("update test: %w", err)
	}

	span.SetStatus(otelcodes.Ok, "Test updated")
	return test, nil
}

// DeleteTest removes an unpublished test with its questions, attempts and responses.
func (s *Service) DeleteTest(ctx context.Context, ownerID, testID int) error {
	ctx, span := tracer.Start(ctx, "DeleteTest",
		trace.WithAttributes(attribute.Int("test.id", testID)))
	defer span.End()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		test, err := findTest(tx, ownerID, testID)
		if err != nil {
			return err
		}
		if test.Published {
			return ErrTestPublished
		}

		attempts := tx.Model(&database.Attempt{}).Select("id").Where("test_id = ?", testID)
		if err := tx.Where("attempt_id IN (?)", attempts).Delete(&database.Response{}).Error; err != nil {
			return err
		}
		if err := tx.Where("test_id = ?", testID).Delete(&database.Attempt{}).Error; err != nil {
			return err
		}
		if err := tx.Where("test_id = ?", testID).Delete(&database.Question{}).Error; err != nil {
			return err
		}

		return tx.Delete(test).Error
	})
	if err != nil {
		span.SetStatus(otelcodes.Error, "Failed to delete test")
		if isDomainError(err) {
			return err
		}
		span.RecordError(err)
		return fmt.Errorf("delete test: %w", err)
	}

	span.SetStatus(otelcodes.Ok, "Test deleted")
	return nil
}

// GetTest returns a test of the owner with its questions, answers included.
func (s *Service) GetTest(ctx context.Context, ownerID, testID int) (*database.Test, error) {
	db := s.db.WithContext(ctx)

	test, err := findTest(db, ownerID, testID)
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("get test: %w", err)
	}

	test.Questions, err = loadQuestions(db, test.ID)
	if err != nil {
		return nil, fmt.Errorf("get questions: %w", err)
	}

	return test, nil
}

type TestSummary struct {
	database.Test
	QuestionCount int
	AttemptCount  int
}

// ListTests returns the tests of the owner, most recently updated first.
func (s *Service) ListTests(ctx context.Context, ownerID int) ([]TestSummary, error) {
	db := s.db.WithContext(ctx)

	var tests []database.Test
	if err := db.Where("owner_id = ?", ownerID).Order("updated_at DESC, id DESC").Find(&tests).Error; err != nil {
		return nil, fmt.Errorf("list tests: %w", err)
	}
	if len(tests) == 0 {
		return []TestSummary{}, nil
	}

	ids := make([]int, len(tests))
	for i, test := range tests {
		ids[i] = test.ID
	}

	questionCounts, err := countByTest(db.Model(&database.Question{}), ids)
	if err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}
	attemptCounts, err := countByTest(db.Model(&database.Attempt{}), ids)
	if err != nil {
		return nil, fmt.Errorf("count attempts: %w", err)
	}

	summaries := make([]TestSummary, len(tests))
	for i, test := range tests {
		summaries[i] = TestSummary{
			Test:          test,
			QuestionCount: questionCounts[test.ID],
			AttemptCount:  attemptCounts[test.ID],
		}
	}

	return summaries, nil
}

func countByTest(query *gorm.DB, testIDs []int) (map[int]int, error) {
	var rows []struct {
		TestID int
		Count  int
	}

	err := query.
		Select("test_id, COUNT(*) AS count").
		Where("test_id IN ?", testIDs).
		Group("test_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[int]int, len(rows))
	for _, row := range rows {
		counts[row.TestID] = row.Count
	}
	return counts, nil
}

// DuplicateTest copies a test of the owner and its questions into a new unpublished test.
func (s *Service) DuplicateTest(ctx context.Context, ownerID, testID int) (*database.Test, error) {
	ctx, span := tracer.Start(ctx, "DuplicateTest",
		trace.WithAttributes(attribute.Int("test.id", testID)))
	defer span.End()

	var duplicate *database.Test
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		original, err := findTest(tx, ownerID, testID)
		if err != nil {
			return err
		}

		questions, err := loadQuestions(tx, original.ID)
		if err != nil {
			return err
		}

		title := []rune(original.Title + " (copy)")
		if len(title) > MaxTitleLength {
			title = title[:MaxTitleLength]
		}

		duplicate = &database.Test{
			OwnerID:          ownerID,
			Title:            string(title),
			Description:      original.Description,
			TimeLimitMinutes: original.TimeLimitMinutes,
			MaxAttempts:      original.MaxAttempts,
			SourceDocumentID: original.SourceDocumentID,
		}
		if err := tx.Create(duplicate).Error; err != nil {
			return err
		}

		for i, question := range questions {
			question.ID = 0
			question.TestID = duplicate.ID
			question.Position = i + 1
			question.CreatedAt = time.Time{}
			question.UpdatedAt = time.Time{}
			questions[i] = question
		}
		if len(questions) > 0 {
			if err := tx.Create(&questions).Error; err != nil {
				return err
			}
		}

		duplicate.Questions = questions
		return nil
	})
	if err != nil {
		span.SetStatus(otelcodes.Error, "Failed to duplicate test")
		if isDomainError(err) {
			return nil, err
		}
		span.RecordError(err)
		return nil, fmt.Errorf("duplicate test: %w", err)
	}

	span.SetAttributes(attribute.Int("test.duplicate_id", duplicate.ID))
	span.SetStatus(otelcodes.Ok, "Test duplicated")
	return duplicate, nil
}
