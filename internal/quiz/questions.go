package quiz

import (
	"context"
	"fmt"
	"strings"

	"github.com/quizgenius/backend/internal/database"
	"github.com/quizgenius/backend/internal/generation"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

type QuestionInput struct {
	Type         database.QuestionType
	Text         string
	Options      []string
	CorrectIndex int
	Explanation  string
	// Points defaults to 1 when nil.
	Points *int
}

// QuestionPatch updates the fields that are not nil.
type QuestionPatch struct {
	Type         *database.QuestionType
	Text         *string
	Options      []string
	CorrectIndex *int
	Explanation  *string
	Points       *int
}

// validateQuestion normalizes a question and checks it with the same rules generated questions follow.
func validateQuestion(question *database.Question) error {
	question.Text = strings.TrimSpace(question.Text)
	question.Explanation = strings.TrimSpace(question.Explanation)
	for i, option := range question.Options {
		question.Options[i] = strings.TrimSpace(option)
	}
	if question.Type == database.QuestionTypeTrueFalse && len(question.Options) == 0 {
		question.Options = append([]string(nil), generation.TrueFalseOptions...)
	}

	if question.Points < 1 || question.Points > MaxPoints {
		return ErrInvalidPoints
	}

	if err := generation.ValidateQuestion(question.Type, question.Text, question.Options, question.CorrectIndex); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidQuestion, err)
	}

	return nil
}

func (s *Service) AddQuestion(ctx context.Context, ownerID, testID int, input QuestionInput) (*database.Question, error) {
	ctx, span := tracer.Start(ctx, "AddQuestion",
		trace.WithAttributes(attribute.Int("test.id", testID)))
	defer span.End()

	question := &database.Question{
		TestID:       testID,
		Type:         input.Type,
		Text:         input.Text,
		Options:      append([]string(nil), input.Options...),
		CorrectIndex: input.CorrectIndex,
		Explanation:  input.Explanation,
		Points:       1,
		Source:       database.QuestionSourceManual,
	}
	if input.Points != nil {
		question.Points = *input.Points
	}

	if err := validateQuestion(question); err != nil {
		span.SetStatus(otelcodes.Error, "Invalid question")
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findEditableTest(tx, ownerID, testID); err != nil {
			return err
		}

		position, err := nextPosition(tx, testID)
		if err != nil {
			return err
		}
		question.Position = position

		if err := tx.Create(question).Error; err != nil {
			return err
		}
		return touchTest(tx, testID)
	})
	if err != nil {
		span.SetStatus(otelcodes.Error, "Failed to add question")
		if isDomainError(err) {
			return nil, err
		}
		span.RecordError(err)
		return nil, fmt.Errorf("add question: %w", err)
	}

	span.SetStatus(otelcodes.Ok, "Question added")
	return question, nil
}

func nextPosition(tx *gorm.DB, testID int) (int, error) {
	var position int

	err := tx.Model(&database.Question{}).
		Select("COALESCE(MAX(position), 0)").
		Where("test_id = ?", testID).
		Scan(&position).Error
	if err != nil {
		return 0, err
	}

	return position + 1, nil
}

// touchTest bumps the update time of a test after a change to its questions.
func touchTest(tx *gorm.DB, testID int) error {
	return tx.Model(&database.Test{}).Where("id = ?", testID).Update("updated_at", tx.NowFunc()).Error
}

func findQuestion(tx *gorm.DB, testID, questionID int) (*database.Question, error) {
	var question database.Question

	err := tx.Where("id = ? AND test_id = ?", questionID, testID).First(&question).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, err
	}

	return &question, nil
}

func (s *Service) UpdateQuestion(ctx context.Context, ownerID, testID, questionID int, patch QuestionPatch) (*database.Question, error) {
	ctx, span := tracer.Start(ctx, "UpdateQuestion",
		trace.WithAttributes(
			attribute.Int("test.id", testID),
			attribute.Int("question.id", questionID),
		))
	defer span.End()

	var question *database.Question
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findEditableTest(tx, ownerID, testID); err != nil {
			return err
		}

		var err error
		question, err = findQuestion(tx, testID, questionID)
		if err != nil {
			return err
		}

		if patch.Type != nil {
			question.Type = *patch.Type
			if question.Type == database.QuestionTypeTrueFalse && patch.Options == nil {
				question.Options = nil
			}
		}
		if patch.Text != nil {
			question.Text = *patch.Text
		}
		if patch.Options != nil {
			question.Options = append([]string(nil), patch.Options...)
		}
		if patch.CorrectIndex != nil {
			question.CorrectIndex = *patch.CorrectIndex
		}
		if patch.Explanation != nil {
			question.Explanation = *patch.Explanation
		}
		if patch.Points != nil {
			question.Points = *patch.Points
		}

		if err := validateQuestion(question); err != nil {
			return err
		}

		err = tx.Model(question).
			Select("type", "text", "options", "correct_index", "explanation", "points").
			Updates(question).Error
		if err != nil {
			return err
		}
		return touchTest(tx, testID)
	})
	if err != nil {
		span.SetStatus(otelcodes.Error, "Failed to update question")
		if isDomainError(err) {
			return nil, err
		}
		span.RecordError(err)
		return nil, fmt.Errorf("update question: %w", err)
	}

	span.SetStatus(otelcodes.Ok, "Question updated")
	return question, nil
}

// CorrectAnswer fixes the answer key of a question. Unlike the other edits it is
// allowed on published tests and on tests with attempts; closed attempts keep
// their grade until they are regraded.
func (s *Service) CorrectAnswer(ctx context.Context, ownerID, testID, questionID, correctIndex int) (*database.Question, error) {
	ctx, span := tracer.Start(ctx, "CorrectAnswer",
		trace.WithAttributes(
			attribute.Int("test.id", testID),
			attribute.Int("question.id", questionID),
		))
	defer span.End()

	var question *database.Question
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findTest(tx, ownerID, testID); err != nil {
			return err
		}

		var err error
		question, err = findQuestion(tx, testID, questionID)
		if err != nil {
			return err
		}

		question.CorrectIndex = correctIndex
		if err := validateQuestion(question); err != nil {
			return err
		}

		if err := tx.Model(question).Update("correct_index", correctIndex).Error; err != nil {
			return err
		}
		return touchTest(tx, testID)
	})
	if err != nil {
		span.SetStatus(otelcodes.Error, "Failed to correct answer")
		if isDomainError(err) {
			return nil, err
		}
		span.RecordError(err)
		return nil, fmt.Errorf("correct answer: %w", err)
	}

	span.SetStatus(otelcodes.Ok, "Answer corrected")
	return question, nil
}

// DeleteQuestion removes a question and closes the gap in the positions.
func (s *Service) DeleteQuestion(ctx context.Context, ownerID, testID, questionID int) error {
	ctx, span := tracer.Start(ctx, "DeleteQuestion",
		trace.WithAttributes(
			attribute.Int("test.id", testID),
			attribute.Int("question.id", questionID),
		))
	defer span.End()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findEditableTest(tx, ownerID, testID); err != nil {
			return err
		}

		question, err := findQuestion(tx, testID, questionID)
		if err != nil {
			return err
		}

		if err := tx.Delete(question).Error; err != nil {
			return err
		}

		err = tx.Model(&database.Question{}).
			Where("test_id = ? AND position > ?", testID, question.Position).
			Update("position", gorm.Expr("position - 1")).Error
		if err != nil {
			return err
		}
		return touchTest(tx, testID)
	})
	if err != nil {
		span.SetStatus(otelcodes.Error, "Failed to delete question")
		if isDomainError(err) {
			return err
		}
		span.RecordError(err)
		return fmt.Errorf("delete question: %w", err)
	}

	span.SetStatus(otelcodes.Ok, "Question deleted")
	return nil
}

// ReorderQuestions sets the order of the questions. questionIDs must be a permutation of the test's questions.
func (s *Service) ReorderQuestions(ctx context.Context, ownerID, testID int, questionIDs []int) ([]database.Question, error) {
	ctx, span := tracer.Start(ctx, "ReorderQuestions",
		trace.WithAttributes(attribute.Int("test.id", testID)))
	defer span.End()

	var questions []database.Question
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findEditableTest(tx, ownerID, testID); err != nil {
			return err
		}

		current, err := loadQuestions(tx, testID)
		if err != nil {
			return err
		}
		if len(current) != len(questionIDs) {
			return ErrInvalidOrder
		}

		byID := make(map[int]database.Question, len(current))
		for _, question := range current {
			byID[question.ID] = question
		}

		questions = make([]database.Question, 0, len(questionIDs))
		for i, id := range questionIDs {
			question, ok := byID[id]
			if !ok {
				return ErrInvalidOrder
			}
			delete(byID, id)

			question.Position = i + 1
			if err := tx.Model(&question).Update("position", question.Position).Error; err != nil {
				return err
			}
			questions = append(questions, question)
		}

		return touchTest(tx, testID)
	})
	if err != nil {
		span.SetStatus(otelcodes.Error, "Failed to reorder questions")
		if isDomainError(err) {
			return nil, err
		}
		span.RecordError(err)
		return nil, fmt.Errorf("reorder questions: %w", err)
	}

	span.SetStatus(otelcodes.Ok, "Questions reordered")
	return questions, nil
}
