package attempt

import (
	"context"
	"fmt"

	"github.com/quizgenius/backend/internal/database"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// checkChoice verifies that the question belongs to the test and the choice is one of its options.
// A nil choice clears the answer.
func checkChoice(questions map[int]database.Question, questionID int, choice *int) error {
	question, ok := questions[questionID]
	if !ok {
		return ErrQuestionNotFound
	}
	if choice != nil && (*choice < 0 || *choice >= len(question.Options)) {
		return ErrInvalidChoice
	}
	return nil
}

func questionsByID(tx *gorm.DB, testID int) (map[int]database.Question, error) {
	questions, err := loadQuestions(tx, testID)
	if err != nil {
		return nil, err
	}

	byID := make(map[int]database.Question, len(questions))
	for _, question := range questions {
		byID[question.ID] = question
	}
	return byID, nil
}

// SaveAnswer stores the answer of the student to one question of an attempt in progress.
func (s *Service) SaveAnswer(ctx context.Context, studentID, attemptID, questionID int, choice *int) (*database.Response, error) {
	ctx, span := tracer.Start(ctx, "SaveAnswer",
		trace.WithAttributes(
			attribute.Int("attempt.id", attemptID),
			attribute.Int("question.id", questionID),
		))
	defer span.End()

	now := s.now()
	var response *database.Response

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attempt, err := findAttempt(tx, studentID, attemptID)
		if err != nil {
			return err
		}
		if attempt.Closed() {
			return ErrAttemptClosed
		}
		if attempt.Deadline != nil && now.After(*attempt.Deadline) {
			return ErrAttemptExpired
		}

		questions, err := questionsByID(tx, attempt.TestID)
		if err != nil {
			return err
		}
		if err := checkChoice(questions, questionID, choice); err != nil {
			return err
		}

		response = &database.Response{
			AttemptID:  attemptID,
			QuestionID: questionID,
			Choice:     choice,
			AnsweredAt: now,
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"choice", "answered_at"}),
		}).Create(response).Error
	})
	if err != nil {
		span.SetStatus(otelcodes.Error, "Failed to save answer")
		if isDomainError(err) {
			return nil, err
		}
		span.RecordError(err)
		return nil, fmt.Errorf("save answer: %w", err)
	}

	span.SetStatus(otelcodes.Ok, "Answer saved")
	return response, nil
}
