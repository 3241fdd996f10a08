package attempt

import (
	"time"

	"github.com/quizgenius/backend/internal/database"
	"github.com/quizgenius/backend/internal/grading"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// grade merges the answers over the stored responses and grades the attempt.
func grade(tx *gorm.DB, attempt *database.Attempt, answers map[int]*int) (grading.Outcome, map[int]database.Response, error) {
	questions, err := loadQuestions(tx, attempt.TestID)
	if err != nil {
		return grading.Outcome{}, nil, err
	}

	responses, err := loadResponses(tx, attempt.ID)
	if err != nil {
		return grading.Outcome{}, nil, err
	}

	stored := make(map[int]database.Response, len(responses))
	merged := make(map[int]*int, len(responses)+len(answers))
	for _, response := range responses {
		stored[response.QuestionID] = response
		merged[response.QuestionID] = response.Choice
	}
	for questionID, choice := range answers {
		merged[questionID] = choice
	}

	return grading.Grade(questions, merged), stored, nil
}

// saveResponses writes the graded responses. Questions never answered get no row.
func saveResponses(tx *gorm.DB, attemptID int, outcome grading.Outcome, stored map[int]database.Response, answered map[int]*int, now time.Time) error {
	responses := make([]database.Response, 0, len(outcome.Items))
	for _, item := range outcome.Items {
		previous, hasPrevious := stored[item.QuestionID]
		_, hasAnswer := answered[item.QuestionID]
		if !hasPrevious && !hasAnswer {
			continue
		}

		answeredAt := previous.AnsweredAt
		if hasAnswer {
			answeredAt = now
		}

		responses = append(responses, database.Response{
			AttemptID:  attemptID,
			QuestionID: item.QuestionID,
			Choice:     item.Choice,
			Correct:    item.Correct,
			AnsweredAt: answeredAt,
		})
	}
	if len(responses) == 0 {
		return nil
	}

	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"choice", "correct", "answered_at"}),
	}).Create(&responses).Error
}

func applyOutcome(attempt *database.Attempt, outcome grading.Outcome) {
	attempt.EarnedPoints = outcome.EarnedPoints
	attempt.TotalPoints = outcome.TotalPoints
	attempt.CorrectCount = outcome.CorrectCount
	attempt.QuestionCount = outcome.QuestionCount
	attempt.Score = outcome.Score
}

// finalize grades an attempt in progress and closes it with status.
// It reports false, without writing anything, when the attempt was closed concurrently.
func finalize(tx *gorm.DB, attempt *database.Attempt, answers map[int]*int, status database.AttemptStatus, now time.Time) (bool, error) {
	outcome, stored, err := grade(tx, attempt, answers)
	if err != nil {
		return false, err
	}

	timedOut := status == database.AttemptStatusExpired || expired(attempt, now)

	result := tx.Model(&database.Attempt{}).
		Where("id = ? AND status = ?", attempt.ID, database.AttemptStatusInProgress).
		Updates(map[string]any{
			"status":         status,
			"submitted_at":   now,
			"earned_points":  outcome.EarnedPoints,
			"total_points":   outcome.TotalPoints,
			"correct_count":  outcome.CorrectCount,
			"question_count": outcome.QuestionCount,
			"score":          outcome.Score,
			"timed_out":      timedOut,
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	if err := saveResponses(tx, attempt.ID, outcome, stored, answers, now); err != nil {
		return false, err
	}

	applyOutcome(attempt, outcome)
	attempt.Status = status
	attempt.SubmittedAt = &now
	attempt.TimedOut = timedOut
	return true, nil
}
