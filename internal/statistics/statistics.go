// Package statistics computes the results dashboard of a test.
package statistics

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/quizgenius/backend/internal/database"
	"github.com/quizgenius/backend/internal/grading"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("quizgenius.statistics")

var ErrTestNotFound = errors.New("test not found")

type QuestionStats struct {
	QuestionID    int    `json:"question_id"`
	Position      int    `json:"position"`
	Text          string `json:"text"`
	AnsweredCount int    `json:"answered_count"`
	CorrectCount  int    `json:"correct_count"`
	// CorrectRate is the percentage of closed attempts that answered correctly.
	CorrectRate float64 `json:"correct_rate"`
	// ChoiceCounts counts how often each option was chosen.
	ChoiceCounts []int `json:"choice_counts"`
}

type TestStats struct {
	TestID         int             `json:"test_id"`
	AttemptCount   int             `json:"attempt_count"`
	InProgress     int             `json:"in_progress"`
	SubmittedCount int             `json:"submitted_count"`
	ExpiredCount   int             `json:"expired_count"`
	AverageScore   float64         `json:"average_score"`
	HighestScore   float64         `json:"highest_score"`
	LowestScore    float64         `json:"lowest_score"`
	Questions      []QuestionStats `json:"questions"`
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// ForTest computes the statistics of a test of the owner. Only closed attempts count
// towards the scores and the per-question figures.
func (s *Service) ForTest(ctx context.Context, ownerID, testID int) (*TestStats, error) {
	ctx, span := tracer.Start(ctx, "ForTest",
		trace.WithAttributes(attribute.Int("test.id", testID)))
	defer span.End()

	db := s.db.WithContext(ctx)

	var test database.Test
	if err := db.Where("id = ? AND owner_id = ?", testID, ownerID).First(&test).Error; err != nil {
		if database.IsNotFound(err) {
			span.SetStatus(otelcodes.Error, "Test not found")
			return nil, ErrTestNotFound
		}
		span.SetStatus(otelcodes.Error, "Failed to get test")
		span.RecordError(err)
		return nil, fmt.Errorf("get test: %w", err)
	}

	var attempts []database.Attempt
	if err := db.Where("test_id = ?", testID).Find(&attempts).Error; err != nil {
		span.SetStatus(otelcodes.Error, "Failed to list attempts")
		span.RecordError(err)
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	var questions []database.Question
	if err := db.Where("test_id = ?", testID).Order("position ASC, id ASC").Find(&questions).Error; err != nil {
		span.SetStatus(otelcodes.Error, "Failed to list questions")
		span.RecordError(err)
		return nil, fmt.Errorf("list questions: %w", err)
	}

	stats := &TestStats{TestID: testID, AttemptCount: len(attempts)}

	closedIDs := make([]int, 0, len(attempts))
	var scoreSum float64
	for _, attempt := range attempts {
		switch attempt.Status {
		case database.AttemptStatusInProgress:
			stats.InProgress++
			continue
		case database.AttemptStatusSubmitted:
			stats.SubmittedCount++
		case database.AttemptStatusExpired:
			stats.ExpiredCount++
		}

		if len(closedIDs) == 0 || attempt.Score > stats.HighestScore {
			stats.HighestScore = attempt.Score
		}
		if len(closedIDs) == 0 || attempt.Score < stats.LowestScore {
			stats.LowestScore = attempt.Score
		}
		scoreSum += attempt.Score
		closedIDs = append(closedIDs, attempt.ID)
	}
	if len(closedIDs) > 0 {
		stats.AverageScore = roundPercent(scoreSum / float64(len(closedIDs)))
	}

	var responses []database.Response
	if len(closedIDs) > 0 {
		if err := db.Where("attempt_id IN ?", closedIDs).Find(&responses).Error; err != nil {
			span.SetStatus(otelcodes.Error, "Failed to list responses")
			span.RecordError(err)
			return nil, fmt.Errorf("list responses: %w", err)
		}
	}

	byQuestion := make(map[int][]database.Response, len(questions))
	for _, response := range responses {
		byQuestion[response.QuestionID] = append(byQuestion[response.QuestionID], response)
	}

	stats.Questions = make([]QuestionStats, len(questions))
	for i, question := range questions {
		qs := QuestionStats{
			QuestionID:   question.ID,
			Position:     question.Position,
			Text:         question.Text,
			ChoiceCounts: make([]int, len(question.Options)),
		}
		for _, response := range byQuestion[question.ID] {
			if response.Choice == nil {
				continue
			}
			qs.AnsweredCount++
			if response.Correct {
				qs.CorrectCount++
			}
			if c := *response.Choice; c >= 0 && c < len(qs.ChoiceCounts) {
				qs.ChoiceCounts[c]++
			}
		}
		qs.CorrectRate = grading.Score(qs.CorrectCount, len(closedIDs))
		stats.Questions[i] = qs
	}

	span.SetStatus(otelcodes.Ok, "Statistics computed")
	return stats, nil
}

func roundPercent(v float64) float64 {
	return math.Round(v*100) / 100
}
