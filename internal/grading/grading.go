// Package grading scores the answers of an attempt.
package grading

import (
	"math"

	"github.com/quizgenius/backend/internal/database"
)

// Item is the graded answer to one question.
type Item struct {
	QuestionID   int
	Choice       *int
	Correct      bool
	Points       int
	EarnedPoints int
}

type Outcome struct {
	Items         []Item
	EarnedPoints  int
	TotalPoints   int
	CorrectCount  int
	QuestionCount int
	// Score is the percentage of earned points, rounded to two decimals.
	Score float64
}

// Grade grades answers, keyed by question ID, against the questions.
// Unanswered questions and choices outside the options are incorrect.
func Grade(questions []database.Question, answers map[int]*int) Outcome {
	outcome := Outcome{
		Items:         make([]Item, 0, len(questions)),
		QuestionCount: len(questions),
	}

	for _, question := range questions {
		points := max(question.Points, 0)
		choice := answers[question.ID]

		item := Item{
			QuestionID: question.ID,
			Choice:     choice,
			Points:     points,
		}
		if choice != nil && *choice >= 0 && *choice < len(question.Options) && *choice == question.CorrectIndex {
			item.Correct = true
			item.EarnedPoints = points
			outcome.CorrectCount++
		}

		outcome.EarnedPoints += item.EarnedPoints
		outcome.TotalPoints += points
		outcome.Items = append(outcome.Items, item)
	}

	outcome.Score = Score(outcome.EarnedPoints, outcome.TotalPoints)
	return outcome
}

// Score returns earned/total as a percentage rounded to two decimals, or 0 when total is 0.
func Score(earned, total int) float64 {
	if total <= 0 {
		return 0
	}

	return math.Round(float64(earned)/float64(total)*10000) / 100
}
