package testhelper

import (
	"testing"
	"time"

	"github.com/quizgenius/backend/internal/database"
	"gorm.io/gorm"
)

// MultipleChoice builds a valid multiple-choice question worth one point.
func MultipleChoice(text string, correctIndex int) database.Question {
	return database.Question{
		Type:         database.QuestionTypeMultipleChoice,
		Text:         text,
		Options:      []string{"Glucose", "Oxygen", "Nitrogen", "Helium"},
		CorrectIndex: correctIndex,
		Explanation:  "See the lecture.",
		Points:       1,
		Source:       database.QuestionSourceManual,
	}
}

// TrueFalse builds a valid true/false question worth one point.
func TrueFalse(text string, answer bool) database.Question {
	correctIndex := 1
	if answer {
		correctIndex = 0
	}

	return database.Question{
		Type:         database.QuestionTypeTrueFalse,
		Text:         text,
		Options:      []string{"True", "False"},
		CorrectIndex: correctIndex,
		Points:       1,
		Source:       database.QuestionSourceManual,
	}
}

// TestOptions configures CreateTest.
type TestOptions struct {
	Published        bool
	TimeLimitMinutes int
	MaxAttempts      int
}

// CreateTest creates a test of the owner with the questions in the given order.
func CreateTest(t *testing.T, db *gorm.DB, ownerID int, opts TestOptions, questions ...database.Question) *database.Test {
	t.Helper()

	test := &database.Test{
		OwnerID:          ownerID,
		Title:            "Photosynthesis basics",
		TimeLimitMinutes: opts.TimeLimitMinutes,
		MaxAttempts:      opts.MaxAttempts,
		Published:        opts.Published,
	}
	if opts.Published {
		now := time.Now().UTC()
		test.PublishedAt = &now
	}
	if err := db.Create(test).Error; err != nil {
		t.Fatalf("Failed to create test: %v", err)
	}

	for i := range questions {
		questions[i].TestID = test.ID
		questions[i].Position = i + 1
	}
	if len(questions) > 0 {
		if err := db.Create(&questions).Error; err != nil {
			t.Fatalf("Failed to create questions: %v", err)
		}
	}
	test.Questions = questions

	return test
}
