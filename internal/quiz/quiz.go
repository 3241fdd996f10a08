// Package quiz lets instructors author and publish tests and lets students browse them.
package quiz

import (
	"context"
	"errors"

	"github.com/quizgenius/backend/internal/database"
	"github.com/quizgenius/backend/internal/documents"
	"github.com/quizgenius/backend/internal/events"
	"github.com/quizgenius/backend/internal/generation"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("quizgenius.quiz")

const (
	MaxTitleLength      = 200
	MaxTimeLimitMinutes = 600
	MaxAttemptsLimit    = 100
	MaxPoints           = 100
	DefaultMaxAttempts  = 1
)

var (
	ErrTestNotFound     = errors.New("test not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrDocumentNotFound = documents.ErrDocumentNotFound
	ErrInvalidTest      = errors.New("invalid test")
	ErrInvalidQuestion  = errors.New("invalid question")
	ErrInvalidPoints    = errors.New("points must be between 1 and 100")
	ErrInvalidOrder     = errors.New("the order must list every question of the test exactly once")
	ErrTestPublished    = errors.New("published tests cannot be edited")
	ErrTestLocked       = errors.New("tests that have attempts cannot be edited")
	ErrNotPublishable   = errors.New("test cannot be published")
	ErrNoText           = errors.New("the document has no extractable text")
)

// Generator produces questions from lecture text.
type Generator interface {
	Generate(ctx context.Context, req generation.Request) (generation.Result, error)
}

// DocumentSource looks up an instructor's documents.
type DocumentSource interface {
	Get(ctx context.Context, ownerID, documentID int) (*database.Document, error)
}

// Service manages tests and their questions.
type Service struct {
	db           *gorm.DB
	generator    Generator
	documents    DocumentSource
	eventService *events.EventService
}

func NewService(db *gorm.DB, generator Generator, documents DocumentSource, eventService *events.EventService) *Service {
	return &Service{
		db:           db,
		generator:    generator,
		documents:    documents,
		eventService: eventService,
	}
}

// findTest loads a test of the owner.
func findTest(tx *gorm.DB, ownerID, testID int) (*database.Test, error) {
	var test database.Test

	err := tx.Where("id = ? AND owner_id = ?", testID, ownerID).First(&test).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrTestNotFound
		}
		return nil, err
	}

	return &test, nil
}

// ensureEditable refuses changes to tests that students can see or have taken.
func ensureEditable(tx *gorm.DB, test *database.Test) error {
	if test.Published {
		return ErrTestPublished
	}

	var attempts int64
	if err := tx.Model(&database.Attempt{}).Where("test_id = ?", test.ID).Count(&attempts).Error; err != nil {
		return err
	}
	if attempts > 0 {
		return ErrTestLocked
	}

	return nil
}

// findEditableTest loads a test of the owner that may still be edited.
func findEditableTest(tx *gorm.DB, ownerID, testID int) (*database.Test, error) {
	test, err := findTest(tx, ownerID, testID)
	if err != nil {
		return nil, err
	}

	if err := ensureEditable(tx, test); err != nil {
		return nil, err
	}

	return test, nil
}

func loadQuestions(tx *gorm.DB, testID int) ([]database.Question, error) {
	var questions []database.Question

	err := tx.Where("test_id = ?", testID).Order("position ASC, id ASC").Find(&questions).Error
	if err != nil {
		return nil, err
	}

	return questions, nil
}

// isDomainError reports whether err is one of the sentinel errors of this package.
func isDomainError(err error) bool {
	for _, target := range []error{
		ErrTestNotFound, ErrQuestionNotFound, ErrDocumentNotFound, ErrInvalidTest,
		ErrInvalidQuestion, ErrInvalidPoints, ErrInvalidOrder, ErrTestPublished,
		ErrTestLocked, ErrNotPublishable, ErrNoText,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
