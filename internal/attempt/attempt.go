// Package attempt runs students' attempts at published tests: starting, answering, submitting and expiry.
package attempt

import (
	"errors"
	"time"

	"github.com/quizgenius/backend/internal/database"
	"github.com/quizgenius/backend/internal/events"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("quizgenius.attempt")

// SubmitGrace is how long after the deadline a submission still counts.
const SubmitGrace = 10 * time.Second

var (
	ErrTestNotFound     = errors.New("test not found")
	ErrAttemptNotFound  = errors.New("attempt not found")
	ErrAttemptLimit     = errors.New("no attempts left for this test")
	ErrAttemptClosed    = errors.New("attempt is already closed")
	ErrAttemptExpired   = errors.New("the time limit of the attempt has passed")
	ErrAttemptOpen      = errors.New("attempt is still in progress")
	ErrQuestionNotFound = errors.New("question not found in this test")
	ErrInvalidChoice    = errors.New("choice is not one of the options")
)

type Service struct {
	db           *gorm.DB
	eventService *events.EventService
	now          func() time.Time
}

type Option func(*Service)

// WithClock replaces the clock of the service.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(db *gorm.DB, eventService *events.EventService, opts ...Option) *Service {
	s := &Service{
		db:           db,
		eventService: eventService,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	// timestamps are stored in UTC so that sqlite compares them in order
	clock := s.now
	s.now = func() time.Time { return clock().UTC() }

	return s
}

func isDomainError(err error) bool {
	for _, target := range []error{
		ErrTestNotFound, ErrAttemptNotFound, ErrAttemptLimit, ErrAttemptClosed,
		ErrAttemptExpired, ErrAttemptOpen, ErrQuestionNotFound, ErrInvalidChoice,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// expired reports whether the deadline of the attempt, plus the grace period, has passed.
func expired(attempt *database.Attempt, now time.Time) bool {
	return attempt.Deadline != nil && now.After(attempt.Deadline.Add(SubmitGrace))
}

func findAttempt(tx *gorm.DB, studentID, attemptID int) (*database.Attempt, error) {
	var attempt database.Attempt

	err := tx.Where("id = ? AND student_id = ?", attemptID, studentID).First(&attempt).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, err
	}

	return &attempt, nil
}

func loadQuestions(tx *gorm.DB, testID int) ([]database.Question, error) {
	var questions []database.Question

	err := tx.Where("test_id = ?", testID).Order("position ASC, id ASC").Find(&questions).Error
	if err != nil {
		return nil, err
	}

	return questions, nil
}

func loadResponses(tx *gorm.DB, attemptID int) ([]database.Response, error) {
	var responses []database.Response

	if err := tx.Where("attempt_id = ?", attemptID).Find(&responses).Error; err != nil {
		return nil, err
	}

	return responses, nil
}
