package attempt

import (
	"context"
	"fmt"
	"time"

	"github.com/quizgenius/backend/internal/database"
	"github.com/quizgenius/backend/internal/metrics"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// Item is one question of an attempt as the student sees it.
// Correct, CorrectIndex and Explanation are only set once the attempt is closed.
type Item struct {
	QuestionID   int
	Position     int
	Type         database.QuestionType
	Text         string
	Options      []string
	Points       int
	Choice       *int
	Correct      *bool
	CorrectIndex *int
	Explanation  string
}

type Detail struct {
	Attempt   database.Attempt
	TestTitle string
	Items     []Item
}

// Get returns an attempt of the student with its questions and answers.
// An attempt whose time is up is closed first.
func (s *Service) Get(ctx context.Context, studentID, attemptID int) (*Detail, error) {
	db := s.db.WithContext(ctx)

	attempt, err := findAttempt(db, studentID, attemptID)
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}

	if !attempt.Closed() && expired(attempt, s.now()) {
		if err := s.closeExpired(ctx, attempt); err != nil {
			return nil, err
		}
	}

	var test database.Test
	if err := db.Select("id", "title").First(&test, attempt.TestID).Error; err != nil {
		return nil, fmt.Errorf("get test: %w", err)
	}

	questions, err := loadQuestions(db, attempt.TestID)
	if err != nil {
		return nil, fmt.Errorf("get questions: %w", err)
	}
	responses, err := loadResponses(db, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("get responses: %w", err)
	}
	byQuestion := lo.KeyBy(responses, func(response database.Response) int {
		return response.QuestionID
	})

	items := make([]Item, len(questions))
	for i, question := range questions {
		item := Item{
			QuestionID: question.ID,
			Position:   question.Position,
			Type:       question.Type,
			Text:       question.Text,
			Options:    question.Options,
			Points:     question.Points,
		}
		response, answered := byQuestion[question.ID]
		if answered {
			item.Choice = response.Choice
		}
		if attempt.Closed() {
			item.Correct = lo.ToPtr(answered && response.Correct)
			item.CorrectIndex = lo.ToPtr(question.CorrectIndex)
			item.Explanation = question.Explanation
		}
		items[i] = item
	}

	return &Detail{
		Attempt:   *attempt,
		TestTitle: test.Title,
		Items:     items,
	}, nil
}

func (s *Service) closeExpired(ctx context.Context, attempt *database.Attempt) error {
	var closed bool

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		closed, err = finalize(tx, attempt, nil, database.AttemptStatusExpired, s.now())
		return err
	})
	if err != nil {
		return fmt.Errorf("close expired attempt: %w", err)
	}

	if closed {
		metrics.RecordAttemptClosed(string(database.AttemptStatusExpired))
		return nil
	}

	// someone else closed it; reload their result
	return s.db.WithContext(ctx).First(attempt, attempt.ID).Error
}

type Summary struct {
	ID          int
	TestID      int
	TestTitle   string
	Status      database.AttemptStatus
	StartedAt   time.Time
	Deadline    *time.Time
	SubmittedAt *time.Time
	Score       float64
	TimedOut    bool
}

// ListMine returns the attempts of the student, newest first.
func (s *Service) ListMine(ctx context.Context, studentID int) ([]Summary, error) {
	var attempts []database.Attempt

	err := s.db.WithContext(ctx).
		Preload("Test", func(tx *gorm.DB) *gorm.DB { return tx.Select("id", "title") }).
		Where("student_id = ?", studentID).
		Order("started_at DESC, id DESC").
		Find(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	return lo.Map(attempts, func(attempt database.Attempt, _ int) Summary {
		return Summary{
			ID:          attempt.ID,
			TestID:      attempt.TestID,
			TestTitle:   attempt.Test.Title,
			Status:      attempt.Status,
			StartedAt:   attempt.StartedAt,
			Deadline:    attempt.Deadline,
			SubmittedAt: attempt.SubmittedAt,
			Score:       attempt.Score,
			TimedOut:    attempt.TimedOut,
		}
	}), nil
}

type StudentResult struct {
	Attempt      database.Attempt
	StudentName  string
	StudentEmail string
}

// ListForTest returns every attempt at a test of the owner, for the instructor's results view.
func (s *Service) ListForTest(ctx context.Context, ownerID, testID int) ([]StudentResult, error) {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&database.Test{}).Where("id = ? AND owner_id = ?", testID, ownerID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("get test: %w", err)
	}
	if count == 0 {
		return nil, ErrTestNotFound
	}

	var attempts []database.Attempt
	if err := db.Where("test_id = ?", testID).Order("started_at ASC, id ASC").Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	var students []database.User
	studentIDs := lo.Uniq(lo.Map(attempts, func(attempt database.Attempt, _ int) int { return attempt.StudentID }))
	if len(studentIDs) > 0 {
		if err := db.Select("id", "name", "email").Where("id IN ?", studentIDs).Find(&students).Error; err != nil {
			return nil, fmt.Errorf("get students: %w", err)
		}
	}
	byID := lo.KeyBy(students, func(user database.User) int { return user.ID })

	return lo.Map(attempts, func(attempt database.Attempt, _ int) StudentResult {
		student := byID[attempt.StudentID]
		return StudentResult{
			Attempt:      attempt,
			StudentName:  student.Name,
			StudentEmail: student.Email,
		}
	}), nil
}
