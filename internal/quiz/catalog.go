package quiz

import (
	"context"
	"fmt"
	"time"

	"github.com/quizgenius/backend/internal/database"
	"github.com/samber/lo"
)

// CatalogTest is a published test as students see it.
type CatalogTest struct {
	ID               int
	Title            string
	Description      string
	Instructor       string
	TimeLimitMinutes int
	MaxAttempts      int
	QuestionCount    int
	TotalPoints      int
	PublishedAt      *time.Time

	// Questions is only filled by GetPublished.
	Questions []CatalogQuestion
}

// CatalogQuestion is a question without its answer.
type CatalogQuestion struct {
	ID       int
	Position int
	Type     database.QuestionType
	Text     string
	Options  []string
	Points   int
}

// HideAnswer strips the correct answer and explanation from a question.
func HideAnswer(question database.Question) CatalogQuestion {
	return CatalogQuestion{
		ID:       question.ID,
		Position: question.Position,
		Type:     question.Type,
		Text:     question.Text,
		Options:  question.Options,
		Points:   question.Points,
	}
}

func (s *Service) ListPublished(ctx context.Context) ([]CatalogTest, error) {
	db := s.db.WithContext(ctx)

	var tests []database.Test
	err := db.Preload("Questions").
		Where("published = ?", true).
		Order("published_at DESC, id DESC").
		Find(&tests).Error
	if err != nil {
		return nil, fmt.Errorf("list published tests: %w", err)
	}

	names, err := s.instructorNames(ctx, lo.Map(tests, func(test database.Test, _ int) int {
		return test.OwnerID
	}))
	if err != nil {
		return nil, err
	}

	catalog := make([]CatalogTest, len(tests))
	for i, test := range tests {
		catalog[i] = catalogTest(test, names[test.OwnerID])
	}

	return catalog, nil
}

// GetPublished returns a published test with its questions, answers hidden.
func (s *Service) GetPublished(ctx context.Context, testID int) (*CatalogTest, error) {
	db := s.db.WithContext(ctx)

	var test database.Test
	err := db.Where("id = ? AND published = ?", testID, true).First(&test).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("get published test: %w", err)
	}

	test.Questions, err = loadQuestions(db, test.ID)
	if err != nil {
		return nil, fmt.Errorf("get questions: %w", err)
	}

	names, err := s.instructorNames(ctx, []int{test.OwnerID})
	if err != nil {
		return nil, err
	}

	catalog := catalogTest(test, names[test.OwnerID])
	catalog.Questions = lo.Map(test.Questions, func(question database.Question, _ int) CatalogQuestion {
		return HideAnswer(question)
	})

	return &catalog, nil
}

func catalogTest(test database.Test, instructor string) CatalogTest {
	return CatalogTest{
		ID:               test.ID,
		Title:            test.Title,
		Description:      test.Description,
		Instructor:       instructor,
		TimeLimitMinutes: test.TimeLimitMinutes,
		MaxAttempts:      test.MaxAttempts,
		QuestionCount:    len(test.Questions),
		TotalPoints: lo.SumBy(test.Questions, func(question database.Question) int {
			return question.Points
		}),
		PublishedAt: test.PublishedAt,
	}
}

func (s *Service) instructorNames(ctx context.Context, ids []int) (map[int]string, error) {
	ids = lo.Uniq(ids)
	if len(ids) == 0 {
		return map[int]string{}, nil
	}

	var users []database.User
	if err := s.db.WithContext(ctx).Select("id", "name").Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("get instructors: %w", err)
	}

	return lo.SliceToMap(users, func(user database.User) (int, string) {
		return user.ID, user.Name
	}), nil
}
