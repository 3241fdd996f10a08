// Package catalogservice lists the published tests students can take.
package catalogservice

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quizgenius/backend/httpapi"
	"github.com/quizgenius/backend/internal/auth"
	"github.com/quizgenius/backend/internal/database"
	"github.com/quizgenius/backend/internal/httputils"
	"github.com/quizgenius/backend/internal/quiz"
	"github.com/samber/lo"
)

type CatalogService struct {
	quiz *quiz.Service
}

func NewCatalogService(quiz *quiz.Service) *CatalogService {
	return &CatalogService{quiz: quiz}
}

var _ httpapi.Service = (*CatalogService)(nil)

func (s *CatalogService) Register(router gin.IRouter) {
	group := router.Group("/catalog", auth.RequireScope("catalog:read"))

	group.GET("", s.List)
	group.GET("/:id", s.Get)
}

type QuestionResponse struct {
	ID       int                   `json:"id"`
	Position int                   `json:"position"`
	Type     database.QuestionType `json:"type"`
	Text     string                `json:"text"`
	Options  []string              `json:"options"`
	Points   int                   `json:"points"`
}

type TestResponse struct {
	ID               int                `json:"id"`
	Title            string             `json:"title"`
	Description      string             `json:"description"`
	Instructor       string             `json:"instructor"`
	TimeLimitMinutes int                `json:"time_limit_minutes"`
	MaxAttempts      int                `json:"max_attempts"`
	QuestionCount    int                `json:"question_count"`
	TotalPoints      int                `json:"total_points"`
	PublishedAt      *time.Time         `json:"published_at,omitempty"`
	Questions        []QuestionResponse `json:"questions,omitempty"`
}

func NewTestResponse(test quiz.CatalogTest) TestResponse {
	resp := TestResponse{
		ID:               test.ID,
		Title:            test.Title,
		Description:      test.Description,
		Instructor:       test.Instructor,
		TimeLimitMinutes: test.TimeLimitMinutes,
		MaxAttempts:      test.MaxAttempts,
		QuestionCount:    test.QuestionCount,
		TotalPoints:      test.TotalPoints,
		PublishedAt:      test.PublishedAt,
	}
	if test.Questions != nil {
		resp.Questions = lo.Map(test.Questions, func(q quiz.CatalogQuestion, _ int) QuestionResponse {
			return QuestionResponse{
				ID:       q.ID,
				Position: q.Position,
				Type:     q.Type,
				Text:     q.Text,
				Options:  q.Options,
				Points:   q.Points,
			}
		})
	}

	return resp
}

// List returns the published tests without their questions.
// GET /api/catalog
func (s *CatalogService) List(c *gin.Context) {
	tests, err := s.quiz.ListPublished(c.Request.Context())
	if err != nil {
		slog.Error("failed to list published tests", "error", err)
		httputils.Abort(c, http.StatusInternalServerError, httputils.CodeServerError, "Failed to list the tests. Please try again later.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"tests": lo.Map(tests, func(test quiz.CatalogTest, _ int) TestResponse {
		return NewTestResponse(test)
	})})
}

// Get returns a published test with its questions, answers withheld.
// GET /api/catalog/:id
func (s *CatalogService) Get(c *gin.Context) {
	testID, ok := httputils.IDParam(c, "id")
	if !ok {
		return
	}

	test, err := s.quiz.GetPublished(c.Request.Context(), testID)
	if err != nil {
		if errors.Is(err, quiz.ErrTestNotFound) {
			httputils.Abort(c, http.StatusNotFound, httputils.CodeNotFound, err.Error())
			return
		}
		slog.Error("failed to get published test", "error", err, "test_id", testID)
		httputils.Abort(c, http.StatusInternalServerError, httputils.CodeServerError, "Failed to get the test. Please try again later.")
		return
	}

	c.JSON(http.StatusOK, NewTestResponse(*test))
}
