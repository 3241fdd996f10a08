// Package testservice provides the endpoints instructors author, generate and publish tests with.
package testservice

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quizgenius/backend/httpapi"
	"github.com/quizgenius/backend/internal/attempt"
	"github.com/quizgenius/backend/internal/auth"
	"github.com/quizgenius/backend/internal/database"
	"github.com/quizgenius/backend/internal/generation"
	"github.com/quizgenius/backend/internal/httputils"
	"github.com/quizgenius/backend/internal/quiz"
	"github.com/quizgenius/backend/internal/ranking"
	"github.com/quizgenius/backend/internal/statistics"
	"github.com/samber/lo"
)

type TestService struct {
	quiz       *quiz.Service
	attempts   *attempt.Service
	statistics *statistics.Service
	ranking    *ranking.Service
}

func NewTestService(quiz *quiz.Service, attempts *attempt.Service, statistics *statistics.Service, ranking *ranking.Service) *TestService {
	return &TestService{
		quiz:       quiz,
		attempts:   attempts,
		statistics: statistics,
		ranking:    ranking,
	}
}

var _ httpapi.Service = (*TestService)(nil)

func (s *TestService) Register(router gin.IRouter) {
	group := router.Group("/tests")
	read := auth.RequireScope("test:read")
	write := auth.RequireScope("test:write")
	results := auth.RequireScope("result:read")

	group.POST("", write, s.CreateTest)
	group.GET("", read, s.ListTests)
	group.GET("/:id", read, s.GetTest)
	group.PATCH("/:id", write, s.UpdateTest)
	group.DELETE("/:id", write, s.DeleteTest)
	group.POST("/:id/duplicate", write, s.DuplicateTest)
	group.POST("/:id/generate", write, s.GenerateQuestions)

	group.POST("/:id/questions", write, s.AddQuestion)
	group.PUT("/:id/questions/order", write, s.ReorderQuestions)
	group.PATCH("/:id/questions/:questionID", write, s.UpdateQuestion)
	group.DELETE("/:id/questions/:questionID", write, s.DeleteQuestion)
	group.PUT("/:id/questions/:questionID/answer", write, s.CorrectAnswer)

	group.POST("/:id/publish", write, s.Publish)
	group.POST("/:id/unpublish", write, s.Unpublish)

	group.GET("/:id/attempts", results, s.ListAttempts)
	group.GET("/:id/statistics", results, s.Statistics)
	group.GET("/:id/ranking", results, s.Ranking)
}

type TestResponse struct {
	ID               int                `json:"id"`
	Title            string             `json:"title"`
	Description      string             `json:"description"`
	TimeLimitMinutes int                `json:"time_limit_minutes"`
	MaxAttempts      int                `json:"max_attempts"`
	Published        bool               `json:"published"`
	PublishedAt      *time.Time         `json:"published_at,omitempty"`
	SourceDocumentID *int               `json:"source_document_id,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
	Questions        []QuestionResponse `json:"questions,omitempty"`
}

func NewTestResponse(test *database.Test) TestResponse {
	return TestResponse{
		ID:               test.ID,
		Title:            test.Title,
		Description:      test.Description,
		TimeLimitMinutes: test.TimeLimitMinutes,
		MaxAttempts:      test.MaxAttempts,
		Published:        test.Published,
		PublishedAt:      test.PublishedAt,
		SourceDocumentID: test.SourceDocumentID,
		CreatedAt:        test.CreatedAt,
		UpdatedAt:        test.UpdatedAt,
		Questions:        newQuestionResponses(test.Questions),
	}
}

type TestSummaryResponse struct {
	TestResponse
	QuestionCount int `json:"question_count"`
	AttemptCount  int `json:"attempt_count"`
}

type TestBody struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	TimeLimitMinutes int    `json:"time_limit_minutes"`
	MaxAttempts      *int   `json:"max_attempts"`
}

// POST /api/tests
func (s *TestService) CreateTest(c *gin.Context) {
	var body TestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		httputils.Abort(c, http.StatusBadRequest, httputils.CodeInvalidRequest, "the body must be a JSON object")
		return
	}

	ctx := c.Request.Context()
	user, _ := auth.GetUser(ctx)

	test, err := s.quiz.CreateTest(ctx, user.UserID, quiz.TestInput{
		Title:            body.Title,
		Description:      body.Description,
		TimeLimitMinutes: body.TimeLimitMinutes,
		MaxAttempts:      body.MaxAttempts,
	})
	if err != nil {
		abort(c, err, user.UserID)
		return
	}

	c.JSON(http.StatusCreated, NewTestResponse(test))
}

// GET /api/tests
func (s *TestService) ListTests(c *gin.Context) {
	ctx := c.Request.Context()
	user, _ := auth.GetUser(ctx)

	summaries, err := s.quiz.ListTests(ctx, user.UserID)
	if err != nil {
		abort(c, err, user.UserID)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tests": lo.Map(summaries, func(summary quiz.TestSummary, _ int) TestSummaryResponse {
			return TestSummaryResponse{
				TestResponse:  NewTestResponse(&summary.Test),
				QuestionCount: summary.QuestionCount,
				AttemptCount:  summary.AttemptCount,
			}
		}),
	})
}

// GetTest returns a test with its questions and answers.
// GET /api/tests/:id
func (s *TestService) GetTest(c *gin.Context) {
	testID, ok := httputils.IDParam(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	user, _ := auth.GetUser(ctx)

	test, err := s.quiz.GetTest(ctx, user.UserID, testID)
	if err != nil {
		abort(c, err, user.UserID)
		return
	}

	c.JSON(http.StatusOK, NewTestResponse(test))
}

type TestPatchBody struct {
	Title            *string `json:"title"`
	Description      *string `json:"description"`
	TimeLimitMinutes *int    `json:"time_limit_minutes"`
	MaxAttempts      *int    `json:"max_attempts"`
}

// PATCH /api/tests/:id
func (s *TestService) UpdateTest(c *gin.Context) {
	testID, ok := httputils.IDParam(c, "id")
	if !ok {
		return
	}

	var body TestPatchBody
	if err := c.ShouldBindJSON(&body); err != nil {
		httputils.Abort(c, http.StatusBadRequest, httputils.CodeInvalidRequest, "the body must be a JSON object")
		return
	}

	ctx := c.Request.Context()
	user, _ := auth.GetUser(ctx)

	test, err := s.quiz.UpdateTest(ctx, user.UserID, testID, quiz.TestPatch{
		Title:            body.Title,
		Description:      body.Description,
		TimeLimitMinutes: body.TimeLimitMinutes,
		MaxAttempts:      body.MaxAttempts,
	})
	if err != nil {
		abort(c, err, user.UserID)
		return
	}

	c.JSON(http.StatusOK, NewTestResponse(test))
}

// DELETE /api/tests/:id
func (s *TestService) DeleteTest(c *gin.Context) {
	testID, ok := httputils.IDParam(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	user, _ := auth.GetUser(ctx)

	if err := s.quiz.DeleteTest(ctx, user.UserID, testID); err != nil {
		abort(c, err, user.UserID)
		return
	}

	c.Status(http.StatusNoContent)
}

// POST /api/tests/:id/duplicate
func (s *TestService) DuplicateTest(c *gin.Context) {
	testID, ok := httputils.IDParam(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	user, _ := auth.GetUser(ctx)

	test, err := s.quiz.DuplicateTest(ctx, user.UserID, testID)
	if err != nil {
		abort(c, err, user.UserID)
		return
	}

	c.JSON(http.StatusCreated, NewTestResponse(test))
}

// POST /api/tests/:id/publish
func (s *TestService) Publish(c *gin.Context) {
	testID, ok := httputils.IDParam(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	user, _ := auth.GetUser(ctx)

	test, err := s.quiz.Publish(ctx, user.UserID, testID)
	if err != nil {
		abort(c, err, user.UserID)
		return
	}

	c.JSON(http.StatusOK, NewTestResponse(test))
}

// POST /api/tests/:id/unpublish
func (s *TestService) Unpublish(c *gin.Context) {
	testID, ok := httputils.IDParam(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	user, _ := auth.GetUser(ctx)

	test, err := s.quiz.Unpublish(ctx, user.UserID, testID)
	if err != nil {
		abort(c, err, user.UserID)
		return
	}

	c.JSON(http.StatusOK, NewTestResponse(test))
}

// abort maps the errors of the domain packages behind the test endpoints to responses.
func abort(c *gin.Context, err error, userID int) {
	switch {
	case errors.Is(err, quiz.ErrTestNotFound),
		errors.Is(err, quiz.ErrQuestionNotFound),
		errors.Is(err, quiz.ErrDocumentNotFound),
		errors.Is(err, attempt.ErrTestNotFound),
		errors.Is(err, statistics.ErrTestNotFound),
		errors.Is(err, ranking.ErrTestNotFound):
		httputils.Abort(c, http.StatusNotFound, httputils.CodeNotFound, err.Error())
	case errors.Is(err, quiz.ErrInvalidTest),
		errors.Is(err, quiz.ErrInvalidQuestion),
		errors.Is(err, quiz.ErrInvalidPoints),
		errors.Is(err, quiz.ErrInvalidOrder),
		errors.Is(err, generation.ErrInvalidRequest),
		errors.Is(err, ranking.ErrInvalidFilter):
		httputils.Abort(c, http.StatusBadRequest, httputils.CodeInvalidRequest, err.Error())
	case errors.Is(err, quiz.ErrTestPublished),
		errors.Is(err, quiz.ErrTestLocked):
		httputils.Abort(c, http.StatusConflict, httputils.CodeConflict, err.Error())
	case errors.Is(err, quiz.ErrNotPublishable),
		errors.Is(err, quiz.ErrNoText),
		errors.Is(err, generation.ErrInsufficientText),
		errors.Is(err, generation.ErrNoQuestions):
		httputils.Abort(c, http.StatusUnprocessableEntity, httputils.CodeUnprocessable, err.Error())
	case errors.Is(err, generation.ErrQuotaExceeded):
		httputils.Abort(c, http.StatusTooManyRequests, httputils.CodeRateLimited, err.Error())
	case errors.Is(err, generation.ErrModelUnavailable):
		httputils.Abort(c, http.StatusServiceUnavailable, httputils.CodeUnavailable, generation.ErrModelUnavailable.Error())
	default:
		slog.Error("failed to handle test request", "error", err, "user_id", userID, "path", c.FullPath())
		httputils.Abort(c, http.StatusInternalServerError, httputils.CodeServerError, "Failed to process the request. Please try again later.")
	}
}
