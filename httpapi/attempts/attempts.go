// Package attemptservice provides the endpoints students take tests with.
package attemptservice

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quizgenius/backend/httpapi"
	"github.com/quizgenius/backend/internal/attempt"
	"github.com/quizgenius/backend/internal/auth"
	"github.com/quizgenius/backend/internal/database"
	"github.com/quizgenius/backend/internal/httputils"
	"github.com/samber/lo"
)

type AttemptService struct {
	attempts *attempt.Service
}

func NewAttemptService(attempts *attempt.Service) *AttemptService {
	return &AttemptService{attempts: attempts}
}

var _ httpapi.Service = (*AttemptService)(nil)

func (s *AttemptService) Register(router gin.IRouter) {
	read := auth.RequireScope("attempt:read")
	write := auth.RequireScope("attempt:write")

	router.POST("/catalog/:id/attempts", write, s.Start)

	group := router.Group("/attempts")
	group.GET("", read, s.List)
	group.GET("/:id", read, s.Get)
	group.PUT("/:id/answers/:questionID", write, s.SaveAnswer)
	group.POST("/:id/submit", write, s.Submit)
}

type AttemptResponse struct {
	ID            int                    `json:"id"`
	TestID        int                    `json:"test_id"`
	TestTitle     string                 `json:"test_title"`
	Status        database.AttemptStatus `json:"status"`
	StartedAt     time.Time              `json:"started_at"`
	Deadline      *time.Time             `json:"deadline,omitempty"`
	SubmittedAt   *time.Time             `json:"submitted_at,omitempty"`
	Score         float64                `json:"score"`
	TimedOut      bool                   `json:"timed_out"`
	EarnedPoints  *int                   `json:"earned_points,omitempty"`
	TotalPoints   *int                   `json:"total_points,omitempty"`
	CorrectCount  *int                   `json:"correct_count,omitempty"`
	QuestionCount *int                   `json:"question_count,omitempty"`
	Items         []ItemResponse         `json:"items,omitempty"`
}

type ItemResponse struct {
	QuestionID   int                   `json:"question_id"`
	Position     int                   `json:"position"`
	Type         database.QuestionType `json:"type"`
	Text         string                `json:"text"`
	Options      []string              `json:"options"`
	Points       int                   `json:"points"`
	Choice       *int                  `json:"choice"`
	Correct      *bool                 `json:"correct,omitempty"`
	CorrectIndex *int                  `json:"correct_index,omitempty"`
	Explanation  string                `json:"explanation,omitempty"`
}

// NewDetailResponse renders an attempt. The grade is only included once the attempt is closed.
func NewDetailResponse(detail *attempt.Detail) AttemptResponse {
	a := detail.Attempt
	resp := AttemptResponse{
		ID:          a.ID,
		TestID:      a.TestID,
		TestTitle:   detail.TestTitle,
		Status:      a.Status,
		StartedAt:   a.StartedAt,
		Deadline:    a.Deadline,
		SubmittedAt: a.SubmittedAt,
		Score:       a.Score,
		TimedOut:    a.TimedOut,
		Items: lo.Map(detail.Items, func(item attempt.Item, _ int) ItemResponse {
			return ItemResponse{
				QuestionID:   item.QuestionID,
				Position:     item.Position,
				Type:         item.Type,
				Text:         item.Text,
				Options:      item.Options,
				Points:       item.Points,
				Choice:       item.Choice,
				Correct:      item.Correct,
				CorrectIndex: item.CorrectIndex,
				Explanation:  item.Explanation,
			}
		}),
	}
	if a.Closed() {
		resp.EarnedPoints = lo.ToPtr(a.EarnedPoints)
		resp.TotalPoints = lo.ToPtr(a.TotalPoints)
		resp.CorrectCount = lo.ToPtr(a.CorrectCount)
		resp.QuestionCount = lo.ToPtr(a.QuestionCount)
	}

	return resp
}

// Start begins an attempt at a published test, or resumes the one in progress.
// POST /api/catalog/:id/attempts
func (s *AttemptService) Start(c *gin.Context) {
	testID, ok := httputils.IDParam(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	user, _ := auth.GetUser(ctx)

	started, created, err := s.attempts.Start(ctx, user.UserID, testID)
	if err != nil {
		abort(c, err, user.UserID)
		return
	}

	detail, err := s.attempts.Get(ctx, user.UserID, started.ID)
	if err != nil {
		abort(c, err, user.UserID)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, NewDetailResponse(detail))
}

// List returns the attempts of the student, newest first.
// GET /api/attempts
func (s *AttemptService) List(c *gin.Context) {
	ctx := c.Request.Context()
	user, _ := auth.GetUser(ctx)

	summaries, err := s.attempts.ListMine(ctx, user.UserID)
	if err != nil {
		abort(c, err, user.UserID)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"attempts": lo.Map(summaries, func(summary attempt.Summary, _ int) AttemptResponse {
			return AttemptResponse{
				ID:          summary.ID,
				TestID:      summary.TestID,
				TestTitle:   summary.TestTitle,
				Status:      summary.Status,
				StartedAt:   summary.StartedAt,
				Deadline:    summary.Deadline,
				SubmittedAt: summary.SubmittedAt,
				Score:       summary.Score,
				TimedOut:    summary.TimedOut,
			}
		}),
	})
}

// GET /api/attempts/:id
func (s *AttemptService) Get(c *gin.Context) {
	attemptID, ok := httputils.IDParam(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	user, _ := auth.GetUser(ctx)

	detail, err := s.attempts.Get(ctx, user.UserID, attemptID)
	if err != nil {
		abort(c, err, user.UserID)
		return
	}

	c.JSON(http.StatusOK, NewDetailResponse(detail))
}

type AnswerBody struct {
	// Choice is the index of the chosen option, or null to clear the answer.
	Choice *int `json:"choice"`
}

// SaveAnswer records the answer to one question while the attempt is in progress.
// PUT /api/attempts/:id/answers/:questionID
func (s *AttemptService) SaveAnswer(c *gin.Context) {
	attemptID, ok := httputils.IDParam(c, "id")
	if !ok {
		return
	}
	questionID, ok := httputils.IDParam(c, "questionID")
	if !ok {
		return
	}

	var body AnswerBody
	if err := c.ShouldBindJSON(&body); err != nil {
		httputils.Abort(c, http.StatusBadRequest, httputils.CodeInvalidRequest, "the body must be a JSON object")
		return
	}

	ctx := c.Request.Context()
	user, _ := auth.GetUser(ctx)

	response, err := s.attempts.SaveAnswer(ctx, user.UserID, attemptID, questionID, body.Choice)
	if err != nil {
		abort(c, err, user.UserID)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"question_id": response.QuestionID,
		"choice":      response.Choice,
		"answered_at": response.AnsweredAt,
	})
}

type SubmitBody struct {
	// Answers maps question IDs to choices and is merged over the saved answers.
	Answers map[int]*int `json:"answers"`
}

// Submit closes the attempt and returns the graded result.
// POST /api/attempts/:id/submit
func (s *AttemptService) Submit(c *gin.Context) {
	attemptID, ok := httputils.IDParam(c, "id")
	if !ok {
		return
	}

	// the body is optional
	var body SubmitBody
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		httputils.Abort(c, http.StatusBadRequest, httputils.CodeInvalidRequest, "answers must map question IDs to choices")
		return
	}

	ctx := c.Request.Context()
	user, _ := auth.GetUser(ctx)

	if _, err := s.attempts.Submit(ctx, user.UserID, attemptID, body.Answers); err != nil {
		abort(c, err, user.UserID)
		return
	}

	detail, err := s.attempts.Get(ctx, user.UserID, attemptID)
	if err != nil {
		abort(c, err, user.UserID)
		return
	}

	c.JSON(http.StatusOK, NewDetailResponse(detail))
}

func abort(c *gin.Context, err error, userID int) {
	switch {
	case errors.Is(err, attempt.ErrTestNotFound),
		errors.Is(err, attempt.ErrAttemptNotFound):
		httputils.Abort(c, http.StatusNotFound, httputils.CodeNotFound, err.Error())
	case errors.Is(err, attempt.ErrQuestionNotFound),
		errors.Is(err, attempt.ErrInvalidChoice):
		httputils.Abort(c, http.StatusBadRequest, httputils.CodeInvalidRequest, err.Error())
	case errors.Is(err, attempt.ErrAttemptLimit),
		errors.Is(err, attempt.ErrAttemptClosed),
		errors.Is(err, attempt.ErrAttemptExpired):
		httputils.Abort(c, http.StatusConflict, httputils.CodeConflict, err.Error())
	default:
		slog.Error("failed to handle attempt request", "error", err, "user_id", userID, "path", c.FullPath())
		httputils.Abort(c, http.StatusInternalServerError, httputils.CodeServerError, "Failed to process the request. Please try again later.")
	}
}
