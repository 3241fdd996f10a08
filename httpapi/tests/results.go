package testservice

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quizgenius/backend/internal/attempt"
	"github.com/quizgenius/backend/internal/auth"
	"github.com/quizgenius/backend/internal/database"
	"github.com/quizgenius/backend/internal/httputils"
	"github.com/quizgenius/backend/internal/ranking"
	"github.com/samber/lo"
)

type StudentResultResponse struct {
	AttemptID     int                    `json:"attempt_id"`
	StudentID     int                    `json:"student_id"`
	StudentName   string                 `json:"student_name"`
	StudentEmail  string                 `json:"student_email"`
	Status        database.AttemptStatus `json:"status"`
	StartedAt     time.Time              `json:"started_at"`
	SubmittedAt   *time.Time             `json:"submitted_at,omitempty"`
	EarnedPoints  int                    `json:"earned_points"`
	TotalPoints   int                    `json:"total_points"`
	CorrectCount  int                    `json:"correct_count"`
	QuestionCount int                    `json:"question_count"`
	Score         float64                `json:"score"`
	TimedOut      bool                   `json:"timed_out"`
}

// ListAttempts returns the attempts of every student at a test.
// GET /api/tests/:id/attempts
func (s *TestService) ListAttempts(c *gin.Context) {
	testID, ok := httputils.IDParam(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	user, _ := auth.GetUser(ctx)

	results, err := s.attempts.ListForTest(ctx, user.UserID, testID)
	if err != nil {
		abort(c, err, user.UserID)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"attempts": lo.Map(results, func(result attempt.StudentResult, _ int) StudentResultResponse {
			a := result.Attempt
			return StudentResultResponse{
				AttemptID:     a.ID,
				StudentID:     a.StudentID,
				StudentName:   result.StudentName,
				StudentEmail:  result.StudentEmail,
				Status:        a.Status,
				StartedAt:     a.StartedAt,
				SubmittedAt:   a.SubmittedAt,
				EarnedPoints:  a.EarnedPoints,
				TotalPoints:   a.TotalPoints,
				CorrectCount:  a.CorrectCount,
				QuestionCount: a.QuestionCount,
				Score:         a.Score,
				TimedOut:      a.TimedOut,
			}
		}),
	})
}

// Statistics returns the aggregate results of a test.
// GET /api/tests/:id/statistics
func (s *TestService) Statistics(c *gin.Context) {
	testID, ok := httputils.IDParam(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	user, _ := auth.GetUser(ctx)

	stats, err := s.statistics.ForTest(ctx, user.UserID, testID)
	if err != nil {
		abort(c, err, user.UserID)
		return
	}

	c.JSON(http.StatusOK, stats)
}

type RankingQuery struct {
	By     ranking.By     `form:"by"`
	Order  ranking.Order  `form:"order"`
	Period ranking.Period `form:"period"`
	First  int            `form:"first" binding:"omitempty,min=1"`
	After  *int           `form:"after"`
}

type RankingEntryResponse struct {
	Rank         int     `json:"rank"`
	StudentID    int     `json:"student_id"`
	StudentName  string  `json:"student_name"`
	BestScore    float64 `json:"best_score"`
	BestCorrect  int     `json:"best_correct"`
	AttemptCount int     `json:"attempt_count"`
}

type RankingResponse struct {
	Entries         []RankingEntryResponse `json:"entries"`
	TotalCount      int                    `json:"total_count"`
	HasNextPage     bool                   `json:"has_next_page"`
	HasPreviousPage bool                   `json:"has_previous_page"`
	EndCursor       *int                   `json:"end_cursor,omitempty"`
}

// Ranking ranks the students of a test by their best closed attempt.
// GET /api/tests/:id/ranking?by=score|correct&order=desc|asc&period=all|daily|weekly&first=10&after=<student id>
func (s *TestService) Ranking(c *gin.Context) {
	testID, ok := httputils.IDParam(c, "id")
	if !ok {
		return
	}

	var query RankingQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httputils.Abort(c, http.StatusBadRequest, httputils.CodeInvalidRequest, "first and after must be positive integers")
		return
	}

	ctx := c.Request.Context()
	user, _ := auth.GetUser(ctx)

	conn, err := s.ranking.GetRanking(ctx, user.UserID, testID,
		ranking.Filter{By: query.By, Order: query.Order, Period: query.Period},
		ranking.Page{First: query.First, After: query.After},
	)
	if err != nil {
		abort(c, err, user.UserID)
		return
	}

	c.JSON(http.StatusOK, RankingResponse{
		Entries: lo.Map(conn.Entries, func(entry ranking.Entry, _ int) RankingEntryResponse {
			return RankingEntryResponse{
				Rank:         entry.Rank,
				StudentID:    entry.StudentID,
				StudentName:  entry.StudentName,
				BestScore:    entry.BestScore,
				BestCorrect:  entry.BestCorrect,
				AttemptCount: entry.AttemptCount,
			}
		}),
		TotalCount:      conn.TotalCount,
		HasNextPage:     conn.HasNextPage,
		HasPreviousPage: conn.HasPreviousPage,
		EndCursor:       conn.EndCursor,
	})
}
