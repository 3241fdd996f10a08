package testservice

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quizgenius/backend/internal/attempt"
	"github.com/quizgenius/backend/internal/auth"
	"github.com/quizgenius/backend/internal/database"
	"github.com/quizgenius/backend/internal/generation"
	"github.com/quizgenius/backend/internal/httputils"
	"github.com/quizgenius/backend/internal/quiz"
	"github.com/samber/lo"
)

// QuestionResponse is a question as its author sees it, answer included.
type QuestionResponse struct {
	ID           int                     `json:"id"`
	Position     int                     `json:"position"`
	Type         database.QuestionType   `json:"type"`
	Text         string                  `json:"text"`
	Options      []string                `json:"options"`
	CorrectIndex int                     `json:"correct_index"`
	Explanation  string                  `json:"explanation"`
	Points       int                     `json:"points"`
	Source       database.QuestionSource `json:"source"`
}

func NewQuestionResponse(question *database.Question) QuestionResponse {
	return QuestionResponse{
		ID:           question.ID,
		Position:     question.Position,
		Type:         question.Type,
		Text:         question.Text,
		Options:      question.Options,
		CorrectIndex: question.CorrectIndex,
		Explanation:  question.Explanation,
		Points:       question.Points,
		Source:       question.Source,
	}
}

func newQuestionResponses(questions []database.Question) []QuestionResponse {
	if questions == nil {
		return nil
	}

	return lo.Map(questions, func(question database.Question, _ int) QuestionResponse {
		return NewQuestionResponse(&question)
	})
}

type GenerateBody struct {
	DocumentID     int `json:"document_id" binding:"required"`
	MultipleChoice int `json:"multiple_choice"`
	TrueFalse      int `json:"true_false"`
}

type RejectionResponse struct {
	Text   string `json:"text"`
	Reason string `json:"reason"`
}

type GenerateResponse struct {
	Questions []QuestionResponse  `json:"questions"`
	Rejected  []RejectionResponse `json:"rejected"`
	Shortfall int                 `json:"shortfall"`
	Truncated bool                `json:"truncated"`
}

// GenerateQuestions generates questions from a document and appends them to the test.
// POST /api/tests/:id/generate
func (s *TestService) GenerateQuestions(c *gin.Context) {
	testID, ok := httputils.IDParam(c, "id")
	if !ok {
		return
	}

	var body GenerateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		httputils.Abort(c, http.StatusBadRequest, httputils.CodeInvalidRequest, "document_id is required")
		return
	}

	ctx := c.Request.Context()
	user, _ := auth.GetUser(ctx)

	result, err := s.quiz.GenerateQuestions(ctx, user.UserID, testID, quiz.GenerateInput{
		DocumentID:     body.DocumentID,
		MultipleChoice: body.MultipleChoice,
		TrueFalse:      body.TrueFalse,
	})
	if err != nil {
		abort(c, err, user.UserID)
		return
	}

	c.JSON(http.StatusCreated, GenerateResponse{
		Questions: newQuestionResponses(result.Questions),
		Rejected: lo.Map(result.Rejected, func(rejection generation.Rejection, _ int) RejectionResponse {
			return RejectionResponse{Text: rejection.Text, Reason: rejection.Reason}
		}),
		Shortfall: result.Shortfall,
		Truncated: result.Truncated,
	})
}

type QuestionBody struct {
	Type         database.QuestionType `json:"type" binding:"required"`
	Text         string                `json:"text"`
	Options      []string              `json:"options"`
	CorrectIndex int                   `json:"correct_index"`
	Explanation  string                `json:"explanation"`
	Points       *int                  `json:"points"`
}

// POST /api/tests/:id/questions
func (s *TestService) AddQuestion(c *gin.Context) {
	testID, ok := httputils.IDParam(c, "id")
	if !ok {
		return
	}

	var body QuestionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		httputils.Abort(c, http.StatusBadRequest, httputils.CodeInvalidRequest, "type is required")
		return
	}

	ctx := c.Request.Context()
	user, _ := auth.GetUser(ctx)

	question, err := s.quiz.AddQuestion(ctx, user.UserID, testID, quiz.QuestionInput{
		Type:         body.Type,
		Text:         body.Text,
		Options:      body.Options,
		CorrectIndex: body.CorrectIndex,
		Explanation:  body.Explanation,
		Points:       body.Points,
	})
	if err != nil {
		abort(c, err, user.UserID)
		return
	}

	c.JSON(http.StatusCreated, NewQuestionResponse(question))
}

type QuestionPatchBody struct {
	Type         *database.QuestionType `json:"type"`
	Text         *string                `json:"text"`
	Options      []string               `json:"options"`
	CorrectIndex *int                   `json:"correct_index"`
	Explanation  *string                `json:"explanation"`
	Points       *int                   `json:"points"`
}

// PATCH /api/tests/:id/questions/:questionID
func (s *TestService) UpdateQuestion(c *gin.Context) {
	testID, ok := httputils.IDParam(c, "id")
	if !ok {
		return
	}
	questionID, ok := httputils.IDParam(c, "questionID")
	if !ok {
		return
	}

	var body QuestionPatchBody
	if err := c.ShouldBindJSON(&body); err != nil {
		httputils.Abort(c, http.StatusBadRequest, httputils.CodeInvalidRequest, "the body must be a JSON object")
		return
	}

	ctx := c.Request.Context()
	user, _ := auth.GetUser(ctx)

	question, err := s.quiz.UpdateQuestion(ctx, user.UserID, testID, questionID, quiz.QuestionPatch{
		Type:         body.Type,
		Text:         body.Text,
		Options:      body.Options,
		CorrectIndex: body.CorrectIndex,
		Explanation:  body.Explanation,
		Points:       body.Points,
	})
	if err != nil {
		abort(c, err, user.UserID)
		return
	}

	c.JSON(http.StatusOK, NewQuestionResponse(question))
}

// DELETE /api/tests/:id/questions/:questionID
func (s *TestService) DeleteQuestion(c *gin.Context) {
	testID, ok := httputils.IDParam(c, "id")
	if !ok {
		return
	}
	questionID, ok := httputils.IDParam(c, "questionID")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	user, _ := auth.GetUser(ctx)

	if err := s.quiz.DeleteQuestion(ctx, user.UserID, testID, questionID); err != nil {
		abort(c, err, user.UserID)
		return
	}

	c.Status(http.StatusNoContent)
}

type OrderBody struct {
	QuestionIDs []int `json:"question_ids" binding:"required"`
}

// PUT /api/tests/:id/questions/order
func (s *TestService) ReorderQuestions(c *gin.Context) {
	testID, ok := httputils.IDParam(c, "id")
	if !ok {
		return
	}

	var body OrderBody
	if err := c.ShouldBindJSON(&body); err != nil {
		httputils.Abort(c, http.StatusBadRequest, httputils.CodeInvalidRequest, "question_ids is required")
		return
	}

	ctx := c.Request.Context()
	user, _ := auth.GetUser(ctx)

	questions, err := s.quiz.ReorderQuestions(ctx, user.UserID, testID, body.QuestionIDs)
	if err != nil {
		abort(c, err, user.UserID)
		return
	}

	c.JSON(http.StatusOK, gin.H{"questions": newQuestionResponses(questions)})
}

type AnswerBody struct {
	CorrectIndex *int `json:"correct_index" binding:"required"`
}

type CorrectAnswerResponse struct {
	Question QuestionResponse `json:"question"`
	Regraded int              `json:"regraded"`
	Changed  int              `json:"changed"`
}

// CorrectAnswer fixes the answer key of a question, even on a published test,
// and regrades the closed attempts of the test.
// PUT /api/tests/:id/questions/:questionID/answer
func (s *TestService) CorrectAnswer(c *gin.Context) {
	testID, ok := httputils.IDParam(c, "id")
	if !ok {
		return
	}
	questionID, ok := httputils.IDParam(c, "questionID")
	if !ok {
		return
	}

	var body AnswerBody
	if err := c.ShouldBindJSON(&body); err != nil {
		httputils.Abort(c, http.StatusBadRequest, httputils.CodeInvalidRequest, "correct_index is required")
		return
	}

	ctx := c.Request.Context()
	user, _ := auth.GetUser(ctx)

	question, err := s.quiz.CorrectAnswer(ctx, user.UserID, testID, questionID, *body.CorrectIndex)
	if err != nil {
		abort(c, err, user.UserID)
		return
	}

	results, err := s.attempts.RegradeTest(ctx, testID)
	if err != nil {
		abort(c, err, user.UserID)
		return
	}

	c.JSON(http.StatusOK, CorrectAnswerResponse{
		Question: NewQuestionResponse(question),
		Regraded: len(results),
		Changed:  lo.CountBy(results, func(result attempt.RegradeResult) bool { return result.Changed() }),
	})
}
