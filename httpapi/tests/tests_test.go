package testservice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quizgenius/backend/internal/attempt"
	"github.com/quizgenius/backend/internal/auth"
	"github.com/quizgenius/backend/internal/database"
	"github.com/quizgenius/backend/internal/documents"
	"github.com/quizgenius/backend/internal/events"
	"github.com/quizgenius/backend/internal/generation"
	"github.com/quizgenius/backend/internal/httputils"
	"github.com/quizgenius/backend/internal/quiz"
	"github.com/quizgenius/backend/internal/ranking"
	"github.com/quizgenius/backend/internal/statistics"
	"github.com/quizgenius/backend/internal/testhelper"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeGenerator struct {
	result generation.Result
	err    error
}

func (f *fakeGenerator) Generate(ctx context.Context, req generation.Request) (generation.Result, error) {
	if err := req.Validate(); err != nil {
		return generation.Result{}, err
	}
	return f.result, f.err
}

type fixture struct {
	db         *gorm.DB
	router     *gin.Engine
	generator  *fakeGenerator
	owner      *database.User
	instructor string
	other      string
	student    string
}

func setup(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testhelper.NewSqliteDB(t)
	storage, err := documents.NewFileStorage(t.TempDir())
	require.NoError(t, err)

	eventService := events.NewEventService(db)
	generator := &fakeGenerator{}
	service := NewTestService(
		quiz.NewService(db, generator, documents.NewService(db, storage, eventService, 1<<20), eventService),
		attempt.NewService(db, eventService),
		statistics.NewService(db),
		ranking.NewService(db),
	)

	authStorage := testhelper.NewMemoryAuthStorage()
	router := gin.New()
	router.Use(auth.Middleware(authStorage))
	service.Register(router.Group("/api"))

	owner := testhelper.CreateUser(t, db, "lecturer@example.com", database.RoleInstructor)
	return &fixture{
		db:         db,
		router:     router,
		generator:  generator,
		owner:      owner,
		instructor: authStorage.Token(t, owner),
		other:      authStorage.Token(t, testhelper.CreateUser(t, db, "other@example.com", database.RoleInstructor)),
		student:    authStorage.Token(t, testhelper.CreateUser(t, db, "student@example.com", database.RoleStudent)),
	}
}

func (f *fixture) do(t *testing.T, token, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func (f *fixture) createTest(t *testing.T) TestResponse {
	t.Helper()

	rr := f.do(t, f.instructor, http.MethodPost, "/api/tests", `{"title":"Photosynthesis","time_limit_minutes":30}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[TestResponse](t, rr)
}

func (f *fixture) addQuestion(t *testing.T, testID int, text string) QuestionResponse {
	t.Helper()

	body := fmt.Sprintf(`{"type":"multiple_choice","text":%q,"options":["Carbon dioxide","Oxygen","Nitrogen","Helium"],"correct_index":0}`, text)
	rr := f.do(t, f.instructor, http.MethodPost, testPath(testID)+"/questions", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[QuestionResponse](t, rr)
}

func (f *fixture) createDocument(t *testing.T, status database.DocumentStatus, text string) int {
	t.Helper()

	document := database.Document{
		OwnerID:     f.owner.ID,
		Filename:    "lecture.pdf",
		StorageKey:  "key-" + strconv.Itoa(len(text)) + string(status),
		ContentType: "application/pdf",
		SizeBytes:   1,
		PageCount:   1,
		Status:      status,
		Text:        text,
	}
	require.NoError(t, f.db.Create(&document).Error)
	return document.ID
}

func testPath(id int) string {
	return "/api/tests/" + strconv.Itoa(id)
}

func TestTestService_CreateAndList(t *testing.T) {
	f := setup(t)

	test := f.createTest(t)
	assert.Equal(t, "Photosynthesis", test.Title)
	assert.Equal(t, 30, test.TimeLimitMinutes)
	assert.Equal(t, quiz.DefaultMaxAttempts, test.MaxAttempts)
	assert.False(t, test.Published)

	f.addQuestion(t, test.ID, "Which gas do plants absorb?")

	rr := f.do(t, f.instructor, http.MethodGet, "/api/tests", "")
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[struct {
		Tests []TestSummaryResponse `json:"tests"`
	}](t, rr)
	require.Len(t, list.Tests, 1)
	assert.Equal(t, 1, list.Tests[0].QuestionCount)

	rr = f.do(t, f.instructor, http.MethodGet, testPath(test.ID), "")
	require.Equal(t, http.StatusOK, rr.Code)
	got := decode[TestResponse](t, rr)
	require.Len(t, got.Questions, 1)
	assert.Equal(t, 0, got.Questions[0].CorrectIndex)

	t.Run("empty title", func(t *testing.T) {
		rr := f.do(t, f.instructor, http.MethodPost, "/api/tests", `{"title":"  "}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("other instructor", func(t *testing.T) {
		rr := f.do(t, f.other, http.MethodGet, testPath(test.ID), "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("student is forbidden", func(t *testing.T) {
		rr := f.do(t, f.student, http.MethodGet, "/api/tests", "")
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}

func TestTestService_UpdateDuplicateDelete(t *testing.T) {
	f := setup(t)
	test := f.createTest(t)
	f.addQuestion(t, test.ID, "Which gas do plants absorb?")

	rr := f.do(t, f.instructor, http.MethodPatch, testPath(test.ID), `{"title":"Light reactions","max_attempts":0}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[TestResponse](t, rr)
	assert.Equal(t, "Light reactions", updated.Title)
	assert.Equal(t, 0, updated.MaxAttempts)
	assert.Equal(t, 30, updated.TimeLimitMinutes)

	rr = f.do(t, f.instructor, http.MethodPost, testPath(test.ID)+"/duplicate", "")
	require.Equal(t, http.StatusCreated, rr.Code)
	copied := decode[TestResponse](t, rr)
	assert.NotEqual(t, test.ID, copied.ID)
	assert.Equal(t, "Light reactions (copy)", copied.Title)
	assert.Len(t, copied.Questions, 1)

	rr = f.do(t, f.instructor, http.MethodDelete, testPath(copied.ID), "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = f.do(t, f.instructor, http.MethodGet, testPath(copied.ID), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestTestService_Questions(t *testing.T) {
	f := setup(t)
	test := f.createTest(t)
	first := f.addQuestion(t, test.ID, "Which gas do plants absorb?")
	second := f.addQuestion(t, test.ID, "Which gas do plants release?")
	assert.Equal(t, 1, first.Position)
	assert.Equal(t, 2, second.Position)

	t.Run("invalid question", func(t *testing.T) {
		rr := f.do(t, f.instructor, http.MethodPost, testPath(test.ID)+"/questions",
			`{"type":"multiple_choice","text":"Pick one","options":["a","b"],"correct_index":0}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, httputils.CodeInvalidRequest, decode[httputils.ErrorResponse](t, rr).Error)
	})

	rr := f.do(t, f.instructor, http.MethodPatch,
		testPath(test.ID)+"/questions/"+strconv.Itoa(second.ID), `{"correct_index":1,"points":3}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	patched := decode[QuestionResponse](t, rr)
	assert.Equal(t, 1, patched.CorrectIndex)
	assert.Equal(t, 3, patched.Points)

	rr = f.do(t, f.instructor, http.MethodPut, testPath(test.ID)+"/questions/order",
		fmt.Sprintf(`{"question_ids":[%d,%d]}`, second.ID, first.ID))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	ordered := decode[struct {
		Questions []QuestionResponse `json:"questions"`
	}](t, rr)
	require.Len(t, ordered.Questions, 2)
	assert.Equal(t, second.ID, ordered.Questions[0].ID)

	t.Run("order must be complete", func(t *testing.T) {
		rr := f.do(t, f.instructor, http.MethodPut, testPath(test.ID)+"/questions/order",
			fmt.Sprintf(`{"question_ids":[%d]}`, first.ID))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	rr = f.do(t, f.instructor, http.MethodDelete, testPath(test.ID)+"/questions/"+strconv.Itoa(second.ID), "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = f.do(t, f.instructor, http.MethodDelete, testPath(test.ID)+"/questions/"+strconv.Itoa(second.ID), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestTestService_Generate(t *testing.T) {
	f := setup(t)
	test := f.createTest(t)
	documentID := f.createDocument(t, database.DocumentStatusReady, testhelper.LectureText)

	f.generator.result = generation.Result{
		Questions: []generation.Question{{
			Type:         database.QuestionTypeTrueFalse,
			Text:         "Photosynthesis stores energy in glucose.",
			Options:      generation.TrueFalseOptions,
			CorrectIndex: 0,
			Explanation:  "Glucose stores the chemical energy.",
		}},
		Rejected:  []generation.Rejection{{Text: "Is it green?", Reason: "statement is a question"}},
		Shortfall: 1,
	}

	body := fmt.Sprintf(`{"document_id":%d,"true_false":2}`, documentID)
	rr := f.do(t, f.instructor, http.MethodPost, testPath(test.ID)+"/generate", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	resp := decode[GenerateResponse](t, rr)
	require.Len(t, resp.Questions, 1)
	assert.Equal(t, database.QuestionSourceGenerated, resp.Questions[0].Source)
	assert.Equal(t, 1, resp.Shortfall)
	require.Len(t, resp.Rejected, 1)

	cases := []struct {
		name   string
		err    error
		body   string
		status int
	}{
		{"quota", generation.ErrQuotaExceeded, body, http.StatusTooManyRequests},
		{"model unavailable", fmt.Errorf("%w: throttled", generation.ErrModelUnavailable), body, http.StatusServiceUnavailable},
		{"insufficient text", generation.ErrInsufficientText, body, http.StatusUnprocessableEntity},
		{"no counts", nil, fmt.Sprintf(`{"document_id":%d}`, documentID), http.StatusBadRequest},
		{"unknown document", nil, `{"document_id":9999,"true_false":1}`, http.StatusNotFound},
		{"missing document", nil, `{"true_false":1}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f.generator.err = tc.err
			defer func() { f.generator.err = nil }()

			rr := f.do(t, f.instructor, http.MethodPost, testPath(test.ID)+"/generate", tc.body)
			assert.Equal(t, tc.status, rr.Code, rr.Body.String())
		})
	}

	t.Run("document without text", func(t *testing.T) {
		noText := f.createDocument(t, database.DocumentStatusNoText, "")

		rr := f.do(t, f.instructor, http.MethodPost, testPath(test.ID)+"/generate",
			fmt.Sprintf(`{"document_id":%d,"true_false":1}`, noText))
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})
}

func TestTestService_Publish(t *testing.T) {
	f := setup(t)
	test := f.createTest(t)

	rr := f.do(t, f.instructor, http.MethodPost, testPath(test.ID)+"/publish", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	f.addQuestion(t, test.ID, "Which gas do plants absorb?")

	rr = f.do(t, f.instructor, http.MethodPost, testPath(test.ID)+"/publish", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	published := decode[TestResponse](t, rr)
	assert.True(t, published.Published)
	assert.NotNil(t, published.PublishedAt)

	rr = f.do(t, f.instructor, http.MethodPatch, testPath(test.ID), `{"title":"Changed"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = f.do(t, f.instructor, http.MethodDelete, testPath(test.ID), "")
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = f.do(t, f.instructor, http.MethodPost, testPath(test.ID)+"/unpublish", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decode[TestResponse](t, rr).Published)
}

func TestTestService_Results(t *testing.T) {
	f := setup(t)
	test := f.createTest(t)
	f.addQuestion(t, test.ID, "Which gas do plants absorb?")

	rr := f.do(t, f.instructor, http.MethodGet, testPath(test.ID)+"/attempts", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"attempts":[]}`, rr.Body.String())

	rr = f.do(t, f.instructor, http.MethodGet, testPath(test.ID)+"/statistics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	stats := decode[statistics.TestStats](t, rr)
	assert.Equal(t, test.ID, stats.TestID)
	assert.Zero(t, stats.AttemptCount)

	rr = f.do(t, f.other, http.MethodGet, testPath(test.ID)+"/statistics", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = f.do(t, f.student, http.MethodGet, testPath(test.ID)+"/attempts", "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestTestService_Ranking(t *testing.T) {
	f := setup(t)
	test := f.createTest(t)
	f.addQuestion(t, test.ID, "What do plants release?")

	student := testhelper.CreateUser(t, f.db, "ranked@example.com", database.RoleStudent)
	require.NoError(t, f.db.Create(&database.Attempt{
		TestID:        test.ID,
		StudentID:     student.ID,
		Status:        database.AttemptStatusSubmitted,
		StartedAt:     time.Now(),
		SubmittedAt:   lo.ToPtr(time.Now()),
		Score:         100,
		CorrectCount:  1,
		QuestionCount: 1,
		TotalPoints:   1,
	}).Error)

	rr := f.do(t, f.instructor, http.MethodGet, testPath(test.ID)+"/ranking", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode[RankingResponse](t, rr)
	assert.Equal(t, 1, body.TotalCount)
	require.Len(t, body.Entries, 1)
	assert.Equal(t, RankingEntryResponse{
		Rank:         1,
		StudentID:    student.ID,
		StudentName:  student.Name,
		BestScore:    100,
		BestCorrect:  1,
		AttemptCount: 1,
	}, body.Entries[0])

	rr = f.do(t, f.instructor, http.MethodGet, testPath(test.ID)+"/ranking?period=monthly", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, f.instructor, http.MethodGet, testPath(test.ID)+"/ranking?first=-1", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, f.other, http.MethodGet, testPath(test.ID)+"/ranking", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = f.do(t, f.student, http.MethodGet, testPath(test.ID)+"/ranking", "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestTestService_CorrectAnswer(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	test := f.createTest(t)
	question := f.addQuestion(t, test.ID, "Which gas do plants release?")
	rr := f.do(t, f.instructor, http.MethodPost, testPath(test.ID)+"/publish", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	attempts := attempt.NewService(f.db, events.NewEventService(f.db))
	student := testhelper.CreateUser(t, f.db, "answered@example.com", database.RoleStudent)
	a, _, err := attempts.Start(ctx, student.ID, test.ID)
	require.NoError(t, err)
	_, err = attempts.Submit(ctx, student.ID, a.ID, map[int]*int{question.ID: lo.ToPtr(1)})
	require.NoError(t, err)

	path := fmt.Sprintf("%s/questions/%d/answer", testPath(test.ID), question.ID)

	rr = f.do(t, f.instructor, http.MethodPut, path, `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, f.instructor, http.MethodPut, path, `{"correct_index":7}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, f.other, http.MethodPut, path, `{"correct_index":1}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = f.do(t, f.student, http.MethodPut, path, `{"correct_index":1}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = f.do(t, f.instructor, http.MethodPut, path, `{"correct_index":1}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decode[CorrectAnswerResponse](t, rr)
	assert.Equal(t, 1, body.Question.CorrectIndex)
	assert.Equal(t, 1, body.Regraded)
	assert.Equal(t, 1, body.Changed)

	var stored database.Attempt
	require.NoError(t, f.db.First(&stored, a.ID).Error)
	assert.Equal(t, 100.0, stored.Score)

	rr = f.do(t, f.instructor, http.MethodPut, path, `{"correct_index":1}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Zero(t, decode[CorrectAnswerResponse](t, rr).Changed)
}
