package quiz_test

import (
	"context"
	"strings"
	"testing"

	"github.com/quizgenius/backend/internal/database"
	"github.com/quizgenius/backend/internal/documents"
	"github.com/quizgenius/backend/internal/events"
	"github.com/quizgenius/backend/internal/generation"
	"github.com/quizgenius/backend/internal/quiz"
	"github.com/quizgenius/backend/internal/testhelper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeGenerator struct {
	result   generation.Result
	err      error
	requests []generation.Request
}

func (f *fakeGenerator) Generate(ctx context.Context, req generation.Request) (generation.Result, error) {
	f.requests = append(f.requests, req)
	return f.result, f.err
}

type fixture struct {
	service    *quiz.Service
	db         *gorm.DB
	generator  *fakeGenerator
	instructor *database.User
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	db := testhelper.NewSqliteDB(t)
	storage, err := documents.NewFileStorage(t.TempDir())
	require.NoError(t, err)

	eventService := events.NewEventService(db)
	generator := &fakeGenerator{}
	documentService := documents.NewService(db, storage, eventService, 1<<20)

	return fixture{
		service:    quiz.NewService(db, generator, documentService, eventService),
		db:         db,
		generator:  generator,
		instructor: testhelper.CreateUser(t, db, "lecturer@example.com", database.RoleInstructor),
	}
}

func intPtr(i int) *int {
	return &i
}

func strPtr(s string) *string {
	return &s
}

func TestCreateTest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	t.Run("defaults", func(t *testing.T) {
		test, err := f.service.CreateTest(ctx, f.instructor.ID, quiz.TestInput{Title: "  Week 1  "})
		require.NoError(t, err)
		assert.Equal(t, "Week 1", test.Title)
		assert.Equal(t, quiz.DefaultMaxAttempts, test.MaxAttempts)
		assert.False(t, test.Published)
	})

	t.Run("unlimited attempts", func(t *testing.T) {
		test, err := f.service.CreateTest(ctx, f.instructor.ID, quiz.TestInput{Title: "Week 2", MaxAttempts: intPtr(0)})
		require.NoError(t, err)

		var stored database.Test
		require.NoError(t, f.db.First(&stored, test.ID).Error)
		assert.Zero(t, stored.MaxAttempts)
	})

	for name, input := range map[string]quiz.TestInput{
		"missing title":       {Title: " "},
		"long title":          {Title: strings.Repeat("a", quiz.MaxTitleLength+1)},
		"negative time limit": {Title: "t", TimeLimitMinutes: -1},
		"huge time limit":     {Title: "t", TimeLimitMinutes: quiz.MaxTimeLimitMinutes + 1},
		"too many attempts":   {Title: "t", MaxAttempts: intPtr(quiz.MaxAttemptsLimit + 1)},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.service.CreateTest(ctx, f.instructor.ID, input)
			assert.ErrorIs(t, err, quiz.ErrInvalidTest)
		})
	}
}

func TestUpdateAndDeleteTest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	test, err := f.service.CreateTest(ctx, f.instructor.ID, quiz.TestInput{Title: "Draft", TimeLimitMinutes: 10})
	require.NoError(t, err)

	updated, err := f.service.UpdateTest(ctx, f.instructor.ID, test.ID, quiz.TestPatch{
		Title:            strPtr("Final"),
		TimeLimitMinutes: intPtr(0),
	})
	require.NoError(t, err)
	assert.Equal(t, "Final", updated.Title)
	assert.Zero(t, updated.TimeLimitMinutes)

	got, err := f.service.GetTest(ctx, f.instructor.ID, test.ID)
	require.NoError(t, err)
	assert.Equal(t, "Final", got.Title)
	assert.Zero(t, got.TimeLimitMinutes)

	other := testhelper.CreateUser(t, f.db, "other@example.com", database.RoleInstructor)
	_, err = f.service.GetTest(ctx, other.ID, test.ID)
	assert.ErrorIs(t, err, quiz.ErrTestNotFound)
	assert.ErrorIs(t, f.service.DeleteTest(ctx, other.ID, test.ID), quiz.ErrTestNotFound)

	require.NoError(t, f.service.DeleteTest(ctx, f.instructor.ID, test.ID))
	_, err = f.service.GetTest(ctx, f.instructor.ID, test.ID)
	assert.ErrorIs(t, err, quiz.ErrTestNotFound)
}

func TestDeleteTest_Cascades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	student := testhelper.CreateUser(t, f.db, "student@example.com", database.RoleStudent)

	test := testhelper.CreateTest(t, f.db, f.instructor.ID, testhelper.TestOptions{},
		testhelper.MultipleChoice("What does photosynthesis produce?", 0))

	attempt := database.Attempt{TestID: test.ID, StudentID: student.ID, Status: database.AttemptStatusSubmitted}
	require.NoError(t, f.db.Create(&attempt).Error)
	require.NoError(t, f.db.Create(&database.Response{AttemptID: attempt.ID, QuestionID: test.Questions[0].ID, Choice: intPtr(0)}).Error)

	require.NoError(t, f.service.DeleteTest(ctx, f.instructor.ID, test.ID))

	var count int64
	require.NoError(t, f.db.Model(&database.Question{}).Where("test_id = ?", test.ID).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, f.db.Model(&database.Attempt{}).Where("test_id = ?", test.ID).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, f.db.Model(&database.Response{}).Where("attempt_id = ?", attempt.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEditingRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	student := testhelper.CreateUser(t, f.db, "student@example.com", database.RoleStudent)

	published := testhelper.CreateTest(t, f.db, f.instructor.ID, testhelper.TestOptions{Published: true, MaxAttempts: 1},
		testhelper.MultipleChoice("What does photosynthesis produce?", 0))

	_, err := f.service.UpdateTest(ctx, f.instructor.ID, published.ID, quiz.TestPatch{Title: strPtr("x")})
	assert.ErrorIs(t, err, quiz.ErrTestPublished)
	_, err = f.service.AddQuestion(ctx, f.instructor.ID, published.ID, quiz.QuestionInput{
		Type: database.QuestionTypeTrueFalse, Text: "Plants need light.",
	})
	assert.ErrorIs(t, err, quiz.ErrTestPublished)
	assert.ErrorIs(t, f.service.DeleteTest(ctx, f.instructor.ID, published.ID), quiz.ErrTestPublished)

	_, err = f.service.Unpublish(ctx, f.instructor.ID, published.ID)
	require.NoError(t, err)
	require.NoError(t, f.db.Create(&database.Attempt{TestID: published.ID, StudentID: student.ID, Status: database.AttemptStatusSubmitted}).Error)

	err = f.service.DeleteQuestion(ctx, f.instructor.ID, published.ID, published.Questions[0].ID)
	assert.ErrorIs(t, err, quiz.ErrTestLocked)
}

func TestCorrectAnswer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	student := testhelper.CreateUser(t, f.db, "student@example.com", database.RoleStudent)

	test := testhelper.CreateTest(t, f.db, f.instructor.ID, testhelper.TestOptions{Published: true, MaxAttempts: 1},
		testhelper.MultipleChoice("What does photosynthesis produce?", 0),
		testhelper.TrueFalse("Plants need light.", true),
	)
	require.NoError(t, f.db.Create(&database.Attempt{TestID: test.ID, StudentID: student.ID, Status: database.AttemptStatusSubmitted}).Error)
	mc, tf := test.Questions[0], test.Questions[1]

	t.Run("allowed on a locked test", func(t *testing.T) {
		question, err := f.service.CorrectAnswer(ctx, f.instructor.ID, test.ID, mc.ID, 2)
		require.NoError(t, err)
		assert.Equal(t, 2, question.CorrectIndex)

		var stored database.Question
		require.NoError(t, f.db.First(&stored, mc.ID).Error)
		assert.Equal(t, 2, stored.CorrectIndex)
		assert.Equal(t, mc.Text, stored.Text)
	})

	t.Run("index out of range", func(t *testing.T) {
		_, err := f.service.CorrectAnswer(ctx, f.instructor.ID, test.ID, tf.ID, 2)
		assert.ErrorIs(t, err, quiz.ErrInvalidQuestion)
	})

	t.Run("unknown question", func(t *testing.T) {
		_, err := f.service.CorrectAnswer(ctx, f.instructor.ID, test.ID, 9999, 0)
		assert.ErrorIs(t, err, quiz.ErrQuestionNotFound)
	})

	t.Run("other owner", func(t *testing.T) {
		other := testhelper.CreateUser(t, f.db, "other@example.com", database.RoleInstructor)

		_, err := f.service.CorrectAnswer(ctx, other.ID, test.ID, mc.ID, 1)
		assert.ErrorIs(t, err, quiz.ErrTestNotFound)
	})
}

func TestQuestions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	test, err := f.service.CreateTest(ctx, f.instructor.ID, quiz.TestInput{Title: "Week 1"})
	require.NoError(t, err)

	first, err := f.service.AddQuestion(ctx, f.instructor.ID, test.ID, quiz.QuestionInput{
		Type:         database.QuestionTypeMultipleChoice,
		Text:         "What does photosynthesis produce?",
		Options:      []string{" Glucose", "Salt", "Iron", "Helium"},
		CorrectIndex: 0,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Position)
	assert.Equal(t, 1, first.Points)
	assert.Equal(t, "Glucose", first.Options[0])
	assert.Equal(t, database.QuestionSourceManual, first.Source)

	second, err := f.service.AddQuestion(ctx, f.instructor.ID, test.ID, quiz.QuestionInput{
		Type:         database.QuestionTypeTrueFalse,
		Text:         "Photosynthesis needs light.",
		CorrectIndex: 0,
		Points:       intPtr(3),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Position)
	assert.Equal(t, []string{"True", "False"}, second.Options)

	third, err := f.service.AddQuestion(ctx, f.instructor.ID, test.ID, quiz.QuestionInput{
		Type:         database.QuestionTypeTrueFalse,
		Text:         "Glucose stores chemical energy.",
		CorrectIndex: 0,
	})
	require.NoError(t, err)

	t.Run("invalid question", func(t *testing.T) {
		_, err := f.service.AddQuestion(ctx, f.instructor.ID, test.ID, quiz.QuestionInput{
			Type:    database.QuestionTypeMultipleChoice,
			Text:    "Pick",
			Options: []string{"a", "b"},
		})
		assert.ErrorIs(t, err, quiz.ErrInvalidQuestion)
		assert.ErrorIs(t, err, generation.ErrOptionCount)

		_, err = f.service.AddQuestion(ctx, f.instructor.ID, test.ID, quiz.QuestionInput{
			Type:   database.QuestionTypeTrueFalse,
			Text:   "Plants need light.",
			Points: intPtr(0),
		})
		assert.ErrorIs(t, err, quiz.ErrInvalidPoints)
	})

	t.Run("update", func(t *testing.T) {
		updated, err := f.service.UpdateQuestion(ctx, f.instructor.ID, test.ID, first.ID, quiz.QuestionPatch{
			CorrectIndex: intPtr(3),
			Explanation:  strPtr("Glucose is the product."),
		})
		require.NoError(t, err)
		assert.Equal(t, 3, updated.CorrectIndex)

		_, err = f.service.UpdateQuestion(ctx, f.instructor.ID, test.ID, first.ID, quiz.QuestionPatch{CorrectIndex: intPtr(9)})
		assert.ErrorIs(t, err, quiz.ErrInvalidQuestion)

		_, err = f.service.UpdateQuestion(ctx, f.instructor.ID, test.ID, 9999, quiz.QuestionPatch{})
		assert.ErrorIs(t, err, quiz.ErrQuestionNotFound)
	})

	t.Run("reorder", func(t *testing.T) {
		_, err := f.service.ReorderQuestions(ctx, f.instructor.ID, test.ID, []int{third.ID, first.ID})
		assert.ErrorIs(t, err, quiz.ErrInvalidOrder)
		_, err = f.service.ReorderQuestions(ctx, f.instructor.ID, test.ID, []int{third.ID, first.ID, first.ID})
		assert.ErrorIs(t, err, quiz.ErrInvalidOrder)

		questions, err := f.service.ReorderQuestions(ctx, f.instructor.ID, test.ID, []int{third.ID, first.ID, second.ID})
		require.NoError(t, err)
		require.Len(t, questions, 3)

		got, err := f.service.GetTest(ctx, f.instructor.ID, test.ID)
		require.NoError(t, err)
		require.Len(t, got.Questions, 3)
		assert.Equal(t, []int{third.ID, first.ID, second.ID}, []int{got.Questions[0].ID, got.Questions[1].ID, got.Questions[2].ID})
	})

	t.Run("delete closes the gap", func(t *testing.T) {
		require.NoError(t, f.service.DeleteQuestion(ctx, f.instructor.ID, test.ID, third.ID))

		got, err := f.service.GetTest(ctx, f.instructor.ID, test.ID)
		require.NoError(t, err)
		require.Len(t, got.Questions, 2)
		assert.Equal(t, first.ID, got.Questions[0].ID)
		assert.Equal(t, 1, got.Questions[0].Position)
		assert.Equal(t, 2, got.Questions[1].Position)
	})

	t.Run("list", func(t *testing.T) {
		summaries, err := f.service.ListTests(ctx, f.instructor.ID)
		require.NoError(t, err)
		require.Len(t, summaries, 1)
		assert.Equal(t, 2, summaries[0].QuestionCount)
		assert.Zero(t, summaries[0].AttemptCount)
	})
}

func TestDuplicateTest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	original := testhelper.CreateTest(t, f.db, f.instructor.ID, testhelper.TestOptions{Published: true, MaxAttempts: 2},
		testhelper.MultipleChoice("What does photosynthesis produce?", 0),
		testhelper.TrueFalse("Plants need light.", true))

	duplicate, err := f.service.DuplicateTest(ctx, f.instructor.ID, original.ID)
	require.NoError(t, err)

	assert.NotEqual(t, original.ID, duplicate.ID)
	assert.Equal(t, original.Title+" (copy)", duplicate.Title)
	assert.False(t, duplicate.Published)
	assert.Equal(t, 2, duplicate.MaxAttempts)
	require.Len(t, duplicate.Questions, 2)
	assert.Equal(t, duplicate.ID, duplicate.Questions[0].TestID)
	assert.NotEqual(t, original.Questions[0].ID, duplicate.Questions[0].ID)

	got, err := f.service.GetTest(ctx, f.instructor.ID, original.ID)
	require.NoError(t, err)
	assert.Len(t, got.Questions, 2)
}

func TestGenerateQuestions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	document := database.Document{
		OwnerID: f.instructor.ID, Filename: "week1.pdf", StorageKey: "documents/1/a.pdf",
		ContentType: "application/pdf", PageCount: 1, Status: database.DocumentStatusReady,
		Text: testhelper.LectureText,
	}
	require.NoError(t, f.db.Create(&document).Error)
	empty := database.Document{
		OwnerID: f.instructor.ID, Filename: "scan.pdf", StorageKey: "documents/1/b.pdf",
		ContentType: "application/pdf", PageCount: 1, Status: database.DocumentStatusNoText,
	}
	require.NoError(t, f.db.Create(&empty).Error)

	test, err := f.service.CreateTest(ctx, f.instructor.ID, quiz.TestInput{Title: "Generated"})
	require.NoError(t, err)
	_, err = f.service.AddQuestion(ctx, f.instructor.ID, test.ID, quiz.QuestionInput{
		Type: database.QuestionTypeTrueFalse, Text: "Plants need light.", CorrectIndex: 0,
	})
	require.NoError(t, err)

	f.generator.result = generation.Result{
		Questions: []generation.Question{
			{Type: database.QuestionTypeMultipleChoice, Text: "What is stored in glucose?", Options: []string{"Chemical energy", "Sound", "Heat", "Light"}, CorrectIndex: 0},
			{Type: database.QuestionTypeTrueFalse, Text: "Glucose stores energy.", Options: []string{"True", "False"}, CorrectIndex: 0},
		},
		Rejected:  []generation.Rejection{{Text: "Bad?", Reason: "nope"}},
		Shortfall: 1,
	}

	result, err := f.service.GenerateQuestions(ctx, f.instructor.ID, test.ID, quiz.GenerateInput{
		DocumentID: document.ID, MultipleChoice: 2, TrueFalse: 1,
	})
	require.NoError(t, err)
	require.Len(t, result.Questions, 2)
	assert.Equal(t, 2, result.Questions[0].Position)
	assert.Equal(t, database.QuestionSourceGenerated, result.Questions[0].Source)
	assert.Len(t, result.Rejected, 1)
	assert.Equal(t, 1, result.Shortfall)

	require.Len(t, f.generator.requests, 1)
	assert.Equal(t, testhelper.LectureText, f.generator.requests[0].SourceText)
	assert.Equal(t, "Generated", f.generator.requests[0].Title)
	assert.Equal(t, f.instructor.ID, f.generator.requests[0].UserID)

	got, err := f.service.GetTest(ctx, f.instructor.ID, test.ID)
	require.NoError(t, err)
	assert.Len(t, got.Questions, 3)
	require.NotNil(t, got.SourceDocumentID)
	assert.Equal(t, document.ID, *got.SourceDocumentID)

	t.Run("document without text", func(t *testing.T) {
		_, err := f.service.GenerateQuestions(ctx, f.instructor.ID, test.ID, quiz.GenerateInput{DocumentID: empty.ID, MultipleChoice: 1})
		assert.ErrorIs(t, err, quiz.ErrNoText)
	})

	t.Run("unknown document", func(t *testing.T) {
		_, err := f.service.GenerateQuestions(ctx, f.instructor.ID, test.ID, quiz.GenerateInput{DocumentID: 9999, MultipleChoice: 1})
		assert.ErrorIs(t, err, quiz.ErrDocumentNotFound)
	})

	t.Run("generator error", func(t *testing.T) {
		f.generator.err = generation.ErrModelUnavailable
		_, err := f.service.GenerateQuestions(ctx, f.instructor.ID, test.ID, quiz.GenerateInput{DocumentID: document.ID, MultipleChoice: 1})
		assert.ErrorIs(t, err, generation.ErrModelUnavailable)
	})
}

func TestPublish(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	t.Run("empty test", func(t *testing.T) {
		test, err := f.service.CreateTest(ctx, f.instructor.ID, quiz.TestInput{Title: "Empty"})
		require.NoError(t, err)

		_, err = f.service.Publish(ctx, f.instructor.ID, test.ID)
		assert.ErrorIs(t, err, quiz.ErrNotPublishable)
	})

	t.Run("invalid question", func(t *testing.T) {
		broken := testhelper.MultipleChoice("Broken", 0)
		broken.Options = []string{"only", "two"}
		test := testhelper.CreateTest(t, f.db, f.instructor.ID, testhelper.TestOptions{},
			testhelper.TrueFalse("Plants need light.", true), broken)

		_, err := f.service.Publish(ctx, f.instructor.ID, test.ID)
		require.ErrorIs(t, err, quiz.ErrNotPublishable)
		assert.Contains(t, err.Error(), "question 2")
		assert.ErrorIs(t, err, generation.ErrOptionCount)
	})

	t.Run("publish and unpublish", func(t *testing.T) {
		test := testhelper.CreateTest(t, f.db, f.instructor.ID, testhelper.TestOptions{},
			testhelper.MultipleChoice("What does photosynthesis produce?", 0))

		published, err := f.service.Publish(ctx, f.instructor.ID, test.ID)
		require.NoError(t, err)
		assert.True(t, published.Published)
		require.NotNil(t, published.PublishedAt)

		again, err := f.service.Publish(ctx, f.instructor.ID, test.ID)
		require.NoError(t, err)
		assert.True(t, again.Published)

		catalog, err := f.service.ListPublished(ctx)
		require.NoError(t, err)
		require.Len(t, catalog, 1)
		assert.Equal(t, test.ID, catalog[0].ID)
		assert.Equal(t, 1, catalog[0].QuestionCount)
		assert.Equal(t, f.instructor.Name, catalog[0].Instructor)

		unpublished, err := f.service.Unpublish(ctx, f.instructor.ID, test.ID)
		require.NoError(t, err)
		assert.False(t, unpublished.Published)

		catalog, err = f.service.ListPublished(ctx)
		require.NoError(t, err)
		assert.Empty(t, catalog)
	})
}

func TestGetPublished(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	draft := testhelper.CreateTest(t, f.db, f.instructor.ID, testhelper.TestOptions{},
		testhelper.MultipleChoice("Draft question?", 0))
	published := testhelper.CreateTest(t, f.db, f.instructor.ID, testhelper.TestOptions{Published: true, TimeLimitMinutes: 15},
		testhelper.MultipleChoice("What does photosynthesis produce?", 0),
		testhelper.TrueFalse("Plants need light.", true))

	_, err := f.service.GetPublished(ctx, draft.ID)
	assert.ErrorIs(t, err, quiz.ErrTestNotFound)

	got, err := f.service.GetPublished(ctx, published.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, got.TimeLimitMinutes)
	assert.Equal(t, 2, got.QuestionCount)
	assert.Equal(t, 2, got.TotalPoints)
	require.Len(t, got.Questions, 2)
	assert.Equal(t, "What does photosynthesis produce?", got.Questions[0].Text)
	assert.Equal(t, []string{"True", "False"}, got.Questions[1].Options)
}
