package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/quizgenius/backend/internal/database"
	"github.com/quizgenius/backend/internal/quiz"
	"github.com/quizgenius/backend/internal/useraccount"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// TestFile is the YAML form of a test used by import-test and export-test.
type TestFile struct {
	Title            string         `yaml:"title"`
	Description      string         `yaml:"description,omitempty"`
	TimeLimitMinutes int            `yaml:"time_limit_minutes,omitempty"`
	MaxAttempts      *int           `yaml:"max_attempts,omitempty"`
	Questions        []QuestionFile `yaml:"questions"`
}

type QuestionFile struct {
	Type         database.QuestionType `yaml:"type"`
	Text         string                `yaml:"text"`
	Options      []string              `yaml:"options"`
	CorrectIndex int                   `yaml:"correct_index"`
	Explanation  string                `yaml:"explanation,omitempty"`
	Points       int                   `yaml:"points,omitempty"`
}

// ParseTestFile decodes a TestFile from YAML.
func ParseTestFile(content []byte) (TestFile, error) {
	var file TestFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return TestFile{}, fmt.Errorf("unmarshal test file: %w", err)
	}

	return file, nil
}

// Marshal encodes the TestFile as YAML.
func (f TestFile) Marshal() ([]byte, error) {
	return yaml.Marshal(f)
}

// ImportTest creates an unpublished test owned by the instructor with ownerEmail.
//
// Questions go through the same validation as questions added in the API. If any
// question is rejected, the test is removed again and every rejection is reported.
func (c *Context) ImportTest(ctx context.Context, ownerEmail string, file TestFile) (*database.Test, error) {
	owner, err := c.useraccount.GetUserByEmail(ctx, useraccount.NormalizeEmail(ownerEmail))
	if err != nil {
		if errors.Is(err, useraccount.ErrUserNotFound) {
			return nil, fmt.Errorf("user with email %q not found", ownerEmail)
		}
		return nil, err
	}
	if owner.Role != database.RoleInstructor {
		return nil, fmt.Errorf("user %q is not an instructor", owner.Email)
	}

	test, err := c.quiz.CreateTest(ctx, owner.ID, quiz.TestInput{
		Title:            file.Title,
		Description:      file.Description,
		TimeLimitMinutes: file.TimeLimitMinutes,
		MaxAttempts:      file.MaxAttempts,
	})
	if err != nil {
		return nil, err
	}

	var result *multierror.Error
	for i, question := range file.Questions {
		input := quiz.QuestionInput{
			Type:         question.Type,
			Text:         question.Text,
			Options:      question.Options,
			CorrectIndex: question.CorrectIndex,
			Explanation:  question.Explanation,
		}
		if question.Points != 0 {
			input.Points = lo.ToPtr(question.Points)
		}

		if _, err := c.quiz.AddQuestion(ctx, owner.ID, test.ID, input); err != nil {
			result = multierror.Append(result, fmt.Errorf("question #%d: %w", i+1, err))
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		if deleteErr := c.quiz.DeleteTest(ctx, owner.ID, test.ID); deleteErr != nil {
			return nil, multierror.Append(err, fmt.Errorf("remove partial test: %w", deleteErr))
		}
		return nil, err
	}

	return c.quiz.GetTest(ctx, owner.ID, test.ID)
}

// ExportTest reads the test with testID and its questions, regardless of the owner.
func (c *Context) ExportTest(ctx context.Context, testID int) (TestFile, error) {
	var test database.Test
	err := c.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&test, testID).Error
	if err != nil {
		if database.IsNotFound(err) {
			return TestFile{}, fmt.Errorf("test %d not found", testID)
		}
		return TestFile{}, err
	}

	return TestFile{
		Title:            test.Title,
		Description:      test.Description,
		TimeLimitMinutes: test.TimeLimitMinutes,
		MaxAttempts:      lo.ToPtr(test.MaxAttempts),
		Questions: lo.Map(test.Questions, func(question database.Question, _ int) QuestionFile {
			return QuestionFile{
				Type:         question.Type,
				Text:         question.Text,
				Options:      question.Options,
				CorrectIndex: question.CorrectIndex,
				Explanation:  question.Explanation,
				Points:       question.Points,
			}
		}),
	}, nil
}
