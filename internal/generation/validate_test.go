package generation

import (
	"errors"
	"testing"

	"github.com/quizgenius/backend/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateQuestion(t *testing.T) {
	tests := []struct {
		name         string
		questionType database.QuestionType
		text         string
		options      []string
		correctIndex int
		wantErrs     []error
	}{
		{
			name:         "valid multiple choice",
			questionType: database.QuestionTypeMultipleChoice,
			text:         "What does photosynthesis produce?",
			options:      []string{"Glucose", "Salt", "Iron", "Helium"},
			correctIndex: 0,
		},
		{
			name:         "valid multiple choice with five options",
			questionType: database.QuestionTypeMultipleChoice,
			text:         "Which organelle hosts photosynthesis?",
			options:      []string{"Chloroplast", "Nucleus", "Ribosome", "Vacuole", "Golgi body"},
			correctIndex: 4,
		},
		{
			name:         "valid true/false",
			questionType: database.QuestionTypeTrueFalse,
			text:         "Photosynthesis stores energy in glucose.",
			options:      []string{"True", "False"},
			correctIndex: 1,
		},
		{
			name:         "too few options",
			questionType: database.QuestionTypeMultipleChoice,
			text:         "Pick one",
			options:      []string{"A", "B", "C"},
			correctIndex: 0,
			wantErrs:     []error{ErrOptionCount},
		},
		{
			name:         "too many options",
			questionType: database.QuestionTypeMultipleChoice,
			text:         "Pick one",
			options:      []string{"A", "B", "C", "D", "E", "F"},
			correctIndex: 0,
			wantErrs:     []error{ErrOptionCount},
		},
		{
			name:         "duplicate and empty options",
			questionType: database.QuestionTypeMultipleChoice,
			text:         "Pick one",
			options:      []string{"Glucose", "glucose ", "", "Iron"},
			correctIndex: 0,
			wantErrs:     []error{ErrDuplicateOption, ErrEmptyOption},
		},
		{
			name:         "correct index out of range",
			questionType: database.QuestionTypeMultipleChoice,
			text:         "Pick one",
			options:      []string{"A", "B", "C", "D"},
			correctIndex: 4,
			wantErrs:     []error{ErrCorrectIndex},
		},
		{
			name:         "empty text",
			questionType: database.QuestionTypeMultipleChoice,
			text:         "  ",
			options:      []string{"A", "B", "C", "D"},
			correctIndex: 0,
			wantErrs:     []error{ErrEmptyText},
		},
		{
			name:         "true/false with other options",
			questionType: database.QuestionTypeTrueFalse,
			text:         "Plants are green.",
			options:      []string{"Yes", "No"},
			correctIndex: 0,
			wantErrs:     []error{ErrTrueFalseOptions},
		},
		{
			name:         "true/false phrased as question",
			questionType: database.QuestionTypeTrueFalse,
			text:         "Are plants green?",
			options:      []string{"True", "False"},
			correctIndex: 0,
			wantErrs:     []error{ErrStatementIsQuestion},
		},
		{
			name:         "true/false with hedging word",
			questionType: database.QuestionTypeTrueFalse,
			text:         "Plants Usually need light.",
			options:      []string{"True", "False"},
			correctIndex: 0,
			wantErrs:     []error{ErrHedgingWord},
		},
		{
			name:         "unknown type",
			questionType: "essay",
			text:         "Describe photosynthesis.",
			options:      []string{"A"},
			correctIndex: 0,
			wantErrs:     []error{ErrUnknownType},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQuestion(tt.questionType, tt.text, tt.options, tt.correctIndex)
			if len(tt.wantErrs) == 0 {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			for _, want := range tt.wantErrs {
				assert.True(t, errors.Is(err, want), "expected %v in %v", want, err)
			}
		})
	}
}

func TestValidateQuestion_HedgingWordNeedsWholeWord(t *testing.T) {
	// "oftentimes" and "mighty" contain hedging words but are not hedging words
	err := ValidateQuestion(database.QuestionTypeTrueFalse, "The mighty oak grows from an acorn.", TrueFalseOptions, 0)
	assert.NoError(t, err)
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "what is light?", NormalizeText("  What   is\nLIGHT? "))
}
