package generation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hashicorp/go-multierror"
	"github.com/quizgenius/backend/internal/database"
)

const (
	MinChoiceOptions  = 4
	MaxChoiceOptions  = 5
	MaxQuestionLength = 1000
	MaxOptionLength   = 300
)

// TrueFalseOptions are the options of every true/false question.
var TrueFalseOptions = []string{"True", "False"}

// hedgingWords make a statement ambiguous, so true/false questions must not use them.
var hedgingWords = map[string]struct{}{
	"sometimes": {}, "usually": {}, "often": {}, "might": {}, "possibly": {},
	"probably": {}, "generally": {}, "rarely": {}, "arguably": {},
	"perhaps": {}, "typically": {}, "mostly": {},
}

var (
	ErrEmptyText           = errors.New("question text is empty")
	ErrTextTooLong         = fmt.Errorf("question text is longer than %d characters", MaxQuestionLength)
	ErrUnknownType         = errors.New("unknown question type")
	ErrOptionCount         = fmt.Errorf("multiple-choice questions need %d to %d options", MinChoiceOptions, MaxChoiceOptions)
	ErrEmptyOption         = errors.New("option is empty")
	ErrOptionTooLong       = fmt.Errorf("option is longer than %d characters", MaxOptionLength)
	ErrDuplicateOption     = errors.New("options must be distinct")
	ErrCorrectIndex        = errors.New("correct index is out of range")
	ErrTrueFalseOptions    = errors.New(`true/false options must be exactly ["True", "False"]`)
	ErrStatementIsQuestion = errors.New("true/false statement must not be a question")
	ErrHedgingWord         = errors.New("true/false statement contains a hedging word")
)

// ValidateQuestion checks a question against the authoring rules and returns every problem found.
//
// A multiple-choice question has one correct option and three or four distractors.
// A true/false question is an unambiguous statement with the options True and False.
func ValidateQuestion(questionType database.QuestionType, text string, options []string, correctIndex int) error {
	var result *multierror.Error

	text = strings.TrimSpace(text)
	if text == "" {
		result = multierror.Append(result, ErrEmptyText)
	} else if utf8.RuneCountInString(text) > MaxQuestionLength {
		result = multierror.Append(result, ErrTextTooLong)
	}

	if correctIndex < 0 || correctIndex >= len(options) {
		result = multierror.Append(result, ErrCorrectIndex)
	}

	switch questionType {
	case database.QuestionTypeMultipleChoice:
		if len(options) < MinChoiceOptions || len(options) > MaxChoiceOptions {
			result = multierror.Append(result, ErrOptionCount)
		}

		seen := make(map[string]struct{}, len(options))
		for i, option := range options {
			option = strings.TrimSpace(option)
			if option == "" {
				result = multierror.Append(result, fmt.Errorf("option %d: %w", i+1, ErrEmptyOption))
				continue
			}
			if utf8.RuneCountInString(option) > MaxOptionLength {
				result = multierror.Append(result, fmt.Errorf("option %d: %w", i+1, ErrOptionTooLong))
			}

			key := NormalizeText(option)
			if _, ok := seen[key]; ok {
				result = multierror.Append(result, fmt.Errorf("option %d: %w", i+1, ErrDuplicateOption))
			}
			seen[key] = struct{}{}
		}
	case database.QuestionTypeTrueFalse:
		if len(options) != 2 || options[0] != TrueFalseOptions[0] || options[1] != TrueFalseOptions[1] {
			result = multierror.Append(result, ErrTrueFalseOptions)
		}
		if strings.HasSuffix(text, "?") {
			result = multierror.Append(result, ErrStatementIsQuestion)
		}
		if word, ok := findHedgingWord(text); ok {
			result = multierror.Append(result, fmt.Errorf("%w: %q", ErrHedgingWord, word))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("%w: %q", ErrUnknownType, questionType))
	}

	return result.ErrorOrNil()
}

func findHedgingWord(text string) (string, bool) {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	for _, word := range words {
		if _, ok := hedgingWords[word]; ok {
			return word, true
		}
	}

	return "", false
}

// NormalizeText folds case and whitespace so that near-identical texts compare equal.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
