package generation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/quizgenius/backend/internal/database"
)

var ErrMalformedResponse = errors.New("model response is not a JSON question list")

// RawQuestion is a question as the model wrote it.
type RawQuestion struct {
	Type         string   `json:"type"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex *int     `json:"correct_index"`
	Explanation  string   `json:"explanation"`
}

type rawResponse struct {
	Questions []RawQuestion `json:"questions"`
}

// ParseResponse reads the question list from a model response.
// Text around the outermost JSON object, such as prose or code fences, is ignored.
func ParseResponse(raw string) ([]RawQuestion, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return nil, ErrMalformedResponse
	}

	var response rawResponse
	if err := json.Unmarshal([]byte(raw[start:end+1]), &response); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return response.Questions, nil
}

// Question normalizes the raw question. The result still has to be validated.
func (q RawQuestion) Question() Question {
	question := Question{
		Type:         parseType(q.Type),
		Text:         strings.TrimSpace(q.Text),
		Explanation:  strings.TrimSpace(q.Explanation),
		CorrectIndex: -1,
	}
	if q.CorrectIndex != nil {
		question.CorrectIndex = *q.CorrectIndex
	}

	options := make([]string, len(q.Options))
	for i, option := range q.Options {
		options[i] = strings.TrimSpace(option)
	}
	question.Options = options

	if question.Type == database.QuestionTypeTrueFalse {
		question.Options, question.CorrectIndex = normalizeTrueFalse(options, question.CorrectIndex)
	}

	return question
}

func parseType(s string) database.QuestionType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "multiple_choice", "multiple-choice", "multiplechoice", "mcq":
		return database.QuestionTypeMultipleChoice
	case "true_false", "true-false", "true/false", "truefalse":
		return database.QuestionTypeTrueFalse
	default:
		return database.QuestionType(s)
	}
}

// normalizeTrueFalse rewrites the options to ["True", "False"] and remaps the correct index.
// Options that are not some spelling of true and false are left for validation to reject.
func normalizeTrueFalse(options []string, correctIndex int) ([]string, int) {
	switch len(options) {
	case 0:
		return []string{TrueFalseOptions[0], TrueFalseOptions[1]}, correctIndex
	case 2:
		first, second := strings.ToLower(options[0]), strings.ToLower(options[1])
		switch {
		case first == "true" && second == "false":
			return []string{TrueFalseOptions[0], TrueFalseOptions[1]}, correctIndex
		case first == "false" && second == "true":
			if correctIndex == 0 || correctIndex == 1 {
				correctIndex = 1 - correctIndex
			}
			return []string{TrueFalseOptions[0], TrueFalseOptions[1]}, correctIndex
		}
	}

	return options, correctIndex
}
