// Package generation turns lecture text into validated quiz questions with a generative model.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/quizgenius/backend/internal/config"
	"github.com/quizgenius/backend/internal/database"
	"github.com/quizgenius/backend/internal/metrics"
	"github.com/quizgenius/backend/internal/ratelimit"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("quizgenius.generation")

// MaxQuestionsPerType is the largest count of one question type in a request.
const MaxQuestionsPerType = 50

var (
	ErrInsufficientText = errors.New("the document does not contain enough text to generate questions")
	ErrInvalidRequest   = fmt.Errorf("question counts must be between 0 and %d and request at least one question", MaxQuestionsPerType)
	ErrNoQuestions      = errors.New("the model did not produce any valid question")
	ErrModelUnavailable = errors.New("the question generation service is unavailable")
	ErrQuotaExceeded    = ratelimit.ErrQuotaExceeded
)

// Model completes a prompt.
type Model interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

type Request struct {
	UserID         int
	Title          string
	SourceText     string
	MultipleChoice int
	TrueFalse      int
}

// Validate checks the question counts.
func (r Request) Validate() error {
	if r.MultipleChoice < 0 || r.MultipleChoice > MaxQuestionsPerType ||
		r.TrueFalse < 0 || r.TrueFalse > MaxQuestionsPerType ||
		r.MultipleChoice+r.TrueFalse == 0 {
		return ErrInvalidRequest
	}

	return nil
}

// Question is a generated question that passed validation.
type Question struct {
	Type         database.QuestionType
	Text         string
	Options      []string
	CorrectIndex int
	Explanation  string
}

// Rejection is a generated question that failed validation.
type Rejection struct {
	Text   string
	Reason string
}

type Result struct {
	Questions []Question
	Rejected  []Rejection
	Rounds    int
	// Truncated is set when the source text was cut to fit the prompt.
	Truncated bool
	// Shortfall is the number of requested questions that could not be produced.
	Shortfall int
}

// Generator asks a model for questions until the request is filled.
type Generator struct {
	model  Model
	quota  ratelimit.Quota
	config config.GenerationConfig
}

// NewGenerator creates a generator. quota may be nil.
func NewGenerator(model Model, quota ratelimit.Quota, cfg config.GenerationConfig) *Generator {
	return &Generator{
		model:  model,
		quota:  quota,
		config: cfg,
	}
}

func (g *Generator) Generate(ctx context.Context, req Request) (Result, error) {
	ctx, span := tracer.Start(ctx, "Generate",
		trace.WithAttributes(
			attribute.Int("user.id", req.UserID),
			attribute.Int("request.multiple_choice", req.MultipleChoice),
			attribute.Int("request.true_false", req.TrueFalse),
		))
	defer span.End()

	if err := req.Validate(); err != nil {
		span.SetStatus(otelcodes.Error, "Invalid request")
		return Result{}, err
	}

	source, truncated, err := PrepareSource(req.SourceText, g.config.MinSourceChars, g.config.MaxSourceChars)
	if err != nil {
		metrics.RecordGeneration("insufficient_text")
		span.SetStatus(otelcodes.Error, "Insufficient text")
		return Result{}, err
	}

	if g.quota != nil {
		if err := g.quota.Take(ctx, req.UserID); err != nil {
			metrics.RecordGeneration("quota_exceeded")
			span.SetStatus(otelcodes.Error, "Quota exceeded")
			if errors.Is(err, ratelimit.ErrQuotaExceeded) {
				return Result{}, ErrQuotaExceeded
			}
			span.RecordError(err)
			return Result{}, fmt.Errorf("take quota: %w", err)
		}
	}

	result := Result{Truncated: truncated}
	need := map[database.QuestionType]int{
		database.QuestionTypeMultipleChoice: req.MultipleChoice,
		database.QuestionTypeTrueFalse:      req.TrueFalse,
	}
	seen := make(map[string]struct{})

	maxRounds := max(g.config.MaxRounds, 1)
	for result.Rounds < maxRounds && remaining(need) > 0 {
		result.Rounds++

		prompt := BuildPrompt(PromptInput{
			Title:          req.Title,
			Source:         source,
			MultipleChoice: need[database.QuestionTypeMultipleChoice],
			TrueFalse:      need[database.QuestionTypeTrueFalse],
			Avoid:          questionTexts(result.Questions),
		})

		raw, err := g.model.Complete(ctx, SystemPrompt, prompt)
		if err != nil {
			if len(result.Questions) > 0 {
				slog.Warn("model failed during top-up, returning partial result",
					"error", err, "round", result.Rounds, "user_id", req.UserID)
				break
			}

			metrics.RecordGeneration("model_error")
			span.SetStatus(otelcodes.Error, "Model failed")
			span.RecordError(err)
			return Result{}, err
		}

		items, err := ParseResponse(raw)
		if err != nil {
			slog.Warn("unparseable model response", "error", err, "round", result.Rounds)
			result.Rejected = append(result.Rejected, Rejection{Reason: err.Error()})
			continue
		}

		for _, item := range items {
			question := item.Question()

			if err := ValidateQuestion(question.Type, question.Text, question.Options, question.CorrectIndex); err != nil {
				result.Rejected = append(result.Rejected, Rejection{Text: question.Text, Reason: err.Error()})
				continue
			}

			key := NormalizeText(question.Text)
			if _, ok := seen[key]; ok {
				result.Rejected = append(result.Rejected, Rejection{Text: question.Text, Reason: "duplicate question"})
				continue
			}

			// extra questions of a type are dropped silently
			if need[question.Type] == 0 {
				continue
			}

			seen[key] = struct{}{}
			need[question.Type]--
			result.Questions = append(result.Questions, question)
		}
	}

	result.Shortfall = remaining(need)

	for _, question := range result.Questions {
		metrics.RecordGeneratedQuestions(string(question.Type), 1)
	}
	metrics.RecordRejectedQuestions(len(result.Rejected))

	span.SetAttributes(
		attribute.Int("result.questions", len(result.Questions)),
		attribute.Int("result.rejected", len(result.Rejected)),
		attribute.Int("result.rounds", result.Rounds),
	)

	if len(result.Questions) == 0 {
		metrics.RecordGeneration("no_questions")
		span.SetStatus(otelcodes.Error, "No valid questions")
		return result, ErrNoQuestions
	}

	metrics.RecordGeneration("success")
	span.SetStatus(otelcodes.Ok, "Questions generated")
	return result, nil
}

func remaining(need map[database.QuestionType]int) int {
	total := 0
	for _, n := range need {
		total += n
	}
	return total
}

func questionTexts(questions []Question) []string {
	texts := make([]string, len(questions))
	for i, question := range questions {
		texts[i] = question.Text
	}
	return texts
}
