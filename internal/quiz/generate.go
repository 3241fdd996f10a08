package quiz

import (
	"context"
	"errors"
	"fmt"

	"github.com/quizgenius/backend/internal/database"
	"github.com/quizgenius/backend/internal/events"
	"github.com/quizgenius/backend/internal/generation"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

type GenerateInput struct {
	DocumentID     int
	MultipleChoice int
	TrueFalse      int
}

type GenerateResult struct {
	Questions []database.Question
	Rejected  []generation.Rejection
	Shortfall int
	Truncated bool
}

// GenerateQuestions generates questions from a document of the owner and appends them to the test.
func (s *Service) GenerateQuestions(ctx context.Context, ownerID, testID int, input GenerateInput) (GenerateResult, error) {
	ctx, span := tracer.Start(ctx, "GenerateQuestions",
		trace.WithAttributes(
			attribute.Int("test.id", testID),
			attribute.Int("document.id", input.DocumentID),
		))
	defer span.End()

	test, err := findEditableTest(s.db.WithContext(ctx), ownerID, testID)
	if err != nil {
		span.SetStatus(otelcodes.Error, "Test is not editable")
		if isDomainError(err) {
			return GenerateResult{}, err
		}
		span.RecordError(err)
		return GenerateResult{}, fmt.Errorf("get test: %w", err)
	}

	document, err := s.documents.Get(ctx, ownerID, input.DocumentID)
	if err != nil {
		span.SetStatus(otelcodes.Error, "Document not found")
		if errors.Is(err, ErrDocumentNotFound) {
			return GenerateResult{}, ErrDocumentNotFound
		}
		span.RecordError(err)
		return GenerateResult{}, fmt.Errorf("get document: %w", err)
	}
	if document.Status == database.DocumentStatusNoText || document.Text == "" {
		span.SetStatus(otelcodes.Error, "Document has no text")
		return GenerateResult{}, ErrNoText
	}

	generated, err := s.generator.Generate(ctx, generation.Request{
		UserID:         ownerID,
		Title:          test.Title,
		SourceText:     document.Text,
		MultipleChoice: input.MultipleChoice,
		TrueFalse:      input.TrueFalse,
	})
	if err != nil {
		span.SetStatus(otelcodes.Error, "Generation failed")
		span.RecordError(err)
		return GenerateResult{}, err
	}

	result := GenerateResult{
		Rejected:  generated.Rejected,
		Shortfall: generated.Shortfall,
		Truncated: generated.Truncated,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// generation takes a while; the test may have changed in the meantime
		if _, err := findEditableTest(tx, ownerID, testID); err != nil {
			return err
		}

		position, err := nextPosition(tx, testID)
		if err != nil {
			return err
		}

		questions := make([]database.Question, len(generated.Questions))
		for i, q := range generated.Questions {
			questions[i] = database.Question{
				TestID:       testID,
				Position:     position + i,
				Type:         q.Type,
				Text:         q.Text,
				Options:      q.Options,
				CorrectIndex: q.CorrectIndex,
				Explanation:  q.Explanation,
				Points:       1,
				Source:       database.QuestionSourceGenerated,
			}
		}
		if err := tx.Create(&questions).Error; err != nil {
			return err
		}
		result.Questions = questions

		return tx.Model(&database.Test{}).
			Where("id = ?", testID).
			Update("source_document_id", document.ID).Error
	})
	if err != nil {
		span.SetStatus(otelcodes.Error, "Failed to save generated questions")
		if isDomainError(err) {
			return GenerateResult{}, err
		}
		span.RecordError(err)
		return GenerateResult{}, fmt.Errorf("save generated questions: %w", err)
	}

	s.eventService.TriggerEvent(ctx, events.Event{
		Type:   events.EventTypeQuestionsGenerated,
		UserID: ownerID,
		Payload: map[string]any{
			"test_id":     testID,
			"document_id": document.ID,
			"generated":   len(result.Questions),
			"rejected":    len(result.Rejected),
		},
	})

	span.SetAttributes(attribute.Int("result.questions", len(result.Questions)))
	span.SetStatus(otelcodes.Ok, "Questions generated")
	return result, nil
}
