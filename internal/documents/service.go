package documents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/quizgenius/backend/internal/database"
	"github.com/quizgenius/backend/internal/events"
	"github.com/quizgenius/backend/internal/extract"
	"github.com/quizgenius/backend/internal/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("quizgenius.documents")

var (
	ErrFileTooLarge     = errors.New("file is too large")
	ErrEmptyFile        = errors.New("file is empty")
	ErrNotPDF           = extract.ErrNotPDF
	ErrDocumentNotFound = errors.New("document not found")
)

// WarningNoText is attached to uploads whose PDF has no extractable text.
const WarningNoText = "no text could be extracted from the PDF"

const contentTypePDF = "application/pdf"

// Service manages the documents of instructors.
type Service struct {
	db           *gorm.DB
	storage      Storage
	eventService *events.EventService
	maxBytes     int64
}

func NewService(db *gorm.DB, storage Storage, eventService *events.EventService, maxBytes int64) *Service {
	return &Service{
		db:           db,
		storage:      storage,
		eventService: eventService,
		maxBytes:     maxBytes,
	}
}

// MaxBytes is the upload size limit.
func (s *Service) MaxBytes() int64 {
	return s.maxBytes
}

type UploadInput struct {
	OwnerID  int
	Filename string
	Data     []byte
}

type UploadResult struct {
	Document *database.Document
	// Warning is set when the document was stored but is unusable for generation.
	Warning string
}

// Upload validates, stores and extracts a PDF.
func (s *Service) Upload(ctx context.Context, input UploadInput) (UploadResult, error) {
	ctx, span := tracer.Start(ctx, "Upload",
		trace.WithAttributes(
			attribute.Int("user.id", input.OwnerID),
			attribute.Int("document.size", len(input.Data)),
		))
	defer span.End()

	if len(input.Data) == 0 {
		metrics.RecordDocumentUpload("rejected")
		span.SetStatus(otelcodes.Error, "Empty file")
		return UploadResult{}, ErrEmptyFile
	}
	if int64(len(input.Data)) > s.maxBytes {
		metrics.RecordDocumentUpload("rejected")
		span.SetStatus(otelcodes.Error, "File too large")
		return UploadResult{}, ErrFileTooLarge
	}

	extracted, err := extract.Extract(ctx, input.Data)
	status := database.DocumentStatusReady
	var warning string
	switch {
	case errors.Is(err, extract.ErrNoText):
		status = database.DocumentStatusNoText
		warning = WarningNoText
	case err != nil:
		metrics.RecordDocumentUpload("rejected")
		span.SetStatus(otelcodes.Error, "Not a PDF")
		return UploadResult{}, ErrNotPDF
	}

	key := fmt.Sprintf("documents/%d/%s.pdf", input.OwnerID, uuid.NewString())
	if err := s.storage.Put(ctx, key, contentTypePDF, input.Data); err != nil {
		span.SetStatus(otelcodes.Error, "Failed to store file")
		span.RecordError(err)
		return UploadResult{}, fmt.Errorf("store document: %w", err)
	}

	document := &database.Document{
		OwnerID:     input.OwnerID,
		Filename:    sanitizeFilename(input.Filename),
		StorageKey:  key,
		ContentType: contentTypePDF,
		SizeBytes:   int64(len(input.Data)),
		PageCount:   extracted.PageCount,
		Status:      status,
		Text:        extracted.Text,
	}
	if err := s.db.WithContext(ctx).Create(document).Error; err != nil {
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			slog.Error("failed to remove orphaned document object", "error", delErr, "key", key)
		}

		span.SetStatus(otelcodes.Error, "Failed to save document")
		span.RecordError(err)
		return UploadResult{}, fmt.Errorf("save document: %w", err)
	}

	metrics.RecordDocumentUpload(string(status))
	s.eventService.TriggerEvent(ctx, events.Event{
		Type:   events.EventTypeDocumentUploaded,
		UserID: input.OwnerID,
		Payload: map[string]any{
			"document_id": document.ID,
			"pages":       document.PageCount,
			"status":      string(status),
		},
	})

	span.SetAttributes(attribute.Int("document.id", document.ID), attribute.String("document.status", string(status)))
	span.SetStatus(otelcodes.Ok, "Document uploaded")
	return UploadResult{Document: document, Warning: warning}, nil
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(filepath.Base(strings.ReplaceAll(name, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		return "document.pdf"
	}

	if runes := []rune(name); len(runes) > 255 {
		name = string(runes[:255])
	}

	return name
}

// List returns the documents of the owner, newest first. Text is omitted.
func (s *Service) List(ctx context.Context, ownerID int) ([]database.Document, error) {
	var documents []database.Document

	err := s.db.WithContext(ctx).
		Omit("text").
		Where("owner_id = ?", ownerID).
		Order("created_at DESC, id DESC").
		Find(&documents).Error
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	return documents, nil
}

// Get returns a document of the owner including its text.
func (s *Service) Get(ctx context.Context, ownerID, documentID int) (*database.Document, error) {
	var document database.Document

	err := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", documentID, ownerID).
		First(&document).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("get document: %w", err)
	}

	return &document, nil
}

// Download returns the stored PDF of a document of the owner.
func (s *Service) Download(ctx context.Context, ownerID, documentID int) (*database.Document, []byte, error) {
	document, err := s.Get(ctx, ownerID, documentID)
	if err != nil {
		return nil, nil, err
	}

	data, err := s.storage.Get(ctx, document.StorageKey)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, nil, ErrDocumentNotFound
		}
		return nil, nil, fmt.Errorf("download document: %w", err)
	}

	return document, data, nil
}

// Delete removes a document of the owner. Tests generated from it keep their questions.
func (s *Service) Delete(ctx context.Context, ownerID, documentID int) error {
	ctx, span := tracer.Start(ctx, "Delete",
		trace.WithAttributes(attribute.Int("document.id", documentID)))
	defer span.End()

	var key string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var document database.Document
		if err := tx.Where("id = ? AND owner_id = ?", documentID, ownerID).First(&document).Error; err != nil {
			if database.IsNotFound(err) {
				return ErrDocumentNotFound
			}
			return err
		}
		key = document.StorageKey

		if err := tx.Model(&database.Test{}).
			Where("source_document_id = ?", documentID).
			Update("source_document_id", nil).Error; err != nil {
			return fmt.Errorf("detach tests: %w", err)
		}

		return tx.Delete(&document).Error
	})
	if err != nil {
		span.SetStatus(otelcodes.Error, "Failed to delete document")
		if !errors.Is(err, ErrDocumentNotFound) {
			span.RecordError(err)
			return fmt.Errorf("delete document: %w", err)
		}
		return err
	}

	if err := s.storage.Delete(ctx, key); err != nil {
		slog.Error("failed to delete document object", "error", err, "key", key)
	}

	span.SetStatus(otelcodes.Ok, "Document deleted")
	return nil
}
