// Package documentservice provides the endpoints instructors upload lecture PDFs with.
package documentservice

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quizgenius/backend/httpapi"
	"github.com/quizgenius/backend/internal/auth"
	"github.com/quizgenius/backend/internal/database"
	"github.com/quizgenius/backend/internal/documents"
	"github.com/quizgenius/backend/internal/httputils"
	"github.com/samber/lo"
)

// multipartOverhead is the room left in the body limit for the multipart framing.
const multipartOverhead = 64 << 10

type DocumentService struct {
	documents *documents.Service
}

func NewDocumentService(documents *documents.Service) *DocumentService {
	return &DocumentService{documents: documents}
}

var _ httpapi.Service = (*DocumentService)(nil)

func (s *DocumentService) Register(router gin.IRouter) {
	group := router.Group("/documents")
	read := auth.RequireScope("document:read")
	write := auth.RequireScope("document:write")

	group.POST("", write, s.Upload)
	group.GET("", read, s.List)
	group.GET("/:id", read, s.Get)
	group.GET("/:id/text", read, s.Text)
	group.GET("/:id/file", read, s.File)
	group.DELETE("/:id", write, s.Delete)
}

type DocumentResponse struct {
	ID        int                     `json:"id"`
	Filename  string                  `json:"filename"`
	SizeBytes int64                   `json:"size_bytes"`
	PageCount int                     `json:"page_count"`
	Status    database.DocumentStatus `json:"status"`
	TextChars int                     `json:"text_chars"`
	CreatedAt time.Time               `json:"created_at"`
}

func NewDocumentResponse(document *database.Document) DocumentResponse {
	return DocumentResponse{
		ID:        document.ID,
		Filename:  document.Filename,
		SizeBytes: document.SizeBytes,
		PageCount: document.PageCount,
		Status:    document.Status,
		TextChars: len([]rune(document.Text)),
		CreatedAt: document.CreatedAt,
	}
}

type UploadResponse struct {
	Document DocumentResponse `json:"document"`
	Warning  string           `json:"warning,omitempty"`
}

// Upload stores a PDF sent as the multipart field "file".
// POST /api/documents
func (s *DocumentService) Upload(c *gin.Context) {
	ctx := c.Request.Context()
	user, _ := auth.GetUser(ctx)
	maxBytes := s.documents.MaxBytes()

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+multipartOverhead)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			abortTooLarge(c, maxBytes)
			return
		}
		httputils.Abort(c, http.StatusBadRequest, httputils.CodeInvalidRequest, "Missing required multipart field: file")
		return
	}
	if header.Size > maxBytes {
		abortTooLarge(c, maxBytes)
		return
	}

	file, err := header.Open()
	if err != nil {
		httputils.Abort(c, http.StatusBadRequest, httputils.CodeInvalidRequest, "Failed to read the uploaded file")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		httputils.Abort(c, http.StatusBadRequest, httputils.CodeInvalidRequest, "Failed to read the uploaded file")
		return
	}

	result, err := s.documents.Upload(ctx, documents.UploadInput{
		OwnerID:  user.UserID,
		Filename: header.Filename,
		Data:     data,
	})
	if err != nil {
		switch {
		case errors.Is(err, documents.ErrFileTooLarge):
			abortTooLarge(c, maxBytes)
		case errors.Is(err, documents.ErrEmptyFile):
			httputils.Abort(c, http.StatusBadRequest, httputils.CodeInvalidRequest, err.Error())
		case errors.Is(err, documents.ErrNotPDF):
			httputils.Abort(c, http.StatusUnprocessableEntity, httputils.CodeUnprocessable, err.Error())
		default:
			slog.Error("failed to upload document", "error", err, "user_id", user.UserID)
			httputils.Abort(c, http.StatusInternalServerError, httputils.CodeServerError, "Failed to upload the document. Please try again later.")
		}
		return
	}

	c.JSON(http.StatusCreated, UploadResponse{
		Document: NewDocumentResponse(result.Document),
		Warning:  result.Warning,
	})
}

func abortTooLarge(c *gin.Context, maxBytes int64) {
	httputils.Abort(c, http.StatusRequestEntityTooLarge, httputils.CodeTooLarge,
		"the file exceeds the limit of "+strconv.FormatInt(maxBytes, 10)+" bytes")
}

// List returns the documents of the instructor, newest first.
// GET /api/documents
func (s *DocumentService) List(c *gin.Context) {
	ctx := c.Request.Context()
	user, _ := auth.GetUser(ctx)

	list, err := s.documents.List(ctx, user.UserID)
	if err != nil {
		slog.Error("failed to list documents", "error", err, "user_id", user.UserID)
		httputils.Abort(c, http.StatusInternalServerError, httputils.CodeServerError, "Failed to list the documents. Please try again later.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"documents": lo.Map(list, func(document database.Document, _ int) DocumentResponse {
			return NewDocumentResponse(&document)
		}),
	})
}

// GET /api/documents/:id
func (s *DocumentService) Get(c *gin.Context) {
	document, ok := s.get(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, NewDocumentResponse(document))
}

// Text returns the extracted text of a document.
// GET /api/documents/:id/text
func (s *DocumentService) Text(c *gin.Context) {
	document, ok := s.get(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     document.ID,
		"status": document.Status,
		"text":   document.Text,
	})
}

// File returns the stored PDF.
// GET /api/documents/:id/file
func (s *DocumentService) File(c *gin.Context) {
	id, ok := httputils.IDParam(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	user, _ := auth.GetUser(ctx)

	document, data, err := s.documents.Download(ctx, user.UserID, id)
	if err != nil {
		s.abort(c, err, user.UserID)
		return
	}

	c.Header("Content-Disposition", "inline; filename="+strconv.Quote(document.Filename))
	c.Data(http.StatusOK, document.ContentType, data)
}

// DELETE /api/documents/:id
func (s *DocumentService) Delete(c *gin.Context) {
	id, ok := httputils.IDParam(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	user, _ := auth.GetUser(ctx)

	if err := s.documents.Delete(ctx, user.UserID, id); err != nil {
		s.abort(c, err, user.UserID)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *DocumentService) get(c *gin.Context) (*database.Document, bool) {
	id, ok := httputils.IDParam(c, "id")
	if !ok {
		return nil, false
	}

	ctx := c.Request.Context()
	user, _ := auth.GetUser(ctx)

	document, err := s.documents.Get(ctx, user.UserID, id)
	if err != nil {
		s.abort(c, err, user.UserID)
		return nil, false
	}

	return document, true
}

func (s *DocumentService) abort(c *gin.Context, err error, userID int) {
	if errors.Is(err, documents.ErrDocumentNotFound) {
		httputils.Abort(c, http.StatusNotFound, httputils.CodeNotFound, err.Error())
		return
	}

	slog.Error("failed to access document", "error", err, "user_id", userID)
	httputils.Abort(c, http.StatusInternalServerError, httputils.CodeServerError, "Failed to access the document. Please try again later.")
}
