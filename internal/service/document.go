package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dkn/internal/apperror"
	"dkn/internal/model"
	"dkn/internal/repository"
	"dkn/internal/storage"
	"dkn/internal/validation"
)

const (
	DefaultListLimit   = 50
	DefaultRecentLimit = 10
	MaxPageLimit       = 100
)

// UploadInput carries an uploaded file and the metadata submitted with it.
type UploadInput struct {
	Reader       io.Reader `validate:"-"`
	OriginalName string
	Size         int64
	ContentType  string

	Title       string `validate:"required" msg:"Document title is required"`
	Description string
	Tags        string
	Department  string
	Region      string
	ProjectType string
}

// DocumentListResult is the service-level DTO for a filtered page of documents.
type DocumentListResult struct {
	Documents  []model.Document `json:"documents"`
	Count      int              `json:"count"`
	IsReviewer bool             `json:"is_reviewer"`
}

// DownloadResult is an open file ready to be streamed to the caller.
// The caller must close Body.
type DownloadResult struct {
	Body        io.ReadCloser
	FileName    string
	ContentType string
	Size        int64
}

// DocumentService defines the document catalog use cases.
type DocumentService interface {
	// Upload stores the file, validates the metadata, then records the document.
	// The stored file is removed again if validation or the insert fails.
	Upload(ctx context.Context, in UploadInput, uploaderID int64) (*model.Document, error)

	// List returns documents matching f. The status filter only applies to reviewers.
	List(ctx context.Context, callerID int64, f repository.DocumentFilter, pq repository.PageQuery) (*DocumentListResult, error)

	// Get returns a single document by its ID.
	Get(ctx context.Context, id int64) (*model.Document, error)

	// Recent returns the newest documents of any status.
	Recent(ctx context.Context, limit int) ([]model.Document, error)

	// Pending returns the review queue, oldest first. Reviewers only.
	Pending(ctx context.Context, callerID int64) ([]model.Document, error)

	// Download opens the document's file and counts the download.
	Download(ctx context.Context, id, userID int64) (*DownloadResult, error)

	// Delete removes the file, then the row. Only the uploader may delete.
	Delete(ctx context.Context, id, callerID int64) error
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	store     storage.Storage
	docs      repository.DocumentRepository
	users     repository.UserRepository
	urlExpiry time.Duration
	log       *zap.Logger
	metrics   *Metrics
}

// NewDocumentService constructs a new DocumentService. log and m may be nil.
func NewDocumentService(store storage.Storage, docs repository.DocumentRepository, users repository.UserRepository,
	urlExpiry time.Duration, log *zap.Logger, m *Metrics) DocumentService {
	if log == nil {
		log = zap.NewNop()
	}
	return &documentService{
		store:     store,
		docs:      docs,
		users:     users,
		urlExpiry: urlExpiry,
		log:       log,
		metrics:   m,
	}
}

func (s *documentService) Upload(ctx context.Context, in UploadInput, uploaderID int64) (*model.Document, error) {
	if in.Reader == nil {
		return nil, apperror.Validation("Please upload a file")
	}

	// Stored name is UUID + original extension.
	key := filepath.ToSlash(filepath.Join("documents", uuid.NewString()+strings.ToLower(filepath.Ext(in.OriginalName))))
	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	info, err := s.store.Put(ctx, key, in.Reader, storage.PutObjectOptions{
		Size:        in.Size,
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": in.OriginalName,
		},
	})
	if err != nil {
		return nil, apperror.Storage("Server error during upload", err)
	}

	// A whitespace-only title counts as missing; the stored title is kept as given.
	check := in
	check.Title = strings.TrimSpace(in.Title)
	if err := validation.Struct(&check); err != nil {
		s.removeStored(ctx, key, "upload_validation_failed")
		return nil, apperror.Validation(err.Error())
	}

	size := info.Size
	if size <= 0 {
		size = in.Size
	}
	stored, err := s.docs.Create(ctx, &model.Document{
		Title:       in.Title,
		Description: nullable(in.Description),
		FileName:    in.OriginalName,
		FilePath:    key,
		FileSize:    size,
		ContentType: contentType,
		Tags:        nullable(in.Tags),
		Department:  nullable(in.Department),
		Region:      nullable(in.Region),
		ProjectType: nullable(in.ProjectType),
		UploaderID:  uploaderID,
	})
	if err != nil {
		s.removeStored(ctx, key, "upload_insert_failed")
		return nil, apperror.Storage("Server error during upload", err)
	}

	s.metrics.uploaded()
	s.log.Info("document_uploaded",
		zap.Int64("document_id", stored.ID),
		zap.Int64("uploader_id", uploaderID),
		zap.String("file_path", key),
		zap.Int64("file_size", size),
	)
	return stored, nil
}

// removeStored is best-effort compensation; failures are logged only.
func (s *documentService) removeStored(ctx context.Context, key, reason string) {
	if err := s.store.Delete(ctx, key); err != nil {
		s.log.Error("stored_file_cleanup_failed",
			zap.String("reason", reason),
			zap.String("file_path", key),
			zap.Error(err),
		)
	}
}

func (s *documentService) List(ctx context.Context, callerID int64, f repository.DocumentFilter, pq repository.PageQuery) (*DocumentListResult, error) {
	reviewer, err := isReviewer(ctx, s.users, callerID)
	if err != nil {
		return nil, err
	}
	if !reviewer {
		f.Status = ""
	}

	pq.Limit = clampLimit(pq.Limit, DefaultListLimit)
	if pq.Offset < 0 {
		pq.Offset = 0
	}

	docs, err := s.docs.List(ctx, f, pq)
	if err != nil {
		return nil, apperror.Storage("Server error", err)
	}
	return &DocumentListResult{Documents: docs, Count: len(docs), IsReviewer: reviewer}, nil
}

func (s *documentService) Get(ctx context.Context, id int64) (*model.Document, error) {
	doc, err := s.findDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	url, err := s.store.PresignGet(ctx, doc.FilePath, s.urlExpiry)
	if err != nil {
		s.log.Warn("file_url_unavailable", zap.Int64("document_id", id), zap.Error(err))
	} else {
		doc.FileURL = url
	}
	return doc, nil
}

func (s *documentService) Recent(ctx context.Context, limit int) ([]model.Document, error) {
	docs, err := s.docs.Recent(ctx, clampLimit(limit, DefaultRecentLimit))
	if err != nil {
		return nil, apperror.Storage("Server error", err)
	}
	return docs, nil
}

func (s *documentService) Pending(ctx context.Context, callerID int64) ([]model.Document, error) {
	if err := requireReviewer(ctx, s.users, callerID, "Only Knowledge Champions can access pending documents"); err != nil {
		return nil, err
	}
	docs, err := s.docs.Pending(ctx)
	if err != nil {
		return nil, apperror.Storage("Server error", err)
	}
	return docs, nil
}

func (s *documentService) Download(ctx context.Context, id, userID int64) (*DownloadResult, error) {
	doc, err := s.findDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	body, info, err := s.store.Get(ctx, doc.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, apperror.NotFound("File not found on server")
		}
		return nil, apperror.Storage("Server error during download", err)
	}

	if err := s.docs.RecordDownload(ctx, id, userID); err != nil {
		body.Close()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("Document not found")
		}
		return nil, apperror.Storage("Server error during download", err)
	}

	s.metrics.downloaded()
	contentType := info.ContentType
	if contentType == "" {
		contentType = doc.ContentType
	}
	return &DownloadResult{
		Body:        body,
		FileName:    doc.FileName,
		ContentType: contentType,
		Size:        info.Size,
	}, nil
}

func (s *documentService) Delete(ctx context.Context, id, callerID int64) error {
	doc, err := s.findDocument(ctx, id)
	if err != nil {
		return err
	}
	if doc.UploaderID != callerID {
		return apperror.Authorization("You can only delete your own documents")
	}

	// File first: a crash in between leaves a row whose file is missing,
	// which Download reports, rather than an untracked file.
	if err := s.store.Delete(ctx, doc.FilePath); err != nil {
		return apperror.Storage("Server error", err)
	}
	if err := s.docs.Delete(ctx, id); err != nil {
		return apperror.Storage("Server error", err)
	}

	s.metrics.deleted()
	s.log.Info("document_deleted", zap.Int64("document_id", id), zap.Int64("uploader_id", callerID))
	return nil
}

func (s *documentService) findDocument(ctx context.Context, id int64) (*model.Document, error) {
	if id <= 0 {
		return nil, apperror.Validation("Invalid document id")
	}
	doc, err := s.docs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("Document not found")
		}
		return nil, apperror.Storage("Server error", err)
	}
	return doc, nil
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > MaxPageLimit {
		return MaxPageLimit
	}
	return limit
}

// nullable maps an empty form value to NULL and keeps anything else verbatim.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
