package repository

import (
	"context"

	"dkn/internal/model"
)

// DocumentRepository defines data access for documents using SQL queries only.
// Implementations hold no business rules.
type DocumentRepository interface {
	// Create inserts a new document record and returns the stored row,
	// including the database-assigned ID, upload date and initial status.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document with uploader fields joined.
	// It returns sql.ErrNoRows when the document does not exist.
	FindByID(ctx context.Context, id int64) (*model.Document, error)

	// List returns documents matching every set filter, newest first.
	List(ctx context.Context, f DocumentFilter, pq PageQuery) ([]model.Document, error)

	// Recent returns the newest documents regardless of status.
	Recent(ctx context.Context, limit int) ([]model.Document, error)

	// Pending returns pending documents, oldest first.
	Pending(ctx context.Context) ([]model.Document, error)

	// RecordDownload increments the download counter and appends a download
	// record for userID in one transaction.
	RecordDownload(ctx context.Context, documentID, userID int64) error

	// UpdateReview sets the review decision. It returns sql.ErrNoRows when
	// the document does not exist.
	UpdateReview(ctx context.Context, documentID, reviewerID int64, status model.DocumentStatus, comment *string) error

	// Delete removes a document by ID. It returns nil if the row was deleted or did not exist.
	Delete(ctx context.Context, id int64) error
}

// DocumentFilter narrows List. Zero values mean "no constraint".
type DocumentFilter struct {
	Search     string
	Department string
	Region     string
	Tags       string
	UploaderID int64
	Status     model.DocumentStatus
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}
