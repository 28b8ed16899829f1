package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"dkn/internal/model"
	"dkn/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

// documentSelect is shared by every read query so rows scan uniformly.
const documentSelect = `
		SELECT d.id, d.title, d.description, d.file_name, d.file_path, d.file_size, d.content_type,
		       d.tags, d.department, d.region, d.project_type, d.uploader_id, d.upload_date,
		       d.download_count, d.status, d.reviewed_by, d.reviewed_at, d.review_comment,
		       u.name, u.email, u.department, r.name
		FROM documents d
		LEFT JOIN users u ON d.uploader_id = u.id
		LEFT JOIN users r ON d.reviewed_by = r.id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(s rowScanner) (*model.Document, error) {
	var d model.Document
	if err := s.Scan(
		&d.ID,
		&d.Title,
		&d.Description,
		&d.FileName,
		&d.FilePath,
		&d.FileSize,
		&d.ContentType,
		&d.Tags,
		&d.Department,
		&d.Region,
		&d.ProjectType,
		&d.UploaderID,
		&d.UploadDate,
		&d.DownloadCount,
		&d.Status,
		&d.ReviewedBy,
		&d.ReviewedAt,
		&d.ReviewComment,
		&d.UploaderName,
		&d.UploaderEmail,
		&d.UploaderDepartment,
		&d.ReviewerName,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DocumentPostgres) queryDocuments(ctx context.Context, q string, args ...any) ([]model.Document, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents
		(title, description, file_name, file_path, file_size, content_type, tags, department, region, project_type, uploader_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, upload_date, download_count, status
	`
	out := *doc
	if err := r.db.QueryRowContext(ctx, q,
		doc.Title,
		doc.Description,
		doc.FileName,
		doc.FilePath,
		doc.FileSize,
		doc.ContentType,
		doc.Tags,
		doc.Department,
		doc.Region,
		doc.ProjectType,
		doc.UploaderID,
	).Scan(
		&out.ID,
		&out.UploadDate,
		&out.DownloadCount,
		&out.Status,
	); err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}
	return &out, nil
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id int64) (*model.Document, error) {
	const q = documentSelect + `
		WHERE d.id = $1`
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, err
	}
	return d, nil
}

// List applies every non-empty filter conjunctively, then paginates.
// Ties on upload_date are broken by id so pages are stable.
func (r *DocumentPostgres) List(ctx context.Context, f repository.DocumentFilter, pq repository.PageQuery) ([]model.Document, error) {
	var w whereBuilder
	w.eq("d.status", string(f.Status))
	w.contains(f.Search, "d.title", "d.description", "d.tags")
	w.eq("d.department", f.Department)
	w.eq("d.region", f.Region)
	w.contains(f.Tags, "d.tags")
	w.eq("d.uploader_id", f.UploaderID)

	where, args := w.build()
	q := documentSelect + where + " ORDER BY d.upload_date DESC, d.id ASC LIMIT " + placeholder(args)
	args = append(args, pq.Limit)
	q += " OFFSET " + placeholder(args)
	args = append(args, pq.Offset)

	return r.queryDocuments(ctx, q, args...)
}

// Recent returns the newest documents of any status.
func (r *DocumentPostgres) Recent(ctx context.Context, limit int) ([]model.Document, error) {
	const q = documentSelect + `
		ORDER BY d.upload_date DESC, d.id ASC
		LIMIT $1`
	return r.queryDocuments(ctx, q, limit)
}

// Pending returns the review queue, oldest first.
func (r *DocumentPostgres) Pending(ctx context.Context) ([]model.Document, error) {
	const q = documentSelect + `
		WHERE d.status = $1
		ORDER BY d.upload_date ASC, d.id ASC`
	return r.queryDocuments(ctx, q, string(model.StatusPending))
}

// RecordDownload counts and logs one download atomically. The counter is
// incremented in SQL so concurrent downloads never lose an update.
func (r *DocumentPostgres) RecordDownload(ctx context.Context, documentID, userID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin download tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE documents SET download_count = download_count + 1 WHERE id = $1`, documentID)
	if err != nil {
		return fmt.Errorf("increment download count: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("download count rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO downloads (document_id, user_id) VALUES ($1, $2)`, documentID, userID); err != nil {
		return fmt.Errorf("insert download record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit download tx: %w", err)
	}
	return nil
}

// UpdateReview stores a review decision made now by reviewerID.
func (r *DocumentPostgres) UpdateReview(ctx context.Context, documentID, reviewerID int64, status model.DocumentStatus, comment *string) error {
	const q = `
		UPDATE documents
		SET status = $1, reviewed_by = $2, reviewed_at = now(), review_comment = $3
		WHERE id = $4
	`
	res, err := r.db.ExecContext(ctx, q, string(status), reviewerID, comment, documentID)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update review rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a document by ID. It does not return an error if the row does not exist.
func (r *DocumentPostgres) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM documents WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}
