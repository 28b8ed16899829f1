package model

import "time"

// DocumentStatus is the review state of a document.
type DocumentStatus string

const (
	StatusPending  DocumentStatus = "pending"
	StatusApproved DocumentStatus = "approved"
	StatusRejected DocumentStatus = "rejected"
)

// Document represents an uploaded artifact and its catalog metadata.
// This is a pure domain model with no database-specific dependencies or tags.
// Joined uploader/reviewer fields are filled only by read queries that join users.
type Document struct {
	ID            int64          `json:"id"`
	Title         string         `json:"title"`
	Description   *string        `json:"description"`
	FileName      string         `json:"file_name"`
	FilePath      string         `json:"file_path"`
	FileSize      int64          `json:"file_size"`
	ContentType   string         `json:"content_type"`
	Tags          *string        `json:"tags"`
	Department    *string        `json:"department"`
	Region        *string        `json:"region"`
	ProjectType   *string        `json:"project_type"`
	UploaderID    int64          `json:"uploader_id"`
	UploadDate    time.Time      `json:"upload_date"`
	DownloadCount int64          `json:"download_count"`
	Status        DocumentStatus `json:"status"`
	ReviewedBy    *int64         `json:"reviewed_by"`
	ReviewedAt    *time.Time     `json:"reviewed_at"`
	ReviewComment *string        `json:"review_comment"`

	UploaderName       *string `json:"uploader_name,omitempty"`
	UploaderEmail      *string `json:"uploader_email,omitempty"`
	UploaderDepartment *string `json:"uploader_department,omitempty"`
	ReviewerName       *string `json:"reviewer_name,omitempty"`
	FileURL            string  `json:"file_url,omitempty"`
}

// Download is an append-only record of one successful file download.
type Download struct {
	ID           int64     `json:"id"`
	DocumentID   int64     `json:"document_id"`
	UserID       int64     `json:"user_id"`
	DownloadedAt time.Time `json:"downloaded_at"`
}
