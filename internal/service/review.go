package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"dkn/internal/apperror"
	"dkn/internal/model"
	"dkn/internal/repository"
	"dkn/internal/validation"
)

// ReviewInput is a reviewer's decision on a pending document.
type ReviewInput struct {
	Status  string `json:"status" validate:"required,oneof=approved rejected" msg:"Status must be either approved or rejected"`
	Comment string `json:"comment"`
}

// ReviewService moves documents out of the review queue.
type ReviewService interface {
	// Review records a decision. Already reviewed documents may be reviewed
	// again; the newer decision replaces the older one.
	Review(ctx context.Context, documentID, reviewerID int64, in ReviewInput) error
}

type reviewService struct {
	docs    repository.DocumentRepository
	users   repository.UserRepository
	log     *zap.Logger
	metrics *Metrics
}

func NewReviewService(docs repository.DocumentRepository, users repository.UserRepository, log *zap.Logger, m *Metrics) ReviewService {
	if log == nil {
		log = zap.NewNop()
	}
	return &reviewService{docs: docs, users: users, log: log, metrics: m}
}

func (s *reviewService) Review(ctx context.Context, documentID, reviewerID int64, in ReviewInput) error {
	if err := requireReviewer(ctx, s.users, reviewerID, "Only Knowledge Champions can review documents"); err != nil {
		return err
	}

	if err := validation.Struct(&in); err != nil {
		return apperror.Validation(err.Error())
	}
	if documentID <= 0 {
		return apperror.Validation("Invalid document id")
	}

	status := model.DocumentStatus(in.Status)
	err := s.docs.UpdateReview(ctx, documentID, reviewerID, status, nullable(in.Comment))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("Document not found")
		}
		return apperror.Storage("Server error", err)
	}

	s.metrics.reviewed(status)
	s.log.Info("document_reviewed",
		zap.Int64("document_id", documentID),
		zap.Int64("reviewer_id", reviewerID),
		zap.String("status", in.Status),
	)
	return nil
}
