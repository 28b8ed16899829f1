package service

import (
	"context"
	"database/sql"
	"errors"

	"dkn/internal/apperror"
	"dkn/internal/repository"
)

// isReviewer reads the caller's user record. Unknown users are not reviewers.
func isReviewer(ctx context.Context, users repository.UserRepository, userID int64) (bool, error) {
	u, err := users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, apperror.Storage("Server error", err)
	}
	return u.IsReviewer, nil
}

// requireReviewer is the single capability check for reviewer-only operations.
func requireReviewer(ctx context.Context, users repository.UserRepository, userID int64, denied string) error {
	ok, err := isReviewer(ctx, users, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.Authorization(denied)
	}
	return nil
}
