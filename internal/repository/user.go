package repository

import (
	"context"

	"dkn/internal/model"
)

// UserRepository provides read-only access to users and their contribution aggregates.
type UserRepository interface {
	// FindByID returns sql.ErrNoRows when the user does not exist.
	FindByID(ctx context.Context, id int64) (*model.User, error)

	Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
	Experts(ctx context.Context, f ExpertFilter) ([]model.Expert, error)
	Stats(ctx context.Context, userID int64) (*model.UserStats, error)

	Departments(ctx context.Context) ([]string, error)
	Regions(ctx context.Context) ([]string, error)
}

// ExpertFilter narrows Experts. Zero values mean "no constraint".
type ExpertFilter struct {
	Department string
	Region     string
	Expertise  string
	// Search matches name or expertise.
	Search string
}
