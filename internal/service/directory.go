package service

import (
	"context"

	"dkn/internal/apperror"
	"dkn/internal/model"
	"dkn/internal/repository"
)

const DefaultLeaderboardLimit = 10

// DirectoryService answers read-only questions about users and their contributions.
type DirectoryService interface {
	Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
	Experts(ctx context.Context, f repository.ExpertFilter) ([]model.Expert, error)
	// Stats reports zero counts for users without documents.
	Stats(ctx context.Context, userID int64) (*model.UserStats, error)
	Departments(ctx context.Context) ([]string, error)
	Regions(ctx context.Context) ([]string, error)
}

type directoryService struct {
	users repository.UserRepository
}

func NewDirectoryService(users repository.UserRepository) DirectoryService {
	return &directoryService{users: users}
}

func (s *directoryService) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	entries, err := s.users.Leaderboard(ctx, clampLimit(limit, DefaultLeaderboardLimit))
	if err != nil {
		return nil, apperror.Storage("Server error", err)
	}
	return entries, nil
}

func (s *directoryService) Experts(ctx context.Context, f repository.ExpertFilter) ([]model.Expert, error) {
	experts, err := s.users.Experts(ctx, f)
	if err != nil {
		return nil, apperror.Storage("Server error", err)
	}
	return experts, nil
}

func (s *directoryService) Stats(ctx context.Context, userID int64) (*model.UserStats, error) {
	if userID <= 0 {
		return nil, apperror.Validation("Invalid user id")
	}
	stats, err := s.users.Stats(ctx, userID)
	if err != nil {
		return nil, apperror.Storage("Server error", err)
	}
	return stats, nil
}

func (s *directoryService) Departments(ctx context.Context) ([]string, error) {
	out, err := s.users.Departments(ctx)
	if err != nil {
		return nil, apperror.Storage("Server error", err)
	}
	return out, nil
}

func (s *directoryService) Regions(ctx context.Context) ([]string, error) {
	out, err := s.users.Regions(ctx)
	if err != nil {
		return nil, apperror.Storage("Server error", err)
	}
	return out, nil
}
