package mocks

import (
	"context"

	"dkn/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockReviewService struct {
	mock.Mock
}

func (m *MockReviewService) Review(ctx context.Context, documentID, reviewerID int64, in service.ReviewInput) error {
	args := m.Called(ctx, documentID, reviewerID, in)
	return args.Error(0)
}
