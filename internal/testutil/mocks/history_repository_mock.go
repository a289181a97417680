package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/memcore/internal/models"
)

// MockHistoryRepository is a mock implementation of repository.ReviewHistoryRepository
type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) Insert(ctx context.Context, h models.ReviewHistory) (int64, error) {
	args := m.Called(ctx, h)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockHistoryRepository) ListForCard(ctx context.Context, userID models.UserID, cardID models.CardID, limit int) ([]models.ReviewHistory, error) {
	args := m.Called(ctx, userID, cardID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ReviewHistory), args.Error(1)
}

func (m *MockHistoryRepository) RatingCounts(ctx context.Context, userID models.UserID) ([]models.RatingCount, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RatingCount), args.Error(1)
}
