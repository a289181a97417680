package repository

import (
	"context"

	"github.com/vytor/memcore/internal/models"
)

// ReviewHistoryRepository handles review history data access
type ReviewHistoryRepository interface {
	Insert(ctx context.Context, h models.ReviewHistory) (int64, error)
	// ListForCard returns the card's most recent reviews, newest first.
	ListForCard(ctx context.Context, userID models.UserID, cardID models.CardID, limit int) ([]models.ReviewHistory, error)
	RatingCounts(ctx context.Context, userID models.UserID) ([]models.RatingCount, error)
}
