package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/vytor/memcore/internal/logger"
	"github.com/vytor/memcore/internal/models"
	"github.com/vytor/memcore/internal/repository"
)

var sqlBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

const defaultHistoryLimit = 50

type historyRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository creates a new ReviewHistoryRepository implementation
func NewHistoryRepository(db *sql.DB) repository.ReviewHistoryRepository {
	return &historyRepository{db: sqlx.NewDb(db, "sqlite3")}
}

func (r *historyRepository) Insert(ctx context.Context, h models.ReviewHistory) (int64, error) {
	log := logger.FromContext(ctx).WithPrefix("history_repo")
	log.Debug("inserting review: user_id=%d, card_id=%d, rating=%d", h.UserID, h.CardID, h.Rating)

	if h.ReviewedAt.IsZero() {
		h.ReviewedAt = time.Now()
	}
	query, args, err := sqlBuilder.Insert("review_history").
		Columns("user_id", "card_id", "rating", "next_review_date", "interval_days", "ease_factor", "reviewed_at").
		Values(h.UserID, h.CardID, h.Rating, h.NextReviewDate, h.IntervalDays, h.EaseFactor, h.ReviewedAt.UTC()).
		ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to insert review: %v", err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		log.Error("failed to get review id: %v", err)
		return 0, err
	}
	log.Debug("review inserted: id=%d", id)
	return id, nil
}

func (r *historyRepository) ListForCard(ctx context.Context, userID models.UserID, cardID models.CardID, limit int) ([]models.ReviewHistory, error) {
	log := logger.FromContext(ctx).WithPrefix("history_repo")
	log.Debug("listing reviews: user_id=%d, card_id=%d, limit=%d", userID, cardID, limit)

	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	query, args, err := sqlBuilder.Select(
		"id", "user_id", "card_id", "rating", "next_review_date", "interval_days", "ease_factor", "reviewed_at",
	).From("review_history").
		Where(squirrel.Eq{"user_id": userID, "card_id": cardID}).
		OrderBy("reviewed_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}

	history := []models.ReviewHistory{}
	if err := r.db.SelectContext(ctx, &history, query, args...); err != nil {
		log.Error("failed to list reviews: %v", err)
		return nil, err
	}
	log.Debug("found %d reviews", len(history))
	return history, nil
}

func (r *historyRepository) RatingCounts(ctx context.Context, userID models.UserID) ([]models.RatingCount, error) {
	log := logger.FromContext(ctx).WithPrefix("history_repo")
	log.Debug("counting ratings: user_id=%d", userID)

	query, args, err := sqlBuilder.Select("rating", "COUNT(*) AS count").
		From("review_history").
		Where(squirrel.Eq{"user_id": userID}).
		GroupBy("rating").
		OrderBy("rating").
		ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}

	counts := []models.RatingCount{}
	if err := r.db.SelectContext(ctx, &counts, query, args...); err != nil {
		log.Error("failed to count ratings: %v", err)
		return nil, err
	}
	return counts, nil
}
