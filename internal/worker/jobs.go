package worker

import (
	"context"

	"github.com/vytor/memcore/internal/logger"
	"github.com/vytor/memcore/internal/models"
	"github.com/vytor/memcore/internal/repository"
)

// RecordReviewJob writes one completed review to the history store.
type RecordReviewJob struct {
	Repo  repository.ReviewHistoryRepository
	Entry models.ReviewHistory
}

func (j *RecordReviewJob) Name() string { return "record_review" }

func (j *RecordReviewJob) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).WithFields(map[string]any{
		"user_id": j.Entry.UserID,
		"card_id": j.Entry.CardID,
	})
	if _, err := j.Repo.Insert(ctx, j.Entry); err != nil {
		log.Warn("review history not recorded: %v", err)
		return err
	}
	return nil
}
