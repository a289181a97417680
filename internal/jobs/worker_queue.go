package jobs

import (
	"github.com/vytor/memcore/internal/models"
	"github.com/vytor/memcore/internal/repository"
	"github.com/vytor/memcore/internal/worker"
)

// WorkerQueue implements JobQueue using a worker pool
type WorkerQueue struct {
	historyPool *worker.Pool
	historyRepo repository.ReviewHistoryRepository
}

// NewWorkerQueue creates a new WorkerQueue implementation
func NewWorkerQueue(historyPool *worker.Pool, historyRepo repository.ReviewHistoryRepository) JobQueue {
	return &WorkerQueue{
		historyPool: historyPool,
		historyRepo: historyRepo,
	}
}

func (q *WorkerQueue) EnqueueHistory(entry models.ReviewHistory) error {
	return q.historyPool.Submit(&worker.RecordReviewJob{
		Repo:  q.historyRepo,
		Entry: entry,
	})
}
