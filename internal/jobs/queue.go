package jobs

import "github.com/vytor/memcore/internal/models"

// JobQueue provides an abstraction for enqueueing background jobs
type JobQueue interface {
	EnqueueHistory(entry models.ReviewHistory) error
}
