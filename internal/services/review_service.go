package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vytor/memcore/internal/errors"
	"github.com/vytor/memcore/internal/jobs"
	"github.com/vytor/memcore/internal/logger"
	"github.com/vytor/memcore/internal/models"
	"github.com/vytor/memcore/internal/repository"
	"github.com/vytor/memcore/internal/scheduler"
	"github.com/vytor/memcore/internal/storage"
)

const maxTopicNameLen = 1 << 16

// ReviewService validates requests and sequences the scheduling engine,
// the write-ahead log and the review history.
type ReviewService interface {
	CreateUser(ctx context.Context, userID models.UserID)
	CreateTopic(ctx context.Context, userID models.UserID, topicID models.TopicID, name string) error
	AddCard(ctx context.Context, userID models.UserID, cardID models.CardID, topicID models.TopicID) error
	DueCards(ctx context.Context, userID models.UserID, date models.Date, topicID models.TopicID) []models.CardID
	GetCard(ctx context.Context, userID models.UserID, cardID models.CardID) (models.Card, error)
	ReviewCard(ctx context.Context, userID models.UserID, cardID models.CardID, rating int) (models.Card, error)
	CardHistory(ctx context.Context, userID models.UserID, cardID models.CardID, limit int) ([]models.ReviewHistory, error)
	RatingCounts(ctx context.Context, userID models.UserID) ([]models.RatingCount, error)
	Snapshot(ctx context.Context) error
	Recover(ctx context.Context) RecoveryResult
	Recovered() bool
}

// RecoveryResult describes what startup recovery restored.
type RecoveryResult struct {
	Snapshot storage.SnapshotStats
	Replay   storage.ReplayResult
	// Degraded is set when the snapshot or log could not be read completely.
	Degraded bool
}

type Option func(*reviewService)

// WithClock sets the source of WAL record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *reviewService) { s.now = now }
}

type reviewService struct {
	engine  *scheduler.Engine
	store   *storage.Storage
	queue   jobs.JobQueue
	history repository.ReviewHistoryRepository
	now     func() time.Time

	// barrier is held shared by every mutation and exclusively by Snapshot.
	barrier   sync.RWMutex
	locks     userLocks
	recovered atomic.Bool
}

// NewReviewService creates a new ReviewService. queue and history may be
// nil, in which case reviews are not recorded in the history store.
func NewReviewService(engine *scheduler.Engine, store *storage.Storage, queue jobs.JobQueue, history repository.ReviewHistoryRepository, opts ...Option) ReviewService {
	s := &reviewService{
		engine:  engine,
		store:   store,
		queue:   queue,
		history: history,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *reviewService) CreateUser(ctx context.Context, userID models.UserID) {
	logger.FromContext(ctx).Debug("creating user: user_id=%d", userID)
	s.engine.CreateUser(userID)
}

func (s *reviewService) CreateTopic(ctx context.Context, userID models.UserID, topicID models.TopicID, name string) error {
	log := logger.FromContext(ctx)
	log.Debug("creating topic: user_id=%d, topic_id=%d", userID, topicID)

	if len(name) > maxTopicNameLen {
		return errors.NewValidationError("name", "must be at most 65536 bytes")
	}

	s.barrier.RLock()
	defer s.barrier.RUnlock()
	s.engine.CreateTopic(userID, models.Topic{ID: topicID, Name: name})
	return nil
}

func (s *reviewService) AddCard(ctx context.Context, userID models.UserID, cardID models.CardID, topicID models.TopicID) error {
	log := logger.FromContext(ctx)
	log.Debug("adding card: user_id=%d, card_id=%d, topic_id=%d", userID, cardID, topicID)

	s.barrier.RLock()
	defer s.barrier.RUnlock()
	mu := s.locks.get(userID)
	mu.Lock()
	defer mu.Unlock()

	s.engine.CreateUser(userID)
	s.engine.AddCard(userID, models.NewCard(cardID, topicID))
	return nil
}

func (s *reviewService) DueCards(ctx context.Context, userID models.UserID, date models.Date, topicID models.TopicID) []models.CardID {
	log := logger.FromContext(ctx)
	ids := s.engine.DueCards(userID, date, topicID)
	log.Debug("due cards: user_id=%d, date=%d, count=%d", userID, date, len(ids))
	if ids == nil {
		return []models.CardID{}
	}
	return ids
}

func (s *reviewService) GetCard(ctx context.Context, userID models.UserID, cardID models.CardID) (models.Card, error) {
	if !s.engine.UserExists(userID) {
		return models.Card{}, errors.NewNotFoundError("user", userID)
	}
	card, ok := s.engine.Card(userID, cardID)
	if !ok {
		return models.Card{}, errors.NewNotFoundError("card", cardID)
	}
	return card, nil
}

func (s *reviewService) ReviewCard(ctx context.Context, userID models.UserID, cardID models.CardID, rating int) (models.Card, error) {
	log := logger.FromContext(ctx).WithFields(map[string]any{"user_id": userID, "card_id": cardID})
	log.Debug("reviewing card: rating=%d", rating)

	if !models.ValidRating(rating) {
		return models.Card{}, errors.NewValidationError("rating", "must be between 0 and 3")
	}

	s.barrier.RLock()
	defer s.barrier.RUnlock()
	mu := s.locks.get(userID)
	mu.Lock()
	defer mu.Unlock()

	if !s.engine.UserExists(userID) {
		return models.Card{}, errors.NewNotFoundError("user", userID)
	}
	card, ok := s.engine.ReviewComplete(userID, cardID, rating)
	if !ok {
		return models.Card{}, errors.NewNotFoundError("card", cardID)
	}
	log.Debug("applied review, new interval=%d days, ease_factor=%.2f, next=%d", card.Interval, card.EaseFactor, card.NextReviewDate)

	reviewedAt := s.now()
	if err := s.store.AppendLog(userID, cardID, int32(rating), int32(reviewedAt.Unix())); err != nil {
		log.Error("failed to append review to wal: %v", err)
		return card, errors.NewUnavailableError("review applied but not logged", err)
	}

	if s.queue != nil {
		entry := models.ReviewHistory{
			UserID:         userID,
			CardID:         cardID,
			Rating:         rating,
			NextReviewDate: card.NextReviewDate,
			IntervalDays:   card.Interval,
			EaseFactor:     card.EaseFactor,
			ReviewedAt:     reviewedAt,
		}
		if err := s.queue.EnqueueHistory(entry); err != nil {
			// History is advisory.
			log.Warn("failed to enqueue review history: %v", err)
		}
	}
	return card, nil
}

func (s *reviewService) CardHistory(ctx context.Context, userID models.UserID, cardID models.CardID, limit int) ([]models.ReviewHistory, error) {
	log := logger.FromContext(ctx)
	if !s.engine.CardExists(userID, cardID) {
		return nil, errors.NewNotFoundError("card", cardID)
	}
	if s.history == nil {
		return []models.ReviewHistory{}, nil
	}
	history, err := s.history.ListForCard(ctx, userID, cardID, limit)
	if err != nil {
		log.Error("failed to list review history: %v", err)
		return nil, errors.NewInternalError(err)
	}
	return history, nil
}

func (s *reviewService) RatingCounts(ctx context.Context, userID models.UserID) ([]models.RatingCount, error) {
	log := logger.FromContext(ctx)
	if !s.engine.UserExists(userID) {
		return nil, errors.NewNotFoundError("user", userID)
	}
	if s.history == nil {
		return []models.RatingCount{}, nil
	}
	counts, err := s.history.RatingCounts(ctx, userID)
	if err != nil {
		log.Error("failed to count ratings: %v", err)
		return nil, errors.NewInternalError(err)
	}
	return counts, nil
}

// Snapshot blocks every mutation while the snapshot is written and the
// log is emptied.
func (s *reviewService) Snapshot(ctx context.Context) error {
	log := logger.FromContext(ctx)
	s.barrier.Lock()
	defer s.barrier.Unlock()

	if _, err := s.store.SaveSnapshot(s.engine); err != nil {
		log.Error("snapshot failed: %v", err)
		return errors.NewInternalError(err)
	}
	return nil
}

// Recover loads the snapshot and replays the log on top of it. Read
// failures are logged and leave whatever state could be restored.
func (s *reviewService) Recover(ctx context.Context) RecoveryResult {
	log := logger.FromContext(ctx).WithPrefix("recovery")
	s.barrier.Lock()
	defer s.barrier.Unlock()

	var res RecoveryResult
	stats, err := s.store.LoadSnapshot(s.engine)
	res.Snapshot = stats
	if err != nil {
		log.Warn("continuing with partial snapshot: %v", err)
		res.Degraded = true
	}

	replay, err := s.store.ReplayLog(s.engine)
	res.Replay = replay
	if err != nil {
		log.Warn("wal replay incomplete: %v", err)
		res.Degraded = true
	}
	if replay.TornTail {
		log.Warn("discarded torn wal tail after %d records", replay.Applied)
	}

	s.recovered.Store(true)
	log.Info("recovered %d cards from snapshot and %d reviews from wal", stats.Cards, replay.Applied)
	return res
}

func (s *reviewService) Recovered() bool {
	return s.recovered.Load()
}

// userLocks hands out one mutex per user so that the engine update and
// the log append of a review happen as a unit.
type userLocks struct {
	mu sync.Mutex
	m  map[models.UserID]*sync.Mutex
}

func (l *userLocks) get(uid models.UserID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.m == nil {
		l.m = make(map[models.UserID]*sync.Mutex)
	}
	mu, ok := l.m[uid]
	if !ok {
		mu = &sync.Mutex{}
		l.m[uid] = mu
	}
	return mu
}
