// Package scheduler owns all per-user flashcard state and applies the
// spaced-repetition update on every completed review.
package scheduler

import (
	"sort"
	"sync"

	"github.com/vytor/memcore/internal/flashcard"
	"github.com/vytor/memcore/internal/logger"
	"github.com/vytor/memcore/internal/models"
)

type user struct {
	mu     sync.Mutex
	id     models.UserID
	cards  map[models.CardID]models.Card
	topics map[models.TopicID]models.Topic
	due    *dueQueue
}

func newUser(id models.UserID) *user {
	return &user{
		id:     id,
		cards:  make(map[models.CardID]models.Card),
		topics: make(map[models.TopicID]models.Topic),
		due:    newDueQueue(),
	}
}

// Engine is the in-memory store of users, cards and due-queues.
// Missing users or cards never produce errors: mutations become no-ops
// and queries return empty results. Callers that must report absence
// check UserExists/CardExists first.
//
// Engine is safe for concurrent use. Mutations of one user are serialized
// by that user's lock; unrelated users do not contend.
type Engine struct {
	mu    sync.RWMutex
	users map[models.UserID]*user
	log   *logger.Logger
}

func New() *Engine {
	return &Engine{
		users: make(map[models.UserID]*user),
		log:   logger.Default().WithPrefix("scheduler"),
	}
}

func (e *Engine) lookup(uid models.UserID) *user {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.users[uid]
}

func (e *Engine) lookupOrCreate(uid models.UserID) *user {
	if u := e.lookup(uid); u != nil {
		return u
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if u, ok := e.users[uid]; ok {
		return u
	}
	u := newUser(uid)
	e.users[uid] = u
	e.log.Debug("created user: user_id=%d", uid)
	return u
}

// CreateUser registers uid. It is a no-op for an existing user.
func (e *Engine) CreateUser(uid models.UserID) {
	e.lookupOrCreate(uid)
}

func (e *Engine) UserExists(uid models.UserID) bool {
	return e.lookup(uid) != nil
}

func (e *Engine) CardExists(uid models.UserID, cid models.CardID) bool {
	u := e.lookup(uid)
	if u == nil {
		return false
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.cards[cid]
	return ok
}

func (e *Engine) TopicExists(uid models.UserID, tid models.TopicID) bool {
	u := e.lookup(uid)
	if u == nil {
		return false
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.topics[tid]
	return ok
}

// CreateTopic stores topic under topic.ID, creating the user if needed.
// An existing topic with the same id is overwritten.
func (e *Engine) CreateTopic(uid models.UserID, topic models.Topic) {
	u := e.lookupOrCreate(uid)
	u.mu.Lock()
	defer u.mu.Unlock()
	u.topics[topic.ID] = topic
}

// AddCard stores card under card.ID and queues it at card.NextReviewDate.
// An existing card with the same id is overwritten and its queue entry replaced.
func (e *Engine) AddCard(uid models.UserID, card models.Card) {
	u := e.lookupOrCreate(uid)
	u.mu.Lock()
	defer u.mu.Unlock()
	u.cards[card.ID] = card
	u.due.schedule(card.ID, card.NextReviewDate)
}

// DueCards removes and returns every queued card due on or before date,
// ordered by (next review date, card id). A returned card is not queued
// again until it is reviewed.
//
// topicID is accepted for interface compatibility but does not filter the
// result; callers that need one topic filter the ids themselves.
func (e *Engine) DueCards(uid models.UserID, date models.Date, topicID models.TopicID) []models.CardID {
	u := e.lookup(uid)
	if u == nil {
		return nil
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	var result []models.CardID
	for {
		cid, ok := u.due.popDue(date)
		if !ok {
			break
		}
		result = append(result, cid)
	}
	return result
}

// ReviewComplete reschedules the card with rating and requeues it at its
// new review date. It reports false, changing nothing, when the user or
// card does not exist.
func (e *Engine) ReviewComplete(uid models.UserID, cid models.CardID, rating int) (models.Card, bool) {
	u := e.lookup(uid)
	if u == nil {
		return models.Card{}, false
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	card, ok := u.cards[cid]
	if !ok {
		return models.Card{}, false
	}

	card = flashcard.ApplyReview(card, rating)
	u.cards[cid] = card
	u.due.schedule(cid, card.NextReviewDate)

	e.log.Debug("rescheduled card: user_id=%d card_id=%d next_review_date=%d interval=%d ease_factor=%.2f",
		uid, cid, card.NextReviewDate, card.Interval, card.EaseFactor)
	return card, true
}

// Card returns a copy of the card.
func (e *Engine) Card(uid models.UserID, cid models.CardID) (models.Card, bool) {
	u := e.lookup(uid)
	if u == nil {
		return models.Card{}, false
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	card, ok := u.cards[cid]
	return card, ok
}

// Queued reports whether the card currently has a due-queue entry.
func (e *Engine) Queued(uid models.UserID, cid models.CardID) bool {
	u := e.lookup(uid)
	if u == nil {
		return false
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.due.contains(cid)
}

// Topics returns the user's topics ordered by id.
func (e *Engine) Topics(uid models.UserID) []models.Topic {
	u := e.lookup(uid)
	if u == nil {
		return nil
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return sortedTopics(u.topics)
}

// UserIDs returns every registered user id in ascending order.
func (e *Engine) UserIDs() []models.UserID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]models.UserID, 0, len(e.users))
	for id := range e.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Users returns a copy of every user's cards and topics, ordered by user
// id and then by card or topic id.
func (e *Engine) Users() []models.UserCards {
	ids := e.UserIDs()
	out := make([]models.UserCards, 0, len(ids))
	for _, id := range ids {
		u := e.lookup(id)
		if u == nil {
			continue
		}
		u.mu.Lock()
		uc := models.UserCards{
			UserID: id,
			Cards:  make([]models.Card, 0, len(u.cards)),
			Topics: sortedTopics(u.topics),
		}
		for _, c := range u.cards {
			uc.Cards = append(uc.Cards, c)
		}
		u.mu.Unlock()
		sort.Slice(uc.Cards, func(i, j int) bool { return uc.Cards[i].ID < uc.Cards[j].ID })
		out = append(out, uc)
	}
	return out
}

func sortedTopics(m map[models.TopicID]models.Topic) []models.Topic {
	topics := make([]models.Topic, 0, len(m))
	for _, t := range m {
		topics = append(topics, t)
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].ID < topics[j].ID })
	return topics
}
