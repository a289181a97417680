package scheduler_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/memcore/internal/models"
	"github.com/vytor/memcore/internal/scheduler"
)

func TestEngine_ReviewScenario(t *testing.T) {
	e := scheduler.New()
	e.CreateUser(1)
	e.AddCard(1, models.NewCard(1, 100))

	assert.Equal(t, []models.CardID{1}, e.DueCards(1, 0, models.AllTopics))

	card, ok := e.ReviewComplete(1, 1, models.RatingEasy)
	require.True(t, ok)
	assert.Equal(t, int32(1), card.Repetitions)
	assert.Equal(t, int32(1), card.Interval)
	assert.InDelta(t, 1.4, card.EaseFactor, 1e-9)
	assert.Equal(t, models.Date(1), card.NextReviewDate)

	assert.Empty(t, e.DueCards(1, 0, models.AllTopics), "card is now due on day 1")
	assert.Equal(t, []models.CardID{1}, e.DueCards(1, 1, models.AllTopics))
}

func TestEngine_CreateUserIdempotent(t *testing.T) {
	e := scheduler.New()
	assert.False(t, e.UserExists(3))

	e.CreateUser(3)
	e.AddCard(3, models.NewCard(9, 1))
	e.CreateUser(3)

	assert.True(t, e.UserExists(3))
	assert.True(t, e.CardExists(3, 9), "recreating a user keeps its cards")
}

func TestEngine_CreateTopicCreatesUser(t *testing.T) {
	e := scheduler.New()
	e.CreateTopic(5, models.Topic{ID: 100, Name: "Verbs"})
	e.CreateTopic(5, models.Topic{ID: 100, Name: "Irregular verbs"})

	assert.True(t, e.UserExists(5))
	assert.True(t, e.TopicExists(5, 100))
	assert.False(t, e.TopicExists(5, 101))
	assert.False(t, e.TopicExists(6, 100))
	assert.Equal(t, []models.Topic{{ID: 100, Name: "Irregular verbs"}}, e.Topics(5))
}

func TestEngine_AddCardCreatesUser(t *testing.T) {
	e := scheduler.New()
	e.AddCard(2, models.NewCard(1, 1))

	assert.True(t, e.UserExists(2))
	assert.True(t, e.CardExists(2, 1))
	assert.False(t, e.CardExists(2, 2))
	assert.False(t, e.CardExists(3, 1))
}

func TestEngine_DueCardsOrdering(t *testing.T) {
	e := scheduler.New()
	cards := []models.Card{
		{ID: 5, EaseFactor: 1.3, NextReviewDate: 2},
		{ID: 3, EaseFactor: 1.3, NextReviewDate: 2},
		{ID: 9, EaseFactor: 1.3, NextReviewDate: 0},
		{ID: 1, EaseFactor: 1.3, NextReviewDate: 4},
		{ID: 7, EaseFactor: 1.3, NextReviewDate: 1},
		{ID: 2, EaseFactor: 1.3, NextReviewDate: 9},
	}
	for _, c := range cards {
		e.AddCard(1, c)
	}

	due := e.DueCards(1, 4, models.AllTopics)

	assert.Equal(t, []models.CardID{9, 7, 3, 5, 1}, due)
	assert.True(t, e.Queued(1, 2), "card due on day 9 stays queued")
}

func TestEngine_DueCardsNeverReturnsFutureCards(t *testing.T) {
	e := scheduler.New()
	for i := 0; i < 50; i++ {
		e.AddCard(1, models.Card{ID: models.CardID(i), EaseFactor: 1.3, NextReviewDate: models.Date(i % 10)})
	}

	for date := models.Date(0); date < 10; date++ {
		for _, cid := range e.DueCards(1, date, models.AllTopics) {
			card, ok := e.Card(1, cid)
			require.True(t, ok)
			assert.LessOrEqual(t, card.NextReviewDate, date)
		}
	}
}

func TestEngine_FetchedCardsLeaveTheQueue(t *testing.T) {
	e := scheduler.New()
	e.AddCard(1, models.NewCard(1, 1))
	e.AddCard(1, models.NewCard(2, 1))

	assert.Equal(t, []models.CardID{1, 2}, e.DueCards(1, 0, models.AllTopics))
	assert.Empty(t, e.DueCards(1, 0, models.AllTopics))
	assert.Empty(t, e.DueCards(1, 100, models.AllTopics), "unreviewed cards do not come back")
	assert.False(t, e.Queued(1, 1))

	_, ok := e.ReviewComplete(1, 2, models.RatingGood)
	require.True(t, ok)
	assert.True(t, e.Queued(1, 2))
	assert.Equal(t, []models.CardID{2}, e.DueCards(1, 1, models.AllTopics))
}

func TestEngine_TopicFilterIsIgnored(t *testing.T) {
	e := scheduler.New()
	e.AddCard(1, models.NewCard(1, 10))
	e.AddCard(1, models.NewCard(2, 20))

	assert.Equal(t, []models.CardID{1, 2}, e.DueCards(1, 0, 10))
}

func TestEngine_ReviewSupersedesQueueEntry(t *testing.T) {
	e := scheduler.New()
	e.AddCard(1, models.NewCard(1, 1))
	e.AddCard(1, models.NewCard(2, 1))

	// Reviewing a card that is still queued must not leave a stale entry on day 0.
	_, ok := e.ReviewComplete(1, 1, models.RatingEasy)
	require.True(t, ok)
	_, ok = e.ReviewComplete(1, 1, models.RatingEasy)
	require.True(t, ok)

	assert.Equal(t, []models.CardID{2}, e.DueCards(1, 0, models.AllTopics))
	card, _ := e.Card(1, 1)
	assert.Equal(t, models.Date(7), card.NextReviewDate)
	assert.Equal(t, []models.CardID{1}, e.DueCards(1, 7, models.AllTopics))
	assert.Empty(t, e.DueCards(1, 1000, models.AllTopics), "exactly one entry per card")
}

func TestEngine_AddCardOverwrites(t *testing.T) {
	e := scheduler.New()
	e.AddCard(1, models.Card{ID: 1, EaseFactor: 1.3, NextReviewDate: 0})
	e.AddCard(1, models.Card{ID: 1, EaseFactor: 2.0, NextReviewDate: 5})

	assert.Empty(t, e.DueCards(1, 4, models.AllTopics))
	assert.Equal(t, []models.CardID{1}, e.DueCards(1, 5, models.AllTopics))
	card, _ := e.Card(1, 1)
	assert.Equal(t, 2.0, card.EaseFactor)
}

func TestEngine_MissingEntitiesAreNoOps(t *testing.T) {
	e := scheduler.New()

	_, ok := e.ReviewComplete(1, 1, models.RatingEasy)
	assert.False(t, ok)
	assert.Nil(t, e.DueCards(1, 10, models.AllTopics))
	assert.False(t, e.UserExists(1), "queries do not create users")

	e.CreateUser(1)
	_, ok = e.ReviewComplete(1, 1, models.RatingEasy)
	assert.False(t, ok)
	assert.False(t, e.CardExists(1, 1))
	assert.Nil(t, e.Topics(2))
}

func TestEngine_UsersView(t *testing.T) {
	e := scheduler.New()
	e.CreateTopic(2, models.Topic{ID: 7, Name: "b"})
	e.AddCard(2, models.NewCard(3, 7))
	e.AddCard(2, models.NewCard(1, 7))
	e.AddCard(1, models.NewCard(4, 0))

	users := e.Users()

	require.Len(t, users, 2)
	assert.Equal(t, models.UserID(1), users[0].UserID)
	assert.Equal(t, models.UserID(2), users[1].UserID)
	assert.Equal(t, []models.CardID{1, 3}, []models.CardID{users[1].Cards[0].ID, users[1].Cards[1].ID})
	assert.Equal(t, []models.Topic{{ID: 7, Name: "b"}}, users[1].Topics)
	assert.Equal(t, []models.UserID{1, 2}, e.UserIDs())
}

func TestEngine_ConcurrentUsers(t *testing.T) {
	e := scheduler.New()
	const users = 8
	const cards = 25

	var wg sync.WaitGroup
	for u := 0; u < users; u++ {
		wg.Add(1)
		go func(uid models.UserID) {
			defer wg.Done()
			for c := 0; c < cards; c++ {
				e.AddCard(uid, models.NewCard(models.CardID(c), 1))
			}
			for _, cid := range e.DueCards(uid, 0, models.AllTopics) {
				e.ReviewComplete(uid, cid, models.RatingGood)
			}
		}(models.UserID(u))
	}
	wg.Wait()

	for u := 0; u < users; u++ {
		due := e.DueCards(models.UserID(u), 1, models.AllTopics)
		assert.Len(t, due, cards)
	}
}
