package models

// UserID, CardID and TopicID are stored as 32-bit integers in both the
// snapshot and the review log.
type (
	UserID  int32
	CardID  int32
	TopicID int32
)

// Date is an opaque day index. Only its ordering is meaningful.
type Date int32

// AllTopics is the topic filter that matches every card.
const AllTopics TopicID = -1

// MinEaseFactor is the floor applied after every review.
const MinEaseFactor = 1.3

type Card struct {
	ID             CardID  `json:"card_id"`
	TopicID        TopicID `json:"topic_id"`
	EaseFactor     float64 `json:"ease_factor"`
	Interval       int32   `json:"interval"`
	Repetitions    int32   `json:"repetitions"`
	NextReviewDate Date    `json:"next_review_date"`
}

// NewCard returns a card that has never been reviewed and is due on day 0.
func NewCard(id CardID, topicID TopicID) Card {
	return Card{
		ID:         id,
		TopicID:    topicID,
		EaseFactor: MinEaseFactor,
	}
}

type Topic struct {
	ID   TopicID `json:"topic_id"`
	Name string  `json:"name"`
}

// UserCards is a read-only copy of one user's state, used for snapshotting.
type UserCards struct {
	UserID UserID
	Cards  []Card
	Topics []Topic
}
