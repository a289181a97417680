package models

import "time"

// Rating bounds accepted by the review orchestration layer.
const (
	RatingAgain = 0
	RatingHard  = 1
	RatingGood  = 2
	RatingEasy  = 3
)

// ValidRating reports whether r is in [RatingAgain, RatingEasy].
func ValidRating(r int) bool {
	return r >= RatingAgain && r <= RatingEasy
}

// ReviewHistory is one completed review as recorded in the history store.
type ReviewHistory struct {
	ID             int64     `json:"id" db:"id"`
	UserID         UserID    `json:"user_id" db:"user_id"`
	CardID         CardID    `json:"card_id" db:"card_id"`
	Rating         int       `json:"rating" db:"rating"`
	NextReviewDate Date      `json:"next_review_date" db:"next_review_date"`
	IntervalDays   int32     `json:"interval_days" db:"interval_days"`
	EaseFactor     float64   `json:"ease_factor" db:"ease_factor"`
	ReviewedAt     time.Time `json:"reviewed_at" db:"reviewed_at"`
}

// RatingCount is the number of reviews a user gave with one rating.
type RatingCount struct {
	Rating int `json:"rating" db:"rating"`
	Count  int `json:"count" db:"count"`
}
