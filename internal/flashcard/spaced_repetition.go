package flashcard

import (
	"math"

	"github.com/vytor/memcore/internal/models"
)

// ApplyReview returns the card rescheduled with an SM-2 variant on a 4-point scale.
// rating: 0=Again, 1=Hard, 2=Good, 3=Easy. The caller validates the range.
// The result depends only on card and rating, so replaying the same ratings
// against the same starting state always yields the same card.
func ApplyReview(card models.Card, rating int) models.Card {
	if rating < models.RatingGood {
		card.Repetitions = 0
		card.Interval = 1
	} else {
		card.Repetitions++
	}

	card.EaseFactor = NextEaseFactor(card.EaseFactor, rating)

	switch card.Repetitions {
	case 1:
		card.Interval = 1
	case 2:
		card.Interval = 6
	default:
		card.Interval = scaleInterval(card.Interval, card.EaseFactor)
	}

	card.NextReviewDate = addDays(card.NextReviewDate, card.Interval)
	return card
}

// scaleInterval returns floor(interval*ef), saturated at math.MaxInt32.
func scaleInterval(interval int32, ef float64) int32 {
	next := math.Floor(float64(interval) * ef)
	if next >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(next)
}

// addDays advances date by interval days, saturated at math.MaxInt32.
func addDays(date models.Date, interval int32) models.Date {
	if interval > 0 && int32(date) > math.MaxInt32-interval {
		return models.Date(math.MaxInt32)
	}
	return date + models.Date(interval)
}

// NextEaseFactor applies the ease adjustment for rating, floored at models.MinEaseFactor.
func NextEaseFactor(ef float64, rating int) float64 {
	q := float64(3 - rating)
	ef += 0.1 - q*(0.08+q*0.02)
	if ef < models.MinEaseFactor {
		ef = models.MinEaseFactor
	}
	return ef
}
