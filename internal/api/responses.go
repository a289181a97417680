package api

import (
	"encoding/json"
	"net/http"

	"github.com/vytor/memcore/internal/logger"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.FromContext(r.Context()).Warn("failed to encode response: %v", err)
	}
}

type reviewResponse struct {
	NextReviewDate int32 `json:"next_review_date"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type dueCardsResponse struct {
	CardIDs []int32 `json:"card_ids"`
}
