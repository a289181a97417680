package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/vytor/memcore/internal/errors"
	"github.com/vytor/memcore/internal/logger"
	"github.com/vytor/memcore/internal/models"
	"github.com/vytor/memcore/internal/services"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	ReviewService services.ReviewService
	// HistoryDB is checked by the readiness probe when set.
	HistoryDB Pinger
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	var req reviewRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	log = log.WithFields(map[string]any{"user_id": *req.UserID, "card_id": *req.CardID})

	card, err := s.ReviewService.ReviewCard(r.Context(), models.UserID(*req.UserID), models.CardID(*req.CardID), *req.Rating)
	if err != nil {
		handleError(w, r, err)
		return
	}
	log.Info("review recorded: rating=%d next=%d", *req.Rating, card.NextReviewDate)
	writeJSON(w, r, http.StatusOK, reviewResponse{NextReviewDate: int32(card.NextReviewDate)})
}

func (s *Server) handleAddCard(w http.ResponseWriter, r *http.Request) {
	var req addCardRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	err := s.ReviewService.AddCard(r.Context(), models.UserID(*req.UserID), models.CardID(*req.CardID), models.TopicID(*req.TopicID))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleCreateTopic(w http.ResponseWriter, r *http.Request) {
	var req createTopicRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	err := s.ReviewService.CreateTopic(r.Context(), models.UserID(*req.UserID), models.TopicID(*req.TopicID), req.Name)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, successResponse{Success: true})
}

// handleDueCards hands out due cards. Returned cards leave the due queue
// until they are reviewed.
func (s *Server) handleDueCards(w http.ResponseWriter, r *http.Request) {
	userID, err := queryInt32(r, "user_id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	date, err := queryInt32(r, "date")
	if err != nil {
		handleError(w, r, err)
		return
	}
	topicID := int32(models.AllTopics)
	if raw := r.URL.Query().Get("topic_id"); raw != "" && raw != "all" {
		if topicID, err = parseInt32("topic_id", raw); err != nil {
			handleError(w, r, err)
			return
		}
	}

	ids := s.ReviewService.DueCards(r.Context(), models.UserID(userID), models.Date(date), models.TopicID(topicID))
	resp := dueCardsResponse{CardIDs: make([]int32, len(ids))}
	for i, id := range ids {
		resp.CardIDs[i] = int32(id)
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	userID, cardID, err := userCardParams(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	card, err := s.ReviewService.GetCard(r.Context(), userID, cardID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, card)
}

func (s *Server) handleCardHistory(w http.ResponseWriter, r *http.Request) {
	userID, cardID, err := userCardParams(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			handleError(w, r, errors.NewValidationError("limit", "must be a non-negative integer"))
			return
		}
	}
	history, err := s.ReviewService.CardHistory(r.Context(), userID, cardID, limit)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, history)
}

func (s *Server) handleRatingCounts(w http.ResponseWriter, r *http.Request) {
	userID, err := parseInt32("userID", chi.URLParam(r, "userID"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	counts, err := s.ReviewService.RatingCounts(r.Context(), models.UserID(userID))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, counts)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	if err := s.ReviewService.Snapshot(r.Context()); err != nil {
		handleError(w, r, err)
		return
	}
	log.Info("snapshot taken on request")
	writeJSON(w, r, http.StatusOK, successResponse{Success: true})
}

func userCardParams(r *http.Request) (models.UserID, models.CardID, error) {
	userID, err := parseInt32("userID", chi.URLParam(r, "userID"))
	if err != nil {
		return 0, 0, err
	}
	cardID, err := parseInt32("cardID", chi.URLParam(r, "cardID"))
	if err != nil {
		return 0, 0, err
	}
	return models.UserID(userID), models.CardID(cardID), nil
}
