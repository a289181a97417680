package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

const requestTimeout = 30 * time.Second

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)
	r.Use(securityHeadersMiddleware)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Group(func(r chi.Router) {
		r.Use(timeoutMiddleware(requestTimeout))
		r.Use(s.readinessGate)

		r.Post("/review", s.handleReview)
		r.Post("/card", s.handleAddCard)
		r.Post("/topic", s.handleCreateTopic)
		r.Get("/due-cards", s.handleDueCards)
		r.Get("/users/{userID}/cards/{cardID}", s.handleGetCard)
		r.Get("/users/{userID}/cards/{cardID}/history", s.handleCardHistory)
		r.Get("/users/{userID}/ratings", s.handleRatingCounts)
		r.Post("/admin/snapshot", s.handleSnapshot)
	})
	return r
}
