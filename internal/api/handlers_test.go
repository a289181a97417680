package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vytor/memcore/internal/api"
	"github.com/vytor/memcore/internal/models"
	"github.com/vytor/memcore/internal/scheduler"
	"github.com/vytor/memcore/internal/services"
	"github.com/vytor/memcore/internal/storage"
	"github.com/vytor/memcore/internal/testutil/mocks"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type harness struct {
	handler http.Handler
	svc     services.ReviewService
	history *mocks.MockHistoryRepository
	server  *api.Server
}

func newHarness(t *testing.T, recovered bool) *harness {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.Open(filepath.Join(dir, "snapshot.bin"), filepath.Join(dir, "review.log"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	queue := new(mocks.MockJobQueue)
	queue.On("EnqueueHistory", mock.Anything).Return(nil)
	history := new(mocks.MockHistoryRepository)
	svc := services.NewReviewService(scheduler.New(), store, queue, history)
	if recovered {
		svc.Recover(context.Background())
	}

	srv := &api.Server{ReviewService: svc}
	return &harness{handler: srv.Routes(), svc: svc, history: history, server: srv}
}

func (h *harness) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestReviewFlow(t *testing.T) {
	h := newHarness(t, true)

	rec := h.do(t, http.MethodPost, "/card", `{"user_id":1,"card_id":1,"topic_id":100}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = h.do(t, http.MethodGet, "/due-cards?user_id=1&date=0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"card_ids":[1]}`, rec.Body.String())

	rec = h.do(t, http.MethodPost, "/review", `{"user_id":1,"card_id":1,"rating":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"next_review_date":1}`, rec.Body.String())

	rec = h.do(t, http.MethodGet, "/due-cards?user_id=1&date=0&topic_id=100", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"card_ids":[]}`, rec.Body.String())

	rec = h.do(t, http.MethodGet, "/users/1/cards/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	card := decode[models.Card](t, rec)
	assert.Equal(t, models.CardID(1), card.ID)
	assert.Equal(t, int32(1), card.Repetitions)
	assert.InDelta(t, 1.4, card.EaseFactor, 1e-9)
}

func TestReview_Validation(t *testing.T) {
	h := newHarness(t, true)
	require.NoError(t, h.svc.AddCard(context.Background(), 1, 1, 0))

	tests := []struct {
		name    string
		body    string
		status  int
		code    string
		message string
	}{
		{"rating too high", `{"user_id":1,"card_id":1,"rating":4}`, http.StatusBadRequest, "VALIDATION_ERROR", "must be between 0 and 3"},
		{"negative rating", `{"user_id":1,"card_id":1,"rating":-1}`, http.StatusBadRequest, "VALIDATION_ERROR", "rating"},
		{"missing rating", `{"user_id":1,"card_id":1}`, http.StatusBadRequest, "VALIDATION_ERROR", "rating: is required"},
		{"missing user", `{"card_id":1,"rating":2}`, http.StatusBadRequest, "VALIDATION_ERROR", "user_id"},
		{"not json", `rating=3`, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON"},
		{"unknown field", `{"user_id":1,"card_id":1,"rating":2,"extra":true}`, http.StatusBadRequest, "BAD_REQUEST", "extra"},
		{"unknown card", `{"user_id":1,"card_id":2,"rating":2}`, http.StatusNotFound, "NOT_FOUND", "card not found: 2"},
		{"unknown user", `{"user_id":9,"card_id":1,"rating":2}`, http.StatusNotFound, "NOT_FOUND", "user not found: 9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(t, http.MethodPost, "/review", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			body := decode[errorResponse](t, rec)
			assert.Equal(t, tt.code, body.Error.Code)
			assert.Contains(t, body.Error.Message, tt.message)
		})
	}
}

func TestReview_ZeroIDsAreValid(t *testing.T) {
	h := newHarness(t, true)

	rec := h.do(t, http.MethodPost, "/card", `{"user_id":0,"card_id":0,"topic_id":0}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodPost, "/review", `{"user_id":0,"card_id":0,"rating":0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"next_review_date":1}`, rec.Body.String())
}

func TestDueCards_QueryValidation(t *testing.T) {
	h := newHarness(t, true)

	for _, target := range []string{
		"/due-cards?date=0",
		"/due-cards?user_id=1",
		"/due-cards?user_id=x&date=0",
		"/due-cards?user_id=1&date=99999999999",
		"/due-cards?user_id=1&date=0&topic_id=abc",
	} {
		rec := h.do(t, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}

	rec := h.do(t, http.MethodGet, "/due-cards?user_id=5&date=3&topic_id=all", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"card_ids":[]}`, rec.Body.String())
}

func TestCreateTopic(t *testing.T) {
	h := newHarness(t, true)

	rec := h.do(t, http.MethodPost, "/topic", `{"user_id":1,"topic_id":100,"name":"Sample topic"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = h.do(t, http.MethodPost, "/topic", `{"user_id":1,"name":"no id"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCard_NotFound(t *testing.T) {
	h := newHarness(t, true)

	rec := h.do(t, http.MethodGet, "/users/1/cards/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodGet, "/users/one/cards/1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCardHistory(t *testing.T) {
	h := newHarness(t, true)
	require.NoError(t, h.svc.AddCard(context.Background(), 1, 1, 0))
	h.history.On("ListForCard", mock.Anything, models.UserID(1), models.CardID(1), 5).
		Return([]models.ReviewHistory{{ID: 7, UserID: 1, CardID: 1, Rating: 2, NextReviewDate: 6}}, nil)

	rec := h.do(t, http.MethodGet, "/users/1/cards/1/history?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decode[[]models.ReviewHistory](t, rec)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(7), rows[0].ID)

	rec = h.do(t, http.MethodGet, "/users/1/cards/1/history?limit=-2", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRatingCounts(t *testing.T) {
	h := newHarness(t, true)
	h.svc.CreateUser(context.Background(), 2)
	h.history.On("RatingCounts", mock.Anything, models.UserID(2)).
		Return([]models.RatingCount{{Rating: 3, Count: 4}}, nil)

	rec := h.do(t, http.MethodGet, "/users/2/ratings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"rating":3,"count":4}]`, rec.Body.String())
}

func TestAdminSnapshot(t *testing.T) {
	h := newHarness(t, true)

	rec := h.do(t, http.MethodPost, "/admin/snapshot", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
}

func TestHealthAndReady(t *testing.T) {
	h := newHarness(t, false)

	rec := h.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = h.do(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = h.do(t, http.MethodPost, "/card", `{"user_id":1,"card_id":1,"topic_id":1}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "UNAVAILABLE", decode[errorResponse](t, rec).Error.Code)

	h.svc.Recover(context.Background())
	rec = h.do(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	h.server.HistoryDB = pingFunc(func(context.Context) error { return errors.New("closed") })
	rec = h.do(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestIDHeader(t *testing.T) {
	h := newHarness(t, true)

	rec := h.do(t, http.MethodGet, "/health", "")
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec = httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}
