package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/Cypherspark/notify-gateway/internal/core"
	"github.com/Cypherspark/notify-gateway/internal/redisstore"
	"github.com/Cypherspark/notify-gateway/internal/worker"
)

// Pinger reports whether the store behind the service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	svc      *core.Service
	pinger   Pinger // nil when the backing store has no health probe
	validate *validator.Validate
	log      zerolog.Logger
}

func NewServer(svc *core.Service, pinger Pinger, log zerolog.Logger) *Server {
	return &Server{
		svc:      svc,
		pinger:   pinger,
		validate: validator.New(),
		log:      log,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(instrument)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs", http.StatusTemporaryRedirect)
	})
	s.mountDocs(r)
	s.mountHealth(r)
	s.mountMetrics(r)

	r.Route("/api/notifications", func(r chi.Router) {
		r.Post("/", s.postNotification)
		r.Get("/", s.listNotifications)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type dispatchParams struct {
	UserID  int64  `validate:"required,gt=0"`
	Message string `validate:"required,min=1,max=1000"`
	Type    string `validate:"required,oneof=telegram email"`
}

// postNotification accepts a send request and returns 202 before delivery
// happens. Parameter problems are 422; backpressure and store outages are
// 503 so clients can retry.
func (s *Server) postNotification(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	userID, err := strconv.ParseInt(q.Get("user_id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "user_id must be an integer"})
		return
	}
	params := dispatchParams{
		UserID:  userID,
		Message: q.Get("message"),
		Type:    q.Get("notification_type"),
	}
	if err := s.validate.Struct(params); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}

	// Structural validation already pins the enum; this is the explicit
	// business check on top of it.
	ch, err := core.ParseChannel("notification_type", params.Type, false)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	_, err = s.svc.Dispatch(r.Context(), params.UserID, params.Message, ch)
	switch {
	case err == nil:
	case errors.Is(err, worker.ErrQueueFull), errors.Is(err, worker.ErrClosed):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "delivery queue full"})
		return
	case errors.Is(err, redisstore.ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "store unavailable"})
		return
	case errors.Is(err, core.ErrInvalidUserID), errors.Is(err, core.ErrInvalidMessage), errors.Is(err, core.ErrInvalidChannel):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	default:
		s.log.Error().Err(err).Msg("dispatch failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"message": "Notification processing started",
		"user_id": params.UserID,
		"type":    string(ch),
		"status":  "accepted",
	})
}

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	userID, err := strconv.ParseInt(q.Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "user_id must be a positive integer"})
		return
	}

	var filter core.Status
	if v := q.Get("status"); v != "" {
		st, err := core.ParseStatus("status", v, false)
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}
		filter = st
	}

	records, err := s.svc.List(r.Context(), userID, filter)
	switch {
	case err == nil:
	case errors.Is(err, redisstore.ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "store unavailable"})
		return
	default:
		s.log.Error().Err(err).Int64("user_id", userID).Msg("list failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":       userID,
		"notifications": records,
		"count":         len(records),
	})
}
