// Package api exposes the gift service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/keepsake-app/keepsake/internal/common"
	"github.com/keepsake-app/keepsake/internal/gifts"
	"github.com/keepsake-app/keepsake/internal/logging"
	"github.com/keepsake-app/keepsake/internal/server/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server routes HTTP requests to the application services.
type Server struct {
	gifts  *services.GiftService
	photos *services.PhotoService
	logger logging.Logger
	mux    *http.ServeMux
}

// NewServer creates a Server, registers all routes, and returns it.
func NewServer(giftSvc *services.GiftService, photoSvc *services.PhotoService, logger logging.Logger) *Server {
	s := &Server{
		gifts:  giftSvc,
		photos: photoSvc,
		logger: logger.With("module", "api"),
		mux:    http.NewServeMux(),
	}
	s.routes()
	return s
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/gifts", s.handleCreateGift)
	s.mux.HandleFunc("POST /api/gifts/{id}/seen", s.handleMarkSeen)
	s.mux.HandleFunc("POST /api/gifts/{id}/dismiss", s.handleDismiss)
	s.mux.HandleFunc("GET /api/gifts/active", s.handleActiveGifts)
	s.mux.HandleFunc("GET /api/gifts/sent", s.handleSentHistory)
	s.mux.HandleFunc("GET /api/gifts/received", s.handleReceivedHistory)

	s.mux.HandleFunc("POST /api/uploads", s.handlePresignUpload)
	s.mux.HandleFunc("GET /api/uploads/{key...}", s.handlePresignDownload)

	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.Error(context.Background(), "encoding response", "error", err.Error())
		}
	}
}

// respondError maps domain errors onto HTTP status codes.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrPermission):
		status = http.StatusForbidden
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status >= 500 {
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err.Error())
	}
	s.respondJSON(w, status, map[string]string{"error": err.Error()})
}

// requireUser reads the user query parameter. It writes an error response
// and returns false when the parameter is absent.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	user := r.URL.Query().Get("user")
	if user == "" {
		s.respondError(w, r, fmt.Errorf("%w: user query parameter is required", common.ErrValidation))
		return "", false
	}
	return user, true
}

func queryLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

func (s *Server) handleCreateGift(w http.ResponseWriter, r *http.Request) {
	var payload gifts.CreatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: invalid JSON: %v", common.ErrValidation, err))
		return
	}

	g, err := s.gifts.Create(r.Context(), &payload)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, g)
}

func (s *Server) handleMarkSeen(w http.ResponseWriter, r *http.Request) {
	if err := s.gifts.MarkSeen(r.Context(), r.PathValue("id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	if err := s.gifts.Dismiss(r.Context(), r.PathValue("id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleActiveGifts(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	views, err := s.gifts.ActiveGifts(r.Context(), user)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, views)
}

func (s *Server) handleSentHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	list, err := s.gifts.SentHistory(r.Context(), user, queryLimit(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleReceivedHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	list, err := s.gifts.ReceivedHistory(r.Context(), user, queryLimit(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, list)
}

func (s *Server) handlePresignUpload(w http.ResponseWriter, r *http.Request) {
	key, url, err := s.photos.PresignedPutURL(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"key": key, "url": url})
}

func (s *Server) handlePresignDownload(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		s.respondError(w, r, fmt.Errorf("%w: missing storage key", common.ErrValidation))
		return
	}

	url, err := s.photos.PresignedGetURL(r.Context(), key)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"url": url})
}
