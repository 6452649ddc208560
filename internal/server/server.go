// Package server exposes the read API: stored candidates, health, and
// Prometheus metrics.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"listing-radar/internal/domain"
	"listing-radar/internal/observability"
	"listing-radar/internal/storage"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Server serves the HTTP read API.
type Server struct {
	candidates storage.CandidateStore
	router     *mux.Router
}

// New creates a Server over the candidate store.
func New(candidates storage.CandidateStore) *Server {
	s := &Server{
		candidates: candidates,
		router:     mux.NewRouter(),
	}

	s.router.HandleFunc("/api/candidates", s.handleCandidates).Methods(http.MethodGet)
	s.router.HandleFunc("/api/candidates/{key}", s.handleCandidate).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", observability.Handler()).Methods(http.MethodGet)

	return s
}

// Handler returns the root handler, usable with any http.Server.
func (s *Server) Handler() http.Handler { return s.router }

// handleCandidates returns recent candidates, optionally filtered by
// source: GET /api/candidates?source=dex_poll&limit=20
func (s *Server) handleCandidates(w http.ResponseWriter, r *http.Request) {
	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	var (
		candidates []*domain.TokenCandidate
		err        error
	)
	if raw := r.URL.Query().Get("source"); raw != "" {
		src := domain.Source(raw)
		if !src.IsValid() {
			writeError(w, http.StatusBadRequest, "unknown source")
			return
		}
		candidates, err = s.candidates.BySource(r.Context(), src)
		if err == nil && len(candidates) > limit {
			candidates = candidates[:limit]
		}
	} else {
		candidates, err = s.candidates.Recent(r.Context(), limit)
	}
	if err != nil {
		log.Error().Err(err).Msg("candidate listing failed")
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":      len(candidates),
		"candidates": candidates,
	})
}

// handleCandidate returns one candidate by natural key.
func (s *Server) handleCandidate(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	candidate, err := s.candidates.GetByKey(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		log.Error().Err(err).Str("natural_key", key).Msg("candidate lookup failed")
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}

	writeJSON(w, http.StatusOK, candidate)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("response encoding failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
