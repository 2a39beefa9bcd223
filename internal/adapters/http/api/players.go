package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sbwgg/Checker-bot/internal/adapters/store"
	"github.com/sbwgg/Checker-bot/internal/domain/manager"
	"github.com/sbwgg/Checker-bot/internal/domain/model"
	"github.com/sbwgg/Checker-bot/internal/domain/rating"
	"github.com/sbwgg/Checker-bot/internal/domain/types"
)

type registerRequest struct {
	ID     uint64 `json:"id"`
	Name   string `json:"name"`
	Rating *int   `json:"rating,omitempty"`
}

// handleRegisterPlayer handles POST /players. Re-registering keeps the
// stored rating.
func (s *Server) handleRegisterPlayer(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.ID == 0 {
		s.writeError(w, r, badRequest("missing id"))
		return
	}
	if req.Rating != nil && *req.Rating < 0 {
		s.writeError(w, r, badRequest("rating must not be negative"))
		return
	}

	status := http.StatusOK
	p, err := s.players.GetPlayer(r.Context(), req.ID)
	switch {
	case errors.Is(err, store.ErrPlayerNotFound):
		status = http.StatusCreated
		p = model.Player{ID: req.ID, Rating: s.defaultRating}
	case err != nil:
		s.writeError(w, r, err)
		return
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		p.Name = name
	}
	if req.Rating != nil {
		p.Rating = *req.Rating
	}
	p.Registered = true

	if err := s.players.SavePlayer(r.Context(), p); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, status, types.PlayerView{ID: p.ID, Name: p.Name, Rating: p.Rating, Tier: rating.TierAt(p.Rating).String()})
}

// handlePlayerMatch handles GET /players/{id}/match.
func (s *Server) handlePlayerMatch(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(chi.URLParam(r, "id"), "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	mt, ok := s.matches.MatchOfPlayer(r.Context(), id)
	if !ok {
		s.writeError(w, r, manager.ErrPlayerNotInMatch)
		return
	}
	writeJSON(w, http.StatusOK, mt.View())
}

// handlePlayerRank handles GET /players/{id}/rank.
func (s *Server) handlePlayerRank(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(chi.URLParam(r, "id"), "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entry, err := s.players.Rank(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// handleLadder handles GET /ladder?limit=N.
func (s *Server) handleLadder(w http.ResponseWriter, r *http.Request) {
	n := defaultLadderLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		var err error
		if n, err = strconv.Atoi(v); err != nil || n < 1 {
			s.writeError(w, r, badRequest("limit must be a positive integer"))
			return
		}
	}
	if n > s.maxLimit {
		s.writeError(w, r, badRequest("limit exceeds %d", s.maxLimit))
		return
	}
	entries, err := s.players.Ladder(r.Context(), n)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func uintParam(v, name string) (uint64, error) {
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil || id == 0 {
		return 0, badRequest("invalid %s %q", name, v)
	}
	return id, nil
}
