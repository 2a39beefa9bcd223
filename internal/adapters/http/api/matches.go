package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sbwgg/Checker-bot/internal/domain/manager"
	"github.com/sbwgg/Checker-bot/internal/domain/match"
	"github.com/sbwgg/Checker-bot/internal/domain/model"
	"github.com/sbwgg/Checker-bot/internal/domain/vote"
)

type createMatchRequest struct {
	TeamA  []uint64 `json:"team_a"`
	TeamB  []uint64 `json:"team_b"`
	Pool   []uint64 `json:"pool"`
	VoiceA uint64   `json:"voice_a"`
	VoiceB uint64   `json:"voice_b"`
}

func (c createMatchRequest) validate() error {
	switch {
	case len(c.Pool) > 0 && (len(c.TeamA) > 0 || len(c.TeamB) > 0):
		return badRequest("send either a pool or two teams")
	case len(c.Pool) == 0 && (len(c.TeamA) == 0 || len(c.TeamB) == 0):
		return badRequest("missing team_a/team_b or pool")
	}
	return nil
}

type raiseVoteRequest struct {
	ChannelID  uint64 `json:"channel_id"`
	Kind       string `json:"kind"`
	ProposedBy uint64 `json:"proposed_by"`
	Subject    string `json:"subject"`
	Proposal   string `json:"proposal"`
}

// handleCreateMatch handles POST /matches.
func (s *Server) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	var req createMatchRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		s.writeError(w, r, err)
		return
	}
	mt, err := s.matches.CreateMatch(r.Context(), manager.CreateRequest{
		TeamA: req.TeamA, TeamB: req.TeamB, Pool: req.Pool, VoiceA: req.VoiceA, VoiceB: req.VoiceB,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mt.View())
}

// handleGetMatch handles GET /matches/{id}.
func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	mt, err := s.matches.Match(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mt.View())
}

// handleRaiseVote handles POST /matches/{id}/votes.
func (s *Server) handleRaiseVote(w http.ResponseWriter, r *http.Request) {
	var req raiseVoteRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.ChannelID == 0 || req.ProposedBy == 0 {
		s.writeError(w, r, badRequest("missing channel_id or proposed_by"))
		return
	}
	kind, err := vote.ParseKind(req.Kind)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	subject := model.ParseSide(req.Subject)
	if subject == model.SideNone && strings.TrimSpace(req.Subject) != "" {
		s.writeError(w, r, badRequest("unknown subject %q", req.Subject))
		return
	}
	v, err := s.matches.RaiseVote(r.Context(), manager.RaiseRequest{
		MatchID:    chi.URLParam(r, "id"),
		ChannelID:  req.ChannelID,
		Kind:       kind,
		ProposedBy: req.ProposedBy,
		Subject:    subject,
		Proposal:   req.Proposal,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	vv := match.VoteView(v.Tally())
	vv.ChannelID = req.ChannelID
	writeJSON(w, http.StatusCreated, vv)
}

// handleStart handles POST /matches/{id}/start.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.matches.Start(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeMatch(w, r, id)
}

// handleDecideMap handles POST /matches/{id}/maps/decide.
func (s *Server) handleDecideMap(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.matches.DecideMap(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeMatch(w, r, id)
}

// handleFinalize handles POST /matches/{id}/finalize, retrying a failed
// settlement.
func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.matches.RetrySettlement(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"match_id": id, "status": "settled"})
}

func (s *Server) writeMatch(w http.ResponseWriter, r *http.Request, id string) {
	mt, err := s.matches.Match(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mt.View())
}
