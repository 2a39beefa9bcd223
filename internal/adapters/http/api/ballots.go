package api

import (
	"net/http"

	"github.com/sbwgg/Checker-bot/internal/domain/manager"
	"github.com/sbwgg/Checker-bot/internal/domain/match"
	"github.com/sbwgg/Checker-bot/internal/domain/types"
)

type ballotRequest struct {
	PlayerID  uint64 `json:"player_id"`
	ChannelID uint64 `json:"channel_id"`
	Choice    string `json:"choice"`
}

type ballotResponse struct {
	MatchID  string         `json:"match_id"`
	Vote     types.VoteView `json:"vote"`
	Resolved bool           `json:"resolved"`
	Applied  bool           `json:"applied"`
}

type mapBallotRequest struct {
	PlayerID  uint64 `json:"player_id"`
	Candidate *int   `json:"candidate"`
}

// handleCast handles POST /ballots.
func (s *Server) handleCast(w http.ResponseWriter, r *http.Request) {
	var req ballotRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.PlayerID == 0 || req.ChannelID == 0 {
		s.writeError(w, r, badRequest("missing player_id or channel_id"))
		return
	}
	choice, err := manager.ParseChoice(req.Choice)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.matches.Cast(r.Context(), manager.Ballot{PlayerID: req.PlayerID, ChannelID: req.ChannelID, Choice: choice})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	vv := match.VoteView(res.Tally)
	vv.ChannelID = req.ChannelID
	writeJSON(w, http.StatusOK, ballotResponse{MatchID: res.MatchID, Vote: vv, Resolved: res.Resolved, Applied: res.Applied})
}

// handleCastMap handles POST /maps/ballots.
func (s *Server) handleCastMap(w http.ResponseWriter, r *http.Request) {
	var req mapBallotRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.PlayerID == 0 || req.Candidate == nil {
		s.writeError(w, r, badRequest("missing player_id or candidate"))
		return
	}
	mt, err := s.matches.CastMap(r.Context(), req.PlayerID, *req.Candidate)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mt.View())
}

// handleRemoveMapBallot handles DELETE /maps/ballots?player_id=N.
func (s *Server) handleRemoveMapBallot(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r.URL.Query().Get("player_id"), "player_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	mt, err := s.matches.RemoveMapBallot(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mt.View())
}
