package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sbwgg/Checker-bot/internal/adapters/store"
	"github.com/sbwgg/Checker-bot/internal/domain/manager"
	"github.com/sbwgg/Checker-bot/internal/domain/match"
	"github.com/sbwgg/Checker-bot/internal/domain/team"
	"github.com/sbwgg/Checker-bot/internal/domain/vote"
)

// ErrBadRequest marks malformed input.
var ErrBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}

type errorStatus struct {
	err    error
	status int
	code   string
}

// statusTable is matched in order; the first sentinel found in the chain wins.
var statusTable = []errorStatus{
	{ErrBadRequest, http.StatusBadRequest, "bad_request"},
	{manager.ErrStopped, http.StatusServiceUnavailable, "stopped"},
	{manager.ErrSettlement, http.StatusBadGateway, "settlement_failed"},

	{store.ErrPlayerNotFound, http.StatusNotFound, "player_not_found"},
	{manager.ErrMatchNotFound, http.StatusNotFound, "match_not_found"},
	{manager.ErrPlayerNotInMatch, http.StatusNotFound, "not_in_match"},
	{match.ErrNoActiveVote, http.StatusNotFound, "no_active_vote"},

	{match.ErrVoteInProgress, http.StatusConflict, "vote_in_progress"},
	{vote.ErrVoteClosed, http.StatusConflict, "vote_closed"},
	{match.ErrMatchResolved, http.StatusConflict, "match_resolved"},
	{manager.ErrPlayerBusy, http.StatusConflict, "player_busy"},
	{match.ErrWrongPhase, http.StatusConflict, "wrong_phase"},
	{match.ErrMapPending, http.StatusConflict, "map_pending"},
	{manager.ErrNotResolved, http.StatusConflict, "not_resolved"},
	{manager.ErrSettlementInProgress, http.StatusConflict, "settlement_in_progress"},

	{vote.ErrNotEligible, http.StatusForbidden, "not_eligible"},
	{match.ErrNotParticipant, http.StatusForbidden, "not_participant"},

	{team.ErrInvalidRoster, http.StatusBadRequest, "invalid_roster"},
	{team.ErrUnevenPool, http.StatusBadRequest, "uneven_pool"},
	{manager.ErrUnevenTeams, http.StatusBadRequest, "uneven_teams"},
	{manager.ErrNotRegistered, http.StatusBadRequest, "not_registered"},
	{manager.ErrInvalidChoice, http.StatusBadRequest, "invalid_choice"},
	{match.ErrInvalidTeams, http.StatusBadRequest, "invalid_teams"},
	{match.ErrInvalidVote, http.StatusBadRequest, "invalid_vote"},
	{match.ErrNoMapVote, http.StatusBadRequest, "no_map_vote"},
	{match.ErrNoSuchCandidate, http.StatusBadRequest, "no_such_candidate"},
	{vote.ErrUnknownKind, http.StatusBadRequest, "unknown_kind"},
	{vote.ErrUnsupportedBallot, http.StatusBadRequest, "unsupported_ballot"},
	{vote.ErrBallotImmutable, http.StatusBadRequest, "ballot_immutable"},
	{store.ErrInvalidLimit, http.StatusBadRequest, "invalid_limit"},
	{store.ErrInvalidPlayer, http.StatusBadRequest, "invalid_player"},
}

func statusFor(err error) (int, string) {
	for _, e := range statusTable {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}
