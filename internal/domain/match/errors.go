package match

import "errors"

// Sentinel errors returned by Match operations.
var (
	ErrInvalidTeams    = errors.New("invalid teams")
	ErrNoActiveVote    = errors.New("no active vote on channel")
	ErrVoteInProgress  = errors.New("a vote is already in progress on channel")
	ErrMatchResolved   = errors.New("match is resolved")
	ErrWrongPhase      = errors.New("operation not allowed in the current match state")
	ErrInvalidVote     = errors.New("vote does not belong to this match")
	ErrNotParticipant  = errors.New("player is not in this match")
	ErrMapPending      = errors.New("map vote has not been decided")
	ErrNoMapVote       = errors.New("match has no map vote")
	ErrNoSuchCandidate = errors.New("no such map candidate")
)
