// Package drill exercises a running checkers server over HTTP. Each round
// forms a match, opens two competing end-match votes and fires every ballot
// at once, then checks that the match was settled exactly once.
package drill

import (
	"time"

	"github.com/sbwgg/Checker-bot/internal/domain/types"
)

// Config holds configuration for the vote drill
type Config struct {
	BaseURL       string        // Base URL of the service
	TeamSize      int           // Players per side
	FirstPlayerID uint64        // Ids FirstPlayerID..FirstPlayerID+2*TeamSize-1 are used
	ChannelBase   uint64        // Vote channels are allocated upward from here
	Rounds        int           // Matches to play
	Workers       int           // Concurrent ballot senders
	Timeout       time.Duration // HTTP request timeout
	Verbose       bool          // Log every ballot
}

// Stats holds drill statistics
type Stats struct {
	Rounds          int
	BallotsSent     int
	BallotsAccepted int
	BallotsRejected int
	Applied         int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}

type registerRequest struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

type createMatchRequest struct {
	Pool []uint64 `json:"pool"`
}

type raiseVoteRequest struct {
	ChannelID  uint64 `json:"channel_id"`
	Kind       string `json:"kind"`
	ProposedBy uint64 `json:"proposed_by"`
	Subject    string `json:"subject"`
	Proposal   string `json:"proposal"`
}

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

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
