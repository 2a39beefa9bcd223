// Package types contains read-only views shared by the manager and the HTTP layer.
package types

import "time"

// PlayerView is a roster member as shown to clients.
type PlayerView struct {
	ID     uint64 `json:"id"`
	Name   string `json:"name"`
	Rating int    `json:"rating"`
	Tier   string `json:"tier"`
}

// TeamView is one side of a match.
type TeamView struct {
	Side           string       `json:"side"`
	VoiceChannelID uint64       `json:"voice_channel_id"`
	AverageRating  int          `json:"average_rating"`
	Players        []PlayerView `json:"players"`
}

// VoteView is a vote tally.
type VoteView struct {
	ID         uint64    `json:"id"`
	Kind       string    `json:"kind"`
	ChannelID  uint64    `json:"channel_id,omitempty"`
	Candidate  *int      `json:"candidate,omitempty"`
	Title      string    `json:"title"`
	Proposal   string    `json:"proposal,omitempty"`
	ProposedBy uint64    `json:"proposed_by,omitempty"`
	Subject    string    `json:"subject,omitempty"`
	For        int       `json:"for"`
	Against    int       `json:"against"`
	Total      int       `json:"total"`
	Required   int       `json:"required"`
	State      string    `json:"state"`
	CreatedAt  time.Time `json:"created_at"`
}

// RatingChange is one line of a settlement.
type RatingChange struct {
	PlayerID uint64 `json:"player_id"`
	Before   int    `json:"before"`
	After    int    `json:"after"`
	Delta    int    `json:"delta"`
}

// MatchView is a consistent snapshot of a match.
type MatchView struct {
	ID         string         `json:"id"`
	State      string         `json:"state"`
	Outcome    string         `json:"outcome,omitempty"`
	Winner     string         `json:"winner,omitempty"`
	Map        string         `json:"map,omitempty"`
	Teams      []TeamView     `json:"teams"`
	Votes      []VoteView     `json:"votes"`
	MapVotes   []VoteView     `json:"map_votes,omitempty"`
	Settlement []RatingChange `json:"settlement,omitempty"`
	Settled    bool           `json:"settled"`
	CreatedAt  time.Time      `json:"created_at"`
	ResolvedAt *time.Time     `json:"resolved_at,omitempty"`
}

// LadderEntry is one row of the rating ladder.
type LadderEntry struct {
	Rank     int    `json:"rank"`
	PlayerID uint64 `json:"player_id"`
	Name     string `json:"name"`
	Rating   int    `json:"rating"`
	Tier     string `json:"tier"`
}

// Stats summarizes the manager's registry.
type Stats struct {
	ActiveMatches     int `json:"active_matches"`
	RegisteredPlayers int `json:"registered_players"`
	PendingSettlement int `json:"pending_settlement"`
}
