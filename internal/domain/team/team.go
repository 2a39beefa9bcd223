// Package team builds immutable rosters with a derived average rating.
package team

import (
	"github.com/sbwgg/Checker-bot/internal/domain/model"
)

// Team is a frozen roster. The average rating is computed once at
// construction and never recomputed.
type Team struct {
	players        []model.Player
	voiceChannelID uint64
	averageRating  int
}

// New builds a Team from players. It returns ErrInvalidRoster when players is
// empty or lists the same player twice.
func New(players []model.Player, voiceChannelID uint64) (*Team, error) {
	if len(players) == 0 {
		return nil, ErrInvalidRoster
	}
	seen := make(map[uint64]struct{}, len(players))
	sum := 0
	for _, p := range players {
		if _, dup := seen[p.ID]; dup {
			return nil, ErrInvalidRoster
		}
		seen[p.ID] = struct{}{}
		sum += p.Rating
	}

	roster := make([]model.Player, len(players))
	copy(roster, players)

	return &Team{
		players:        roster,
		voiceChannelID: voiceChannelID,
		averageRating:  sum / len(roster),
	}, nil
}

// MustNew is New for rosters known to be valid; it panics otherwise.
func MustNew(players []model.Player, voiceChannelID uint64) *Team {
	t, err := New(players, voiceChannelID)
	if err != nil {
		panic(err)
	}
	return t
}

// Players returns a copy of the roster in construction order.
func (t *Team) Players() []model.Player {
	out := make([]model.Player, len(t.players))
	copy(out, t.players)
	return out
}

// Size returns the number of players.
func (t *Team) Size() int { return len(t.players) }

// VoiceChannelID returns the team's voice channel.
func (t *Team) VoiceChannelID() uint64 { return t.voiceChannelID }

// AverageRating returns the integer-truncated mean rating.
func (t *Team) AverageRating() int { return t.averageRating }

// Has reports whether playerID is on the roster.
func (t *Team) Has(playerID uint64) bool {
	for _, p := range t.players {
		if p.ID == playerID {
			return true
		}
	}
	return false
}

// IDs returns the roster's player ids.
func (t *Team) IDs() []uint64 {
	ids := make([]uint64, len(t.players))
	for i, p := range t.players {
		ids[i] = p.ID
	}
	return ids
}
