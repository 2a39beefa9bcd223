// Package store defines the player persistence port and its shared helpers.
package store

import (
	"context"
	"time"

	"github.com/sbwgg/Checker-bot/internal/domain/model"
	"github.com/sbwgg/Checker-bot/internal/domain/rating"
	"github.com/sbwgg/Checker-bot/internal/domain/types"
	"github.com/sbwgg/Checker-bot/pkg/metrics"
)

// Store holds durable player records.
type Store interface {
	// GetPlayer returns ErrPlayerNotFound for unknown ids.
	GetPlayer(ctx context.Context, id uint64) (model.Player, error)
	// SavePlayer inserts or replaces a player record.
	SavePlayer(ctx context.Context, p model.Player) error
	// UpdateRating writes an absolute rating, so repeating a write is harmless.
	UpdateRating(ctx context.Context, id uint64, rating int) error
	UpdateFlags(ctx context.Context, id uint64, active, registered bool) error

	// Rank returns the player's ladder position. Players sharing a rating
	// share a rank (1, 2, 2, 4).
	Rank(ctx context.Context, id uint64) (types.LadderEntry, error)
	// Ladder returns the top n players by rating, then id.
	Ladder(ctx context.Context, n int) ([]types.LadderEntry, error)

	Close() error
}

// Entry builds a ladder row for p.
func Entry(rank int, p model.Player) types.LadderEntry {
	return types.LadderEntry{
		Rank:     rank,
		PlayerID: p.ID,
		Name:     p.Name,
		Rating:   p.Rating,
		Tier:     rating.TierAt(p.Rating).String(),
	}
}

// AssignRanks numbers rows already sorted by rating desc. Equal ratings
// share a rank and the next rank skips the tied positions.
func AssignRanks(rows []types.LadderEntry) {
	for i := range rows {
		if i > 0 && rows[i].Rating == rows[i-1].Rating {
			rows[i].Rank = rows[i-1].Rank
			continue
		}
		rows[i].Rank = i + 1
	}
}

// ValidatePlayer rejects records that cannot be stored.
func ValidatePlayer(p model.Player) error {
	if p.ID == 0 {
		return ErrInvalidPlayer
	}
	return nil
}

// instrumented records latency and errors for every call on a backend.
type instrumented struct {
	backend string
	next    Store
}

// Instrument wraps s so every call is reported to the store metrics under
// the backend label.
func Instrument(backend string, s Store) Store {
	return &instrumented{backend: backend, next: s}
}

func (i *instrumented) observe(op string, start time.Time, err *error) {
	metrics.RecordStoreCall(i.backend, op, float64(time.Since(start).Milliseconds()), *err)
}

func (i *instrumented) GetPlayer(ctx context.Context, id uint64) (p model.Player, err error) {
	defer i.observe("get_player", time.Now(), &err)
	return i.next.GetPlayer(ctx, id)
}

func (i *instrumented) SavePlayer(ctx context.Context, p model.Player) (err error) {
	defer i.observe("save_player", time.Now(), &err)
	return i.next.SavePlayer(ctx, p)
}

func (i *instrumented) UpdateRating(ctx context.Context, id uint64, r int) (err error) {
	defer i.observe("update_rating", time.Now(), &err)
	return i.next.UpdateRating(ctx, id, r)
}

func (i *instrumented) UpdateFlags(ctx context.Context, id uint64, active, registered bool) (err error) {
	defer i.observe("update_flags", time.Now(), &err)
	return i.next.UpdateFlags(ctx, id, active, registered)
}

func (i *instrumented) Rank(ctx context.Context, id uint64) (e types.LadderEntry, err error) {
	defer i.observe("rank", time.Now(), &err)
	return i.next.Rank(ctx, id)
}

func (i *instrumented) Ladder(ctx context.Context, n int) (rows []types.LadderEntry, err error) {
	defer i.observe("ladder", time.Now(), &err)
	return i.next.Ladder(ctx, n)
}

func (i *instrumented) Close() error { return i.next.Close() }
