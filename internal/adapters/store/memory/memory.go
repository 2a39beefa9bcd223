// Package memory is an in-process player store with an order-statistics
// ladder.
package memory

import (
	"context"
	"sync"

	"github.com/sbwgg/Checker-bot/internal/adapters/store"
	"github.com/sbwgg/Checker-bot/internal/domain/model"
	"github.com/sbwgg/Checker-bot/internal/domain/types"
)

// Store keeps players in a map and their ladder positions in a treap.
type Store struct {
	mu      sync.RWMutex
	root    *node
	players map[uint64]model.Player
}

var _ store.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{players: make(map[uint64]model.Player)}
}

func (s *Store) GetPlayer(_ context.Context, id uint64) (model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[id]
	if !ok {
		return model.Player{}, store.ErrPlayerNotFound
	}
	return p, nil
}

func (s *Store) SavePlayer(_ context.Context, p model.Player) error {
	if err := store.ValidatePlayer(p); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.players[p.ID]; ok {
		s.root = remove(s.root, old.ID, old.Rating)
	}
	s.players[p.ID] = p
	s.root = insert(s.root, p.ID, p.Rating)
	return nil
}

func (s *Store) UpdateRating(_ context.Context, id uint64, rating int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	if !ok {
		return store.ErrPlayerNotFound
	}
	if p.Rating == rating {
		return nil
	}
	s.root = remove(s.root, p.ID, p.Rating)
	p.Rating = rating
	s.players[id] = p
	s.root = insert(s.root, p.ID, p.Rating)
	return nil
}

func (s *Store) UpdateFlags(_ context.Context, id uint64, active, registered bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	if !ok {
		return store.ErrPlayerNotFound
	}
	p.Active, p.Registered = active, registered
	s.players[id] = p
	return nil
}

func (s *Store) Rank(_ context.Context, id uint64) (types.LadderEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[id]
	if !ok {
		return types.LadderEntry{}, store.ErrPlayerNotFound
	}
	return store.Entry(countAbove(s.root, p.Rating)+1, p), nil
}

func (s *Store) Ladder(_ context.Context, n int) ([]types.LadderEntry, error) {
	if n < 1 {
		return nil, store.ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]uint64, 0, min(n, len(s.players)))
	collect(s.root, n, &ids)

	rows := make([]types.LadderEntry, len(ids))
	for i, id := range ids {
		rows[i] = store.Entry(0, s.players[id])
	}
	store.AssignRanks(rows)
	return rows, nil
}

// Len returns the number of stored players.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players)
}

func (s *Store) Close() error { return nil }
