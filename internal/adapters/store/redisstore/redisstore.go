// Package redisstore keeps players in Redis: one hash per player under
// player:{id} and a ladder sorted set scored by rating.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/sbwgg/Checker-bot/internal/adapters/store"
	"github.com/sbwgg/Checker-bot/internal/domain/model"
	"github.com/sbwgg/Checker-bot/internal/domain/types"
)

const ladderKey = "ladder"

// Client is the subset of *redis.Client the store needs.
type Client interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd
	ZCount(ctx context.Context, key, min, max string) *redis.IntCmd
	ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) *redis.ZSliceCmd
	Close() error
}

// Store implements store.Store on Redis.
type Store struct {
	client Client
}

var _ store.Store = (*Store)(nil)

// New wraps an existing client.
func New(client Client) *Store {
	return &Store{client: client}
}

// Connect dials addr and verifies the connection.
func Connect(ctx context.Context, addr string, db int) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return New(rdb), nil
}

func playerKey(id uint64) string { return "player:" + strconv.FormatUint(id, 10) }

func member(id uint64) string { return strconv.FormatUint(id, 10) }

func (s *Store) GetPlayer(ctx context.Context, id uint64) (model.Player, error) {
	fields, err := s.client.HGetAll(ctx, playerKey(id)).Result()
	if err != nil {
		return model.Player{}, fmt.Errorf("get player %d: %w", id, err)
	}
	if len(fields) == 0 {
		return model.Player{}, store.ErrPlayerNotFound
	}
	return decode(id, fields)
}

func decode(id uint64, fields map[string]string) (model.Player, error) {
	r, err := strconv.Atoi(fields["rating"])
	if err != nil {
		return model.Player{}, fmt.Errorf("player %d rating %q: %w", id, fields["rating"], err)
	}
	return model.Player{
		ID:         id,
		Name:       fields["name"],
		Rating:     r,
		Active:     fields["active"] == "1",
		Registered: fields["registered"] == "1",
	}, nil
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (s *Store) SavePlayer(ctx context.Context, p model.Player) error {
	if err := store.ValidatePlayer(p); err != nil {
		return err
	}
	if err := s.client.HSet(ctx, playerKey(p.ID),
		"name", p.Name,
		"rating", strconv.Itoa(p.Rating),
		"active", flag(p.Active),
		"registered", flag(p.Registered),
	).Err(); err != nil {
		return fmt.Errorf("save player %d: %w", p.ID, err)
	}
	return s.rank(ctx, p.ID, p.Rating)
}

func (s *Store) rank(ctx context.Context, id uint64, rating int) error {
	if err := s.client.ZAdd(ctx, ladderKey, redis.Z{Score: float64(rating), Member: member(id)}).Err(); err != nil {
		return fmt.Errorf("ladder add %d: %w", id, err)
	}
	return nil
}

func (s *Store) exists(ctx context.Context, id uint64) error {
	n, err := s.client.Exists(ctx, playerKey(id)).Result()
	if err != nil {
		return fmt.Errorf("exists %d: %w", id, err)
	}
	if n == 0 {
		return store.ErrPlayerNotFound
	}
	return nil
}

func (s *Store) UpdateRating(ctx context.Context, id uint64, rating int) error {
	if err := s.exists(ctx, id); err != nil {
		return err
	}
	if err := s.client.HSet(ctx, playerKey(id), "rating", strconv.Itoa(rating)).Err(); err != nil {
		return fmt.Errorf("update rating %d: %w", id, err)
	}
	return s.rank(ctx, id, rating)
}

func (s *Store) UpdateFlags(ctx context.Context, id uint64, active, registered bool) error {
	if err := s.exists(ctx, id); err != nil {
		return err
	}
	if err := s.client.HSet(ctx, playerKey(id), "active", flag(active), "registered", flag(registered)).Err(); err != nil {
		return fmt.Errorf("update flags %d: %w", id, err)
	}
	return nil
}

func (s *Store) Rank(ctx context.Context, id uint64) (types.LadderEntry, error) {
	p, err := s.GetPlayer(ctx, id)
	if err != nil {
		return types.LadderEntry{}, err
	}
	above, err := s.client.ZCount(ctx, ladderKey, "("+strconv.Itoa(p.Rating), "+inf").Result()
	if err != nil {
		return types.LadderEntry{}, fmt.Errorf("rank %d: %w", id, err)
	}
	return store.Entry(int(above)+1, p), nil
}

func (s *Store) Ladder(ctx context.Context, n int) ([]types.LadderEntry, error) {
	if n < 1 {
		return nil, store.ErrInvalidLimit
	}
	zs, err := s.client.ZRevRangeWithScores(ctx, ladderKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("ladder: %w", err)
	}
	// A full page may cut a run of equal scores; widen it to the whole run
	// so the re-sort below keeps the lowest ids.
	if len(zs) == n {
		edge := strconv.FormatFloat(zs[n-1].Score, 'f', -1, 64)
		through, err := s.client.ZCount(ctx, ladderKey, edge, "+inf").Result()
		if err != nil {
			return nil, fmt.Errorf("ladder edge: %w", err)
		}
		if through > int64(n) {
			if zs, err = s.client.ZRevRangeWithScores(ctx, ladderKey, 0, through-1).Result(); err != nil {
				return nil, fmt.Errorf("ladder: %w", err)
			}
		}
	}

	rows := make([]types.LadderEntry, 0, len(zs))
	for _, z := range zs {
		raw, _ := z.Member.(string)
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ladder member %q: %w", raw, err)
		}
		p, err := s.GetPlayer(ctx, id)
		if errors.Is(err, store.ErrPlayerNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, store.Entry(0, p))
	}
	// ZREVRANGE orders equal scores by member descending; the ladder wants id ascending.
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Rating != rows[j].Rating {
			return rows[i].Rating > rows[j].Rating
		}
		return rows[i].PlayerID < rows[j].PlayerID
	})
	if len(rows) > n {
		rows = rows[:n]
	}
	store.AssignRanks(rows)
	return rows, nil
}

func (s *Store) Close() error { return s.client.Close() }
