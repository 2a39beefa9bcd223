// Package pgstore keeps players in a Postgres table:
//
//	players(id BIGINT PRIMARY KEY, name TEXT, rating INT, active BOOL, registered BOOL)
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sbwgg/Checker-bot/internal/adapters/store"
	"github.com/sbwgg/Checker-bot/internal/domain/model"
	"github.com/sbwgg/Checker-bot/internal/domain/types"
)

const table = "players"

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Store implements store.Store on Postgres.
type Store struct {
	db    DB
	close func()
}

var _ store.Store = (*Store)(nil)

// New wraps an existing pool or connection.
func New(db DB) *Store {
	return &Store{db: db, close: func() {}}
}

// Connect opens a pool on url, retrying the first ping until ctx expires.
func Connect(ctx context.Context, url string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	cfg.MaxConns = 10

	for {
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return &Store{db: pool, close: pool.Close}, nil
			}
			pool.Close()
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("connect postgres: %w", errors.Join(err, ctx.Err()))
		case <-time.After(time.Second):
		}
	}
}

func (s *Store) exec(ctx context.Context, q sq.Sqlizer) (pgconn.CommandTag, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	return s.db.Exec(ctx, sql, args...)
}

func (s *Store) row(ctx context.Context, q sq.SelectBuilder) (pgx.Row, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	return s.db.QueryRow(ctx, sql, args...), nil
}

func (s *Store) GetPlayer(ctx context.Context, id uint64) (model.Player, error) {
	row, err := s.row(ctx, psql.Select("name", "rating", "active", "registered").From(table).Where(sq.Eq{"id": int64(id)}))
	if err != nil {
		return model.Player{}, err
	}
	p := model.Player{ID: id}
	if err := row.Scan(&p.Name, &p.Rating, &p.Active, &p.Registered); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Player{}, store.ErrPlayerNotFound
		}
		return model.Player{}, fmt.Errorf("get player %d: %w", id, err)
	}
	return p, nil
}

func (s *Store) SavePlayer(ctx context.Context, p model.Player) error {
	if err := store.ValidatePlayer(p); err != nil {
		return err
	}
	q := psql.Insert(table).
		Columns("id", "name", "rating", "active", "registered").
		Values(int64(p.ID), p.Name, p.Rating, p.Active, p.Registered).
		Suffix("ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, rating = EXCLUDED.rating, " +
			"active = EXCLUDED.active, registered = EXCLUDED.registered")
	if _, err := s.exec(ctx, q); err != nil {
		return fmt.Errorf("save player %d: %w", p.ID, err)
	}
	return nil
}

func (s *Store) update(ctx context.Context, id uint64, set map[string]any) error {
	tag, err := s.exec(ctx, psql.Update(table).SetMap(set).Where(sq.Eq{"id": int64(id)}))
	if err != nil {
		return fmt.Errorf("update player %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrPlayerNotFound
	}
	return nil
}

func (s *Store) UpdateRating(ctx context.Context, id uint64, rating int) error {
	return s.update(ctx, id, map[string]any{"rating": rating})
}

func (s *Store) UpdateFlags(ctx context.Context, id uint64, active, registered bool) error {
	return s.update(ctx, id, map[string]any{"active": active, "registered": registered})
}

func (s *Store) Rank(ctx context.Context, id uint64) (types.LadderEntry, error) {
	p, err := s.GetPlayer(ctx, id)
	if err != nil {
		return types.LadderEntry{}, err
	}
	row, err := s.row(ctx, psql.Select("count(*)").From(table).Where(sq.Gt{"rating": p.Rating}))
	if err != nil {
		return types.LadderEntry{}, err
	}
	var above int
	if err := row.Scan(&above); err != nil {
		return types.LadderEntry{}, fmt.Errorf("rank %d: %w", id, err)
	}
	return store.Entry(above+1, p), nil
}

func (s *Store) Ladder(ctx context.Context, n int) ([]types.LadderEntry, error) {
	if n < 1 {
		return nil, store.ErrInvalidLimit
	}
	sql, args, err := psql.Select("id", "name", "rating").From(table).
		OrderBy("rating DESC", "id ASC").Limit(uint64(n)).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("ladder: %w", err)
	}
	defer rows.Close()

	out := make([]types.LadderEntry, 0, n)
	for rows.Next() {
		var (
			id int64
			p  model.Player
		)
		if err := rows.Scan(&id, &p.Name, &p.Rating); err != nil {
			return nil, fmt.Errorf("ladder scan: %w", err)
		}
		p.ID = uint64(id)
		out = append(out, store.Entry(0, p))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ladder rows: %w", err)
	}
	store.AssignRanks(out)
	return out, nil
}

func (s *Store) Close() error {
	s.close()
	return nil
}
