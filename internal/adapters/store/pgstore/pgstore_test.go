package pgstore_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sbwgg/Checker-bot/internal/adapters/store"
	"github.com/sbwgg/Checker-bot/internal/adapters/store/pgstore"
	"github.com/sbwgg/Checker-bot/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeDB interprets the statements the store builds against an in-memory table.
type fakeDB struct {
	players map[int64]model.Player
	sql     []string
	fail    error
}

func newFakeDB() *fakeDB { return &fakeDB{players: map[int64]model.Player{}} }

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql = append(f.sql, sql)
	if f.fail != nil {
		return pgconn.CommandTag{}, f.fail
	}
	switch {
	case strings.HasPrefix(sql, "INSERT INTO players"):
		id := args[0].(int64)
		f.players[id] = model.Player{
			ID: uint64(id), Name: args[1].(string), Rating: args[2].(int),
			Active: args[3].(bool), Registered: args[4].(bool),
		}
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	case strings.HasPrefix(sql, "UPDATE players SET rating"):
		id := args[1].(int64)
		p, ok := f.players[id]
		if !ok {
			return pgconn.NewCommandTag("UPDATE 0"), nil
		}
		p.Rating = args[0].(int)
		f.players[id] = p
		return pgconn.NewCommandTag("UPDATE 1"), nil
	case strings.HasPrefix(sql, "UPDATE players SET active"):
		id := args[2].(int64)
		p, ok := f.players[id]
		if !ok {
			return pgconn.NewCommandTag("UPDATE 0"), nil
		}
		p.Active, p.Registered = args[0].(bool), args[1].(bool)
		f.players[id] = p
		return pgconn.NewCommandTag("UPDATE 1"), nil
	}
	return pgconn.CommandTag{}, fmt.Errorf("unexpected exec %q", sql)
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.sql = append(f.sql, sql)
	if f.fail != nil {
		return row{err: f.fail}
	}
	switch {
	case strings.HasPrefix(sql, "SELECT name, rating, active, registered FROM players WHERE id = $1"):
		p, ok := f.players[args[0].(int64)]
		if !ok {
			return row{err: pgx.ErrNoRows}
		}
		return row{vals: []any{p.Name, p.Rating, p.Active, p.Registered}}
	case strings.HasPrefix(sql, "SELECT count(*) FROM players WHERE rating > $1"):
		n := 0
		for _, p := range f.players {
			if p.Rating > args[0].(int) {
				n++
			}
		}
		return row{vals: []any{n}}
	}
	return row{err: fmt.Errorf("unexpected query %q", sql)}
}

func (f *fakeDB) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	f.sql = append(f.sql, sql)
	if f.fail != nil {
		return nil, f.fail
	}
	var limit int
	if _, err := fmt.Sscanf(sql[strings.LastIndex(sql, "LIMIT"):], "LIMIT %d", &limit); err != nil {
		return nil, err
	}
	ps := make([]model.Player, 0, len(f.players))
	for _, p := range f.players {
		ps = append(ps, p)
	}
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Rating != ps[j].Rating {
			return ps[i].Rating > ps[j].Rating
		}
		return ps[i].ID < ps[j].ID
	})
	if len(ps) > limit {
		ps = ps[:limit]
	}
	r := &rows{}
	for _, p := range ps {
		r.data = append(r.data, []any{int64(p.ID), p.Name, p.Rating})
	}
	return r, nil
}

type row struct {
	vals []any
	err  error
}

func (r row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(r.vals, dest)
}

func assign(vals, dest []any) error {
	if len(vals) != len(dest) {
		return fmt.Errorf("scan %d values into %d targets", len(vals), len(dest))
	}
	for i, d := range dest {
		switch t := d.(type) {
		case *string:
			*t = vals[i].(string)
		case *int:
			*t = vals[i].(int)
		case *int64:
			*t = vals[i].(int64)
		case *bool:
			*t = vals[i].(bool)
		default:
			return fmt.Errorf("unsupported scan target %T", d)
		}
	}
	return nil
}

type rows struct {
	data   [][]any
	pos    int
	closed bool
}

func (r *rows) Close()                                       { r.closed = true }
func (r *rows) Err() error                                   { return nil }
func (r *rows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *rows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *rows) Values() ([]any, error)                       { return r.data[r.pos-1], nil }
func (r *rows) RawValues() [][]byte                          { return nil }
func (r *rows) Conn() *pgx.Conn                              { return nil }

func (r *rows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *rows) Scan(dest ...any) error { return assign(r.data[r.pos-1], dest) }

func TestPgStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given a postgres backed store", t, func() {
		db := newFakeDB()
		s := pgstore.New(db)

		So(s.SavePlayer(ctx, model.Player{ID: 1, Name: "ana", Rating: 1800, Registered: true}), ShouldBeNil)
		So(s.SavePlayer(ctx, model.Player{ID: 2, Name: "bo", Rating: 2200}), ShouldBeNil)

		Convey("Saves are upserts with dollar placeholders", func() {
			So(db.sql[0], ShouldStartWith, "INSERT INTO players (id,name,rating,active,registered) VALUES ($1,$2,$3,$4,$5)")
			So(db.sql[0], ShouldContainSubstring, "ON CONFLICT (id) DO UPDATE")
		})

		Convey("Players are read back", func() {
			p, err := s.GetPlayer(ctx, 1)
			So(err, ShouldBeNil)
			So(p, ShouldResemble, model.Player{ID: 1, Name: "ana", Rating: 1800, Registered: true})

			_, err = s.GetPlayer(ctx, 3)
			So(err, ShouldEqual, store.ErrPlayerNotFound)
		})

		Convey("Updates report unknown players", func() {
			So(s.UpdateRating(ctx, 1, 2300), ShouldBeNil)
			p, _ := s.GetPlayer(ctx, 1)
			So(p.Rating, ShouldEqual, 2300)

			So(s.UpdateFlags(ctx, 2, true, true), ShouldBeNil)
			p, _ = s.GetPlayer(ctx, 2)
			So(p.Active, ShouldBeTrue)

			So(s.UpdateRating(ctx, 3, 1), ShouldEqual, store.ErrPlayerNotFound)
			So(s.UpdateFlags(ctx, 3, true, false), ShouldEqual, store.ErrPlayerNotFound)
		})

		Convey("Rank counts strictly higher ratings", func() {
			e, err := s.Rank(ctx, 1)
			So(err, ShouldBeNil)
			So(e.Rank, ShouldEqual, 2)
			So(e.Tier, ShouldEqual, "Silver")
		})

		Convey("The ladder is ordered and limited", func() {
			rows, err := s.Ladder(ctx, 1)
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 1)
			So(rows[0].PlayerID, ShouldEqual, 2)
			So(rows[0].Rank, ShouldEqual, 1)
			So(db.sql[len(db.sql)-1], ShouldEndWith, "ORDER BY rating DESC, id ASC LIMIT 1")

			_, err = s.Ladder(ctx, -1)
			So(err, ShouldEqual, store.ErrInvalidLimit)
		})

		Convey("Driver failures are wrapped", func() {
			boom := errors.New("conn closed")
			db.fail = boom
			So(errors.Is(s.UpdateRating(ctx, 1, 1), boom), ShouldBeTrue)
			_, err := s.Ladder(ctx, 5)
			So(errors.Is(err, boom), ShouldBeTrue)
			_, err = s.GetPlayer(ctx, 1)
			So(errors.Is(err, boom), ShouldBeTrue)
		})

		Convey("Close is safe on a wrapped connection", func() {
			So(s.Close(), ShouldBeNil)
		})
	})
}
