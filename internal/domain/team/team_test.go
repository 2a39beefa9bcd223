package team_test

import (
	"testing"

	"github.com/sbwgg/Checker-bot/internal/domain/model"
	"github.com/sbwgg/Checker-bot/internal/domain/team"
	. "github.com/smartystreets/goconvey/convey"
)

func players(ratings ...int) []model.Player {
	out := make([]model.Player, len(ratings))
	for i, r := range ratings {
		out[i] = model.Player{ID: uint64(i + 1), Name: "p", Rating: r}
	}
	return out
}

func sum(ps []model.Player) int {
	s := 0
	for _, p := range ps {
		s += p.Rating
	}
	return s
}

func TestNew(t *testing.T) {
	Convey("Given rosters", t, func() {
		Convey("The average of 1000, 1200, 1400 is 1200", func() {
			tm, err := team.New(players(1000, 1200, 1400), 77)
			So(err, ShouldBeNil)
			So(tm.AverageRating(), ShouldEqual, 1200)
			So(tm.VoiceChannelID(), ShouldEqual, 77)
			So(tm.Size(), ShouldEqual, 3)
		})

		Convey("The average truncates", func() {
			tm, err := team.New(players(1000, 1001), 0)
			So(err, ShouldBeNil)
			So(tm.AverageRating(), ShouldEqual, 1000)
		})

		Convey("An empty roster is invalid", func() {
			_, err := team.New(nil, 1)
			So(err, ShouldEqual, team.ErrInvalidRoster)
			So(func() { team.MustNew(nil, 1) }, ShouldPanic)
		})

		Convey("A duplicated player is invalid", func() {
			ps := players(1000, 1000)
			ps[1].ID = ps[0].ID
			_, err := team.New(ps, 1)
			So(err, ShouldEqual, team.ErrInvalidRoster)
		})

		Convey("The roster is frozen against caller mutation", func() {
			ps := players(1000, 2000)
			tm := team.MustNew(ps, 1)
			ps[0].Rating = 9999
			got := tm.Players()
			got[1].Rating = 0
			So(tm.Players()[0].Rating, ShouldEqual, 1000)
			So(tm.Players()[1].Rating, ShouldEqual, 2000)
			So(tm.AverageRating(), ShouldEqual, 1500)
		})

		Convey("Membership queries work", func() {
			tm := team.MustNew(players(1000, 2000), 1)
			So(tm.Has(2), ShouldBeTrue)
			So(tm.Has(3), ShouldBeFalse)
			So(tm.IDs(), ShouldResemble, []uint64{1, 2})
		})
	})
}

func TestBalance(t *testing.T) {
	Convey("Given a player pool", t, func() {
		Convey("An odd or tiny pool is rejected", func() {
			_, _, err := team.Balance(players(1000, 1000, 1000))
			So(err, ShouldEqual, team.ErrUnevenPool)
			_, _, err = team.Balance(players(1000))
			So(err, ShouldEqual, team.ErrUnevenPool)
		})

		Convey("A pool of two splits one each", func() {
			a, b, err := team.Balance(players(1000, 3000))
			So(err, ShouldBeNil)
			So(a, ShouldHaveLength, 1)
			So(b, ShouldHaveLength, 1)
			So(a[0].ID, ShouldEqual, 1)
		})

		Convey("A pool with a perfect split finds it", func() {
			a, b, err := team.Balance(players(3000, 1000, 2500, 1500, 2000, 2000))
			So(err, ShouldBeNil)
			So(a, ShouldHaveLength, 3)
			So(b, ShouldHaveLength, 3)
			So(sum(a), ShouldEqual, sum(b))
			So(a[0].ID, ShouldEqual, 1)
		})

		Convey("A ten-player pool minimizes the gap", func() {
			pool := players(4000, 3800, 3000, 2900, 2500, 2400, 2000, 1500, 1200, 1100)
			a, b, err := team.Balance(pool)
			So(err, ShouldBeNil)
			gap := sum(a) - sum(b)
			if gap < 0 {
				gap = -gap
			}
			So(gap, ShouldEqual, 0)
		})

		Convey("Large pools fall back to a snake draft", func() {
			ratings := make([]int, 20)
			for i := range ratings {
				ratings[i] = 1000 + i*100
			}
			a, b, err := team.Balance(players(ratings...))
			So(err, ShouldBeNil)
			So(a, ShouldHaveLength, 10)
			So(b, ShouldHaveLength, 10)
			So(a[0].Rating, ShouldEqual, 2900)
			So(b[0].Rating, ShouldEqual, 2800)
		})
	})
}
