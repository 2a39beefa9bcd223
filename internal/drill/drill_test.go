package drill

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	service "github.com/sbwgg/Checker-bot/internal/app"
	"github.com/sbwgg/Checker-bot/internal/config"
	"github.com/sbwgg/Checker-bot/internal/domain/types"
	"github.com/sbwgg/Checker-bot/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func drillServer(ctx context.Context, candidates int) (*httptest.Server, *service.Service) {
	cfg := config.New()
	cfg.TeamSize = 2
	cfg.WorkerCount = 1
	cfg.MapCandidates = candidates
	svc := service.New(cfg, service.WithLogger(logger.Nop()))
	So(svc.Start(ctx), ShouldBeNil)
	h, err := svc.Handler()
	So(err, ShouldBeNil)
	return httptest.NewServer(h), svc
}

func TestRun(t *testing.T) {
	Convey("Given a live server", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		for _, candidates := range []int{0, 2} {
			Convey(fmt.Sprintf("With %d map candidates", candidates), func() {
				srv, svc := drillServer(ctx, candidates)
				Reset(func() {
					srv.Close()
					_ = svc.Stop(ctx)
				})

				stats, err := Run(ctx, &Config{
					BaseURL:       srv.URL,
					TeamSize:      2,
					FirstPlayerID: 100,
					ChannelBase:   5000,
					Rounds:        3,
					Workers:       8,
					Timeout:       5 * time.Second,
				})

				Convey("Every round settles exactly once", func() {
					So(err, ShouldBeNil)
					So(stats.Rounds, ShouldEqual, 3)
					So(stats.Applied, ShouldEqual, 3)
					So(stats.BallotsSent, ShouldEqual, 3*2*4)
					So(stats.BallotsAccepted+stats.BallotsRejected, ShouldEqual, stats.BallotsSent)
				})
			})
		}
	})

	Convey("Given no server", t, func() {
		srv := httptest.NewServer(nil)
		url := srv.URL
		srv.Close()

		_, err := Run(context.Background(), &Config{BaseURL: url, TeamSize: 1, Rounds: 1, Timeout: time.Second})
		So(err, ShouldNotBeNil)
	})
}

func TestVerifyRound(t *testing.T) {
	Convey("Given a 2v2 match view", t, func() {
		mv := types.MatchView{ID: "m", Teams: []types.TeamView{
			{Side: "A", Players: []types.PlayerView{{ID: 1}, {ID: 2}}},
			{Side: "B", Players: []types.PlayerView{{ID: 3}, {ID: 4}}},
		}}
		before := map[uint64]int{1: 2000, 2: 2000, 3: 2000, 4: 10}

		Convey("Winners up and losers down by one delta pass", func() {
			after := map[uint64]int{1: 2016, 2: 2016, 3: 1984, 4: 0}
			So(verifyRound(mv, "A", before, after), ShouldBeNil)
		})

		Convey("A doubled settlement fails", func() {
			after := map[uint64]int{1: 2032, 2: 2016, 3: 1968, 4: 0}
			So(verifyRound(mv, "A", before, after), ShouldNotBeNil)
		})

		Convey("A loser that gained fails", func() {
			after := map[uint64]int{1: 2016, 2: 2016, 3: 2001, 4: 0}
			So(verifyRound(mv, "A", before, after), ShouldNotBeNil)
		})

		Convey("No movement or no side fails", func() {
			So(verifyRound(mv, "A", before, before), ShouldNotBeNil)
			So(verifyRound(mv, "", before, before), ShouldNotBeNil)
		})
	})
}

func TestIsCode(t *testing.T) {
	Convey("IsCode matches API errors through wrapping", t, func() {
		err := fmt.Errorf("ballot: %w", &APIError{Status: 409, Code: "vote_closed"})
		So(IsCode(err, "match_resolved", "vote_closed"), ShouldBeTrue)
		So(IsCode(err, "not_in_match"), ShouldBeFalse)
		So(IsCode(errors.New("plain"), "vote_closed"), ShouldBeFalse)
	})
}
