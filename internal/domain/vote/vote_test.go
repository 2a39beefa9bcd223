package vote_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/sbwgg/Checker-bot/internal/domain/model"
	"github.com/sbwgg/Checker-bot/internal/domain/vote"
	. "github.com/smartystreets/goconvey/convey"
)

func voters(n int) []uint64 {
	ids := make([]uint64, n)
	for i := range ids {
		ids[i] = uint64(i + 1)
	}
	return ids
}

func TestNew(t *testing.T) {
	Convey("Given vote construction", t, func() {
		Convey("Required votes is a majority of the eligible voters", func() {
			v, err := vote.New(vote.KindEndMatch, "m1", voters(10))
			So(err, ShouldBeNil)
			So(v.RequiredVotes(), ShouldEqual, 6)
			So(v.State(), ShouldEqual, vote.StateOpen)
			So(v.Title(), ShouldEqual, "End Match")

			v, _ = vote.New(vote.KindForfeit, "m1", voters(5))
			So(v.RequiredVotes(), ShouldEqual, 3)
		})

		Convey("Duplicated voters count once", func() {
			v, err := vote.New(vote.KindDisconnect, "m1", []uint64{1, 1, 2})
			So(err, ShouldBeNil)
			So(v.RequiredVotes(), ShouldEqual, 2)
		})

		Convey("An empty population is rejected", func() {
			_, err := vote.New(vote.KindEndMatch, "m1", nil)
			So(err, ShouldEqual, vote.ErrNoVoters)
		})

		Convey("An unknown kind is rejected", func() {
			_, err := vote.New(vote.KindUnknown, "m1", voters(2))
			So(err, ShouldEqual, vote.ErrUnknownKind)
		})

		Convey("Options are applied", func() {
			v, _ := vote.New(vote.KindEndMatch, "m1", voters(2),
				vote.WithProposal("A wins"),
				vote.WithProposedBy(2),
				vote.WithSubject(model.SideA),
			)
			So(v.Proposal(), ShouldEqual, "A wins")
			So(v.ProposedBy(), ShouldEqual, 2)
			So(v.Subject(), ShouldEqual, model.SideA)
			So(v.MatchID(), ShouldEqual, "m1")
		})

		Convey("Ids are unique", func() {
			a, _ := vote.New(vote.KindEndMatch, "m1", voters(2))
			b, _ := vote.New(vote.KindEndMatch, "m1", voters(2))
			So(a.ID(), ShouldNotEqual, b.ID())
		})

		Convey("Map votes are titled after their map", func() {
			v, _ := vote.New(vote.KindMapPick, "m1", voters(2),
				vote.WithMap(model.GameMap{Name: "Numbani", Type: model.MapHybrid}))
			So(v.Title(), ShouldEqual, "Numbani (Hybrid)")
			So(v.RequiredVotes(), ShouldEqual, 0)
		})
	})
}

func TestCast(t *testing.T) {
	Convey("Given an open end match vote among ten players", t, func() {
		v, _ := vote.New(vote.KindEndMatch, "m1", voters(10))

		Convey("Only the k-th distinct for cast reports resolution", func() {
			for id := uint64(1); id <= 5; id++ {
				resolved, err := v.CastFor(id)
				So(err, ShouldBeNil)
				So(resolved, ShouldBeFalse)
			}
			resolved, err := v.CastFor(6)
			So(err, ShouldBeNil)
			So(resolved, ShouldBeTrue)
			So(v.State(), ShouldEqual, vote.StatePassed)

			Convey("And casts after resolution change nothing", func() {
				resolved, err := v.CastFor(7)
				So(err, ShouldEqual, vote.ErrVoteClosed)
				So(resolved, ShouldBeFalse)
				So(v.Tally().Total, ShouldEqual, 6)
				So(v.HasVoted(7), ShouldBeFalse)
			})
		})

		Convey("A repeated ballot is a no-op", func() {
			_, _ = v.CastFor(1)
			So(v.HasVoted(1), ShouldBeTrue)

			resolved, err := v.CastFor(1)
			So(err, ShouldBeNil)
			So(resolved, ShouldBeFalse)
			resolved, err = v.CastAgainst(1)
			So(err, ShouldBeNil)
			So(resolved, ShouldBeFalse)

			tally := v.Tally()
			So(tally.For, ShouldEqual, 1)
			So(tally.Against, ShouldEqual, 0)
			So(tally.Total, ShouldEqual, 1)
			So(v.HasVoted(1), ShouldBeTrue)
		})

		Convey("The against threshold fails the vote independently", func() {
			for id := uint64(1); id <= 4; id++ {
				_, _ = v.CastFor(id)
			}
			var last bool
			for id := uint64(5); id <= 10; id++ {
				last, _ = v.CastAgainst(id)
			}
			So(last, ShouldBeTrue)
			So(v.State(), ShouldEqual, vote.StateFailed)

			tally := v.Tally()
			So(tally.For, ShouldEqual, 4)
			So(tally.Against, ShouldEqual, 6)
			So(tally.Required, ShouldEqual, 6)
		})

		Convey("A player outside the population cannot cast", func() {
			_, err := v.CastFor(99)
			So(err, ShouldEqual, vote.ErrNotEligible)
			So(v.IsEligible(99), ShouldBeFalse)
			So(v.IsEligible(1), ShouldBeTrue)
		})

		Convey("Ballots cannot be removed", func() {
			_, _ = v.CastFor(1)
			_, err := v.RemoveVote(1)
			So(err, ShouldEqual, vote.ErrBallotImmutable)
			So(v.HasVoted(1), ShouldBeTrue)
		})
	})
}

func TestConcurrentCast(t *testing.T) {
	Convey("Given a vote hammered by concurrent ballots", t, func() {
		const n = 64
		v, _ := vote.New(vote.KindForfeit, "m1", voters(n))

		var resolutions atomic.Int32
		var wg sync.WaitGroup
		for id := uint64(1); id <= n; id++ {
			for repeat := 0; repeat < 3; repeat++ {
				wg.Add(1)
				go func(id uint64) {
					defer wg.Done()
					if ok, _ := v.CastFor(id); ok {
						resolutions.Add(1)
					}
				}(id)
			}
		}
		wg.Wait()

		Convey("Exactly one caller observes the resolution", func() {
			So(resolutions.Load(), ShouldEqual, 1)
			So(v.State(), ShouldEqual, vote.StatePassed)
			So(v.Tally().Total, ShouldEqual, v.RequiredVotes())
		})
	})
}

func TestMapPick(t *testing.T) {
	Convey("Given sibling map votes", t, func() {
		a, _ := vote.New(vote.KindMapPick, "m1", voters(6), vote.WithMap(model.GameMap{Name: "Ilios", Type: model.MapControl}))
		b, _ := vote.New(vote.KindMapPick, "m1", voters(6), vote.WithMap(model.GameMap{Name: "Dorado", Type: model.MapEscort}))

		for _, id := range []uint64{1, 2, 3} {
			resolved, err := a.CastFor(id)
			So(err, ShouldBeNil)
			So(resolved, ShouldBeFalse)
		}
		for _, id := range []uint64{4, 5} {
			_, _ = b.CastFor(id)
		}

		Convey("Tallies accumulate without resolving", func() {
			So(a.Count(), ShouldEqual, 3)
			So(b.Count(), ShouldEqual, 2)
			So(a.State(), ShouldEqual, vote.StateOpen)
		})

		Convey("Against ballots are unsupported", func() {
			_, err := a.CastAgainst(6)
			So(err, ShouldEqual, vote.ErrUnsupportedBallot)
		})

		Convey("Removing a ballot adjusts the tally", func() {
			removed, err := a.RemoveVote(1)
			So(err, ShouldBeNil)
			So(removed, ShouldBeTrue)
			So(a.Count(), ShouldEqual, 2)
			So(a.Tally().Total, ShouldEqual, 2)
			So(a.HasVoted(1), ShouldBeFalse)

			removed, err = a.RemoveVote(1)
			So(err, ShouldBeNil)
			So(removed, ShouldBeFalse)
		})

		Convey("Closing is one shot", func() {
			So(a.Close(true), ShouldBeTrue)
			So(a.Close(false), ShouldBeFalse)
			So(a.State(), ShouldEqual, vote.StatePassed)

			_, err := a.CastFor(6)
			So(err, ShouldEqual, vote.ErrVoteClosed)
			_, err = a.RemoveVote(2)
			So(err, ShouldEqual, vote.ErrVoteClosed)
		})
	})
}

func TestKind(t *testing.T) {
	Convey("Kinds round trip through their wire names", t, func() {
		for _, k := range []vote.Kind{vote.KindEndMatch, vote.KindForfeit, vote.KindDisconnect, vote.KindMapPick} {
			got, err := vote.ParseKind(k.String())
			So(err, ShouldBeNil)
			So(got, ShouldEqual, k)
		}
		_, err := vote.ParseKind("surrender")
		So(err, ShouldEqual, vote.ErrUnknownKind)

		So(vote.KindForfeit.Terminating(), ShouldBeTrue)
		So(vote.KindMapPick.Terminating(), ShouldBeFalse)
		So(vote.StateFailed.Terminal(), ShouldBeTrue)
		So(vote.StateOpen.Terminal(), ShouldBeFalse)
	})
}
