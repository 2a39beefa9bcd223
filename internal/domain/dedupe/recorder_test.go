package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/sbwgg/Checker-bot/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRecorder(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new recorder", t, func() {
		r := dedupe.NewRecorder()
		So(r.Size(), ShouldEqual, 0)

		Convey("The first claim wins", func() {
			So(r.Claim(ctx, "match-1"), ShouldBeTrue)
			So(r.Claim(ctx, "match-1"), ShouldBeFalse)
			So(r.Claimed(ctx, "match-1"), ShouldBeTrue)
			So(r.Size(), ShouldEqual, 1)
		})

		Convey("A released id can be claimed again", func() {
			r.Claim(ctx, "match-1")
			r.Release(ctx, "match-1")
			So(r.Size(), ShouldEqual, 0)
			So(r.Claimed(ctx, "match-1"), ShouldBeFalse)
			So(r.Claim(ctx, "match-1"), ShouldBeTrue)
		})

		Convey("Releasing an unknown id is harmless", func() {
			r.Release(ctx, "nope")
			So(r.Size(), ShouldEqual, 0)
		})
	})

	Convey("Given a bounded recorder", t, func() {
		r := dedupe.NewRecorder(dedupe.WithMaxSize(3))
		for i := 1; i <= 4; i++ {
			So(r.Claim(ctx, fmt.Sprintf("match-%d", i)), ShouldBeTrue)
		}

		Convey("The oldest claim is evicted", func() {
			So(r.Size(), ShouldEqual, 3)
			So(r.Claimed(ctx, "match-1"), ShouldBeFalse)
			So(r.Claimed(ctx, "match-2"), ShouldBeTrue)
			So(r.Claimed(ctx, "match-4"), ShouldBeTrue)
		})
	})

	Convey("Given an unbounded recorder", t, func() {
		r := dedupe.NewRecorder(dedupe.WithMaxSize(0))
		for i := 0; i < 1000; i++ {
			r.Claim(ctx, fmt.Sprintf("match-%d", i))
		}
		So(r.Size(), ShouldEqual, 1000)
		So(r.Claimed(ctx, "match-0"), ShouldBeTrue)
	})
}

func TestRecorderConcurrency(t *testing.T) {
	Convey("Given many goroutines racing for the same match", t, func() {
		r := dedupe.NewRecorder()
		var winners atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if r.Claim(context.Background(), "match-1") {
					winners.Add(1)
				}
			}()
		}
		wg.Wait()

		So(winners.Load(), ShouldEqual, 1)
		So(r.Size(), ShouldEqual, 1)
	})
}
