package service_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sbwgg/Checker-bot/internal/adapters/store/memory"
	service "github.com/sbwgg/Checker-bot/internal/app"
	"github.com/sbwgg/Checker-bot/internal/domain/model"
	"github.com/sbwgg/Checker-bot/internal/domain/types"
	"github.com/sbwgg/Checker-bot/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func call(h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a started service with a recording gateway", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		st := memory.New()
		gw := &recordingGateway{}
		svc := service.New(testConfig(),
			service.WithLogger(logger.Nop()),
			service.WithStore(st),
			service.WithGateway(gw),
		)
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() { _ = svc.Stop(ctx) })

		h, err := svc.Handler()
		So(err, ShouldBeNil)

		for id := 1; id <= 4; id++ {
			So(call(h, http.MethodPost, "/players", map[string]any{"id": id, "name": "p"}).Code, ShouldEqual, http.StatusCreated)
		}

		Convey("When a pooled match is played to an end-match vote", func() {
			rec := call(h, http.MethodPost, "/matches", map[string]any{"pool": []int{1, 2, 3, 4}})
			So(rec.Code, ShouldEqual, http.StatusCreated)
			var mv types.MatchView
			So(json.Unmarshal(rec.Body.Bytes(), &mv), ShouldBeNil)
			So(call(h, http.MethodPost, "/matches/"+mv.ID+"/start", nil).Code, ShouldEqual, http.StatusOK)

			// Player 1 is always on side A after balancing.
			rec = call(h, http.MethodPost, "/matches/"+mv.ID+"/votes",
				map[string]any{"channel_id": 100, "kind": "end_match", "proposed_by": 1, "subject": "A"})
			So(rec.Code, ShouldEqual, http.StatusCreated)

			var wg sync.WaitGroup
			applied := make(chan bool, 4)
			for id := 1; id <= 4; id++ {
				wg.Add(1)
				go func(id int) {
					defer wg.Done()
					r := call(h, http.MethodPost, "/ballots", map[string]any{"player_id": id, "channel_id": 100, "choice": "for"})
					var b struct {
						Applied bool `json:"applied"`
					}
					_ = json.Unmarshal(r.Body.Bytes(), &b)
					applied <- r.Code == http.StatusOK && b.Applied
				}(id)
			}
			wg.Wait()
			close(applied)

			n := 0
			for a := range applied {
				if a {
					n++
				}
			}

			Convey("Then the match resolves once and ratings move by one delta", func() {
				So(n, ShouldEqual, 1)
				for id := uint64(1); id <= 4; id++ {
					p, err := st.GetPlayer(ctx, id)
					So(err, ShouldBeNil)
					if mvHas(mv, model.SideA, id) {
						So(p.Rating, ShouldEqual, 2016)
					} else {
						So(p.Rating, ShouldEqual, 1984)
					}
				}
				So(call(h, http.MethodGet, "/players/1/match", nil).Code, ShouldEqual, http.StatusNotFound)
			})

			Convey("Then stopping drains every notice and flag write", func() {
				So(svc.Stop(ctx), ShouldBeNil)
				So(gw.count(model.NoticeVotePassed), ShouldEqual, 1)
				So(gw.count(model.NoticeMatchResolved), ShouldEqual, 1)
				So(gw.count(model.NoticeChannelRestored), ShouldEqual, 1)
				for id := uint64(1); id <= 4; id++ {
					p, err := st.GetPlayer(ctx, id)
					So(err, ShouldBeNil)
					So(p.Active, ShouldBeFalse)
				}
			})
		})

		Convey("When the service is stopped", func() {
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then the old handler answers 503 for match operations", func() {
				rec := call(h, http.MethodPost, "/matches", map[string]any{"pool": []int{1, 2, 3, 4}})
				So(rec.Code, ShouldEqual, http.StatusServiceUnavailable)
			})
		})
	})
}

func mvHas(mv types.MatchView, side model.Side, id uint64) bool { //nolint:gocritic // hugeParam: test helper
	for _, t := range mv.Teams {
		if t.Side != side.String() {
			continue
		}
		for _, p := range t.Players {
			if p.ID == id {
				return true
			}
		}
	}
	return false
}
