package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sbwgg/Checker-bot/internal/adapters/store/memory"
	service "github.com/sbwgg/Checker-bot/internal/app"
	"github.com/sbwgg/Checker-bot/internal/config"
	"github.com/sbwgg/Checker-bot/internal/domain/model"
	"github.com/sbwgg/Checker-bot/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type recordingGateway struct {
	mu      sync.Mutex
	notices []model.Notice
}

func (g *recordingGateway) Deliver(_ context.Context, n model.Notice) error { //nolint:gocritic // hugeParam: mirrors Gateway
	g.mu.Lock()
	g.notices = append(g.notices, n)
	g.mu.Unlock()
	return nil
}

func (g *recordingGateway) count(kind model.NoticeKind) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, x := range g.notices {
		if x.Kind == kind {
			n++
		}
	}
	return n
}

func testConfig() *config.Config {
	cfg := config.New()
	cfg.TeamSize = 2
	cfg.WorkerCount = 1
	cfg.QueueSize = 256
	cfg.MapCandidates = 0
	return cfg
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New(nil, service.WithLogger(logger.Nop()))

		Convey("Then it is not started", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.GetStats(context.Background())
			So(stats["started"], ShouldEqual, false)
			So(stats["store"], ShouldEqual, config.BackendMemory)
		})

		Convey("Then its accessors fail until Start", func() {
			_, err := svc.Handler()
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.Manager()
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.Store()
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("Then Stop before Start is a no-op", func() {
			So(svc.Stop(context.Background()), ShouldBeNil)
		})
	})
}

func TestService_Start(t *testing.T) {
	Convey("Given a service over a memory store", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		svc := service.New(testConfig(),
			service.WithLogger(logger.Nop()),
			service.WithGateway(&recordingGateway{}),
		)

		Convey("When starting the service", func() {
			err := svc.Start(ctx)
			Reset(func() { _ = svc.Stop(ctx) })

			Convey("Then it starts and reports its components", func() {
				So(err, ShouldBeNil)
				stats := svc.GetStats(ctx)
				So(stats["started"], ShouldEqual, true)
				So(stats["workerCount"], ShouldEqual, 1)
				So(stats["activeMatches"], ShouldEqual, 0)
				So(stats["queueLength"], ShouldEqual, 0)

				h, err := svc.Handler()
				So(err, ShouldBeNil)
				So(h, ShouldNotBeNil)
			})

			Convey("Then starting again is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})

			Convey("Then stopping marks it stopped", func() {
				So(svc.Stop(ctx), ShouldBeNil)
				So(svc.GetStats(ctx)["started"], ShouldEqual, false)
				_, err := svc.Manager()
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})
	})

	Convey("Given configurations that cannot start", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		Convey("An unknown map type fails Start", func() {
			cfg := testConfig()
			cfg.MapPool = map[string]string{"Nowhere": "racing"}
			svc := service.New(cfg, service.WithLogger(logger.Nop()))
			So(svc.Start(ctx), ShouldNotBeNil)
			So(svc.GetStats(ctx)["started"], ShouldEqual, false)
		})

		Convey("An unparsable postgres url fails Start", func() {
			cfg := testConfig()
			cfg.StoreBackend = config.BackendPostgres
			cfg.PostgresURL = "postgres://%zz"
			svc := service.New(cfg, service.WithLogger(logger.Nop()))
			So(svc.Start(ctx), ShouldNotBeNil)
		})

		Convey("A malformed webhook url fails Start and closes the store", func() {
			cfg := testConfig()
			cfg.WebhookURL = "://nope"
			st := memory.New()
			svc := service.New(cfg, service.WithLogger(logger.Nop()), service.WithStore(st))
			So(svc.Start(ctx), ShouldNotBeNil)
			So(svc.GetStats(ctx)["started"], ShouldEqual, false)
		})
	})
}
