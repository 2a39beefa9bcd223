package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/sbwgg/Checker-bot/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		convey.Reset(clearConfigEnvVars)

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.StoreBackend, convey.ShouldEqual, "memory")
				convey.So(len(cfg.MapPool), convey.ShouldEqual, 8)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("CHECKERS_ADDR", ":8080")
			_ = os.Setenv("CHECKERS_QUEUE_SIZE", "4096")
			_ = os.Setenv("CHECKERS_TEAM_SIZE", "3")
			_ = os.Setenv("CHECKERS_RATING_K_FACTOR", "40")
			_ = os.Setenv("CHECKERS_MAP_VOTE_WINDOW_MS", "30000")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 4096)
				convey.So(cfg.TeamSize, convey.ShouldEqual, 3)
				convey.So(cfg.RatingKFactor, convey.ShouldEqual, 40)
				convey.So(cfg.MapVoteWindow().Seconds(), convey.ShouldEqual, 30)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			tmpFile := createTempConfigFile(`
addr: ":9090"
store_backend: postgres
postgres_url: "postgres://checkers@localhost/checkers"
worker_count: 4
map_candidates: 2
map_pool:
  Hanamura: Assault
  Numbani: Hybrid
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("CHECKERS_CONFIG", tmpFile)
			_ = os.Setenv("CHECKERS_WORKER_COUNT", "8")

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values apply and env still wins", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.StoreBackend, convey.ShouldEqual, config.BackendPostgres)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 8)
				convey.So(cfg.QueueSize, convey.ShouldEqual, 1024)
			})

			convey.Convey("Then the file pool replaces the default pool", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(cfg.MapPool), convey.ShouldEqual, 2)
				maps, err := cfg.Maps()
				convey.So(err, convey.ShouldBeNil)
				convey.So(maps[0].Name, convey.ShouldEqual, "Hanamura")
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("CHECKERS_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("CHECKERS_CONFIG", "/non/existent/checkers.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an empty addr", func() {
			tmpFile := createTempConfigFile(`addr: ""`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("CHECKERS_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("CHECKERS_QUEUE_SIZE", "invalid")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When selecting a backend without its address", func() {
			_ = os.Setenv("CHECKERS_STORE_BACKEND", "redis")
			_ = os.Setenv("CHECKERS_REDIS_ADDR", "")
			tmpFile := createTempConfigFile(`redis_addr: ""`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("CHECKERS_CONFIG", tmpFile)

			_, err := config.Load(ctx)

			convey.Convey("Then validation rejects it", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"CHECKERS_CONFIG",
		"CHECKERS_ADDR",
		"CHECKERS_QUEUE_SIZE",
		"CHECKERS_WORKER_COUNT",
		"CHECKERS_TEAM_SIZE",
		"CHECKERS_RATING_K_FACTOR",
		"CHECKERS_MAP_VOTE_WINDOW_MS",
		"CHECKERS_STORE_BACKEND",
		"CHECKERS_REDIS_ADDR",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "checkers-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
