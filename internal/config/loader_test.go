package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/okian/teamalloc/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

var configEnv = []string{
	config.EnvFile,
	"TEAMALLOC_ADDR",
	"TEAMALLOC_QUEUE_SIZE",
	"TEAMALLOC_WORKER_COUNT",
	"TEAMALLOC_DEDUPE_WINDOW",
	"TEAMALLOC_STORE",
	"TEAMALLOC_POSTGRES_DSN",
	"TEAMALLOC_KAFKA_BROKERS",
	"TEAMALLOC_WEIGHT_CONTEST",
	"TEAMALLOC_LOG_LEVEL",
	"TEAMALLOC_MAIL_HOST",
}

func setEnv(t *testing.T, kv map[string]string) {
	for _, k := range configEnv {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "teamalloc.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConfig_New(t *testing.T) {
	convey.Convey("Given the default config", t, func() {
		cfg := config.New()

		convey.Convey("Then it has sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1024)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.Store, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.Weights().Contest, convey.ShouldEqual, 5.0)
			convey.So(config.Validate(cfg), convey.ShouldBeNil)
		})
	})
}

func TestConfigLoader(t *testing.T) {
	ctx := context.Background()

	convey.Convey("When loading with defaults only", t, func() {
		setEnv(t, nil)
		cfg, err := config.Load(ctx)

		convey.So(err, convey.ShouldBeNil)
		convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
		convey.So(cfg.KafkaBrokers, convey.ShouldBeEmpty)
		convey.So(cfg.Schedules, convey.ShouldBeEmpty)
	})

	convey.Convey("When loading with environment variables", t, func() {
		setEnv(t, map[string]string{
			"TEAMALLOC_ADDR":           ":8080",
			"TEAMALLOC_QUEUE_SIZE":     "64",
			"TEAMALLOC_WORKER_COUNT":   "3",
			"TEAMALLOC_DEDUPE_WINDOW":  "90m",
			"TEAMALLOC_KAFKA_BROKERS":  "k1:9092, k2:9092",
			"TEAMALLOC_WEIGHT_CONTEST": "2.5",
		})
		cfg, err := config.Load(ctx)

		convey.So(err, convey.ShouldBeNil)
		convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
		convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
		convey.So(cfg.WorkerCount, convey.ShouldEqual, 3)
		convey.So(cfg.DedupeWindow, convey.ShouldEqual, 90*time.Minute)
		convey.So(cfg.KafkaBrokers, convey.ShouldResemble, []string{"k1:9092", "k2:9092"})
		convey.So(cfg.WeightContest, convey.ShouldEqual, 2.5)
	})

	convey.Convey("When loading a YAML file", t, func() {
		path := writeConfig(t, `
addr: ":9090"
worker_count: 6
store: sqlite
sqlite_path: /tmp/teams.db
schedules:
  - contest_id: icpc-2026
    early_bird: "2026-09-01T12:00:00Z"
    final: "2026-09-15T12:00:00Z"
`)
		setEnv(t, map[string]string{config.EnvFile: path, "TEAMALLOC_WORKER_COUNT": "2"})
		cfg, err := config.Load(ctx)

		convey.So(err, convey.ShouldBeNil)
		convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
		convey.So(cfg.Store, convey.ShouldEqual, config.StoreSQLite)

		convey.Convey("Then env overrides the file", func() {
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 2)
		})

		convey.Convey("Then schedules parse", func() {
			convey.So(cfg.Schedules, convey.ShouldHaveLength, 1)
			early, final, err := cfg.Schedules[0].Times()
			convey.So(err, convey.ShouldBeNil)
			convey.So(early, convey.ShouldEqual, time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC))
			convey.So(final.Sub(early), convey.ShouldEqual, 14*24*time.Hour)
		})
	})

	convey.Convey("When the config file is missing", t, func() {
		setEnv(t, map[string]string{config.EnvFile: filepath.Join(t.TempDir(), "absent.yaml")})
		_, err := config.Load(ctx)

		convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
	})

	convey.Convey("When values are invalid", t, func() {
		cases := []struct {
			name string
			env  map[string]string
		}{
			{"an unknown store", map[string]string{"TEAMALLOC_STORE": "redis"}},
			{"postgres without a dsn", map[string]string{"TEAMALLOC_STORE": "postgres"}},
			{"zero workers", map[string]string{"TEAMALLOC_WORKER_COUNT": "0"}},
			{"a bad log level", map[string]string{"TEAMALLOC_LOG_LEVEL": "loud"}},
			{"mail without a sender", map[string]string{"TEAMALLOC_MAIL_HOST": "smtp.example.org"}},
		}
		for _, tc := range cases {
			convey.Convey("Then "+tc.name+" is rejected", func() {
				setEnv(t, tc.env)
				_, err := config.Load(ctx)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})

	convey.Convey("When a schedule has a malformed time", t, func() {
		path := writeConfig(t, `
schedules:
  - contest_id: c1
    final: "next tuesday"
`)
		setEnv(t, map[string]string{config.EnvFile: path})
		_, err := config.Load(ctx)

		convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
	})
}
