// Package config defines service configuration and how it is loaded.
package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/okian/teamalloc/internal/domain/scoring"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// QueueSize bounds the in-memory allocation job queue.
	QueueSize int `koanf:"queue_size" validate:"min=1"`

	// WorkerCount sets the number of allocation workers.
	WorkerCount int `koanf:"worker_count" validate:"min=1"`

	// DedupeSize bounds the remembered trigger keys; DedupeWindow expires
	// them (zero keeps them until evicted).
	DedupeSize   int           `koanf:"dedupe_size" validate:"min=1"`
	DedupeWindow time.Duration `koanf:"dedupe_window" validate:"min=0"`

	// RunConcurrency bounds universities allocated at once by a sync run.
	RunConcurrency int `koanf:"run_concurrency" validate:"min=1"`

	// Store selects the roster backend.
	Store         string `koanf:"store" validate:"oneof=memory postgres sqlite"`
	PostgresDSN   string `koanf:"postgres_dsn" validate:"required_if=Store postgres"`
	SQLitePath    string `koanf:"sqlite_path" validate:"required_if=Store sqlite"`
	MigrationsDir string `koanf:"migrations_dir"`

	// Score weights.
	WeightContest float64 `koanf:"weight_contest" validate:"min=0"`
	WeightRating1 float64 `koanf:"weight_rating1" validate:"min=0"`
	WeightRating2 float64 `koanf:"weight_rating2" validate:"min=0"`
	WeightCourse  float64 `koanf:"weight_course" validate:"min=0"`

	// TriggerRatePerSec and TriggerBurst limit POST allocation triggers.
	TriggerRatePerSec float64 `koanf:"trigger_rate_per_sec" validate:"gt=0"`
	TriggerBurst      int     `koanf:"trigger_burst" validate:"min=1"`

	// Kafka publishing is disabled without brokers.
	KafkaBrokers []string `koanf:"kafka_brokers"`
	KafkaTopic   string   `koanf:"kafka_topic" validate:"required_with=KafkaBrokers"`

	// Mail notification is disabled without a host.
	MailHost         string `koanf:"mail_host"`
	MailPort         int    `koanf:"mail_port" validate:"min=0,max=65535"`
	MailUsername     string `koanf:"mail_username"`
	MailPassword     string `koanf:"mail_password"`
	MailFrom         string `koanf:"mail_from" validate:"required_with=MailHost,omitempty,email"`
	CoordinatorEmail string `koanf:"coordinator_email" validate:"required_with=MailHost,omitempty,email"`

	// Schedules fire early-bird and final triggers per contest.
	Schedules []Schedule `koanf:"schedules" validate:"dive"`
}

// Schedule holds RFC 3339 trigger times for one contest.
type Schedule struct {
	ContestID string `koanf:"contest_id" validate:"required"`
	EarlyBird string `koanf:"early_bird" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Final     string `koanf:"final" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
}

// Times parses the schedule. A missing early-bird time yields the zero time.
func (s Schedule) Times() (earlyBird, final time.Time, err error) {
	if s.EarlyBird != "" {
		if earlyBird, err = time.Parse(time.RFC3339, s.EarlyBird); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: early_bird: %v", ErrInvalidConfig, err)
		}
	}
	if final, err = time.Parse(time.RFC3339, s.Final); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: final: %v", ErrInvalidConfig, err)
	}
	return earlyBird, final, nil
}

// Weights returns the configured score weights.
func (c *Config) Weights() scoring.Weights {
	return scoring.Weights{
		Contest: c.WeightContest,
		Rating1: c.WeightRating1,
		Rating2: c.WeightRating2,
		Course:  c.WeightCourse,
	}
}

// New returns a Config holding the defaults.
func New() *Config {
	w := scoring.DefaultWeights()
	return &Config{
		LogLevel:          "info",
		Addr:              ":9080",
		QueueSize:         1024,
		WorkerCount:       runtime.NumCPU(),
		DedupeSize:        10_000,
		RunConcurrency:    4,
		Store:             StoreMemory,
		SQLitePath:        "teamalloc.db",
		MigrationsDir:     "migrations",
		WeightContest:     w.Contest,
		WeightRating1:     w.Rating1,
		WeightRating2:     w.Rating2,
		WeightCourse:      w.Course,
		TriggerRatePerSec: 5,
		TriggerBurst:      10,
		KafkaTopic:        "teams.formed",
		MailPort:          587,
	}
}
