// Package scheduler fires contest allocation triggers at configured times.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/okian/teamalloc/internal/config"
	"github.com/okian/teamalloc/internal/domain/model"
	"github.com/okian/teamalloc/pkg/logger"
)

const (
	defaultAttempts   = 3
	defaultRetryDelay = 5 * time.Second
)

// Trigger starts allocation for every university of a contest.
type Trigger func(ctx context.Context, contestID string, stage model.Stage) error

// Event is one scheduled trigger.
type Event struct {
	ContestID string
	Stage     model.Stage
	At        time.Time
}

// Events expands configured schedules into trigger events.
func Events(schedules []config.Schedule) ([]Event, error) {
	var out []Event
	for _, s := range schedules {
		early, final, err := s.Times()
		if err != nil {
			return nil, fmt.Errorf("schedule %s: %w", s.ContestID, err)
		}
		if !early.IsZero() {
			out = append(out, Event{ContestID: s.ContestID, Stage: model.StageEarlyBird, At: early})
		}
		out = append(out, Event{ContestID: s.ContestID, Stage: model.StageFinal, At: final})
	}
	return out, nil
}

// Scheduler waits for each event and calls the trigger.
type Scheduler struct {
	trigger    Trigger
	events     []Event
	attempts   int
	retryDelay time.Duration
	now        func() time.Time
	logger     logger.Logger
}

// New creates a scheduler for events.
func New(trigger Trigger, events []Event, opts ...Option) *Scheduler {
	s := &Scheduler{
		trigger:    trigger,
		events:     append([]Event(nil), events...),
		attempts:   defaultAttempts,
		retryDelay: defaultRetryDelay,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("scheduler")
	}
	sort.SliceStable(s.events, func(i, j int) bool { return s.events[i].At.Before(s.events[j].At) })
	return s
}

// Run fires events in time order until all have fired or ctx is canceled.
// Events already in the past when Run starts are skipped.
func (s *Scheduler) Run(ctx context.Context) error {
	start := s.now()
	var pending []Event
	for _, ev := range s.events {
		if ev.At.Before(start) {
			s.logger.Warn(ctx, "skipping past trigger",
				logger.String("contest_id", ev.ContestID),
				logger.String("stage", string(ev.Stage)),
				logger.String("at", ev.At.Format(time.RFC3339)),
			)
			continue
		}
		pending = append(pending, ev)
	}
	s.logger.Info(ctx, "scheduler started", logger.Int("pending", len(pending)))

	for _, ev := range pending {
		if err := sleep(ctx, ev.At.Sub(s.now())); err != nil {
			return err
		}
		s.fire(ctx, ev)
	}
	return nil
}

func (s *Scheduler) fire(ctx context.Context, ev Event) {
	log := s.logger.With(
		logger.String("contest_id", ev.ContestID),
		logger.String("stage", string(ev.Stage)),
	)
	for attempt := 1; ; attempt++ {
		err := s.trigger(ctx, ev.ContestID, ev.Stage)
		if err == nil {
			log.Info(ctx, "scheduled trigger fired", logger.Int("attempt", attempt))
			return
		}
		if attempt >= s.attempts {
			log.Error(ctx, "scheduled trigger failed", logger.Int("attempts", attempt), logger.Error(err))
			return
		}
		log.Warn(ctx, "scheduled trigger failed, retrying", logger.Int("attempt", attempt), logger.Error(err))
		if sleep(ctx, s.retryDelay) != nil {
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
