package scheduler

import (
	"time"

	"github.com/okian/teamalloc/pkg/logger"
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRetry sets how many times a failing trigger is attempted and the
// pause between attempts.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(s *Scheduler) {
		if attempts > 0 {
			s.attempts = attempts
		}
		if delay >= 0 {
			s.retryDelay = delay
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the scheduler logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}
