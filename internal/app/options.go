package service

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/okian/teamalloc/internal/adapters/repository"
	"github.com/okian/teamalloc/internal/domain/scoring"
	"github.com/okian/teamalloc/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the roster and team store. Defaults to a MemoryStore.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithScorer sets the individual score calculator.
func WithScorer(sc scoring.Scorer) Option {
	return func(s *Service) {
		if sc != nil {
			s.scorer = sc
		}
	}
}

// WithWorkerCount sets the number of allocation workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize bounds the number of remembered trigger keys.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithDedupeWindow forgets trigger keys after window. Zero remembers them
// until evicted.
func WithDedupeWindow(window time.Duration) Option {
	return func(s *Service) {
		if window >= 0 {
			s.dedupeWindow = window
		}
	}
}

// WithRunConcurrency bounds how many universities RunContest allocates at once.
func WithRunConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.runConcurrency = n
		}
	}
}

// WithPublisher announces stored teams after each run.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithNotifier reports flagged teams after each run.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTracer replaces the global OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRunHistory sets how many run summaries Runs keeps.
func WithRunHistory(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.runHistory = n
		}
	}
}
