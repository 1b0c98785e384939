package api

import (
	"golang.org/x/time/rate"

	"github.com/okian/teamalloc/pkg/logger"
)

// Option configures a Server.
type Option func(*Server)

// WithTriggerLimit rate limits POST allocation requests to perSecond with
// the given burst.
func WithTriggerLimit(perSecond float64, burst int) Option {
	return func(s *Server) {
		if perSecond > 0 && burst > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// WithMaxRuns caps GET /runs?limit.
func WithMaxRuns(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxRuns = n
		}
	}
}

// WithLogger sets the API logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
