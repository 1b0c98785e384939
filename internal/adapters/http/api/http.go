// Package api exposes the allocation service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	service "github.com/okian/teamalloc/internal/app"
	"github.com/okian/teamalloc/internal/domain/model"
	"github.com/okian/teamalloc/pkg/logger"
)

const (
	defaultRunsLimit = 50
	defaultMaxRuns   = 200
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	StatsProvider

	TriggerContest(ctx context.Context, contestID string, stage model.Stage) (service.ContestReport, error)
	RunContest(ctx context.Context, contestID string, stage model.Stage) (service.ContestReport, error)
	ImportRoster(ctx context.Context, contestID string, unis []model.University, students []model.StudentRecord) error

	Teams(ctx context.Context, contestID, universityID string) ([]model.StoredTeam, error)
	Universities(ctx context.Context, contestID string) ([]model.University, error)
	Runs(limit int) []model.RunSummary
}

// Server wires HTTP routes for the allocation API.
type Server struct {
	deps     Dependencies
	validate *validator.Validate
	limiter  *rate.Limiter
	maxRuns  int
	logger   logger.Logger

	health *HealthHandler
	stats  *StatsHandler
}

// NewServer creates an API server. Triggers are unlimited unless
// WithTriggerLimit is given.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:     deps,
		validate: validator.New(),
		limiter:  rate.NewLimiter(rate.Inf, 0),
		maxRuns:  defaultMaxRuns,
		health:   NewHealthHandler(),
		stats:    NewStatsHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}
	return s
}

// Register attaches all business routes to r.
func (s *Server) Register(_ context.Context, r *mux.Router) {
	r.HandleFunc("/healthz", MetricsMiddleware(s.health.HandleHealth, "healthz")).Methods(http.MethodGet)
	r.HandleFunc("/stats", MetricsMiddleware(s.stats.HandleStats, "stats")).Methods(http.MethodGet)
	r.HandleFunc("/runs", MetricsMiddleware(s.HandleGetRuns, "runs")).Methods(http.MethodGet)

	c := r.PathPrefix("/contests/{contestID}").Subrouter()
	c.HandleFunc("/roster", MetricsMiddleware(s.HandlePostRoster, "roster")).Methods(http.MethodPost)
	c.HandleFunc("/allocations", MetricsMiddleware(s.HandlePostAllocation, "allocations")).Methods(http.MethodPost)
	c.HandleFunc("/allocations/sync", MetricsMiddleware(s.HandlePostAllocationSync, "allocations_sync")).Methods(http.MethodPost)
	c.HandleFunc("/teams", MetricsMiddleware(s.HandleGetTeams, "teams")).Methods(http.MethodGet)
	c.HandleFunc("/teams.xlsx", MetricsMiddleware(s.HandleExportTeams, "teams_export")).Methods(http.MethodGet)
}

// Handler returns a router with every route registered, guarded against
// handler panics.
func (s *Server) Handler(ctx context.Context) http.Handler {
	r := mux.NewRouter()
	s.Register(ctx, r)
	return handlers.RecoveryHandler(handlers.PrintRecoveryStack(false))(r)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail writes err with the status its kind maps to.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", logger.String("path", r.URL.Path), logger.Error(err))
	}
	writeError(w, status, code, err)
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
