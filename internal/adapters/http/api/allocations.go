package api

import (
	"net/http"

	"github.com/gorilla/mux"

	service "github.com/okian/teamalloc/internal/app"
	"github.com/okian/teamalloc/internal/domain/model"
)

// allocationRequest mirrors the OpenAPI schema for POST allocations.
type allocationRequest struct {
	Stage string `json:"stage" validate:"required,oneof=early_bird final manual"`
}

type ackResponse struct {
	Status     string   `json:"status"`
	Duplicate  bool     `json:"duplicate"`
	ContestID  string   `json:"contest_id"`
	Stage      string   `json:"stage"`
	Enqueued   []string `json:"enqueued"`
	Duplicates []string `json:"duplicates"`
}

func (s *Server) parseStage(w http.ResponseWriter, r *http.Request, op string) (model.Stage, bool) {
	if !s.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "rate_limited", NewKind(op, ErrRateLimited))
		return "", false
	}
	var req allocationRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return "", false
	}
	if err := s.validate.Struct(req); err != nil {
		s.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return "", false
	}
	return model.Stage(req.Stage), true
}

// HandlePostAllocation handles POST /contests/{contestID}/allocations.
// Jobs are queued; 200 duplicate means every university was already
// triggered for the stage.
func (s *Server) HandlePostAllocation(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_allocation"
	stage, ok := s.parseStage(w, r, op)
	if !ok {
		return
	}
	rep, err := s.deps.TriggerContest(r.Context(), mux.Vars(r)["contestID"], stage)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}

	ack := ackResponse{
		Status:     "accepted",
		ContestID:  rep.ContestID,
		Stage:      string(rep.Stage),
		Enqueued:   nonNil(rep.Enqueued),
		Duplicates: nonNil(rep.Duplicates),
	}
	if len(rep.Enqueued) == 0 && len(rep.Duplicates) > 0 {
		ack.Status, ack.Duplicate = "duplicate", true
		writeJSON(w, http.StatusOK, ack)
		return
	}
	writeJSON(w, http.StatusAccepted, ack)
}

// HandlePostAllocationSync handles POST /contests/{contestID}/allocations/sync.
// Per-university failures are reported inside the run summaries.
func (s *Server) HandlePostAllocationSync(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_allocation_sync"
	stage, ok := s.parseStage(w, r, op)
	if !ok {
		return
	}
	rep, err := s.deps.RunContest(r.Context(), mux.Vars(r)["contestID"], stage)
	if err != nil && len(rep.Runs) == 0 {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, syncResponse(rep))
}

type contestReport struct {
	ContestID  string             `json:"contest_id"`
	Stage      string             `json:"stage"`
	Duplicates []string           `json:"duplicates"`
	Runs       []model.RunSummary `json:"runs"`
}

func syncResponse(rep service.ContestReport) contestReport {
	runs := rep.Runs
	if runs == nil {
		runs = []model.RunSummary{}
	}
	return contestReport{
		ContestID:  rep.ContestID,
		Stage:      string(rep.Stage),
		Duplicates: nonNil(rep.Duplicates),
		Runs:       runs,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
