package api

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/okian/teamalloc/internal/adapters/export"
	"github.com/okian/teamalloc/internal/domain/model"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// teamResponse is the read shape of a stored team.
type teamResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ContestID    string    `json:"contest_id"`
	UniversityID string    `json:"university_id"`
	Members      []string  `json:"members"`
	MemberNames  []string  `json:"member_names"`
	Score        float64   `json:"score"`
	Flagged      bool      `json:"flagged"`
	CreatedAt    time.Time `json:"created_at"`
}

func toTeamResponse(t *model.StoredTeam) teamResponse {
	return teamResponse{
		ID:           t.ID,
		Name:         t.Name,
		ContestID:    t.ContestID,
		UniversityID: t.UniversityID,
		Members:      t.Members,
		MemberNames:  t.Names,
		Score:        t.Score,
		Flagged:      t.Flagged,
		CreatedAt:    t.CreatedAt,
	}
}

// HandleGetTeams handles GET /contests/{contestID}/teams?university=ID.
func (s *Server) HandleGetTeams(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_teams"
	teams, err := s.deps.Teams(r.Context(), mux.Vars(r)["contestID"], r.URL.Query().Get("university"))
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	out := make([]teamResponse, len(teams))
	for i := range teams {
		out[i] = toTeamResponse(&teams[i])
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleExportTeams handles GET /contests/{contestID}/teams.xlsx.
func (s *Server) HandleExportTeams(w http.ResponseWriter, r *http.Request) {
	const op = "api.export_teams"
	contestID := mux.Vars(r)["contestID"]
	teams, err := s.deps.Teams(r.Context(), contestID, r.URL.Query().Get("university"))
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	unis, err := s.deps.Universities(r.Context(), contestID)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	names := make(map[string]string, len(unis))
	for _, u := range unis {
		names[u.ID] = u.Name
	}

	var buf bytes.Buffer
	if err := export.WriteTeams(&buf, teams, names); err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+contestID+`-teams.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// HandleGetRuns handles GET /runs?limit=N.
func (s *Server) HandleGetRuns(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_runs"
	n := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		var err error
		if n, err = strconv.Atoi(v); err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		if n > s.maxRuns {
			writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
			return
		}
	}
	runs := s.deps.Runs(n)
	if runs == nil {
		runs = []model.RunSummary{}
	}
	writeJSON(w, http.StatusOK, runs)
}
