package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/okian/teamalloc/internal/domain/model"
)

type universityRequest struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name"`
}

type studentRequest struct {
	ID                string            `json:"id" validate:"required"`
	UniversityID      string            `json:"university_id" validate:"required"`
	GivenName         string            `json:"given_name"`
	FamilyName        string            `json:"family_name"`
	ContestExperience int               `json:"contest_experience" validate:"min=0"`
	Rating1           float64           `json:"rating1" validate:"min=0"`
	Rating2           float64           `json:"rating2" validate:"min=0"`
	CompletedCourses  []int             `json:"completed_courses"`
	SpokenLanguages   []string          `json:"spoken_languages"`
	Experience        map[string]string `json:"experience" validate:"dive,keys,required,endkeys,oneof=none some proficient"`
	Preference        string            `json:"preference"`
	Exclusions        string            `json:"exclusions"`
}

// rosterRequest mirrors the OpenAPI schema for POST roster.
type rosterRequest struct {
	Universities []universityRequest `json:"universities" validate:"dive"`
	Students     []studentRequest    `json:"students" validate:"dive"`
}

type rosterResponse struct {
	Universities int `json:"universities"`
	Students     int `json:"students"`
}

func (sr *studentRequest) record(contestID string) (model.StudentRecord, error) {
	rec := model.StudentRecord{
		ID:                sr.ID,
		UniversityID:      sr.UniversityID,
		ContestID:         contestID,
		GivenName:         sr.GivenName,
		FamilyName:        sr.FamilyName,
		ContestExperience: sr.ContestExperience,
		Rating1:           sr.Rating1,
		Rating2:           sr.Rating2,
		CompletedCourses:  sr.CompletedCourses,
		SpokenLanguages:   sr.SpokenLanguages,
		Preference:        sr.Preference,
		Exclusions:        sr.Exclusions,
	}
	for name, level := range sr.Experience {
		lang, ok := model.ParseLanguage(name)
		if !ok {
			return model.StudentRecord{}, fmt.Errorf("student %s: unknown programming language %q", sr.ID, name)
		}
		rec.Experience[lang] = model.ParseLevel(level)
	}
	return rec, nil
}

// HandlePostRoster handles POST /contests/{contestID}/roster.
func (s *Server) HandlePostRoster(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_roster"
	var req rosterRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}

	contestID := mux.Vars(r)["contestID"]
	unis := make([]model.University, len(req.Universities))
	for i, u := range req.Universities {
		unis[i] = model.University{ID: u.ID, Name: u.Name}
	}
	students := make([]model.StudentRecord, len(req.Students))
	for i := range req.Students {
		rec, err := req.Students[i].record(contestID)
		if err != nil {
			s.fail(w, r, WrapKind(op, ErrBadRequest, err))
			return
		}
		students[i] = rec
	}

	if err := s.deps.ImportRoster(r.Context(), contestID, unis, students); err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, rosterResponse{Universities: len(unis), Students: len(students)})
}
