package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/teamalloc/internal/domain/model"
)

type contestState struct {
	universities []model.University
	uniIndex     map[string]int
	students     []model.StudentRecord
	studentIndex map[string]int
	placed       map[string]string // student ID -> team ID
	teams        []model.StoredTeam
}

// MemoryStore keeps rosters and teams in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	contests map[string]*contestState
	now      func() time.Time
	newID    func() string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		contests: make(map[string]*contestState),
		now:      time.Now,
		newID:    newUUID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) contest(contestID string) *contestState {
	c, ok := s.contests[contestID]
	if !ok {
		c = &contestState{
			uniIndex:     make(map[string]int),
			studentIndex: make(map[string]int),
			placed:       make(map[string]string),
		}
		s.contests[contestID] = c
	}
	return c
}

// UpsertUniversity registers a university or renames an existing one.
func (s *MemoryStore) UpsertUniversity(_ context.Context, contestID string, u model.University) error {
	if contestID == "" || u.ID == "" {
		return fmt.Errorf("upsert university: %w", ErrInvalidUniversity)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.contest(contestID)
	if i, ok := c.uniIndex[u.ID]; ok {
		c.universities[i].Name = u.Name
		return nil
	}
	c.uniIndex[u.ID] = len(c.universities)
	c.universities = append(c.universities, u)
	return nil
}

// AddStudents appends students. The batch is rejected as a whole when any
// record is invalid, duplicated or names an unregistered university.
func (s *MemoryStore) AddStudents(_ context.Context, students []model.StudentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[string]struct{}, len(students))
	for i := range students {
		st := &students[i]
		if st.ID == "" || st.ContestID == "" {
			return fmt.Errorf("student %d: %w", i, ErrInvalidStudent)
		}
		c, ok := s.contests[st.ContestID]
		if !ok {
			return fmt.Errorf("contest %s: %w", st.ContestID, ErrNotFound)
		}
		if _, ok := c.uniIndex[st.UniversityID]; !ok {
			return fmt.Errorf("university %s: %w", st.UniversityID, ErrNotFound)
		}
		key := st.ContestID + "/" + st.ID
		if _, dup := batch[key]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateStudent, st.ID)
		}
		if _, dup := c.studentIndex[st.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateStudent, st.ID)
		}
		batch[key] = struct{}{}
	}

	for i := range students {
		c := s.contests[students[i].ContestID]
		c.studentIndex[students[i].ID] = len(c.students)
		c.students = append(c.students, cloneStudent(students[i]))
	}
	return nil
}

// Universities lists a contest's universities in registration order.
func (s *MemoryStore) Universities(_ context.Context, contestID string) ([]model.University, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contests[contestID]
	if !ok {
		return nil, fmt.Errorf("contest %s: %w", contestID, ErrNotFound)
	}
	out := make([]model.University, len(c.universities))
	copy(out, c.universities)
	return out, nil
}

// University returns one registered university.
func (s *MemoryStore) University(_ context.Context, contestID, universityID string) (model.University, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contests[contestID]
	if !ok {
		return model.University{}, fmt.Errorf("contest %s: %w", contestID, ErrNotFound)
	}
	i, ok := c.uniIndex[universityID]
	if !ok {
		return model.University{}, fmt.Errorf("university %s: %w", universityID, ErrNotFound)
	}
	return c.universities[i], nil
}

// Roster returns the university's unplaced students.
func (s *MemoryStore) Roster(_ context.Context, contestID, universityID string) ([]model.StudentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contests[contestID]
	if !ok {
		return nil, fmt.Errorf("contest %s: %w", contestID, ErrNotFound)
	}
	if _, ok := c.uniIndex[universityID]; !ok {
		return nil, fmt.Errorf("university %s: %w", universityID, ErrNotFound)
	}
	var out []model.StudentRecord
	for i := range c.students {
		st := &c.students[i]
		if st.UniversityID != universityID {
			continue
		}
		if _, placed := c.placed[st.ID]; placed {
			continue
		}
		out = append(out, cloneStudent(*st))
	}
	return out, nil
}

// SaveTeams stores teams and marks their members as placed.
func (s *MemoryStore) SaveTeams(_ context.Context, contestID, universityID string, teams []model.NamedTeam) ([]model.StoredTeam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contests[contestID]
	if !ok {
		return nil, fmt.Errorf("contest %s: %w", contestID, ErrNotFound)
	}
	if _, ok := c.uniIndex[universityID]; !ok {
		return nil, fmt.Errorf("university %s: %w", universityID, ErrNotFound)
	}

	claimed := make(map[string]struct{})
	for i := range teams {
		if len(teams[i].Members) != model.MaxUnitSize {
			return nil, fmt.Errorf("team %q: %w: %d members", teams[i].Name, ErrInvalidTeam, len(teams[i].Members))
		}
		for _, id := range teams[i].Members {
			j, ok := c.studentIndex[id]
			if !ok || c.students[j].UniversityID != universityID {
				return nil, fmt.Errorf("member %s: %w", id, ErrNotFound)
			}
			if _, dup := claimed[id]; dup {
				return nil, fmt.Errorf("%w: %s", ErrAlreadyPlaced, id)
			}
			if _, placed := c.placed[id]; placed {
				return nil, fmt.Errorf("%w: %s", ErrAlreadyPlaced, id)
			}
			claimed[id] = struct{}{}
		}
	}

	now := s.now()
	out := make([]model.StoredTeam, len(teams))
	for i := range teams {
		st := model.StoredTeam{
			NamedTeam:    cloneTeam(teams[i]),
			ID:           s.newID(),
			ContestID:    contestID,
			UniversityID: universityID,
			CreatedAt:    now,
		}
		for _, id := range st.Members {
			c.placed[id] = st.ID
		}
		c.teams = append(c.teams, st)
		out[i] = st
		out[i].NamedTeam = cloneTeam(st.NamedTeam)
	}
	return out, nil
}

// Teams lists stored teams in creation order.
func (s *MemoryStore) Teams(_ context.Context, contestID, universityID string) ([]model.StoredTeam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contests[contestID]
	if !ok {
		return nil, fmt.Errorf("contest %s: %w", contestID, ErrNotFound)
	}
	var out []model.StoredTeam
	for i := range c.teams {
		if universityID == "" || c.teams[i].UniversityID == universityID {
			t := c.teams[i]
			t.NamedTeam = cloneTeam(t.NamedTeam)
			out = append(out, t)
		}
	}
	return out, nil
}

// CountTeams counts stored teams for a university, or the contest when
// universityID is empty.
func (s *MemoryStore) CountTeams(ctx context.Context, contestID, universityID string) (int, error) {
	teams, err := s.Teams(ctx, contestID, universityID)
	if err != nil {
		return 0, err
	}
	return len(teams), nil
}

func cloneStudent(st model.StudentRecord) model.StudentRecord {
	st.CompletedCourses = append([]int(nil), st.CompletedCourses...)
	st.SpokenLanguages = append([]string(nil), st.SpokenLanguages...)
	return st
}

func cloneTeam(t model.NamedTeam) model.NamedTeam {
	t.Members = append([]string(nil), t.Members...)
	t.Names = append([]string(nil), t.Names...)
	return t
}
