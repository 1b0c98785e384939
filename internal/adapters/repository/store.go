// Package repository defines the roster and team storage contracts and an
// in-memory implementation.
package repository

import (
	"context"

	"github.com/okian/teamalloc/internal/domain/model"
)

// RosterProvider supplies registered universities and students.
type RosterProvider interface {
	// Universities lists the universities registered for a contest in
	// registration order. Returns ErrNotFound for an unknown contest.
	Universities(ctx context.Context, contestID string) ([]model.University, error)

	// University returns one registered university or ErrNotFound.
	University(ctx context.Context, contestID, universityID string) (model.University, error)

	// Roster returns the university's students that are not yet on a team,
	// in registration order.
	Roster(ctx context.Context, contestID, universityID string) ([]model.StudentRecord, error)
}

// TeamSink persists formed teams.
type TeamSink interface {
	// SaveTeams stores teams atomically, assigns identities and marks every
	// member as placed so later rosters skip them. A member that is unknown
	// or already placed fails the whole call.
	SaveTeams(ctx context.Context, contestID, universityID string, teams []model.NamedTeam) ([]model.StoredTeam, error)
}

// TeamReader reads stored teams.
type TeamReader interface {
	// Teams lists teams in creation order. An empty universityID lists the
	// whole contest.
	Teams(ctx context.Context, contestID, universityID string) ([]model.StoredTeam, error)
	CountTeams(ctx context.Context, contestID, universityID string) (int, error)
}

// RosterWriter imports registrations.
type RosterWriter interface {
	UpsertUniversity(ctx context.Context, contestID string, u model.University) error
	// AddStudents appends students to their university's roster. Student IDs
	// are unique per contest.
	AddStudents(ctx context.Context, students []model.StudentRecord) error
}

// Store is the full storage surface used by the service.
type Store interface {
	RosterProvider
	TeamSink
	TeamReader
	RosterWriter
}
